// Package envstruct populates configuration structs from environment variables.
package envstruct

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

var (
	ErrEnvNotSet    = errors.New("environment variable not set")
	ErrInvalidValue = errors.New("v must be a pointer to a struct")
)

// Populate populates the fields of the pointer to struct v with values from the environment.
//
// lookupEnv has the same signature as [os.LookupEnv]. Fields are tagged with `env:"ENV_VAR"` and optionally
// `envDefault:"value"`. Without a default, a missing variable results in ErrEnvNotSet. String and int fields
// are supported.
func Populate(v any, lookupEnv func(string) (string, bool)) error {
	ptrRef := reflect.ValueOf(v)
	if ptrRef.Kind() != reflect.Ptr {
		return fmt.Errorf("%w: not pointer: %v", ErrInvalidValue, v)
	}
	ref := ptrRef.Elem()
	if ref.Kind() != reflect.Struct {
		return fmt.Errorf("%w: not struct: %v", ErrInvalidValue, v)
	}

	var errorList []error
	for i := range ref.NumField() {
		field := ref.Type().Field(i)
		envVarName, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}
		if err := setField(ref.Field(i), field, envVarName, lookupEnv); err != nil {
			errorList = append(errorList, err)
		}
	}

	return errors.Join(errorList...)
}

func setField(
	value reflect.Value,
	field reflect.StructField,
	envVarName string,
	lookupEnv func(string) (string, bool),
) error {
	if !value.CanSet() {
		return fmt.Errorf("%w: cannot set field: %s", ErrInvalidValue, field.Name)
	}

	raw, err := envLookupWithFallback(envVarName, field.Tag, lookupEnv)
	if err != nil {
		return err
	}

	switch value.Kind() { //nolint:exhaustive // only a handful of kinds are supported.
	case reflect.String:
		value.SetString(raw)
	case reflect.Int:
		var n int
		if n, err = strconv.Atoi(raw); err != nil {
			return fmt.Errorf("%w: parse int field %s from %s: %w", ErrInvalidValue, field.Name, envVarName, err)
		}
		value.SetInt(int64(n))
	default:
		return fmt.Errorf("%w: unsupported type - field: %s, type: %s, env: %s",
			ErrInvalidValue, field.Name, value.Kind().String(), envVarName)
	}
	return nil
}

func envLookupWithFallback(
	envVarName string, tag reflect.StructTag, lookupEnv func(string) (string, bool)) (string, error) {
	envVarValue, ok := lookupEnv(envVarName)
	if !ok {
		envVarValue, ok = tag.Lookup("envDefault")
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrEnvNotSet, envVarName)
		}
	}
	return envVarValue, nil
}
