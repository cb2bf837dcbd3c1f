package planner

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// DaySpec describes one day of a weekly split.
type DaySpec struct {
	DayNumber     int      `yaml:"day"`
	Name          string   `yaml:"name"`
	BodyParts     []string `yaml:"body_parts"`
	ExerciseCount int      `yaml:"exercise_count"`
}

//go:embed templates.yaml
var templatesYAML []byte

//nolint:gochecknoglobals // parsed once from the embedded templates.
var splitTemplates = mustParseTemplates(templatesYAML)

func mustParseTemplates(data []byte) map[int][]DaySpec {
	templates, err := parseTemplates(data)
	if err != nil {
		panic(fmt.Sprintf("parse split templates: %v", err))
	}
	return templates
}

// parseTemplates decodes split templates keyed by workout day count and checks that every template covers
// days 1..N exactly once in order.
func parseTemplates(data []byte) (map[int][]DaySpec, error) {
	var templates map[int][]DaySpec
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	for days, specs := range templates {
		if len(specs) != days {
			return nil, fmt.Errorf("template %d has %d days", days, len(specs))
		}
		for i, spec := range specs {
			if spec.DayNumber != i+1 {
				return nil, fmt.Errorf("template %d: day %d at position %d", days, spec.DayNumber, i+1)
			}
			if spec.ExerciseCount <= 0 || len(spec.BodyParts) == 0 {
				return nil, fmt.Errorf("template %d day %d: missing body parts or exercise count", days, spec.DayNumber)
			}
		}
	}
	return templates, nil
}

// SplitTemplate returns the day specs for a week with the given number of workout days.
func SplitTemplate(workoutDays int) ([]DaySpec, error) {
	specs, ok := splitTemplates[workoutDays]
	if !ok {
		return nil, ErrInvalidDayCount
	}
	return slices.Clone(specs), nil
}

// workoutDayOptions lists the supported workout day counts in ascending order.
func workoutDayOptions() []int {
	return slices.Sorted(maps.Keys(splitTemplates))
}

// daySpec returns the template entry for dayNumber.
func daySpec(workoutDays, dayNumber int) (DaySpec, error) {
	specs, err := SplitTemplate(workoutDays)
	if err != nil {
		return DaySpec{}, err
	}
	for _, spec := range specs {
		if spec.DayNumber == dayNumber {
			return spec, nil
		}
	}
	return DaySpec{}, ErrNotFound
}
