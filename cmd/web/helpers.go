package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fitorfail/fitorfail/internal/contexthelpers"
	"github.com/fitorfail/fitorfail/internal/errors"
	"github.com/fitorfail/fitorfail/internal/planner"
)

const maxBodyBytes = 1 << 16

type errorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"traceId,omitempty"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("marshal response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(body); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "write response", slog.Any("error", err))
	}
}

func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	app.writeJSON(w, r, status, errorResponse{Error: msg, TraceID: ""})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	// The trace id lets operators find the logged error.
	app.writeJSON(w, r, http.StatusInternalServerError, errorResponse{
		Error:   http.StatusText(http.StatusInternalServerError),
		TraceID: contexthelpers.TraceID(r.Context()),
	})
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	app.writeError(w, r, http.StatusBadRequest, msg)
}

// handleError maps planner errors to HTTP statuses. Only unexpected errors are logged.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, planner.ErrNotFound):
		app.writeError(w, r, http.StatusNotFound, planner.ErrNotFound.Error())
	case planner.IsValidation(err):
		app.badRequest(w, r, rootMessage(err))
	case planner.IsConflict(err):
		app.writeError(w, r, http.StatusConflict, rootMessage(err))
	default:
		app.serverError(w, r, err)
	}
}

// rootMessage returns the message of the innermost wrapped error so that clients see the sentinel text. Joined
// errors are followed through their first error, which is the cause when a rollback error is joined onto it.
func rootMessage(err error) string {
	for {
		var inner error
		switch e := err.(type) { //nolint:errorlint // walking the chain by hand.
		case interface{ Unwrap() []error }:
			if errs := e.Unwrap(); len(errs) > 0 {
				inner = errs[0]
			}
		case interface{ Unwrap() error }:
			inner = e.Unwrap()
		}
		if inner == nil {
			return err.Error()
		}
		err = inner
	}
}

// decodeJSON decodes the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// pathID parses the named path value as a positive integer and responds with 404 on failure.
func (app *application) pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		app.writeError(w, r, http.StatusNotFound, planner.ErrNotFound.Error())
		return 0, false
	}
	return id, true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return value, nil
}

// userID returns the caller set by mustIdentify.
func userID(r *http.Request) int {
	id, _ := contexthelpers.UserID(r.Context())
	return id
}
