package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/fitorfail/fitorfail/internal/contexthelpers"
	"github.com/fitorfail/fitorfail/internal/e2etest"
	"github.com/fitorfail/fitorfail/internal/errors"
	"github.com/fitorfail/fitorfail/internal/planner"
	"github.com/fitorfail/fitorfail/internal/testhelpers"
)

func newTestApplication(t *testing.T) *application {
	t.Helper()
	return &application{ //nolint:exhaustruct // handlers under test do not touch the planner.
		logger: testhelpers.NewLogger(testhelpers.NewWriter(t)),
	}
}

func Test_application_recoverPanic(t *testing.T) {
	app := newTestApplication(t)
	handler := app.logAndTraceRequest(app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthy", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error != "Internal Server Error" {
		t.Errorf("body = %q, err = %v", rec.Body.String(), err)
	}
	if resp.TraceID == "" {
		t.Error("expected the trace id of the failed request in the response")
	}
}

func Test_application_mustIdentify(t *testing.T) {
	app := newTestApplication(t)
	handler := app.mustIdentify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := contexthelpers.UserID(r.Context())
		if !ok {
			t.Error("user id missing from context")
		}
		_, _ = w.Write([]byte(strconv.Itoa(id)))
	}))

	tests := []struct {
		header     string
		wantStatus int
		wantBody   string
	}{
		{header: "", wantStatus: http.StatusUnauthorized},
		{header: "abc", wantStatus: http.StatusUnauthorized},
		{header: "0", wantStatus: http.StatusUnauthorized},
		{header: "42", wantStatus: http.StatusOK, wantBody: "42"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("header %q", tt.header), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			if tt.header != "" {
				req.Header.Set(e2etest.UserIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func Test_application_handleError(t *testing.T) {
	app := newTestApplication(t)
	tests := []struct {
		err         error
		wantStatus  int
		wantMessage string
	}{
		{fmt.Errorf("get plan 3: %w", planner.ErrNotFound), http.StatusNotFound, "not found"},
		{fmt.Errorf("rate: %w", planner.ErrInvalidRating), http.StatusBadRequest, planner.ErrInvalidRating.Error()},
		{fmt.Errorf("replace: %w", planner.ErrNoReplacement), http.StatusConflict, planner.ErrNoReplacement.Error()},
		{fmt.Errorf("refresh: %w", planner.ErrPlanClosed), http.StatusConflict, planner.ErrPlanClosed.Error()},
		{
			fmt.Errorf("activate plan 2: %w", errors.Join(planner.ErrIllegalTransition,
				errors.New("rollback transaction: disk I/O error"))),
			http.StatusConflict,
			planner.ErrIllegalTransition.Error(),
		},
		{
			fmt.Errorf("set plan 2 status %q: %w", "bogus", planner.ErrInvalidStatus),
			http.StatusBadRequest,
			planner.ErrInvalidStatus.Error(),
		},
		{errors.Wrap(errors.New("disk I/O error"), "query plans"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.handleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Error != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Error, tt.wantMessage)
			}
		})
	}
}
