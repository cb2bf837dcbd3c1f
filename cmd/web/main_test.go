package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/fitorfail/fitorfail/internal/e2etest"
	"github.com/fitorfail/fitorfail/internal/testhelpers"
)

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "FITORFAIL_SQLITE_URL":
		return ":memory:", true
	case "FITORFAIL_ADDR":
		return "localhost:0", true
	default:
		return "", false
	}
}

func startServer(t *testing.T) *e2etest.Server {
	t.Helper()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	return server
}

// signUp creates a user and returns a client acting as them.
func signUp(t *testing.T, server *e2etest.Server, username, skillLevel string) (*e2etest.Client, userResponse) {
	t.Helper()
	var user userResponse
	status, err := server.Client().JSON(t.Context(), http.MethodPost, "/api/users",
		createUserRequest{Username: username, SkillLevel: skillLevel}, &user)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if status != http.StatusCreated {
		t.Fatalf("create user status = %d, want %d", status, http.StatusCreated)
	}
	return server.Client().AsUser(user.ID), user
}

// mustJSON performs the request and fails the test unless the response has the wanted status.
func mustJSON(t *testing.T, c *e2etest.Client, method, path string, body, out any, wantStatus int) {
	t.Helper()
	status, err := c.JSON(t.Context(), method, path, body, out)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	if status != wantStatus {
		t.Fatalf("%s %s status = %d, want %d", method, path, status, wantStatus)
	}
}

func Test_run_invalidConfig(t *testing.T) {
	lookupEnv := func(key string) (string, bool) {
		if key == "FITORFAIL_RECENT_WINDOW_DAYS" {
			return "-1", true
		}
		return testLookupEnv(key)
	}
	err := run(t.Context(), testhelpers.NewLogger(testhelpers.NewWriter(t)), lookupEnv)
	if err == nil || !strings.Contains(err.Error(), "recent window must not be negative") {
		t.Fatalf("run() error = %v, want a rejected recent window", err)
	}
}
