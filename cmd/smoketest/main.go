package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fitorfail/fitorfail/internal/e2etest"
	"github.com/fitorfail/fitorfail/internal/logging"
	"github.com/fitorfail/fitorfail/internal/testhelpers"
)

type user struct {
	ID int `json:"id"`
}

type plan struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Days   []struct {
		Exercises []struct {
			ID int `json:"id"`
		} `json:"exercises"`
	} `json:"days"`
}

type stats struct {
	CompletedThisWeek int `json:"completedThisWeek"`
}

func call(ctx context.Context, client *e2etest.Client, method, path string, body, out any, want int) error {
	status, err := client.JSON(ctx, method, path, body, out)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if status != want {
		return fmt.Errorf("%s %s: unexpected status code %d", method, path, status)
	}
	return nil
}

// TestPlanLifecycle creates a throwaway user, generates and activates a plan, and completes one exercise.
func TestPlanLifecycle(anonymous *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	var u user
	if err := call(ctx, anonymous, http.MethodPost, "/api/users",
		map[string]string{"username": "smoke-" + rand.Text()}, &u, http.StatusCreated); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	client := anonymous.AsUser(u.ID)

	var p plan
	if err := call(ctx, client, http.MethodPost, "/api/workouts/generate", nil, &p, http.StatusCreated); err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	if len(p.Days) == 0 || len(p.Days[0].Exercises) == 0 {
		return errors.New("generated plan has no exercises")
	}
	if err := call(ctx, client, http.MethodPut, fmt.Sprintf("/api/workouts/%d/activate", p.ID), nil, &p,
		http.StatusOK); err != nil {
		return fmt.Errorf("activate plan: %w", err)
	}
	exercisePath := fmt.Sprintf("/api/workouts/exercises/%d/complete", p.Days[0].Exercises[0].ID)
	if err := call(ctx, client, http.MethodPut, exercisePath, nil, nil, http.StatusOK); err != nil {
		return fmt.Errorf("complete exercise: %w", err)
	}
	var s stats
	if err := call(ctx, client, http.MethodGet, "/api/stats", nil, &s, http.StatusOK); err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	if s.CompletedThisWeek < 1 {
		return errors.New("completed exercise missing from stats")
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client := e2etest.NewClient(url)
	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err := TestPlanLifecycle(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing plan lifecycle", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
