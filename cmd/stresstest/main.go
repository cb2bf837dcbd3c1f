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
	"sync"
	"sync/atomic"
	"time"

	"github.com/fitorfail/fitorfail/internal/e2etest"
	"github.com/fitorfail/fitorfail/internal/logging"
	"github.com/fitorfail/fitorfail/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	userSetupTimeout        = 30 * time.Second
	scenarioTimeout         = 30 * time.Second
	maxConcurrentSetups     = 10
	maxConcurrentOperations = 20
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
	numUsers                = 25
	planDayCounts           = 3
)

// TestUser is a client acting as one freshly created user.
type TestUser struct {
	Client *e2etest.Client
	UserID int
}

type sessionExercise struct {
	ID        int  `json:"id"`
	Completed bool `json:"completed"`
}

type plan struct {
	ID   int `json:"id"`
	Days []struct {
		DayNumber int               `json:"dayNumber"`
		Exercises []sessionExercise `json:"exercises"`
	} `json:"days"`
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

// CreateUser creates a user with a random name and stores a workout day preference derived from the index.
func CreateUser(ctx context.Context, anonymous *e2etest.Client, userIndex int) (*TestUser, error) {
	var created struct {
		ID int `json:"id"`
	}
	body := map[string]string{"username": fmt.Sprintf("stress-%d-%s", userIndex, rand.Text())}
	if err := call(ctx, anonymous, http.MethodPost, "/api/users", body, &created, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("create user %d: %w", userIndex, err)
	}
	client := anonymous.AsUser(created.ID)
	days := 3 + userIndex%planDayCounts
	if err := call(ctx, client, http.MethodPut, "/api/preferences", map[string]int{"workoutDays": days}, nil,
		http.StatusOK); err != nil {
		return nil, fmt.Errorf("set preferences of user %d: %w", userIndex, err)
	}
	return &TestUser{Client: client, UserID: created.ID}, nil
}

// SetupUsers creates the specified number of users concurrently.
func SetupUsers(ctx context.Context, anonymous *e2etest.Client, count int, logger *slog.Logger) ([]*TestUser, error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting user setup", slog.Int("num_users", count))

	var (
		users   = make([]*TestUser, 0, count)
		usersMu sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSetups)
	for i := range count {
		g.Go(func() error {
			userCtx, cancel := context.WithTimeout(gctx, userSetupTimeout)
			defer cancel()
			user, err := CreateUser(userCtx, anonymous, i)
			if err != nil {
				return err
			}
			usersMu.Lock()
			users = append(users, user)
			usersMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return users, fmt.Errorf("user setup: %w", err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "All users created", slog.Int("total_users", len(users)))
	return users, nil
}

// PlanScenario exercises the write paths of the planner: generation, activation, completion, and refreshes.
func PlanScenario(ctx context.Context, user *TestUser, logger *slog.Logger) error {
	client := user.Client

	var p plan
	if err := call(ctx, client, http.MethodPost, "/api/workouts/generate", nil, &p, http.StatusCreated); err != nil {
		return err
	}
	if len(p.Days) == 0 || len(p.Days[0].Exercises) == 0 {
		return errors.New("generated plan has no exercises")
	}
	planPath := fmt.Sprintf("/api/workouts/%d", p.ID)
	if err := call(ctx, client, http.MethodPut, planPath+"/activate", nil, nil, http.StatusOK); err != nil {
		return err
	}

	first := p.Days[0].Exercises[0]
	if err := call(ctx, client, http.MethodPut, fmt.Sprintf("/api/workouts/exercises/%d/complete", first.ID),
		nil, nil, http.StatusOK); err != nil {
		return err
	}
	if err := call(ctx, client, http.MethodPost, planPath+"/refresh-incomplete", nil, nil,
		http.StatusOK); err != nil {
		return err
	}
	if err := call(ctx, client, http.MethodGet, "/api/stats", nil, nil, http.StatusOK); err != nil {
		return err
	}
	if err := call(ctx, client, http.MethodGet, "/api/workouts/history", nil, nil, http.StatusOK); err != nil {
		return err
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Plan scenario completed",
		slog.Int("user_id", user.UserID),
		slog.Int("plan_id", p.ID))
	return nil
}

// RunLoadTest runs the plan scenario for every user concurrently.
func RunLoadTest(ctx context.Context, users []*TestUser, logger *slog.Logger) error {
	userCount := len(users)
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", userCount))

	var successCount, failureCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for _, user := range users {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := PlanScenario(scenarioCtx, user, logger); err != nil {
				failureCount.Add(1)
				// Individual failures count against the success rate but do not stop the other scenarios.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("user_id", user.UserID),
					slog.Any("error", err))
				return nil
			}

			successCount.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(userCount) * percentageMultiplier

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}

	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
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

	setupStart := time.Now()
	users, err := SetupUsers(ctx, client, numUsers, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to setup users", slog.Any("error", err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "User setup completed",
		slog.Duration("setup_duration", time.Since(setupStart)),
		slog.Int("users", len(users)))

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("users_tested", len(users)))
}
