package planner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	topListLimit   = 5
	activityWindow = 7 * 24 * time.Hour
	oneDay         = 24 * time.Hour
)

// Stats summarises the user's plans and completion history.
func (s *Service) Stats(ctx context.Context, userID int) (Stats, error) {
	var (
		stats Stats
		dates []time.Time
	)
	repo := s.repos.reader()
	now := s.now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return repo.plans.Overview(gctx, userID, &stats)
	})
	g.Go(func() error {
		var err error
		stats.CompletedThisWeek, err = repo.history.CountSince(gctx, userID, startOfWeek(now))
		return err
	})
	g.Go(func() error {
		var err error
		dates, err = repo.history.CompletionDates(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TopExercises, err = repo.history.TopExercises(gctx, userID, topListLimit)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TopBodyParts, err = repo.history.TopBodyParts(gctx, userID, topListLimit)
		return err
	})
	g.Go(func() error {
		var err error
		stats.RecentActivity, err = repo.history.DailyActivity(gctx, userID, now.Add(-activityWindow))
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("compute stats: %w", err)
	}

	stats.CurrentStreak, stats.LongestStreak = streaks(dates, now)
	return stats, nil
}

// streaks computes the current and longest runs of consecutive days in dates, which are distinct UTC days
// sorted newest first. The current streak only counts when the newest day is today or yesterday.
func streaks(dates []time.Time, now time.Time) (int, int) {
	if len(dates) == 0 {
		return 0, 0
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	current := 0
	if today.Sub(dates[0]) <= oneDay {
		current = 1
		for i := 1; i < len(dates) && dates[i-1].Sub(dates[i]) == oneDay; i++ {
			current++
		}
	}

	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i-1].Sub(dates[i]) == oneDay {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return current, max(longest, current)
}
