package planner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// exerciseIDSet accumulates exercise ids that are already taken within one plan-wide operation.
type exerciseIDSet map[int]struct{}

func newExerciseIDSet(ids ...int) exerciseIDSet {
	set := make(exerciseIDSet, len(ids))
	for _, id := range ids {
		set.add(id)
	}
	return set
}

func (s exerciseIDSet) add(id int) {
	s[id] = struct{}{}
}

func (s exerciseIDSet) contains(id int) bool {
	_, ok := s[id]
	return ok
}

// UserContext is everything the scorer knows about a user. It is rebuilt for every operation.
type UserContext struct {
	UserID             int
	SkillLevel         SkillLevel
	WorkoutDays        int
	PreferredEquipment []string
	AvoidedBodyParts   []string
	RecentExerciseIDs  exerciseIDSet
	PersonalRatings    map[int]int
}

// loadUserContext runs the four context queries concurrently against the read-only handle.
func (s *Service) loadUserContext(ctx context.Context, userID int) (UserContext, error) {
	var (
		user    User
		prefs   Preferences
		recent  []int
		ratings map[int]int
	)
	repo := s.repos.reader()
	since := s.now().Add(-s.recentWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if user, err = repo.users.Get(gctx, userID); err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if prefs, err = repo.prefs.Get(gctx, userID); err != nil {
			return fmt.Errorf("get preferences: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if recent, err = repo.history.RecentExerciseIDs(gctx, userID, since); err != nil {
			return fmt.Errorf("get recent exercises: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if ratings, err = repo.ratings.Map(gctx, userID); err != nil {
			return fmt.Errorf("get personal ratings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return UserContext{}, err
	}

	return UserContext{
		UserID:             user.ID,
		SkillLevel:         user.SkillLevel,
		WorkoutDays:        prefs.WorkoutDays,
		PreferredEquipment: prefs.PreferredEquipment,
		AvoidedBodyParts:   prefs.AvoidedBodyParts,
		RecentExerciseIDs:  newExerciseIDSet(recent...),
		PersonalRatings:    ratings,
	}, nil
}

// defaultRecentWindow is how far back completed exercises are penalised.
const defaultRecentWindow = 7 * 24 * time.Hour
