package planner

import (
	"context"
	"fmt"
	"slices"
	"unicode/utf8"
)

const maxUsernameLength = 64

// CreateUser registers a user. An empty level defaults to Beginner.
func (s *Service) CreateUser(ctx context.Context, username string, level SkillLevel) (User, error) {
	if n := utf8.RuneCountInString(username); n == 0 || n > maxUsernameLength {
		return User{}, ErrInvalidUsername
	}
	if level == "" {
		level = SkillBeginner
	}
	if !level.Valid() {
		return User{}, ErrInvalidSkillLevel
	}
	var id int
	if err := s.repos.update(ctx, func(repo *repository) error {
		var err error
		id, err = repo.users.Create(ctx, username, level)
		return err
	}); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *Service) GetUser(ctx context.Context, userID int) (User, error) {
	user, err := s.repos.reader().users.Get(ctx, userID)
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	return user, nil
}

// GetPreferences returns the user's preferences, storing the defaults on first access.
func (s *Service) GetPreferences(ctx context.Context, userID int) (Preferences, error) {
	var prefs Preferences
	if err := s.repos.update(ctx, func(repo *repository) error {
		if _, err := repo.users.Get(ctx, userID); err != nil {
			return err
		}
		if err := repo.prefs.EnsureDefaults(ctx, userID); err != nil {
			return err
		}
		var err error
		prefs, err = repo.prefs.Get(ctx, userID)
		return err
	}); err != nil {
		return Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return prefs, nil
}

// UpdatePreferences applies a partial update and returns the resulting user and preferences.
func (s *Service) UpdatePreferences(
	ctx context.Context,
	userID int,
	update PreferencesUpdate,
) (User, Preferences, error) {
	if update.WorkoutDays != nil {
		if _, err := SplitTemplate(*update.WorkoutDays); err != nil {
			return User{}, Preferences{}, err
		}
	}
	if update.SkillLevel != nil && !update.SkillLevel.Valid() {
		return User{}, Preferences{}, ErrInvalidSkillLevel
	}

	var (
		user  User
		prefs Preferences
	)
	if err := s.repos.update(ctx, func(repo *repository) error {
		var err error
		if user, err = repo.users.Get(ctx, userID); err != nil {
			return err
		}
		if prefs, err = repo.prefs.Get(ctx, userID); err != nil {
			return err
		}
		now := s.now()
		if update.WorkoutDays != nil {
			prefs.WorkoutDays = *update.WorkoutDays
		}
		if update.PreferredEquipment != nil {
			prefs.PreferredEquipment = compactList(*update.PreferredEquipment)
		}
		if update.AvoidedBodyParts != nil {
			prefs.AvoidedBodyParts = compactList(*update.AvoidedBodyParts)
		}
		prefs.UpdatedAt = now
		if err = repo.prefs.Set(ctx, userID, prefs); err != nil {
			return err
		}
		if update.SkillLevel != nil {
			if err = repo.users.SetSkillLevel(ctx, userID, *update.SkillLevel, formatTimestamp(now)); err != nil {
				return err
			}
			user.SkillLevel = *update.SkillLevel
		}
		return nil
	}); err != nil {
		return User{}, Preferences{}, fmt.Errorf("update preferences: %w", err)
	}
	return user, prefs, nil
}

// compactList drops blank and duplicate entries. Commas are not allowed inside entries.
func compactList(items []string) []string {
	var out []string
	for _, item := range splitList(joinList(items)) {
		if !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}

// PreferenceOptions lists the equipment and body parts present in the catalog along with the supported
// workout day counts and skill levels.
func (s *Service) PreferenceOptions(ctx context.Context) (PreferenceOptions, error) {
	repo := s.repos.reader()
	equipment, err := repo.exercises.Distinct(ctx, "equipment")
	if err != nil {
		return PreferenceOptions{}, fmt.Errorf("list equipment: %w", err)
	}
	bodyParts, err := repo.exercises.Distinct(ctx, "body_part")
	if err != nil {
		return PreferenceOptions{}, fmt.Errorf("list body parts: %w", err)
	}
	return PreferenceOptions{
		Equipment:   equipment,
		BodyParts:   bodyParts,
		WorkoutDays: workoutDayOptions(),
		SkillLevels: []SkillLevel{SkillBeginner, SkillIntermediate, SkillExpert},
	}, nil
}

// RateExercise stores the user's personal rating of an exercise.
func (s *Service) RateExercise(ctx context.Context, userID, exerciseID, rating int, notes string) (Rating, error) {
	if rating < 0 || rating > 5 {
		return Rating{}, ErrInvalidRating
	}
	r := Rating{ExerciseID: exerciseID, Rating: rating, Notes: notes, UpdatedAt: s.now()}
	if err := s.repos.update(ctx, func(repo *repository) error {
		if _, err := repo.exercises.Get(ctx, exerciseID); err != nil {
			return err
		}
		return repo.ratings.Set(ctx, userID, r)
	}); err != nil {
		return Rating{}, fmt.Errorf("rate exercise %d: %w", exerciseID, err)
	}
	return s.GetRating(ctx, userID, exerciseID)
}

func (s *Service) GetRating(ctx context.Context, userID, exerciseID int) (Rating, error) {
	r, err := s.repos.reader().ratings.Get(ctx, userID, exerciseID)
	if err != nil {
		return Rating{}, fmt.Errorf("get rating of exercise %d: %w", exerciseID, err)
	}
	return r, nil
}

func (s *Service) DeleteRating(ctx context.Context, userID, exerciseID int) error {
	if err := s.repos.update(ctx, func(repo *repository) error {
		return repo.ratings.Delete(ctx, userID, exerciseID)
	}); err != nil {
		return fmt.Errorf("delete rating of exercise %d: %w", exerciseID, err)
	}
	return nil
}
