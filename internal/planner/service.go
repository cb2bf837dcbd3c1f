// Package planner generates weekly workout plans and regenerates parts of them while keeping completed work.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitorfail/fitorfail/internal/sqlite"
)

// Service is the entry point for plan generation, plan mutation, and the supporting catalog and user data.
type Service struct {
	repos        repositoryFactory
	logger       *slog.Logger
	rnd          RandSource
	now          func() time.Time
	recentWindow time.Duration
}

// Option customises a Service.
type Option func(*Service)

// WithRandSource replaces the variety jitter source.
func WithRandSource(rnd RandSource) Option {
	return func(s *Service) {
		s.rnd = rnd
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRecentWindow sets how long completed exercises are penalised when scoring.
func WithRecentWindow(window time.Duration) Option {
	return func(s *Service) {
		s.recentWindow = window
	}
}

// NewService creates a planner over db.
func NewService(db *sqlite.Database, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repos:        newRepositoryFactory(db, logger),
		logger:       logger,
		rnd:          globalRand{},
		now:          time.Now,
		recentWindow: defaultRecentWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) selector(repo *repository) exerciseSelector {
	return exerciseSelector{catalog: repo.exercises, rnd: s.rnd}
}

// GeneratePlan creates a draft plan for the upcoming week. A zero workoutDays uses the stored preference.
// Any existing draft of the user for the same week is replaced.
func (s *Service) GeneratePlan(ctx context.Context, userID int, workoutDays int) (WorkoutPlan, error) {
	uc, err := s.loadUserContext(ctx, userID)
	if err != nil {
		return WorkoutPlan{}, fmt.Errorf("load user context: %w", err)
	}
	if workoutDays == 0 {
		workoutDays = uc.WorkoutDays
	}
	specs, err := SplitTemplate(workoutDays)
	if err != nil {
		return WorkoutPlan{}, err
	}

	now := s.now()
	weekStart := upcomingMonday(now)
	var planID int
	if err = s.repos.update(ctx, func(repo *repository) error {
		if err = repo.plans.DeleteDraftsForWeek(ctx, userID, weekStart); err != nil {
			return err
		}
		if planID, err = repo.plans.Create(ctx, userID, weekStart, workoutDays, now); err != nil {
			return err
		}
		used := newExerciseIDSet()
		for _, spec := range specs {
			var sessionID int
			if sessionID, err = repo.plans.CreateSession(ctx, planID, spec); err != nil {
				return err
			}
			if _, err = s.fillSession(ctx, repo, sessionID, spec, spec.ExerciseCount, 0, uc, used); err != nil {
				return fmt.Errorf("fill day %d: %w", spec.DayNumber, err)
			}
		}
		return nil
	}); err != nil {
		return WorkoutPlan{}, fmt.Errorf("generate plan: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "generated plan",
		slog.Int("plan_id", planID),
		slog.String("week_start", weekStart.Format(dateFormat)),
		slog.Int("days", workoutDays))
	return s.GetPlan(ctx, planID, userID)
}

// fillSession selects count exercises for spec and appends them to the session after afterOrder.
func (s *Service) fillSession(
	ctx context.Context,
	repo *repository,
	sessionID int,
	spec DaySpec,
	count int,
	afterOrder int,
	uc UserContext,
	used exerciseIDSet,
) (int, error) {
	picked, err := s.selector(repo).pick(ctx, spec.BodyParts, count, uc, used)
	if err != nil {
		return 0, err
	}
	if len(picked) < count {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "selected fewer exercises than requested",
			slog.Int("day_number", spec.DayNumber),
			slog.Int("requested", count),
			slog.Int("selected", len(picked)))
	}
	for i, e := range picked {
		sets, reps := prescribe(e)
		if err = repo.plans.InsertSessionExercise(ctx, sessionID, e.ID, afterOrder+i+1, sets, reps); err != nil {
			return 0, err
		}
	}
	return len(picked), nil
}

// GetPlan returns the plan with all its days and exercises.
func (s *Service) GetPlan(ctx context.Context, planID, userID int) (WorkoutPlan, error) {
	repo := s.repos.reader()
	plan, err := repo.plans.Get(ctx, planID, userID)
	if err != nil {
		return WorkoutPlan{}, fmt.Errorf("get plan %d: %w", planID, err)
	}
	if plan.Days, err = repo.plans.Days(ctx, planID); err != nil {
		return WorkoutPlan{}, fmt.Errorf("get days of plan %d: %w", planID, err)
	}
	return plan, nil
}

// GetCurrentPlan returns the user's active plan with the latest week start.
func (s *Service) GetCurrentPlan(ctx context.Context, userID int) (WorkoutPlan, error) {
	plan, err := s.repos.reader().plans.Current(ctx, userID)
	if err != nil {
		return WorkoutPlan{}, fmt.Errorf("get current plan: %w", err)
	}
	return s.GetPlan(ctx, plan.ID, userID)
}

// ActivePlanInfo returns progress counts of the active plan, or ErrNotFound when there is none.
func (s *Service) ActivePlanInfo(ctx context.Context, userID int) (ActivePlanInfo, error) {
	info, err := s.repos.reader().plans.ActiveInfo(ctx, userID)
	if err != nil {
		return ActivePlanInfo{}, fmt.Errorf("get active plan info: %w", err)
	}
	return info, nil
}

// GetSession returns a single day by session id.
func (s *Service) GetSession(ctx context.Context, sessionID, userID int) (Day, error) {
	day, err := s.repos.reader().plans.Session(ctx, sessionID, userID)
	if err != nil {
		return Day{}, fmt.Errorf("get session %d: %w", sessionID, err)
	}
	return day, nil
}

// ListPlans returns one page of plan summaries and the total number of plans.
func (s *Service) ListPlans(ctx context.Context, userID int, opts PlanListOptions) ([]PlanSummary, int, error) {
	plans, total, err := s.repos.reader().plans.List(ctx, userID, opts.Normalized())
	if err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}
	return plans, total, nil
}

// ActivatePlan makes a draft plan the user's active plan. With cancelExisting any other active plan is
// cancelled first, otherwise another active plan yields ErrIllegalTransition. Activating a plan that is not a
// draft changes nothing.
func (s *Service) ActivatePlan(ctx context.Context, planID, userID int, cancelExisting bool) error {
	var activated bool
	err := s.repos.update(ctx, func(repo *repository) error {
		plan, err := repo.plans.Get(ctx, planID, userID)
		if err != nil {
			return err
		}
		if !plan.Status.CanTransitionTo(PlanActive) {
			return nil
		}
		others, err := repo.plans.ActiveIDs(ctx, userID, planID)
		if err != nil {
			return err
		}
		if len(others) > 0 && !cancelExisting {
			return ErrIllegalTransition
		}
		for _, id := range others {
			if err = repo.plans.SetStatus(ctx, id, PlanCancelled); err != nil {
				return fmt.Errorf("cancel plan %d: %w", id, err)
			}
		}
		if err = repo.plans.SetStatus(ctx, planID, PlanActive); err != nil {
			return err
		}
		activated = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("activate plan %d: %w", planID, err)
	}
	if activated {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "activated plan", slog.Int("plan_id", planID))
	}
	return nil
}

// SetPlanStatus moves a plan along the status transition table.
func (s *Service) SetPlanStatus(ctx context.Context, planID, userID int, status PlanStatus) error {
	if !status.Valid() {
		return fmt.Errorf("set plan %d status %q: %w", planID, status, ErrInvalidStatus)
	}
	if status == PlanActive {
		return s.ActivatePlan(ctx, planID, userID, true)
	}
	if err := s.repos.update(ctx, func(repo *repository) error {
		plan, err := repo.plans.Get(ctx, planID, userID)
		if err != nil {
			return err
		}
		if !plan.Status.CanTransitionTo(status) {
			return ErrIllegalTransition
		}
		return repo.plans.SetStatus(ctx, planID, status)
	}); err != nil {
		return fmt.Errorf("set plan %d status %s: %w", planID, status, err)
	}
	return nil
}

// editablePlan loads a plan the user owns and may still regenerate.
func editablePlan(ctx context.Context, repo *repository, planID, userID int) (WorkoutPlan, error) {
	plan, err := repo.plans.Get(ctx, planID, userID)
	if err != nil {
		return WorkoutPlan{}, err
	}
	if !plan.Status.Editable() {
		return WorkoutPlan{}, ErrPlanClosed
	}
	return plan, nil
}

// RefreshDay replaces every exercise of one day with a fresh selection that avoids the other days' exercises.
func (s *Service) RefreshDay(ctx context.Context, planID, dayNumber, userID int) (Day, error) {
	uc, err := s.loadUserContext(ctx, userID)
	if err != nil {
		return Day{}, fmt.Errorf("load user context: %w", err)
	}
	if err = s.repos.update(ctx, func(repo *repository) error {
		plan, err := editablePlan(ctx, repo, planID, userID)
		if err != nil {
			return err
		}
		return s.refreshDay(ctx, repo, plan, dayNumber, uc)
	}); err != nil {
		return Day{}, fmt.Errorf("refresh day %d of plan %d: %w", dayNumber, planID, err)
	}
	return s.day(ctx, planID, dayNumber)
}

func (s *Service) refreshDay(ctx context.Context, repo *repository, plan WorkoutPlan, dayNumber int, uc UserContext) error {
	spec, err := daySpec(plan.WorkoutDays, dayNumber)
	if err != nil {
		return err
	}
	day, err := repo.plans.Day(ctx, plan.ID, dayNumber)
	if err != nil {
		return err
	}
	if _, err = repo.plans.DeleteSessionExercises(ctx, day.SessionID, false); err != nil {
		return err
	}
	ids, err := repo.plans.ExerciseIDs(ctx, plan.ID)
	if err != nil {
		return err
	}
	selected, err := s.fillSession(ctx, repo, day.SessionID, spec, spec.ExerciseCount, 0, uc, newExerciseIDSet(ids...))
	if err != nil {
		return err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "refreshed day",
		slog.Int("plan_id", plan.ID),
		slog.Int("day_number", dayNumber),
		slog.Int("replaced", selected))
	return nil
}

// RefreshUncompletedExercises replaces only the uncompleted exercises of a day. Completed entries keep their
// order index, and replacements are appended after the highest remaining one.
func (s *Service) RefreshUncompletedExercises(ctx context.Context, planID, dayNumber, userID int) (Day, error) {
	uc, err := s.loadUserContext(ctx, userID)
	if err != nil {
		return Day{}, fmt.Errorf("load user context: %w", err)
	}
	if err = s.repos.update(ctx, func(repo *repository) error {
		plan, err := editablePlan(ctx, repo, planID, userID)
		if err != nil {
			return err
		}
		_, err = s.refreshUncompleted(ctx, repo, plan, dayNumber, uc)
		return err
	}); err != nil {
		return Day{}, fmt.Errorf("refresh uncompleted exercises of day %d in plan %d: %w", dayNumber, planID, err)
	}
	return s.day(ctx, planID, dayNumber)
}

// refreshUncompleted reports whether the day had uncompleted exercises to replace.
func (s *Service) refreshUncompleted(
	ctx context.Context,
	repo *repository,
	plan WorkoutPlan,
	dayNumber int,
	uc UserContext,
) (bool, error) {
	spec, err := daySpec(plan.WorkoutDays, dayNumber)
	if err != nil {
		return false, err
	}
	day, err := repo.plans.Day(ctx, plan.ID, dayNumber)
	if err != nil {
		return false, err
	}
	maxOrder := 0
	uncompleted := 0
	for _, se := range day.Exercises {
		if se.Completed {
			maxOrder = max(maxOrder, se.OrderIndex)
		} else {
			uncompleted++
		}
	}
	if uncompleted == 0 {
		return false, nil
	}

	if _, err = repo.plans.DeleteSessionExercises(ctx, day.SessionID, true); err != nil {
		return false, err
	}
	ids, err := repo.plans.ExerciseIDs(ctx, plan.ID)
	if err != nil {
		return false, err
	}
	selected, err := s.fillSession(ctx, repo, day.SessionID, spec, uncompleted, maxOrder, uc, newExerciseIDSet(ids...))
	if err != nil {
		return false, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "refreshed uncompleted exercises",
		slog.Int("plan_id", plan.ID),
		slog.Int("day_number", dayNumber),
		slog.Int("replaced", selected))
	return true, nil
}

// RefreshIncompleteDays refreshes the uncompleted exercises of every day that has any and returns the touched
// day numbers in ascending order.
func (s *Service) RefreshIncompleteDays(ctx context.Context, planID, userID int) ([]int, error) {
	uc, err := s.loadUserContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user context: %w", err)
	}
	refreshed := []int{}
	if err = s.repos.update(ctx, func(repo *repository) error {
		plan, err := editablePlan(ctx, repo, planID, userID)
		if err != nil {
			return err
		}
		days, err := repo.plans.Days(ctx, planID)
		if err != nil {
			return err
		}
		for _, day := range days {
			var touched bool
			if touched, err = s.refreshUncompleted(ctx, repo, plan, day.DayNumber, uc); err != nil {
				return fmt.Errorf("day %d: %w", day.DayNumber, err)
			}
			if touched {
				refreshed = append(refreshed, day.DayNumber)
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("refresh incomplete days of plan %d: %w", planID, err)
	}
	return refreshed, nil
}

// RefreshPlan regenerates every day of the plan in one transaction.
func (s *Service) RefreshPlan(ctx context.Context, planID, userID int) (WorkoutPlan, error) {
	uc, err := s.loadUserContext(ctx, userID)
	if err != nil {
		return WorkoutPlan{}, fmt.Errorf("load user context: %w", err)
	}
	if err = s.repos.update(ctx, func(repo *repository) error {
		plan, err := editablePlan(ctx, repo, planID, userID)
		if err != nil {
			return err
		}
		for dayNumber := 1; dayNumber <= plan.WorkoutDays; dayNumber++ {
			if err = s.refreshDay(ctx, repo, plan, dayNumber, uc); err != nil {
				return fmt.Errorf("day %d: %w", dayNumber, err)
			}
		}
		return nil
	}); err != nil {
		return WorkoutPlan{}, fmt.Errorf("refresh plan %d: %w", planID, err)
	}
	return s.GetPlan(ctx, planID, userID)
}

// ReplaceExercise swaps one session exercise for the best scoring exercise of the same body part that is not
// used anywhere in the plan. The replacement starts uncompleted; history already logged for the slot is kept.
func (s *Service) ReplaceExercise(ctx context.Context, sessionExerciseID, userID int) (SessionExercise, error) {
	uc, err := s.loadUserContext(ctx, userID)
	if err != nil {
		return SessionExercise{}, fmt.Errorf("load user context: %w", err)
	}
	if err = s.repos.update(ctx, func(repo *repository) error {
		owned, err := repo.plans.SessionExercise(ctx, sessionExerciseID, userID)
		if err != nil {
			return err
		}
		if !owned.PlanStatus.Editable() {
			return ErrPlanClosed
		}
		ids, err := repo.plans.ExerciseIDs(ctx, owned.PlanID)
		if err != nil {
			return err
		}
		candidates, err := repo.exercises.ListByBodyPart(ctx, owned.Exercise.BodyPart)
		if err != nil {
			return err
		}
		replacement, ok := bestReplacement(candidates, uc, newExerciseIDSet(ids...), s.rnd)
		if !ok {
			return ErrNoReplacement
		}
		return repo.plans.SwapExercise(ctx, sessionExerciseID, replacement.ID)
	}); err != nil {
		return SessionExercise{}, fmt.Errorf("replace session exercise %d: %w", sessionExerciseID, err)
	}
	return s.sessionExercise(ctx, sessionExerciseID, userID)
}

// CompleteExercise marks a session exercise completed and logs it to the history. Completing an already
// completed exercise logs it again.
func (s *Service) CompleteExercise(
	ctx context.Context,
	sessionExerciseID, userID int,
	setsCompleted *int,
) (SessionExercise, error) {
	now := s.now()
	if err := s.repos.update(ctx, func(repo *repository) error {
		owned, err := repo.plans.SessionExercise(ctx, sessionExerciseID, userID)
		if err != nil {
			return err
		}
		if err = repo.plans.SetCompletion(ctx, sessionExerciseID, now); err != nil {
			return err
		}
		return repo.history.Append(ctx, userID, owned.Exercise.ID, sessionExerciseID, setsCompleted, now)
	}); err != nil {
		return SessionExercise{}, fmt.Errorf("complete session exercise %d: %w", sessionExerciseID, err)
	}
	return s.sessionExercise(ctx, sessionExerciseID, userID)
}

// UncompleteExercise clears the completion of a session exercise and removes its history rows.
func (s *Service) UncompleteExercise(ctx context.Context, sessionExerciseID, userID int) (SessionExercise, error) {
	if err := s.repos.update(ctx, func(repo *repository) error {
		owned, err := repo.plans.SessionExercise(ctx, sessionExerciseID, userID)
		if err != nil {
			return err
		}
		if err = repo.plans.SetCompletion(ctx, sessionExerciseID, time.Time{}); err != nil {
			return err
		}
		return repo.history.DeleteForSessionExercise(ctx, userID, sessionExerciseID, owned.Exercise.ID)
	}); err != nil {
		return SessionExercise{}, fmt.Errorf("uncomplete session exercise %d: %w", sessionExerciseID, err)
	}
	return s.sessionExercise(ctx, sessionExerciseID, userID)
}

func (s *Service) day(ctx context.Context, planID, dayNumber int) (Day, error) {
	day, err := s.repos.reader().plans.Day(ctx, planID, dayNumber)
	if err != nil {
		return Day{}, fmt.Errorf("get day %d of plan %d: %w", dayNumber, planID, err)
	}
	return day, nil
}

func (s *Service) sessionExercise(ctx context.Context, sessionExerciseID, userID int) (SessionExercise, error) {
	owned, err := s.repos.reader().plans.SessionExercise(ctx, sessionExerciseID, userID)
	if err != nil {
		return SessionExercise{}, fmt.Errorf("get session exercise %d: %w", sessionExerciseID, err)
	}
	return owned.SessionExercise, nil
}

// PurgeDuplicateDrafts deletes every draft that is not the newest draft for its user and week.
func (s *Service) PurgeDuplicateDrafts(ctx context.Context) (int64, error) {
	var deleted int64
	if err := s.repos.update(ctx, func(repo *repository) error {
		var err error
		deleted, err = repo.plans.DeleteDuplicateDrafts(ctx)
		return err
	}); err != nil {
		return 0, fmt.Errorf("purge duplicate drafts: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "purged duplicate drafts", slog.Int64("deleted", deleted))
	return deleted, nil
}

// IsValidation reports whether err was caused by invalid caller input.
func IsValidation(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidDayCount, ErrInvalidRating, ErrInvalidSkillLevel, ErrInvalidUsername, ErrInvalidStatus,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err was caused by the current state of the data rather than the input.
func IsConflict(err error) bool {
	for _, sentinel := range []error{ErrNoReplacement, ErrUsernameTaken, ErrIllegalTransition, ErrPlanClosed} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
