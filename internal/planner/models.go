package planner

import (
	"time"

	"github.com/fitorfail/fitorfail/internal/errors"
)

var (
	// ErrNotFound is returned when a record is missing or owned by another user.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrInvalidDayCount is returned when a workout day count is not 3, 4, or 5.
	ErrInvalidDayCount = errors.NewSentinel("workout days must be 3, 4, or 5")
	// ErrNoReplacement is returned when no other exercise can stand in for a session exercise.
	ErrNoReplacement = errors.NewSentinel("no alternative exercises available")
	// ErrInvalidRating is returned for personal ratings outside 0..5.
	ErrInvalidRating = errors.NewSentinel("rating must be between 0 and 5")
	// ErrInvalidSkillLevel is returned for unknown skill levels.
	ErrInvalidSkillLevel = errors.NewSentinel("skill level must be Beginner, Intermediate, or Expert")
	// ErrInvalidUsername is returned for empty or overly long usernames.
	ErrInvalidUsername = errors.NewSentinel("username must be between 1 and 64 characters")
	// ErrUsernameTaken is returned when creating a user with an existing username.
	ErrUsernameTaken = errors.NewSentinel("username is already taken")
	// ErrIllegalTransition is returned when a plan cannot move to the requested status.
	ErrIllegalTransition = errors.NewSentinel("illegal plan status transition")
	// ErrPlanClosed is returned when regenerating exercises of a completed or cancelled plan.
	ErrPlanClosed = errors.NewSentinel("plan is no longer editable")
	// ErrInvalidStatus is returned for a plan status outside draft, active, completed, and cancelled.
	ErrInvalidStatus = errors.NewSentinel("status must be draft, active, completed, or cancelled")
)

// Category is the exercise type recorded in the catalog.
type Category string

const (
	CategoryStrength             Category = "Strength"
	CategoryPowerlifting         Category = "Powerlifting"
	CategoryOlympicWeightlifting Category = "Olympic Weightlifting"
	CategoryPlyometrics          Category = "Plyometrics"
	CategoryStretching           Category = "Stretching"
	CategoryCardio               Category = "Cardio"
)

// selectableCategories are the categories the selector draws plan exercises from.
//
//nolint:gochecknoglobals // read-only lookup table.
var selectableCategories = []Category{
	CategoryStrength,
	CategoryPowerlifting,
	CategoryOlympicWeightlifting,
	CategoryPlyometrics,
}

// SkillLevel is both a user's training experience and an exercise's difficulty.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "Beginner"
	SkillIntermediate SkillLevel = "Intermediate"
	SkillExpert       SkillLevel = "Expert"
)

// rank orders the levels. Unknown levels rank 0.
func (l SkillLevel) rank() int {
	switch l {
	case SkillBeginner:
		return 1
	case SkillIntermediate:
		return 2 //nolint:mnd // second step.
	case SkillExpert:
		return 3 //nolint:mnd // third step.
	default:
		return 0
	}
}

// Valid reports whether l is one of the known levels.
func (l SkillLevel) Valid() bool {
	return l.rank() > 0
}

// PlanStatus is the lifecycle state of a workout plan.
type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanCancelled PlanStatus = "cancelled"
)

//nolint:gochecknoglobals // read-only transition table.
var planTransitions = map[PlanStatus][]PlanStatus{
	PlanDraft:  {PlanActive},
	PlanActive: {PlanCompleted, PlanCancelled},
}

// Valid reports whether s is a known plan status.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanDraft, PlanActive, PlanCompleted, PlanCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a plan in status s may move to next.
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	for _, allowed := range planTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Editable reports whether the exercises of a plan in status s may still be regenerated.
func (s PlanStatus) Editable() bool {
	return s == PlanDraft || s == PlanActive
}

// Exercise is a catalog entry. Missing text columns are read as empty strings.
type Exercise struct {
	ID                int
	Title             string
	Description       string
	Category          Category
	BodyPart          string
	Equipment         string
	Level             SkillLevel
	Rating            *float64
	RatingDescription string
}

// User is the owner of plans, preferences, and ratings.
type User struct {
	ID         int
	Username   string
	SkillLevel SkillLevel
	CreatedAt  time.Time
}

// Preferences steer plan generation.
type Preferences struct {
	WorkoutDays        int
	PreferredEquipment []string
	AvoidedBodyParts   []string
	UpdatedAt          time.Time
}

// PreferencesUpdate is a partial update. Nil fields are left unchanged.
type PreferencesUpdate struct {
	WorkoutDays        *int
	PreferredEquipment *[]string
	AvoidedBodyParts   *[]string
	SkillLevel         *SkillLevel
}

// Rating is a user's personal opinion of an exercise.
type Rating struct {
	ExerciseID int
	Rating     int
	Notes      string
	UpdatedAt  time.Time
}

// WorkoutPlan is one week of training sessions.
type WorkoutPlan struct {
	ID            int
	UserID        int
	WeekStartDate time.Time
	WorkoutDays   int
	Status        PlanStatus
	CreatedAt     time.Time
	Days          []Day
}

// Day is a workout session within a plan.
type Day struct {
	SessionID      int
	PlanID         int
	DayNumber      int
	DayName        string
	FocusBodyParts []string
	Exercises      []SessionExercise
}

// SessionExercise is a prescribed exercise within a day. A zero CompletedAt means not completed.
type SessionExercise struct {
	ID          int
	SessionID   int
	Exercise    Exercise
	OrderIndex  int
	Sets        int
	Reps        string
	Completed   bool
	CompletedAt time.Time
}

// ActivePlanInfo summarises the active plan for a confirmation prompt.
type ActivePlanInfo struct {
	PlanID             int
	WeekStartDate      time.Time
	CompletedExercises int
	TotalExercises     int
}

// PlanSummary is a plan with its progress counts.
type PlanSummary struct {
	ID                 int
	WeekStartDate      time.Time
	WorkoutDays        int
	Status             PlanStatus
	CreatedAt          time.Time
	TotalExercises     int
	CompletedExercises int
	CompletionPercent  int
}

// PlanListOptions paginates plan history.
type PlanListOptions struct {
	Limit            int
	Offset           int
	IncludeCancelled bool
}

// ExerciseFilter narrows the catalog listing. Empty fields match everything.
type ExerciseFilter struct {
	BodyPart  string
	Equipment string
	Level     SkillLevel
	Category  Category
	Limit     int
	Offset    int
}

// FilterOptions lists the distinct catalog values usable in an ExerciseFilter.
type FilterOptions struct {
	BodyParts  []string
	Equipment  []string
	Levels     []SkillLevel
	Categories []Category
}

// PreferenceOptions lists the catalog values a user can prefer or avoid.
type PreferenceOptions struct {
	Equipment   []string
	BodyParts   []string
	WorkoutDays []int
	SkillLevels []SkillLevel
}

// Stats summarises a user's training.
type Stats struct {
	TotalPlans         int
	ActivePlans        int
	CompletedPlans     int
	TotalExercises     int
	CompletedExercises int
	CompletedThisWeek  int
	CurrentStreak      int
	LongestStreak      int
	TopExercises       []ExerciseCount
	TopBodyParts       []BodyPartCount
	RecentActivity     []DailyActivity
}

// ExerciseCount is how often an exercise was completed.
type ExerciseCount struct {
	ExerciseID int
	Title      string
	Count      int
}

// BodyPartCount is how often a body part was trained.
type BodyPartCount struct {
	BodyPart string
	Count    int
}

// DailyActivity is the number of completed exercises on one day.
type DailyActivity struct {
	Date  time.Time
	Count int
}
