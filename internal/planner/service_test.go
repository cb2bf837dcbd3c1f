package planner_test

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fitorfail/fitorfail/internal/planner"
	"github.com/fitorfail/fitorfail/internal/sqlite"
	"github.com/fitorfail/fitorfail/internal/testhelpers"
	"github.com/google/go-cmp/cmp"
)

type fixedRand float64

func (f fixedRand) Float64() float64 {
	return float64(f)
}

// Wednesday, so plans start on Monday 2026-10-19.
var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*planner.Service, *sqlite.Database) {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	svc := planner.NewService(db, logger,
		planner.WithClock(func() time.Time { return testNow }),
		planner.WithRandSource(fixedRand(0)))
	return svc, db
}

func createUser(t *testing.T, svc *planner.Service, name string, level planner.SkillLevel) planner.User {
	t.Helper()
	user, err := svc.CreateUser(t.Context(), name, level)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func planExerciseIDs(plan planner.WorkoutPlan) []int {
	var ids []int
	for _, day := range plan.Days {
		for _, se := range day.Exercises {
			ids = append(ids, se.Exercise.ID)
		}
	}
	return ids
}

func assertUnique(t *testing.T, ids []int) {
	t.Helper()
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Errorf("exercise %d appears more than once in the plan", id)
		}
		seen[id] = true
	}
}

func TestService_GeneratePlan(t *testing.T) {
	t.Parallel()
	for _, days := range []int{3, 4, 5} {
		t.Run(strconv.Itoa(days)+" days", func(t *testing.T) {
			t.Parallel()
			svc, _ := newTestService(t)
			user := createUser(t, svc, "ada", planner.SkillIntermediate)

			plan, err := svc.GeneratePlan(t.Context(), user.ID, days)
			if err != nil {
				t.Fatalf("GeneratePlan: %v", err)
			}
			if plan.Status != planner.PlanDraft {
				t.Errorf("status = %s, want draft", plan.Status)
			}
			if got := plan.WeekStartDate.Format(time.DateOnly); got != "2026-10-19" {
				t.Errorf("week start = %s, want 2026-10-19", got)
			}
			specs, err := planner.SplitTemplate(days)
			if err != nil {
				t.Fatal(err)
			}
			if len(plan.Days) != len(specs) {
				t.Fatalf("got %d days, want %d", len(plan.Days), len(specs))
			}
			for i, day := range plan.Days {
				if day.DayNumber != i+1 {
					t.Errorf("day %d has number %d", i+1, day.DayNumber)
				}
				if diff := cmp.Diff(specs[i].BodyParts, day.FocusBodyParts); diff != "" {
					t.Errorf("day %d focus (-want +got):\n%s", day.DayNumber, diff)
				}
				if len(day.Exercises) != specs[i].ExerciseCount {
					t.Errorf("day %d has %d exercises, want %d", day.DayNumber, len(day.Exercises), specs[i].ExerciseCount)
				}
				for j, se := range day.Exercises {
					if se.OrderIndex != j+1 || se.Completed || !se.CompletedAt.IsZero() {
						t.Errorf("day %d exercise %d: order %d completed %v", day.DayNumber, j, se.OrderIndex, se.Completed)
					}
				}
			}
			assertUnique(t, planExerciseIDs(plan))
		})
	}
}

func TestService_GeneratePlan_usesPreferences(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillIntermediate)

	plan, err := svc.GeneratePlan(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if len(plan.Days) != 3 {
		t.Fatalf("default preferences produced %d days, want 3", len(plan.Days))
	}
	for _, day := range plan.Days {
		if len(day.Exercises) != 6 {
			t.Errorf("day %d has %d exercises, want 6", day.DayNumber, len(day.Exercises))
		}
	}

	days, avoided := 4, []string{"Chest", "Quadriceps"}
	if _, _, err = svc.UpdatePreferences(ctx, user.ID, planner.PreferencesUpdate{
		WorkoutDays:      &days,
		AvoidedBodyParts: &avoided,
	}); err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if plan, err = svc.GeneratePlan(ctx, user.ID, 0); err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if len(plan.Days) != 4 {
		t.Fatalf("got %d days, want 4", len(plan.Days))
	}
	for _, day := range plan.Days {
		for _, se := range day.Exercises {
			if bp := se.Exercise.BodyPart; bp == "Chest" || bp == "Quadriceps" {
				t.Errorf("day %d contains avoided body part %s", day.DayNumber, bp)
			}
		}
	}
}

func TestService_GeneratePlan_replacesDraftOfSameWeek(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)

	first, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	second, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("expected a new plan")
	}
	if _, err = svc.GetPlan(ctx, first.ID, user.ID); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("GetPlan(first) error = %v, want ErrNotFound", err)
	}
}

func TestService_GeneratePlan_errors(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)

	for _, days := range []int{1, 2, 6, 7} {
		if _, err := svc.GeneratePlan(ctx, user.ID, days); !errors.Is(err, planner.ErrInvalidDayCount) {
			t.Errorf("GeneratePlan(%d) error = %v, want ErrInvalidDayCount", days, err)
		}
		if planner.IsValidation(nil) {
			t.Error("nil is not a validation error")
		}
	}
	if _, err := svc.GeneratePlan(ctx, user.ID+100, 3); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("GeneratePlan(unknown user) error = %v, want ErrNotFound", err)
	}
}

func TestService_ActivatePlan(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, db := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	other := createUser(t, svc, "grace", planner.SkillBeginner)

	p1, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if err = svc.ActivatePlan(ctx, p1.ID, other.ID, true); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("ActivatePlan by another user error = %v, want ErrNotFound", err)
	}
	if err = svc.ActivatePlan(ctx, p1.ID, user.ID, true); err != nil {
		t.Fatalf("ActivatePlan(p1): %v", err)
	}

	p2, err := svc.GeneratePlan(ctx, user.ID, 4)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if err = svc.ActivatePlan(ctx, p2.ID, user.ID, false); !errors.Is(err, planner.ErrIllegalTransition) {
		t.Errorf("ActivatePlan without cancelling error = %v, want ErrIllegalTransition", err)
	}
	if err = svc.ActivatePlan(ctx, p2.ID, user.ID, true); err != nil {
		t.Fatalf("ActivatePlan(p2): %v", err)
	}

	for id, want := range map[int]planner.PlanStatus{p1.ID: planner.PlanCancelled, p2.ID: planner.PlanActive} {
		var plan planner.WorkoutPlan
		if plan, err = svc.GetPlan(ctx, id, user.ID); err != nil {
			t.Fatalf("GetPlan(%d): %v", id, err)
		}
		if plan.Status != want {
			t.Errorf("plan %d status = %s, want %s", id, plan.Status, want)
		}
	}
	var active int
	if err = db.ReadOnly.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workout_plans WHERE user_id = ? AND status = 'active'", user.ID).Scan(&active); err != nil {
		t.Fatal(err)
	}
	if active != 1 {
		t.Errorf("%d active plans, want 1", active)
	}

	// Re-activating a cancelled plan is a no-op.
	if err = svc.ActivatePlan(ctx, p1.ID, user.ID, true); err != nil {
		t.Fatalf("ActivatePlan(cancelled): %v", err)
	}
	current, err := svc.GetCurrentPlan(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetCurrentPlan: %v", err)
	}
	if current.ID != p2.ID {
		t.Errorf("current plan = %d, want %d", current.ID, p2.ID)
	}

	info, err := svc.ActivePlanInfo(ctx, user.ID)
	if err != nil {
		t.Fatalf("ActivePlanInfo: %v", err)
	}
	if info.PlanID != p2.ID || info.TotalExercises != len(planExerciseIDs(p2)) || info.CompletedExercises != 0 {
		t.Errorf("ActivePlanInfo = %+v", info)
	}
	if _, err = svc.ActivePlanInfo(ctx, other.ID); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("ActivePlanInfo without active plan error = %v, want ErrNotFound", err)
	}

	if err = svc.SetPlanStatus(ctx, p2.ID, user.ID, planner.PlanCompleted); err != nil {
		t.Fatalf("SetPlanStatus(completed): %v", err)
	}
	if err = svc.SetPlanStatus(ctx, p2.ID, user.ID, planner.PlanCancelled); !errors.Is(err, planner.ErrIllegalTransition) {
		t.Errorf("SetPlanStatus(completed -> cancelled) error = %v, want ErrIllegalTransition", err)
	}
}

func TestService_SetPlanStatus_draft(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	plan, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}

	tests := []struct {
		status  planner.PlanStatus
		wantErr error
	}{
		{planner.PlanCancelled, planner.ErrIllegalTransition},
		{planner.PlanCompleted, planner.ErrIllegalTransition},
		{planner.PlanDraft, planner.ErrIllegalTransition},
		{"bogus", planner.ErrInvalidStatus},
		{"", planner.ErrInvalidStatus},
	}
	for _, tt := range tests {
		err = svc.SetPlanStatus(ctx, plan.ID, user.ID, tt.status)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("SetPlanStatus(draft -> %q) error = %v, want %v", tt.status, err, tt.wantErr)
		}
	}
	if !planner.IsValidation(svc.SetPlanStatus(ctx, plan.ID, user.ID, "bogus")) {
		t.Error("an unknown status should be a validation error")
	}

	unchanged, err := svc.GetPlan(ctx, plan.ID, user.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if unchanged.Status != planner.PlanDraft {
		t.Errorf("status = %s, want draft", unchanged.Status)
	}
}

func TestService_ActivatePlan_logsOnlyChanges(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	var logs bytes.Buffer
	logger := testhelpers.NewLogger(&logs)
	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	svc := planner.NewService(db, logger,
		planner.WithClock(func() time.Time { return testNow }),
		planner.WithRandSource(fixedRand(0)))
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	plan, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}

	for range 2 {
		if err = svc.ActivatePlan(ctx, plan.ID, user.ID, true); err != nil {
			t.Fatalf("ActivatePlan: %v", err)
		}
	}
	if got := strings.Count(logs.String(), `msg="activated plan"`); got != 1 {
		t.Errorf("logged activation %d times, want 1", got)
	}
}

func TestService_CompleteExercise(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, db := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	plan, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	target := plan.Days[0].Exercises[0]

	historyRows := func() int {
		t.Helper()
		var n int
		if err = db.ReadOnly.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM exercise_history WHERE session_exercise_id = ?", target.ID).Scan(&n); err != nil {
			t.Fatal(err)
		}
		return n
	}

	sets := 3
	completed, err := svc.CompleteExercise(ctx, target.ID, user.ID, &sets)
	if err != nil {
		t.Fatalf("CompleteExercise: %v", err)
	}
	if !completed.Completed || !completed.CompletedAt.Equal(testNow.Truncate(time.Millisecond)) {
		t.Errorf("completed = %v at %v", completed.Completed, completed.CompletedAt)
	}
	if got := historyRows(); got != 1 {
		t.Errorf("history rows = %d, want 1", got)
	}
	// Completing twice logs twice.
	if _, err = svc.CompleteExercise(ctx, target.ID, user.ID, nil); err != nil {
		t.Fatalf("CompleteExercise again: %v", err)
	}
	if got := historyRows(); got != 2 {
		t.Errorf("history rows after double completion = %d, want 2", got)
	}

	uncompleted, err := svc.UncompleteExercise(ctx, target.ID, user.ID)
	if err != nil {
		t.Fatalf("UncompleteExercise: %v", err)
	}
	if uncompleted.Completed || !uncompleted.CompletedAt.IsZero() {
		t.Errorf("uncompleted = %v at %v", uncompleted.Completed, uncompleted.CompletedAt)
	}
	if got := historyRows(); got != 0 {
		t.Errorf("history rows after uncompletion = %d, want 0", got)
	}

	other := createUser(t, svc, "grace", planner.SkillBeginner)
	if _, err = svc.CompleteExercise(ctx, target.ID, other.ID, nil); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("CompleteExercise by another user error = %v, want ErrNotFound", err)
	}
}

func TestService_RefreshUncompletedExercises(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	plan, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	day := plan.Days[1]
	var kept []planner.SessionExercise
	for _, se := range day.Exercises[:2] {
		var completed planner.SessionExercise
		if completed, err = svc.CompleteExercise(ctx, se.ID, user.ID, nil); err != nil {
			t.Fatalf("CompleteExercise: %v", err)
		}
		kept = append(kept, completed)
	}

	refreshed, err := svc.RefreshUncompletedExercises(ctx, plan.ID, day.DayNumber, user.ID)
	if err != nil {
		t.Fatalf("RefreshUncompletedExercises: %v", err)
	}
	if len(refreshed.Exercises) != len(day.Exercises) {
		t.Fatalf("got %d exercises, want %d", len(refreshed.Exercises), len(day.Exercises))
	}
	if diff := cmp.Diff(kept, refreshed.Exercises[:2]); diff != "" {
		t.Errorf("completed exercises changed (-want +got):\n%s", diff)
	}
	for _, se := range refreshed.Exercises[2:] {
		if se.Completed || se.OrderIndex <= kept[1].OrderIndex {
			t.Errorf("replacement %d: completed %v order %d", se.ID, se.Completed, se.OrderIndex)
		}
	}

	updated, err := svc.GetPlan(ctx, plan.ID, user.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	assertUnique(t, planExerciseIDs(updated))
	if diff := cmp.Diff(plan.Days[0], updated.Days[0]); diff != "" {
		t.Errorf("other day changed (-want +got):\n%s", diff)
	}
}

func TestService_RefreshIncompleteDays(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	plan, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	// Day 2 is fully completed, the others untouched.
	for _, se := range plan.Days[1].Exercises {
		if _, err = svc.CompleteExercise(ctx, se.ID, user.ID, nil); err != nil {
			t.Fatalf("CompleteExercise: %v", err)
		}
	}

	days, err := svc.RefreshIncompleteDays(ctx, plan.ID, user.ID)
	if err != nil {
		t.Fatalf("RefreshIncompleteDays: %v", err)
	}
	if diff := cmp.Diff([]int{1, 3}, days); diff != "" {
		t.Errorf("refreshed days (-want +got):\n%s", diff)
	}

	// Complete everything, then nothing is left to refresh.
	current, err := svc.GetPlan(ctx, plan.ID, user.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	for _, day := range current.Days {
		for _, se := range day.Exercises {
			if !se.Completed {
				if _, err = svc.CompleteExercise(ctx, se.ID, user.ID, nil); err != nil {
					t.Fatalf("CompleteExercise: %v", err)
				}
			}
		}
	}
	before, err := svc.GetPlan(ctx, plan.ID, user.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if days, err = svc.RefreshIncompleteDays(ctx, plan.ID, user.ID); err != nil {
		t.Fatalf("RefreshIncompleteDays: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("refreshed days = %v, want none", days)
	}
	after, err := svc.GetPlan(ctx, plan.ID, user.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("complete plan changed (-want +got):\n%s", diff)
	}
}

func TestService_RefreshDayAndPlan(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	plan, err := svc.GeneratePlan(ctx, user.ID, 4)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}

	day, err := svc.RefreshDay(ctx, plan.ID, 2, user.ID)
	if err != nil {
		t.Fatalf("RefreshDay: %v", err)
	}
	if len(day.Exercises) != 7 {
		t.Errorf("refreshed day has %d exercises, want 7", len(day.Exercises))
	}
	for i, se := range day.Exercises {
		if se.OrderIndex != i+1 {
			t.Errorf("exercise %d has order %d", i, se.OrderIndex)
		}
	}
	if _, err = svc.RefreshDay(ctx, plan.ID, 5, user.ID); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("RefreshDay(5) error = %v, want ErrNotFound", err)
	}

	refreshed, err := svc.RefreshPlan(ctx, plan.ID, user.ID)
	if err != nil {
		t.Fatalf("RefreshPlan: %v", err)
	}
	if len(refreshed.Days) != 4 {
		t.Errorf("refreshed plan has %d days, want 4", len(refreshed.Days))
	}
	assertUnique(t, planExerciseIDs(refreshed))

	if err = svc.ActivatePlan(ctx, plan.ID, user.ID, true); err != nil {
		t.Fatalf("ActivatePlan: %v", err)
	}
	if err = svc.SetPlanStatus(ctx, plan.ID, user.ID, planner.PlanCancelled); err != nil {
		t.Fatalf("SetPlanStatus: %v", err)
	}
	if _, err = svc.RefreshPlan(ctx, plan.ID, user.ID); !errors.Is(err, planner.ErrPlanClosed) {
		t.Errorf("RefreshPlan(cancelled) error = %v, want ErrPlanClosed", err)
	}
}

func TestService_ReplaceExercise(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, db := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	plan, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	target := plan.Days[0].Exercises[0]
	if _, err = svc.CompleteExercise(ctx, target.ID, user.ID, nil); err != nil {
		t.Fatalf("CompleteExercise: %v", err)
	}

	replaced, err := svc.ReplaceExercise(ctx, target.ID, user.ID)
	if err != nil {
		t.Fatalf("ReplaceExercise: %v", err)
	}
	if replaced.Exercise.ID == target.Exercise.ID || replaced.Exercise.BodyPart != target.Exercise.BodyPart {
		t.Errorf("replacement %d (%s) for %d (%s)", replaced.Exercise.ID, replaced.Exercise.BodyPart,
			target.Exercise.ID, target.Exercise.BodyPart)
	}
	if replaced.Completed || !replaced.CompletedAt.IsZero() || replaced.OrderIndex != target.OrderIndex {
		t.Errorf("replacement state = %+v", replaced)
	}
	updated, err := svc.GetPlan(ctx, plan.ID, user.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	assertUnique(t, planExerciseIDs(updated))

	// The workout done before the swap stays in the history.
	var logged int
	if err = db.ReadOnly.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM exercise_history WHERE session_exercise_id = ? AND exercise_id = ?",
		target.ID, target.Exercise.ID).Scan(&logged); err != nil {
		t.Fatal(err)
	}
	if logged != 1 {
		t.Errorf("%d history rows for the replaced exercise, want 1", logged)
	}
	if _, err = svc.CompleteExercise(ctx, target.ID, user.ID, nil); err != nil {
		t.Fatalf("CompleteExercise(replacement): %v", err)
	}
	if _, err = svc.UncompleteExercise(ctx, target.ID, user.ID); err != nil {
		t.Fatalf("UncompleteExercise(replacement): %v", err)
	}
	if err = db.ReadOnly.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM exercise_history WHERE session_exercise_id = ?", target.ID).Scan(&logged); err != nil {
		t.Fatal(err)
	}
	if logged != 1 {
		t.Errorf("%d history rows for the slot after uncompleting the replacement, want 1", logged)
	}

	// A body part with a single exercise has nothing to swap in.
	var neckID int
	if err = db.ReadWrite.QueryRowContext(ctx, `
		INSERT INTO exercises (title, type, body_part, equipment, level, rating)
		VALUES ('Neck Harness Curl', 'Strength', 'Neck', 'Other', 'Beginner', 3)
		RETURNING id`).Scan(&neckID); err != nil {
		t.Fatal(err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx,
		"UPDATE session_exercises SET exercise_id = ? WHERE id = ?", neckID, target.ID); err != nil {
		t.Fatal(err)
	}
	if _, err = svc.ReplaceExercise(ctx, target.ID, user.ID); !errors.Is(err, planner.ErrNoReplacement) {
		t.Fatalf("ReplaceExercise error = %v, want ErrNoReplacement", err)
	}
	if !planner.IsConflict(err) {
		t.Error("ErrNoReplacement should be a conflict")
	}
	unchanged, err := svc.GetSession(ctx, target.SessionID, user.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got := unchanged.Exercises[0].Exercise.ID; got != neckID {
		t.Errorf("exercise after failed replacement = %d, want %d", got, neckID)
	}
}

func TestService_PurgeDuplicateDrafts(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, db := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	plan, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, `
		INSERT INTO workout_plans (user_id, week_start_date, workout_days, status)
		VALUES (?, '2026-10-19', 3, 'draft'), (?, '2026-10-26', 3, 'draft')`, user.ID, user.ID); err != nil {
		t.Fatal(err)
	}

	deleted, err := svc.PurgeDuplicateDrafts(ctx)
	if err != nil {
		t.Fatalf("PurgeDuplicateDrafts: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d drafts, want 1", deleted)
	}
	if _, err = svc.GetPlan(ctx, plan.ID, user.ID); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("older duplicate draft still present: %v", err)
	}
}

func TestService_History(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)
	plan, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	for _, se := range plan.Days[0].Exercises[:3] {
		if _, err = svc.CompleteExercise(ctx, se.ID, user.ID, nil); err != nil {
			t.Fatalf("CompleteExercise: %v", err)
		}
	}

	summaries, total, err := svc.ListPlans(ctx, user.ID, planner.PlanListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if total != 1 || len(summaries) != 1 {
		t.Fatalf("ListPlans returned %d of %d", len(summaries), total)
	}
	if got := summaries[0]; got.TotalExercises != 18 || got.CompletedExercises != 3 || got.CompletionPercent != 17 {
		t.Errorf("summary = %+v", got)
	}

	if err = svc.ActivatePlan(ctx, plan.ID, user.ID, true); err != nil {
		t.Fatalf("ActivatePlan: %v", err)
	}
	if err = svc.SetPlanStatus(ctx, plan.ID, user.ID, planner.PlanCancelled); err != nil {
		t.Fatalf("SetPlanStatus: %v", err)
	}
	if _, total, err = svc.ListPlans(ctx, user.ID, planner.PlanListOptions{Limit: 10}); err != nil || total != 0 {
		t.Errorf("ListPlans without cancelled = %d, %v, want 0", total, err)
	}
	if _, total, err = svc.ListPlans(ctx, user.ID,
		planner.PlanListOptions{Limit: 10, IncludeCancelled: true}); err != nil || total != 1 {
		t.Errorf("ListPlans with cancelled = %d, %v, want 1", total, err)
	}
}

func TestService_Stats(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", planner.SkillBeginner)

	empty, err := svc.Stats(ctx, user.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if empty.TotalPlans != 0 || empty.CurrentStreak != 0 || len(empty.TopExercises) != 0 {
		t.Errorf("empty stats = %+v", empty)
	}

	plan, err := svc.GeneratePlan(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if err = svc.ActivatePlan(ctx, plan.ID, user.ID, true); err != nil {
		t.Fatalf("ActivatePlan: %v", err)
	}
	for _, se := range plan.Days[2].Exercises[:2] {
		if _, err = svc.CompleteExercise(ctx, se.ID, user.ID, nil); err != nil {
			t.Fatalf("CompleteExercise: %v", err)
		}
	}

	stats, err := svc.Stats(ctx, user.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := planner.Stats{
		TotalPlans:         1,
		ActivePlans:        1,
		CompletedPlans:     0,
		TotalExercises:     18,
		CompletedExercises: 2,
		CompletedThisWeek:  2,
		CurrentStreak:      1,
		LongestStreak:      1,
		RecentActivity:     []planner.DailyActivity{{Date: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), Count: 2}},
	}
	if diff := cmp.Diff(want, stats, cmp.FilterPath(func(p cmp.Path) bool {
		name := p.Last().String()
		return name == ".TopExercises" || name == ".TopBodyParts"
	}, cmp.Ignore())); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
	if len(stats.TopExercises) != 2 || len(stats.TopBodyParts) == 0 {
		t.Errorf("top exercises %v, top body parts %v", stats.TopExercises, stats.TopBodyParts)
	}
}

func TestService_PreferencesAndRatings(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)
	user := createUser(t, svc, "ada", "")
	if user.SkillLevel != planner.SkillBeginner {
		t.Errorf("default skill level = %s", user.SkillLevel)
	}
	if _, err := svc.CreateUser(ctx, "ada", planner.SkillExpert); !errors.Is(err, planner.ErrUsernameTaken) {
		t.Errorf("duplicate CreateUser error = %v, want ErrUsernameTaken", err)
	}
	if _, err := svc.CreateUser(ctx, "bob", "Guru"); !errors.Is(err, planner.ErrInvalidSkillLevel) {
		t.Errorf("CreateUser(Guru) error = %v, want ErrInvalidSkillLevel", err)
	}

	prefs, err := svc.GetPreferences(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if prefs.WorkoutDays != 3 || len(prefs.PreferredEquipment) != 0 || len(prefs.AvoidedBodyParts) != 0 {
		t.Errorf("default preferences = %+v", prefs)
	}

	equipment := []string{" Dumbbell", "Barbell ", "", "Dumbbell"}
	level := planner.SkillExpert
	updatedUser, prefs, err := svc.UpdatePreferences(ctx, user.ID, planner.PreferencesUpdate{
		PreferredEquipment: &equipment,
		SkillLevel:         &level,
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if diff := cmp.Diff([]string{"Dumbbell", "Barbell"}, prefs.PreferredEquipment); diff != "" {
		t.Errorf("preferred equipment (-want +got):\n%s", diff)
	}
	if updatedUser.SkillLevel != planner.SkillExpert || prefs.WorkoutDays != 3 {
		t.Errorf("after update user = %+v prefs = %+v", updatedUser, prefs)
	}
	stored, err := svc.GetPreferences(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if diff := cmp.Diff(prefs.PreferredEquipment, stored.PreferredEquipment); diff != "" {
		t.Errorf("stored equipment (-want +got):\n%s", diff)
	}
	badDays := 6
	if _, _, err = svc.UpdatePreferences(ctx, user.ID,
		planner.PreferencesUpdate{WorkoutDays: &badDays}); !errors.Is(err, planner.ErrInvalidDayCount) {
		t.Errorf("UpdatePreferences(6 days) error = %v, want ErrInvalidDayCount", err)
	}

	if _, err = svc.RateExercise(ctx, user.ID, 1, 6, ""); !errors.Is(err, planner.ErrInvalidRating) {
		t.Errorf("RateExercise(6) error = %v, want ErrInvalidRating", err)
	}
	if _, err = svc.RateExercise(ctx, user.ID, 100000, 3, ""); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("RateExercise(unknown) error = %v, want ErrNotFound", err)
	}
	rating, err := svc.RateExercise(ctx, user.ID, 1, 5, "favourite")
	if err != nil {
		t.Fatalf("RateExercise: %v", err)
	}
	if rating.Rating != 5 || rating.Notes != "favourite" {
		t.Errorf("rating = %+v", rating)
	}
	if err = svc.DeleteRating(ctx, user.ID, 1); err != nil {
		t.Fatalf("DeleteRating: %v", err)
	}
	if _, err = svc.GetRating(ctx, user.ID, 1); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("GetRating after delete error = %v, want ErrNotFound", err)
	}
	if err = svc.DeleteRating(ctx, user.ID, 1); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("second DeleteRating error = %v, want ErrNotFound", err)
	}
}

func TestService_Catalog(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	svc, _ := newTestService(t)

	chest, total, err := svc.ListExercises(ctx, planner.ExerciseFilter{BodyPart: "Chest", Limit: 3})
	if err != nil {
		t.Fatalf("ListExercises: %v", err)
	}
	if len(chest) != 3 || total < 3 {
		t.Fatalf("ListExercises returned %d of %d", len(chest), total)
	}
	for _, e := range chest {
		if e.BodyPart != "Chest" {
			t.Errorf("exercise %d has body part %s", e.ID, e.BodyPart)
		}
	}

	filters, err := svc.ExerciseFilters(ctx)
	if err != nil {
		t.Fatalf("ExerciseFilters: %v", err)
	}
	if diff := cmp.Diff([]planner.SkillLevel{"Beginner", "Expert", "Intermediate"}, filters.Levels); diff != "" {
		t.Errorf("levels (-want +got):\n%s", diff)
	}
	if len(filters.BodyParts) != 14 {
		t.Errorf("got %d body parts, want 14", len(filters.BodyParts))
	}

	if _, err = svc.GetExercise(ctx, 1); err != nil {
		t.Errorf("GetExercise(1): %v", err)
	}
	if _, err = svc.GetExercise(ctx, 100000); !errors.Is(err, planner.ErrNotFound) {
		t.Errorf("GetExercise(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestService_PreferenceOptions(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	options, err := svc.PreferenceOptions(t.Context())
	if err != nil {
		t.Fatalf("PreferenceOptions: %v", err)
	}
	if diff := cmp.Diff([]int{3, 4, 5}, options.WorkoutDays); diff != "" {
		t.Errorf("workout days (-want +got):\n%s", diff)
	}
	wantLevels := []planner.SkillLevel{planner.SkillBeginner, planner.SkillIntermediate, planner.SkillExpert}
	if diff := cmp.Diff(wantLevels, options.SkillLevels); diff != "" {
		t.Errorf("skill levels (-want +got):\n%s", diff)
	}
	if len(options.BodyParts) != 14 || len(options.Equipment) == 0 {
		t.Errorf("got %d body parts and %d equipment", len(options.BodyParts), len(options.Equipment))
	}
}

func TestPlanListOptions_Normalized(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   planner.PlanListOptions
		want planner.PlanListOptions
	}{
		{in: planner.PlanListOptions{}, want: planner.PlanListOptions{Limit: 20}},
		{in: planner.PlanListOptions{Limit: 500, Offset: -3}, want: planner.PlanListOptions{Limit: 100}},
		{
			in:   planner.PlanListOptions{Limit: 5, Offset: 10, IncludeCancelled: true},
			want: planner.PlanListOptions{Limit: 5, Offset: 10, IncludeCancelled: true},
		},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.in.Normalized()); diff != "" {
			t.Errorf("Normalized(%+v) (-want +got):\n%s", tt.in, diff)
		}
	}
}
