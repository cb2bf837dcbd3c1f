package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type sqlitePlanRepository struct {
	baseRepository
}

func newSQLitePlanRepository(q querier) *sqlitePlanRepository {
	return &sqlitePlanRepository{
		baseRepository: newBaseRepository(q),
	}
}

const planColumns = "p.id, p.user_id, p.week_start_date, p.workout_days, p.status, p.created_at"

func scanPlan(row rowScanner) (WorkoutPlan, error) {
	var (
		plan      WorkoutPlan
		weekStart string
		status    string
		createdAt sql.NullString
	)
	if err := row.Scan(&plan.ID, &plan.UserID, &weekStart, &plan.WorkoutDays, &status, &createdAt); err != nil {
		return WorkoutPlan{}, err //nolint:wrapcheck // callers add context and match sql.ErrNoRows.
	}
	var err error
	if plan.WeekStartDate, err = time.Parse(dateFormat, weekStart); err != nil {
		return WorkoutPlan{}, fmt.Errorf("parse week start: %w", err)
	}
	if plan.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return WorkoutPlan{}, err
	}
	plan.Status = PlanStatus(status)
	return plan, nil
}

// Create inserts a draft plan and returns its id.
func (r *sqlitePlanRepository) Create(
	ctx context.Context,
	userID int,
	weekStart time.Time,
	workoutDays int,
	createdAt time.Time,
) (int, error) {
	var id int
	if err := r.q.QueryRowContext(ctx, `
		INSERT INTO workout_plans (user_id, week_start_date, workout_days, status, created_at)
		VALUES (?, ?, ?, 'draft', ?)
		RETURNING id`,
		userID, weekStart.Format(dateFormat), workoutDays, formatTimestamp(createdAt)).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert plan: %w", err)
	}
	return id, nil
}

// DeleteDraftsForWeek removes the user's draft plans starting on weekStart together with their sessions.
func (r *sqlitePlanRepository) DeleteDraftsForWeek(ctx context.Context, userID int, weekStart time.Time) error {
	if _, err := r.q.ExecContext(ctx, `
		DELETE FROM workout_plans
		WHERE user_id = ? AND week_start_date = ? AND status = 'draft'`,
		userID, weekStart.Format(dateFormat)); err != nil {
		return fmt.Errorf("delete draft plans: %w", err)
	}
	return nil
}

// Get returns the plan header without days. Plans owned by other users are reported as ErrNotFound.
func (r *sqlitePlanRepository) Get(ctx context.Context, planID, userID int) (WorkoutPlan, error) {
	plan, err := scanPlan(r.q.QueryRowContext(ctx,
		"SELECT "+planColumns+" FROM workout_plans p WHERE p.id = ? AND p.user_id = ?", planID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return WorkoutPlan{}, ErrNotFound
	}
	if err != nil {
		return WorkoutPlan{}, fmt.Errorf("query plan %d: %w", planID, err)
	}
	return plan, nil
}

// Current returns the header of the user's active plan with the latest week start.
func (r *sqlitePlanRepository) Current(ctx context.Context, userID int) (WorkoutPlan, error) {
	plan, err := scanPlan(r.q.QueryRowContext(ctx, "SELECT "+planColumns+` FROM workout_plans p
		WHERE p.user_id = ? AND p.status = 'active'
		ORDER BY p.week_start_date DESC
		LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return WorkoutPlan{}, ErrNotFound
	}
	if err != nil {
		return WorkoutPlan{}, fmt.Errorf("query current plan: %w", err)
	}
	return plan, nil
}

func (r *sqlitePlanRepository) SetStatus(ctx context.Context, planID int, status PlanStatus) error {
	res, err := r.q.ExecContext(ctx, "UPDATE workout_plans SET status = ? WHERE id = ?", string(status), planID)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	return requireAffected(res)
}

// ActiveIDs returns the ids of the user's active plans other than exceptPlanID.
func (r *sqlitePlanRepository) ActiveIDs(ctx context.Context, userID, exceptPlanID int) ([]int, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id
		FROM workout_plans
		WHERE user_id = ? AND status = 'active' AND id <> ?`, userID, exceptPlanID)
	if err != nil {
		return nil, fmt.Errorf("query active plans: %w", err)
	}
	ids, err := scanInts(rows)
	if err != nil {
		return nil, fmt.Errorf("scan active plans: %w", err)
	}
	return ids, nil
}

// CreateSession inserts the session for one day of the template.
func (r *sqlitePlanRepository) CreateSession(ctx context.Context, planID int, spec DaySpec) (int, error) {
	var id int
	if err := r.q.QueryRowContext(ctx, `
		INSERT INTO workout_sessions (plan_id, day_number, day_name, focus_body_parts)
		VALUES (?, ?, ?, ?)
		RETURNING id`, planID, spec.DayNumber, spec.Name, joinList(spec.BodyParts)).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert session day %d: %w", spec.DayNumber, err)
	}
	return id, nil
}

func (r *sqlitePlanRepository) InsertSessionExercise(
	ctx context.Context,
	sessionID, exerciseID, orderIndex, sets int,
	reps string,
) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO session_exercises (session_id, exercise_id, order_index, sets, reps)
		VALUES (?, ?, ?, ?, ?)`, sessionID, exerciseID, orderIndex, sets, reps); err != nil {
		return fmt.Errorf("insert session exercise: %w", err)
	}
	return nil
}

// DeleteSessionExercises removes the exercises of a session, or only the uncompleted ones.
func (r *sqlitePlanRepository) DeleteSessionExercises(
	ctx context.Context,
	sessionID int,
	onlyUncompleted bool,
) (int64, error) {
	query := "DELETE FROM session_exercises WHERE session_id = ?"
	if onlyUncompleted {
		query += " AND completed = 0"
	}
	res, err := r.q.ExecContext(ctx, query, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session exercises: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ExerciseIDs returns the exercise ids used anywhere in the plan.
func (r *sqlitePlanRepository) ExerciseIDs(ctx context.Context, planID int) ([]int, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT se.exercise_id
		FROM session_exercises se
		         JOIN workout_sessions ws ON se.session_id = ws.id
		WHERE ws.plan_id = ?`, planID)
	if err != nil {
		return nil, fmt.Errorf("query plan exercises: %w", err)
	}
	ids, err := scanInts(rows)
	if err != nil {
		return nil, fmt.Errorf("scan plan exercises: %w", err)
	}
	return ids, nil
}

// Days returns every day of the plan ordered by day number, exercises ordered by order index.
func (r *sqlitePlanRepository) Days(ctx context.Context, planID int) ([]Day, error) {
	return r.loadDays(ctx, "ws.plan_id = ?", planID)
}

// Day returns one day of the plan.
func (r *sqlitePlanRepository) Day(ctx context.Context, planID, dayNumber int) (Day, error) {
	days, err := r.loadDays(ctx, "ws.plan_id = ? AND ws.day_number = ?", planID, dayNumber)
	if err != nil {
		return Day{}, err
	}
	if len(days) == 0 {
		return Day{}, ErrNotFound
	}
	return days[0], nil
}

// Session returns the day with the given session id when the user owns its plan.
func (r *sqlitePlanRepository) Session(ctx context.Context, sessionID, userID int) (Day, error) {
	days, err := r.loadDays(ctx,
		"ws.id = ? AND ws.plan_id IN (SELECT id FROM workout_plans WHERE user_id = ?)", sessionID, userID)
	if err != nil {
		return Day{}, err
	}
	if len(days) == 0 {
		return Day{}, ErrNotFound
	}
	return days[0], nil
}

func (r *sqlitePlanRepository) loadDays(ctx context.Context, where string, args ...any) ([]Day, error) {
	days, err := r.querySessions(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return days, nil
	}
	exercises, err := r.querySessionExercises(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	bySession := make(map[int]int, len(days))
	for i, d := range days {
		bySession[d.SessionID] = i
	}
	for _, se := range exercises {
		i := bySession[se.SessionID]
		days[i].Exercises = append(days[i].Exercises, se)
	}
	return days, nil
}

func (r *sqlitePlanRepository) querySessions(ctx context.Context, where string, args ...any) (_ []Day, err error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT ws.id, ws.plan_id, ws.day_number, ws.day_name, ws.focus_body_parts
		FROM workout_sessions ws
		WHERE `+where+`
		ORDER BY ws.day_number`, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var days []Day
	for rows.Next() {
		var (
			d     Day
			focus string
		)
		if err = rows.Scan(&d.SessionID, &d.PlanID, &d.DayNumber, &d.DayName, &focus); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		d.FocusBodyParts = splitList(focus)
		d.Exercises = []SessionExercise{}
		days = append(days, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return days, nil
}

const sessionExerciseQuery = `SELECT ` + exerciseColumns + `,
       se.id, se.session_id, se.order_index, se.sets, se.reps, se.completed, se.completed_at
FROM session_exercises se
         JOIN workout_sessions ws ON se.session_id = ws.id
         JOIN exercises e ON se.exercise_id = e.id`

func scanSessionExercise(row rowScanner) (SessionExercise, error) {
	var (
		se          SessionExercise
		completedAt sql.NullString
	)
	e, err := scanExercise(row, &se.ID, &se.SessionID, &se.OrderIndex, &se.Sets, &se.Reps, &se.Completed, &completedAt)
	if err != nil {
		return SessionExercise{}, err
	}
	se.Exercise = e
	if se.CompletedAt, err = parseTimestamp(completedAt); err != nil {
		return SessionExercise{}, err
	}
	return se, nil
}

func (r *sqlitePlanRepository) querySessionExercises(
	ctx context.Context,
	where string,
	args ...any,
) (_ []SessionExercise, err error) {
	rows, err := r.q.QueryContext(ctx, sessionExerciseQuery+`
		WHERE `+where+`
		ORDER BY ws.day_number, se.order_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("query session exercises: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var exercises []SessionExercise
	for rows.Next() {
		var se SessionExercise
		if se, err = scanSessionExercise(rows); err != nil {
			return nil, fmt.Errorf("scan session exercise: %w", err)
		}
		exercises = append(exercises, se)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return exercises, nil
}

// ownedSessionExercise is a session exercise together with the plan it belongs to.
type ownedSessionExercise struct {
	SessionExercise

	PlanID     int
	PlanStatus PlanStatus
}

// SessionExercise returns the session exercise when the user owns its plan.
func (r *sqlitePlanRepository) SessionExercise(
	ctx context.Context,
	sessionExerciseID, userID int,
) (ownedSessionExercise, error) {
	var (
		owned  ownedSessionExercise
		status string
	)
	row := r.q.QueryRowContext(ctx, `SELECT `+exerciseColumns+`,
       se.id, se.session_id, se.order_index, se.sets, se.reps, se.completed, se.completed_at, p.id, p.status
FROM session_exercises se
         JOIN workout_sessions ws ON se.session_id = ws.id
         JOIN workout_plans p ON ws.plan_id = p.id
         JOIN exercises e ON se.exercise_id = e.id
WHERE se.id = ? AND p.user_id = ?`, sessionExerciseID, userID)

	var completedAt sql.NullString
	e, err := scanExercise(row, &owned.ID, &owned.SessionID, &owned.OrderIndex, &owned.Sets, &owned.Reps,
		&owned.Completed, &completedAt, &owned.PlanID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ownedSessionExercise{}, ErrNotFound
	}
	if err != nil {
		return ownedSessionExercise{}, fmt.Errorf("query session exercise %d: %w", sessionExerciseID, err)
	}
	owned.Exercise = e
	owned.PlanStatus = PlanStatus(status)
	if owned.CompletedAt, err = parseTimestamp(completedAt); err != nil {
		return ownedSessionExercise{}, err
	}
	return owned, nil
}

// SetCompletion marks a session exercise completed at completedAt, or uncompleted when completedAt is zero.
func (r *sqlitePlanRepository) SetCompletion(ctx context.Context, sessionExerciseID int, completedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE session_exercises
		SET completed = ?, completed_at = ?
		WHERE id = ?`, !completedAt.IsZero(), nullTimestamp(completedAt), sessionExerciseID)
	if err != nil {
		return fmt.Errorf("update completion: %w", err)
	}
	return requireAffected(res)
}

// SwapExercise points a session exercise at another catalog exercise and clears its completion.
func (r *sqlitePlanRepository) SwapExercise(ctx context.Context, sessionExerciseID, exerciseID int) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE session_exercises
		SET exercise_id = ?, completed = 0, completed_at = NULL
		WHERE id = ?`, exerciseID, sessionExerciseID)
	if err != nil {
		return fmt.Errorf("swap exercise: %w", err)
	}
	return requireAffected(res)
}

// ActiveInfo summarises the user's current active plan.
func (r *sqlitePlanRepository) ActiveInfo(ctx context.Context, userID int) (ActivePlanInfo, error) {
	var (
		info      ActivePlanInfo
		weekStart string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT p.id, p.week_start_date, COALESCE(SUM(se.completed), 0), COUNT(se.id)
		FROM workout_plans p
		         LEFT JOIN workout_sessions ws ON ws.plan_id = p.id
		         LEFT JOIN session_exercises se ON se.session_id = ws.id
		WHERE p.user_id = ? AND p.status = 'active'
		GROUP BY p.id
		ORDER BY p.week_start_date DESC
		LIMIT 1`, userID).Scan(&info.PlanID, &weekStart, &info.CompletedExercises, &info.TotalExercises)
	if errors.Is(err, sql.ErrNoRows) {
		return ActivePlanInfo{}, ErrNotFound
	}
	if err != nil {
		return ActivePlanInfo{}, fmt.Errorf("query active plan info: %w", err)
	}
	if info.WeekStartDate, err = time.Parse(dateFormat, weekStart); err != nil {
		return ActivePlanInfo{}, fmt.Errorf("parse week start: %w", err)
	}
	return info, nil
}

// List returns one page of the user's plans, newest week first, and the total number of plans.
func (r *sqlitePlanRepository) List(
	ctx context.Context,
	userID int,
	opts PlanListOptions,
) (_ []PlanSummary, _ int, err error) {
	statusFilter := ""
	if !opts.IncludeCancelled {
		statusFilter = " AND p.status <> 'cancelled'"
	}

	var total int
	if err = r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workout_plans p WHERE p.user_id = ?"+statusFilter, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count plans: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, "SELECT "+planColumns+`, COUNT(se.id), COALESCE(SUM(se.completed), 0)
		FROM workout_plans p
		         LEFT JOIN workout_sessions ws ON ws.plan_id = p.id
		         LEFT JOIN session_exercises se ON se.session_id = ws.id
		WHERE p.user_id = ?`+statusFilter+`
		GROUP BY p.id
		ORDER BY p.week_start_date DESC, p.id DESC
		LIMIT ? OFFSET ?`, userID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query plans: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var summaries []PlanSummary
	for rows.Next() {
		var (
			s         PlanSummary
			weekStart string
			status    string
			createdAt sql.NullString
		)
		if err = rows.Scan(&s.ID, new(int), &weekStart, &s.WorkoutDays, &status, &createdAt,
			&s.TotalExercises, &s.CompletedExercises); err != nil {
			return nil, 0, fmt.Errorf("scan plan summary: %w", err)
		}
		if s.WeekStartDate, err = time.Parse(dateFormat, weekStart); err != nil {
			return nil, 0, fmt.Errorf("parse week start: %w", err)
		}
		if s.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, 0, err
		}
		s.Status = PlanStatus(status)
		s.CompletionPercent = completionPercent(s.CompletedExercises, s.TotalExercises)
		summaries = append(summaries, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return summaries, total, nil
}

// Overview fills the plan and exercise totals of stats, ignoring cancelled plans.
func (r *sqlitePlanRepository) Overview(ctx context.Context, userID int, stats *Stats) error {
	if err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(status = 'active'), 0),
		       COALESCE(SUM(status = 'completed'), 0)
		FROM workout_plans
		WHERE user_id = ? AND status <> 'cancelled'`, userID).
		Scan(&stats.TotalPlans, &stats.ActivePlans, &stats.CompletedPlans); err != nil {
		return fmt.Errorf("query plan overview: %w", err)
	}
	if err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(se.id), COALESCE(SUM(se.completed), 0)
		FROM session_exercises se
		         JOIN workout_sessions ws ON se.session_id = ws.id
		         JOIN workout_plans p ON ws.plan_id = p.id
		WHERE p.user_id = ? AND p.status <> 'cancelled'`, userID).
		Scan(&stats.TotalExercises, &stats.CompletedExercises); err != nil {
		return fmt.Errorf("query exercise overview: %w", err)
	}
	return nil
}

// DeleteDuplicateDrafts keeps only the newest draft per user and week start and returns how many were removed.
func (r *sqlitePlanRepository) DeleteDuplicateDrafts(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM workout_plans
		WHERE status = 'draft'
		  AND id NOT IN (SELECT MAX(id)
		                 FROM workout_plans
		                 WHERE status = 'draft'
		                 GROUP BY user_id, week_start_date)`)
	if err != nil {
		return 0, fmt.Errorf("delete duplicate drafts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func completionPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return (completed*100 + total/2) / total //nolint:mnd // rounded percentage.
}
