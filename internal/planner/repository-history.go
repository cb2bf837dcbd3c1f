package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type sqliteHistoryRepository struct {
	baseRepository
}

func newSQLiteHistoryRepository(q querier) *sqliteHistoryRepository {
	return &sqliteHistoryRepository{
		baseRepository: newBaseRepository(q),
	}
}

// Append logs a completed session exercise. setsCompleted may be nil.
func (r *sqliteHistoryRepository) Append(
	ctx context.Context,
	userID, exerciseID, sessionExerciseID int,
	setsCompleted *int,
	completedAt time.Time,
) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO exercise_history (user_id, exercise_id, session_exercise_id, sets_completed, completed_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, exerciseID, sessionExerciseID, setsCompleted, formatTimestamp(completedAt)); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// DeleteForSessionExercise removes every history row the user logged for the exercise currently in a session
// exercise slot. Rows logged for an exercise since replaced in that slot stay.
func (r *sqliteHistoryRepository) DeleteForSessionExercise(
	ctx context.Context,
	userID, sessionExerciseID, exerciseID int,
) error {
	if _, err := r.q.ExecContext(ctx, `
		DELETE FROM exercise_history
		WHERE session_exercise_id = ? AND user_id = ? AND exercise_id = ?`,
		sessionExerciseID, userID, exerciseID); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// RecentExerciseIDs returns the distinct exercises the user completed after since.
func (r *sqliteHistoryRepository) RecentExerciseIDs(ctx context.Context, userID int, since time.Time) ([]int, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT DISTINCT exercise_id
		FROM exercise_history
		WHERE user_id = ? AND completed_at > ?`, userID, formatTimestamp(since))
	if err != nil {
		return nil, fmt.Errorf("query recent exercises: %w", err)
	}
	ids, err := scanInts(rows)
	if err != nil {
		return nil, fmt.Errorf("scan recent exercises: %w", err)
	}
	return ids, nil
}

// CountSince counts completions at or after since.
func (r *sqliteHistoryRepository) CountSince(ctx context.Context, userID int, since time.Time) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM exercise_history
		WHERE user_id = ? AND completed_at >= ?`, userID, formatTimestamp(since)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// CompletionDates returns the distinct days with at least one completion, newest first.
func (r *sqliteHistoryRepository) CompletionDates(ctx context.Context, userID int) ([]time.Time, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT DISTINCT SUBSTR(completed_at, 1, 10) AS day
		FROM exercise_history
		WHERE user_id = ?
		ORDER BY day DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query completion dates: %w", err)
	}
	days, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan completion dates: %w", err)
	}
	dates := make([]time.Time, 0, len(days))
	for _, day := range days {
		var d time.Time
		if d, err = time.Parse(dateFormat, day); err != nil {
			return nil, fmt.Errorf("parse completion date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// DailyActivity counts completions per day from since onwards, newest first.
func (r *sqliteHistoryRepository) DailyActivity(
	ctx context.Context,
	userID int,
	since time.Time,
) (_ []DailyActivity, err error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT SUBSTR(completed_at, 1, 10) AS day, COUNT(*)
		FROM exercise_history
		WHERE user_id = ? AND completed_at >= ?
		GROUP BY day
		ORDER BY day DESC`, userID, formatTimestamp(since))
	if err != nil {
		return nil, fmt.Errorf("query daily activity: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var activity []DailyActivity
	for rows.Next() {
		var (
			day string
			a   DailyActivity
		)
		if err = rows.Scan(&day, &a.Count); err != nil {
			return nil, fmt.Errorf("scan daily activity: %w", err)
		}
		if a.Date, err = time.Parse(dateFormat, day); err != nil {
			return nil, fmt.Errorf("parse activity date: %w", err)
		}
		activity = append(activity, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return activity, nil
}

// TopExercises returns the user's most completed exercises.
func (r *sqliteHistoryRepository) TopExercises(ctx context.Context, userID, limit int) (_ []ExerciseCount, err error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT e.id, e.title, COUNT(*) AS times_completed
		FROM exercise_history eh
		         JOIN exercises e ON eh.exercise_id = e.id
		WHERE eh.user_id = ?
		GROUP BY e.id, e.title
		ORDER BY times_completed DESC, e.id
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query top exercises: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var counts []ExerciseCount
	for rows.Next() {
		var c ExerciseCount
		if err = rows.Scan(&c.ExerciseID, &c.Title, &c.Count); err != nil {
			return nil, fmt.Errorf("scan top exercise: %w", err)
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

// TopBodyParts returns the body parts the user trained most often.
func (r *sqliteHistoryRepository) TopBodyParts(ctx context.Context, userID, limit int) (_ []BodyPartCount, err error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT e.body_part, COUNT(*) AS times_worked
		FROM exercise_history eh
		         JOIN exercises e ON eh.exercise_id = e.id
		WHERE eh.user_id = ? AND e.body_part IS NOT NULL
		GROUP BY e.body_part
		ORDER BY times_worked DESC, e.body_part
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query top body parts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var counts []BodyPartCount
	for rows.Next() {
		var (
			c        BodyPartCount
			bodyPart sql.NullString
		)
		if err = rows.Scan(&bodyPart, &c.Count); err != nil {
			return nil, fmt.Errorf("scan top body part: %w", err)
		}
		c.BodyPart = bodyPart.String
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}
