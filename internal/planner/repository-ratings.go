package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type sqliteRatingRepository struct {
	baseRepository
}

func newSQLiteRatingRepository(q querier) *sqliteRatingRepository {
	return &sqliteRatingRepository{
		baseRepository: newBaseRepository(q),
	}
}

func (r *sqliteRatingRepository) Get(ctx context.Context, userID, exerciseID int) (Rating, error) {
	var (
		rating    Rating
		updatedAt sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT exercise_id, rating, notes, updated_at
		FROM user_exercise_ratings
		WHERE user_id = ? AND exercise_id = ?`, userID, exerciseID).
		Scan(&rating.ExerciseID, &rating.Rating, &rating.Notes, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Rating{}, ErrNotFound
	}
	if err != nil {
		return Rating{}, fmt.Errorf("query rating: %w", err)
	}
	if rating.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return Rating{}, err
	}
	return rating, nil
}

// Map returns the user's personal ratings keyed by exercise id.
func (r *sqliteRatingRepository) Map(ctx context.Context, userID int) (_ map[int]int, err error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT exercise_id, rating
		FROM user_exercise_ratings
		WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	ratings := make(map[int]int)
	for rows.Next() {
		var exerciseID, rating int
		if err = rows.Scan(&exerciseID, &rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings[exerciseID] = rating
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ratings, nil
}

func (r *sqliteRatingRepository) Set(ctx context.Context, userID int, rating Rating) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO user_exercise_ratings (user_id, exercise_id, rating, notes, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, exercise_id) DO UPDATE SET
			rating = excluded.rating,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		userID, rating.ExerciseID, rating.Rating, rating.Notes, formatTimestamp(rating.UpdatedAt)); err != nil {
		return fmt.Errorf("save rating: %w", err)
	}
	return nil
}

func (r *sqliteRatingRepository) Delete(ctx context.Context, userID, exerciseID int) error {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM user_exercise_ratings
		WHERE user_id = ? AND exercise_id = ?`, userID, exerciseID)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	return requireAffected(res)
}
