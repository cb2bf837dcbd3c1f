package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultWorkoutDays = 3

type sqlitePreferencesRepository struct {
	baseRepository
}

func newSQLitePreferencesRepository(q querier) *sqlitePreferencesRepository {
	return &sqlitePreferencesRepository{
		baseRepository: newBaseRepository(q),
	}
}

// Get returns the stored preferences, or the defaults when the user has none yet.
func (r *sqlitePreferencesRepository) Get(ctx context.Context, userID int) (Preferences, error) {
	var (
		prefs     Preferences
		equipment string
		avoided   string
		updatedAt sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT workout_days, preferred_equipment, avoided_body_parts, updated_at
		FROM user_preferences
		WHERE user_id = ?`, userID).Scan(&prefs.WorkoutDays, &equipment, &avoided, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{
			WorkoutDays:        defaultWorkoutDays,
			PreferredEquipment: nil,
			AvoidedBodyParts:   nil,
			UpdatedAt:          time.Time{},
		}, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("query preferences: %w", err)
	}
	prefs.PreferredEquipment = splitList(equipment)
	prefs.AvoidedBodyParts = splitList(avoided)
	if prefs.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return Preferences{}, err
	}
	return prefs, nil
}

// EnsureDefaults inserts a default row for the user unless one exists.
func (r *sqlitePreferencesRepository) EnsureDefaults(ctx context.Context, userID int) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id)
		VALUES (?)
		ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("insert default preferences: %w", err)
	}
	return nil
}

func (r *sqlitePreferencesRepository) Set(ctx context.Context, userID int, prefs Preferences) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, workout_days, preferred_equipment, avoided_body_parts, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			workout_days = excluded.workout_days,
			preferred_equipment = excluded.preferred_equipment,
			avoided_body_parts = excluded.avoided_body_parts,
			updated_at = excluded.updated_at`,
		userID,
		prefs.WorkoutDays,
		joinList(prefs.PreferredEquipment),
		joinList(prefs.AvoidedBodyParts),
		formatTimestamp(prefs.UpdatedAt),
	); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
