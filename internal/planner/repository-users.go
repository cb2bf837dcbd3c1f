package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

type sqliteUserRepository struct {
	baseRepository
}

func newSQLiteUserRepository(q querier) *sqliteUserRepository {
	return &sqliteUserRepository{
		baseRepository: newBaseRepository(q),
	}
}

func (r *sqliteUserRepository) Get(ctx context.Context, id int) (User, error) {
	var (
		u         User
		level     string
		createdAt sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, username, skill_level, created_at
		FROM users
		WHERE id = ?`, id).Scan(&u.ID, &u.Username, &level, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user %d: %w", id, err)
	}
	u.SkillLevel = SkillLevel(level)
	if u.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// Create inserts a user and returns its id. A duplicate username yields ErrUsernameTaken.
func (r *sqliteUserRepository) Create(ctx context.Context, username string, level SkillLevel) (int, error) {
	var id int
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO users (username, skill_level)
		VALUES (?, ?)
		RETURNING id`, username, string(level)).Scan(&id)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return 0, ErrUsernameTaken
	}
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *sqliteUserRepository) SetSkillLevel(ctx context.Context, id int, level SkillLevel, now string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET skill_level = ?, updated_at = ?
		WHERE id = ?`, string(level), now, id)
	if err != nil {
		return fmt.Errorf("update skill level: %w", err)
	}
	return requireAffected(res)
}

// requireAffected maps an update that touched no rows to ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
