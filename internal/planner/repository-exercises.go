package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fitorfail/fitorfail/internal/ptr"
)

type sqliteExerciseRepository struct {
	baseRepository
}

func newSQLiteExerciseRepository(q querier) *sqliteExerciseRepository {
	return &sqliteExerciseRepository{
		baseRepository: newBaseRepository(q),
	}
}

const exerciseColumns = `e.id, e.title, COALESCE(e.description, ''), COALESCE(e.type, ''), COALESCE(e.body_part, ''),
       COALESCE(e.equipment, ''), COALESCE(e.level, ''), e.rating, COALESCE(e.rating_desc, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner, extra ...any) (Exercise, error) {
	var (
		e        Exercise
		category string
		level    string
		rating   sql.NullFloat64
	)
	dest := append([]any{
		&e.ID, &e.Title, &e.Description, &category, &e.BodyPart, &e.Equipment, &level, &rating, &e.RatingDescription,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Exercise{}, err //nolint:wrapcheck // callers add context and match sql.ErrNoRows.
	}
	e.Category = Category(category)
	e.Level = SkillLevel(level)
	if rating.Valid {
		e.Rating = ptr.Ref(rating.Float64)
	}
	return e, nil
}

func (r *sqliteExerciseRepository) Get(ctx context.Context, id int) (Exercise, error) {
	e, err := scanExercise(r.q.QueryRowContext(ctx,
		"SELECT "+exerciseColumns+" FROM exercises e WHERE e.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Exercise{}, ErrNotFound
	}
	if err != nil {
		return Exercise{}, fmt.Errorf("query exercise %d: %w", id, err)
	}
	return e, nil
}

// ListSelectable returns catalog exercises in any of bodyParts whose category is in categories.
func (r *sqliteExerciseRepository) ListSelectable(
	ctx context.Context,
	bodyParts []string,
	categories []Category,
) ([]Exercise, error) {
	args := make([]any, 0, len(bodyParts)+len(categories))
	for _, bp := range bodyParts {
		args = append(args, bp)
	}
	for _, c := range categories {
		args = append(args, string(c))
	}
	query := fmt.Sprintf("SELECT %s FROM exercises e WHERE e.body_part IN (%s) AND e.type IN (%s) ORDER BY e.id",
		exerciseColumns, placeholders(len(bodyParts)), placeholders(len(categories)))
	return r.query(ctx, query, args...)
}

// ListByBodyPart returns every catalog exercise training bodyPart.
func (r *sqliteExerciseRepository) ListByBodyPart(ctx context.Context, bodyPart string) ([]Exercise, error) {
	return r.query(ctx, "SELECT "+exerciseColumns+" FROM exercises e WHERE e.body_part = ? ORDER BY e.id", bodyPart)
}

// List returns one page of exercises matching filter and the total number of matches.
func (r *sqliteExerciseRepository) List(ctx context.Context, filter ExerciseFilter) ([]Exercise, int, error) {
	var (
		conditions []string
		args       []any
	)
	for column, value := range map[string]string{
		"e.body_part": filter.BodyPart,
		"e.equipment": filter.Equipment,
		"e.level":     string(filter.Level),
		"e.type":      string(filter.Category),
	} {
		if value != "" {
			conditions = append(conditions, column+" = ?")
			args = append(args, value)
		}
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM exercises e"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count exercises: %w", err)
	}
	exercises, err := r.query(ctx, "SELECT "+exerciseColumns+" FROM exercises e"+where+
		" ORDER BY e.title, e.id LIMIT ? OFFSET ?", append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return exercises, total, nil
}

// Distinct returns the distinct non-empty values of column. column must be a trusted identifier.
func (r *sqliteExerciseRepository) Distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(
		"SELECT DISTINCT %[1]s FROM exercises WHERE %[1]s IS NOT NULL AND %[1]s <> '' ORDER BY %[1]s", column))
	if err != nil {
		return nil, fmt.Errorf("query distinct %s: %w", column, err)
	}
	values, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan distinct %s: %w", column, err)
	}
	return values, nil
}

func (r *sqliteExerciseRepository) query(ctx context.Context, query string, args ...any) (_ []Exercise, err error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var exercises []Exercise
	for rows.Next() {
		var e Exercise
		if e, err = scanExercise(rows); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return exercises, nil
}
