package planner

import (
	"context"
	"fmt"
)

const (
	defaultExerciseLimit = 50
	maxExerciseLimit     = 200
	defaultPlanLimit     = 20
	maxPlanLimit         = 100
)

// ListExercises returns one page of catalog exercises matching filter and the total number of matches.
func (s *Service) ListExercises(ctx context.Context, filter ExerciseFilter) ([]Exercise, int, error) {
	exercises, total, err := s.repos.reader().exercises.List(ctx, filter.Normalized())
	if err != nil {
		return nil, 0, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, total, nil
}

// Normalized applies the default page size and clamps the paging to the supported range.
func (f ExerciseFilter) Normalized() ExerciseFilter {
	f.Limit, f.Offset = page(f.Limit, f.Offset, defaultExerciseLimit, maxExerciseLimit)
	return f
}

// Normalized applies the default page size and clamps the paging to the supported range.
func (o PlanListOptions) Normalized() PlanListOptions {
	o.Limit, o.Offset = page(o.Limit, o.Offset, defaultPlanLimit, maxPlanLimit)
	return o
}

func page(limit, offset, defaultLimit, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return min(limit, maxLimit), max(offset, 0)
}

func (s *Service) GetExercise(ctx context.Context, id int) (Exercise, error) {
	e, err := s.repos.reader().exercises.Get(ctx, id)
	if err != nil {
		return Exercise{}, fmt.Errorf("get exercise %d: %w", id, err)
	}
	return e, nil
}

// ExerciseFilters lists the distinct values of every filterable catalog column.
func (s *Service) ExerciseFilters(ctx context.Context) (FilterOptions, error) {
	repo := s.repos.reader()
	columns := map[string][]string{"body_part": nil, "equipment": nil, "level": nil, "type": nil}
	for column := range columns {
		values, err := repo.exercises.Distinct(ctx, column)
		if err != nil {
			return FilterOptions{}, fmt.Errorf("list exercise filters: %w", err)
		}
		columns[column] = values
	}

	opts := FilterOptions{
		BodyParts:  columns["body_part"],
		Equipment:  columns["equipment"],
		Levels:     make([]SkillLevel, 0, len(columns["level"])),
		Categories: make([]Category, 0, len(columns["type"])),
	}
	for _, level := range columns["level"] {
		opts.Levels = append(opts.Levels, SkillLevel(level))
	}
	for _, category := range columns["type"] {
		opts.Categories = append(opts.Categories, Category(category))
	}
	return opts, nil
}
