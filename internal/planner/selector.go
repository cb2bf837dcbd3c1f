package planner

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

const unknownBodyPart = "Unknown"

// catalogReader is the slice of the exercise repository the selector needs.
type catalogReader interface {
	ListSelectable(ctx context.Context, bodyParts []string, categories []Category) ([]Exercise, error)
}

type exerciseSelector struct {
	catalog catalogReader
	rnd     RandSource
}

type scoredExercise struct {
	exercise Exercise
	score    float64
}

// pick chooses up to count exercises for the target body parts, greedily by score, while capping how many come
// from a single body part. Every chosen id is added to used. Returning fewer than count is not an error.
func (s exerciseSelector) pick(
	ctx context.Context,
	targets []string,
	count int,
	uc UserContext,
	used exerciseIDSet,
) ([]Exercise, error) {
	targets = slices.DeleteFunc(slices.Clone(targets), func(bodyPart string) bool {
		return slices.Contains(uc.AvoidedBodyParts, bodyPart)
	})
	if len(targets) == 0 || count <= 0 {
		return nil, nil
	}

	candidates, err := s.catalog.ListSelectable(ctx, targets, selectableCategories)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	scored := make([]scoredExercise, 0, len(candidates))
	for _, e := range candidates {
		if used.contains(e.ID) {
			continue
		}
		scored = append(scored, scoredExercise{exercise: e, score: score(e, uc, s.rnd)})
	}
	slices.SortStableFunc(scored, func(a, b scoredExercise) int {
		return cmp.Compare(b.score, a.score)
	})

	perBodyPartCap := (count+len(targets)-1)/len(targets) + 1
	perBodyPart := make(map[string]int, len(targets))
	picked := make([]Exercise, 0, count)
	for _, candidate := range scored {
		if len(picked) >= count {
			break
		}
		bodyPart := candidate.exercise.BodyPart
		if bodyPart == "" {
			bodyPart = unknownBodyPart
		}
		if perBodyPart[bodyPart] >= perBodyPartCap {
			continue
		}
		picked = append(picked, candidate.exercise)
		perBodyPart[bodyPart]++
		used.add(candidate.exercise.ID)
	}
	return picked, nil
}

// bestReplacement returns the highest scoring candidate that is not in used.
func bestReplacement(candidates []Exercise, uc UserContext, used exerciseIDSet, rnd RandSource) (Exercise, bool) {
	var (
		best  Exercise
		top   float64
		found bool
	)
	for _, e := range candidates {
		if used.contains(e.ID) {
			continue
		}
		if sc := score(e, uc, rnd); !found || sc > top {
			best, top, found = e, sc, true
		}
	}
	return best, found
}
