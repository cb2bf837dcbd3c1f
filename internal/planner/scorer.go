package planner

import (
	"math/rand/v2"
	"slices"
)

const (
	ratingWeight            = 20
	defaultRating           = 3
	exactLevelBonus         = 30
	adjacentLevelBonus      = 15
	preferredEquipmentBonus = 20
	commonEquipmentBonus    = 15
	recentPenalty           = 50
	strengthBonus           = 10
	powerCategoryBonus      = 5
	maxJitter               = 15
)

//nolint:gochecknoglobals // read-only lookup table.
var commonEquipment = []string{"Body Only", "Dumbbell", "Barbell", "Cable", "Machine"}

// RandSource yields uniform floats in [0, 1).
type RandSource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 {
	return rand.Float64() //nolint:gosec // variety jitter, not security sensitive.
}

// score rates how well e suits the user. Higher is better.
func score(e Exercise, uc UserContext, rnd RandSource) float64 {
	rating := float64(defaultRating)
	if personal, ok := uc.PersonalRatings[e.ID]; ok {
		rating = float64(personal)
	} else if e.Rating != nil {
		rating = *e.Rating
	}
	total := rating * ratingWeight

	switch {
	case e.Level == uc.SkillLevel:
		total += exactLevelBonus
	case e.Level.Valid() && uc.SkillLevel.rank()-e.Level.rank() == 1:
		total += adjacentLevelBonus
	}

	if len(uc.PreferredEquipment) > 0 {
		if slices.Contains(uc.PreferredEquipment, e.Equipment) {
			total += preferredEquipmentBonus
		}
	} else if slices.Contains(commonEquipment, e.Equipment) {
		total += commonEquipmentBonus
	}

	if uc.RecentExerciseIDs.contains(e.ID) {
		total -= recentPenalty
	}

	switch e.Category {
	case CategoryStrength:
		total += strengthBonus
	case CategoryPowerlifting, CategoryOlympicWeightlifting:
		total += powerCategoryBonus
	case CategoryPlyometrics, CategoryStretching, CategoryCardio:
	}

	return total + rnd.Float64()*maxJitter
}
