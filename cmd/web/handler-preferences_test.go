package main

import (
	"net/http"
	"testing"

	"github.com/fitorfail/fitorfail/internal/ptr"
	"github.com/google/go-cmp/cmp"
)

func Test_application_preferences(t *testing.T) {
	server := startServer(t)
	client, _ := signUp(t, server, "ada", "Beginner")

	var prefs preferencesResponse
	mustJSON(t, client, http.MethodGet, "/api/preferences", nil, &prefs, http.StatusOK)
	if prefs.WorkoutDays != 3 || prefs.SkillLevel != "Beginner" || len(prefs.PreferredEquipment) != 0 {
		t.Errorf("default preferences = %+v", prefs)
	}

	mustJSON(t, client, http.MethodPut, "/api/preferences", updatePreferencesRequest{
		WorkoutDays:        ptr.Ref(4),
		PreferredEquipment: ptr.Ref([]string{"Dumbbell", "Barbell"}),
		AvoidedBodyParts:   nil,
		SkillLevel:         ptr.Ref("Expert"),
	}, &prefs, http.StatusOK)
	want := preferencesResponse{
		WorkoutDays:        4,
		PreferredEquipment: []string{"Dumbbell", "Barbell"},
		AvoidedBodyParts:   []string{},
		SkillLevel:         "Expert",
		UpdatedAt:          prefs.UpdatedAt,
	}
	if diff := cmp.Diff(want, prefs); diff != "" {
		t.Errorf("updated preferences (-want +got):\n%s", diff)
	}

	var plan planResponse
	mustJSON(t, client, http.MethodPost, "/api/workouts/generate", nil, &plan, http.StatusCreated)
	if plan.WorkoutDays != 4 {
		t.Errorf("plan generated with %d days, want the preferred 4", plan.WorkoutDays)
	}

	tests := []struct {
		name string
		body any
	}{
		{name: "unsupported day count", body: map[string]any{"workoutDays": 9}},
		{name: "unknown skill level", body: map[string]any{"skillLevel": "Guru"}},
		{name: "unknown field", body: map[string]any{"favouriteColour": "red"}},
		{name: "wrong type", body: map[string]any{"workoutDays": "four"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustJSON(t, client, http.MethodPut, "/api/preferences", tt.body, nil, http.StatusBadRequest)
		})
	}

	var options preferenceOptionsResponse
	mustJSON(t, client, http.MethodGet, "/api/preferences/options", nil, &options, http.StatusOK)
	if diff := cmp.Diff([]int{3, 4, 5}, options.WorkoutDays); diff != "" {
		t.Errorf("workout day options (-want +got):\n%s", diff)
	}
	if len(options.BodyParts) == 0 || len(options.Equipment) == 0 || len(options.SkillLevels) != 3 {
		t.Errorf("options = %+v", options)
	}
}
