package main

import (
	"net/http"

	"github.com/fitorfail/fitorfail/internal/planner"
)

type updatePreferencesRequest struct {
	WorkoutDays        *int      `json:"workoutDays"`
	PreferredEquipment *[]string `json:"preferredEquipment"`
	AvoidedBodyParts   *[]string `json:"avoidedBodyParts"`
	SkillLevel         *string   `json:"skillLevel"`
}

type preferenceOptionsResponse struct {
	Equipment   []string `json:"equipment"`
	BodyParts   []string `json:"bodyParts"`
	WorkoutDays []int    `json:"workoutDays"`
	SkillLevels []string `json:"skillLevels"`
}

func (app *application) preferencesGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := app.planner.GetUser(ctx, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	prefs, err := app.planner.GetPreferences(ctx, user.ID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newPreferencesResponse(user, prefs))
}

func (app *application) preferencesPUT(w http.ResponseWriter, r *http.Request) {
	var req updatePreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		app.badRequest(w, r, "invalid request body")
		return
	}
	update := planner.PreferencesUpdate{
		WorkoutDays:        req.WorkoutDays,
		PreferredEquipment: req.PreferredEquipment,
		AvoidedBodyParts:   req.AvoidedBodyParts,
		SkillLevel:         nil,
	}
	if req.SkillLevel != nil {
		level := planner.SkillLevel(*req.SkillLevel)
		update.SkillLevel = &level
	}
	user, prefs, err := app.planner.UpdatePreferences(r.Context(), userID(r), update)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newPreferencesResponse(user, prefs))
}

func (app *application) preferenceOptionsGET(w http.ResponseWriter, r *http.Request) {
	options, err := app.planner.PreferenceOptions(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	levels := make([]string, 0, len(options.SkillLevels))
	for _, level := range options.SkillLevels {
		levels = append(levels, string(level))
	}
	app.writeJSON(w, r, http.StatusOK, preferenceOptionsResponse{
		Equipment:   nonNil(options.Equipment),
		BodyParts:   nonNil(options.BodyParts),
		WorkoutDays: options.WorkoutDays,
		SkillLevels: levels,
	})
}
