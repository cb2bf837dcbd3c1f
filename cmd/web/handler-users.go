package main

import (
	"net/http"

	"github.com/fitorfail/fitorfail/internal/planner"
)

type createUserRequest struct {
	Username   string `json:"username"`
	SkillLevel string `json:"skillLevel"`
}

// userCreatePOST registers the user record that plans are generated for. Authentication happens upstream.
func (app *application) userCreatePOST(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		app.badRequest(w, r, "invalid request body")
		return
	}
	user, err := app.planner.CreateUser(r.Context(), req.Username, planner.SkillLevel(req.SkillLevel))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, newUserResponse(user))
}

func (app *application) userGET(w http.ResponseWriter, r *http.Request) {
	user, err := app.planner.GetUser(r.Context(), userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newUserResponse(user))
}
