package main

import (
	"net/http"
)

func (app *application) statsGET(w http.ResponseWriter, r *http.Request) {
	stats, err := app.planner.Stats(r.Context(), userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newStatsResponse(stats))
}
