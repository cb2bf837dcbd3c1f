package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		shared = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(app.recoverPanic(secureHeaders(app.timeout(next))))
		}
		identified = func(next http.HandlerFunc) http.Handler {
			return shared(app.mustIdentify(next))
		}
	)

	mux.Handle("GET /api/healthy", shared(http.HandlerFunc(app.healthy)))
	mux.Handle("POST /api/users", shared(http.HandlerFunc(app.userCreatePOST)))
	mux.Handle("GET /api/users/me", identified(app.userGET))

	mux.Handle("POST /api/workouts/generate", identified(app.workoutGeneratePOST))
	mux.Handle("GET /api/workouts/current", identified(app.workoutCurrentGET))
	mux.Handle("GET /api/workouts/active-info", identified(app.workoutActiveInfoGET))
	mux.Handle("GET /api/workouts/history", identified(app.planHistoryGET))
	mux.Handle("GET /api/workouts/{id}", identified(app.workoutGET))
	mux.Handle("PUT /api/workouts/{id}/activate", identified(app.workoutActivatePUT))
	mux.Handle("PUT /api/workouts/{id}/status", identified(app.workoutStatusPUT))
	mux.Handle("POST /api/workouts/{id}/refresh", identified(app.workoutRefreshPOST))
	mux.Handle("POST /api/workouts/{id}/refresh-incomplete", identified(app.workoutRefreshIncompletePOST))
	mux.Handle("POST /api/workouts/{id}/days/{day}/refresh", identified(app.dayRefreshPOST))
	mux.Handle("POST /api/workouts/{id}/days/{day}/refresh-uncompleted", identified(app.dayRefreshUncompletedPOST))
	mux.Handle("GET /api/workouts/sessions/{id}", identified(app.sessionGET))
	mux.Handle("PUT /api/workouts/exercises/{id}/complete", identified(app.exerciseCompletePUT))
	mux.Handle("PUT /api/workouts/exercises/{id}/uncomplete", identified(app.exerciseUncompletePUT))
	mux.Handle("POST /api/workouts/exercises/{id}/replace", identified(app.exerciseReplacePOST))

	mux.Handle("GET /api/preferences", identified(app.preferencesGET))
	mux.Handle("PUT /api/preferences", identified(app.preferencesPUT))
	mux.Handle("GET /api/preferences/options", identified(app.preferenceOptionsGET))

	mux.Handle("GET /api/exercises", identified(app.exercisesGET))
	mux.Handle("GET /api/exercises/filters", identified(app.exerciseFiltersGET))
	mux.Handle("GET /api/exercises/{id}", identified(app.exerciseGET))
	mux.Handle("POST /api/exercises/{id}/rate", identified(app.exerciseRatePOST))
	mux.Handle("GET /api/exercises/{id}/rating", identified(app.exerciseRatingGET))
	mux.Handle("DELETE /api/exercises/{id}/rating", identified(app.exerciseRatingDELETE))

	mux.Handle("GET /api/stats", identified(app.statsGET))
	mux.Handle("GET /api/stats/history", identified(app.planHistoryGET))

	mux.Handle("/", shared(http.HandlerFunc(app.notFound)))

	return mux
}
