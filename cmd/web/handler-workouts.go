package main

import (
	"context"
	"net/http"

	"github.com/fitorfail/fitorfail/internal/errors"
	"github.com/fitorfail/fitorfail/internal/planner"
	"github.com/fitorfail/fitorfail/internal/ptr"
)

type generateRequest struct {
	WorkoutDays int `json:"workoutDays"`
}

type activateRequest struct {
	CancelExisting *bool `json:"cancelExisting"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type completeRequest struct {
	SetsCompleted *int `json:"setsCompleted"`
}

type refreshIncompleteResponse struct {
	RefreshedDays []int        `json:"refreshedDays"`
	Plan          planResponse `json:"plan"`
}

// workoutGeneratePOST generates a draft plan for the upcoming week. Omitting workoutDays uses the stored preference.
func (app *application) workoutGeneratePOST(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		app.badRequest(w, r, "invalid request body")
		return
	}
	plan, err := app.planner.GeneratePlan(r.Context(), userID(r), req.WorkoutDays)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, newPlanResponse(plan))
}

func (app *application) workoutCurrentGET(w http.ResponseWriter, r *http.Request) {
	plan, err := app.planner.GetCurrentPlan(r.Context(), userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newPlanResponse(plan))
}

// workoutActiveInfoGET responds with null when the user has no active plan.
func (app *application) workoutActiveInfoGET(w http.ResponseWriter, r *http.Request) {
	info, err := app.planner.ActivePlanInfo(r.Context(), userID(r))
	if errors.Is(err, planner.ErrNotFound) {
		app.writeJSON(w, r, http.StatusOK, nil)
		return
	}
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, activePlanInfoResponse{
		PlanID:             info.PlanID,
		WeekStartDate:      formatDate(info.WeekStartDate),
		CompletedExercises: info.CompletedExercises,
		TotalExercises:     info.TotalExercises,
	})
}

func (app *application) planHistoryGET(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		app.badRequest(w, r, err.Error())
		return
	}
	var offset int
	if offset, err = queryInt(r, "offset", 0); err != nil {
		app.badRequest(w, r, err.Error())
		return
	}
	opts := planner.PlanListOptions{
		Limit:            limit,
		Offset:           offset,
		IncludeCancelled: r.URL.Query().Get("includeCancelled") == "true",
	}.Normalized()
	summaries, total, err := app.planner.ListPlans(r.Context(), userID(r), opts)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	plans := make([]planSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		plans = append(plans, planSummaryResponse{
			ID:                 s.ID,
			WeekStartDate:      formatDate(s.WeekStartDate),
			WorkoutDays:        s.WorkoutDays,
			Status:             string(s.Status),
			CreatedAt:          formatTime(s.CreatedAt),
			TotalExercises:     s.TotalExercises,
			CompletedExercises: s.CompletedExercises,
			CompletionPercent:  s.CompletionPercent,
		})
	}
	app.writeJSON(w, r, http.StatusOK, planHistoryResponse{
		Plans:      plans,
		Pagination: pagination{Total: total, Limit: opts.Limit, Offset: opts.Offset},
	})
}

func (app *application) workoutGET(w http.ResponseWriter, r *http.Request) {
	planID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	plan, err := app.planner.GetPlan(r.Context(), planID, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newPlanResponse(plan))
}

// workoutActivatePUT activates a draft plan. Other active plans are cancelled unless cancelExisting is false.
func (app *application) workoutActivatePUT(w http.ResponseWriter, r *http.Request) {
	planID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	var req activateRequest
	if err := decodeJSON(r, &req); err != nil {
		app.badRequest(w, r, "invalid request body")
		return
	}
	cancelExisting := ptr.ValueOr(req.CancelExisting, true)
	ctx := r.Context()
	if err := app.planner.ActivatePlan(ctx, planID, userID(r), cancelExisting); err != nil {
		app.handleError(w, r, err)
		return
	}
	plan, err := app.planner.GetPlan(ctx, planID, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newPlanResponse(plan))
}

func (app *application) workoutStatusPUT(w http.ResponseWriter, r *http.Request) {
	planID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		app.badRequest(w, r, "invalid request body")
		return
	}
	ctx := r.Context()
	if err := app.planner.SetPlanStatus(ctx, planID, userID(r), planner.PlanStatus(req.Status)); err != nil {
		app.handleError(w, r, err)
		return
	}
	plan, err := app.planner.GetPlan(ctx, planID, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newPlanResponse(plan))
}

func (app *application) workoutRefreshPOST(w http.ResponseWriter, r *http.Request) {
	planID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	plan, err := app.planner.RefreshPlan(r.Context(), planID, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newPlanResponse(plan))
}

func (app *application) workoutRefreshIncompletePOST(w http.ResponseWriter, r *http.Request) {
	planID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	days, err := app.planner.RefreshIncompleteDays(ctx, planID, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	plan, err := app.planner.GetPlan(ctx, planID, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, refreshIncompleteResponse{RefreshedDays: nonNil(days), Plan: newPlanResponse(plan)})
}

func (app *application) dayRefreshPOST(w http.ResponseWriter, r *http.Request) {
	app.refreshDay(w, r, app.planner.RefreshDay)
}

func (app *application) dayRefreshUncompletedPOST(w http.ResponseWriter, r *http.Request) {
	app.refreshDay(w, r, app.planner.RefreshUncompletedExercises)
}

func (app *application) refreshDay(
	w http.ResponseWriter,
	r *http.Request,
	refresh func(ctx context.Context, planID, dayNumber, userID int) (planner.Day, error),
) {
	planID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	dayNumber, ok := app.pathID(w, r, "day")
	if !ok {
		return
	}
	day, err := refresh(r.Context(), planID, dayNumber, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newDayResponse(day))
}

func (app *application) sessionGET(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	day, err := app.planner.GetSession(r.Context(), sessionID, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newDayResponse(day))
}

func (app *application) exerciseCompletePUT(w http.ResponseWriter, r *http.Request) {
	seID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		app.badRequest(w, r, "invalid request body")
		return
	}
	if req.SetsCompleted != nil && *req.SetsCompleted < 0 {
		app.badRequest(w, r, "setsCompleted must not be negative")
		return
	}
	se, err := app.planner.CompleteExercise(r.Context(), seID, userID(r), req.SetsCompleted)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newSessionExerciseResponse(se))
}

func (app *application) exerciseUncompletePUT(w http.ResponseWriter, r *http.Request) {
	seID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	se, err := app.planner.UncompleteExercise(r.Context(), seID, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newSessionExerciseResponse(se))
}

func (app *application) exerciseReplacePOST(w http.ResponseWriter, r *http.Request) {
	seID, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	se, err := app.planner.ReplaceExercise(r.Context(), seID, userID(r))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newSessionExerciseResponse(se))
}
