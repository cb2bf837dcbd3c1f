package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/fitorfail/fitorfail/internal/planner"
)

type rateRequest struct {
	Rating *int   `json:"rating"`
	Notes  string `json:"notes"`
}

type filterOptionsResponse struct {
	BodyParts  []string `json:"bodyParts"`
	Equipment  []string `json:"equipment"`
	Levels     []string `json:"levels"`
	Categories []string `json:"categories"`
}

func (app *application) exercisesGET(w http.ResponseWriter, r *http.Request) {
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
	query := r.URL.Query()
	filter := planner.ExerciseFilter{
		BodyPart:  query.Get("bodyPart"),
		Equipment: query.Get("equipment"),
		Level:     planner.SkillLevel(query.Get("level")),
		Category:  planner.Category(query.Get("type")),
		Limit:     limit,
		Offset:    offset,
	}.Normalized()
	exercises, total, err := app.planner.ListExercises(r.Context(), filter)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	resp := exerciseListResponse{
		Exercises:  make([]exerciseResponse, 0, len(exercises)),
		Pagination: pagination{Total: total, Limit: filter.Limit, Offset: filter.Offset},
	}
	for _, e := range exercises {
		resp.Exercises = append(resp.Exercises, newExerciseResponse(e))
	}
	app.writeJSON(w, r, http.StatusOK, resp)
}

func (app *application) exerciseFiltersGET(w http.ResponseWriter, r *http.Request) {
	options, err := app.planner.ExerciseFilters(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	resp := filterOptionsResponse{
		BodyParts:  nonNil(options.BodyParts),
		Equipment:  nonNil(options.Equipment),
		Levels:     make([]string, 0, len(options.Levels)),
		Categories: make([]string, 0, len(options.Categories)),
	}
	for _, level := range options.Levels {
		resp.Levels = append(resp.Levels, string(level))
	}
	for _, category := range options.Categories {
		resp.Categories = append(resp.Categories, string(category))
	}
	app.writeJSON(w, r, http.StatusOK, resp)
}

// exerciseGET responds with the catalog exercise and its description rendered from Markdown.
func (app *application) exerciseGET(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	e, err := app.planner.GetExercise(ctx, id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	resp := newExerciseResponse(e)
	resp.DescriptionHTML = app.renderMarkdownToHTML(ctx, e.Description)
	app.writeJSON(w, r, http.StatusOK, resp)
}

// renderMarkdownToHTML converts markdown to HTML. Raw HTML in the source is omitted by goldmark's default
// renderer. On failure the error is logged and the markdown is returned unchanged.
func (app *application) renderMarkdownToHTML(ctx context.Context, markdown string) string {
	if markdown == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := app.markdown.Convert([]byte(markdown), &buf); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "failed to render markdown", slog.Any("error", err))
		return markdown
	}
	return buf.String()
}

func (app *application) exerciseRatePOST(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		app.badRequest(w, r, "invalid request body")
		return
	}
	if req.Rating == nil {
		app.badRequest(w, r, planner.ErrInvalidRating.Error())
		return
	}
	rating, err := app.planner.RateExercise(r.Context(), userID(r), id, *req.Rating, req.Notes)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newRatingResponse(rating))
}

func (app *application) exerciseRatingGET(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	rating, err := app.planner.GetRating(r.Context(), userID(r), id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newRatingResponse(rating))
}

func (app *application) exerciseRatingDELETE(w http.ResponseWriter, r *http.Request) {
	id, ok := app.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := app.planner.DeleteRating(r.Context(), userID(r), id); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
