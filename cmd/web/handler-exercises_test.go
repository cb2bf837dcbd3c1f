package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/fitorfail/fitorfail/internal/ptr"
)

func Test_application_catalog(t *testing.T) {
	server := startServer(t)
	client, _ := signUp(t, server, "ada", "")

	var list exerciseListResponse
	mustJSON(t, client, http.MethodGet, "/api/exercises?bodyPart=Chest&limit=2", nil, &list, http.StatusOK)
	if len(list.Exercises) != 2 || list.Pagination.Limit != 2 || list.Pagination.Total < 2 {
		t.Fatalf("exercise list = %+v", list)
	}
	for _, e := range list.Exercises {
		if e.BodyPart != "Chest" || e.DescriptionHTML != "" {
			t.Errorf("listed exercise %+v", e)
		}
	}
	mustJSON(t, client, http.MethodGet, "/api/exercises?offset=-1", nil, nil, http.StatusBadRequest)

	var filters filterOptionsResponse
	mustJSON(t, client, http.MethodGet, "/api/exercises/filters", nil, &filters, http.StatusOK)
	if len(filters.BodyParts) == 0 || len(filters.Categories) == 0 || len(filters.Levels) != 3 {
		t.Errorf("filters = %+v", filters)
	}

	var exercise exerciseResponse
	mustJSON(t, client, http.MethodGet, "/api/exercises/1", nil, &exercise, http.StatusOK)
	if !strings.Contains(exercise.DescriptionHTML, "<strong>chest</strong>") ||
		!strings.Contains(exercise.DescriptionHTML, "<li>") {
		t.Errorf("description HTML = %q", exercise.DescriptionHTML)
	}
	mustJSON(t, client, http.MethodGet, "/api/exercises/100000", nil, nil, http.StatusNotFound)
	mustJSON(t, client, http.MethodGet, "/api/exercises/zero", nil, nil, http.StatusNotFound)
}

func Test_application_ratings(t *testing.T) {
	server := startServer(t)
	client, _ := signUp(t, server, "ada", "")

	mustJSON(t, client, http.MethodGet, "/api/exercises/1/rating", nil, nil, http.StatusNotFound)

	var rating ratingResponse
	mustJSON(t, client, http.MethodPost, "/api/exercises/1/rate", rateRequest{Rating: ptr.Ref(4), Notes: "solid"},
		&rating, http.StatusOK)
	if rating.ExerciseID != 1 || rating.Rating != 4 || rating.Notes != "solid" {
		t.Errorf("rating = %+v", rating)
	}
	mustJSON(t, client, http.MethodGet, "/api/exercises/1/rating", nil, &rating, http.StatusOK)
	if rating.Rating != 4 {
		t.Errorf("stored rating = %d, want 4", rating.Rating)
	}

	mustJSON(t, client, http.MethodPost, "/api/exercises/1/rate", rateRequest{Rating: ptr.Ref(7)}, nil,
		http.StatusBadRequest)
	mustJSON(t, client, http.MethodPost, "/api/exercises/1/rate", map[string]string{"notes": "no rating"}, nil,
		http.StatusBadRequest)
	mustJSON(t, client, http.MethodPost, "/api/exercises/100000/rate", rateRequest{Rating: ptr.Ref(4)}, nil,
		http.StatusNotFound)

	mustJSON(t, client, http.MethodDelete, "/api/exercises/1/rating", nil, nil, http.StatusNoContent)
	mustJSON(t, client, http.MethodDelete, "/api/exercises/1/rating", nil, nil, http.StatusNotFound)
}
