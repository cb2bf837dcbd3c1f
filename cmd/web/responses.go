package main

import (
	"time"

	"github.com/fitorfail/fitorfail/internal/planner"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

type exerciseResponse struct {
	ID                int      `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	DescriptionHTML   string   `json:"descriptionHtml,omitempty"`
	Category          string   `json:"category"`
	BodyPart          string   `json:"bodyPart"`
	Equipment         string   `json:"equipment"`
	Level             string   `json:"level"`
	Rating            *float64 `json:"rating"`
	RatingDescription string   `json:"ratingDescription"`
}

type sessionExerciseResponse struct {
	ID          int              `json:"id"`
	SessionID   int              `json:"sessionId"`
	OrderIndex  int              `json:"orderIndex"`
	Sets        int              `json:"sets"`
	Reps        string           `json:"reps"`
	Completed   bool             `json:"completed"`
	CompletedAt *string          `json:"completedAt"`
	Exercise    exerciseResponse `json:"exercise"`
}

type dayResponse struct {
	SessionID      int                       `json:"sessionId"`
	PlanID         int                       `json:"planId"`
	DayNumber      int                       `json:"dayNumber"`
	DayName        string                    `json:"dayName"`
	FocusBodyParts []string                  `json:"focusBodyParts"`
	Exercises      []sessionExerciseResponse `json:"exercises"`
}

type planResponse struct {
	ID            int           `json:"id"`
	UserID        int           `json:"userId"`
	WeekStartDate string        `json:"weekStartDate"`
	WorkoutDays   int           `json:"workoutDays"`
	Status        string        `json:"status"`
	CreatedAt     string        `json:"createdAt"`
	Days          []dayResponse `json:"days"`
}

type userResponse struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	SkillLevel string `json:"skillLevel"`
	CreatedAt  string `json:"createdAt"`
}

type preferencesResponse struct {
	WorkoutDays        int      `json:"workoutDays"`
	PreferredEquipment []string `json:"preferredEquipment"`
	AvoidedBodyParts   []string `json:"avoidedBodyParts"`
	SkillLevel         string   `json:"skillLevel"`
	UpdatedAt          *string  `json:"updatedAt"`
}

type ratingResponse struct {
	ExerciseID int    `json:"exerciseId"`
	Rating     int    `json:"rating"`
	Notes      string `json:"notes"`
	UpdatedAt  string `json:"updatedAt"`
}

type activePlanInfoResponse struct {
	PlanID             int    `json:"planId"`
	WeekStartDate      string `json:"weekStartDate"`
	CompletedExercises int    `json:"completedExercises"`
	TotalExercises     int    `json:"totalExercises"`
}

type planSummaryResponse struct {
	ID                 int    `json:"id"`
	WeekStartDate      string `json:"weekStartDate"`
	WorkoutDays        int    `json:"workoutDays"`
	Status             string `json:"status"`
	CreatedAt          string `json:"createdAt"`
	TotalExercises     int    `json:"totalExercises"`
	CompletedExercises int    `json:"completedExercises"`
	CompletionPercent  int    `json:"completionPercent"`
}

type pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type planHistoryResponse struct {
	Plans      []planSummaryResponse `json:"plans"`
	Pagination pagination            `json:"pagination"`
}

type exerciseListResponse struct {
	Exercises  []exerciseResponse `json:"exercises"`
	Pagination pagination         `json:"pagination"`
}

type exerciseCountResponse struct {
	ExerciseID int    `json:"exerciseId"`
	Title      string `json:"title"`
	Count      int    `json:"count"`
}

type bodyPartCountResponse struct {
	BodyPart string `json:"bodyPart"`
	Count    int    `json:"count"`
}

type dailyActivityResponse struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type statsResponse struct {
	TotalPlans         int                     `json:"totalPlans"`
	ActivePlans        int                     `json:"activePlans"`
	CompletedPlans     int                     `json:"completedPlans"`
	TotalExercises     int                     `json:"totalExercises"`
	CompletedExercises int                     `json:"completedExercises"`
	CompletedThisWeek  int                     `json:"completedThisWeek"`
	CurrentStreak      int                     `json:"currentStreak"`
	LongestStreak      int                     `json:"longestStreak"`
	TopExercises       []exerciseCountResponse `json:"topExercises"`
	TopBodyParts       []bodyPartCountResponse `json:"topBodyParts"`
	RecentActivity     []dailyActivityResponse `json:"recentActivity"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatOptionalTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	formatted := formatTime(t)
	return &formatted
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// nonNil keeps empty lists serialised as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func newExerciseResponse(e planner.Exercise) exerciseResponse {
	return exerciseResponse{
		ID:                e.ID,
		Title:             e.Title,
		Description:       e.Description,
		DescriptionHTML:   "",
		Category:          string(e.Category),
		BodyPart:          e.BodyPart,
		Equipment:         e.Equipment,
		Level:             string(e.Level),
		Rating:            e.Rating,
		RatingDescription: e.RatingDescription,
	}
}

func newSessionExerciseResponse(se planner.SessionExercise) sessionExerciseResponse {
	return sessionExerciseResponse{
		ID:          se.ID,
		SessionID:   se.SessionID,
		OrderIndex:  se.OrderIndex,
		Sets:        se.Sets,
		Reps:        se.Reps,
		Completed:   se.Completed,
		CompletedAt: formatOptionalTime(se.CompletedAt),
		Exercise:    newExerciseResponse(se.Exercise),
	}
}

func newDayResponse(d planner.Day) dayResponse {
	exercises := make([]sessionExerciseResponse, 0, len(d.Exercises))
	for _, se := range d.Exercises {
		exercises = append(exercises, newSessionExerciseResponse(se))
	}
	return dayResponse{
		SessionID:      d.SessionID,
		PlanID:         d.PlanID,
		DayNumber:      d.DayNumber,
		DayName:        d.DayName,
		FocusBodyParts: nonNil(d.FocusBodyParts),
		Exercises:      exercises,
	}
}

func newPlanResponse(p planner.WorkoutPlan) planResponse {
	days := make([]dayResponse, 0, len(p.Days))
	for _, d := range p.Days {
		days = append(days, newDayResponse(d))
	}
	return planResponse{
		ID:            p.ID,
		UserID:        p.UserID,
		WeekStartDate: formatDate(p.WeekStartDate),
		WorkoutDays:   p.WorkoutDays,
		Status:        string(p.Status),
		CreatedAt:     formatTime(p.CreatedAt),
		Days:          days,
	}
}

func newUserResponse(u planner.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		SkillLevel: string(u.SkillLevel),
		CreatedAt:  formatTime(u.CreatedAt),
	}
}

func newPreferencesResponse(u planner.User, p planner.Preferences) preferencesResponse {
	return preferencesResponse{
		WorkoutDays:        p.WorkoutDays,
		PreferredEquipment: nonNil(p.PreferredEquipment),
		AvoidedBodyParts:   nonNil(p.AvoidedBodyParts),
		SkillLevel:         string(u.SkillLevel),
		UpdatedAt:          formatOptionalTime(p.UpdatedAt),
	}
}

func newRatingResponse(r planner.Rating) ratingResponse {
	return ratingResponse{
		ExerciseID: r.ExerciseID,
		Rating:     r.Rating,
		Notes:      r.Notes,
		UpdatedAt:  formatTime(r.UpdatedAt),
	}
}

func newStatsResponse(s planner.Stats) statsResponse {
	topExercises := make([]exerciseCountResponse, 0, len(s.TopExercises))
	for _, e := range s.TopExercises {
		topExercises = append(topExercises, exerciseCountResponse{ExerciseID: e.ExerciseID, Title: e.Title, Count: e.Count})
	}
	topBodyParts := make([]bodyPartCountResponse, 0, len(s.TopBodyParts))
	for _, b := range s.TopBodyParts {
		topBodyParts = append(topBodyParts, bodyPartCountResponse{BodyPart: b.BodyPart, Count: b.Count})
	}
	activity := make([]dailyActivityResponse, 0, len(s.RecentActivity))
	for _, a := range s.RecentActivity {
		activity = append(activity, dailyActivityResponse{Date: formatDate(a.Date), Count: a.Count})
	}
	return statsResponse{
		TotalPlans:         s.TotalPlans,
		ActivePlans:        s.ActivePlans,
		CompletedPlans:     s.CompletedPlans,
		TotalExercises:     s.TotalExercises,
		CompletedExercises: s.CompletedExercises,
		CompletedThisWeek:  s.CompletedThisWeek,
		CurrentStreak:      s.CurrentStreak,
		LongestStreak:      s.LongestStreak,
		TopExercises:       topExercises,
		TopBodyParts:       topBodyParts,
		RecentActivity:     activity,
	}
}
