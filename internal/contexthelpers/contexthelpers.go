// Package contexthelpers stores request identity in context.Context.
package contexthelpers

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userIDContextKey  = contextKey("userID")
	traceIDContextKey = contextKey("traceID")
)

// WithUserID returns a copy of r whose context identifies the calling user.
func WithUserID(r *http.Request, userID int) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDContextKey, userID))
}

// UserID returns the calling user's id and whether one was set.
func UserID(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int)
	return userID, ok
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey, traceID)
}

func TraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDContextKey).(string)
	return traceID
}
