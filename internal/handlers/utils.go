package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	contextUserIDKey contextKey = "user_id"
	contextRoleKey   contextKey = "role"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func userIDFromContext(ctx context.Context) (uuid.UUID, error) {
	value, ok := ctx.Value(contextUserIDKey).(uuid.UUID)
	if !ok || value == uuid.Nil {
		return uuid.Nil, errors.New("missing subject")
	}
	return value, nil
}

func roleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(contextRoleKey).(string)
	return role
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// parseDateParam reads a required YYYY-MM-DD query parameter.
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.New("missing " + name + " parameter")
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, errors.New("invalid " + name + " parameter")
	}
	return date, nil
}
