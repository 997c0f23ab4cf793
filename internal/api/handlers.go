package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/devclub-edu/leaderboard/internal/leaderboard"
	"github.com/devclub-edu/leaderboard/internal/tracker"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

const (
	unavailableMessage = "Leaderboard service is currently unavailable. Please try again later."
	cooldownMessage    = "You have already sent a request today."
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	})
}

func writeResponse(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads the request body into v, answering 400 on malformed input
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// respondServiceError maps tracker and synchronizer errors to HTTP responses
func respondServiceError(w http.ResponseWriter, err error, action string) {
	var validation *tracker.ValidationError
	var cooldown *tracker.CooldownError
	var syncErr *leaderboard.SyncError

	switch {
	case errors.As(err, &validation):
		writeResponse(w, http.StatusBadRequest, apiResponse{
			Error: &apiError{
				Code:    "validation_error",
				Message: validation.Error(),
				Fields:  validation.Fields,
			},
		})
	case errors.As(err, &cooldown):
		respondError(w, http.StatusBadRequest, "rate_limited", cooldownMessage)
	case errors.Is(err, tracker.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email_taken", "Email already registered")
	case errors.Is(err, tracker.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
	case errors.Is(err, tracker.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "unauthorized", "Token is not valid")
	case errors.Is(err, tracker.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, tracker.ErrTaskNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Task not found")
	case errors.Is(err, tracker.ErrRequestNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Request not found")
	case errors.Is(err, tracker.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, leaderboard.ErrNotInitialized):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", unavailableMessage)
	case errors.As(err, &syncErr):
		slog.Error("leaderboard backend error", "error", err)
		writeResponse(w, http.StatusServiceUnavailable, apiResponse{
			Data: []struct{}{},
			Error: &apiError{
				Code:    "service_unavailable",
				Message: unavailableMessage,
			},
		})
	default:
		slog.Error("request failed", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.registry.HealthCheckAll(r.Context())

	checks := make(map[string]string, len(results)+1)
	providers := make(map[string]string, len(results))
	for _, name := range s.registry.List() {
		if err := results[name]; err != nil {
			slog.Warn("readiness check failed", "component", name, "error", err)
			respondError(w, http.StatusServiceUnavailable, "not_ready", name+" not ready")
			return
		}
		checks[name] = "ok"
		if p := s.registry.Get(name); p != nil {
			providers[name] = p.Type()
		}
	}

	sheets := "not_initialized"
	if s.mirror != nil && s.mirror.Initialized() {
		sheets = "ok"
	}
	checks["sheets"] = sheets

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"checks":    checks,
		"providers": providers,
	})
}
