package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devclub-edu/leaderboard/internal/models"
)

// Student handlers

func (s *Server) handleStudentLeaderboard(w http.ResponseWriter, r *http.Request) {
	domain := models.DomainNone
	if raw := r.URL.Query().Get("domain"); raw != "" {
		d, ok := models.ParseDomain(raw)
		if !ok {
			respondInvalidDomain(w)
			return
		}
		domain = d
	}

	entries, err := s.tracker.StudentLeaderboard(r.Context(), domain)
	if err != nil {
		respondServiceError(w, err, "list students")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": entries,
		"total":       len(entries),
	})
}

func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePointRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := s.tracker.SubmitRequest(r.Context(), UserFromContext(r.Context()), req)
	if err != nil {
		respondServiceError(w, err, "submit request")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Task request submitted successfully",
		"request": request,
	})
}

// Admin handlers

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.tracker.PendingRequests(r.Context())
	if err != nil {
		respondServiceError(w, err, "list requests")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    len(requests),
	})
}

func (s *Server) handleDecideRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.DecideRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	student, err := s.tracker.DecideRequest(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, err, "process request")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Request processed successfully",
		"status":    req.Status,
		"studentId": student.ID,
		"points":    student.Points,
	})
}

func (s *Server) handleAssignPoints(w http.ResponseWriter, r *http.Request) {
	var req models.AssignPointsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	student, err := s.tracker.AssignPoints(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "assign points")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Points assigned successfully",
		"userId":  student.ID,
		"points":  student.Points,
	})
}
