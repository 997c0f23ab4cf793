package api

import (
	"net/http"

	"github.com/devclub-edu/leaderboard/internal/models"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.tracker.Signup(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "register user")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    models.ProfileOf(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.tracker.Login(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "log in")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.ProfileOf(UserFromContext(r.Context())))
}
