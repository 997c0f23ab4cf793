package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devclub-edu/leaderboard/internal/models"
)

func respondInvalidDomain(w http.ResponseWriter) {
	respondError(w, http.StatusBadRequest, "invalid_domain", "Invalid domain. Must be one of: webd, aiml, dsa")
}

// domainParam parses the {domain} path segment, answering 400 when unknown
func domainParam(w http.ResponseWriter, r *http.Request) (models.Domain, bool) {
	domain, ok := models.ParseDomain(chi.URLParam(r, "domain"))
	if !ok {
		respondInvalidDomain(w)
		return models.DomainNone, false
	}
	return domain, true
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainParam(w, r)
	if !ok {
		return
	}

	entries, err := s.tracker.Leaderboard(r.Context(), domain)
	if err != nil {
		respondServiceError(w, err, "load leaderboard")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"domain":      domain,
		"leaderboard": entries,
		"total":       len(entries),
	})
}

func (s *Server) handleDomainTasks(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainParam(w, r)
	if !ok {
		return
	}

	students, err := s.tracker.DomainTasks(r.Context(), domain)
	if err != nil {
		respondServiceError(w, err, "list tasks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"students": students,
		"total":    len(students),
	})
}
