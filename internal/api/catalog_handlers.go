package api

import (
	"net/http"
)

// Catalog handlers expose the per-domain task checklists

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains := s.templateLoader.ListDomains()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"domains": domains,
		"total":   len(domains),
	})
}

func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainParam(w, r)
	if !ok {
		return
	}

	info := s.templateLoader.GetDomain(domain)
	if info == nil {
		respondError(w, http.StatusNotFound, "not_found", "domain not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"domain": info,
		"tasks":  s.templateLoader.Tasks(domain),
	})
}
