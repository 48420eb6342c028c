package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"gastos/internal/core"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, u authedUser) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.dashboards.View(r.Context(), u.UID, f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDashboardConfig(w http.ResponseWriter, r *http.Request, u authedUser) {
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.dashboards.Config(r.Context(), u.UID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	case http.MethodPut:
		var cfg core.DashboardConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cfg.Locale = strings.TrimSpace(cfg.Locale)
		if err := s.dashboards.SetConfig(r.Context(), u.UID, cfg); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	default:
		w.Header().Set("Allow", "GET, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
