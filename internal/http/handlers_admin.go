package http

import (
	"net/http"

	"gastos/internal/core"
)

// handleAdminUsers returns every user with last activity and cached monthly
// totals. Gated by requireAdmin at the route level.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, _ authedUser) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
