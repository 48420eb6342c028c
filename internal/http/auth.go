package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gastos/internal/core"
	"gastos/internal/store"
)

// authedUser is the resolved session passed to protected handlers.
type authedUser struct {
	core.User
	token string
}

type authedHandler func(http.ResponseWriter, *http.Request, authedUser)

// requireUser resolves the bearer token and rejects the request when it is
// missing, unknown or expired.
func (s *Server) requireUser(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		u, err := s.auth.Resolve(r.Context(), token)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		next(w, r, authedUser{User: u, token: token})
	}
}

// requireAdmin additionally gates on access level 0.
func (s *Server) requireAdmin(next authedHandler) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, u authedUser) {
		if !u.AccessLevel.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r, u)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

type loginRequest struct {
	UID      string `json:"uid"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string           `json:"token"`
	UID         string           `json:"uid"`
	AccessLevel core.AccessLevel `json:"accessLevel"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UID = sanitizeInput(req.UID)

	token, err := s.auth.Login(r.Context(), req.UID, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	u, err := s.auth.Resolve(r.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:       token,
		UID:         u.UID,
		AccessLevel: u.AccessLevel,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, u authedUser) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.auth.Logout(r.Context(), u.token); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
