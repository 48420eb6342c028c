package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gastos/internal/core"
	"gastos/internal/store"
)

var ErrBadCredentials = errors.New("invalid credentials")

// AuthService issues and resolves bearer session tokens. Passwords are
// stored as bcrypt hashes; unknown users fail with the same error as a wrong
// password.
type AuthService struct {
	users    store.UserStore
	sessions store.SessionStore
	ttl      time.Duration
}

func NewAuthService(users store.UserStore, sessions store.SessionStore, ttl time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
	}
}

// Register creates a user with the given access level and password.
func (s *AuthService) Register(ctx context.Context, uid, password string, level core.AccessLevel) error {
	if uid == "" || password == "" {
		return fmt.Errorf("register: uid and password are required")
	}
	if !level.Valid() {
		return fmt.Errorf("register: invalid access level %d", level)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.PutUser(ctx, core.User{UID: uid, AccessLevel: level}); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if err := s.sessions.SetCredential(ctx, uid, string(hash)); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// Login verifies the password and returns a fresh session token.
func (s *AuthService) Login(ctx context.Context, uid, password string) (string, error) {
	hash, err := s.sessions.Credential(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrBadCredentials
	}

	token := uuid.NewString()
	if err := s.sessions.CreateSession(ctx, token, uid, time.Now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	if err := s.users.TouchActivity(ctx, uid, time.Now().UTC()); err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("touch activity: %w", err)
	}

	return token, nil
}

// Resolve maps a bearer token to its user. Expired or unknown tokens return
// store.ErrNotFound.
func (s *AuthService) Resolve(ctx context.Context, token string) (core.User, error) {
	return s.sessions.SessionUser(ctx, token)
}

// Logout invalidates a session token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}
