package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gastos/internal/live"
	applog "gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/store"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Server is the JSON API in front of the record, payment, dashboard and
// auth services, plus the live snapshot stream.
type Server struct {
	http.Server

	records    *services.RecordService
	payments   *services.PaymentService
	dashboards *services.DashboardService
	auth       *services.AuthService
	users      store.UserStore
	hub        *live.Hub

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Options carries the dependencies and tunables for NewServer.
type Options struct {
	Addr       string
	Records    *services.RecordService
	Payments   *services.PaymentService
	Dashboards *services.DashboardService
	Auth       *services.AuthService
	Users      store.UserStore
	Hub        *live.Hub

	// ReceiptDir, when set, is served read-only under /receipts/.
	ReceiptDir string

	// RateLimit is the per-IP mutating requests per minute. Zero means 60.
	RateLimit int
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	limit := opts.RateLimit
	if limit <= 0 {
		limit = 60
	}

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		records:     opts.Records,
		payments:    opts.Payments,
		dashboards:  opts.Dashboards,
		auth:        opts.Auth,
		users:       opts.Users,
		hub:         opts.Hub,
		rateLimiter: newRateLimiter(limit),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/login", s.withCommon(s.handleLogin))
	mux.HandleFunc("/api/logout", s.withCommon(s.requireUser(s.handleLogout)))

	mux.HandleFunc("/api/expenses", s.withCommon(s.requireUser(s.handleRecords)))
	mux.HandleFunc("/api/incomes", s.withCommon(s.requireUser(s.handleRecords)))

	mux.HandleFunc("/api/dashboard", s.withCommon(s.requireUser(s.handleDashboard)))
	mux.HandleFunc("/api/config/dashboard", s.withCommon(s.requireUser(s.handleDashboardConfig)))

	mux.HandleFunc("/api/payments", s.withCommon(s.requireUser(s.handlePayments)))
	mux.HandleFunc("/api/payments/paid", s.withCommon(s.requireUser(s.handlePaymentPaid)))
	mux.HandleFunc("/api/payments/receipt", s.withCommon(s.requireUser(s.handlePaymentReceipt)))

	mux.HandleFunc("/api/events", s.withCommon(s.requireUser(s.handleEvents)))

	mux.HandleFunc("/api/admin/users", s.withCommon(s.requireAdmin(s.handleAdminUsers)))

	if opts.ReceiptDir != "" {
		files := http.StripPrefix("/receipts/", http.FileServer(http.Dir(opts.ReceiptDir)))
		mux.Handle("/receipts/", s.withCommon(s.requireUser(func(w http.ResponseWriter, r *http.Request, _ authedUser) {
			files.ServeHTTP(w, r)
		})))
	}

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withCommon adds security headers, rate limiting on mutating methods, and
// request logging.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer so SSE keeps working through the
// status-capturing wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
