// Package store defines the persistence ports the rest of the application
// consumes. Implementations: the SQLite repository in internal/storage and
// the in-memory store in store/memory.
//
// Document paths follow the original layout: users/{uid},
// users/{uid}/expenses, users/{uid}/incomes,
// users/{uid}/monthlyPayments/{YYYY-MM}, users/{uid}/config/dashboard.
package store

import (
	"context"
	"errors"
	"time"

	"gastos/internal/core"
)

// ErrNotFound is returned when a document or record does not exist.
var ErrNotFound = errors.New("not found")

type (
	// RecordStore holds the user-scoped expense and income collections.
	RecordStore interface {
		// PutRecord creates or updates a record. A record with an empty ID
		// gets a server-assigned one; the stored record is returned.
		PutRecord(ctx context.Context, uid, collection string, r core.Record) (core.Record, error)

		// DeleteRecord removes a record permanently.
		DeleteRecord(ctx context.Context, uid, collection, id string) error

		// ListRecords returns the complete collection ordered descending by
		// timestamp, the order snapshots and recency logic rely on.
		ListRecords(ctx context.Context, uid, collection string) ([]core.Record, error)
	}

	// PaymentStore holds the per-month payment array documents.
	PaymentStore interface {
		// ReadPaymentMonth returns the month document, or an empty one
		// (not ErrNotFound) when nothing was written yet.
		ReadPaymentMonth(ctx context.Context, uid, month string) (core.PaymentMonth, error)

		// WritePaymentMonth replaces the whole document. Callers do
		// read-modify-write on the payments array; last write wins.
		WritePaymentMonth(ctx context.Context, uid string, doc core.PaymentMonth) error
	}

	UserStore interface {
		GetUser(ctx context.Context, uid string) (core.User, error)
		PutUser(ctx context.Context, u core.User) error
		ListUsers(ctx context.Context) ([]core.User, error)

		// TouchActivity raises last_activity to at if it is later than the
		// stored value.
		TouchActivity(ctx context.Context, uid string, at time.Time) error

		// PutMonthlyTotals replaces the cached totals map.
		PutMonthlyTotals(ctx context.Context, uid string, totals map[string]core.MonthTotals) error
	}

	ConfigStore interface {
		ReadDashboardConfig(ctx context.Context, uid string) (core.DashboardConfig, error)
		WriteDashboardConfig(ctx context.Context, uid string, cfg core.DashboardConfig) error
	}

	// SessionStore backs the bearer-token route guard.
	SessionStore interface {
		CreateSession(ctx context.Context, token, uid string, expiresAt time.Time) error

		// SessionUser resolves a token to its user; expired or unknown
		// tokens return ErrNotFound.
		SessionUser(ctx context.Context, token string) (core.User, error)

		DeleteSession(ctx context.Context, token string) error

		// Credential returns the stored password hash for a user.
		Credential(ctx context.Context, uid string) (string, error)
		SetCredential(ctx context.Context, uid, hash string) error
	}

	// Store is the full persistence surface.
	Store interface {
		RecordStore
		PaymentStore
		UserStore
		ConfigStore
		SessionStore
	}
)
