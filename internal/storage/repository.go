package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/store"
)

// SQLiteRepository implements store.Store on a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) PutRecord(ctx context.Context, uid, collection string, rec core.Record) (core.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (id, uid, collection, amount, currency, ts, description,
			category, payment_method, bank, card_network, month, year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			currency = excluded.currency,
			ts = excluded.ts,
			description = excluded.description,
			category = excluded.category,
			payment_method = excluded.payment_method,
			bank = excluded.bank,
			card_network = excluded.card_network,
			month = excluded.month,
			year = excluded.year`,
		rec.ID, uid, collection, rec.Amount, string(rec.Currency), rec.Timestamp.UTC(),
		rec.Description, rec.Category, string(rec.PaymentMethod), rec.Bank,
		rec.CardNetwork, rec.Month, rec.Year)
	if err != nil {
		return core.Record{}, fmt.Errorf("put record: %w", err)
	}

	slog.DebugContext(ctx, "Record saved",
		applog.FieldUID, uid,
		applog.FieldCollection, collection,
		applog.FieldRecordID, rec.ID,
		applog.FieldAmount, rec.Amount,
		applog.FieldCurrency, rec.Currency)

	return rec, nil
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, uid, collection, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE id = ? AND uid = ? AND collection = ?`,
		id, uid, collection)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListRecords(ctx context.Context, uid, collection string) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount, currency, ts, description, category,
			payment_method, bank, card_network, month, year
		FROM records
		WHERE uid = ? AND collection = ?
		ORDER BY ts DESC, rowid ASC`,
		uid, collection)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var rec core.Record
		var currency, method string
		if err := rows.Scan(&rec.ID, &rec.Amount, &currency, &rec.Timestamp,
			&rec.Description, &rec.Category, &method, &rec.Bank,
			&rec.CardNetwork, &rec.Month, &rec.Year); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Currency = core.Currency(currency)
		rec.PaymentMethod = core.PaymentMethod(method)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ReadPaymentMonth(ctx context.Context, uid, month string) (core.PaymentMonth, error) {
	doc := core.PaymentMonth{Month: month}

	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT payments FROM monthly_payments WHERE uid = ? AND month = ?`,
		uid, month).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read payment month: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &doc.Payments); err != nil {
		return doc, fmt.Errorf("decode payments array: %w", err)
	}
	return doc, nil
}

func (r *SQLiteRepository) WritePaymentMonth(ctx context.Context, uid string, doc core.PaymentMonth) error {
	payments := doc.Payments
	if payments == nil {
		payments = []core.FixedPayment{}
	}
	raw, err := json.Marshal(payments)
	if err != nil {
		return fmt.Errorf("encode payments array: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO monthly_payments (uid, month, payments, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(uid, month) DO UPDATE SET
			payments = excluded.payments,
			updated_at = CURRENT_TIMESTAMP`,
		uid, doc.Month, string(raw))
	if err != nil {
		return fmt.Errorf("write payment month: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, uid string) (core.User, error) {
	var u core.User
	var totals string
	var lastActivity sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT uid, access_level, last_activity, monthly_totals FROM users WHERE uid = ?`,
		uid).Scan(&u.UID, &u.AccessLevel, &lastActivity, &totals)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}

	if lastActivity.Valid {
		u.LastActivity = lastActivity.Time
	}
	if totals != "" && totals != "{}" {
		if err := json.Unmarshal([]byte(totals), &u.MonthlyTotals); err != nil {
			return core.User{}, fmt.Errorf("decode monthly totals: %w", err)
		}
	}
	return u, nil
}

func (r *SQLiteRepository) PutUser(ctx context.Context, u core.User) error {
	totals := u.MonthlyTotals
	if totals == nil {
		totals = map[string]core.MonthTotals{}
	}
	raw, err := json.Marshal(totals)
	if err != nil {
		return fmt.Errorf("encode monthly totals: %w", err)
	}

	var lastActivity any
	if !u.LastActivity.IsZero() {
		lastActivity = u.LastActivity.UTC()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (uid, access_level, last_activity, monthly_totals)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			access_level = excluded.access_level,
			last_activity = excluded.last_activity,
			monthly_totals = excluded.monthly_totals`,
		u.UID, int(u.AccessLevel), lastActivity, string(raw))
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT uid, access_level, last_activity, monthly_totals FROM users ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		var totals string
		var lastActivity sql.NullTime
		if err := rows.Scan(&u.UID, &u.AccessLevel, &lastActivity, &totals); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if lastActivity.Valid {
			u.LastActivity = lastActivity.Time
		}
		if totals != "" && totals != "{}" {
			if err := json.Unmarshal([]byte(totals), &u.MonthlyTotals); err != nil {
				return nil, fmt.Errorf("decode monthly totals: %w", err)
			}
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) TouchActivity(ctx context.Context, uid string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_activity = ?
		WHERE uid = ? AND (last_activity IS NULL OR last_activity < ?)`,
		at.UTC(), uid, at.UTC())
	if err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	// Zero rows is fine: either the user is unknown or the stored value
	// is already newer. Distinguish the two for the caller.
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM users WHERE uid = ?`, uid).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
	}
	return nil
}

func (r *SQLiteRepository) PutMonthlyTotals(ctx context.Context, uid string, totals map[string]core.MonthTotals) error {
	if totals == nil {
		totals = map[string]core.MonthTotals{}
	}
	raw, err := json.Marshal(totals)
	if err != nil {
		return fmt.Errorf("encode monthly totals: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET monthly_totals = ? WHERE uid = ?`, string(raw), uid)
	if err != nil {
		return fmt.Errorf("put monthly totals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ReadDashboardConfig(ctx context.Context, uid string) (core.DashboardConfig, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT config FROM dashboard_config WHERE uid = ?`, uid).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DashboardConfig{}, store.ErrNotFound
	}
	if err != nil {
		return core.DashboardConfig{}, fmt.Errorf("read dashboard config: %w", err)
	}

	var cfg core.DashboardConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return core.DashboardConfig{}, fmt.Errorf("decode dashboard config: %w", err)
	}
	return cfg, nil
}

func (r *SQLiteRepository) WriteDashboardConfig(ctx context.Context, uid string, cfg core.DashboardConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode dashboard config: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dashboard_config (uid, config) VALUES (?, ?)
		ON CONFLICT(uid) DO UPDATE SET config = excluded.config`,
		uid, string(raw))
	if err != nil {
		return fmt.Errorf("write dashboard config: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, token, uid string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, uid, expires_at) VALUES (?, ?, ?)`,
		token, uid, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SessionUser(ctx context.Context, token string) (core.User, error) {
	var uid string
	err := r.db.QueryRowContext(ctx,
		`SELECT uid FROM sessions WHERE token = ? AND expires_at > ?`,
		token, time.Now().UTC()).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("resolve session: %w", err)
	}
	return r.GetUser(ctx, uid)
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Credential(ctx context.Context, uid string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE uid = ?`, uid).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	if hash == "" {
		return "", store.ErrNotFound
	}
	return hash, nil
}

func (r *SQLiteRepository) SetCredential(ctx context.Context, uid, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE uid = ?`, hash, uid)
	if err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PruneSessions deletes expired sessions; called periodically by the server.
func (r *SQLiteRepository) PruneSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
