// Package memory is an in-memory implementation of the store ports, used by
// tests and local runs without a database file.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gastos/internal/core"
	"gastos/internal/store"
)

type session struct {
	uid       string
	expiresAt time.Time
}

type Store struct {
	mu          sync.Mutex
	records     map[string][]core.Record // key uid + "/" + collection
	payments    map[string]core.PaymentMonth
	users       map[string]core.User
	configs     map[string]core.DashboardConfig
	sessions    map[string]session
	credentials map[string]string
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		records:     make(map[string][]core.Record),
		payments:    make(map[string]core.PaymentMonth),
		users:       make(map[string]core.User),
		configs:     make(map[string]core.DashboardConfig),
		sessions:    make(map[string]session),
		credentials: make(map[string]string),
	}
}

func key(uid, sub string) string { return uid + "/" + sub }

func (s *Store) PutRecord(_ context.Context, uid, collection string, r core.Record) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	k := key(uid, collection)
	items := s.records[k]
	replaced := false
	for i := range items {
		if items[i].ID == r.ID {
			items[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, r)
	}
	sortDescending(items)
	s.records[k] = items
	return r, nil
}

func (s *Store) DeleteRecord(_ context.Context, uid, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(uid, collection)
	items := s.records[k]
	for i := range items {
		if items[i].ID == id {
			s.records[k] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListRecords(_ context.Context, uid, collection string) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.records[key(uid, collection)]
	out := make([]core.Record, len(items))
	copy(out, items)
	return out, nil
}

func (s *Store) ReadPaymentMonth(_ context.Context, uid, month string) (core.PaymentMonth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.payments[key(uid, month)]; ok {
		cp := doc
		cp.Payments = append([]core.FixedPayment(nil), doc.Payments...)
		return cp, nil
	}
	return core.PaymentMonth{Month: month}, nil
}

func (s *Store) WritePaymentMonth(_ context.Context, uid string, doc core.PaymentMonth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := doc
	cp.Payments = append([]core.FixedPayment(nil), doc.Payments...)
	s.payments[key(uid, doc.Month)] = cp
	return nil
}

func (s *Store) GetUser(_ context.Context, uid string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) PutUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UID] = u
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s *Store) TouchActivity(_ context.Context, uid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return store.ErrNotFound
	}
	if at.After(u.LastActivity) {
		u.LastActivity = at
		s.users[uid] = u
	}
	return nil
}

func (s *Store) PutMonthlyTotals(_ context.Context, uid string, totals map[string]core.MonthTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return store.ErrNotFound
	}
	u.MonthlyTotals = totals
	s.users[uid] = u
	return nil
}

func (s *Store) ReadDashboardConfig(_ context.Context, uid string) (core.DashboardConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[uid]
	if !ok {
		return core.DashboardConfig{}, store.ErrNotFound
	}
	return cfg, nil
}

func (s *Store) WriteDashboardConfig(_ context.Context, uid string, cfg core.DashboardConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[uid] = cfg
	return nil
}

func (s *Store) CreateSession(_ context.Context, token, uid string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{uid: uid, expiresAt: expiresAt}
	return nil
}

func (s *Store) SessionUser(_ context.Context, token string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || time.Now().After(sess.expiresAt) {
		return core.User{}, store.ErrNotFound
	}
	u, ok := s.users[sess.uid]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) Credential(_ context.Context, uid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, ok := s.credentials[uid]
	if !ok {
		return "", store.ErrNotFound
	}
	return hash, nil
}

func (s *Store) SetCredential(_ context.Context, uid, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[uid] = hash
	return nil
}

// sortDescending orders by timestamp, newest first. Equal timestamps keep
// their insertion order so the aggregator's tie-break stays stable.
func sortDescending(items []core.Record) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
}
