package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/store"
)

// EventPublisher pushes record change notifications to the broker.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, event *amqp.RecordEvent) error
}

// ChangeNotifier wakes live subscriptions after a write.
type ChangeNotifier interface {
	Notify(uid, collection string)
}

// RecordInput carries raw form fields for a record submission. Amount is the
// user's locale-formatted text; Date is the form's calendar value.
type RecordInput struct {
	Amount        string
	Locale        string
	Currency      string
	Date          time.Time
	Description   string
	Category      string
	PaymentMethod string
	Bank          string
	CardNetwork   string
}

// RecordService is the write path for expenses and incomes: it normalizes
// and validates submissions, persists them, bumps the user's last activity,
// wakes live subscriptions, and publishes a change event. The event publish
// is best effort; a broker outage never fails the write.
type RecordService struct {
	records   store.RecordStore
	users     store.UserStore
	notifier  ChangeNotifier
	publisher EventPublisher
}

func NewRecordService(records store.RecordStore, users store.UserStore, notifier ChangeNotifier, publisher EventPublisher) *RecordService {
	return &RecordService{
		records:   records,
		users:     users,
		notifier:  notifier,
		publisher: publisher,
	}
}

// build normalizes a submission into a validated record. The amount is
// parsed with the user's locale and stored in canonical form.
func build(collection string, in RecordInput) (core.Record, error) {
	amount, err := core.ParseAmount(in.Locale, in.Amount)
	if err != nil {
		return core.Record{}, err
	}

	rec := core.Record{
		Amount:      amount.Canonical(),
		Currency:    core.Currency(in.Currency),
		Timestamp:   in.Date.UTC(),
		Description: in.Description,
		Category:    in.Category,
	}
	if collection == core.CollectionExpenses {
		rec.PaymentMethod = core.PaymentMethod(in.PaymentMethod)
		rec.Bank = in.Bank
		rec.CardNetwork = in.CardNetwork
		if rec.PaymentMethod == core.Cash {
			rec.Bank = ""
			rec.CardNetwork = ""
		}
	}
	rec.Stamp()

	if collection == core.CollectionExpenses {
		if err := rec.ValidateExpense(); err != nil {
			return core.Record{}, err
		}
	} else {
		if err := rec.Validate(); err != nil {
			return core.Record{}, err
		}
	}

	return rec, nil
}

// CreateRecord validates and saves a new record, then fans out the change.
func (s *RecordService) CreateRecord(ctx context.Context, uid, collection string, in RecordInput) (core.Record, error) {
	rec, err := build(collection, in)
	if err != nil {
		return core.Record{}, fmt.Errorf("build record: %w", err)
	}

	saved, err := s.records.PutRecord(ctx, uid, collection, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("save record: %w", err)
	}

	s.afterWrite(ctx, uid, collection, saved.ID, amqp.ActionCreated, saved.Timestamp)
	return saved, nil
}

// UpdateRecord replaces an existing record with a re-validated submission.
func (s *RecordService) UpdateRecord(ctx context.Context, uid, collection, id string, in RecordInput) (core.Record, error) {
	if id == "" {
		return core.Record{}, store.ErrNotFound
	}

	rec, err := build(collection, in)
	if err != nil {
		return core.Record{}, fmt.Errorf("build record: %w", err)
	}
	rec.ID = id

	saved, err := s.records.PutRecord(ctx, uid, collection, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("save record: %w", err)
	}

	s.afterWrite(ctx, uid, collection, saved.ID, amqp.ActionUpdated, saved.Timestamp)
	return saved, nil
}

// DeleteRecord removes a record and fans out the change.
func (s *RecordService) DeleteRecord(ctx context.Context, uid, collection, id string) error {
	if err := s.records.DeleteRecord(ctx, uid, collection, id); err != nil {
		return err
	}

	s.afterWrite(ctx, uid, collection, id, amqp.ActionDeleted, time.Now().UTC())
	return nil
}

// ListRecords returns the user's collection newest first, narrowed by the
// filter. An all-zero filter returns every record.
func (s *RecordService) ListRecords(ctx context.Context, uid, collection string, f core.Filter) ([]core.Record, error) {
	records, err := s.records.ListRecords(ctx, uid, collection)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return f.Apply(records), nil
}

func (s *RecordService) afterWrite(ctx context.Context, uid, collection, recordID, action string, at time.Time) {
	if err := s.users.TouchActivity(ctx, uid, at); err != nil {
		slog.WarnContext(ctx, "Failed to update last activity",
			applog.FieldUID, uid, applog.FieldError, err)
	}

	if s.notifier != nil {
		s.notifier.Notify(uid, collection)
	}

	if s.publisher == nil {
		return
	}
	event := amqp.NewRecordEvent(uid, collection, recordID, action)
	if err := s.publisher.PublishRecordEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event",
			applog.FieldUID, uid, applog.FieldCollection, collection,
			applog.FieldRecordID, recordID, applog.FieldError, err)
		// Write already persisted; the worker reconcile pass will catch up.
	}
}
