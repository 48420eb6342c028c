// Package worker maintains the cached per-month totals on user documents
// and mirrors new records to the configured spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/export"
	applog "gastos/internal/log"
	"gastos/internal/store"
)

// TotalsWorker consumes record events. Each event triggers a full recompute
// of the user's monthly totals from the current collections, so events are
// idempotent and safe to redeliver or reorder.
type TotalsWorker struct {
	records store.RecordStore
	users   store.UserStore
	writer  export.RecordWriter
}

func NewTotalsWorker(records store.RecordStore, users store.UserStore, writer export.RecordWriter) *TotalsWorker {
	return &TotalsWorker{
		records: records,
		users:   users,
		writer:  writer,
	}
}

// HandleRecordEvent recomputes the user's totals and, for new records,
// mirrors the record to the spreadsheet.
func (w *TotalsWorker) HandleRecordEvent(ctx context.Context, event *amqp.RecordEvent) error {
	slog.InfoContext(ctx, "Processing record event",
		applog.FieldUID, event.UID,
		applog.FieldCollection, event.Collection,
		applog.FieldRecordID, event.RecordID,
		applog.FieldAction, event.Action)

	if err := w.RecomputeTotals(ctx, event.UID); err != nil {
		return fmt.Errorf("recompute totals: %w", err)
	}

	if err := w.users.TouchActivity(ctx, event.UID, event.Timestamp); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Failed to refresh last activity",
			applog.FieldUID, event.UID, applog.FieldError, err)
	}

	if event.Action == amqp.ActionCreated && w.writer != nil {
		if err := w.exportRecord(ctx, event); err != nil {
			// Export failure requeues the event; totals are already
			// consistent because the recompute is idempotent.
			return fmt.Errorf("export record: %w", err)
		}
	}

	return nil
}

func (w *TotalsWorker) exportRecord(ctx context.Context, event *amqp.RecordEvent) error {
	records, err := w.records.ListRecords(ctx, event.UID, event.Collection)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}

	for _, r := range records {
		if r.ID != event.RecordID {
			continue
		}
		ref, err := w.writer.Append(ctx, event.UID, event.Collection, r)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Record exported", applog.FieldRecordID, r.ID, applog.FieldSheetsRange, ref)
		return nil
	}

	// The record was deleted before we got here; nothing to mirror.
	slog.WarnContext(ctx, "Record gone before export, skipping",
		applog.FieldUID, event.UID, applog.FieldRecordID, event.RecordID)
	return nil
}

// RecomputeTotals rebuilds the user's cached per-month, per-currency sums
// from the full expense and income collections. Records whose amount does
// not parse are excluded from sums.
func (w *TotalsWorker) RecomputeTotals(ctx context.Context, uid string) error {
	totals := make(map[string]core.MonthTotals)

	expenses, err := w.records.ListRecords(ctx, uid, core.CollectionExpenses)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	incomes, err := w.records.ListRecords(ctx, uid, core.CollectionIncomes)
	if err != nil {
		return fmt.Errorf("load incomes: %w", err)
	}

	for _, r := range expenses {
		addToBucket(totals, r, true)
	}
	for _, r := range incomes {
		addToBucket(totals, r, false)
	}

	return w.users.PutMonthlyTotals(ctx, uid, totals)
}

func addToBucket(totals map[string]core.MonthTotals, r core.Record, expense bool) {
	v, ok := r.AmountValue()
	if !ok {
		return
	}

	key := core.MonthKey(r.Timestamp)
	bucket := totals[key]
	if expense {
		if bucket.Expenses == nil {
			bucket.Expenses = make(map[core.Currency]float64)
		}
		bucket.Expenses[r.Currency] += v
	} else {
		if bucket.Incomes == nil {
			bucket.Incomes = make(map[core.Currency]float64)
		}
		bucket.Incomes[r.Currency] += v
	}
	totals[key] = bucket
}

// Reconcile recomputes totals for every user, catching up on events lost to
// broker outages.
func (w *TotalsWorker) Reconcile(ctx context.Context) error {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var failed int
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.RecomputeTotals(ctx, u.UID); err != nil {
			slog.ErrorContext(ctx, "Reconcile failed for user",
				applog.FieldUID, u.UID, applog.FieldError, err)
			failed++
		}
	}

	slog.InfoContext(ctx, "Reconcile pass complete",
		"users", len(users), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("reconcile: %d of %d users failed", failed, len(users))
	}
	return nil
}

// RunReconcileLoop runs Reconcile on a fixed interval until ctx ends.
func (w *TotalsWorker) RunReconcileLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.ErrorContext(ctx, "Periodic reconcile failed", applog.FieldError, err)
			}
		}
	}
}
