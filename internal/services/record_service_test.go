package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/store"
	"gastos/internal/store/memory"
)

type capturedNotify struct {
	uid        string
	collection string
}

type fakeNotifier struct {
	calls []capturedNotify
}

func (f *fakeNotifier) Notify(uid, collection string) {
	f.calls = append(f.calls, capturedNotify{uid, collection})
}

type fakePublisher struct {
	events []*amqp.RecordEvent
	err    error
}

func (f *fakePublisher) PublishRecordEvent(_ context.Context, event *amqp.RecordEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func newRecordFixture(t *testing.T) (*RecordService, *memory.Store, *fakeNotifier, *fakePublisher) {
	t.Helper()
	st := memory.New()
	require.NoError(t, st.PutUser(context.Background(), core.User{UID: "u1", AccessLevel: core.AccessFree}))
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}
	return NewRecordService(st, st, notifier, publisher), st, notifier, publisher
}

func expenseInput() RecordInput {
	return RecordInput{
		Amount:        "1.234,56",
		Locale:        "es",
		Currency:      "ARS",
		Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Description:   "super",
		Category:      "Food",
		PaymentMethod: "Credit Card",
		Bank:          "Galicia",
		CardNetwork:   "Visa",
	}
}

func TestCreateRecordNormalizesAmount(t *testing.T) {
	svc, st, notifier, publisher := newRecordFixture(t)
	ctx := context.Background()

	saved, err := svc.CreateRecord(ctx, "u1", core.CollectionExpenses, expenseInput())
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	require.Equal(t, "1234.56", saved.Amount, "locale text is stored in canonical form")
	require.Equal(t, 3, saved.Month)
	require.Equal(t, 2025, saved.Year)

	require.Equal(t, []capturedNotify{{"u1", core.CollectionExpenses}}, notifier.calls)
	require.Len(t, publisher.events, 1)
	require.Equal(t, amqp.ActionCreated, publisher.events[0].Action)
	require.Equal(t, saved.ID, publisher.events[0].RecordID)

	u, err := st.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, saved.Timestamp, u.LastActivity)
}

func TestCreateRecordEnglishLocale(t *testing.T) {
	svc, _, _, _ := newRecordFixture(t)

	in := expenseInput()
	in.Locale = "en"
	in.Amount = "1,234.56"

	saved, err := svc.CreateRecord(context.Background(), "u1", core.CollectionExpenses, in)
	require.NoError(t, err)
	require.Equal(t, "1234.56", saved.Amount)
}

func TestCreateRecordRejectsBadInput(t *testing.T) {
	svc, _, notifier, publisher := newRecordFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*RecordInput)
		want   error
	}{
		{"unparseable amount", func(in *RecordInput) { in.Amount = "abc" }, core.ErrInvalidAmount},
		{"negative amount", func(in *RecordInput) { in.Amount = "-5,00" }, core.ErrInvalidAmount},
		{"bad currency", func(in *RecordInput) { in.Currency = "EUR" }, core.ErrInvalidCurrency},
		{"empty category", func(in *RecordInput) { in.Category = "  " }, core.ErrEmptyCategory},
		{"bad method on expense", func(in *RecordInput) { in.PaymentMethod = "Crypto" }, core.ErrInvalidMethod},
		{"zero date", func(in *RecordInput) { in.Date = time.Time{} }, core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := expenseInput()
			tt.mutate(&in)
			_, err := svc.CreateRecord(ctx, "u1", core.CollectionExpenses, in)
			require.ErrorIs(t, err, tt.want)
		})
	}

	require.Empty(t, notifier.calls, "rejected submissions must not notify")
	require.Empty(t, publisher.events)
}

func TestCreateIncomeSkipsMethodValidation(t *testing.T) {
	svc, _, _, _ := newRecordFixture(t)

	in := RecordInput{
		Amount:   "500,00",
		Locale:   "es",
		Currency: "USD",
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Category: "Salary",
	}
	saved, err := svc.CreateRecord(context.Background(), "u1", core.CollectionIncomes, in)
	require.NoError(t, err)
	require.Empty(t, saved.PaymentMethod)
	require.Empty(t, saved.Bank)
}

func TestCashExpenseDropsCardFields(t *testing.T) {
	svc, _, _, _ := newRecordFixture(t)

	in := expenseInput()
	in.PaymentMethod = "Cash"

	saved, err := svc.CreateRecord(context.Background(), "u1", core.CollectionExpenses, in)
	require.NoError(t, err)
	require.Empty(t, saved.Bank)
	require.Empty(t, saved.CardNetwork)
}

func TestUpdateRecord(t *testing.T) {
	svc, _, _, publisher := newRecordFixture(t)
	ctx := context.Background()

	saved, err := svc.CreateRecord(ctx, "u1", core.CollectionExpenses, expenseInput())
	require.NoError(t, err)

	in := expenseInput()
	in.Amount = "99,00"
	updated, err := svc.UpdateRecord(ctx, "u1", core.CollectionExpenses, saved.ID, in)
	require.NoError(t, err)
	require.Equal(t, saved.ID, updated.ID)
	require.Equal(t, "99.00", updated.Amount)

	records, err := svc.ListRecords(ctx, "u1", core.CollectionExpenses, core.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.Equal(t, amqp.ActionUpdated, publisher.events[len(publisher.events)-1].Action)

	_, err = svc.UpdateRecord(ctx, "u1", core.CollectionExpenses, "", in)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteRecord(t *testing.T) {
	svc, _, notifier, publisher := newRecordFixture(t)
	ctx := context.Background()

	saved, err := svc.CreateRecord(ctx, "u1", core.CollectionExpenses, expenseInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRecord(ctx, "u1", core.CollectionExpenses, saved.ID))
	require.ErrorIs(t, svc.DeleteRecord(ctx, "u1", core.CollectionExpenses, saved.ID), store.ErrNotFound)

	require.Len(t, notifier.calls, 2, "delete notifies once, failed delete not at all")
	require.Equal(t, amqp.ActionDeleted, publisher.events[len(publisher.events)-1].Action)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.PutUser(context.Background(), core.User{UID: "u1"}))
	publisher := &fakePublisher{err: context.DeadlineExceeded}
	svc := NewRecordService(st, st, &fakeNotifier{}, publisher)

	saved, err := svc.CreateRecord(context.Background(), "u1", core.CollectionExpenses, expenseInput())
	require.NoError(t, err, "broker trouble must not fail the write")
	require.NotEmpty(t, saved.ID)
}

func TestListRecordsApplyFilter(t *testing.T) {
	svc, _, _, _ := newRecordFixture(t)
	ctx := context.Background()

	in := expenseInput()
	_, err := svc.CreateRecord(ctx, "u1", core.CollectionExpenses, in)
	require.NoError(t, err)

	other := expenseInput()
	other.Category = "Transport"
	other.Date = time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateRecord(ctx, "u1", core.CollectionExpenses, other)
	require.NoError(t, err)

	got, err := svc.ListRecords(ctx, "u1", core.CollectionExpenses, core.Filter{Category: "Food"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Food", got[0].Category)
}
