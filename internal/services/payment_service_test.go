package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/store"
	"gastos/internal/store/memory"
)

type fakeReceiptStore struct {
	saved map[string]string
	err   error
}

func (f *fakeReceiptStore) SaveReceipt(_ context.Context, uid, month, paymentID string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	body, _ := io.ReadAll(r)
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	key := uid + "/" + month + "/" + paymentID
	f.saved[key] = string(body)
	return "/receipts/" + key + ".pdf", nil
}

func newPaymentFixture(t *testing.T) (*PaymentService, *memory.Store, *fakeReceiptStore) {
	t.Helper()
	st := memory.New()
	require.NoError(t, st.PutUser(context.Background(), core.User{UID: "u1"}))
	receipts := &fakeReceiptStore{}
	return NewPaymentService(st, st, receipts, &fakeNotifier{}), st, receipts
}

func TestAddPaymentAssignsID(t *testing.T) {
	svc, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	p, err := svc.AddPayment(ctx, "u1", "2025-03", core.FixedPayment{
		Title: "Rent", AmountARS: "250000.00", AmountUSD: "",
	})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	doc, err := svc.Month(ctx, "u1", "2025-03")
	require.NoError(t, err)
	require.Len(t, doc.Payments, 1)
	require.Equal(t, "Rent", doc.Payments[0].Title)
}

func TestAddPaymentValidation(t *testing.T) {
	svc, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	_, err := svc.AddPayment(ctx, "u1", "2025-03", core.FixedPayment{Title: "  "})
	require.ErrorIs(t, err, core.ErrEmptyTitle)

	_, err = svc.AddPayment(ctx, "u1", "2025-03", core.FixedPayment{Title: "Rent", AmountARS: "abc"})
	require.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.AddPayment(ctx, "u1", "bad-month", core.FixedPayment{Title: "Rent"})
	require.ErrorIs(t, err, core.ErrInvalidMonthKey)
}

func TestUpdateAndSetPaid(t *testing.T) {
	svc, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	p, err := svc.AddPayment(ctx, "u1", "2025-03", core.FixedPayment{Title: "Internet", AmountARS: "30000.00"})
	require.NoError(t, err)

	p.Notes = "fibertel"
	require.NoError(t, svc.UpdatePayment(ctx, "u1", "2025-03", p))
	require.NoError(t, svc.SetPaid(ctx, "u1", "2025-03", p.ID, true))

	doc, err := svc.Month(ctx, "u1", "2025-03")
	require.NoError(t, err)
	require.Equal(t, "fibertel", doc.Payments[0].Notes)
	require.True(t, doc.Payments[0].Paid)

	require.ErrorIs(t, svc.SetPaid(ctx, "u1", "2025-03", "ghost", true), store.ErrNotFound)
	ghost := p
	ghost.ID = "ghost"
	require.ErrorIs(t, svc.UpdatePayment(ctx, "u1", "2025-03", ghost), store.ErrNotFound)
}

func TestRemovePayment(t *testing.T) {
	svc, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	p, err := svc.AddPayment(ctx, "u1", "2025-03", core.FixedPayment{Title: "Gym", AmountARS: "15000.00"})
	require.NoError(t, err)

	require.NoError(t, svc.RemovePayment(ctx, "u1", "2025-03", p.ID))
	require.ErrorIs(t, svc.RemovePayment(ctx, "u1", "2025-03", p.ID), store.ErrNotFound)

	doc, err := svc.Month(ctx, "u1", "2025-03")
	require.NoError(t, err)
	require.Empty(t, doc.Payments)
}

func TestAttachReceiptPDFOnly(t *testing.T) {
	svc, _, receipts := newPaymentFixture(t)
	ctx := context.Background()

	p, err := svc.AddPayment(ctx, "u1", "2025-03", core.FixedPayment{Title: "Rent", AmountARS: "250000.00"})
	require.NoError(t, err)

	_, err = svc.AttachReceipt(ctx, "u1", "2025-03", p.ID, "image/png", strings.NewReader("png"))
	require.ErrorIs(t, err, ErrNotPDF)
	require.Empty(t, receipts.saved, "rejected uploads must not touch storage")

	url, err := svc.AttachReceipt(ctx, "u1", "2025-03", p.ID, "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.NotEmpty(t, url)

	doc, err := svc.Month(ctx, "u1", "2025-03")
	require.NoError(t, err)
	require.Equal(t, url, doc.Payments[0].ReceiptURL)
}

func TestAttachReceiptUnknownPayment(t *testing.T) {
	svc, _, receipts := newPaymentFixture(t)

	_, err := svc.AttachReceipt(context.Background(), "u1", "2025-03", "ghost", "application/pdf", strings.NewReader("%PDF"))
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Empty(t, receipts.saved, "no file may be written for a payment that does not exist")
}

func TestAttachReceiptBadMonthKey(t *testing.T) {
	svc, _, receipts := newPaymentFixture(t)

	_, err := svc.AttachReceipt(context.Background(), "u1", "March", "p1", "application/pdf", strings.NewReader("%PDF"))
	require.ErrorIs(t, err, core.ErrInvalidMonthKey)
	require.Empty(t, receipts.saved)
}

func TestMonthsAreIndependentDocuments(t *testing.T) {
	svc, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	_, err := svc.AddPayment(ctx, "u1", "2025-03", core.FixedPayment{Title: "Rent", AmountARS: "1.00"})
	require.NoError(t, err)

	doc, err := svc.Month(ctx, "u1", "2025-04")
	require.NoError(t, err)
	require.Empty(t, doc.Payments, "a new month starts from an empty array")
}

// Two sessions that read the same document and write back independently
// overwrite each other; the second write wins wholesale.
func TestConcurrentEditLastWriteWins(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	first, err := st.ReadPaymentMonth(ctx, "u1", "2025-03")
	require.NoError(t, err)
	second, err := st.ReadPaymentMonth(ctx, "u1", "2025-03")
	require.NoError(t, err)

	first.Payments = append(first.Payments, core.FixedPayment{ID: "a", Title: "Rent"})
	require.NoError(t, st.WritePaymentMonth(ctx, "u1", first))

	second.Payments = append(second.Payments, core.FixedPayment{ID: "b", Title: "Gym"})
	require.NoError(t, st.WritePaymentMonth(ctx, "u1", second))

	doc, err := st.ReadPaymentMonth(ctx, "u1", "2025-03")
	require.NoError(t, err)
	require.Len(t, doc.Payments, 1)
	require.Equal(t, "b", doc.Payments[0].ID)
}
