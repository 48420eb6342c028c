package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/store"
)

// ErrNotPDF rejects receipt uploads with any content type other than PDF.
var ErrNotPDF = errors.New("receipt must be a PDF")

// ReceiptStore persists uploaded receipt files and returns a serveable URL.
type ReceiptStore interface {
	SaveReceipt(ctx context.Context, uid, month, paymentID string, r io.Reader) (string, error)
}

// PaymentService manages the per-month fixed payment documents. Every
// mutation reads the whole document, edits the payments array and writes it
// back; two concurrent editors of the same month overwrite each other and
// the last write wins.
type PaymentService struct {
	payments store.PaymentStore
	users    store.UserStore
	receipts ReceiptStore
	notifier ChangeNotifier
}

func NewPaymentService(payments store.PaymentStore, users store.UserStore, receipts ReceiptStore, notifier ChangeNotifier) *PaymentService {
	return &PaymentService{
		payments: payments,
		users:    users,
		receipts: receipts,
		notifier: notifier,
	}
}

// Month returns the payment document for uid's YYYY-MM bucket. A month that
// was never written comes back as an empty document, not an error.
func (s *PaymentService) Month(ctx context.Context, uid, month string) (core.PaymentMonth, error) {
	if !core.ValidMonthKey(month) {
		return core.PaymentMonth{}, core.ErrInvalidMonthKey
	}
	return s.payments.ReadPaymentMonth(ctx, uid, month)
}

// AddPayment validates and appends a payment to the month's array.
func (s *PaymentService) AddPayment(ctx context.Context, uid, month string, p core.FixedPayment) (core.FixedPayment, error) {
	if err := p.Validate(); err != nil {
		return core.FixedPayment{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	err := s.modify(ctx, uid, month, func(doc *core.PaymentMonth) error {
		doc.Payments = append(doc.Payments, p)
		return nil
	})
	if err != nil {
		return core.FixedPayment{}, err
	}
	return p, nil
}

// UpdatePayment replaces the payment with p.ID in the month's array.
func (s *PaymentService) UpdatePayment(ctx context.Context, uid, month string, p core.FixedPayment) error {
	if err := p.Validate(); err != nil {
		return err
	}

	return s.modify(ctx, uid, month, func(doc *core.PaymentMonth) error {
		existing := doc.Find(p.ID)
		if existing == nil {
			return store.ErrNotFound
		}
		*existing = p
		return nil
	})
}

// SetPaid toggles the paid flag on one payment.
func (s *PaymentService) SetPaid(ctx context.Context, uid, month, paymentID string, paid bool) error {
	return s.modify(ctx, uid, month, func(doc *core.PaymentMonth) error {
		existing := doc.Find(paymentID)
		if existing == nil {
			return store.ErrNotFound
		}
		existing.Paid = paid
		return nil
	})
}

// RemovePayment drops one payment from the month's array.
func (s *PaymentService) RemovePayment(ctx context.Context, uid, month, paymentID string) error {
	return s.modify(ctx, uid, month, func(doc *core.PaymentMonth) error {
		for i := range doc.Payments {
			if doc.Payments[i].ID == paymentID {
				doc.Payments = append(doc.Payments[:i], doc.Payments[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

// AttachReceipt stores an uploaded PDF and links it to the payment. Any
// other content type is rejected before touching the document.
func (s *PaymentService) AttachReceipt(ctx context.Context, uid, month, paymentID, contentType string, r io.Reader) (string, error) {
	if contentType != "application/pdf" {
		return "", ErrNotPDF
	}
	if s.receipts == nil {
		return "", fmt.Errorf("attach receipt: no receipt store configured")
	}
	if !core.ValidMonthKey(month) {
		return "", core.ErrInvalidMonthKey
	}

	// The payment must exist before the file is written, otherwise a bad
	// id would leave an orphaned file on disk.
	doc, err := s.payments.ReadPaymentMonth(ctx, uid, month)
	if err != nil {
		return "", fmt.Errorf("read payment month: %w", err)
	}
	if doc.Find(paymentID) == nil {
		return "", store.ErrNotFound
	}

	url, err := s.receipts.SaveReceipt(ctx, uid, month, paymentID, r)
	if err != nil {
		return "", fmt.Errorf("save receipt: %w", err)
	}

	err = s.modify(ctx, uid, month, func(doc *core.PaymentMonth) error {
		existing := doc.Find(paymentID)
		if existing == nil {
			return store.ErrNotFound
		}
		existing.ReceiptURL = url
		return nil
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

func (s *PaymentService) modify(ctx context.Context, uid, month string, edit func(*core.PaymentMonth) error) error {
	if !core.ValidMonthKey(month) {
		return core.ErrInvalidMonthKey
	}

	doc, err := s.payments.ReadPaymentMonth(ctx, uid, month)
	if err != nil {
		return fmt.Errorf("read payment month: %w", err)
	}

	if err := edit(&doc); err != nil {
		return err
	}

	if err := s.payments.WritePaymentMonth(ctx, uid, doc); err != nil {
		return fmt.Errorf("write payment month: %w", err)
	}

	if s.users != nil {
		if err := s.users.TouchActivity(ctx, uid, time.Now().UTC()); err != nil {
			slog.WarnContext(ctx, "Failed to update last activity",
				applog.FieldUID, uid, applog.FieldError, err)
		}
	}
	if s.notifier != nil {
		s.notifier.Notify(uid, core.CollectionMonthlyPayments)
	}
	return nil
}
