package core

import (
	"testing"
	"time"
)

func TestRecordValidate(t *testing.T) {
	good := Record{
		Amount:    "12.50",
		Currency:  ARS,
		Timestamp: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Category:  "Food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Record{
		{Amount: "", Currency: ARS, Timestamp: good.Timestamp, Category: "Food"},
		{Amount: "x", Currency: ARS, Timestamp: good.Timestamp, Category: "Food"},
		{Amount: "12.50", Currency: "EUR", Timestamp: good.Timestamp, Category: "Food"},
		{Amount: "12.50", Currency: ARS, Category: "Food"}, // zero date
		{Amount: "12.50", Currency: ARS, Timestamp: good.Timestamp, Category: "  "},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestValidateExpenseRequiresMethod(t *testing.T) {
	e := Record{
		Amount:    "12.50",
		Currency:  ARS,
		Timestamp: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Category:  "Food",
	}
	if err := e.ValidateExpense(); err != ErrInvalidMethod {
		t.Fatalf("expected ErrInvalidMethod, got %v", err)
	}
	e.PaymentMethod = CreditCard
	if err := e.ValidateExpense(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestStamp(t *testing.T) {
	r := Record{Timestamp: time.Date(2025, 11, 30, 23, 0, 0, 0, time.UTC)}
	r.Stamp()
	if r.Month != 11 || r.Year != 2025 {
		t.Fatalf("stamped %d/%d", r.Month, r.Year)
	}
}

func TestMonthKey(t *testing.T) {
	got := MonthKey(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	if got != "2025-03" {
		t.Fatalf("got %q", got)
	}
	if !ValidMonthKey("2025-03") || ValidMonthKey("2025-3") || ValidMonthKey("") {
		t.Fatalf("month key validation broken")
	}
}

func TestFixedPaymentValidate(t *testing.T) {
	good := FixedPayment{Title: "Rent", AmountARS: "250000.00", AmountUSD: "0.00"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (FixedPayment{Title: "", AmountARS: "1.00"}).Validate(); err != ErrEmptyTitle {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if err := (FixedPayment{Title: "Rent", AmountARS: "bad"}).Validate(); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPaymentMonthFind(t *testing.T) {
	pm := PaymentMonth{Month: "2025-03", Payments: []FixedPayment{{ID: "a"}, {ID: "b"}}}
	if p := pm.Find("b"); p == nil || p.ID != "b" {
		t.Fatalf("find failed")
	}
	if pm.Find("zzz") != nil {
		t.Fatalf("expected nil for unknown id")
	}
}
