package core

import (
	"errors"
	"strings"
	"time"
)

const (
	ARS Currency = "ARS"
	USD Currency = "USD"

	Cash       PaymentMethod = "Cash"
	CreditCard PaymentMethod = "Credit Card"
	DebitCard  PaymentMethod = "Debit Card"

	CollectionExpenses        = "expenses"
	CollectionIncomes         = "incomes"
	CollectionMonthlyPayments = "monthlyPayments"

	// DefaultCardNetwork is preselected for a bank with no prior card history.
	DefaultCardNetwork = "Visa"
)

type (
	Currency      string
	PaymentMethod string

	// AccessLevel is the user tier: 0=admin, 1=free, 2=premium, 3=gold.
	AccessLevel int

	// Record is a single expense or income entry. Amount is a canonical
	// decimal string with two places ("1234.56"); Month and Year are
	// stamped redundantly from Timestamp at write time.
	Record struct {
		ID            string        `json:"id"`
		Amount        string        `json:"amount"`
		Currency      Currency      `json:"currency"`
		Timestamp     time.Time     `json:"timestamp"`
		Description   string        `json:"description"`
		Category      string        `json:"category"`
		PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
		Bank          string        `json:"bank,omitempty"`
		CardNetwork   string        `json:"cardNetwork,omitempty"`
		Month         int           `json:"month"`
		Year          int           `json:"year"`
	}

	// FixedPayment is one entry of a monthly payment document. Amounts are
	// tracked in both currencies; either may be zero.
	FixedPayment struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		AmountARS  string `json:"amountARS"`
		AmountUSD  string `json:"amountUSD"`
		Paid       bool   `json:"paid"`
		Notes      string `json:"notes,omitempty"`
		ReceiptURL string `json:"receiptURL,omitempty"`
	}

	// PaymentMonth is the single shared document per (user, month) holding
	// the payments array. Writers replace the whole array; there is no
	// transactional guard against two open sessions, last write wins.
	PaymentMonth struct {
		Month    string         `json:"month"` // YYYY-MM
		Payments []FixedPayment `json:"payments"`
	}

	// MonthTotals holds cached per-currency sums for one month bucket.
	MonthTotals struct {
		Expenses map[Currency]float64 `json:"expenses"`
		Incomes  map[Currency]float64 `json:"incomes"`
	}

	User struct {
		UID           string                 `json:"uid"`
		AccessLevel   AccessLevel            `json:"accessLevel"`
		LastActivity  time.Time              `json:"lastActivity"`
		MonthlyTotals map[string]MonthTotals `json:"monthlyTotals,omitempty"` // key YYYY-MM
	}

	// DashboardConfig is the per-user document at users/{uid}/config/dashboard.
	DashboardConfig struct {
		DefaultCurrency Currency `json:"defaultCurrency"`
		Locale          string   `json:"locale"`
		Panels          []string `json:"panels,omitempty"`
	}
)

const (
	AccessAdmin   AccessLevel = 0
	AccessFree    AccessLevel = 1
	AccessPremium AccessLevel = 2
	AccessGold    AccessLevel = 3
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyTitle      = errors.New("empty title")
	ErrInvalidMonthKey = errors.New("invalid month key")
)

func (c Currency) Valid() bool {
	return c == ARS || c == USD
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case Cash, CreditCard, DebitCard:
		return true
	}
	return false
}

func (l AccessLevel) Valid() bool {
	return l >= AccessAdmin && l <= AccessGold
}

// IsAdmin reports whether the level grants access to the admin subtree.
func (l AccessLevel) IsAdmin() bool {
	return l == AccessAdmin
}

// MonthKey formats a timestamp as the YYYY-MM bucket used by monthly
// payment documents and cached totals.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// ValidMonthKey reports whether s is a well-formed YYYY-MM key.
func ValidMonthKey(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil
}

// Stamp fills the redundant Month/Year bucketing fields from Timestamp.
func (r *Record) Stamp() {
	r.Month = int(r.Timestamp.UTC().Month())
	r.Year = r.Timestamp.UTC().Year()
}

// Validate checks the fields every record needs: a parseable non-negative
// amount, a date, and a category. Currency must be one of the closed set.
func (r Record) Validate() error {
	if _, ok := r.AmountValue(); !ok {
		return ErrInvalidAmount
	}
	if !r.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if r.Timestamp.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// ValidateExpense checks the expense-specific fields on top of Validate.
// Bank and card network stay optional, open vocabularies.
func (r Record) ValidateExpense() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !r.PaymentMethod.Valid() {
		return ErrInvalidMethod
	}
	return nil
}

func (p FixedPayment) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if _, err := ParseCanonical(p.AmountARS); err != nil {
		return ErrInvalidAmount
	}
	if _, err := ParseCanonical(p.AmountUSD); err != nil {
		return ErrInvalidAmount
	}
	return nil
}

// Find returns the payment with the given id, or nil.
func (pm *PaymentMonth) Find(id string) *FixedPayment {
	for i := range pm.Payments {
		if pm.Payments[i].ID == id {
			return &pm.Payments[i]
		}
	}
	return nil
}
