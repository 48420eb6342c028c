package core

import "time"

// Filter narrows a record list before aggregation. All provided predicates
// are ANDed; zero-value fields pass every record. Date bounds are inclusive
// on both ends and compared by calendar day in UTC.
type Filter struct {
	From          time.Time
	To            time.Time
	Category      string
	Currency      Currency
	PaymentMethod PaymentMethod
}

// IsZero reports whether the filter has no active predicate.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() &&
		f.Category == "" && f.Currency == "" && f.PaymentMethod == ""
}

// Matches reports whether a single record satisfies every set predicate.
func (f Filter) Matches(r Record) bool {
	if !f.From.IsZero() && dayOf(r.Timestamp).Before(dayOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && dayOf(r.Timestamp).After(dayOf(f.To)) {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Currency != "" && r.Currency != f.Currency {
		return false
	}
	if f.PaymentMethod != "" && r.PaymentMethod != f.PaymentMethod {
		return false
	}
	return true
}

// Apply returns the subset of records matching the filter, preserving the
// input order so downstream recency logic keeps working.
func (f Filter) Apply(records []Record) []Record {
	if f.IsZero() {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
