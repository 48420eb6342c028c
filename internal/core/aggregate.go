package core

import "sort"

// Aggregation is pure derived state: every function here recomputes from the
// full record list it is handed, typically the latest snapshot delivered by
// the live hub. Nothing is cached or mutated.

// Field names a record attribute for uniqueness queries.
type Field string

const (
	FieldCategory      Field = "category"
	FieldCurrency      Field = "currency"
	FieldPaymentMethod Field = "paymentMethod"
	FieldBank          Field = "bank"
)

// BankCardHistory maps each bank to the card networks seen on its records
// and the most recently used one. Derived on every call, never persisted.
type BankCardHistory struct {
	Networks map[string][]string
	Latest   map[string]string
}

// SumByCurrency adds up record amounts per currency. Currencies are never
// converted or combined; a record whose amount is missing or non-numeric is
// skipped silently.
func SumByCurrency(records []Record) map[Currency]float64 {
	out := make(map[Currency]float64)
	for _, r := range records {
		v, ok := r.AmountValue()
		if !ok {
			continue
		}
		out[r.Currency] += v
	}
	return out
}

// SumByCategory groups sums by currency first, then category, so amounts in
// different currencies never land in the same bucket.
func SumByCategory(records []Record) map[Currency]map[string]float64 {
	out := make(map[Currency]map[string]float64)
	for _, r := range records {
		v, ok := r.AmountValue()
		if !ok {
			continue
		}
		byCat := out[r.Currency]
		if byCat == nil {
			byCat = make(map[string]float64)
			out[r.Currency] = byCat
		}
		byCat[r.Category] += v
	}
	return out
}

// Unique returns the sorted distinct values of the named field. Dedup is
// case-sensitive; empty values are dropped. Records with unparseable
// amounts still contribute.
func Unique(records []Record, f Field) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range records {
		v := fieldValue(r, f)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// LatestNetworkByBank returns, for each bank, the card network of the first
// record naming that bank. The input is expected already sorted descending
// by timestamp, so first seen means most recent; the function never
// re-sorts, and records sharing a timestamp resolve by list position.
func LatestNetworkByBank(records []Record) map[string]string {
	out := make(map[string]string)
	for _, r := range records {
		if r.Bank == "" || r.CardNetwork == "" {
			continue
		}
		if _, ok := out[r.Bank]; ok {
			continue
		}
		out[r.Bank] = r.CardNetwork
	}
	return out
}

// NewBankCardHistory reconstructs the full per-bank card history from a
// record list ordered descending by timestamp.
func NewBankCardHistory(records []Record) BankCardHistory {
	h := BankCardHistory{
		Networks: make(map[string][]string),
		Latest:   LatestNetworkByBank(records),
	}
	seen := map[string]map[string]struct{}{}
	for _, r := range records {
		if r.Bank == "" || r.CardNetwork == "" {
			continue
		}
		nets := seen[r.Bank]
		if nets == nil {
			nets = map[string]struct{}{}
			seen[r.Bank] = nets
		}
		if _, ok := nets[r.CardNetwork]; ok {
			continue
		}
		nets[r.CardNetwork] = struct{}{}
		h.Networks[r.Bank] = append(h.Networks[r.Bank], r.CardNetwork)
	}
	for bank := range h.Networks {
		sort.Strings(h.Networks[bank])
	}
	return h
}

// NetworkFor resolves the network to preselect for a bank: its most recent
// one, or DefaultCardNetwork when the bank has no history.
func (h BankCardHistory) NetworkFor(bank string) string {
	if n, ok := h.Latest[bank]; ok {
		return n
	}
	return DefaultCardNetwork
}

func fieldValue(r Record, f Field) string {
	switch f {
	case FieldCategory:
		return r.Category
	case FieldCurrency:
		return string(r.Currency)
	case FieldPaymentMethod:
		return string(r.PaymentMethod)
	case FieldBank:
		return r.Bank
	}
	return ""
}
