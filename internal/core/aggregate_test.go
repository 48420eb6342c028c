package core

import (
	"reflect"
	"testing"
	"time"
)

func rec(amount string, cur Currency, ts time.Time, cat, bank, network string) Record {
	r := Record{
		Amount:      amount,
		Currency:    cur,
		Timestamp:   ts,
		Category:    cat,
		Bank:        bank,
		CardNetwork: network,
	}
	r.Stamp()
	return r
}

func TestSumByCurrencyNeverCombines(t *testing.T) {
	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	records := []Record{
		rec("100.00", ARS, day, "Food", "", ""),
		rec("50.00", USD, day, "Food", "", ""),
	}
	got := SumByCurrency(records)
	if got[ARS] != 100.00 || got[USD] != 50.00 {
		t.Fatalf("got ARS=%v USD=%v, want 100 and 50", got[ARS], got[USD])
	}
}

func TestSumSkipsUnparseableAmounts(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("10.00", ARS, day, "Food", "Galicia", "Visa"),
		rec("", ARS, day, "Taxi", "Santander", "Mastercard"),
		rec("oops", ARS, day, "Taxi", "", ""),
	}
	sums := SumByCurrency(records)
	if sums[ARS] != 10.00 {
		t.Fatalf("sum = %v, want 10.00", sums[ARS])
	}
	// The broken records still count toward uniqueness sets.
	cats := Unique(records, FieldCategory)
	if !reflect.DeepEqual(cats, []string{"Food", "Taxi"}) {
		t.Fatalf("categories = %v", cats)
	}
	banks := Unique(records, FieldBank)
	if !reflect.DeepEqual(banks, []string{"Galicia", "Santander"}) {
		t.Fatalf("banks = %v", banks)
	}
}

func TestSumByCategoryGroupsPerCurrency(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("10.00", ARS, day, "Food", "", ""),
		rec("5.50", ARS, day, "Food", "", ""),
		rec("3.00", USD, day, "Food", "", ""),
	}
	got := SumByCategory(records)
	if got[ARS]["Food"] != 15.50 {
		t.Fatalf("ARS Food = %v, want 15.50", got[ARS]["Food"])
	}
	if got[USD]["Food"] != 3.00 {
		t.Fatalf("USD Food = %v, want 3.00", got[USD]["Food"])
	}
}

func TestUniqueSortedCaseSensitive(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("1.00", ARS, day, "taxi", "", ""),
		rec("1.00", ARS, day, "Taxi", "", ""),
		rec("1.00", ARS, day, "taxi", "", ""),
		rec("1.00", ARS, day, "", "", ""),
	}
	got := Unique(records, FieldCategory)
	want := []string{"Taxi", "taxi"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLatestNetworkByBankFirstSeenWins(t *testing.T) {
	// Input ordered descending by timestamp, as delivered by snapshots.
	newer := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	older := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("1.00", ARS, newer, "Food", "Galicia", "Mastercard"),
		rec("1.00", ARS, older, "Food", "Galicia", "Visa"),
		rec("1.00", ARS, older, "Food", "Santander", "Amex"),
	}
	got := LatestNetworkByBank(records)
	if got["Galicia"] != "Mastercard" {
		t.Fatalf("Galicia = %q, want Mastercard", got["Galicia"])
	}
	if got["Santander"] != "Amex" {
		t.Fatalf("Santander = %q, want Amex", got["Santander"])
	}
}

func TestLatestNetworkTieUsesListOrder(t *testing.T) {
	ts := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("1.00", ARS, ts, "Food", "Galicia", "Visa"),
		rec("1.00", ARS, ts, "Food", "Galicia", "Mastercard"),
	}
	if got := LatestNetworkByBank(records); got["Galicia"] != "Visa" {
		t.Fatalf("tie should resolve by list position, got %q", got["Galicia"])
	}
}

func TestBankCardHistoryDefaults(t *testing.T) {
	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("1.00", ARS, day, "Food", "Galicia", "Mastercard"),
		rec("1.00", ARS, day.AddDate(0, 0, -1), "Food", "Galicia", "Visa"),
	}
	h := NewBankCardHistory(records)
	if !reflect.DeepEqual(h.Networks["Galicia"], []string{"Mastercard", "Visa"}) {
		t.Fatalf("networks = %v", h.Networks["Galicia"])
	}
	if h.NetworkFor("Galicia") != "Mastercard" {
		t.Fatalf("known bank should use latest network")
	}
	// A bank never seen before preselects Visa.
	if h.NetworkFor("Nación") != DefaultCardNetwork {
		t.Fatalf("unknown bank should default to %s", DefaultCardNetwork)
	}
}
