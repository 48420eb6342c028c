package core

import (
	"reflect"
	"testing"
	"time"
)

func TestFilterDateBoundsInclusive(t *testing.T) {
	f := Filter{
		From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	cases := []struct {
		ts   time.Time
		want bool
	}{
		{time.Date(2025, 3, 1, 23, 59, 59, 0, time.UTC), true},   // first day, late
		{time.Date(2025, 3, 31, 0, 0, 1, 0, time.UTC), true},     // last day, early
		{time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC), false}, // before
		{time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), false},     // after
	}
	for i, tc := range cases {
		r := rec("1.00", ARS, tc.ts, "Food", "", "")
		if got := f.Matches(r); got != tc.want {
			t.Fatalf("case %d: Matches = %v, want %v", i, got, tc.want)
		}
	}
}

func TestFilterANDSemantics(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("1.00", ARS, day, "Food", "", ""),
		rec("1.00", USD, day, "Food", "", ""),
		rec("1.00", ARS, day, "Taxi", "", ""),
	}
	f := Filter{Category: "Food", Currency: ARS}
	got := f.Apply(records)
	if len(got) != 1 || got[0].Currency != ARS || got[0].Category != "Food" {
		t.Fatalf("got %v", got)
	}
}

func TestFilterZeroPassesEverything(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("1.00", ARS, day, "Food", "", ""),
		rec("bad", USD, day, "Taxi", "", ""),
	}
	got := Filter{}.Apply(records)
	if !reflect.DeepEqual(got, records) {
		t.Fatalf("zero filter should be identity")
	}
}

func TestFilterIdempotent(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("1.00", ARS, day, "Food", "", ""),
		rec("2.00", ARS, day.AddDate(0, 1, 0), "Food", "", ""),
		rec("3.00", USD, day, "Taxi", "", ""),
	}
	f := Filter{
		From:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Category: "Food",
	}
	once := f.Apply(records)
	twice := f.Apply(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent: %v vs %v", once, twice)
	}
}

func TestFilterThenSumMatchesSinglePass(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("10.00", ARS, day, "Food", "", ""),
		rec("20.00", ARS, day, "Taxi", "", ""),
		rec("5.00", USD, day, "Food", "", ""),
		rec("7.00", ARS, day.AddDate(0, 2, 0), "Food", "", ""),
	}
	f := Filter{
		From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	sums := SumByCurrency(f.Apply(records))

	// Single pass over the same subset.
	single := map[Currency]float64{}
	for _, r := range records {
		if !f.Matches(r) {
			continue
		}
		if v, ok := r.AmountValue(); ok {
			single[r.Currency] += v
		}
	}
	if !reflect.DeepEqual(sums, single) {
		t.Fatalf("filter-then-sum %v != single pass %v", sums, single)
	}
	if sums[ARS] != 30.00 || sums[USD] != 5.00 {
		t.Fatalf("unexpected totals: %v", sums)
	}
}
