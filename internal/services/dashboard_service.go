package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/store"
)

// CollectionSummary is the derived state for one collection under the
// current filter.
type CollectionSummary struct {
	Count            int                                      `json:"count"`
	TotalsByCurrency map[core.Currency]float64                `json:"totalsByCurrency"`
	TotalsByCategory map[core.Currency]map[string]float64     `json:"totalsByCategory"`
	Categories       []string                                 `json:"categories"`
}

// DashboardView bundles everything a dashboard render needs. Sums are kept
// per currency and never combined across them.
type DashboardView struct {
	Expenses CollectionSummary `json:"expenses"`
	Incomes  CollectionSummary `json:"incomes"`

	Banks          []string          `json:"banks"`
	PaymentMethods []string          `json:"paymentMethods"`
	LatestNetworks map[string]string `json:"latestNetworks"`
	DefaultNetwork string            `json:"defaultNetwork"`
}

// DashboardService computes derived dashboard state from the full record
// collections, with a short-TTL cache in front. Views are keyed per user and
// filter; any write for a user drops all of that user's cached views.
type DashboardService struct {
	records store.RecordStore
	configs store.ConfigStore
	views   *cache.LRUCache[DashboardView]

	defaultLocale string
}

func NewDashboardService(records store.RecordStore, configs store.ConfigStore, defaultLocale string) *DashboardService {
	return &DashboardService{
		records:       records,
		configs:       configs,
		views:         cache.NewLRUCache[DashboardView](256, 30*time.Second),
		defaultLocale: defaultLocale,
	}
}

// ViewCache exposes the cache for cleanup registration.
func (s *DashboardService) ViewCache() cache.Cleaner {
	return s.views
}

// Invalidate drops every cached view for uid. Called on each write so the
// next dashboard read recomputes from current state.
func (s *DashboardService) Invalidate(uid string) {
	s.views.DeletePrefix(uid + "/")
}

func viewKey(uid string, f core.Filter) string {
	return fmt.Sprintf("%s/%d|%d|%s|%s|%s",
		uid, f.From.Unix(), f.To.Unix(), f.Category, f.Currency, f.PaymentMethod)
}

// View returns the aggregated dashboard state for uid under the filter.
func (s *DashboardService) View(ctx context.Context, uid string, f core.Filter) (DashboardView, error) {
	key := viewKey(uid, f)
	if view, ok := s.views.Get(key); ok {
		return view, nil
	}

	expenses, err := s.records.ListRecords(ctx, uid, core.CollectionExpenses)
	if err != nil {
		return DashboardView{}, fmt.Errorf("load expenses: %w", err)
	}
	incomes, err := s.records.ListRecords(ctx, uid, core.CollectionIncomes)
	if err != nil {
		return DashboardView{}, fmt.Errorf("load incomes: %w", err)
	}

	filteredExpenses := f.Apply(expenses)
	filteredIncomes := f.Apply(incomes)

	// Card history is keyed off the unfiltered expense list so the form
	// preselection does not shift with the dashboard filter.
	history := core.NewBankCardHistory(expenses)
	banks := core.Unique(expenses, core.FieldBank)

	// Every selectable bank resolves to a concrete preselection; a bank
	// seen without card history gets the default network.
	networks := make(map[string]string, len(banks))
	for _, bank := range banks {
		networks[bank] = history.NetworkFor(bank)
	}

	view := DashboardView{
		Expenses:       summarize(filteredExpenses),
		Incomes:        summarize(filteredIncomes),
		Banks:          banks,
		PaymentMethods: core.Unique(expenses, core.FieldPaymentMethod),
		LatestNetworks: networks,
		DefaultNetwork: core.DefaultCardNetwork,
	}

	s.views.Set(key, view)
	return view, nil
}

func summarize(records []core.Record) CollectionSummary {
	return CollectionSummary{
		Count:            len(records),
		TotalsByCurrency: core.SumByCurrency(records),
		TotalsByCategory: core.SumByCategory(records),
		Categories:       core.Unique(records, core.FieldCategory),
	}
}

// Config returns the user's dashboard configuration, falling back to the
// server defaults when none was saved yet.
func (s *DashboardService) Config(ctx context.Context, uid string) (core.DashboardConfig, error) {
	cfg, err := s.configs.ReadDashboardConfig(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return core.DashboardConfig{
			DefaultCurrency: core.ARS,
			Locale:          s.defaultLocale,
		}, nil
	}
	if err != nil {
		return core.DashboardConfig{}, fmt.Errorf("read dashboard config: %w", err)
	}
	return cfg, nil
}

// SetConfig validates and saves the user's dashboard configuration.
func (s *DashboardService) SetConfig(ctx context.Context, uid string, cfg core.DashboardConfig) error {
	if !cfg.DefaultCurrency.Valid() {
		return core.ErrInvalidCurrency
	}
	if cfg.Locale == "" {
		cfg.Locale = s.defaultLocale
	}
	return s.configs.WriteDashboardConfig(ctx, uid, cfg)
}
