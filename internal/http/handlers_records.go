package http

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/services"
)

type recordRequest struct {
	ID            string `json:"id,omitempty"`
	Amount        string `json:"amount"`
	Locale        string `json:"locale,omitempty"`
	Currency      string `json:"currency"`
	Date          string `json:"date"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Bank          string `json:"bank,omitempty"`
	CardNetwork   string `json:"cardNetwork,omitempty"`
}

// collectionFromPath maps /api/expenses and /api/incomes to their
// collection names.
func collectionFromPath(p string) string {
	switch path.Base(p) {
	case "incomes":
		return core.CollectionIncomes
	default:
		return core.CollectionExpenses
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request, u authedUser) {
	collection := collectionFromPath(r.URL.Path)

	switch r.Method {
	case http.MethodGet:
		s.listRecords(w, r, u, collection)
	case http.MethodPost:
		s.upsertRecord(w, r, u, collection)
	case http.MethodDelete:
		s.deleteRecord(w, r, u, collection)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request, u authedUser, collection string) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.records.ListRecords(r.Context(), u.UID, collection, f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) upsertRecord(w http.ResponseWriter, r *http.Request, u authedUser, collection string) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
		return
	}

	locale := req.Locale
	if locale == "" {
		cfg, err := s.dashboards.Config(r.Context(), u.UID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		locale = cfg.Locale
	}

	in := recordInput(req, locale, date)

	var saved core.Record
	if req.ID == "" {
		saved, err = s.records.CreateRecord(r.Context(), u.UID, collection, in)
	} else {
		saved, err = s.records.UpdateRecord(r.Context(), u.UID, collection, req.ID, in)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, saved)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request, u authedUser, collection string) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	if err := s.records.DeleteRecord(r.Context(), u.UID, collection, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func recordInput(req recordRequest, locale string, date time.Time) services.RecordInput {
	return services.RecordInput{
		Amount:        sanitizeInput(req.Amount),
		Locale:        locale,
		Currency:      strings.TrimSpace(req.Currency),
		Date:          date,
		Description:   sanitizeInput(req.Description),
		Category:      sanitizeInput(req.Category),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Bank:          sanitizeInput(req.Bank),
		CardNetwork:   sanitizeInput(req.CardNetwork),
	}
}

// filterFromQuery builds the record filter from query parameters. Date
// bounds are whole calendar days, inclusive on both ends.
func filterFromQuery(r *http.Request) (core.Filter, error) {
	var f core.Filter
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return core.Filter{}, core.ErrInvalidDate
		}
		f.From = t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return core.Filter{}, core.ErrInvalidDate
		}
		f.To = t
	}
	f.Category = strings.TrimSpace(q.Get("category"))
	f.Currency = core.Currency(strings.TrimSpace(q.Get("currency")))
	f.PaymentMethod = core.PaymentMethod(strings.TrimSpace(q.Get("paymentMethod")))

	return f, nil
}
