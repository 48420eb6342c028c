package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"gastos/internal/core"
)

// maxReceiptSize caps receipt uploads at 10 MiB.
const maxReceiptSize = 10 << 20

type paymentRequest struct {
	Month   string            `json:"month"`
	Payment core.FixedPayment `json:"payment"`
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request, u authedUser) {
	switch r.Method {
	case http.MethodGet:
		s.listPayments(w, r, u)
	case http.MethodPost:
		s.addPayment(w, r, u)
	case http.MethodPut:
		s.updatePayment(w, r, u)
	case http.MethodDelete:
		s.removePayment(w, r, u)
	default:
		w.Header().Set("Allow", "GET, POST, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request, u authedUser) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))

	doc, err := s.payments.Month(r.Context(), u.UID, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) addPayment(w http.ResponseWriter, r *http.Request, u authedUser) {
	req, ok := decodePaymentRequest(w, r)
	if !ok {
		return
	}

	saved, err := s.payments.AddPayment(r.Context(), u.UID, req.Month, req.Payment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) updatePayment(w http.ResponseWriter, r *http.Request, u authedUser) {
	req, ok := decodePaymentRequest(w, r)
	if !ok {
		return
	}

	if err := s.payments.UpdatePayment(r.Context(), u.UID, req.Month, req.Payment); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req.Payment)
}

func (s *Server) removePayment(w http.ResponseWriter, r *http.Request, u authedUser) {
	q := r.URL.Query()
	month := strings.TrimSpace(q.Get("month"))
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	if err := s.payments.RemovePayment(r.Context(), u.UID, month, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handlePaymentPaid(w http.ResponseWriter, r *http.Request, u authedUser) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Month string `json:"month"`
		ID    string `json:"id"`
		Paid  bool   `json:"paid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.payments.SetPaid(r.Context(), u.UID, req.Month, req.ID, req.Paid); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// handlePaymentReceipt accepts a multipart form with month, paymentId and a
// single PDF under the file field.
func (s *Server) handlePaymentReceipt(w http.ResponseWriter, r *http.Request, u authedUser) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptSize)
	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	month := strings.TrimSpace(r.FormValue("month"))
	paymentID := strings.TrimSpace(r.FormValue("paymentId"))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	url, err := s.payments.AttachReceipt(r.Context(), u.UID, month, paymentID,
		header.Header.Get("Content-Type"), file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"receiptURL": url})
}

func decodePaymentRequest(w http.ResponseWriter, r *http.Request) (paymentRequest, bool) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return paymentRequest{}, false
	}
	req.Month = strings.TrimSpace(req.Month)
	req.Payment.Title = sanitizeInput(req.Payment.Title)
	req.Payment.Notes = sanitizeInput(req.Payment.Notes)
	return req, true
}
