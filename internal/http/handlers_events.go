package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gastos/internal/core"
)

// eventPayload is the wire form of a live snapshot. Errors travel as plain
// strings so the stream stays decodable.
type eventPayload struct {
	Collection string        `json:"collection"`
	Seq        uint64        `json:"seq"`
	Records    []core.Record `json:"records"`
	Error      string        `json:"error,omitempty"`
}

// handleEvents streams full collection snapshots over server-sent events.
// Every change to the subscribed collection delivers the whole list again.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, u authedUser) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	collection := strings.TrimSpace(r.URL.Query().Get("collection"))
	if collection == "" {
		collection = core.CollectionExpenses
	}
	if collection != core.CollectionExpenses && collection != core.CollectionIncomes {
		writeError(w, http.StatusBadRequest, "unknown collection")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.hub.Subscribe(r.Context(), u.UID, collection)
	defer sub.Cancel()

	for snap := range sub.C {
		payload := eventPayload{
			Collection: snap.Collection,
			Seq:        snap.Seq,
			Records:    snap.Records,
		}
		if payload.Records == nil {
			payload.Records = []core.Record{}
		}
		if snap.Err != nil {
			payload.Error = snap.Err.Error()
		}

		data, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		if _, err := w.Write([]byte("id: " + strconv.FormatUint(snap.Seq, 10) +
			"\nevent: snapshot\ndata: " + string(data) + "\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}
