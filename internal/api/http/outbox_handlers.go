package http

import (
	"net/http"
	"strconv"

	"github.com/mind-engage/assessment-engine/internal/notify"
)

const maxOutboxPage = 500

// GET /outbox?since=<seq>&limit=<n>
//
// Relays poll this feed and resume from the last seq they handled.
func OutboxHandler(h *Host) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var since int64
		if v := q.Get("since"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				http.Error(w, "bad since", http.StatusBadRequest)
				return
			}
			since = n
		}
		limit := 100
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxOutboxPage)
		}
		events, err := h.events.Since(r.Context(), since, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if events == nil {
			events = []notify.Event{}
		}
		next := since
		if len(events) > 0 {
			next = events[len(events)-1].Seq
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events, "next": next})
	}
}
