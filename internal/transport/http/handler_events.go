package httptransport

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"analyst-alchemist/internal/stream"
)

var ssePingInterval = 15 * time.Second

// EventsSSEHandler streams tick, roster, notification and wizard events of
// one dashboard, replaying from Last-Event-ID first.
func EventsSSEHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := DashboardFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusNotFound, "session_not_found")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		stream.SetSSEHeaders(w)
		reqID := chimw.GetReqID(r.Context())
		log.Info().Str("request_id", reqID).Str("session_id", d.ID).Msg("sse stream opened")

		// subscribe before replaying so nothing published in between is lost
		ch := d.Events.Subscribe()
		defer d.Events.Unsubscribe(ch)

		lastEventID := r.Header.Get("Last-Event-ID")
		if lastEventID == "" {
			lastEventID = r.URL.Query().Get("last_event_id")
		}
		sent := lastEventID
		for _, ev := range d.Events.ReplayAfter(lastEventID) {
			if err := stream.WriteSSE(w, ev); err != nil {
				return
			}
			sent = ev.EventID
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				log.Info().Str("request_id", reqID).Str("session_id", d.ID).Err(r.Context().Err()).Msg("sse stream closed")
				return
			case ev, ok := <-ch:
				if !ok {
					log.Info().Str("request_id", reqID).Str("session_id", d.ID).Msg("sse stream channel closed")
					return
				}
				if !newerThan(ev.EventID, sent) {
					continue
				}
				if err := stream.WriteSSE(w, ev); err != nil {
					return
				}
				sent = ev.EventID
				flusher.Flush()
			case <-ticker.C:
				now := time.Now().UnixMilli()
				ping := stream.Event{Event: "ping", SessionID: d.ID, ServerTS: now, Data: map[string]any{"ts": now}}
				if err := stream.WriteSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// newerThan reports whether event id a follows b; an unparsable b lets
// everything through.
func newerThan(a, b string) bool {
	last, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return true
	}
	id, err := strconv.ParseInt(a, 10, 64)
	return err == nil && id > last
}
