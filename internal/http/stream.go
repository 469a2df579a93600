package http

import (
	"encoding/json"
	"net/http"
	"time"

	"duit/internal/log"
)

// streamSnapshot is the full client-visible state, pushed as one event so
// consumers never observe the views out of step with each other.
type streamSnapshot struct {
	Session sessionJSON `json:"session"`
	Summary summaryJSON `json:"summary"`
	Recent  recentJSON  `json:"recent"`
	Month   monthJSON   `json:"month"`
}

const heartbeatInterval = 15 * time.Second

// handleStream serves Server-Sent Events. Every view change produces a fresh
// full snapshot; intermediate states may be skipped but the last one always
// arrives.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Coalesced wake-up: a burst of view updates collapses into one send.
	updates := make(chan struct{}, 1)
	notify := func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	}

	removeTotals := s.totals.OnUpdate(notify)
	defer removeTotals()
	removeRecent := s.recent.OnUpdate(notify)
	defer removeRecent()
	removeMonth := s.month.OnUpdate(notify)
	defer removeMonth()
	removeSession := s.sess.OnChange(func(string) { notify() })
	defer removeSession()

	if err := s.sendSnapshot(w, flusher); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := s.sendSnapshot(w, flusher); err != nil {
				s.logger.WarnContext(ctx, "stream write failed", log.FieldError, err)
				return
			}
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) sendSnapshot(w http.ResponseWriter, flusher http.Flusher) error {
	snap := streamSnapshot{
		Session: s.sessionSnapshot(),
		Summary: s.summarySnapshot(),
		Recent:  s.recentSnapshot(),
		Month:   s.monthSnapshot(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: snapshot\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
