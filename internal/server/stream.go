package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/raynbowy23/Axon-City-sub002/internal/coordinator"
)

type statusPayload struct {
	Areas        []coordinator.AreaFetchStatus `json:"areas"`
	ActiveAreaID string                        `json:"active_area_id,omitempty"`
}

func (s *Server) statusSnapshot() statusPayload {
	return statusPayload{
		Areas:        s.coord.Status(),
		ActiveAreaID: s.store.ActiveAreaID(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.statusSnapshot())
}

// handleStatusStream pushes status updates over Server-Sent Events so the
// client sees fetch progress without polling.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Send status updates every 250ms
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	// Send initial status immediately
	s.sendStatusEvent(w, flusher)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			s.sendStatusEvent(w, flusher)
		}
	}
}

func (s *Server) sendStatusEvent(w http.ResponseWriter, flusher http.Flusher) {
	data, err := json.Marshal(s.statusSnapshot())
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
