package http

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SubscribeEvents handles the GET /sessions/{id}/events request (SSE).
// Every output replacement is sent as an "output" event whose data is
// {"output": "..."}, so multi-line text stays on one data line.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	updates, cancel := h.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected")
			return
		case text, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(map[string]string{"output": text})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: output\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
