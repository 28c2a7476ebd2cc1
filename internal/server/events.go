package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/event"
)

const (
	sseBuffer    = 64
	sseKeepAlive = 15 * time.Second
)

// handleEvents streams the session's events as server-sent events. Each
// message uses the topic as its event name and the JSON-encoded event as
// its data.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	if s.bus == nil {
		s.writeError(w, fmt.Errorf("%w: events are not enabled", errBadRequest))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	pattern := event.Topic("**")
	if t := r.URL.Query().Get("topic"); t != "" {
		pattern = event.Topic(t)
	}
	id := c.ID()
	events, sub, err := s.bus.FilteredChannel(pattern, event.BySource(id), sseBuffer)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	s.logger.Debug("sse client connected", zap.String("session", id))
	defer s.logger.Debug("sse client disconnected", zap.String("session", id))

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Warn("sse encode failed", zap.String("topic", string(e.Topic)), zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Topic, data)
			flusher.Flush()
		}
	}
}
