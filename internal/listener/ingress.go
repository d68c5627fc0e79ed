package listener

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/robbyt/go-supervisor/runnables/httpserver"

	"github.com/cellwarden/cellwarden/internal/event"
)

// maxEventBytes bounds one ingress request body.
const maxEventBytes = 1 << 20

// HandleEvent is the HTTP handler for POST /event. It validates and
// enqueues the event, answering with a synchronous ack; the semantic
// reply travels asynchronously through the outbound queue.
func (l *Listener) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		l.logger.Warn("Failed to read event body", "error", err)
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	ev, err := event.Unmarshal(body)
	if err != nil {
		l.logger.Warn("Dropping malformed event", "error", err)
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}
	if err := ev.Validate(); err != nil {
		l.logger.Warn("Dropping invalid event", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Redelivered events (the sender retried after a lost ack) are
	// acked again but not re-enqueued. Replies correlate by id and skip
	// the dedup index.
	if !ev.IsReply() && l.dedup.Seen(ev.Source, ev.ID) {
		l.logger.Debug("Duplicate event dropped", "event", ev.String())
		l.writeAck(w, ev.ID)
		return
	}

	if err := l.incoming.Push(ev); err != nil {
		l.logger.Warn("Incoming queue full, rejecting event", "event", ev.String())
		http.Error(w, "queue full", http.StatusServiceUnavailable)
		return
	}
	l.writeAck(w, ev.ID)
}

func (l *Listener) writeAck(w http.ResponseWriter, id int64) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(event.Ack{ID: id, Received: true}); err != nil {
		l.logger.Warn("Failed to write ack", "id", id, "error", err)
	}
}

// Route builds the httpserver route for this listener's ingress
// endpoint.
func (l *Listener) Route() (httpserver.Route, error) {
	route, err := httpserver.NewRouteFromHandlerFunc(
		"event-"+l.name, "/event", l.HandleEvent)
	if err != nil {
		return httpserver.Route{}, err
	}
	return *route, nil
}
