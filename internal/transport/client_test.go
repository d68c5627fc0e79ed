package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellwarden/cellwarden/internal/event"
)

// eventFor builds an event addressed at the given test server.
func eventFor(t *testing.T, server *httptest.Server) *event.Event {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return &event.Event{
		ID:                 17,
		Source:             "orchestrator",
		Destination:        "io_server",
		DestinationAddress: u.Hostname(),
		DestinationPort:    port,
		Type:               "ORDER_CREATED",
		Timestamp:          time.Now(),
	}
}

func ackHandler(received *int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(received, 1)
		var ev event.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(event.Ack{ID: ev.ID, Received: true})
	}
}

func TestClient_Send(t *testing.T) {
	var received int64
	server := httptest.NewServer(ackHandler(&received))
	defer server.Close()

	client := New(WithInitialInterval(time.Millisecond))
	err := client.Send(context.Background(), eventFor(t, server))

	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&received))
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var attempts int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		var ev event.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		_ = json.NewEncoder(w).Encode(event.Ack{ID: ev.ID, Received: true})
	}))
	defer server.Close()

	client := New(WithInitialInterval(time.Millisecond), WithMaxRetries(4))
	err := client.Send(context.Background(), eventFor(t, server))

	require.NoError(t, err)
	assert.Equal(t, int64(3), atomic.LoadInt64(&attempts))
}

func TestClient_RetryExhaustion(t *testing.T) {
	var attempts int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(WithInitialInterval(time.Millisecond), WithMaxRetries(2))
	err := client.Send(context.Background(), eventFor(t, server))

	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int64(3), atomic.LoadInt64(&attempts), "initial attempt plus two retries")
}

func TestClient_AckMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(event.Ack{ID: 999, Received: true})
	}))
	defer server.Close()

	client := New(WithInitialInterval(time.Millisecond), WithMaxRetries(1))
	err := client.Send(context.Background(), eventFor(t, server))

	require.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "ack mismatch")
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(ackHandler(new(int64)))
	ev := eventFor(t, server)
	server.Close()

	client := New(WithInitialInterval(time.Millisecond), WithMaxRetries(1))
	err := client.Send(context.Background(), ev)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(WithInitialInterval(time.Hour))
	err := client.Send(ctx, eventFor(t, server))
	assert.Error(t, err)
}
