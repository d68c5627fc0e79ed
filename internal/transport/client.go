// Package transport implements the outbound HTTP event client with
// exponential backoff retries.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cellwarden/cellwarden/internal/event"
)

const (
	// DefaultMaxRetries caps retry attempts after the initial send.
	DefaultMaxRetries = 4

	// DefaultInitialInterval seeds the exponential backoff.
	DefaultInitialInterval = 250 * time.Millisecond

	// defaultRequestTimeout bounds a single HTTP exchange.
	defaultRequestTimeout = 10 * time.Second
)

// Client posts serialized events to a destination's /event endpoint.
// Sends for one destination are issued by a single sender loop in the
// listener, which preserves per-pair FIFO ordering.
type Client struct {
	httpClient      *http.Client
	logger          *slog.Logger
	maxRetries      uint64
	initialInterval time.Duration
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRetries sets the retry cap after the initial attempt.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithInitialInterval sets the first backoff interval.
func WithInitialInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.initialInterval = d
		}
	}
}

// WithLogger sets the logger for this client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an outbound event client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: defaultRequestTimeout},
		logger:          slog.Default().WithGroup("transport.Client"),
		maxRetries:      DefaultMaxRetries,
		initialInterval: DefaultInitialInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts the event to its destination, retrying transient failures
// with exponential backoff. The destination's synchronous ack must echo
// the event id.
func (c *Client) Send(ctx context.Context, ev *event.Event) error {
	body, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	operation := func() error {
		return c.post(ctx, ev, body)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	err = backoff.Retry(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx),
	)
	if err != nil {
		c.logger.Warn("Send failed after retries",
			"event", ev.String(),
			"url", ev.DestinationURL(),
			"error", err)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, ev *event.Event, body []byte) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		ev.DestinationURL(),
		bytes.NewReader(body),
	)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, ev.DestinationURL())
	}

	var ack event.Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("malformed ack: %w", err)
	}
	if !ack.Received || ack.ID != ev.ID {
		return fmt.Errorf("ack mismatch: got id %d received %t, want id %d",
			ack.ID, ack.Received, ev.ID)
	}
	return nil
}
