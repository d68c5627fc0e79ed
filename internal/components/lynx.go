package components

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cellwarden/cellwarden/internal/config"
)

// LynxClientName is the fixed component name for the Lynx API client.
const LynxClientName = "lynx"

// LynxClient talks to the Lynx payment API. Refunds are a two-step
// exchange: lynx_refund creates the refund, lynx_refund_approve confirms
// it with the id returned by the first step.
type LynxClient struct {
	cfg        config.LynxConfig
	logger     *slog.Logger
	httpClient *http.Client
}

// Interface guard
var _ Component = (*LynxClient)(nil)

// NewLynxClient creates the Lynx API component.
func NewLynxClient(cfg config.LynxConfig, logger *slog.Logger) *LynxClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &LynxClient{
		cfg:        cfg,
		logger:     logger.WithGroup("components.LynxClient"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the fixed Lynx component name.
func (l *LynxClient) Name() string { return LynxClientName }

// MaxErrorAttempts returns the configured consecutive-error threshold.
func (l *LynxClient) MaxErrorAttempts() int { return l.cfg.MaxErrorAttempts }

// Initialize validates the configuration.
func (l *LynxClient) Initialize(_ context.Context) error {
	if l.cfg.BaseURL == "" {
		return fmt.Errorf("%w: lynx base_url not configured", ErrComponentInitialization)
	}
	return nil
}

// Connect is a no-op; the API is stateless HTTP.
func (l *LynxClient) Connect(_ context.Context) error { return nil }

// HealthCheck verifies configuration only.
func (l *LynxClient) HealthCheck(ctx context.Context) error {
	return l.Initialize(ctx)
}

// Close is a no-op.
func (l *LynxClient) Close() error { return nil }

// Refund creates a refund for an order and returns the refund id needed
// by RefundApprove.
func (l *LynxClient) Refund(ctx context.Context, orderID string, amount float64) (string, error) {
	var out struct {
		RefundID string `json:"refund_id"`
	}
	err := l.post(ctx, "/refunds", map[string]any{
		"order_id": orderID,
		"amount":   amount,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.RefundID == "" {
		return "", fmt.Errorf("lynx refund: empty refund_id for order %s", orderID)
	}
	l.logger.Debug("Refund created", "order_id", orderID, "refund_id", out.RefundID)
	return out.RefundID, nil
}

// RefundApprove confirms a previously created refund.
func (l *LynxClient) RefundApprove(ctx context.Context, refundID string) error {
	err := l.post(ctx, fmt.Sprintf("/refunds/%s/approve", refundID), map[string]any{}, nil)
	if err != nil {
		return err
	}
	l.logger.Debug("Refund approved", "refund_id", refundID)
	return nil
}

func (l *LynxClient) post(ctx context.Context, path string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("lynx payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, l.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("lynx request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lynx %s: %w", path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("lynx %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("lynx %s: decode: %w", path, err)
		}
	}
	return nil
}
