package components

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cellwarden/cellwarden/internal/config"
)

// SMSGatewayName is the fixed component name for the SMS gateway.
const SMSGatewayName = "sms"

// SMSGateway is the HTTP SMS delivery component behind the send_sms and
// send_sms_to_customer actions.
type SMSGateway struct {
	cfg        config.SMSConfig
	logger     *slog.Logger
	httpClient *http.Client
}

// Interface guard
var _ Component = (*SMSGateway)(nil)

// NewSMSGateway creates the SMS component.
func NewSMSGateway(cfg config.SMSConfig, logger *slog.Logger) *SMSGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMSGateway{
		cfg:        cfg,
		logger:     logger.WithGroup("components.SMSGateway"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns the fixed SMS component name.
func (s *SMSGateway) Name() string { return SMSGatewayName }

// Enabled reports whether outbound SMS delivery is configured on.
func (s *SMSGateway) Enabled() bool { return s.cfg.Enabled }

// MaxErrorAttempts returns the configured consecutive-error threshold.
func (s *SMSGateway) MaxErrorAttempts() int { return s.cfg.MaxErrorAttempts }

// Initialize validates the configuration.
func (s *SMSGateway) Initialize(_ context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	if s.cfg.URL == "" {
		return fmt.Errorf("%w: sms gateway url not configured", ErrComponentInitialization)
	}
	return nil
}

// Connect is a no-op; the gateway is stateless HTTP.
func (s *SMSGateway) Connect(_ context.Context) error { return nil }

// HealthCheck is a no-op while disabled, otherwise verifies config only;
// the gateway exposes no probe endpoint.
func (s *SMSGateway) HealthCheck(ctx context.Context) error {
	return s.Initialize(ctx)
}

// Close is a no-op.
func (s *SMSGateway) Close() error { return nil }

// Send posts one message to the gateway. A disabled gateway drops the
// message with a debug log and reports success.
func (s *SMSGateway) Send(ctx context.Context, recipient, message string) error {
	if !s.cfg.Enabled {
		s.logger.Debug("SMS gateway disabled, dropping message", "recipient", recipient)
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"login":     s.cfg.Login,
		"password":  s.cfg.Password,
		"serviceId": s.cfg.ServiceID,
		"source":    s.cfg.Source,
		"recipient": recipient,
		"message":   message,
	})
	if err != nil {
		return fmt.Errorf("sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.cfg.URL, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway status %d", resp.StatusCode)
	}
	s.logger.Debug("SMS sent", "recipient", recipient)
	return nil
}
