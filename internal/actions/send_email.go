package actions

import (
	"context"
	"fmt"

	"github.com/cellwarden/cellwarden/internal/components"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// SendEmail delivers a message through the smtp component. Config:
// {to: [addresses], subject, body}. Skips itself once the email error
// counter exceeds the configured threshold.
type SendEmail struct{}

// Type returns the registration tag.
func (s *SendEmail) Type() string { return "send_email" }

// Execute sends the message, or skips when the counter is exhausted.
func (s *SendEmail) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	if skip, ok := skipIfExhausted(s.Type(), sc); ok {
		return skip, nil
	}

	to, err := cfgStrings(cfg, "to")
	if err != nil {
		return nil, fmt.Errorf("send_email: %w", err)
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("send_email: missing recipients")
	}
	subject := cfgString(cfg, "subject")
	body := cfgString(cfg, "body")
	if subject == "" && body == "" {
		return nil, fmt.Errorf("send_email: empty subject and body")
	}

	mailer, err := lookupMailer(sc)
	if err != nil {
		return nil, fmt.Errorf("send_email: %w", err)
	}
	if err := mailer.Send(ctx, to, subject, body); err != nil {
		return nil, fmt.Errorf("send_email: %w", err)
	}
	return map[string]any{"recipients": to}, nil
}

func lookupMailer(sc *scenario.Context) (*components.Mailer, error) {
	comp, ok := sc.Components[components.MailerName]
	if !ok {
		return nil, fmt.Errorf("smtp component not configured")
	}
	mailer, ok := comp.(*components.Mailer)
	if !ok {
		return nil, fmt.Errorf("component %q is not a mailer", components.MailerName)
	}
	return mailer, nil
}
