package components

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/cellwarden/cellwarden/internal/config"
)

// MailerName is the fixed component name for the SMTP mailer.
const MailerName = "smtp"

// sendMailFunc abstracts the SMTP exchange for testing.
type sendMailFunc func(cfg config.SMTPConfig, to []string, msg []byte) error

// Mailer is the SMTP delivery component behind the send_email action.
type Mailer struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
	send   sendMailFunc
}

// Interface guard
var _ Component = (*Mailer)(nil)

// NewMailer creates the SMTP component.
func NewMailer(cfg config.SMTPConfig, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{
		cfg:    cfg,
		logger: logger.WithGroup("components.Mailer"),
		send:   sendMail,
	}
}

// Name returns the fixed mailer component name.
func (m *Mailer) Name() string { return MailerName }

// Initialize validates the configuration.
func (m *Mailer) Initialize(_ context.Context) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("%w: smtp host not configured", ErrComponentInitialization)
	}
	if m.cfg.From == "" {
		return fmt.Errorf("%w: smtp from address not configured", ErrComponentInitialization)
	}
	return nil
}

// Connect dials the SMTP server once to verify reachability.
func (m *Mailer) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", m.addr())
	if err != nil {
		return fmt.Errorf("%w: smtp dial: %w", ErrComponentInitialization, err)
	}
	return conn.Close()
}

// HealthCheck is the same reachability probe as Connect.
func (m *Mailer) HealthCheck(ctx context.Context) error {
	return m.Connect(ctx)
}

// Close is a no-op; the mailer holds no persistent connection.
func (m *Mailer) Close() error { return nil }

// MaxErrorAttempts returns the configured consecutive-error threshold.
func (m *Mailer) MaxErrorAttempts() int { return m.cfg.MaxErrorAttempts }

// Send delivers a message to the recipients.
func (m *Mailer) Send(_ context.Context, to []string, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.From, strings.Join(to, ", "), subject, body)
	if err := m.send(m.cfg, to, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.logger.Debug("Email sent", "recipients", len(to), "subject", subject)
	return nil
}

func (m *Mailer) addr() string {
	return fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
}

// sendMail performs the MAIL/RCPT/DATA exchange, honoring the tls and
// starttls settings.
func sendMail(cfg config.SMTPConfig, to []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var client *smtp.Client
	var err error
	if cfg.TLS {
		conn, dialErr := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
		if dialErr != nil {
			return dialErr
		}
		client, err = smtp.NewClient(conn, cfg.Host)
	} else {
		client, err = smtp.Dial(addr)
	}
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if cfg.StartTLS && !cfg.TLS {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return err
		}
	}
	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
