package actions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cellwarden/cellwarden/internal/components"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// SendSMS delivers a message through the sms gateway component. Config:
// {recipient, message}. A disabled gateway counts as a skip, not a
// success.
type SendSMS struct{}

// Type returns the registration tag.
func (s *SendSMS) Type() string { return "send_sms" }

// Execute sends the message, or skips when disabled or exhausted.
func (s *SendSMS) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	if skip, ok := skipIfExhausted(s.Type(), sc); ok {
		return skip, nil
	}

	recipient := cfgString(cfg, "recipient")
	if recipient == "" {
		return nil, fmt.Errorf("send_sms: missing recipient")
	}
	message := cfgString(cfg, "message")
	if message == "" {
		return nil, fmt.Errorf("send_sms: missing message")
	}

	gateway, err := lookupSMSGateway(sc)
	if err != nil {
		return nil, fmt.Errorf("send_sms: %w", err)
	}
	if !gateway.Enabled() {
		sc.Logger.Debug("SMS gateway disabled, skipping", "recipient", recipient)
		return scenario.SkippedResult{Reason: "sms gateway disabled"}, nil
	}
	if err := gateway.Send(ctx, recipient, message); err != nil {
		return nil, fmt.Errorf("send_sms: %w", err)
	}
	return map[string]any{"recipient": recipient}, nil
}

// SendSMSToCustomer resolves a customer phone number from an order and
// sends the message to it. Config: {component, order_id, message,
// query?}. The default query looks the phone up by order id.
type SendSMSToCustomer struct{}

// Type returns the registration tag.
func (s *SendSMSToCustomer) Type() string { return "send_sms_to_customer" }

// defaultCustomerPhoneQuery resolves the customer phone for an order.
const defaultCustomerPhoneQuery = `SELECT c.phone
FROM customers c JOIN orders o ON o.customer_id = c.id
WHERE o.id = $1`

// Execute looks up the phone number and delivers the message.
func (s *SendSMSToCustomer) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	if skip, ok := skipIfExhausted(s.Type(), sc); ok {
		return skip, nil
	}

	orderID := cfgString(cfg, "order_id")
	if orderID == "" {
		return nil, fmt.Errorf("send_sms_to_customer: missing order_id")
	}
	message := cfgString(cfg, "message")
	if message == "" {
		return nil, fmt.Errorf("send_sms_to_customer: missing message")
	}
	query := cfgString(cfg, "query")
	if query == "" {
		query = defaultCustomerPhoneQuery
	}

	name := cfgString(cfg, "component")
	if name == "" {
		return nil, fmt.Errorf("send_sms_to_customer: missing component")
	}
	comp, ok := sc.Components[name]
	if !ok {
		return nil, fmt.Errorf("send_sms_to_customer: unknown component %q", name)
	}
	db, ok := comp.(*components.Database)
	if !ok {
		return nil, fmt.Errorf("send_sms_to_customer: component %q is not a database", name)
	}

	value, err := db.QueryValue(ctx, query, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("send_sms_to_customer: no phone for order %s", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("send_sms_to_customer: lookup: %w", err)
	}
	phone := fmt.Sprint(value)
	if phone == "" {
		return nil, fmt.Errorf("send_sms_to_customer: empty phone for order %s", orderID)
	}

	gateway, err := lookupSMSGateway(sc)
	if err != nil {
		return nil, fmt.Errorf("send_sms_to_customer: %w", err)
	}
	if !gateway.Enabled() {
		sc.Logger.Debug("SMS gateway disabled, skipping", "order_id", orderID)
		return scenario.SkippedResult{Reason: "sms gateway disabled"}, nil
	}
	if err := gateway.Send(ctx, phone, message); err != nil {
		return nil, fmt.Errorf("send_sms_to_customer: %w", err)
	}
	return map[string]any{"recipient": phone, "order_id": orderID}, nil
}

func lookupSMSGateway(sc *scenario.Context) (*components.SMSGateway, error) {
	comp, ok := sc.Components[components.SMSGatewayName]
	if !ok {
		return nil, fmt.Errorf("sms component not configured")
	}
	gateway, ok := comp.(*components.SMSGateway)
	if !ok {
		return nil, fmt.Errorf("component %q is not an sms gateway", components.SMSGatewayName)
	}
	return gateway, nil
}
