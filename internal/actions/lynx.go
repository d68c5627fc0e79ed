package actions

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cellwarden/cellwarden/internal/components"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// LynxRefund creates a refund through the Lynx API. Config: {order_id,
// amount}. The returned refund_id feeds a following lynx_refund_approve
// action through the run's trigger data.
type LynxRefund struct{}

// Type returns the registration tag.
func (l *LynxRefund) Type() string { return "lynx_refund" }

// Execute creates the refund and binds its id into the trigger data.
func (l *LynxRefund) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	if skip, ok := skipIfExhausted(l.Type(), sc); ok {
		return skip, nil
	}

	orderID := cfgString(cfg, "order_id")
	if orderID == "" {
		return nil, fmt.Errorf("lynx_refund: missing order_id")
	}
	amount, err := cfgAmount(cfg, "amount")
	if err != nil {
		return nil, fmt.Errorf("lynx_refund: %w", err)
	}

	client, err := lookupLynxClient(sc)
	if err != nil {
		return nil, fmt.Errorf("lynx_refund: %w", err)
	}
	refundID, err := client.Refund(ctx, orderID, amount)
	if err != nil {
		return nil, fmt.Errorf("lynx_refund: %w", err)
	}

	// Later actions in the same run template-reference trigger.refund_id.
	sc.TriggerData["refund_id"] = refundID
	return map[string]any{"refund_id": refundID}, nil
}

// LynxRefundApprove confirms a refund created earlier in the run.
// Config: {refund_id}, typically "{{ trigger.refund_id }}".
type LynxRefundApprove struct{}

// Type returns the registration tag.
func (l *LynxRefundApprove) Type() string { return "lynx_refund_approve" }

// Execute approves the refund.
func (l *LynxRefundApprove) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	if skip, ok := skipIfExhausted(l.Type(), sc); ok {
		return skip, nil
	}

	refundID := cfgString(cfg, "refund_id")
	if refundID == "" {
		return nil, fmt.Errorf("lynx_refund_approve: missing refund_id")
	}

	client, err := lookupLynxClient(sc)
	if err != nil {
		return nil, fmt.Errorf("lynx_refund_approve: %w", err)
	}
	if err := client.RefundApprove(ctx, refundID); err != nil {
		return nil, fmt.Errorf("lynx_refund_approve: %w", err)
	}
	return map[string]any{"refund_id": refundID}, nil
}

func lookupLynxClient(sc *scenario.Context) (*components.LynxClient, error) {
	comp, ok := sc.Components[components.LynxClientName]
	if !ok {
		return nil, fmt.Errorf("lynx component not configured")
	}
	client, ok := comp.(*components.LynxClient)
	if !ok {
		return nil, fmt.Errorf("component %q is not a lynx client", components.LynxClientName)
	}
	return client, nil
}

// cfgAmount accepts a number or a numeric string, template resolution
// preserves whichever type the binding carried.
func cfgAmount(cfg map[string]any, key string) (float64, error) {
	raw, ok := cfg[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s: unsupported type %T", key, raw)
	}
}
