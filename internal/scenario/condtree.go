package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/cellwarden/cellwarden/internal/registry"
)

// Logical operator tags. Anything else in a condition node is a leaf
// kind resolved through the condition registry.
const (
	opAnd  = "and"
	opOr   = "or"
	opNot  = "not"
	opXor  = "xor"
	opNand = "nand"
	opNor  = "nor"
)

// Evaluator walks a condition tree: logical nodes are evaluated
// structurally, leaves are dispatched to registered condition kinds. A
// failing leaf evaluation counts as false and is logged, never
// propagated.
type Evaluator struct {
	conditions *registry.Registry[Condition]
	logger     *slog.Logger
}

// NewEvaluator creates a condition tree evaluator over the registry.
func NewEvaluator(conditions *registry.Registry[Condition], logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default().WithGroup("scenario.Evaluator")
	}
	return &Evaluator{conditions: conditions, logger: logger}
}

// Evaluate evaluates one condition node against the scenario context and
// returns the verdict plus the merged bindings of every sub-condition
// that evaluated true.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	node map[string]any,
	sc *Context,
) (bool, map[string]any) {
	if len(node) != 1 {
		e.logger.Warn("Condition node must have exactly one key",
			"scenario", sc.ScenarioName, "keys", len(node))
		return false, nil
	}

	var tag string
	var child any
	for k, v := range node {
		tag, child = k, v
	}

	switch tag {
	case opAnd, opOr, opXor, opNand, opNor:
		children, err := childNodes(child)
		if err != nil {
			e.logger.Warn("Malformed logical condition",
				"scenario", sc.ScenarioName, "operator", tag, "error", err)
			return false, nil
		}
		return e.evaluateLogical(ctx, tag, children, sc)
	case opNot:
		children, err := childNodes(child)
		if err != nil || len(children) != 1 {
			e.logger.Warn("Malformed not condition",
				"scenario", sc.ScenarioName, "error", err, "children", len(children))
			return false, nil
		}
		verdict, _ := e.Evaluate(ctx, children[0], sc)
		return !verdict, nil
	default:
		return e.evaluateLeaf(ctx, tag, child, sc)
	}
}

// EvaluateAll AND-reduces a list of condition nodes, merging bindings of
// the ones that fired. Used by evaluate_condition action configs.
func (e *Evaluator) EvaluateAll(
	ctx context.Context,
	nodes []map[string]any,
	sc *Context,
) (bool, map[string]any) {
	bindings := map[string]any{}
	for _, node := range nodes {
		verdict, b := e.Evaluate(ctx, node, sc)
		if !verdict {
			return false, nil
		}
		maps.Copy(bindings, b)
	}
	return true, bindings
}

func (e *Evaluator) evaluateLogical(
	ctx context.Context,
	op string,
	children []map[string]any,
	sc *Context,
) (bool, map[string]any) {
	trueCount := 0
	bindings := map[string]any{}
	for _, child := range children {
		verdict, b := e.Evaluate(ctx, child, sc)
		if verdict {
			trueCount++
			maps.Copy(bindings, b)
		}
	}

	var verdict bool
	switch op {
	case opAnd:
		verdict = trueCount == len(children) && len(children) > 0
	case opOr:
		verdict = trueCount > 0
	case opXor:
		verdict = trueCount == 1
	case opNand:
		verdict = !(trueCount == len(children) && len(children) > 0)
	case opNor:
		verdict = trueCount == 0
	}
	if !verdict {
		return false, nil
	}
	return true, bindings
}

func (e *Evaluator) evaluateLeaf(
	ctx context.Context,
	tag string,
	rawCfg any,
	sc *Context,
) (bool, map[string]any) {
	cond, ok := e.conditions.Get(tag)
	if !ok {
		e.logger.Warn("Unknown condition kind",
			"scenario", sc.ScenarioName, "tag", tag)
		return false, nil
	}

	cfg, ok := rawCfg.(map[string]any)
	if !ok {
		e.logger.Warn("Condition config must be a mapping",
			"scenario", sc.ScenarioName, "tag", tag)
		return false, nil
	}

	verdict, bindings, err := cond.Evaluate(ctx, cfg, sc)
	if err != nil {
		// Evaluation errors are "condition is false", never fatal.
		e.logger.Warn("Condition evaluation failed",
			"scenario", sc.ScenarioName, "tag", tag, "error", err)
		return false, nil
	}
	return verdict, bindings
}

// childNodes normalizes the child of a logical operator: a single node,
// a list of nodes, or a {conditions: [...]} wrapper.
func childNodes(child any) ([]map[string]any, error) {
	switch v := child.(type) {
	case map[string]any:
		if wrapped, ok := v["conditions"]; ok && len(v) == 1 {
			return childNodes(wrapped)
		}
		return []map[string]any{v}, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, elem := range v {
			node, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("condition list element is %T, want mapping", elem)
			}
			out = append(out, node)
		}
		return out, nil
	case []map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported condition child %T", child)
	}
}
