package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cellwarden/cellwarden/internal/registry"
)

// ContextBuilder supplies fresh scenario contexts and client snapshots.
// The orchestrator implements it; tests substitute their own.
type ContextBuilder interface {
	// ClientSnapshot returns a copy of the merged client map. One
	// snapshot is taken per tick so every trigger in that tick sees the
	// same consistent state.
	ClientSnapshot() map[string]ClientState

	// BuildContext assembles a per-run context over the given snapshot.
	BuildContext(scenarioName string, clients map[string]ClientState,
		triggerData map[string]any) *Context
}

// SkippedResult is returned by outbound actions that skipped themselves
// (disabled gateway, exhausted error counter). A skip is not a delivery
// success and does not reset the action kind's error counter.
type SkippedResult struct {
	Reason string
}

// ScenarioStatus is the exported execution state of one scenario.
type ScenarioStatus struct {
	Name               string    `json:"name"`
	Priority           int       `json:"priority"`
	ExecutionCount     int       `json:"execution_count"`
	InFlight           int       `json:"in_flight"`
	Blocked            bool      `json:"blocked"`
	ManualRunRequested bool      `json:"manual_run_requested"`
	LastExecutionAt    time.Time `json:"last_execution_at"`
}

// runtime pairs a scenario spec with its execution-governance state. All
// fields besides spec are guarded by the engine mutex.
type runtime struct {
	spec               *Scenario
	lastExecutionAt    time.Time
	executionCount     int
	inFlight           int
	manualRunRequested bool

	// recent holds the most recent execution records, newest last.
	recent []*Execution
}

// blocked reports whether the scenario reached its max_executions cap.
func (r *runtime) blocked() bool {
	return r.spec.MaxExecutions > 0 && r.executionCount >= r.spec.MaxExecutions
}

// maxRecentExecutions caps the per-scenario run table.
const maxRecentExecutions = 16

// Engine evaluates scenario triggers each tick and dispatches executions
// under cooldown, priority, and concurrency constraints.
type Engine struct {
	logger  *slog.Logger
	handler slog.Handler

	conditions *registry.Registry[Condition]
	actions    *registry.Registry[Action]
	evaluator  *Evaluator
	builder    ContextBuilder

	// maxConcurrent caps in-flight executions across all scenarios. Zero
	// means the scheduler never runs anything.
	maxConcurrent int

	mu             sync.Mutex
	scenarios      []*runtime
	byName         map[string]*runtime
	globalInFlight int

	actionErrors *ErrorCounters
	wg           sync.WaitGroup
}

// EngineOption is a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithMaxConcurrentScenarios sets the global in-flight cap.
func WithMaxConcurrentScenarios(n int) EngineOption {
	return func(e *Engine) {
		e.maxConcurrent = n
	}
}

// WithEngineLogHandler sets the handler used for per-run log capture.
func WithEngineLogHandler(handler slog.Handler) EngineOption {
	return func(e *Engine) {
		if handler != nil {
			e.handler = handler
			e.logger = slog.New(handler).WithGroup("scenario.Engine")
		}
	}
}

// NewEngine creates a scenario engine over the given registries.
func NewEngine(
	conditions *registry.Registry[Condition],
	actions *registry.Registry[Action],
	builder ContextBuilder,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		logger:        slog.Default().WithGroup("scenario.Engine"),
		handler:       slog.Default().Handler(),
		conditions:    conditions,
		actions:       actions,
		builder:       builder,
		maxConcurrent: 1,
		byName:        map[string]*runtime{},
		actionErrors:  NewErrorCounters(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.evaluator = NewEvaluator(conditions, e.logger.WithGroup("evaluator"))
	return e
}

// Load replaces the scenario set, resetting all execution state. Called
// from the orchestrator's on_initialize hook.
func (e *Engine) Load(scenarios []*Scenario) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenarios = e.scenarios[:0]
	e.byName = make(map[string]*runtime, len(scenarios))
	for _, s := range scenarios {
		rt := &runtime{spec: s}
		e.scenarios = append(e.scenarios, rt)
		e.byName[s.Name] = rt
	}
	e.logger.Info("Scenarios loaded", "count", len(scenarios))
}

// Evaluator returns the condition tree evaluator.
func (e *Engine) Evaluator() *Evaluator {
	return e.evaluator
}

// ActionErrors returns the shared action error counters.
func (e *Engine) ActionErrors() *ErrorCounters {
	return e.actionErrors
}

// RequestManualRun flags a manual scenario to run on the next tick.
func (e *Engine) RequestManualRun(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rt, ok := e.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	if rt.spec.Trigger.Type != TriggerManual {
		return fmt.Errorf("scenario %q trigger is %q, not manual", name, rt.spec.Trigger.Type)
	}
	rt.manualRunRequested = true
	return nil
}

// ResetCounters clears every scenario's execution count and the action
// error counters. Called when the orchestrator handles CMD_ACK.
func (e *Engine) ResetCounters() {
	e.mu.Lock()
	for _, rt := range e.scenarios {
		rt.executionCount = 0
	}
	e.mu.Unlock()
	e.actionErrors.ResetAll()
	e.logger.Info("Execution counters reset")
}

// InFlight returns the global in-flight execution count.
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.globalInFlight
}

// Status exports the execution state of every loaded scenario in
// priority order.
func (e *Engine) Status() []ScenarioStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ScenarioStatus, 0, len(e.scenarios))
	for _, rt := range e.scenarios {
		out = append(out, ScenarioStatus{
			Name:               rt.spec.Name,
			Priority:           rt.spec.EffectivePriority(),
			ExecutionCount:     rt.executionCount,
			InFlight:           rt.inFlight,
			Blocked:            rt.blocked(),
			ManualRunRequested: rt.manualRunRequested,
			LastExecutionAt:    rt.lastExecutionAt,
		})
	}
	return out
}

// Tick performs one scheduling pass: evaluates every scenario trigger in
// priority order against a single client snapshot and dispatches the
// ones that fire.
func (e *Engine) Tick(ctx context.Context) {
	clients := e.builder.ClientSnapshot()
	now := time.Now()

	e.mu.Lock()
	candidates := make([]*runtime, len(e.scenarios))
	copy(candidates, e.scenarios)
	e.mu.Unlock()

	for _, rt := range candidates {
		if ctx.Err() != nil {
			return
		}

		e.mu.Lock()
		if rt.blocked() {
			e.mu.Unlock()
			continue
		}
		if rt.spec.Cooldown > 0 && !rt.lastExecutionAt.IsZero() &&
			now.Sub(rt.lastExecutionAt) < rt.spec.Cooldown.AsDuration() {
			e.mu.Unlock()
			continue
		}
		if e.globalInFlight >= e.maxConcurrent {
			e.mu.Unlock()
			// The global cap ends the whole tick.
			return
		}
		if rt.inFlight >= rt.spec.EffectiveMaxConcurrent() {
			e.mu.Unlock()
			continue
		}
		manualRequested := rt.manualRunRequested
		e.mu.Unlock()

		sc := e.builder.BuildContext(rt.spec.Name, clients, map[string]any{})

		var fire bool
		var bindings map[string]any
		switch rt.spec.Trigger.Type {
		case TriggerManual:
			if !manualRequested {
				continue
			}
			e.mu.Lock()
			rt.manualRunRequested = false
			e.mu.Unlock()
			fire = true
		default:
			// Automatic with no condition tree never fires.
			if rt.spec.Trigger.Conditions == nil {
				continue
			}
			fire, bindings = e.evaluator.Evaluate(ctx, rt.spec.Trigger.Conditions, sc)
		}
		if !fire {
			continue
		}

		for k, v := range bindings {
			sc.TriggerData[k] = v
		}
		e.dispatch(ctx, rt, sc)
	}
}

// dispatch reserves in-flight slots and starts the execution task.
func (e *Engine) dispatch(ctx context.Context, rt *runtime, sc *Context) {
	exec, err := NewExecution(rt.spec.Name, e.handler)
	if err != nil {
		e.logger.Error("Failed to create execution", "scenario", rt.spec.Name, "error", err)
		return
	}

	e.mu.Lock()
	rt.inFlight++
	e.globalInFlight++
	rt.recent = append(rt.recent, exec)
	if len(rt.recent) > maxRecentExecutions {
		rt.recent = rt.recent[len(rt.recent)-maxRecentExecutions:]
	}
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(ctx, rt, exec, sc)
	}()
}

// run executes one scenario instance to completion.
func (e *Engine) run(ctx context.Context, rt *runtime, exec *Execution, sc *Context) {
	logger := exec.Logger()
	sc.Engine = e
	sc.Logger = logger
	sc.ActionErrors = e.actionErrors

	if err := exec.MarkRunning(); err != nil {
		logger.Error("Failed to start execution", "error", err)
	}
	logger.Info("Scenario execution started")

	err := e.runActions(ctx, rt.spec.Actions, sc, exec)

	success := err == nil
	switch {
	case success:
		if markErr := exec.MarkSucceeded(); markErr != nil {
			logger.Error("Failed to mark execution succeeded", "error", markErr)
		}
		logger.Info("Scenario execution finished", "duration", exec.Duration())
	case ctx.Err() != nil:
		if markErr := exec.MarkCancelled(); markErr != nil {
			logger.Error("Failed to mark execution cancelled", "error", markErr)
		}
		logger.Warn("Scenario execution cancelled")
	default:
		if markErr := exec.MarkFailed(err); markErr != nil {
			logger.Error("Failed to mark execution failed", "error", markErr)
		}
		logger.Error("Scenario execution failed", "error", err)
	}

	e.mu.Lock()
	rt.lastExecutionAt = time.Now()
	if success {
		// Failures do not count against max_executions; the cap guards
		// runaway successful runs.
		rt.executionCount++
	}
	rt.inFlight--
	e.globalInFlight--
	e.mu.Unlock()
}

// RunActions executes a list of action configs sequentially within the
// current run. Used by nested kinds (evaluate_condition branches,
// wait_for_state on_failure).
func (e *Engine) RunActions(ctx context.Context, actions []ActionConfig, sc *Context) error {
	return e.runActions(ctx, actions, sc, nil)
}

func (e *Engine) runActions(
	ctx context.Context,
	actions []ActionConfig,
	sc *Context,
	exec *Execution,
) error {
	logger := sc.Logger
	if logger == nil {
		logger = e.logger
	}
	data := sc.TemplateData()

	for _, cfg := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}

		kind := cfg.Type()
		action, ok := e.actions.Get(kind)
		if !ok {
			err := fmt.Errorf("%w: %q", ErrUnknownActionType, kind)
			e.actionErrors.Failure(kind)
			return NewActionExecutionError(kind, "no such action kind", err)
		}

		resolved := ResolveActionConfig(cfg, data, logger)

		started := time.Now()
		result, err := action.Execute(ctx, resolved, sc)
		elapsed := time.Since(started)

		if exec != nil {
			exec.RecordAction(ActionResult{
				ActionType: kind,
				Result:     result,
				Err:        err,
				Duration:   elapsed,
			})
		}

		if err != nil {
			e.actionErrors.Failure(kind)
			var execErr *ActionExecutionError
			if errors.As(err, &execErr) {
				return execErr
			}
			return NewActionExecutionError(kind, "execute failed", err)
		}

		// A skip is not a delivery success; the error counter stands.
		if _, skipped := result.(SkippedResult); !skipped {
			e.actionErrors.Success(kind)
		}
	}
	return nil
}

// ExecuteByName runs a scenario synchronously, used by the
// execute_scenario action for nested invocations. Blocking and
// concurrency caps still apply; cooldown does not.
func (e *Engine) ExecuteByName(ctx context.Context, name string) error {
	e.mu.Lock()
	rt, ok := e.byName[name]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	if rt.blocked() {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrScenarioBlocked, name)
	}
	if e.globalInFlight >= e.maxConcurrent {
		e.mu.Unlock()
		return fmt.Errorf("%w: global cap %d", ErrConcurrencyLimit, e.maxConcurrent)
	}
	if rt.inFlight >= rt.spec.EffectiveMaxConcurrent() {
		e.mu.Unlock()
		return fmt.Errorf("%w: scenario %q", ErrConcurrencyLimit, name)
	}
	rt.inFlight++
	e.globalInFlight++
	e.mu.Unlock()

	exec, err := NewExecution(name, e.handler)
	if err != nil {
		e.mu.Lock()
		rt.inFlight--
		e.globalInFlight--
		e.mu.Unlock()
		return err
	}

	sc := e.builder.BuildContext(name, e.builder.ClientSnapshot(), map[string]any{})
	e.run(ctx, rt, exec, sc)

	e.mu.Lock()
	last := exec.Err()
	e.mu.Unlock()
	return last
}

// Drain waits for in-flight executions to finish or the context to
// expire. Pending tasks past the deadline are abandoned to their
// cancelled contexts.
func (e *Engine) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain interrupted with %d executions in flight: %w",
			e.InFlight(), ctx.Err())
	}
}
