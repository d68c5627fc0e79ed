// Package orchestrator implements the supervising component: an event
// listener whose behavior polls the client fleet, evaluates scenario
// triggers, and executes scenario actions against components.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cellwarden/cellwarden/internal/actions"
	"github.com/cellwarden/cellwarden/internal/components"
	"github.com/cellwarden/cellwarden/internal/conditions"
	"github.com/cellwarden/cellwarden/internal/config"
	"github.com/cellwarden/cellwarden/internal/event"
	"github.com/cellwarden/cellwarden/internal/listener"
	"github.com/cellwarden/cellwarden/internal/registry"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// Interface guards
var (
	_ listener.Behavior       = (*Orchestrator)(nil)
	_ scenario.Orchestrator   = (*Orchestrator)(nil)
	_ scenario.ContextBuilder = (*Orchestrator)(nil)
)

// Orchestrator owns the client registry, the component handles, and the
// scenario engine. It plugs into a Listener as its Behavior: the
// listener's periodic local check is the scenario tick.
type Orchestrator struct {
	cfg *config.Config

	listener   *listener.Listener
	engine     *scenario.Engine
	store      *Store
	components map[string]components.Component

	conditions *registry.Registry[scenario.Condition]
	actions    *registry.Registry[scenario.Action]

	logger  *slog.Logger
	handler slog.Handler
}

// Option is a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithLogHandler sets the slog handler shared by the orchestrator, its
// listener, and the engine's per-run log capture.
func WithLogHandler(handler slog.Handler) Option {
	return func(o *Orchestrator) {
		if handler != nil {
			o.handler = handler
			o.logger = slog.New(handler).WithGroup("orchestrator.Orchestrator")
		}
	}
}

// New assembles the orchestrator from validated configuration:
// registries with the built-in kinds, components, the scenario engine,
// and the underlying event listener.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	o := &Orchestrator{
		cfg:     cfg,
		store:   NewStore(cfg.Clients),
		logger:  slog.Default().WithGroup("orchestrator.Orchestrator"),
		handler: slog.Default().Handler(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.conditions = registry.New[scenario.Condition]("conditions")
	conditions.RegisterBuiltins(o.conditions)
	o.actions = registry.New[scenario.Action]("actions")
	actions.RegisterBuiltins(o.actions)

	comps, err := components.BuildAll(cfg.Components, o.logger)
	if err != nil {
		return nil, fmt.Errorf("build components: %w", err)
	}
	o.components = comps
	o.addDeliveryComponents()

	o.engine = scenario.NewEngine(
		o.conditions,
		o.actions,
		o,
		scenario.WithMaxConcurrentScenarios(*cfg.MaxConcurrentScenarios),
		scenario.WithEngineLogHandler(o.handler),
	)
	o.applyErrorLimits()

	l, err := listener.New(
		cfg.Name,
		cfg.Address,
		cfg.Port,
		o,
		listener.WithSnapshotDirectory(cfg.SnapshotDirectory),
		listener.WithCheckInterval(cfg.TickInterval.AsDuration()),
		listener.WithLogHandler(o.handler),
	)
	if err != nil {
		return nil, fmt.Errorf("create listener: %w", err)
	}
	o.listener = l
	return o, nil
}

// addDeliveryComponents registers the fixed-name delivery components
// configured at the top level.
func (o *Orchestrator) addDeliveryComponents() {
	if o.cfg.SMTP != nil {
		o.components[components.MailerName] = components.NewMailer(*o.cfg.SMTP, o.logger)
	}
	if o.cfg.SMS != nil {
		o.components[components.SMSGatewayName] = components.NewSMSGateway(*o.cfg.SMS, o.logger)
	}
	if o.cfg.Lynx != nil {
		o.components[components.LynxClientName] = components.NewLynxClient(*o.cfg.Lynx, o.logger)
	}
}

// applyErrorLimits wires each delivery component's max_error_attempts
// into the engine's per-kind error counters.
func (o *Orchestrator) applyErrorLimits() {
	counters := o.engine.ActionErrors()
	if o.cfg.SMTP != nil {
		counters.SetLimit("send_email", o.cfg.SMTP.MaxErrorAttempts)
	}
	if o.cfg.SMS != nil {
		counters.SetLimit("send_sms", o.cfg.SMS.MaxErrorAttempts)
		counters.SetLimit("send_sms_to_customer", o.cfg.SMS.MaxErrorAttempts)
	}
	if o.cfg.Lynx != nil {
		counters.SetLimit("lynx_refund", o.cfg.Lynx.MaxErrorAttempts)
		counters.SetLimit("lynx_refund_approve", o.cfg.Lynx.MaxErrorAttempts)
	}
}

// Listener returns the orchestrator's event listener runnable.
func (o *Orchestrator) Listener() *listener.Listener { return o.listener }

// Engine returns the scenario engine.
func (o *Orchestrator) Engine() *scenario.Engine { return o.engine }

// Name returns the orchestrator's logical component name.
func (o *Orchestrator) Name() string { return o.cfg.Name }

// OnInitialize brings up the components and loads the scenario set.
func (o *Orchestrator) OnInitialize(ctx context.Context) error {
	for name, comp := range o.components {
		if err := comp.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize component %q: %w", name, err)
		}
		if err := comp.Connect(ctx); err != nil {
			return fmt.Errorf("connect component %q: %w", name, err)
		}
	}

	scenarios := scenario.LoadAll(
		o.cfg.BuiltinScenariosDirectory,
		o.cfg.ScenariosDirectory,
		o.logger.WithGroup("loader"),
	)
	o.engine.Load(scenarios)
	return nil
}

// OnRun marks the start of supervision.
func (o *Orchestrator) OnRun(_ context.Context) error {
	o.logger.Info("Supervision started", "clients", len(o.cfg.Clients))
	return nil
}

// OnPause suspends the tick; nothing else to do, the listener already
// stopped the local check loop.
func (o *Orchestrator) OnPause(_ context.Context) error {
	o.logger.Info("Supervision paused")
	return nil
}

// OnStop releases the component handles.
func (o *Orchestrator) OnStop(_ context.Context) error {
	for name, comp := range o.components {
		if err := comp.Close(); err != nil {
			o.logger.Warn("Failed to close component", "component", name, "error", err)
		}
	}
	return nil
}

// OnAck resets the scenario execution counters and the per-kind action
// error counters.
func (o *Orchestrator) OnAck(_ context.Context) error {
	o.engine.ResetCounters()
	return nil
}

// CheckLocalData is the scenario tick: poll every client for state, then
// run one engine scheduling pass.
func (o *Orchestrator) CheckLocalData(ctx context.Context) error {
	o.pollClients(ctx)
	o.engine.Tick(ctx)
	return nil
}

// pollClients enqueues a CMD_GET_STATE for every configured client.
// Replies arrive asynchronously and are merged by AnalyzeEvent; a client
// that never answers simply keeps its stale record.
func (o *Orchestrator) pollClients(ctx context.Context) {
	timeout := o.cfg.PollTimeout.AsDuration()
	for _, name := range o.cfg.ClientNames() {
		if ctx.Err() != nil {
			return
		}
		if _, err := o.Emit(ctx, name, event.CmdGetState, nil, timeout); err != nil {
			o.logger.Warn("Failed to poll client", "client", name, "error", err)
		}
	}
}

// AnalyzeEvent consumes state replies from clients; everything else is
// logged and dropped.
func (o *Orchestrator) AnalyzeEvent(_ context.Context, ev *event.Event) (bool, error) {
	if ev.IsReply() && ev.Type == event.CmdGetState {
		if !o.store.UpdateFromReply(ev) {
			o.logger.Warn("State reply from unknown client", "event", ev.String())
		}
		return true, nil
	}
	o.logger.Debug("Ignoring unsolicited event", "event", ev.String())
	return true, nil
}

// StateFields contributes the scenario table to the orchestrator's own
// CMD_GET_STATE reply.
func (o *Orchestrator) StateFields() map[string]any {
	return map[string]any{
		"scenarios":            o.engine.Status(),
		"executions_in_flight": o.engine.InFlight(),
	}
}

// Emit sends an event to a named client without waiting for the reply.
func (o *Orchestrator) Emit(
	_ context.Context,
	destination, eventType string,
	data map[string]any,
	maxProcessing time.Duration,
) (*event.Event, error) {
	ev, err := o.buildEvent(destination, eventType, data, maxProcessing)
	if err != nil {
		return nil, err
	}
	if err := o.listener.Emit(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// EmitAndWait sends an event and blocks until the correlated reply
// arrives or maxProcessing elapses.
func (o *Orchestrator) EmitAndWait(
	ctx context.Context,
	destination, eventType string,
	data map[string]any,
	maxProcessing time.Duration,
) (*event.Event, error) {
	ev, err := o.buildEvent(destination, eventType, data, maxProcessing)
	if err != nil {
		return nil, err
	}
	return o.listener.EmitAndWait(ctx, ev)
}

func (o *Orchestrator) buildEvent(
	destination, eventType string,
	data map[string]any,
	maxProcessing time.Duration,
) (*event.Event, error) {
	address, port, ok := o.store.Coordinates(destination)
	if !ok {
		return nil, fmt.Errorf("unknown client %q", destination)
	}
	return o.listener.NewEvent(destination, address, port, eventType, data, maxProcessing), nil
}

// ClientSnapshot returns a copy of the merged client map.
func (o *Orchestrator) ClientSnapshot() map[string]scenario.ClientState {
	return o.store.Snapshot()
}

// RequestManualRun flags a manual scenario for the next tick.
func (o *Orchestrator) RequestManualRun(name string) error {
	return o.engine.RequestManualRun(name)
}

// BuildContext assembles a per-run scenario context over the snapshot.
func (o *Orchestrator) BuildContext(
	scenarioName string,
	clients map[string]scenario.ClientState,
	triggerData map[string]any,
) *scenario.Context {
	if triggerData == nil {
		triggerData = map[string]any{}
	}
	return &scenario.Context{
		ScenarioName: scenarioName,
		Orchestrator: o,
		Engine:       o.engine,
		Clients:      clients,
		Components:   o.components,
		TriggerData:  triggerData,
		ActionErrors: o.engine.ActionErrors(),
		Logger:       o.logger.With("scenario", scenarioName),
	}
}
