// Package listener implements the event listener runtime: the lifecycle
// state machine, the bounded event queues, the worker loops that drain
// them, and the HTTP ingress endpoint. Domain logic plugs in through the
// Behavior interface.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robbyt/go-supervisor/supervisor"

	"github.com/cellwarden/cellwarden/internal/event"
	"github.com/cellwarden/cellwarden/internal/listener/finitestate"
	"github.com/cellwarden/cellwarden/internal/transport"
)

const (
	// DefaultCheckInterval is how often CheckLocalData runs in RUN.
	DefaultCheckInterval = 1 * time.Second

	// defaultStateUpdateInterval paces the state_update worker.
	defaultStateUpdateInterval = 5 * time.Second

	// defaultReplyTimeout applies when an awaited event carries no
	// maximum_processing_time.
	defaultReplyTimeout = 10 * time.Second
)

// Interface guards
var (
	_ supervisor.Runnable  = (*Listener)(nil)
	_ supervisor.Stateable = (*Listener)(nil)
)

// Listener is one supervised event-processing component. It owns the
// lifecycle FSM, the incoming/processing/to_be_sent queues, and the
// worker loops; a Behavior supplies the domain semantics.
type Listener struct {
	name    string
	address string
	port    int

	behavior Behavior
	machine  finitestate.Machine

	// cmdMu serializes lifecycle command handling so observers see
	// either the previous or the new state, never a torn one.
	cmdMu sync.Mutex

	incoming   *Queue
	processing *Queue
	toSend     *Queue
	pauseBuf   *Queue

	client *transport.Client
	dedup  *dedupIndex

	pendingMu sync.Mutex
	pending   map[int64]chan *event.Event

	nextID atomic.Int64

	snapshotDir   string
	checkInterval time.Duration
	queueCapacity int

	logger  *slog.Logger
	handler slog.Handler

	startedAt time.Time

	runMu     sync.Mutex
	runCtx    context.Context
	runCancel context.CancelFunc

	localMu     sync.Mutex
	localCancel context.CancelFunc

	errMu   sync.Mutex
	lastErr error

	wg sync.WaitGroup
}

// Option is a functional option for configuring the Listener.
type Option func(*Listener)

// WithQueueCapacity bounds each of the listener's queues.
func WithQueueCapacity(n int) Option {
	return func(l *Listener) {
		if n > 0 {
			l.queueCapacity = n
		}
	}
}

// WithTransport replaces the outbound event client.
func WithTransport(c *transport.Client) Option {
	return func(l *Listener) {
		if c != nil {
			l.client = c
		}
	}
}

// WithSnapshotDirectory enables best-effort queue persistence.
func WithSnapshotDirectory(dir string) Option {
	return func(l *Listener) {
		l.snapshotDir = dir
	}
}

// WithCheckInterval sets the CheckLocalData frequency.
func WithCheckInterval(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.checkInterval = d
		}
	}
}

// WithLogHandler sets the slog handler used by the listener and its FSM.
func WithLogHandler(handler slog.Handler) Option {
	return func(l *Listener) {
		if handler != nil {
			l.handler = handler
			l.logger = slog.New(handler).WithGroup("listener.Listener").With("name", l.name)
		}
	}
}

// New creates a Listener. The address and port are this component's own
// ingress coordinates, stamped onto every event it emits.
func New(name, address string, port int, behavior Behavior, opts ...Option) (*Listener, error) {
	if name == "" {
		return nil, fmt.Errorf("listener name is required")
	}
	if behavior == nil {
		behavior = NopBehavior{}
	}

	l := &Listener{
		name:          name,
		address:       address,
		port:          port,
		behavior:      behavior,
		dedup:         newDedupIndex(),
		pending:       make(map[int64]chan *event.Event),
		checkInterval: DefaultCheckInterval,
		queueCapacity: DefaultQueueCapacity,
		logger:        slog.Default().WithGroup("listener.Listener").With("name", name),
		handler:       slog.Default().Handler(),
	}
	for _, opt := range opts {
		opt(l)
	}

	machine, err := finitestate.New(l.handler)
	if err != nil {
		return nil, fmt.Errorf("create state machine: %w", err)
	}
	l.machine = machine

	l.incoming = NewQueue("incoming", l.queueCapacity)
	l.processing = NewQueue("processing", l.queueCapacity)
	l.toSend = NewQueue("to_be_sent", l.queueCapacity)
	l.pauseBuf = NewQueue("pause_buffer", l.queueCapacity)

	if l.client == nil {
		l.client = transport.New(transport.WithLogger(l.logger.WithGroup("transport")))
	}
	return l, nil
}

// Name returns the listener's component name.
func (l *Listener) Name() string { return l.name }

// String implements fmt.Stringer for supervisor logs.
func (l *Listener) String() string {
	return fmt.Sprintf("Listener[%s]", l.name)
}

// Run starts the worker loops and blocks until the context is canceled
// or Stop is called.
func (l *Listener) Run(ctx context.Context) error {
	runCtx, runCancel := context.WithCancel(ctx)
	l.runMu.Lock()
	l.runCtx = runCtx
	l.runCancel = runCancel
	l.startedAt = time.Now()
	l.runMu.Unlock()

	l.loadSnapshot()
	if err := l.machine.TransitionIfCurrentState(
		finitestate.StateUnknown, finitestate.StateStopped); err != nil {
		return fmt.Errorf("bootstrap transition: %w", err)
	}

	l.startWorker(runCtx, "analysis", l.analysisLoop)
	l.startWorker(runCtx, "send", l.sendLoop)
	l.startWorker(runCtx, "state_update", l.stateUpdateLoop)

	l.logger.Info("Listener started", "address", l.address, "port", l.port)
	<-runCtx.Done()

	l.stopLocalCheck()
	l.wg.Wait()
	l.writeSnapshot()
	l.logger.Info("Listener stopped")
	return nil
}

// Stop signals Run to shut down.
func (l *Listener) Stop() {
	l.runMu.Lock()
	cancel := l.runCancel
	l.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// GetState returns the current lifecycle state name.
func (l *Listener) GetState() string {
	return l.machine.GetState()
}

// GetStateChan returns a channel emitting lifecycle state changes.
func (l *Listener) GetStateChan(ctx context.Context) <-chan string {
	return l.machine.GetStateChan(ctx)
}

// IsRunning reports whether the listener is in the operational state.
func (l *Listener) IsRunning() bool {
	return l.machine.GetState() == finitestate.StateRun
}

// NewEvent builds an outbound event stamped with this listener's source
// coordinates and a fresh id.
func (l *Listener) NewEvent(
	destination, destAddress string,
	destPort int,
	eventType string,
	data map[string]any,
	maxProcessing time.Duration,
) *event.Event {
	return &event.Event{
		ID:                 l.nextID.Add(1),
		Source:             l.name,
		SourceAddress:      l.address,
		SourcePort:         l.port,
		Destination:        destination,
		DestinationAddress: destAddress,
		DestinationPort:    destPort,
		Type:               eventType,
		Data:               data,
		MaxProcessingTime:  maxProcessing.Seconds(),
		Timestamp:          time.Now(),
	}
}

// Inject pushes an event straight into the incoming queue, bypassing
// HTTP ingress. Used for self-addressed lifecycle commands at boot.
func (l *Listener) Inject(ev *event.Event) error {
	return l.incoming.Push(ev)
}

// Emit queues an event for asynchronous delivery.
func (l *Listener) Emit(ev *event.Event) error {
	if err := l.toSend.Push(ev); err != nil {
		return fmt.Errorf("emit %s: %w", ev.String(), err)
	}
	return nil
}

// EmitAndWait queues the event and blocks until the correlated reply
// arrives, the event's maximum processing time elapses, or the context
// is canceled.
func (l *Listener) EmitAndWait(ctx context.Context, ev *event.Event) (*event.Event, error) {
	waiter := make(chan *event.Event, 1)
	l.pendingMu.Lock()
	l.pending[ev.ID] = waiter
	l.pendingMu.Unlock()
	defer func() {
		l.pendingMu.Lock()
		delete(l.pending, ev.ID)
		l.pendingMu.Unlock()
	}()

	if err := l.Emit(ev); err != nil {
		return nil, err
	}

	timeout := defaultReplyTimeout
	if ev.MaxProcessingTime > 0 {
		timeout = time.Duration(ev.MaxProcessingTime * float64(time.Second))
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-waiter:
		return reply, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %s", ErrReplyTimeout, ev.String(), timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deliverReply hands a reply to its registered waiter, if any.
func (l *Listener) deliverReply(ev *event.Event) bool {
	l.pendingMu.Lock()
	waiter, ok := l.pending[ev.ID]
	if ok {
		delete(l.pending, ev.ID)
	}
	l.pendingMu.Unlock()
	if !ok {
		return false
	}
	waiter <- ev
	return true
}

// startWorker runs a worker loop with crash isolation: a crashed loop is
// restarted once, a second crash drives the listener to FAULT.
func (l *Listener) startWorker(ctx context.Context, name string, fn func(context.Context) error) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		restarted := false
		for {
			err := runGuarded(ctx, fn)
			if ctx.Err() != nil || err == nil {
				return
			}
			if !restarted {
				restarted = true
				l.logger.Warn("Worker crashed, restarting", "worker", name, "error", err)
				continue
			}
			l.logger.Error("Worker crashed twice", "worker", name, "error", err)
			l.fault(fmt.Errorf("worker %s: %w", name, err))
			return
		}
	}()
}

// runGuarded converts a worker panic into an error.
func runGuarded(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// analysisLoop drains incoming and classifies each event.
func (l *Listener) analysisLoop(ctx context.Context) error {
	for {
		ev, err := l.incoming.Pop(ctx)
		if err != nil {
			return nil
		}
		l.classify(ctx, ev)
	}
}

// sendLoop drains to_be_sent, posting each event to its destination.
// The single sender preserves per-destination FIFO ordering.
func (l *Listener) sendLoop(ctx context.Context) error {
	for {
		ev, err := l.toSend.Pop(ctx)
		if err != nil {
			return nil
		}
		if err := l.client.Send(ctx, ev); err != nil {
			l.logger.Warn("Dropping undeliverable event",
				"event", ev.String(), "error", err)
		}
	}
}

// stateUpdateLoop snapshots the queues on lifecycle changes and on a
// slow periodic tick.
func (l *Listener) stateUpdateLoop(ctx context.Context) error {
	ticker := time.NewTicker(defaultStateUpdateInterval)
	defer ticker.Stop()
	stateChanges := l.machine.GetStateChan(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.writeSnapshot()
		case _, ok := <-stateChanges:
			if !ok {
				return nil
			}
			l.writeSnapshot()
		}
	}
}

// startLocalCheck launches the per-RUN periodic CheckLocalData loop.
// Idempotent.
func (l *Listener) startLocalCheck() {
	l.localMu.Lock()
	defer l.localMu.Unlock()
	if l.localCancel != nil {
		return
	}

	l.runMu.Lock()
	parent := l.runCtx
	l.runMu.Unlock()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	l.localCancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := l.behavior.CheckLocalData(ctx); err != nil {
					l.logger.Warn("Local check failed", "error", err)
				}
			}
		}
	}()
}

// stopLocalCheck tears down the local check loop. Idempotent.
func (l *Listener) stopLocalCheck() {
	l.localMu.Lock()
	defer l.localMu.Unlock()
	if l.localCancel != nil {
		l.localCancel()
		l.localCancel = nil
	}
}

// fault records the error and degrades the FSM through ON_ERROR to
// FAULT.
func (l *Listener) fault(err error) {
	l.errMu.Lock()
	l.lastErr = err
	l.errMu.Unlock()
	l.stopLocalCheck()

	if l.machine.TransitionBool(finitestate.StateOnError) {
		if terr := l.machine.Transition(finitestate.StateFault); terr != nil {
			l.logger.Error("Failed to enter FAULT", "error", terr)
		}
	}
	l.logger.Error("Listener faulted", "error", err)
}

// clearError resets the fault record after an operator ACK.
func (l *Listener) clearError() {
	l.errMu.Lock()
	l.lastErr = nil
	l.errMu.Unlock()
}

// lastError returns the recorded fault, if any.
func (l *Listener) lastError() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	return l.lastErr
}

// StateExport composes the CMD_GET_STATE reply payload: FSM state with
// its wire code, the error record, queue depths, and any
// behavior-contributed fields.
func (l *Listener) StateExport() map[string]any {
	state := l.machine.GetState()
	errMessage := ""
	lastErr := l.lastError()
	if lastErr != nil {
		errMessage = lastErr.Error()
	}

	out := map[string]any{
		"fsm_state":     state,
		"fsm_code":      finitestate.Code(state),
		"error":         lastErr != nil,
		"error_message": errMessage,
		"queues": map[string]any{
			"incoming":   l.incoming.Len(),
			"processing": l.processing.Len(),
			"to_be_sent": l.toSend.Len(),
		},
	}
	for k, v := range l.behavior.StateFields() {
		out[k] = v
	}
	return out
}

// healthBlob composes the CMD_HEALTH_CHECK reply payload.
func (l *Listener) healthBlob() map[string]any {
	status := "ok"
	if l.lastError() != nil {
		status = "fault"
	}
	l.runMu.Lock()
	started := l.startedAt
	l.runMu.Unlock()

	uptime := 0.0
	if !started.IsZero() {
		uptime = time.Since(started).Seconds()
	}
	return map[string]any{
		"status":         status,
		"fsm_state":      l.machine.GetState(),
		"uptime_seconds": uptime,
	}
}
