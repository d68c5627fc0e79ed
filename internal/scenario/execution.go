package scenario

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-fsm"
	"github.com/robbyt/go-loglater"
	"github.com/robbyt/go-loglater/storage"
)

// Execution lifecycle states.
const (
	ExecPending   = "pending"
	ExecRunning   = "running"
	ExecSucceeded = "succeeded"
	ExecFailed    = "failed"
	ExecCancelled = "cancelled"
)

// ExecutionTransitions defines the valid state transitions of one
// scenario run.
var ExecutionTransitions = map[string][]string{
	ExecPending:   {ExecRunning, ExecCancelled},
	ExecRunning:   {ExecSucceeded, ExecFailed, ExecCancelled},
	ExecSucceeded: {},
	ExecFailed:    {},
	ExecCancelled: {},
}

// ActionResult is one entry in an execution's action result log.
type ActionResult struct {
	ActionType string
	Result     any
	Err        error
	Duration   time.Duration
}

// Execution tracks a single scenario run: identity, lifecycle state,
// captured logs, and the ordered action results.
type Execution struct {
	ID         uuid.UUID
	Scenario   string
	StartedAt  time.Time
	FinishedAt time.Time

	fsm          *fsm.Machine
	logCollector *loglater.LogCollector
	logger       *slog.Logger

	results []ActionResult
	err     error
}

// NewExecution creates a pending execution for a scenario. Logs emitted
// through Logger() are captured per run and forwarded to the process
// handler.
func NewExecution(scenarioName string, handler slog.Handler) (*Execution, error) {
	id := uuid.Must(uuid.NewV6())

	machine, err := fsm.New(handler, ExecPending, ExecutionTransitions)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution state machine: %w", err)
	}

	logCollector := loglater.NewLogCollector(handler)
	logger := slog.New(logCollector).With(
		"execution", id,
		"scenario", scenarioName)

	return &Execution{
		ID:           id,
		Scenario:     scenarioName,
		StartedAt:    time.Now(),
		fsm:          machine,
		logCollector: logCollector,
		logger:       logger,
	}, nil
}

// Logger returns the per-run logger whose records are captured.
func (x *Execution) Logger() *slog.Logger {
	return x.logger
}

// State returns the current lifecycle state of the run.
func (x *Execution) State() string {
	return x.fsm.GetState()
}

// MarkRunning transitions the run to running.
func (x *Execution) MarkRunning() error {
	return x.fsm.Transition(ExecRunning)
}

// MarkSucceeded finishes the run successfully.
func (x *Execution) MarkSucceeded() error {
	x.FinishedAt = time.Now()
	return x.fsm.Transition(ExecSucceeded)
}

// MarkFailed finishes the run with an error.
func (x *Execution) MarkFailed(err error) error {
	x.FinishedAt = time.Now()
	x.err = err
	return x.fsm.Transition(ExecFailed)
}

// MarkCancelled finishes the run as cancelled.
func (x *Execution) MarkCancelled() error {
	x.FinishedAt = time.Now()
	return x.fsm.Transition(ExecCancelled)
}

// Err returns the failure recorded by MarkFailed, if any.
func (x *Execution) Err() error {
	return x.err
}

// RecordAction appends one action outcome to the result log.
func (x *Execution) RecordAction(result ActionResult) {
	x.results = append(x.results, result)
}

// ActionResults returns the ordered action outcomes.
func (x *Execution) ActionResults() []ActionResult {
	return x.results
}

// GetLogs returns the captured log records of this run.
func (x *Execution) GetLogs() []storage.Record {
	return x.logCollector.GetLogs()
}

// PlaybackLogs replays the captured records to the given handler.
func (x *Execution) PlaybackLogs(handler slog.Handler) error {
	return x.logCollector.PlayLogs(handler)
}

// Duration returns how long the run took, or the time since start for a
// run still in flight.
func (x *Execution) Duration() time.Duration {
	if x.FinishedAt.IsZero() {
		return time.Since(x.StartedAt)
	}
	return x.FinishedAt.Sub(x.StartedAt)
}
