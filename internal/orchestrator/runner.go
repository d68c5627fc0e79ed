package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robbyt/go-supervisor/supervisor"

	"github.com/cellwarden/cellwarden/internal/config"
	"github.com/cellwarden/cellwarden/internal/event"
	"github.com/cellwarden/cellwarden/internal/listener"
	"github.com/cellwarden/cellwarden/internal/listener/finitestate"
)

const (
	// drainWindow bounds the wait for in-flight scenario executions at
	// shutdown.
	drainWindow = 10 * time.Second

	// bootTimeout bounds each bootstrap lifecycle step.
	bootTimeout = 30 * time.Second
)

// Run assembles and supervises the full orchestrator process: the event
// listener, its HTTP ingress, and the bootstrap sequence that drives the
// listener's own lifecycle to RUN. Blocks until the context is canceled.
func Run(ctx context.Context, cfg *config.Config, handler slog.Handler) error {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	logger := slog.New(handler).WithGroup("orchestrator")

	orch, err := New(cfg, WithLogHandler(handler))
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	routes, err := orch.Routes()
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}
	ingress, err := listener.NewIngressServer(
		cfg.Name,
		fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		routes,
		listener.TimeoutOptions{
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  time.Minute,
			DrainTimeout: 5 * time.Second,
		},
		logger.WithGroup("ingress"),
	)
	if err != nil {
		return fmt.Errorf("create ingress server: %w", err)
	}

	boot := newBootstrap(orch.Listener(), logger.WithGroup("bootstrap"))

	super, err := supervisor.New(
		supervisor.WithRunnables(orch.Listener(), ingress, boot),
		supervisor.WithLogHandler(handler),
		supervisor.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create supervisor: %w", err)
	}

	runErr := super.Run()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainWindow)
	defer cancel()
	if err := orch.Engine().Drain(drainCtx); err != nil {
		logger.Warn("Shutdown drain incomplete", "error", err)
	}
	return runErr
}

// Interface guard
var _ supervisor.Runnable = (*bootstrap)(nil)

// bootstrap drives the orchestrator's own listener through
// CMD_INITIALIZED and CMD_RUN once it reaches STOPPED, then idles.
type bootstrap struct {
	listener *listener.Listener
	logger   *slog.Logger
	cancel   context.CancelFunc
}

func newBootstrap(l *listener.Listener, logger *slog.Logger) *bootstrap {
	if logger == nil {
		logger = slog.Default().WithGroup("orchestrator.bootstrap")
	}
	return &bootstrap{listener: l, logger: logger}
}

// String implements fmt.Stringer for supervisor logs.
func (b *bootstrap) String() string { return "Bootstrap" }

// Run performs the boot sequence and then blocks until shutdown.
func (b *bootstrap) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	defer cancel()

	steps := []struct {
		waitFor string
		command string
	}{
		{finitestate.StateStopped, event.CmdInitialized},
		{finitestate.StateInitialized, event.CmdRun},
	}
	for i, step := range steps {
		if err := b.await(runCtx, step.waitFor); err != nil {
			return fmt.Errorf("bootstrap step %d: %w", i+1, err)
		}
		if err := b.inject(int64(i+1), step.command); err != nil {
			return fmt.Errorf("bootstrap step %d: %w", i+1, err)
		}
	}
	if err := b.await(runCtx, finitestate.StateRun); err != nil {
		return err
	}
	b.logger.Info("Orchestrator is running")

	<-runCtx.Done()
	return nil
}

// Stop signals Run to exit.
func (b *bootstrap) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

// inject pushes a self-addressed lifecycle command into the listener.
// The synthetic source carries no reply coordinates, so no reply is
// sent.
func (b *bootstrap) inject(id int64, command string) error {
	return b.listener.Inject(&event.Event{
		ID:        id,
		Source:    "boot",
		Type:      command,
		Timestamp: time.Now(),
	})
}

// await blocks until the listener reaches the state or the boot timeout
// elapses.
func (b *bootstrap) await(ctx context.Context, state string) error {
	waitCtx, cancel := context.WithTimeout(ctx, bootTimeout)
	defer cancel()

	changes := b.listener.GetStateChan(waitCtx)
	if b.listener.GetState() == state {
		return nil
	}
	for {
		select {
		case current, ok := <-changes:
			if !ok {
				return fmt.Errorf("state channel closed waiting for %s", state)
			}
			if current == state {
				return nil
			}
			if current == finitestate.StateFault {
				return fmt.Errorf("listener faulted waiting for %s", state)
			}
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("timed out waiting for state %s (current %s)",
				state, b.listener.GetState())
		}
	}
}
