package links

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"symsync/internal/logging"
)

// Rescanner drives periodic reconciliation sweeps over the manager. The
// tick is deliberately short; each configuration applies its own interval
// gate, so a fast tick only bounds how promptly a due rescan starts.
type Rescanner struct {
	manager *Manager
	tick    time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRescanner constructs the loop; Start begins ticking.
func NewRescanner(manager *Manager, tick time.Duration, logger *slog.Logger) *Rescanner {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Rescanner{
		manager: manager,
		tick:    tick,
		logger:  logging.NewComponentLogger(logger, "rescan"),
	}
}

// Start launches the sweep loop. Calling Start on a running rescanner is a
// no-op.
func (r *Rescanner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.logger.Info("reconciliation loop started", logging.Duration("tick", r.tick))
	go r.loop(runCtx, r.done)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Rescanner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info("reconciliation loop stopped")
}

func (r *Rescanner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.manager.rescanPass(ctx, now)
		}
	}
}
