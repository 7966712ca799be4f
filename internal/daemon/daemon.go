package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"symsync/internal/config"
	"symsync/internal/fsops"
	"symsync/internal/links"
	"symsync/internal/logging"
	"symsync/internal/store"
)

// Daemon coordinates the link manager, the reconciliation loop, and the
// persistence layer, and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	manager   *links.Manager
	rescanner *links.Rescanner

	lockPath string
	lock     *flock.Flock

	running      atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockPath     string
	SocketPath   string
	LogPath      string
	Configs      []links.Config
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	manager := links.NewManager(fsops.NewOS(), st, logger, cfg.DefaultRescanInterval())
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      st,
		manager:    manager,
		rescanner:  links.NewRescanner(manager, cfg.RescanTick(), logger),
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
		shutdownCh: make(chan struct{}),
	}, nil
}

// Manager exposes the link manager for the IPC surface.
func (d *Daemon) Manager() *links.Manager { return d.manager }

// Start acquires the instance lock, verifies link support, restores
// persisted configurations, and launches the reconciliation loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another symsync daemon instance is already running")
	}

	if err := checkLinkSupport(d.cfg.Paths.DataDir); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("link support check: %w", err)
	}

	records, err := d.store.LoadConfigs(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("load configurations: %w", err)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.manager.Load(d.ctx, records)
	d.rescanner.Start(d.ctx)
	d.running.Store(true)
	d.logger.Info("symsync daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("configurations", len(records)))
	return nil
}

// Stop halts the reconciliation loop, drains every watch session, and
// releases the instance lock. Links stay on disk and active configurations
// keep their active flag so the next start re-activates them.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.rescanner.Stop()
	d.manager.Shutdown()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("symsync daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// RequestShutdown asks the hosting process to exit; safe to call more than
// once.
func (d *Daemon) RequestShutdown() {
	d.shutdownOnce.Do(func() { close(d.shutdownCh) })
}

// ShutdownSignal is closed when a shutdown has been requested over IPC.
func (d *Daemon) ShutdownSignal() <-chan struct{} { return d.shutdownCh }

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string { return d.cfg.LogFilePath() }

// Status returns the current daemon status including all configurations.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockPath:     d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		LogPath:      d.cfg.LogFilePath(),
		Configs:      d.manager.List(),
	}
}
