package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"symsync/internal/fsops"
	"symsync/internal/logging"
	"symsync/internal/mirror"
)

// State describes the session lifecycle.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateWatching
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateWatching:
		return "watching"
	case StateFailed:
		return "failed"
	default:
		return "stopped"
	}
}

// Session mirrors one source directory into a target directory and keeps
// the mirror current while the source changes.
type Session struct {
	source string
	target string
	fsys   fsops.FS
	sink   mirror.Sink
	logger *slog.Logger

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	state     atomic.Int32
}

// New constructs a session for the (source, target) pair. Start must be
// called before the session reacts to anything.
func New(fsys fsops.FS, source, target string, sink mirror.Sink, logger *slog.Logger) *Session {
	if sink == nil {
		sink = mirror.NopSink
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Session{
		source: source,
		target: target,
		fsys:   fsys,
		sink:   sink,
		logger: logger.With(logging.String(logging.FieldSource, source)),
	}
}

// Source returns the watched source directory.
func (s *Session) Source() string { return s.source }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Start runs the initial merge and begins watching the source root. The
// merge happens synchronously so the mirror is complete before the first
// notification is handled.
func (s *Session) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return errors.New("session already started")
	}

	linked, err := mirror.Merge(ctx, s.fsys, s.source, s.target, s.sink)
	if err != nil {
		s.state.Store(int32(StateFailed))
		return fmt.Errorf("initial merge: %w", err)
	}
	s.sink.Status(fmt.Sprintf("linked %d items from %s, watching for changes", linked, s.source))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.state.Store(int32(StateFailed))
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.source); err != nil {
		_ = watcher.Close()
		s.state.Store(int32(StateFailed))
		return fmt.Errorf("watch %s: %w", s.source, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.watcher = watcher
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state.Store(int32(StateWatching))

	go s.loop(runCtx)
	return nil
}

// Stop tears the session down and waits until the event loop has drained,
// so no late notification operates on dead state. Links stay on disk.
func (s *Session) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.closeWatcher()
	<-s.done
	if s.State() != StateFailed {
		s.state.Store(int32(StateStopped))
	}
}

func (s *Session) closeWatcher() {
	s.closeOnce.Do(func() {
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
	})
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	defer s.closeWatcher()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(ctx, event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			// Losing the subscription kills this session only; the
			// configuration keeps running with its remaining sources.
			s.state.Store(int32(StateFailed))
			s.sink.Status(fmt.Sprintf("watch on %s failed: %v", s.source, err))
			s.logger.Error("watch subscription failed", logging.Error(err),
				logging.String(logging.FieldEventType, "watch_failed"))
			return
		}
	}
}

// handle processes a single notification. Every branch absorbs its own
// failures: a bad event is reported and skipped, never fatal.
func (s *Session) handle(ctx context.Context, event fsnotify.Event) {
	// The watch is rooted at the source without recursion, so events are
	// direct children by construction; guard anyway against events on the
	// root itself.
	if filepath.Dir(event.Name) != s.source {
		return
	}
	name := filepath.Base(event.Name)
	srcPath := filepath.Join(s.source, name)
	dstPath := filepath.Join(s.target, name)

	switch {
	case event.Has(fsnotify.Create):
		s.handleCreate(ctx, srcPath, dstPath)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename delivers the old name only; the new name follows as its
		// own create event, which together propagate the move.
		s.handleRemove(dstPath)
	case event.Has(fsnotify.Write):
		s.handleWrite(srcPath, dstPath)
	}
}

func (s *Session) handleCreate(ctx context.Context, srcPath, dstPath string) {
	if !fsops.Exists(s.fsys, dstPath) {
		if err := fsops.CreateLink(s.fsys, dstPath, srcPath); err != nil {
			s.sink.Status(fmt.Sprintf("could not link new item %s: %v", dstPath, err))
			return
		}
		s.sink.Status(fmt.Sprintf("linked new item %s", dstPath))
		return
	}

	srcInfo, err := s.fsys.Stat(srcPath)
	if err != nil || !srcInfo.IsDir() {
		// Occupied name and nothing to merge: duplicate event or race.
		return
	}
	dstInfo, err := s.fsys.Stat(dstPath)
	if err != nil || !dstInfo.IsDir() {
		return
	}
	linked, err := mirror.Merge(ctx, s.fsys, srcPath, dstPath, s.sink)
	if err != nil {
		s.sink.Status(fmt.Sprintf("could not merge new directory %s: %v", srcPath, err))
		return
	}
	if linked > 0 {
		s.sink.Status(fmt.Sprintf("merged %d items from new directory %s", linked, srcPath))
	}
}

func (s *Session) handleRemove(dstPath string) {
	if !fsops.Exists(s.fsys, dstPath) {
		return
	}
	if err := fsops.RemoveLink(s.fsys, dstPath); err != nil {
		s.sink.Status(fmt.Sprintf("could not remove %s: %v", dstPath, err))
		return
	}
	s.sink.Status(fmt.Sprintf("removed %s", dstPath))
}

// handleWrite refreshes a file link after the source was modified.
// Directories are never relinked on modify, and a real file occupying the
// target name is left alone: only links the mirror created are refreshed.
func (s *Session) handleWrite(srcPath, dstPath string) {
	srcInfo, err := s.fsys.Stat(srcPath)
	if err != nil || srcInfo.IsDir() {
		return
	}
	dstInfo, err := s.fsys.Lstat(dstPath)
	if err != nil || !fsops.IsSymlink(dstInfo) {
		return
	}
	if err := fsops.RemoveLink(s.fsys, dstPath); err != nil {
		s.sink.Status(fmt.Sprintf("could not refresh %s: %v", dstPath, err))
		return
	}
	if err := fsops.CreateLink(s.fsys, dstPath, srcPath); err != nil {
		s.sink.Status(fmt.Sprintf("could not relink %s: %v", dstPath, err))
		return
	}
	s.sink.Status(fmt.Sprintf("refreshed link %s", dstPath))
}
