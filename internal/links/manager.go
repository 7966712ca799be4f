package links

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"symsync/internal/fsops"
	"symsync/internal/logging"
	"symsync/internal/mirror"
	"symsync/internal/watch"
)

// Persister stores configuration records. The store package provides the
// SQLite implementation; tests use in-memory fakes.
type Persister interface {
	SaveConfig(ctx context.Context, rec Record) error
	DeleteConfig(ctx context.Context, id string) error
}

type entry struct {
	st       *state
	sessions map[string]*watch.Session
}

// Manager owns all link configurations and their watch sessions.
type Manager struct {
	fsys            fsops.FS
	persist         Persister
	logger          *slog.Logger
	defaultInterval time.Duration

	mu      sync.Mutex
	configs map[string]*entry
	sink    Sink
}

// NewManager constructs a manager. defaultInterval seeds the rescan
// interval of new configurations; non-positive values fall back to 10s.
func NewManager(fsys fsops.FS, persist Persister, logger *slog.Logger, defaultInterval time.Duration) *Manager {
	if defaultInterval <= 0 {
		defaultInterval = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		fsys:            fsys,
		persist:         persist,
		logger:          logging.NewComponentLogger(logger, "links"),
		defaultInterval: defaultInterval,
		configs:         make(map[string]*entry),
	}
}

// SetSink registers the external status subscriber. Pass nil to detach.
func (m *Manager) SetSink(sink Sink) {
	m.mu.Lock()
	m.sink = sink
	m.mu.Unlock()
}

// Create registers a new, empty, inactive configuration.
func (m *Manager) Create(ctx context.Context, name string) (Config, error) {
	st := &state{
		id:             uuid.NewString(),
		name:           strings.TrimSpace(name),
		rescanInterval: m.defaultInterval,
	}
	st.appendLog(time.Now(), "configuration created")

	m.mu.Lock()
	m.configs[st.id] = &entry{st: st, sessions: make(map[string]*watch.Session)}
	rec := st.record()
	snap := m.snapshotLocked(m.configs[st.id])
	m.mu.Unlock()

	if err := m.persist.SaveConfig(ctx, rec); err != nil {
		return Config{}, fmt.Errorf("persist configuration: %w", err)
	}
	return snap, nil
}

// Get returns a snapshot of one configuration.
func (m *Manager) Get(id string) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.configs[id]
	if !ok {
		return Config{}, ErrNotFound
	}
	return m.snapshotLocked(e), nil
}

// List returns snapshots of all configurations, ordered by name then id.
func (m *Manager) List() []Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Config, 0, len(m.configs))
	for _, e := range m.configs {
		out = append(out, m.snapshotLocked(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Logs returns the bounded status log of one configuration.
func (m *Manager) Logs(id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string{}, e.st.logs...), nil
}

// Rename updates the display name; names carry no uniqueness constraint.
func (m *Manager) Rename(ctx context.Context, id, name string) error {
	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	e.st.name = strings.TrimSpace(name)
	m.mu.Unlock()
	return m.saveSnapshot(ctx, id)
}

// SetRescanInterval adjusts the reconciliation cadence for one
// configuration.
func (m *Manager) SetRescanInterval(ctx context.Context, id string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("rescan interval must be positive")
	}
	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	e.st.rescanInterval = interval
	m.mu.Unlock()
	return m.saveSnapshot(ctx, id)
}

// SetTarget points the configuration at a target directory. The target is
// only mutable while the configuration is stopped and may not be claimed by
// another active configuration.
func (m *Manager) SetTarget(ctx context.Context, id, target string) error {
	normalized, err := normalizePath(target)
	if err != nil {
		return err
	}

	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if e.st.active || e.st.transitioning {
		m.mu.Unlock()
		return ErrActive
	}
	if e.st.hasSource(normalized) {
		m.mu.Unlock()
		return ErrSourceIsTarget
	}
	if conflict := m.activeTargetConflictLocked(id, normalized); conflict != "" {
		m.mu.Unlock()
		return fmt.Errorf("%w (%s)", ErrTargetInUse, conflict)
	}
	e.st.targetPath = normalized
	e.st.appendLog(time.Now(), fmt.Sprintf("target set to %s", normalized))
	m.mu.Unlock()
	return m.saveSnapshot(ctx, id)
}

// AddSource attaches a source directory. When the configuration is active a
// watch session is established immediately.
func (m *Manager) AddSource(ctx context.Context, id, source string) error {
	normalized, err := normalizePath(source)
	if err != nil {
		return err
	}

	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if e.st.transitioning {
		m.mu.Unlock()
		return ErrTransitioning
	}
	if samePath(normalized, e.st.targetPath) {
		m.mu.Unlock()
		return ErrSourceIsTarget
	}
	if e.st.hasSource(normalized) {
		m.mu.Unlock()
		return ErrDuplicateSource
	}
	e.st.sources = append(e.st.sources, normalized)
	e.st.appendLog(time.Now(), fmt.Sprintf("source %s added", normalized))
	wasActive := e.st.active
	target := e.st.targetPath
	m.mu.Unlock()

	if err := m.saveSnapshot(ctx, id); err != nil {
		return err
	}
	if !wasActive {
		return nil
	}

	session := watch.New(m.fsys, normalized, target, m.sinkFor(id), m.logger)
	if err := session.Start(ctx); err != nil {
		m.recordStatus(id, fmt.Sprintf("could not watch %s: %v", normalized, err))
		return nil
	}
	m.mu.Lock()
	if e.st.active {
		e.sessions[normalized] = session
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	// The configuration stopped while the session was coming up.
	session.Stop()
	return nil
}

// RemoveSource detaches a source directory, tearing down its watch session.
// With removeLinks set, links in the target whose destination lives under
// the removed source are deleted.
func (m *Manager) RemoveSource(ctx context.Context, id, source string, removeLinks bool) error {
	normalized, err := normalizePath(source)
	if err != nil {
		return err
	}

	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if e.st.transitioning {
		m.mu.Unlock()
		return ErrTransitioning
	}
	if !e.st.hasSource(normalized) {
		m.mu.Unlock()
		return ErrUnknownSource
	}
	kept := e.st.sources[:0]
	for _, src := range e.st.sources {
		if !samePath(src, normalized) {
			kept = append(kept, src)
		}
	}
	e.st.sources = kept
	session := e.sessions[normalized]
	delete(e.sessions, normalized)
	target := e.st.targetPath
	e.st.appendLog(time.Now(), fmt.Sprintf("source %s removed", normalized))
	m.mu.Unlock()

	if session != nil {
		session.Stop()
	}
	if removeLinks && target != "" {
		removed := m.removeLinksUnder(target, normalized)
		m.recordStatus(id, fmt.Sprintf("removed %d links belonging to %s", removed, normalized))
	}
	return m.saveSnapshot(ctx, id)
}

// Start activates the configuration: every source gets a watch session,
// each beginning with a full merge into the target.
func (m *Manager) Start(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if e.st.transitioning {
		m.mu.Unlock()
		return ErrTransitioning
	}
	if e.st.active {
		m.mu.Unlock()
		return ErrActive
	}
	if e.st.targetPath == "" {
		m.mu.Unlock()
		return ErrNoTarget
	}
	if len(e.st.sources) == 0 {
		m.mu.Unlock()
		return ErrNoSources
	}
	if conflict := m.activeTargetConflictLocked(id, e.st.targetPath); conflict != "" {
		m.mu.Unlock()
		return fmt.Errorf("%w (%s)", ErrTargetInUse, conflict)
	}
	e.st.transitioning = true
	sources := append([]string{}, e.st.sources...)
	target := e.st.targetPath
	m.mu.Unlock()

	sessions := make(map[string]*watch.Session, len(sources))
	for _, source := range sources {
		session := watch.New(m.fsys, source, target, m.sinkFor(id), m.logger)
		if err := session.Start(ctx); err != nil {
			// The configuration keeps running with its remaining sources.
			m.recordStatus(id, fmt.Sprintf("could not watch %s: %v", source, err))
			continue
		}
		sessions[source] = session
	}

	m.mu.Lock()
	e.st.transitioning = false
	e.st.active = true
	e.st.lastRescan = time.Now()
	e.sessions = sessions
	m.mu.Unlock()

	m.recordStatus(id, fmt.Sprintf("started: watching %d of %d sources", len(sessions), len(sources)))
	return m.saveSnapshot(ctx, id)
}

// Stop deactivates the configuration. Every watch session is stopped and
// drained before Stop returns; links remain on disk.
func (m *Manager) Stop(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if e.st.transitioning {
		m.mu.Unlock()
		return ErrTransitioning
	}
	if !e.st.active {
		m.mu.Unlock()
		return ErrNotActive
	}
	e.st.transitioning = true
	sessions := e.sessions
	e.sessions = make(map[string]*watch.Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}

	m.mu.Lock()
	e.st.active = false
	e.st.transitioning = false
	m.mu.Unlock()

	m.recordStatus(id, "stopped: links remain on disk")
	return m.saveSnapshot(ctx, id)
}

// Delete removes the configuration entirely. With removeLinks set, links in
// the target attributable to any of its sources are deleted first.
func (m *Manager) Delete(ctx context.Context, id string, removeLinks bool) error {
	if err := m.Stop(ctx, id); err != nil && err != ErrNotActive {
		return err
	}

	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	target := e.st.targetPath
	sources := append([]string{}, e.st.sources...)
	delete(m.configs, id)
	m.mu.Unlock()

	if removeLinks && target != "" {
		removed := 0
		for _, source := range sources {
			removed += m.removeLinksUnder(target, source)
		}
		m.logger.Info("removed links during delete",
			logging.String(logging.FieldConfigID, id), logging.Int("count", removed))
	}

	if err := m.persist.DeleteConfig(ctx, id); err != nil {
		return fmt.Errorf("delete configuration record: %w", err)
	}
	return nil
}

// Shutdown drains every watch session for process exit. Unlike Stop it
// leaves the active flag untouched, in memory and in the store, so the
// next daemon start re-activates the same configurations.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	var sessions []*watch.Session
	for _, e := range m.configs {
		for _, session := range e.sessions {
			sessions = append(sessions, session)
		}
		e.sessions = make(map[string]*watch.Session)
	}
	m.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
}

// Load seeds the manager from persisted records. Records flagged active are
// re-activated (watch sessions re-established, initial merge re-run) before
// they are reported as active.
func (m *Manager) Load(ctx context.Context, records []Record) {
	var activate []string

	m.mu.Lock()
	for _, rec := range records {
		interval := time.Duration(rec.RescanIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = m.defaultInterval
		}
		logs := rec.Logs
		if overflow := len(logs) - MaxLogEntries; overflow > 0 {
			logs = logs[overflow:]
		}
		st := &state{
			id:             rec.ID,
			name:           rec.Name,
			targetPath:     rec.TargetPath,
			sources:        append([]string{}, rec.Sources...),
			rescanInterval: interval,
			logs:           append([]string{}, logs...),
		}
		m.configs[rec.ID] = &entry{st: st, sessions: make(map[string]*watch.Session)}
		if rec.IsActive {
			activate = append(activate, rec.ID)
		}
	}
	m.mu.Unlock()

	for _, id := range activate {
		if err := m.Start(ctx, id); err != nil {
			m.recordStatus(id, fmt.Sprintf("could not re-activate after restart: %v", err))
		}
	}
}

// activeTargetConflictLocked returns the name of another active
// configuration claiming target, or "".
func (m *Manager) activeTargetConflictLocked(id, target string) string {
	for otherID, other := range m.configs {
		if otherID == id {
			continue
		}
		if (other.st.active || other.st.transitioning) && samePath(other.st.targetPath, target) {
			if other.st.name != "" {
				return other.st.name
			}
			return otherID
		}
	}
	return ""
}

func (m *Manager) snapshotLocked(e *entry) Config {
	states := make(map[string]string, len(e.sessions))
	for source, session := range e.sessions {
		states[source] = session.State().String()
	}
	return Config{
		ID:             e.st.id,
		Name:           e.st.name,
		TargetPath:     e.st.targetPath,
		Sources:        append([]string{}, e.st.sources...),
		Active:         e.st.active,
		RescanInterval: e.st.rescanInterval,
		Status:         e.st.status,
		Logs:           append([]string{}, e.st.logs...),
		LastRescan:     e.st.lastRescan,
		SessionStates:  states,
	}
}

// sinkFor binds the engine-facing message sink to one configuration.
func (m *Manager) sinkFor(id string) mirror.Sink {
	return mirror.SinkFunc(func(message string) {
		m.recordStatus(id, message)
	})
}

// recordStatus appends to the configuration's bounded log, mirrors the line
// to the structured logger, and fans out to the registered subscriber.
func (m *Manager) recordStatus(id, message string) {
	m.mu.Lock()
	e, ok := m.configs[id]
	if ok {
		e.st.appendLog(time.Now(), message)
	}
	sink := m.sink
	m.mu.Unlock()
	if !ok {
		return
	}
	m.logger.Info(message, logging.String(logging.FieldConfigID, id))
	if sink != nil {
		sink.Status(id, message)
	}
}

// saveSnapshot persists the current record of one configuration.
func (m *Manager) saveSnapshot(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	rec := e.st.record()
	m.mu.Unlock()

	if err := m.persist.SaveConfig(ctx, rec); err != nil {
		m.logger.Error("persist configuration failed",
			logging.String(logging.FieldConfigID, id), logging.Error(err))
		return fmt.Errorf("persist configuration: %w", err)
	}
	return nil
}

// rescanPass runs one reconciliation sweep: every active configuration
// whose interval has elapsed gets all of its sources re-merged into the
// target. Merges are silent; a single summary line per configuration is
// logged only when links were restored.
func (m *Manager) rescanPass(ctx context.Context, now time.Time) {
	type job struct {
		id      string
		target  string
		sources []string
	}

	m.mu.Lock()
	var jobs []job
	for id, e := range m.configs {
		if !e.st.active || e.st.transitioning {
			continue
		}
		if now.Sub(e.st.lastRescan) < e.st.rescanInterval {
			continue
		}
		e.st.lastRescan = now
		jobs = append(jobs, job{
			id:      id,
			target:  e.st.targetPath,
			sources: append([]string{}, e.st.sources...),
		})
	}
	m.mu.Unlock()

	for _, j := range jobs {
		if ctx.Err() != nil {
			return
		}
		restored := 0
		for _, source := range j.sources {
			n, err := mirror.Merge(ctx, m.fsys, source, j.target, mirror.NopSink)
			restored += n
			if err != nil && ctx.Err() == nil {
				m.recordStatus(j.id, fmt.Sprintf("rescan of %s failed: %v", source, err))
			}
		}
		if restored > 0 {
			m.recordStatus(j.id, fmt.Sprintf("rescan restored %d links", restored))
		}
	}
}

// ForceRescan resets the interval gate of one configuration so the next
// sweep picks it up immediately, then runs a sweep.
func (m *Manager) ForceRescan(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.configs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if !e.st.active {
		m.mu.Unlock()
		return ErrNotActive
	}
	e.st.lastRescan = time.Time{}
	m.mu.Unlock()

	m.rescanPass(ctx, time.Now())
	return nil
}

// removeLinksUnder walks the target tree without following links and
// removes every link whose destination lies under source. Real directories
// are descended; real files are never touched.
func (m *Manager) removeLinksUnder(dir, source string) int {
	entries, err := m.fsys.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		fi, err := m.fsys.Lstat(path)
		if err != nil {
			continue
		}
		if fsops.IsSymlink(fi) {
			dest, err := m.fsys.Readlink(path)
			if err != nil {
				continue
			}
			if !filepath.IsAbs(dest) {
				dest = filepath.Join(dir, dest)
			}
			dest = filepath.Clean(dest)
			if samePath(dest, source) || strings.HasPrefix(dest, source+string(filepath.Separator)) {
				if fsops.RemoveLink(m.fsys, path) == nil {
					removed++
				}
			}
			continue
		}
		if fi.IsDir() {
			removed += m.removeLinksUnder(path, source)
		}
	}
	return removed
}
