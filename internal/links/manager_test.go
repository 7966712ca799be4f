package links

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"symsync/internal/fsops"
)

type memPersister struct {
	mu      sync.Mutex
	saved   map[string]Record
	deleted []string
	failing bool
}

func newMemPersister() *memPersister {
	return &memPersister{saved: make(map[string]Record)}
}

func (p *memPersister) SaveConfig(_ context.Context, rec Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return errors.New("persistence unavailable")
	}
	p.saved[rec.ID] = rec
	return nil
}

func (p *memPersister) DeleteConfig(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	delete(p.saved, id)
	return nil
}

func (p *memPersister) record(t *testing.T, id string) Record {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.saved[id]
	if !ok {
		t.Fatalf("no persisted record for %s", id)
	}
	return rec
}

func newTestManager(t *testing.T) (*Manager, *memPersister) {
	t.Helper()
	persist := newMemPersister()
	return NewManager(fsops.NewOS(), persist, nil, time.Second), persist
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mkdir(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// configuredLink builds a configuration with one source holding a single
// file, pointed at target, and returns its id.
func configuredLink(t *testing.T, m *Manager, source, target string) string {
	t.Helper()
	ctx := context.Background()
	cfg, err := m.Create(ctx, "movies")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetTarget(ctx, cfg.ID, target); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSource(ctx, cfg.ID, source); err != nil {
		t.Fatal(err)
	}
	return cfg.ID
}

func TestCreateAssignsIDAndPersists(t *testing.T) {
	m, persist := newTestManager(t)
	cfg, err := m.Create(context.Background(), "  movies  ")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ID == "" {
		t.Fatal("expected generated id")
	}
	if cfg.Name != "movies" {
		t.Fatalf("name = %q, want %q", cfg.Name, "movies")
	}
	if cfg.Active {
		t.Fatal("new configuration must start inactive")
	}
	rec := persist.record(t, cfg.ID)
	if rec.Name != "movies" || rec.IsActive {
		t.Fatalf("persisted record mismatch: %+v", rec)
	}
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListOrdersByName(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := m.Create(ctx, name); err != nil {
			t.Fatal(err)
		}
	}
	got := m.List()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Name != "alpha" || got[1].Name != "mid" || got[2].Name != "zeta" {
		t.Fatalf("unexpected order: %s, %s, %s", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestStartRequiresTargetAndSources(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	cfg, err := m.Create(ctx, "movies")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, cfg.ID); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("err = %v, want ErrNoTarget", err)
	}
	if err := m.SetTarget(ctx, cfg.ID, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, cfg.ID); !errors.Is(err, ErrNoSources) {
		t.Fatalf("err = %v, want ErrNoSources", err)
	}
}

func TestStartMirrorsSourcesIntoTarget(t *testing.T) {
	m, persist := newTestManager(t)
	ctx := context.Background()
	src := t.TempDir()
	tgt := t.TempDir()
	writeFile(t, filepath.Join(src, "a.mkv"))
	writeFile(t, filepath.Join(src, "b.mkv"))

	id := configuredLink(t, m, src, tgt)
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()

	for _, name := range []string{"a.mkv", "b.mkv"} {
		dest, err := os.Readlink(filepath.Join(tgt, name))
		if err != nil {
			t.Fatalf("readlink %s: %v", name, err)
		}
		if dest != filepath.Join(src, name) {
			t.Fatalf("link %s points at %s", name, dest)
		}
	}

	cfg, err := m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Active {
		t.Fatal("configuration should be active")
	}
	if state := cfg.SessionStates[src]; state != "watching" {
		t.Fatalf("session state = %q, want watching", state)
	}
	if !persist.record(t, id).IsActive {
		t.Fatal("active flag not persisted")
	}
}

func TestStartTwiceReturnsActive(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := configuredLink(t, m, t.TempDir(), t.TempDir())
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()
	if err := m.Start(ctx, id); !errors.Is(err, ErrActive) {
		t.Fatalf("err = %v, want ErrActive", err)
	}
}

func TestStopLeavesLinksOnDisk(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	src := t.TempDir()
	tgt := t.TempDir()
	writeFile(t, filepath.Join(src, "keep.mkv"))

	id := configuredLink(t, m, src, tgt)
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Lstat(filepath.Join(tgt, "keep.mkv")); err != nil {
		t.Fatalf("link removed by stop: %v", err)
	}
	if err := m.Stop(ctx, id); !errors.Is(err, ErrNotActive) {
		t.Fatalf("err = %v, want ErrNotActive", err)
	}
}

func TestShutdownKeepsActiveFlagPersisted(t *testing.T) {
	m, persist := newTestManager(t)
	ctx := context.Background()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.mkv"))

	id := configuredLink(t, m, src, t.TempDir())
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}

	m.Shutdown()

	got, err := m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Active {
		t.Fatal("shutdown must not deactivate the configuration")
	}
	if len(got.SessionStates) != 0 {
		t.Fatalf("sessions still attached after shutdown: %v", got.SessionStates)
	}
	if rec := persist.record(t, id); !rec.IsActive {
		t.Fatal("persisted record lost its active flag during shutdown")
	}
}

func TestSetTargetRejectedWhileActive(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := configuredLink(t, m, t.TempDir(), t.TempDir())
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()
	if err := m.SetTarget(ctx, id, t.TempDir()); !errors.Is(err, ErrActive) {
		t.Fatalf("err = %v, want ErrActive", err)
	}
}

func TestActiveTargetIsExclusive(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	tgt := t.TempDir()

	first := configuredLink(t, m, t.TempDir(), tgt)
	if err := m.Start(ctx, first); err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()

	second, err := m.Create(ctx, "shows")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetTarget(ctx, second.ID, tgt); !errors.Is(err, ErrTargetInUse) {
		t.Fatalf("err = %v, want ErrTargetInUse", err)
	}

	// Stopping the first configuration releases the claim.
	if err := m.Stop(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := m.SetTarget(ctx, second.ID, tgt); err != nil {
		t.Fatal(err)
	}
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "b.mkv"))
	if err := m.AddSource(ctx, second.ID, src); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, second.ID); err != nil {
		t.Fatal(err)
	}
}

func TestAddSourceValidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	src := t.TempDir()
	tgt := t.TempDir()
	id := configuredLink(t, m, src, tgt)

	if err := m.AddSource(ctx, id, src); !errors.Is(err, ErrDuplicateSource) {
		t.Fatalf("err = %v, want ErrDuplicateSource", err)
	}
	if err := m.AddSource(ctx, id, tgt); !errors.Is(err, ErrSourceIsTarget) {
		t.Fatalf("err = %v, want ErrSourceIsTarget", err)
	}
}

func TestAddSourceWhileActiveStartsWatching(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	tgt := t.TempDir()
	id := configuredLink(t, m, t.TempDir(), tgt)
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()

	extra := t.TempDir()
	writeFile(t, filepath.Join(extra, "late.mkv"))
	if err := m.AddSource(ctx, id, extra); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Lstat(filepath.Join(tgt, "late.mkv")); err != nil {
		t.Fatalf("new source not mirrored: %v", err)
	}
	cfg, err := m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SessionStates[extra] != "watching" {
		t.Fatalf("session state = %q, want watching", cfg.SessionStates[extra])
	}
}

func TestRemoveSourceCleansOwnedLinks(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	srcA := t.TempDir()
	srcB := t.TempDir()
	tgt := t.TempDir()
	writeFile(t, filepath.Join(srcA, "a.mkv"))
	writeFile(t, filepath.Join(srcB, "b.mkv"))

	id := configuredLink(t, m, srcA, tgt)
	if err := m.AddSource(ctx, id, srcB); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()

	if err := m.RemoveSource(ctx, id, srcB, true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Lstat(filepath.Join(tgt, "b.mkv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("links from removed source should be deleted")
	}
	if _, err := os.Lstat(filepath.Join(tgt, "a.mkv")); err != nil {
		t.Fatalf("links from remaining source must survive: %v", err)
	}
	if err := m.RemoveSource(ctx, id, srcB, false); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("err = %v, want ErrUnknownSource", err)
	}
}

func TestRemoveLinksUnderDescendsRealDirectories(t *testing.T) {
	m, _ := newTestManager(t)
	src := t.TempDir()
	tgt := t.TempDir()
	writeFile(t, filepath.Join(src, "inner.mkv"))
	nested := mkdir(t, filepath.Join(tgt, "season1"))
	if err := os.Symlink(filepath.Join(src, "inner.mkv"), filepath.Join(nested, "inner.mkv")); err != nil {
		t.Fatal(err)
	}
	foreign := filepath.Join(nested, "foreign.mkv")
	writeFile(t, foreign)

	if removed := m.removeLinksUnder(tgt, src); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Lstat(foreign); err != nil {
		t.Fatalf("real file must never be touched: %v", err)
	}
}

func TestDeleteRemovesRecordAndOptionallyLinks(t *testing.T) {
	m, persist := newTestManager(t)
	ctx := context.Background()
	src := t.TempDir()
	tgt := t.TempDir()
	writeFile(t, filepath.Join(src, "gone.mkv"))

	id := configuredLink(t, m, src, tgt)
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(ctx, id, true); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := os.Lstat(filepath.Join(tgt, "gone.mkv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("delete with link removal should clean the target")
	}
	persist.mu.Lock()
	deleted := append([]string{}, persist.deleted...)
	persist.mu.Unlock()
	if len(deleted) != 1 || deleted[0] != id {
		t.Fatalf("deleted records = %v", deleted)
	}
}

func TestStatusLogIsBounded(t *testing.T) {
	m, _ := newTestManager(t)
	cfg, err := m.Create(context.Background(), "noisy")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < MaxLogEntries+10; i++ {
		m.recordStatus(cfg.ID, fmt.Sprintf("event %d", i))
	}
	logs, err := m.Logs(cfg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != MaxLogEntries {
		t.Fatalf("len(logs) = %d, want %d", len(logs), MaxLogEntries)
	}
	if !strings.HasSuffix(logs[0], "event 10") {
		t.Fatalf("oldest surviving entry = %q, want event 10", logs[0])
	}
	if !strings.HasSuffix(logs[len(logs)-1], fmt.Sprintf("event %d", MaxLogEntries+9)) {
		t.Fatalf("newest entry = %q", logs[len(logs)-1])
	}
}

func TestStatusFansOutToSink(t *testing.T) {
	m, _ := newTestManager(t)
	cfg, err := m.Create(context.Background(), "movies")
	if err != nil {
		t.Fatal(err)
	}
	var (
		mu       sync.Mutex
		received []string
	)
	m.SetSink(SinkFunc(func(id, message string) {
		mu.Lock()
		received = append(received, id+": "+message)
		mu.Unlock()
	}))
	m.recordStatus(cfg.ID, "hello")

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != cfg.ID+": hello" {
		t.Fatalf("received = %v", received)
	}
}

func TestRescanRestoresRemovedLinks(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	src := t.TempDir()
	tgt := t.TempDir()
	writeFile(t, filepath.Join(src, "a.mkv"))

	id := configuredLink(t, m, src, tgt)
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()

	link := filepath.Join(tgt, "a.mkv")
	if err := os.Remove(link); err != nil {
		t.Fatal(err)
	}
	if err := m.ForceRescan(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Lstat(link); err != nil {
		t.Fatalf("rescan did not restore link: %v", err)
	}

	logs, err := m.Logs(id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(logs[len(logs)-1], "rescan restored 1 links") {
		t.Fatalf("missing rescan summary, last log = %q", logs[len(logs)-1])
	}
}

func TestRescanRespectsIntervalGate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	src := t.TempDir()
	tgt := t.TempDir()
	writeFile(t, filepath.Join(src, "a.mkv"))

	id := configuredLink(t, m, src, tgt)
	if err := m.SetRescanInterval(ctx, id, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()

	link := filepath.Join(tgt, "a.mkv")
	if err := os.Remove(link); err != nil {
		t.Fatal(err)
	}
	// The interval has not elapsed, so the sweep must skip this
	// configuration.
	m.rescanPass(ctx, time.Now())
	if _, err := os.Lstat(link); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("sweep ran before the interval elapsed")
	}
	m.rescanPass(ctx, time.Now().Add(2*time.Hour))
	if _, err := os.Lstat(link); err != nil {
		t.Fatalf("due sweep did not run: %v", err)
	}
}

func TestRescanIsSilentWhenNothingChanged(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	src := t.TempDir()
	tgt := t.TempDir()
	writeFile(t, filepath.Join(src, "a.mkv"))

	id := configuredLink(t, m, src, tgt)
	if err := m.Start(ctx, id); err != nil {
		t.Fatal(err)
	}
	defer m.Shutdown()

	before, err := m.Logs(id)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ForceRescan(ctx, id); err != nil {
		t.Fatal(err)
	}
	after, err := m.Logs(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Fatalf("idle rescan produced log entries: %v", after[len(before):])
	}
}

func TestLoadReactivatesPersistedConfigurations(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	src := t.TempDir()
	tgt := t.TempDir()
	writeFile(t, filepath.Join(src, "restored.mkv"))

	m.Load(ctx, []Record{
		{
			ID:                    "keep-1",
			Name:                  "movies",
			TargetPath:            tgt,
			Sources:               []string{src},
			IsActive:              true,
			RescanIntervalSeconds: 30,
			Logs:                  []string{"2026-01-01 00:00:00 configuration created"},
		},
		{ID: "keep-2", Name: "shows"},
	})
	defer m.Shutdown()

	cfg, err := m.Get("keep-1")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Active {
		t.Fatal("persisted active configuration should re-activate")
	}
	if cfg.RescanInterval != 30*time.Second {
		t.Fatalf("interval = %v, want 30s", cfg.RescanInterval)
	}
	if _, err := os.Lstat(filepath.Join(tgt, "restored.mkv")); err != nil {
		t.Fatalf("re-activation must re-run the initial merge: %v", err)
	}

	idle, err := m.Get("keep-2")
	if err != nil {
		t.Fatal(err)
	}
	if idle.Active {
		t.Fatal("inactive record must stay inactive")
	}
}

func TestRenameAndIntervalPersist(t *testing.T) {
	m, persist := newTestManager(t)
	ctx := context.Background()
	cfg, err := m.Create(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Rename(ctx, cfg.ID, "new"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetRescanInterval(ctx, cfg.ID, 45*time.Second); err != nil {
		t.Fatal(err)
	}
	rec := persist.record(t, cfg.ID)
	if rec.Name != "new" || rec.RescanIntervalSeconds != 45 {
		t.Fatalf("persisted record = %+v", rec)
	}
}
