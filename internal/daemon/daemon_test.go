package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"symsync/internal/daemon"
	"symsync/internal/testsupport"
)

func TestStartStopLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d", status.PID)
	}
	if status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("database path = %q", status.DatabasePath)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon should report stopped")
	}
	// Stopping twice is harmless.
	d.Stop()
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	if err := first.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	st2 := testsupport.MustOpenStore(t, cfg)
	second, err := daemon.New(cfg, st2, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("second instance must not acquire the lock")
	}
}

func TestRestartReactivatesConfigurations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	src := t.TempDir()
	tgt := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.mkv"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	st := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatal(err)
	}

	m := d.Manager()
	created, err := m.Create(ctx, "movies")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetTarget(ctx, created.ID, tgt); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSource(ctx, created.ID, src); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash that left a stale link behind.
	if err := os.Remove(filepath.Join(tgt, "a.mkv")); err != nil {
		t.Fatal(err)
	}

	st2 := testsupport.MustOpenStore(t, cfg)
	restarted, err := daemon.New(cfg, st2, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer restarted.Close()
	if err := restarted.Start(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := restarted.Manager().Get(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Active {
		t.Fatal("configuration should be active after restart")
	}
	if _, err := os.Lstat(filepath.Join(tgt, "a.mkv")); err != nil {
		t.Fatalf("restart merge did not restore link: %v", err)
	}
}

func TestShutdownSignal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	select {
	case <-d.ShutdownSignal():
		t.Fatal("shutdown signal fired early")
	default:
	}
	d.RequestShutdown()
	d.RequestShutdown()
	select {
	case <-d.ShutdownSignal():
	default:
		t.Fatal("shutdown signal not delivered")
	}
}
