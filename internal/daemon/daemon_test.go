package daemon_test

import (
	"errors"
	"testing"

	"briefcast/internal/config"
	"briefcast/internal/daemon"
	"briefcast/internal/testsupport"
)

func TestAcquireLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := daemon.AcquireLock(cfg)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if !daemon.Locked(cfg) {
		t.Fatal("expected data directory to report locked")
	}
	if _, err := daemon.AcquireLock(cfg); !errors.Is(err, daemon.ErrLocked) {
		t.Fatalf("second AcquireLock err = %v, want ErrLocked", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if daemon.Locked(cfg) {
		t.Fatal("lock still held after release")
	}
	again, err := daemon.AcquireLock(cfg)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	_ = again.Release()
}

func TestBuildWiresAllTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPrompts())

	p, err := daemon.Build(cfg, nil, daemon.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	names := p.Manager.Scheduler().Names()
	if len(names) != 3 {
		t.Fatalf("expected 3 scheduled tasks, got %v", names)
	}
	if count, err := p.Index.Count(); err != nil || count != 0 {
		t.Fatalf("fresh index count=%d err=%v", count, err)
	}
}

func TestBuildRequiresPrompts(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	_, err := daemon.Build(cfg, nil, daemon.BuildOptions{})
	if !errors.Is(err, config.ErrPromptMissing) {
		t.Fatalf("Build err = %v, want ErrPromptMissing", err)
	}
}
