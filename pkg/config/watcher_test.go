// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatcherInitialConfig(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if w.Config().Log.Level != "debug" {
		t.Errorf("initial config not loaded, got %q", w.Config().Log.Level)
	}
}

func TestWatcherReload(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")

	w, err := NewWatcher(path, WithWatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	changed := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	// mtime granularity on some filesystems is one second
	future := time.Now().Add(2 * time.Second)
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Log.Level != "warn" {
			t.Errorf("expected reloaded level warn, got %q", cfg.Log.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if w.Config().Log.Level != "warn" {
		t.Errorf("Config() should return reloaded config, got %q", w.Config().Log.Level)
	}
}

func TestWatcherBadReloadKeepsOldConfig(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")

	w, err := NewWatcher(path, WithWatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	future := time.Now().Add(2 * time.Second)
	bad := "mcp:\n  servers:\n    broken:\n      transport: stdio\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	if w.Config().Log.Level != "info" {
		t.Errorf("failed reload should keep previous config, got %q", w.Config().Log.Level)
	}
}
