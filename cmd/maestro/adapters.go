package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jllopis/maestro/pkg/audit"
	"github.com/jllopis/maestro/pkg/config"
	"github.com/jllopis/maestro/pkg/governance"
	"github.com/jllopis/maestro/pkg/manager"
	mcpclient "github.com/jllopis/maestro/pkg/mcp"
)

// toServerConfigs converts configuration entries into client configs.
func toServerConfigs(cfg *config.Config) (map[string]mcpclient.ServerConfig, error) {
	servers := make(map[string]mcpclient.ServerConfig, len(cfg.MCP.Servers))
	for name, entry := range cfg.MCP.Servers {
		transport, err := mcpclient.ParseTransport(entry.Transport)
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", name, err)
		}
		mode, err := mcpclient.ParseMode(entry.Mode)
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", name, err)
		}
		servers[name] = mcpclient.ServerConfig{
			Transport: transport,
			Command:   entry.Command,
			Args:      entry.Args,
			Env:       entry.Env,
			URL:       entry.URL,
			Mode:      mode,
		}
	}
	return servers, nil
}

// buildConfirmProvider selects the confirmation authority from config.
func buildConfirmProvider(cfg config.ConfirmConfig) (governance.ConfirmationProvider, error) {
	switch cfg.Mode {
	case "", "allow":
		return governance.AllowAll{}, nil
	case "deny":
		return governance.DenyAll{}, nil
	case "console":
		return governance.NewConsoleProvider(
			governance.WithConfirmInput(os.Stdin),
			governance.WithConfirmOutput(os.Stderr),
		), nil
	default:
		return nil, fmt.Errorf("unknown confirm mode %q", cfg.Mode)
	}
}

// buildAuditStore opens the execution ledger when auditing is enabled.
func buildAuditStore(cfg config.AuditConfig) (audit.Store, func() error, error) {
	if !cfg.Enabled {
		return audit.NoopStore{}, func() error { return nil }, nil
	}
	store, err := audit.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit store: %w", err)
	}
	return store, store.Close, nil
}

// bootManager builds a manager from config and connects every declared
// server. The returned cleanup disconnects clients and closes the
// audit store.
func bootManager(ctx context.Context, global globalFlags, cfg *config.Config) (*manager.Manager, func(), error) {
	servers, err := toServerConfigs(cfg)
	if err != nil {
		return nil, nil, err
	}
	confirm, err := buildConfirmProvider(cfg.Confirm)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := buildAuditStore(cfg.Audit)
	if err != nil {
		return nil, nil, err
	}

	opts := []manager.Option{
		manager.WithConfirmationProvider(confirm),
		manager.WithAuditStore(store),
		manager.WithLogger(slog.Default()),
	}
	if cfg.Confirm.TimeoutMs > 0 {
		opts = append(opts, manager.WithConfirmationTimeout(time.Duration(cfg.Confirm.TimeoutMs)*time.Millisecond))
	}
	m := manager.NewManager(opts...)

	cleanup := func() {
		if err := m.DisconnectAll(); err != nil {
			slog.Warn("cli.shutdown", "error", err)
		}
		if err := closeStore(); err != nil {
			slog.Warn("cli.audit_close", "error", err)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, global.Timeout)
	defer cancel()
	if err := m.ConnectAll(connectCtx, servers); err != nil {
		cleanup()
		return nil, nil, err
	}
	return m, cleanup, nil
}
