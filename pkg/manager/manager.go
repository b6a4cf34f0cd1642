// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

// Package manager aggregates the capabilities of every connected MCP
// server into one merged namespace and routes tool executions through a
// confirmation checkpoint. It owns the client registry, the capability
// cache with its conflict resolver, the execution gateway, and the
// startup connection orchestrator.
package manager

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/maestro/pkg/audit"
	maestroerrors "github.com/jllopis/maestro/pkg/errors"
	"github.com/jllopis/maestro/pkg/governance"
	mcpclient "github.com/jllopis/maestro/pkg/mcp"
)

// Dialer builds a connector for a configured server. Tests swap it out
// to avoid real transports.
type Dialer func(name string, cfg mcpclient.ServerConfig) (Connector, error)

// Option configures a Manager.
type Option func(*Manager)

// WithConfirmationProvider installs the authority consulted before
// every tool execution. Defaults to governance.AllowAll.
func WithConfirmationProvider(p governance.ConfirmationProvider) Option {
	return func(m *Manager) {
		if p != nil {
			m.confirm = p
		}
	}
}

// WithConfirmationTimeout bounds how long a confirmation request may
// suspend. Zero means unbounded. A request that outlives the bound is
// treated as denied.
func WithConfirmationTimeout(d time.Duration) Option {
	return func(m *Manager) { m.confirmTimeout = d }
}

// WithAuditStore installs the execution ledger. Defaults to a no-op.
func WithAuditStore(s audit.Store) Option {
	return func(m *Manager) {
		if s != nil {
			m.auditStore = s
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDialer replaces the connector factory used by Connect and
// ConnectAll.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dial = d
		}
	}
}

// Manager is the aggregation and execution hub. All registry and cache
// state lives under one lock so the merged view can never be observed
// mid-update; network calls happen outside it.
type Manager struct {
	mu       sync.RWMutex
	registry *registry
	cache    *capabilityCache

	confirm        governance.ConfirmationProvider
	confirmTimeout time.Duration
	auditStore     audit.Store
	logger         *slog.Logger
	dial           Dialer
	tracer         trace.Tracer
}

// NewManager creates a manager with no connected servers.
func NewManager(opts ...Option) *Manager {
	initManagerMetrics()
	m := &Manager{
		registry:   newRegistry(),
		cache:      newCapabilityCache(),
		confirm:    governance.AllowAll{},
		auditStore: audit.NoopStore{},
		logger:     slog.Default(),
		tracer:     otel.Tracer("maestro/manager"),
	}
	m.dial = func(name string, cfg mcpclient.ServerConfig) (Connector, error) {
		return mcpclient.NewClient(name, cfg)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterClient adds an already connected client under name, discovers
// its capabilities, and merges them into the namespace. Registering a
// name whose sanitized form collides with a different registered server
// fails with a name conflict. Re-registering the same name replaces the
// previous client with a warning.
func (m *Manager) RegisterClient(ctx context.Context, name string, conn Connector) error {
	if name == "" {
		return maestroerrors.New(maestroerrors.CodeInvalidInput, "server name is required", nil)
	}
	if conn == nil {
		return maestroerrors.New(maestroerrors.CodeInvalidInput, "client is required", nil)
	}

	snap, err := m.discoverSnapshot(ctx, name, conn)
	if err != nil {
		return err
	}

	m.mu.Lock()
	sanitized := SanitizeName(name)
	if other, taken := m.cache.sanitizedNames[sanitized]; taken && other != name {
		m.mu.Unlock()
		return maestroerrors.New(maestroerrors.CodeNameConflict,
			fmt.Sprintf("server name %q collides with registered server %q after sanitization", name, other), nil).
			WithContext("sanitized", sanitized)
	}
	previous, replacing := m.registry.get(name)
	m.registry.put(name, conn)
	m.cache.setServer(name, snap)
	tools, conflicts := m.cache.toolCount(), len(m.cache.conflicts)
	m.mu.Unlock()

	if replacing {
		m.logger.Warn("manager.register.overwrite", "server", name)
		if previous != nil && previous != conn {
			if derr := previous.Disconnect(); derr != nil {
				m.logger.Warn("manager.register.disconnect_previous", "server", name, "error", derr)
			}
		}
	}
	recordNamespaceSize(ctx, tools, conflicts)
	m.logger.Info("manager.register",
		"server", name,
		"tools", len(snap.tools),
		"prompts", len(snap.prompts),
		"resources", len(snap.resources),
		"conflicts", conflicts)
	return nil
}

// Connect dials and registers a server at runtime. Unlike startup
// orchestration, a dynamic connect surfaces its error regardless of the
// server's configured mode.
func (m *Manager) Connect(ctx context.Context, name string, cfg mcpclient.ServerConfig) error {
	m.mu.RLock()
	other, taken := m.cache.sanitizedNames[SanitizeName(name)]
	m.mu.RUnlock()
	if taken && other != name {
		return maestroerrors.New(maestroerrors.CodeNameConflict,
			fmt.Sprintf("server name %q collides with registered server %q after sanitization", name, other), nil)
	}

	conn, err := m.dial(name, cfg)
	if err != nil {
		err = maestroerrors.New(maestroerrors.CodeConnectFailure,
			fmt.Sprintf("failed to create client for %q", name), err)
		m.recordConnectError(name, err)
		return err
	}
	if cerr := conn.Connect(ctx); cerr != nil {
		err = maestroerrors.New(maestroerrors.CodeConnectFailure,
			fmt.Sprintf("failed to connect to %q", name), cerr)
		m.recordConnectError(name, err)
		return err
	}
	if rerr := m.RegisterClient(ctx, name, conn); rerr != nil {
		if derr := conn.Disconnect(); derr != nil {
			m.logger.Warn("manager.connect.cleanup", "server", name, "error", derr)
		}
		m.recordConnectError(name, rerr)
		return rerr
	}
	if connectCounter != nil {
		connectCounter.Add(ctx, 1)
	}
	return nil
}

// RemoveClient unregisters a server, rebuilds the merged namespace, and
// then attempts to disconnect the client. A failed disconnect is logged
// but does not undo the removal; contested names whose other producers
// are gone heal back to their bare form.
func (m *Manager) RemoveClient(name string) error {
	m.mu.Lock()
	conn, ok := m.registry.remove(name)
	if !ok {
		m.mu.Unlock()
		return maestroerrors.New(maestroerrors.CodeNotFound,
			fmt.Sprintf("server %q is not registered", name), nil)
	}
	m.cache.removeServer(name)
	tools, conflicts := m.cache.toolCount(), len(m.cache.conflicts)
	m.mu.Unlock()

	recordNamespaceSize(context.Background(), tools, conflicts)
	m.logger.Info("manager.remove", "server", name, "tools", tools, "conflicts", conflicts)
	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			m.logger.Warn("manager.remove.disconnect", "server", name, "error", err)
		}
	}
	return nil
}

// Refresh re-discovers the capabilities of a registered server and
// swaps its snapshot into the cache.
func (m *Manager) Refresh(ctx context.Context, name string) error {
	m.mu.RLock()
	conn, ok := m.registry.get(name)
	m.mu.RUnlock()
	if !ok {
		return maestroerrors.New(maestroerrors.CodeNotFound,
			fmt.Sprintf("server %q is not registered", name), nil)
	}

	snap, err := m.discoverSnapshot(ctx, name, conn)
	if err != nil {
		return err
	}

	m.mu.Lock()
	// The server may have been removed while we were discovering.
	if _, still := m.registry.get(name); !still {
		m.mu.Unlock()
		return maestroerrors.New(maestroerrors.CodeNotFound,
			fmt.Sprintf("server %q is not registered", name), nil)
	}
	m.cache.setServer(name, snap)
	tools, conflicts := m.cache.toolCount(), len(m.cache.conflicts)
	m.mu.Unlock()

	recordNamespaceSize(ctx, tools, conflicts)
	m.logger.Info("manager.refresh", "server", name, "tools", len(snap.tools))
	return nil
}

// DisconnectAll tears down every registered client. Each disconnect is
// attempted even when earlier ones fail; the failures come back joined.
func (m *Manager) DisconnectAll() error {
	m.mu.Lock()
	conns := map[string]Connector{}
	for _, name := range m.registry.names() {
		if conn, ok := m.registry.get(name); ok {
			conns[name] = conn
		}
		m.registry.remove(name)
		m.cache.removeServer(name)
	}
	m.mu.Unlock()

	var errs []error
	for name, conn := range conns {
		if err := conn.Disconnect(); err != nil {
			m.logger.Warn("manager.disconnect", "server", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	m.logger.Info("manager.disconnect_all", "servers", len(conns), "failures", len(errs))
	return stderrors.Join(errs...)
}

// ListClients returns the registered server names in sorted order.
func (m *Manager) ListClients() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.names()
}

// ClientErrors reports the last connection error per server name,
// including servers that never made it into the registry.
func (m *Manager) ClientErrors() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.errors()
}

// ListAllTools returns the merged tool view. Contested names show up
// only under their qualified ids, annotated with the producing server.
func (m *Manager) ListAllTools() map[string]mcp.Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache.mergedTools()
}

// ToolOrigins maps every caller-facing tool id to its producer.
func (m *Manager) ToolOrigins() map[string]ToolOrigin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache.toolOrigins()
}

// ListAllPrompts returns every prompt name across registered servers.
func (m *Manager) ListAllPrompts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache.promptNames()
}

// ListAllResources returns every resource URI across registered servers.
func (m *Manager) ListAllResources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache.resourceURIs()
}

func (m *Manager) recordConnectError(name string, err error) {
	m.mu.Lock()
	m.registry.setError(name, err.Error())
	m.mu.Unlock()
	if connectErrCounter != nil {
		connectErrCounter.Add(context.Background(), 1)
	}
}

// discoverSnapshot queries a connected client for its capabilities.
// Tool discovery failure fails the whole registration; servers that do
// not implement prompts or resources contribute empty sets.
func (m *Manager) discoverSnapshot(ctx context.Context, name string, conn Connector) (*serverSnapshot, error) {
	snap := newServerSnapshot()

	tools, err := conn.GetTools(ctx)
	if err != nil {
		return nil, maestroerrors.New(maestroerrors.CodeInternal,
			fmt.Sprintf("tool discovery failed for %q", name), err)
	}
	for toolName, tool := range tools {
		snap.tools[toolName] = tool
	}

	prompts, err := conn.ListPrompts(ctx)
	switch {
	case err == nil:
		for _, p := range prompts {
			snap.prompts[p] = struct{}{}
		}
	case maestroerrors.HasCode(err, maestroerrors.CodeNotSupported):
	default:
		m.logger.Warn("manager.discover.prompts", "server", name, "error", err)
	}

	resources, err := conn.ListResources(ctx)
	switch {
	case err == nil:
		for _, r := range resources {
			snap.resources[r] = struct{}{}
		}
	case maestroerrors.HasCode(err, maestroerrors.CodeNotSupported):
	default:
		m.logger.Warn("manager.discover.resources", "server", name, "error", err)
	}

	return snap, nil
}

func recordNamespaceSize(ctx context.Context, tools, conflicts int) {
	if toolsGauge != nil {
		toolsGauge.Record(ctx, int64(tools))
	}
	if conflictsGauge != nil {
		conflictsGauge.Record(ctx, int64(conflicts))
	}
}
