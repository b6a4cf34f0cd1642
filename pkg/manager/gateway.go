// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/maestro/pkg/audit"
	maestroerrors "github.com/jllopis/maestro/pkg/errors"
	"github.com/jllopis/maestro/pkg/governance"
	"github.com/jllopis/maestro/pkg/telemetry"
)

// ExecuteTool resolves a caller-facing tool id, asks the confirmation
// provider for permission, and invokes the tool on its owning server.
// The id may be a bare name, a qualified id, or a literal name that
// happens to contain the qualification delimiter; resolution tries the
// qualified reading first and falls back to the literal one. A denial
// and an unknown tool produce distinct error codes.
func (m *Manager) ExecuteTool(ctx context.Context, name string, args map[string]any, sessionID string) (*mcp.CallToolResult, error) {
	ctx, span := m.tracer.Start(ctx, "manager.execute")
	defer span.End()

	m.mu.RLock()
	server, local, ok := m.cache.resolveTool(name)
	var conn Connector
	if ok {
		conn, ok = m.registry.get(server)
	}
	m.mu.RUnlock()
	if !ok || conn == nil {
		return nil, maestroerrors.New(maestroerrors.CodeNotFound,
			fmt.Sprintf("tool %q not found in any registered server", name), nil)
	}

	callID := uuid.NewString()
	span.SetAttributes(
		attribute.String(telemetry.AttrServerName, server),
		attribute.String(telemetry.AttrToolName, local),
		attribute.String(telemetry.AttrToolCallID, callID),
	)
	if sessionID != "" {
		span.SetAttributes(attribute.String(telemetry.AttrSessionID, sessionID))
	}

	call := governance.ToolCall{
		Name:       local,
		ServerName: server,
		Arguments:  args,
		SessionID:  sessionID,
	}
	allowed, confirmErr := m.requestConfirmation(ctx, call)
	span.SetAttributes(telemetry.ConfirmAttributes(fmt.Sprintf("%T", m.confirm), allowed)...)
	if confirmErr != nil || !allowed {
		if executeDenyCounter != nil {
			executeDenyCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String(telemetry.AttrServerName, server),
				attribute.String(telemetry.AttrToolName, local)))
		}
		m.writeAudit(ctx, audit.Record{
			ID:          callID,
			SessionID:   sessionID,
			ServerName:  server,
			ToolName:    local,
			RequestedAs: name,
			Status:      audit.StatusDenied,
			Error:       errString(confirmErr),
			StartedAt:   time.Now().UTC(),
			FinishedAt:  time.Now().UTC(),
		})
		m.logger.Warn("manager.execute.denied",
			"server", server, "tool", local, "call_id", callID, "error", confirmErr)
		return nil, maestroerrors.New(maestroerrors.CodeDenied,
			fmt.Sprintf("execution of %q was denied", name), confirmErr).
			WithAttribute(telemetry.AttrToolCallID, callID)
	}

	started := time.Now()
	result, callErr := conn.CallTool(ctx, local, args)
	finished := time.Now()
	durationMs := float64(finished.Sub(started)) / float64(time.Millisecond)

	span.SetAttributes(telemetry.ToolCallAttributes(server, local, callID, durationMs, callErr == nil)...)
	callAttrs := metric.WithAttributes(
		attribute.String(telemetry.AttrServerName, server),
		attribute.String(telemetry.AttrToolName, local))
	if executeCounter != nil {
		executeCounter.Add(ctx, 1, callAttrs)
	}
	if executeLatencyMs != nil {
		executeLatencyMs.Record(ctx, durationMs, callAttrs)
	}

	status := audit.StatusOK
	if callErr != nil {
		status = audit.StatusError
	}
	m.writeAudit(ctx, audit.Record{
		ID:          callID,
		SessionID:   sessionID,
		ServerName:  server,
		ToolName:    local,
		RequestedAs: name,
		Status:      status,
		Error:       errString(callErr),
		DurationMs:  durationMs,
		StartedAt:   started.UTC(),
		FinishedAt:  finished.UTC(),
	})

	if callErr != nil {
		if executeErrCounter != nil {
			executeErrCounter.Add(ctx, 1, callAttrs)
		}
		m.logger.Error("manager.execute.error",
			"server", server, "tool", local, "call_id", callID,
			"duration_ms", durationMs, "error", callErr)
		return nil, maestroerrors.New(maestroerrors.CodeToolFailure,
			fmt.Sprintf("tool %q failed on server %q", local, server), callErr).
			WithContext("duration_ms", durationMs).
			WithAttribute(telemetry.AttrToolCallID, callID)
	}

	m.logger.Info("manager.execute",
		"server", server, "tool", local, "call_id", callID, "duration_ms", durationMs)
	return result, nil
}

// requestConfirmation applies the optional confirmation bound. With no
// bound the provider may suspend as long as the caller's ctx allows; an
// expired bound counts as a denial, never an approval.
func (m *Manager) requestConfirmation(ctx context.Context, call governance.ToolCall) (bool, error) {
	if m.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.confirmTimeout)
		defer cancel()
	}
	allowed, err := m.confirm.RequestConfirmation(ctx, call)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// GetPrompt fetches a prompt by name from whichever server exposes it.
// Prompts are read-only so they bypass the confirmation checkpoint.
func (m *Manager) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	m.mu.RLock()
	server, ok := m.cache.resolvePrompt(name)
	var conn Connector
	if ok {
		conn, ok = m.registry.get(server)
	}
	m.mu.RUnlock()
	if !ok || conn == nil {
		return nil, maestroerrors.New(maestroerrors.CodeNotFound,
			fmt.Sprintf("prompt %q not found in any registered server", name), nil)
	}

	result, err := conn.GetPrompt(ctx, name, args)
	if err != nil {
		return nil, maestroerrors.New(maestroerrors.CodeInternal,
			fmt.Sprintf("failed to get prompt %q from server %q", name, server), err)
	}
	return result, nil
}

// ReadResource reads a resource by URI from whichever server exposes
// it. Like prompts, resources bypass the confirmation checkpoint.
func (m *Manager) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	m.mu.RLock()
	server, ok := m.cache.resolveResource(uri)
	var conn Connector
	if ok {
		conn, ok = m.registry.get(server)
	}
	m.mu.RUnlock()
	if !ok || conn == nil {
		return nil, maestroerrors.New(maestroerrors.CodeNotFound,
			fmt.Sprintf("resource %q not found in any registered server", uri), nil)
	}

	result, err := conn.ReadResource(ctx, uri)
	if err != nil {
		return nil, maestroerrors.New(maestroerrors.CodeInternal,
			fmt.Sprintf("failed to read resource %q from server %q", uri, server), err)
	}
	return result, nil
}

func (m *Manager) writeAudit(ctx context.Context, rec audit.Record) {
	if err := m.auditStore.Record(ctx, rec); err != nil {
		m.logger.Warn("manager.audit", "call_id", rec.ID, "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
