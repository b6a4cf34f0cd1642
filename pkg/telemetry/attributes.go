// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for capability-manager telemetry.
const (
	// Server attributes
	AttrServerName = "maestro.server.name"
	AttrServerKind = "maestro.server.transport"
	AttrServerMode = "maestro.server.mode"

	// Tool attributes
	AttrToolName       = "maestro.tool.name"
	AttrToolQualified  = "maestro.tool.qualified_name"
	AttrToolCallID     = "maestro.tool.call_id"
	AttrToolDurationMs = "maestro.tool.duration_ms"
	AttrToolSuccess    = "maestro.tool.success"

	// Namespace attributes
	AttrToolsCount     = "maestro.tools.count"
	AttrConflictsCount = "maestro.tools.conflicts"

	// Confirmation attributes
	AttrConfirmProvider = "maestro.confirm.provider"
	AttrConfirmAllowed  = "maestro.confirm.allowed"

	// Session attributes
	AttrSessionID = "maestro.session.id"
)

// ToolCallAttributes returns attributes for a gateway execution span.
func ToolCallAttributes(server, tool, callID string, durationMs float64, success bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrServerName, server),
		attribute.String(AttrToolName, tool),
		attribute.String(AttrToolCallID, callID),
		attribute.Float64(AttrToolDurationMs, durationMs),
		attribute.Bool(AttrToolSuccess, success),
	}
}

// NamespaceAttributes returns attributes describing the merged tool index.
func NamespaceAttributes(tools, conflicts int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrToolsCount, tools),
		attribute.Int(AttrConflictsCount, conflicts),
	}
}

// ConfirmAttributes returns attributes for a confirmation decision.
func ConfirmAttributes(provider string, allowed bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrConfirmAllowed, allowed),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrConfirmProvider, provider))
	}
	return attrs
}
