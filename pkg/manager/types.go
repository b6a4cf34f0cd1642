// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Connector is the surface the manager needs from a connected MCP
// server. *mcp.Client satisfies it; tests supply in-package fakes.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect() error

	GetTools(ctx context.Context) (map[string]mcp.Tool, error)
	ListPrompts(ctx context.Context) ([]string, error)
	ListResources(ctx context.Context) ([]string, error)

	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)
}

// ToolOrigin describes where a merged tool entry came from.
type ToolOrigin struct {
	// ServerName is the registered name of the producing server.
	ServerName string
	// ToolName is the server-local tool name.
	ToolName string
	// Qualified reports whether the merged entry uses a
	// server-qualified id because the bare name is contested.
	Qualified bool
}
