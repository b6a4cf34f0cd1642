// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

// Package governance provides the confirmation checkpoint that gates every
// tool execution routed through the manager.
package governance

import (
	"context"
	"path"
	"strings"
)

// ToolCall describes a pending tool execution submitted for confirmation.
type ToolCall struct {
	// Name is the actual (unqualified) tool name on the owning server.
	Name string
	// ServerName identifies the owning capability server.
	ServerName string
	// Arguments are the raw invocation arguments.
	Arguments map[string]any
	// SessionID carries caller context for diagnostics, may be empty.
	SessionID string
}

// ConfirmationProvider decides whether a tool execution may proceed. A
// provider may suspend for an unbounded time (a human may be on the other
// end); implementations must honor ctx cancellation. A returned error is
// treated as a denial by callers.
type ConfirmationProvider interface {
	RequestConfirmation(ctx context.Context, call ToolCall) (bool, error)
}

// AllowAll approves every execution. It is the default provider so the
// manager is usable without a real authority configured.
type AllowAll struct{}

// RequestConfirmation always approves.
func (AllowAll) RequestConfirmation(context.Context, ToolCall) (bool, error) {
	return true, nil
}

// DenyAll refuses every execution.
type DenyAll struct{}

// RequestConfirmation always denies.
func (DenyAll) RequestConfirmation(context.Context, ToolCall) (bool, error) {
	return false, nil
}

// Rule defines a single confirmation rule.
type Rule struct {
	ID      string
	Effect  string // allow or deny
	Pattern string // glob over the tool name, empty matches all
	Server  string // glob over the server name, empty matches all
	Reason  string
}

// RuleSet evaluates rules in order and returns the first match; unmatched
// calls get the default decision.
type RuleSet struct {
	Rules        []Rule
	DefaultAllow bool
}

// NewRuleSet creates a rule set with a default allow decision.
func NewRuleSet(rules []Rule) *RuleSet {
	return &RuleSet{
		Rules:        append([]Rule(nil), rules...),
		DefaultAllow: true,
	}
}

// RequestConfirmation checks rules in order and returns the first match.
func (r *RuleSet) RequestConfirmation(_ context.Context, call ToolCall) (bool, error) {
	for _, rule := range r.Rules {
		if !matchPattern(rule.Pattern, call.Name) {
			continue
		}
		if !matchPattern(rule.Server, call.ServerName) {
			continue
		}
		return strings.ToLower(rule.Effect) != "deny", nil
	}
	return r.DefaultAllow, nil
}

func matchPattern(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	ok, err := path.Match(pattern, value)
	if err == nil && ok {
		return true
	}
	return pattern == value
}
