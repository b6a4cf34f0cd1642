// Package audit persists a ledger of gateway tool executions.
package audit

import (
	"context"
	"time"
)

// Record captures one tool execution routed through the gateway.
type Record struct {
	ID          string
	SessionID   string
	ServerName  string
	ToolName    string
	RequestedAs string // original identifier as submitted, possibly qualified
	Status      string // ok, error, denied
	Error       string
	DurationMs  float64
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Execution statuses recorded in the ledger.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusDenied = "denied"
)

// Filter narrows List results.
type Filter struct {
	ServerName string
	Status     string
	Limit      int
}

// Store persists execution records.
type Store interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, filter Filter) ([]Record, error)
}

// NoopStore discards every record. Used when auditing is disabled.
type NoopStore struct{}

// Record discards the record.
func (NoopStore) Record(context.Context, Record) error { return nil }

// List returns nothing.
func (NoopStore) List(context.Context, Filter) ([]Record, error) { return nil, nil }
