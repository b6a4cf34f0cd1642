package mcp

import (
	"fmt"
	"strings"
)

// TransportKind selects how to reach a capability server.
type TransportKind string

const (
	// TransportStdio spawns a subprocess and speaks over its stdio.
	TransportStdio TransportKind = "stdio"
	// TransportSSE connects to a server-push event stream.
	TransportSSE TransportKind = "sse"
	// TransportHTTP connects via streamable HTTP.
	TransportHTTP TransportKind = "http"
)

// ConnectionMode is the per-server fault-tolerance policy applied during
// bulk initialization.
type ConnectionMode string

const (
	// ModeRequired blocks startup when the server fails to connect.
	ModeRequired ConnectionMode = "required"
	// ModeBestEffort records the failure and continues.
	ModeBestEffort ConnectionMode = "best-effort"
)

// ServerConfig holds the transport parameters for one capability server.
type ServerConfig struct {
	Transport TransportKind

	// For stdio servers
	Command string
	Args    []string
	Env     map[string]string

	// For sse/http servers
	URL string

	// Mode defaults to best-effort when empty.
	Mode ConnectionMode

	// ClientOptions are applied to the client created for this server.
	ClientOptions []ClientOption
}

// Validate checks the transport parameters.
func (c ServerConfig) Validate() error {
	switch c.Transport {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("stdio transport requires a command")
		}
	case TransportSSE, TransportHTTP:
		if c.URL == "" {
			return fmt.Errorf("%s transport requires a url", c.Transport)
		}
	default:
		return fmt.Errorf("unknown transport %q", string(c.Transport))
	}
	switch c.Mode {
	case "", ModeRequired, ModeBestEffort:
	default:
		return fmt.Errorf("unknown connection mode %q", string(c.Mode))
	}
	return nil
}

// Required reports whether a connect failure must block startup.
func (c ServerConfig) Required() bool {
	return c.Mode == ModeRequired
}

func envStrings(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

// ParseTransport normalizes a transport name from configuration input.
func ParseTransport(s string) (TransportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stdio":
		return TransportStdio, nil
	case "sse":
		return TransportSSE, nil
	case "http", "streamable-http", "streamable_http":
		return TransportHTTP, nil
	default:
		return "", fmt.Errorf("unknown transport %q", s)
	}
}

// ParseMode normalizes a connection mode from configuration input.
// Empty input means best-effort.
func ParseMode(s string) (ConnectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best-effort", "best_effort", "lenient":
		return ModeBestEffort, nil
	case "required", "strict":
		return ModeRequired, nil
	default:
		return "", fmt.Errorf("unknown connection mode %q", s)
	}
}
