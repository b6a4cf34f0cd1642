package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Confirm   ConfirmConfig   `koanf:"confirm"`
	Audit     AuditConfig     `koanf:"audit"`
	MCP       MCPConfig       `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// ConfirmConfig selects the confirmation provider gating tool executions.
type ConfirmConfig struct {
	Mode      string `koanf:"mode"`       // allow, deny, console
	TimeoutMs int    `koanf:"timeout_ms"` // 0 waits indefinitely
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type MCPConfig struct {
	Servers map[string]ServerEntry `koanf:"servers"`
}

// ServerEntry declares one capability server in the config file.
type ServerEntry struct {
	Transport string            `koanf:"transport"` // stdio, sse, http
	Command   string            `koanf:"command"`
	Args      []string          `koanf:"args"`
	Env       map[string]string `koanf:"env"`
	URL       string            `koanf:"url"`
	Mode      string            `koanf:"mode"` // required, best-effort (default)
}

// Validate checks that the entry names a usable transport.
func (e ServerEntry) Validate(name string) error {
	switch strings.ToLower(strings.TrimSpace(e.Transport)) {
	case "stdio":
		if e.Command == "" {
			return fmt.Errorf("server %q: stdio transport requires a command", name)
		}
	case "sse", "http":
		if e.URL == "" {
			return fmt.Errorf("server %q: %s transport requires a url", name, e.Transport)
		}
	case "":
		return fmt.Errorf("server %q: transport is required", name)
	default:
		return fmt.Errorf("server %q: unknown transport %q", name, e.Transport)
	}
	switch strings.ToLower(strings.TrimSpace(e.Mode)) {
	case "", "best-effort", "required":
	default:
		return fmt.Errorf("server %q: unknown mode %q", name, e.Mode)
	}
	return nil
}

// Required reports whether a failed connection should block startup.
func (e ServerEntry) Required() bool {
	return strings.ToLower(strings.TrimSpace(e.Mode)) == "required"
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "stdout")
	k.Set("confirm.mode", "allow")
	k.Set("audit.enabled", false)
	k.Set("audit.path", "maestro_audit.db")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (MAESTRO_LOG_LEVEL -> log.level)
	if err := k.Load(env.Provider("MAESTRO_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "MAESTRO_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for name, entry := range cfg.MCP.Servers {
		if err := entry.Validate(name); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}
