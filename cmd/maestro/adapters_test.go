package main

import (
	"testing"

	"github.com/jllopis/maestro/pkg/config"
	"github.com/jllopis/maestro/pkg/governance"
	mcpclient "github.com/jllopis/maestro/pkg/mcp"
)

func TestToServerConfigs(t *testing.T) {
	cfg := &config.Config{MCP: config.MCPConfig{Servers: map[string]config.ServerEntry{
		"files": {Transport: "stdio", Command: "mcp-files", Args: []string{"--root", "/tmp"}},
		"web":   {Transport: "streamable-http", URL: "http://localhost:9000/mcp", Mode: "required"},
	}}}

	servers, err := toServerConfigs(cfg)
	if err != nil {
		t.Fatalf("toServerConfigs: %v", err)
	}
	files := servers["files"]
	if files.Transport != mcpclient.TransportStdio || files.Command != "mcp-files" {
		t.Errorf("files config = %+v", files)
	}
	if files.Required() {
		t.Error("files should default to best-effort")
	}
	web := servers["web"]
	if web.Transport != mcpclient.TransportHTTP || !web.Required() {
		t.Errorf("web config = %+v", web)
	}
}

func TestToServerConfigsRejectsUnknownTransport(t *testing.T) {
	cfg := &config.Config{MCP: config.MCPConfig{Servers: map[string]config.ServerEntry{
		"bad": {Transport: "carrier-pigeon"},
	}}}
	if _, err := toServerConfigs(cfg); err == nil {
		t.Fatal("want transport error")
	}
}

func TestBuildConfirmProvider(t *testing.T) {
	provider, err := buildConfirmProvider(config.ConfirmConfig{Mode: "deny"})
	if err != nil {
		t.Fatalf("buildConfirmProvider: %v", err)
	}
	if _, ok := provider.(governance.DenyAll); !ok {
		t.Errorf("provider = %T, want DenyAll", provider)
	}

	if _, err := buildConfirmProvider(config.ConfirmConfig{Mode: "oracle"}); err == nil {
		t.Error("want error for unknown confirm mode")
	}

	provider, err = buildConfirmProvider(config.ConfirmConfig{})
	if err != nil {
		t.Fatalf("default provider: %v", err)
	}
	if _, ok := provider.(governance.AllowAll); !ok {
		t.Errorf("default provider = %T, want AllowAll", provider)
	}
}

func TestBuildToolArgs(t *testing.T) {
	args, err := buildToolArgs(`{"count": 2, "deep": {"k": "v"}}`, []string{"name=alpha"})
	if err != nil {
		t.Fatalf("buildToolArgs: %v", err)
	}
	if args["name"] != "alpha" {
		t.Errorf("kv arg lost: %v", args)
	}
	if args["count"] != float64(2) {
		t.Errorf("json arg lost: %v", args)
	}

	if _, err := buildToolArgs("", []string{"no-equals"}); err == nil {
		t.Error("want error for malformed --arg")
	}
	if _, err := buildToolArgs("{not json", nil); err == nil {
		t.Error("want error for malformed --args")
	}
}
