package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

type fakeRPC struct {
	tools     []mcp.Tool
	prompts   []mcp.Prompt
	resources []mcp.Resource

	listToolsErr     error
	listPromptsErr   error
	listResourcesErr error
	callToolErr      error

	callToolCount int
	lastToolName  string
	closed        bool
}

func (f *fakeRPC) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if f.listToolsErr != nil {
		return nil, f.listToolsErr
	}
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeRPC) ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error) {
	if f.listPromptsErr != nil {
		return nil, f.listPromptsErr
	}
	return &mcp.ListPromptsResult{Prompts: f.prompts}, nil
}

func (f *fakeRPC) ListResources(ctx context.Context, req mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error) {
	if f.listResourcesErr != nil {
		return nil, f.listResourcesErr
	}
	return &mcp.ListResourcesResult{Resources: f.resources}, nil
}

func (f *fakeRPC) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.callToolCount++
	f.lastToolName = req.Params.Name
	if f.callToolErr != nil {
		return nil, f.callToolErr
	}
	return &mcp.CallToolResult{}, nil
}

func (f *fakeRPC) GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{Description: req.Params.Name}, nil
}

func (f *fakeRPC) ReadResource(ctx context.Context, req mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{}, nil
}

func (f *fakeRPC) Close() error {
	f.closed = true
	return nil
}

func newTool(name string) mcp.Tool {
	return mcp.Tool{Name: name, Description: "test tool " + name}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", ServerConfig{Transport: TransportStdio, Command: "echo"}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := NewClient("x", ServerConfig{Transport: TransportStdio}); err == nil {
		t.Error("expected error for stdio without command")
	}
	if _, err := NewClient("x", ServerConfig{Transport: TransportHTTP}); err == nil {
		t.Error("expected error for http without url")
	}
	if _, err := NewClient("x", ServerConfig{Transport: "smoke-signal", URL: "u"}); err == nil {
		t.Error("expected error for unknown transport")
	}

	c, err := NewClient("fs", ServerConfig{Transport: TransportStdio, Command: "npx"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name() != "fs" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestGetToolsKeyedByName(t *testing.T) {
	rpc := &fakeRPC{tools: []mcp.Tool{newTool("read_file"), newTool("write_file")}}
	c := NewClientWithRPC("fs", rpc)

	tools, err := c.GetTools(context.Background())
	if err != nil {
		t.Fatalf("GetTools failed: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if _, ok := tools["read_file"]; !ok {
		t.Error("read_file missing from tool map")
	}
}

func TestListPromptsAndResources(t *testing.T) {
	rpc := &fakeRPC{
		prompts:   []mcp.Prompt{{Name: "summarize"}},
		resources: []mcp.Resource{{URI: "file:///readme"}},
	}
	c := NewClientWithRPC("docs", rpc)

	prompts, err := c.ListPrompts(context.Background())
	if err != nil {
		t.Fatalf("ListPrompts failed: %v", err)
	}
	if len(prompts) != 1 || prompts[0] != "summarize" {
		t.Errorf("unexpected prompts: %v", prompts)
	}

	resources, err := c.ListResources(context.Background())
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(resources) != 1 || resources[0] != "file:///readme" {
		t.Errorf("unexpected resources: %v", resources)
	}
}

func TestNotSupportedDetection(t *testing.T) {
	rpc := &fakeRPC{listPromptsErr: errors.New("Method not found")}
	c := NewClientWithRPC("tools-only", rpc)

	_, err := c.ListPrompts(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotSupported(err) {
		t.Errorf("error should be classified as not-supported: %v", err)
	}

	rpc2 := &fakeRPC{listResourcesErr: errors.New("rpc error -32601")}
	c2 := NewClientWithRPC("tools-only", rpc2)
	_, err = c2.ListResources(context.Background())
	if !IsNotSupported(err) {
		t.Errorf("-32601 should be classified as not-supported: %v", err)
	}
}

func TestNotSupportedIsNotRetried(t *testing.T) {
	rpc := &fakeRPC{callToolErr: errors.New("Method not found")}
	c := NewClientWithRPC("s", rpc, WithRetry(3, time.Millisecond))

	_, err := c.CallTool(context.Background(), "x", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if rpc.callToolCount != 1 {
		t.Errorf("not-supported responses must not be retried, got %d attempts", rpc.callToolCount)
	}
}

func TestCallToolRetries(t *testing.T) {
	rpc := &fakeRPC{callToolErr: errors.New("transient")}
	c := NewClientWithRPC("s", rpc, WithRetry(2, time.Millisecond))

	_, err := c.CallTool(context.Background(), "search", map[string]any{"q": "go"})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if rpc.callToolCount != 3 {
		t.Errorf("expected 3 attempts, got %d", rpc.callToolCount)
	}
	if rpc.lastToolName != "search" {
		t.Errorf("tool name not forwarded, got %q", rpc.lastToolName)
	}
}

func TestCallContextCanceledNotRetried(t *testing.T) {
	rpc := &fakeRPC{callToolErr: context.Canceled}
	c := NewClientWithRPC("s", rpc, WithRetry(5, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.CallTool(ctx, "x", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if rpc.callToolCount > 1 {
		t.Errorf("canceled calls must not be retried, got %d attempts", rpc.callToolCount)
	}
}

func TestDisconnect(t *testing.T) {
	rpc := &fakeRPC{}
	c := NewClientWithRPC("s", rpc)

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if !rpc.closed {
		t.Error("underlying transport not closed")
	}

	// second disconnect is a no-op
	if err := c.Disconnect(); err != nil {
		t.Errorf("second Disconnect should be nil, got %v", err)
	}

	if _, err := c.GetTools(context.Background()); err == nil {
		t.Error("operations after disconnect should fail")
	}
}

func TestParseTransport(t *testing.T) {
	tests := []struct {
		in      string
		want    TransportKind
		wantErr bool
	}{
		{"stdio", TransportStdio, false},
		{"SSE", TransportSSE, false},
		{"http", TransportHTTP, false},
		{"streamable-http", TransportHTTP, false},
		{"gopher", "", true},
	}
	for _, tc := range tests {
		got, err := ParseTransport(tc.in)
		if tc.wantErr != (err != nil) {
			t.Errorf("ParseTransport(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTransport(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	if mode, err := ParseMode(""); err != nil || mode != ModeBestEffort {
		t.Errorf("empty mode should default to best-effort, got %q/%v", mode, err)
	}
	if mode, err := ParseMode("required"); err != nil || mode != ModeRequired {
		t.Errorf("ParseMode(required) = %q/%v", mode, err)
	}
	if _, err := ParseMode("usually"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
