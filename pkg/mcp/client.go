package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	maestroerrors "github.com/jllopis/maestro/pkg/errors"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRetries = 2
	defaultBackoff = 200 * time.Millisecond
)

// rpcClient is the slice of the mcp-go client surface this wrapper uses.
// *client.Client satisfies it; tests install fakes.
type rpcClient interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	ListResources(ctx context.Context, req mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
	ReadResource(ctx context.Context, req mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)
	Close() error
}

// ClientOption customizes the client wrapper behavior.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry configures retry count and backoff.
func WithRetry(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = retries
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// Client connects to one capability server over a configured transport and
// exposes discovery and invocation with per-request timeout and retry.
type Client struct {
	name       string
	cfg        ServerConfig
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration

	mu  sync.Mutex
	rpc rpcClient
}

// NewClient creates a client for the given server configuration. The
// transport is not dialed until Connect.
func NewClient(name string, cfg ServerConfig, opts ...ClientOption) (*Client, error) {
	if name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		name:       name,
		cfg:        cfg,
		timeout:    defaultTimeout,
		maxRetries: defaultRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range cfg.ClientOptions {
		opt(c)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientWithRPC wraps an already-connected rpc client. Used by tests and
// by callers that manage the transport themselves.
func NewClientWithRPC(name string, rpc rpcClient, opts ...ClientOption) *Client {
	c := &Client{
		name:       name,
		rpc:        rpc,
		timeout:    defaultTimeout,
		maxRetries: defaultRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the server name this client was created for.
func (c *Client) Name() string {
	return c.name
}

// Connect dials the configured transport and performs the MCP handshake.
// Calling Connect on an already-connected client is an error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc != nil {
		return fmt.Errorf("server %s: already connected", c.name)
	}

	raw, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("server %s: %w", c.name, err)
	}

	initCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "maestro",
		Version: "0.1.0",
	}
	if _, err := raw.Initialize(initCtx, initRequest); err != nil {
		_ = raw.Close()
		return fmt.Errorf("server %s: initialize: %w", c.name, err)
	}

	c.rpc = raw
	return nil
}

func (c *Client) dial(ctx context.Context) (*client.Client, error) {
	switch c.cfg.Transport {
	case TransportStdio:
		return client.NewStdioMCPClient(c.cfg.Command, envStrings(c.cfg.Env), c.cfg.Args...)
	case TransportSSE:
		sseClient, err := client.NewSSEMCPClient(c.cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := sseClient.Start(ctx); err != nil {
			return nil, err
		}
		return sseClient, nil
	case TransportHTTP:
		httpClient, err := client.NewStreamableHttpClient(c.cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := httpClient.Start(ctx); err != nil {
			return nil, err
		}
		return httpClient, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", string(c.cfg.Transport))
	}
}

// Disconnect closes the underlying transport. Safe to call more than once.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc == nil {
		return nil
	}
	err := c.rpc.Close()
	c.rpc = nil
	return err
}

func (c *Client) connection() (rpcClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc == nil {
		return nil, fmt.Errorf("server %s: not connected", c.name)
	}
	return c.rpc, nil
}

// GetTools retrieves the server's tools keyed by tool name.
func (c *Client) GetTools(ctx context.Context) (map[string]mcp.Tool, error) {
	rpc, err := c.connection()
	if err != nil {
		return nil, err
	}
	result, err := retry(ctx, c, func(reqCtx context.Context) (*mcp.ListToolsResult, error) {
		return rpc.ListTools(reqCtx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, err
	}
	tools := make(map[string]mcp.Tool, len(result.Tools))
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}
	return tools, nil
}

// ListPrompts retrieves the identifiers of the server's prompts.
func (c *Client) ListPrompts(ctx context.Context) ([]string, error) {
	rpc, err := c.connection()
	if err != nil {
		return nil, err
	}
	result, err := retry(ctx, c, func(reqCtx context.Context) (*mcp.ListPromptsResult, error) {
		return rpc.ListPrompts(reqCtx, mcp.ListPromptsRequest{})
	})
	if err != nil {
		return nil, wrapNotSupported(err)
	}
	names := make([]string, 0, len(result.Prompts))
	for _, prompt := range result.Prompts {
		names = append(names, prompt.Name)
	}
	return names, nil
}

// ListResources retrieves the URIs of the server's resources.
func (c *Client) ListResources(ctx context.Context) ([]string, error) {
	rpc, err := c.connection()
	if err != nil {
		return nil, err
	}
	result, err := retry(ctx, c, func(reqCtx context.Context) (*mcp.ListResourcesResult, error) {
		return rpc.ListResources(reqCtx, mcp.ListResourcesRequest{})
	})
	if err != nil {
		return nil, wrapNotSupported(err)
	}
	uris := make([]string, 0, len(result.Resources))
	for _, resource := range result.Resources {
		uris = append(uris, resource.URI)
	}
	return uris, nil
}

// CallTool executes a tool on the server.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	rpc, err := c.connection()
	if err != nil {
		return nil, err
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return retry(ctx, c, func(reqCtx context.Context) (*mcp.CallToolResult, error) {
		return rpc.CallTool(reqCtx, req)
	})
}

// GetPrompt retrieves a prompt template by name.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	rpc, err := c.connection()
	if err != nil {
		return nil, err
	}
	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return retry(ctx, c, func(reqCtx context.Context) (*mcp.GetPromptResult, error) {
		return rpc.GetPrompt(reqCtx, req)
	})
}

// ReadResource reads a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	rpc, err := c.connection()
	if err != nil {
		return nil, err
	}
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return retry(ctx, c, func(reqCtx context.Context) (*mcp.ReadResourceResult, error) {
		return rpc.ReadResource(reqCtx, req)
	})
}

// retry runs op with the client's timeout, retry count, and exponential
// backoff. Context cancellation and not-supported responses are never
// retried.
func retry[T any](ctx context.Context, c *Client, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := c.maxRetries + 1
	for i := 0; i < attempts; i++ {
		reqCtx, cancel := c.withTimeout(ctx)
		result, err := op(reqCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if isNotSupportedMessage(err) {
			return zero, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		if err := c.sleepBackoff(ctx, i); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	wait := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsNotSupported reports whether err indicates the server does not implement
// the requested capability. Servers without prompt or resource support
// answer list requests with a JSON-RPC method-not-found error.
func IsNotSupported(err error) bool {
	return maestroerrors.HasCode(err, maestroerrors.CodeNotSupported)
}

func isNotSupportedMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "method not found") ||
		strings.Contains(msg, "not supported") ||
		strings.Contains(msg, "-32601")
}

func wrapNotSupported(err error) error {
	if err == nil {
		return nil
	}
	if isNotSupportedMessage(err) {
		return maestroerrors.New(maestroerrors.CodeNotSupported, "capability not supported", err)
	}
	return err
}
