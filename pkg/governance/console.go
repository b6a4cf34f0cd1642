// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ConsoleProvider prompts for confirmation on stdin/stdout.
type ConsoleProvider struct {
	in           *bufio.Reader
	out          io.Writer
	prompt       string
	timeout      time.Duration
	defaultAllow bool
}

// ConsoleOption configures the console provider.
type ConsoleOption func(*ConsoleProvider)

// NewConsoleProvider creates a console-based confirmation provider.
func NewConsoleProvider(opts ...ConsoleOption) *ConsoleProvider {
	p := &ConsoleProvider{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		prompt: "Approve? [y/N]: ",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithConfirmInput sets the input reader.
func WithConfirmInput(r io.Reader) ConsoleOption {
	return func(p *ConsoleProvider) {
		if r != nil {
			p.in = bufio.NewReader(r)
		}
	}
}

// WithConfirmOutput sets the output writer.
func WithConfirmOutput(w io.Writer) ConsoleOption {
	return func(p *ConsoleProvider) {
		if w != nil {
			p.out = w
		}
	}
}

// WithConfirmPrompt sets the prompt string.
func WithConfirmPrompt(prompt string) ConsoleOption {
	return func(p *ConsoleProvider) {
		if strings.TrimSpace(prompt) != "" {
			p.prompt = prompt
		}
	}
}

// WithConfirmTimeout bounds the wait for operator input. Zero waits
// indefinitely.
func WithConfirmTimeout(timeout time.Duration) ConsoleOption {
	return func(p *ConsoleProvider) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithConfirmDefault sets the decision applied on timeout or cancellation.
func WithConfirmDefault(allow bool) ConsoleOption {
	return func(p *ConsoleProvider) {
		p.defaultAllow = allow
	}
}

// RequestConfirmation prompts the operator and returns the decision. The
// wait is unbounded unless a timeout was configured; ctx cancellation
// resolves to the configured default.
func (p *ConsoleProvider) RequestConfirmation(ctx context.Context, call ToolCall) (bool, error) {
	if p == nil || p.in == nil {
		return p != nil && p.defaultAllow, nil
	}

	_, _ = fmt.Fprintf(p.out, "\nConfirmation required for tool %q on server %q\n", call.Name, call.ServerName)
	if len(call.Arguments) > 0 {
		if encoded, err := json.Marshal(call.Arguments); err == nil {
			_, _ = fmt.Fprintf(p.out, "Arguments: %s\n", encoded)
		}
	}
	_, _ = fmt.Fprint(p.out, p.prompt)

	responseCh := make(chan string, 1)
	go func() {
		line, _ := p.in.ReadString('\n')
		responseCh <- line
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return p.defaultAllow, nil
	case line := <-responseCh:
		answer := strings.ToLower(strings.TrimSpace(line))
		return strings.HasPrefix(answer, "y"), nil
	}
}
