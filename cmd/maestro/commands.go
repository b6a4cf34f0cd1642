package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/maestro/pkg/audit"
	"github.com/jllopis/maestro/pkg/config"
)

type serverStatus struct {
	Name      string `json:"name"`
	Transport string `json:"transport"`
	Mode      string `json:"mode"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

type toolListing struct {
	ID          string `json:"id"`
	Server      string `json:"server"`
	Tool        string `json:"tool"`
	Qualified   bool   `json:"qualified"`
	Description string `json:"description,omitempty"`
}

func runServers(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "list" {
		fatal(errors.New("usage: maestro servers list"))
	}
	ensureNoArgs(args[1:])

	m, cleanup, err := bootManager(ctx, global, cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	connected := map[string]bool{}
	for _, name := range m.ListClients() {
		connected[name] = true
	}
	connErrs := m.ClientErrors()

	names := make([]string, 0, len(cfg.MCP.Servers))
	for name := range cfg.MCP.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make([]serverStatus, 0, len(names))
	for _, name := range names {
		entry := cfg.MCP.Servers[name]
		mode := entry.Mode
		if mode == "" {
			mode = "best-effort"
		}
		statuses = append(statuses, serverStatus{
			Name:      name,
			Transport: entry.Transport,
			Mode:      mode,
			Connected: connected[name],
			Error:     connErrs[name],
		})
	}

	if printStructured(global, statuses) {
		return
	}
	writer := newTabWriter()
	writeRow(writer, "NAME", "TRANSPORT", "MODE", "CONNECTED", "ERROR")
	for _, status := range statuses {
		writeRow(writer, status.Name, status.Transport, status.Mode,
			fmt.Sprintf("%t", status.Connected), status.Error)
	}
	_ = writer.Flush()
}

func runTools(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "list" {
		fatal(errors.New("usage: maestro tools list [--server <name>]"))
	}
	cmd := flag.NewFlagSet("tools list", flag.ContinueOnError)
	server := cmd.String("server", "", "Only show tools from this server")
	if err := cmd.Parse(args[1:]); err != nil {
		fatal(err)
	}

	m, cleanup, err := bootManager(ctx, global, cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	tools := m.ListAllTools()
	origins := m.ToolOrigins()

	listings := make([]toolListing, 0, len(tools))
	for id, tool := range tools {
		origin := origins[id]
		if *server != "" && origin.ServerName != *server {
			continue
		}
		listings = append(listings, toolListing{
			ID:          id,
			Server:      origin.ServerName,
			Tool:        origin.ToolName,
			Qualified:   origin.Qualified,
			Description: tool.Description,
		})
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })

	if printStructured(global, listings) {
		return
	}
	writer := newTabWriter()
	writeRow(writer, "ID", "SERVER", "TOOL", "DESCRIPTION")
	for _, listing := range listings {
		writeRow(writer, listing.ID, listing.Server, listing.Tool, truncate(listing.Description, 80))
	}
	_ = writer.Flush()
}

func runPrompts(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "list" {
		fatal(errors.New("usage: maestro prompts list"))
	}
	ensureNoArgs(args[1:])

	m, cleanup, err := bootManager(ctx, global, cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	prompts := m.ListAllPrompts()
	if printStructured(global, prompts) {
		return
	}
	for _, name := range prompts {
		fmt.Println(name)
	}
}

func runResources(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "list" {
		fatal(errors.New("usage: maestro resources list"))
	}
	ensureNoArgs(args[1:])

	m, cleanup, err := bootManager(ctx, global, cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	resources := m.ListAllResources()
	if printStructured(global, resources) {
		return
	}
	for _, uri := range resources {
		fmt.Println(uri)
	}
}

func runCall(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	cmd := flag.NewFlagSet("call", flag.ContinueOnError)
	var kvArgs multiFlag
	cmd.Var(&kvArgs, "arg", "Tool argument key=value (repeatable)")
	rawArgs := cmd.String("args", "", "Tool arguments as a JSON object")
	session := cmd.String("session", "", "Session identifier for auditing")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	if cmd.NArg() != 1 {
		fatal(errors.New("usage: maestro call <tool> [--arg k=v]... [--args <json>]"))
	}
	toolID := cmd.Arg(0)

	toolArgs, err := buildToolArgs(*rawArgs, kvArgs)
	if err != nil {
		fatal(err)
	}

	m, cleanup, err := bootManager(ctx, global, cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	callCtx, cancel := context.WithTimeout(ctx, global.Timeout)
	defer cancel()
	result, err := m.ExecuteTool(callCtx, toolID, toolArgs, *session)
	if err != nil {
		fatal(err)
	}

	if printStructured(global, result) {
		return
	}
	if result.IsError {
		fatal(fmt.Errorf("tool returned error: %s", extractText(result.Content)))
	}
	if result.StructuredContent != nil {
		printJSON(result.StructuredContent)
		return
	}
	if text := extractText(result.Content); text != "" {
		fmt.Println(text)
		return
	}
	printJSON(result)
}

func runPrompt(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "get" {
		fatal(errors.New("usage: maestro prompt get <name> [--arg k=v]..."))
	}
	cmd := flag.NewFlagSet("prompt get", flag.ContinueOnError)
	var kvArgs multiFlag
	cmd.Var(&kvArgs, "arg", "Prompt argument key=value (repeatable)")
	if err := cmd.Parse(args[1:]); err != nil {
		fatal(err)
	}
	if cmd.NArg() != 1 {
		fatal(errors.New("usage: maestro prompt get <name> [--arg k=v]..."))
	}
	name := cmd.Arg(0)

	promptArgs := map[string]string{}
	for _, kv := range kvArgs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			fatal(fmt.Errorf("invalid --arg %q, want key=value", kv))
		}
		promptArgs[key] = value
	}

	m, cleanup, err := bootManager(ctx, global, cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	callCtx, cancel := context.WithTimeout(ctx, global.Timeout)
	defer cancel()
	result, err := m.GetPrompt(callCtx, name, promptArgs)
	if err != nil {
		fatal(err)
	}
	if printStructured(global, result) {
		return
	}
	if result.Description != "" {
		fmt.Println(result.Description)
	}
	for _, message := range result.Messages {
		fmt.Printf("[%s] %s\n", message.Role, extractText([]mcp.Content{message.Content}))
	}
}

func runResource(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "read" {
		fatal(errors.New("usage: maestro resource read <uri>"))
	}
	if len(args) != 2 {
		fatal(errors.New("usage: maestro resource read <uri>"))
	}
	uri := args[1]

	m, cleanup, err := bootManager(ctx, global, cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	callCtx, cancel := context.WithTimeout(ctx, global.Timeout)
	defer cancel()
	result, err := m.ReadResource(callCtx, uri)
	if err != nil {
		fatal(err)
	}
	if printStructured(global, result) {
		return
	}
	for _, contents := range result.Contents {
		switch c := contents.(type) {
		case mcp.TextResourceContents:
			fmt.Println(c.Text)
		case *mcp.TextResourceContents:
			fmt.Println(c.Text)
		default:
			printJSON(contents)
		}
	}
}

func runAudit(ctx context.Context, global globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "list" {
		fatal(errors.New("usage: maestro audit list [--server <name>] [--status <s>] [--limit N]"))
	}
	cmd := flag.NewFlagSet("audit list", flag.ContinueOnError)
	server := cmd.String("server", "", "Filter by server name")
	status := cmd.String("status", "", "Filter by status (ok, error, denied)")
	limit := cmd.Int("limit", 0, "Maximum records to return")
	if err := cmd.Parse(args[1:]); err != nil {
		fatal(err)
	}

	if !cfg.Audit.Enabled {
		fatal(errors.New("auditing is disabled; set audit.enabled=true"))
	}
	store, err := audit.OpenSQLite(cfg.Audit.Path)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	records, err := store.List(ctx, audit.Filter{
		ServerName: *server,
		Status:     *status,
		Limit:      *limit,
	})
	if err != nil {
		fatal(err)
	}

	if printStructured(global, records) {
		return
	}
	writer := newTabWriter()
	writeRow(writer, "ID", "SERVER", "TOOL", "STATUS", "DURATION_MS", "STARTED", "ERROR")
	for _, rec := range records {
		writeRow(writer,
			rec.ID,
			rec.ServerName,
			rec.ToolName,
			rec.Status,
			fmt.Sprintf("%.1f", rec.DurationMs),
			formatTime(rec.StartedAt),
			truncate(rec.Error, 60))
	}
	_ = writer.Flush()
}

func buildToolArgs(rawJSON string, kvArgs []string) (map[string]any, error) {
	toolArgs := map[string]any{}
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &toolArgs); err != nil {
			return nil, fmt.Errorf("invalid --args: %w", err)
		}
	}
	for _, kv := range kvArgs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --arg %q, want key=value", kv)
		}
		toolArgs[key] = value
	}
	return toolArgs, nil
}

func extractText(items []mcp.Content) string {
	if len(items) == 0 {
		return ""
	}
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}
