package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/maestro/pkg/config"
	"github.com/jllopis/maestro/pkg/telemetry"
)

type globalFlags struct {
	ConfigPath string
	Timeout    time.Duration
	JSON       bool
	YAML       bool
	Telemetry  bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.Load(configPath(global))
	if err != nil {
		fatal(err)
	}
	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	if global.Telemetry || cfg.Telemetry.Exporter == "otlp" {
		shutdown, err := telemetry.InitWithConfig("maestro", "dev", telemetry.Config{
			Exporter:     cfg.Telemetry.Exporter,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		})
		if err != nil {
			fatal(err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(flushCtx)
		}()
	}

	cmd := args[0]
	switch cmd {
	case "servers":
		runServers(ctx, global, cfg, args[1:])
	case "tools":
		runTools(ctx, global, cfg, args[1:])
	case "prompts":
		runPrompts(ctx, global, cfg, args[1:])
	case "resources":
		runResources(ctx, global, cfg, args[1:])
	case "call":
		runCall(ctx, global, cfg, args[1:])
	case "prompt":
		runPrompt(ctx, global, cfg, args[1:])
	case "resource":
		runResource(ctx, global, cfg, args[1:])
	case "audit":
		runAudit(ctx, global, cfg, args[1:])
	case "help":
		printUsage()
	case "version":
		printVersion()
	default:
		fatal(fmt.Errorf("unknown command %q", cmd))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		ConfigPath: getenv("MAESTRO_CONFIG", ""),
		Timeout:    30 * time.Second,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--yaml":
			flags.YAML = true
		case arg == "--telemetry":
			flags.Telemetry = true
		case arg == "--config":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --config")
			}
			flags.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			flags.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--timeout":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --timeout")
			}
			value, err := time.ParseDuration(args[i+1])
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
			i++
		case strings.HasPrefix(arg, "--timeout="):
			value, err := time.ParseDuration(strings.TrimPrefix(arg, "--timeout="))
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func configPath(flags globalFlags) string {
	if flags.ConfigPath != "" {
		return flags.ConfigPath
	}
	for _, candidate := range []string{"maestro.yaml", "maestro.yml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func printStructured(flags globalFlags, value any) bool {
	switch {
	case flags.JSON:
		printJSON(value)
		return true
	case flags.YAML:
		printYAML(value)
		return true
	}
	return false
}

func printJSON(value any) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(payload))
}

func printYAML(value any) {
	payload, err := yaml.Marshal(value)
	if err != nil {
		fatal(err)
	}
	fmt.Print(string(payload))
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func truncate(value string, limit int) string {
	value = normalizeCell(value)
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}

func printVersion() {
	fmt.Println("dev")
}

func printUsage() {
	fmt.Print(`Maestro CLI

Usage:
  maestro [global flags] <command> [args]

Global flags:
  --config <path>      Path to maestro.yaml
  --timeout <dur>      Operation timeout (default 30s)
  --json               JSON output
  --yaml               YAML output
  --telemetry          Force OpenTelemetry SDK initialization

Commands:
  servers list
  tools list [--server <name>]
  prompts list
  resources list
  call <tool> [--arg k=v]... [--args <json>] [--session <id>]
  prompt get <name> [--arg k=v]...
  resource read <uri>
  audit list [--server <name>] [--status <ok|error|denied>] [--limit N]
  version

`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func ensureNoArgs(args []string) {
	if len(args) > 0 {
		fatal(fmt.Errorf("unexpected args: %v", args))
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
