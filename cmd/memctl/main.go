// =============================================================================
// OpenClaw Memory CLI
// =============================================================================
// Maintenance entry point for the memory store: statistics, recall
// debugging, context assembly, index repair and schema migrations.
//
// Usage:
//
//	memctl stats                              # store statistics
//	memctl recall -mode hybrid -query "..."   # run one recall mode
//	memctl context -query "..."               # render the context block
//	memctl check-index                        # FTS consistency check
//	memctl rebuild-index                      # FTS index rebuild
//	memctl serve                              # diagnostics HTTP server
//	memctl migrate up                         # apply schema migrations
//	memctl version                            # show version information
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	openclaw "github.com/andysheldon-creator/OpenClaw-Optimised-sub003"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/config"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/server"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/telemetry"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/recall"
)

// =============================================================================
// Version Information (injected at build time)
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// Main
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "stats":
		runStats(os.Args[2:])
	case "recall":
		runRecall(os.Args[2:])
	case "context":
		runContext(os.Args[2:])
	case "check-index":
		runCheckIndex(os.Args[2:])
	case "rebuild-index":
		runRebuildIndex(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// Shared Setup
// =============================================================================

// app bundles everything a one-shot command needs.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	providers *telemetry.Providers
	client    *openclaw.Client
}

// openApp loads config, builds the logger, initializes telemetry and
// opens the store.
func openApp(configPath string) (*app, error) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := initLogger(cfg.Log)

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	client, err := openclaw.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, providers: providers, client: client}, nil
}

// close flushes telemetry and releases the store.
func (a *app) close() {
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.providers != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.providers.Shutdown(ctx)
		cancel()
	}
	_ = a.logger.Sync()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(fmt.Errorf("encode output: %w", err))
	}
	fmt.Println(string(data))
}

// =============================================================================
// stats Command
// =============================================================================

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	a, err := openApp(*configPath)
	if err != nil {
		fatal(err)
	}
	defer a.close()

	report, err := a.client.Recall().RecallStats(context.Background())
	if err != nil {
		fatal(err)
	}

	printJSON(report)
}

// =============================================================================
// recall Command
// =============================================================================

func runRecall(args []string) {
	fs := flag.NewFlagSet("recall", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	mode := fs.String("mode", "hybrid", "Recall mode: lexical, entity, temporal, day, opinion, hybrid")
	query := fs.String("query", "", "Query text, entity slug, day (YYYY-MM-DD) or start..end epoch-ms range")
	limit := fs.Int("limit", 0, "Maximum items (0 uses the engine default)")
	fs.Parse(args)

	a, err := openApp(*configPath)
	if err != nil {
		fatal(err)
	}
	defer a.close()

	result, err := executeRecall(context.Background(), a.client.Recall(), recall.Mode(*mode), *query, *limit)
	if err != nil {
		fatal(err)
	}

	printJSON(result)
}

// executeRecall dispatches one query to the engine method matching mode.
func executeRecall(ctx context.Context, eng *recall.Engine, mode recall.Mode, query string, limit int) (*recall.Result, error) {
	switch mode {
	case recall.ModeLexical:
		return eng.Lexical(ctx, query, limit)
	case recall.ModeEntity:
		return eng.Entity(ctx, query, limit)
	case recall.ModeTemporal:
		start, end, err := parseTimeRange(query)
		if err != nil {
			return nil, err
		}
		return eng.Temporal(ctx, start, end, limit)
	case recall.ModeDay:
		return eng.Day(ctx, query, limit)
	case recall.ModeOpinion:
		return eng.Opinions(ctx, query)
	case recall.ModeHybrid:
		return eng.Hybrid(ctx, query, limit)
	default:
		return nil, fmt.Errorf("unknown recall mode: %s", mode)
	}
}

// parseTimeRange splits a start..end range in epoch milliseconds.
func parseTimeRange(query string) (int64, int64, error) {
	parts := strings.SplitN(query, "..", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("temporal query must be start..end in epoch milliseconds, got %q", query)
	}
	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start %q", parts[0])
	}
	end, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range end %q", parts[1])
	}
	return start, end, nil
}

// =============================================================================
// context Command
// =============================================================================

func runContext(args []string) {
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	query := fs.String("query", "", "Query text")
	limit := fs.Int("limit", 0, "Maximum items (0 uses the engine default)")
	fs.Parse(args)

	a, err := openApp(*configPath)
	if err != nil {
		fatal(err)
	}
	defer a.close()

	text, err := a.client.Recall().BuildMemoryContext(context.Background(), *query, *limit)
	if err != nil {
		fatal(err)
	}

	if text == "" {
		fmt.Fprintln(os.Stderr, "No relevant memories.")
		return
	}
	fmt.Println(text)
}

// =============================================================================
// Index Commands
// =============================================================================

func runCheckIndex(args []string) {
	fs := flag.NewFlagSet("check-index", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	a, err := openApp(*configPath)
	if err != nil {
		fatal(err)
	}
	defer a.close()

	status, err := a.client.Store().CheckIndex(context.Background())
	if err != nil {
		fatal(err)
	}

	printJSON(status)
	if !status.InSync {
		a.close()
		os.Exit(1)
	}
}

func runRebuildIndex(args []string) {
	fs := flag.NewFlagSet("rebuild-index", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	a, err := openApp(*configPath)
	if err != nil {
		fatal(err)
	}
	defer a.close()

	ctx := context.Background()
	if err := a.client.Store().RebuildIndex(ctx); err != nil {
		fatal(err)
	}

	status, err := a.client.Store().CheckIndex(ctx)
	if err != nil {
		fatal(err)
	}
	printJSON(status)
}

// =============================================================================
// serve Command
// =============================================================================

// runServe starts the diagnostics HTTP server and blocks until a
// shutdown signal arrives.
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	addr := fs.String("addr", "", "Listen address (overrides config)")
	fs.Parse(args)

	a, err := openApp(*configPath)
	if err != nil {
		fatal(err)
	}
	defer a.close()

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = a.cfg.Server.Addr
	srvCfg.ReadTimeout = a.cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = a.cfg.Server.WriteTimeout
	srvCfg.IdleTimeout = a.cfg.Server.IdleTimeout
	srvCfg.ShutdownTimeout = a.cfg.Server.ShutdownTimeout
	if *addr != "" {
		srvCfg.Addr = *addr
	}

	handler := server.NewHandler(
		a.client.Store(),
		func(ctx context.Context) (any, error) {
			return a.client.Recall().RecallStats(ctx)
		},
		server.VersionInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		a.logger,
	)

	mgr := server.NewManager(handler, srvCfg, a.logger)
	if a.cfg.Server.TLSCert != "" {
		err = mgr.StartTLS(a.cfg.Server.TLSCert, a.cfg.Server.TLSKey)
	} else {
		err = mgr.Start()
	}
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Diagnostics server listening on %s\n", mgr.Addr())
	mgr.WaitForShutdown()
}

// =============================================================================
// Version and Help
// =============================================================================

func printVersion() {
	fmt.Printf("memctl %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`memctl - OpenClaw memory store maintenance

Usage:
  memctl <command> [options]

Commands:
  stats          Show store statistics and known entities
  recall         Run one recall mode and print the result
  context        Render the memory context block for a query
  check-index    Compare the fact table against the full-text index
  rebuild-index  Rebuild the full-text index from the fact table
  serve          Run the diagnostics HTTP server
  migrate        Schema migration commands
  version        Show version information
  help           Show this help message

Common options:
  -config <path>   Path to configuration file (YAML)

Options for 'recall':
  -mode <mode>     lexical, entity, temporal, day, opinion, hybrid (default: hybrid)
  -query <text>    Query text, entity slug, day (YYYY-MM-DD) or start..end epoch-ms range
  -limit <n>       Maximum items

Options for 'context':
  -query <text>    Query text
  -limit <n>       Maximum items

Options for 'serve':
  -addr <addr>     Listen address (overrides config)

Migration subcommands:
  migrate up        Apply all pending migrations
  migrate down      Rollback the last migration
  migrate status    Show migration status
  migrate version   Show current migration version
  migrate goto <v>  Migrate to a specific version
  migrate force <v> Force set migration version
  migrate reset     Rollback all migrations

Examples:
  memctl stats
  memctl recall -mode hybrid -query "what does @andy prefer"
  memctl recall -mode temporal -query "1767225600000..1767311999999"
  memctl context -query "deployment pipeline"
  memctl check-index
  memctl serve -addr 127.0.0.1:9090
  memctl migrate status -config /etc/openclaw/config.yaml`)
}

// =============================================================================
// Logger Setup
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
