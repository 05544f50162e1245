package cmd

import (
	"context"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/palisade-http/palisade/internal/adapter/inbound/http"
	"github.com/palisade-http/palisade/internal/adapter/outbound/filelog"
	"github.com/palisade-http/palisade/internal/adapter/outbound/sqlite"
	"github.com/palisade-http/palisade/internal/adapter/outbound/stdoutlog"
	"github.com/palisade-http/palisade/internal/config"
	"github.com/palisade-http/palisade/internal/domain/access"
	"github.com/palisade-http/palisade/internal/observability"
	"github.com/palisade-http/palisade/internal/service"
	"github.com/palisade-http/palisade/pkg/respond"
)

var devMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the Palisade HTTP server.

Every response is finalized before it reaches the wire: Content-Length is
always computed (0 for bodyless responses), a correlation id is echoed on
X-Request-Id, and the browser protection headers are applied. HEAD requests
get the headers the matching GET would carry, with the body stripped.

Examples:
  # Start with config file settings
  palisade serve

  # Start in dev mode (debug logging, relaxed metrics auth)
  palisade serve --dev

  # Override the listen address
  PALISADE_SERVER_LISTEN_ADDR=:9090 palisade serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "enable dev mode (debug logging, relaxed metrics auth)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Create signal context for graceful shutdown.
	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop() // Restore default: next Ctrl+C = immediate exit.
	}()

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug // DevMode always forces debug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Write PID file so "palisade stop" can find us.
	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("palisade stopped")
	return nil
}

// run wires the access store, access service, tracing, and transport together
// and blocks until shutdown.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.DevMode {
		logger.Warn("dev mode enabled; do not use in production")
	}

	store, err := createAccessStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create access store: %w", err)
	}
	defer store.Close()

	flushInterval, err := time.ParseDuration(cfg.AccessLog.FlushInterval)
	if err != nil {
		return fmt.Errorf("invalid access_log flush_interval: %w", err)
	}

	accessService := service.NewAccessService(store, logger,
		service.WithChannelSize(cfg.AccessLog.BufferSize),
		service.WithBatchSize(cfg.AccessLog.BatchSize),
		service.WithFlushInterval(flushInterval),
	)
	accessService.Start(ctx)
	defer accessService.Stop()

	tracerProvider, shutdownTracing, err := observability.NewTracerProvider(observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     Version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	shutdownTimeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		return fmt.Errorf("invalid server shutdown_timeout: %w", err)
	}

	opts := []http.Option{
		http.WithAddr(cfg.Server.ListenAddr),
		http.WithLogger(logger),
		http.WithAccessService(accessService),
		http.WithTracerProvider(tracerProvider),
		http.WithShutdownTimeout(shutdownTimeout),
		http.WithHealthChecker(http.NewHealthChecker(accessService, Version)),
	}
	if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
		opts = append(opts, http.WithTLS(cfg.Server.CertFile, cfg.Server.KeyFile))
	}
	if cfg.Metrics.Enabled {
		keys := cfg.Metrics.Keys
		if !cfg.Metrics.RequireAuth {
			keys = nil
		}
		opts = append(opts, http.WithMetricsEndpoint(keys))
	}

	transport := http.NewTransport(opts...)
	registerRoutes(transport)

	printBanner(Version, cfg.Server.ListenAddr, cfg.DevMode, cfg.AccessLog.Output, cfg.Metrics.Enabled)

	logger.Info("palisade ready",
		"addr", cfg.Server.ListenAddr,
		"access_log", cfg.AccessLog.Output,
		"metrics", cfg.Metrics.Enabled,
		"tracing", cfg.Tracing.Enabled,
	)

	return transport.Start(ctx)
}

// registerRoutes installs the built-in handlers. Everything goes through the
// finalization core, so each route automatically carries the full header
// baseline and correct Content-Length.
func registerRoutes(t *http.Transport) {
	t.Handle("/{$}", func(ctx context.Context, r *stdhttp.Request) *respond.Draft {
		return respond.Build(ctx, stdhttp.StatusOK, &respond.Body{
			Content:     []byte("Hello, world!"),
			ContentType: respond.ContentTypeTextPlain,
		})
	})
}

// createAccessStore builds the access-record store selected by config:
// "stdout", "file://<dir>", or "sqlite://<path>".
func createAccessStore(cfg *config.Config, logger *slog.Logger) (access.Store, error) {
	output := cfg.AccessLog.Output
	switch {
	case output == "stdout":
		return stdoutlog.NewStore(), nil
	case strings.HasPrefix(output, "file://"):
		dir := strings.TrimPrefix(output, "file://")
		return filelog.NewStore(filelog.StoreConfig{
			Dir:           dir,
			RetentionDays: cfg.AccessLog.RetentionDays,
		}, logger)
	case strings.HasPrefix(output, "sqlite://"):
		path := strings.TrimPrefix(output, "sqlite://")
		return sqlite.NewAccessStore(sqlite.AccessStoreConfig{
			Path:          path,
			RetentionDays: cfg.AccessLog.RetentionDays,
		}, logger)
	default:
		return nil, fmt.Errorf("invalid access_log output: %s (must be 'stdout', 'file://dir', or 'sqlite://path')", output)
	}
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printBanner prints a formatted startup banner to stderr with version,
// address, mode, and the configured access-log sink.
func printBanner(version, addr string, devMode bool, accessOutput string, metricsEnabled bool) {
	const (
		reset  = "\033[0m"
		bold   = "\033[1m"
		cyan   = "\033[36m"
		green  = "\033[32m"
		yellow = "\033[33m"
		dim    = "\033[2m"
	)

	baseURL := fmt.Sprintf("http://localhost%s", addr)
	if !strings.HasPrefix(addr, ":") {
		baseURL = fmt.Sprintf("http://%s", addr)
	}

	modeStr := green + "production" + reset
	if devMode {
		modeStr = yellow + "development" + reset
	}

	metricsStr := "disabled"
	if metricsEnabled {
		metricsStr = baseURL + "/metrics"
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  %s%s Palisade %s%s\n", bold, cyan, version, reset)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Server:", baseURL)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Health:", baseURL+"/health")
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Metrics:", metricsStr)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Mode:", modeStr)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Access log:", accessOutput)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "\n")
}

// pidFilePath returns the standard location for the Palisade PID file.
func pidFilePath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".palisade", "server.pid")
	}
	return filepath.Join(os.TempDir(), "palisade-server.pid")
}

// writePIDFile writes the current process PID to the given path, creating
// parent directories as needed.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
