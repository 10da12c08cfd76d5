// Package main implements the entry point for mqtop, a terminal explorer
// for MQTT and telemetry streams. It wires the transport supervisor, the
// ingestion loop, and the metrics endpoint together and keeps user data
// (stars, bookmarks, tracked metrics) across runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/frahlg/mqtop/config"
	"github.com/frahlg/mqtop/ingest"
	"github.com/frahlg/mqtop/metric"
	"github.com/frahlg/mqtop/persist"
	"github.com/frahlg/mqtop/stats"
	"github.com/frahlg/mqtop/store"
	"github.com/frahlg/mqtop/tracker"
	"github.com/frahlg/mqtop/transport"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "mqtop"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, profile, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	// Metrics registry and scrape endpoint
	metrics := metric.NewMetrics()
	metricsServer, err := metric.NewServer(cfg.Metrics.Port, metrics)
	if err != nil {
		return fmt.Errorf("create metrics server: %w", err)
	}

	// Transport supervisor for the active profile's protocol
	dialer, err := transport.NewDialer(profile.Protocol)
	if err != nil {
		return fmt.Errorf("select transport: %w", err)
	}
	supervisor := transport.NewSupervisor(dialer,
		transport.WithLogger(logger),
		transport.WithMetrics(metrics),
	)

	// Ingestion loop owning the index, store, stats, trackers
	loop := buildLoop(cfg, logger, metrics, supervisor)

	return runPipeline(cliCfg, profile, logger, metricsServer, supervisor, loop)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printHelp()
		return nil, nil, true, nil
	}

	// Flag defaults are empty; the config file can raise verbosity later,
	// so the bootstrap logger starts from the flag values alone.
	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting mqtop",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads the config file, applies flag overrides,
// and resolves the server profile to connect to.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, transport.ServerProfile, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, transport.ServerProfile{}, fmt.Errorf("load config: %w", err)
	}

	// Flags win over the file
	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}
	if cliCfg.MetricsPort >= 0 {
		cfg.Metrics.Port = cliCfg.MetricsPort
	}
	if cliCfg.Server != "" {
		cfg.ActiveServer = cliCfg.Server
		if err := cfg.Validate(); err != nil {
			return nil, transport.ServerProfile{}, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	profile, err := cfg.ActiveProfile()
	if err != nil {
		return nil, transport.ServerProfile{}, fmt.Errorf("resolve server profile: %w", err)
	}

	// Re-apply logger settings now that the file has been read
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	return cfg, profile, nil
}

// buildLoop assembles the ingestion loop from the engine configuration.
func buildLoop(
	cfg *config.Config,
	logger *slog.Logger,
	metrics *metric.Metrics,
	supervisor *transport.Supervisor,
) *ingest.Loop {
	return ingest.New(supervisor.Events(),
		ingest.WithLogger(logger),
		ingest.WithMetrics(metrics),
		ingest.WithSupervisor(supervisor),
		ingest.WithStore(store.New(
			store.WithCapacity(cfg.Engine.BufferCapacity),
			store.WithPayloadCap(cfg.Engine.PayloadCap),
		)),
		ingest.WithStatsEngine(stats.NewEngine(
			stats.WithWindow(cfg.Engine.StatsWindow),
			stats.WithHealthThresholds(cfg.Engine.HealthyThreshold, cfg.Engine.StaleThreshold),
		)),
		ingest.WithTracker(tracker.New(
			tracker.WithMaxPoints(cfg.Engine.TrackerHistory),
		)),
		ingest.WithInboundBuffer(cfg.Engine.InboundBuffer),
	)
}

// runPipeline starts the supervisor, loop, and metrics endpoint, then
// blocks until a shutdown signal arrives.
func runPipeline(
	cliCfg *CLIConfig,
	profile transport.ServerProfile,
	logger *slog.Logger,
	metricsServer *metric.Server,
	supervisor *transport.Supervisor,
	loop *ingest.Loop,
) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		supervisor.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		loop.Run(runCtx)
	}()

	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	// Restore stars, bookmarks, and tracked metric definitions
	userDataPath := cliCfg.UserDataPath
	if userDataPath == "" {
		userDataPath = persist.DefaultPath()
	}
	restoreUserData(loop, userDataPath)

	slog.Info("Connecting", "server", profile.Name, "url", profile.BrokerURL())
	if err := loop.Connect(profile); err != nil {
		return fmt.Errorf("connect to %s: %w", profile.Name, err)
	}

	signalCtx, signalCancel := signal.NotifyContext(runCtx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()
	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	// Export before the loop stops; commands fail once it is down
	saveUserData(loop, userDataPath)

	if err := loop.Disconnect(); err != nil {
		slog.Warn("Disconnect failed", "error", err)
	}
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Metrics server shutdown failed", "error", err)
	}

	slog.Info("mqtop shutdown complete")
	return nil
}

// restoreUserData loads persisted user data and applies it to the loop.
// Failures are logged, never fatal; a corrupt file must not block startup.
func restoreUserData(loop *ingest.Loop, path string) {
	data, err := persist.Load(path)
	if err != nil {
		slog.Warn("Could not load user data", "path", path, "error", err)
		return
	}
	if err := loop.ApplyUserData(data); err != nil {
		slog.Warn("Could not apply user data", "error", err)
		return
	}
	slog.Debug("User data restored",
		"starred", len(data.StarredTopics),
		"tracked", len(data.TrackedMetrics))
}

// saveUserData exports the current session's user data to disk.
func saveUserData(loop *ingest.Loop, path string) {
	data, err := loop.ExportUserData(persist.DefaultHistoryTail)
	if err != nil {
		slog.Warn("Could not export user data", "error", err)
		return
	}
	if err := persist.Save(data, path); err != nil {
		slog.Warn("Could not save user data", "path", path, "error", err)
		return
	}
	slog.Debug("User data saved", "path", path)
}

// printHelp prints help information
func printHelp() {
	printDetailedHelp()
}
