package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath   string
	UserDataPath string
	Server       string
	LogLevel     string
	LogFormat    string
	MetricsPort  int
	ShowVersion  bool
	ShowHelp     bool
	Validate     bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("MQTOP_CONFIG", defaultConfigPath()),
		"Path to configuration file (env: MQTOP_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("MQTOP_CONFIG", defaultConfigPath()),
		"Path to configuration file (env: MQTOP_CONFIG)")

	flag.StringVar(&cfg.UserDataPath, "user-data",
		getEnv("MQTOP_USER_DATA", ""),
		"Path to user data file, empty for the platform default (env: MQTOP_USER_DATA)")

	flag.StringVar(&cfg.Server, "server",
		getEnv("MQTOP_SERVER", ""),
		"Server profile to connect to, overrides active_server (env: MQTOP_SERVER)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("MQTOP_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: MQTOP_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("MQTOP_LOG_FORMAT", ""),
		"Log format: json, text (env: MQTOP_LOG_FORMAT)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("MQTOP_METRICS_PORT", -1),
		"Prometheus endpoint port, 0 to disable, -1 to use config (env: MQTOP_METRICS_PORT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Validate log level
	validLevels := []string{"", "debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format
	validFormats := []string{"", "json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	// Validate metrics port
	if cfg.MetricsPort < -1 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	return nil
}

// defaultConfigPath resolves the per-user config file location. A missing
// file is not an error; loading falls back to defaults.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "mqtop.yaml"
	}
	return dir + "/mqtop/mqtop.yaml"
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - MQTT Stream Explorer

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run against the default local broker
  %s

  # Run with a custom config and profile
  %s --config=/path/to/mqtop.yaml --server=production

  # Run with debug logging and a metrics endpoint
  %s --log-level=debug --metrics-port=9090

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
