package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/autodash/internal/config"
	"github.com/KaramelBytes/autodash/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
	log = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "autodash",
	Short: "autodash: instant dashboards for any CSV or XLSX table",
	Long: `autodash reads an unlabeled table, guesses which columns hold time, users,
revenue, measures and categories, and builds a five-panel summary dashboard
from that guess. Use it one-shot from the terminal or serve it over HTTP.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.autodash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaultConfig()
	}
	cfg = c

	level := logger.ParseLevel(cfg.LogLevel)
	if debug {
		level = slog.LevelDebug
	}
	log = logger.New(level)
	log.Debug("config loaded", "file", cfgFile, "max_rows", cfg.MaxRows, "granularity", cfg.DefaultGranularity)
}

// defaultConfig mirrors the config package defaults for when loading fails.
func defaultConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		MaxRows:            100000,
		DefaultGranularity: "month",
		OutputFormat:       "md",
		ServerBind:         "127.0.0.1",
		ServerPort:         8080,
		MaxUploadMB:        32,
		MaxSessions:        64,
		LogLevel:           "info",
	}
}

// currentConfig returns the loaded config, or defaults before loadConfig ran.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		return defaultConfig()
	}
	return cfg
}
