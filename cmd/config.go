package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/autodash/internal/config"
	"github.com/KaramelBytes/autodash/internal/logger"
	"github.com/KaramelBytes/autodash/internal/views"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set autodash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		fmt.Fprintf(out, "max_rows: %d\n", cfg.MaxRows)
		fmt.Fprintf(out, "default_granularity: %s\n", cfg.DefaultGranularity)
		fmt.Fprintf(out, "output_format: %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "server_bind: %s\n", cfg.ServerBind)
		fmt.Fprintf(out, "server_port: %d\n", cfg.ServerPort)
		fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(out, "max_sessions: %d\n", cfg.MaxSessions)
		if len(cfg.CORSOrigins) > 0 {
			fmt.Fprintf(out, "cors_origins: %s\n", strings.Join(cfg.CORSOrigins, ","))
		}
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigKey(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "delimiter":
		if val != "" {
			if _, err := parseDelimiter(val); err != nil {
				return err
			}
		}
		c.Delimiter = val
	case "max_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for max_rows: %v", val)
		}
		c.MaxRows = i
	case "default_granularity":
		g, err := views.ParseGranularity(val)
		if err != nil {
			return err
		}
		c.DefaultGranularity = string(g)
	case "output_format":
		switch strings.ToLower(val) {
		case "md", "markdown":
			c.OutputFormat = "md"
		case "json":
			c.OutputFormat = "json"
		default:
			return fmt.Errorf("invalid output_format: %s (use md or json)", val)
		}
	case "server_bind":
		c.ServerBind = val
	case "server_port":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 || i > 65535 {
			return fmt.Errorf("invalid port for server_port: %v", val)
		}
		c.ServerPort = i
	case "max_upload_mb":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for max_upload_mb: %v", val)
		}
		c.MaxUploadMB = i
	case "max_sessions":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for max_sessions: %v", val)
		}
		c.MaxSessions = i
	case "cors_origins":
		c.CORSOrigins = nil
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	case "log_level":
		switch lvl := strings.ToLower(val); lvl {
		case "debug", "info", "warn", "warning", "error":
			c.LogLevel = strings.ToLower(logger.ParseLevel(lvl).String())
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
