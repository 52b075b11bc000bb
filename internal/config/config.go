package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Loader
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	MaxRows   int    `mapstructure:"max_rows" yaml:"max_rows"`

	// Dashboard defaults
	DefaultGranularity string `mapstructure:"default_granularity" yaml:"default_granularity"`
	OutputFormat       string `mapstructure:"output_format" yaml:"output_format"`

	// HTTP server
	ServerBind  string   `mapstructure:"server_bind" yaml:"server_bind"`
	ServerPort  int      `mapstructure:"server_port" yaml:"server_port"`
	MaxUploadMB int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	MaxSessions int      `mapstructure:"max_sessions" yaml:"max_sessions"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Addr is the listen address of the HTTP server.
func (c *Global) Addr() string { return fmt.Sprintf("%s:%d", c.ServerBind, c.ServerPort) }

// DefaultPath returns ~/.autodash/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".autodash", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.autodash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is loaded into the environment first.
func Load(cfgFile string) (*Global, error) {
	// optional; existing env vars win
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AUTODASH")
	v.AutomaticEnv()

	v.SetDefault("delimiter", "")
	v.SetDefault("max_rows", 100000)
	v.SetDefault("default_granularity", "month")
	v.SetDefault("output_format", "md")
	v.SetDefault("server_bind", "127.0.0.1")
	v.SetDefault("server_port", 8080)
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("max_sessions", 64)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
