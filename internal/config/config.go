// Package config provides configuration utilities for the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFiles  = "files"
)

// EnvPrefix prefixes every environment override, e.g. PURSE_STORAGE_BACKEND.
const EnvPrefix = "PURSE"

// Config is the full application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the SQLite database file.
	Path string `mapstructure:"path"`
	// DataDir holds the JSON files of the files backend.
	DataDir string `mapstructure:"data_dir"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NotifyConfig enables the RabbitMQ publisher when AMQPURL is set.
type NotifyConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.path", "$HOME/.local/share/purse/purse.db")
	v.SetDefault("storage.data_dir", "$HOME/.local/share/purse/data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("notify.amqp_url", "")
	v.SetDefault("notify.exchange", "purse")
	v.SetDefault("notify.queue", "purse.events")
}

// Configure points v at the config file and the environment. An explicit
// cfgFile must exist; otherwise $HOME/.config/purse/config.yaml and
// ./config.yaml are tried and their absence is fine.
func Configure(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(ExpandPath(cfgFile))
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "purse"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files (default ./.env)
// into the process environment. Missing files are skipped; variables already
// set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load unmarshals v, expands paths and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Storage.Path = ExpandPath(cfg.Storage.Path)
	cfg.Storage.DataDir = ExpandPath(cfg.Storage.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.Path == "" {
			problems = append(problems, "storage.path cannot be empty when using the sqlite backend")
		}
	case BackendFiles:
		if c.Storage.DataDir == "" {
			problems = append(problems, "storage.data_dir cannot be empty when using the files backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid storage backend %q: must be one of [%s %s]",
			c.Storage.Backend, BackendSQLite, BackendFiles))
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be console or json", c.Logging.Format))
	}

	if c.Notify.AMQPURL != "" {
		if u, err := url.Parse(c.Notify.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be amqp or amqps", u.Scheme))
		}
		if c.Notify.Exchange == "" {
			problems = append(problems, "notify.exchange cannot be empty when notify.amqp_url is set")
		}
		if c.Notify.Queue == "" {
			problems = append(problems, "notify.queue cannot be empty when notify.amqp_url is set")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// NotifyEnabled reports whether events should be published to RabbitMQ.
func (c *Config) NotifyEnabled() bool {
	return c.Notify.AMQPURL != ""
}
