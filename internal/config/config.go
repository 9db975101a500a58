// Package config loads server settings from an optional .env file, an
// optional YAML file and TODO_-prefixed environment variables, in increasing
// order of precedence.
//
// PRECEDENCE (later wins):
//
//	defaults → config.yaml → .env → TODO_* environment
//
// godotenv copies .env into the process environment without overwriting
// variables that are already set, so viper sees both through AutomaticEnv.
//
// WHAT IS CHECKED AT LOAD TIME?
// Port range, store name, db_path for the sqlite store, log level and the
// minimum state_secret length. A typo in any of them stops main before the
// listener opens. Google settings are not an error when incomplete:
// GoogleEnabled reports false and the server starts without the Google
// routes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "TODO"

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// GoogleConfig holds the OAuth2 client registered with Google.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	CallbackURL  string `mapstructure:"callback_url" yaml:"callback_url"`
}

// Config is the full server configuration.
type Config struct {
	Port           int          `mapstructure:"port" yaml:"port"`
	DBPath         string       `mapstructure:"db_path" yaml:"db_path"`
	Store          string       `mapstructure:"store" yaml:"store"`
	LogLevel       string       `mapstructure:"log_level" yaml:"log_level"`
	AllowedOrigins []string     `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	RedirectURL    string       `mapstructure:"redirect_url" yaml:"redirect_url"`
	StateSecret    string       `mapstructure:"state_secret" yaml:"state_secret"`
	Google         GoogleConfig `mapstructure:"google" yaml:"google"`
}

// Load reads the configuration. path names an optional YAML file; an empty
// path or a missing file means defaults plus environment only. A .env file in
// the working directory is loaded first when present.
//
// Environment keys are the upper-cased setting names with dots replaced by
// underscores, e.g. TODO_PORT or TODO_GOOGLE_CLIENT_ID.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key, which also lets AutomaticEnv resolve
// nested keys during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "data/todos.db")
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("redirect_url", "http://localhost:5173/")
	v.SetDefault("state_secret", "")
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.callback_url", "http://localhost:8080/auth/google/callback")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Store != StoreSQLite && c.Store != StoreMemory {
		return fmt.Errorf("config: unknown store %q (want %q or %q)", c.Store, StoreSQLite, StoreMemory)
	}
	if c.Store == StoreSQLite && c.DBPath == "" {
		return errors.New("config: db_path is required for the sqlite store")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.StateSecret != "" && len(c.StateSecret) < 16 {
		return errors.New("config: state_secret must be at least 16 characters")
	}
	return nil
}

// GoogleEnabled reports whether the Google login routes should be served.
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != "" && c.StateSecret != ""
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// EnsureDataDir creates the directory holding the SQLite file.
func (c *Config) EnsureDataDir() error {
	if c.Store != StoreSQLite || c.DBPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(c.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", dir, err)
	}
	return nil
}
