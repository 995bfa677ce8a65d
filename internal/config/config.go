// Package config loads the application configuration from a TOML
// file with ABODE_ environment variable overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Postgres PostgresConfig `koanf:"postgres"`
	Discord  DiscordConfig  `koanf:"discord"`
	AI       AIConfig       `koanf:"ai"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// APIToken, when set, is required as a bearer token on /api routes.
	APIToken string `koanf:"api_token"`
}

// PostgresConfig contains archive database settings.
type PostgresConfig struct {
	DSN string `koanf:"dsn"`
	// MaxConns caps the pgx pool size; 0 uses the pool default.
	MaxConns int `koanf:"max_conns"`
}

// DiscordConfig contains gateway client settings.
type DiscordConfig struct {
	Token string `koanf:"token"`
}

// AIConfig enables the optional natural-language query assist.
type AIConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level "debug" enables debug logging; any other value logs at
	// info level. warn and error are not recognised as thresholds.
	Level string `koanf:"level"`
}

// Load loads the configuration from a file, then applies ABODE_*
// environment overrides (ABODE_SERVER__PORT=9999 sets server.port).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("error loading config file: %w", err)
	}

	if err := k.Load(env.Provider("ABODE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "ABODE_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading env overrides: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 9999},
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("dsn is required in postgres configuration")
	}

	return cfg, nil
}
