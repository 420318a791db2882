package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration, loaded from a TOML file
// and overridable through environment variables.
type Config struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
}

// SpotifyConfig contains Spotify API credentials.
//
// APIBaseURL and AccountsBaseURL default to Spotify's public endpoints and
// only need setting when requests must go through a proxy.
type SpotifyConfig struct {
	ClientID        string `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret    string `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI     string `toml:"redirect_uri" env:"REDIRECT_URI"`
	APIBaseURL      string `toml:"api_base_url" env:"SPOTIFY_API_BASE"`
	AccountsBaseURL string `toml:"accounts_base_url" env:"SPOTIFY_ACCOUNTS_BASE"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string `toml:"host" env:"HOST"`
	Port      int    `toml:"port" env:"PORT"`
	ClientURL string `toml:"client_url" env:"CLIENT_URL"`
}

// SessionConfig contains session store settings.
//
// Backend selects the store implementation: "memory" (default) or "sqlite".
// SweepSeconds is the interval between eviction passes over expired records.
type SessionConfig struct {
	Backend      string `toml:"backend" env:"SESSION_STORE"`
	DatabasePath string `toml:"database_path" env:"DATABASE_PATH"`
	SweepSeconds int    `toml:"sweep_seconds" env:"SWEEP_SECONDS"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies environment variable overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded
// example config, with environment variable overrides applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}

	if err := env.Parse(&config); err != nil {
		panic(fmt.Sprintf("failed to apply environment overrides: %v", err))
	}

	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidConfig)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that credentials required to talk to Spotify are present.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" {
		return fmt.Errorf("%w: spotify client_id", ErrMissingCredentials)
	}
	if c.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_secret", ErrMissingCredentials)
	}
	return nil
}

// Addr returns the host:port pair the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
