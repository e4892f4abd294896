package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Stats       StatsConfig       `toml:"stats"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccountsURL  string `toml:"accounts_url"` // empty means https://accounts.spotify.com
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local authorization front door.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StatsConfig tunes how the saved-tracks collection is fetched and bucketed.
type StatsConfig struct {
	APIBaseURL  string  `toml:"api_base_url"`
	PageSize    int     `toml:"page_size"`   // items per page, 1-50
	Concurrency int     `toml:"concurrency"` // page requests in flight
	RateLimit   float64 `toml:"rate_limit"`  // requests per second
	Burst       int     `toml:"burst"`
	Timezone    string  `toml:"timezone"` // IANA name or "Local"
}

// Addr returns the host:port the front door listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL returns the front door's origin, e.g. http://127.0.0.1:8888
func (s ServerConfig) BaseURL() string {
	return "http://" + s.Addr()
}

// Location resolves the configured timezone, defaulting to UTC.
func (s StatsConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, s.Timezone, err)
	}
	return loc, nil
}

// Validate reports configuration values that would make the client misbehave.
func (c *Config) Validate() error {
	if c.Stats.PageSize < 1 || c.Stats.PageSize > 50 {
		return fmt.Errorf("%w: stats.page_size must be between 1 and 50, got %d", ErrInvalidConfig, c.Stats.PageSize)
	}
	if c.Stats.Concurrency < 1 {
		return fmt.Errorf("%w: stats.concurrency must be positive, got %d", ErrInvalidConfig, c.Stats.Concurrency)
	}
	if c.Stats.RateLimit <= 0 {
		return fmt.Errorf("%w: stats.rate_limit must be positive", ErrInvalidConfig)
	}
	if c.Stats.APIBaseURL == "" {
		return fmt.Errorf("%w: stats.api_base_url is empty", ErrInvalidConfig)
	}
	if c.Server.Port < 0 {
		return fmt.Errorf("%w: server.port must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Stats.Location(); err != nil {
		return err
	}
	return nil
}

// HasSpotifyCredentials reports whether client credentials were filled in.
func (c *Config) HasSpotifyCredentials() bool {
	return c.Credentials.Spotify.ClientID != "" && c.Credentials.Spotify.ClientSecret != ""
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// EncodeConfig renders config back to TOML.
func EncodeConfig(config *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
