package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/spx/internal/models"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	defaultAuthTimeout  = 2 * time.Minute
	defaultSyncInterval = 2 * time.Second
	defaultTokenPath    = "~/.spx/credentials.json"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig         `toml:"credentials"`
	Auth        AuthConfig                `toml:"auth"`
	Database    DatabaseConfig            `toml:"database"`
	Sync        SyncConfig                `toml:"sync"`
	API         APIConfig                 `toml:"api"`
	Profiles    map[string]models.Profile `toml:"profiles"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the Spotify application registration values.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
}

// AuthConfig controls the authorization flow and where credentials are persisted.
type AuthConfig struct {
	Timeout    string `toml:"timeout"`
	TokenStore string `toml:"token_store"` // file or sqlite
	TokenPath  string `toml:"token_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains playback polling settings.
type SyncConfig struct {
	Interval string `toml:"interval"`
}

// APIConfig contains Spotify endpoint URLs and request pacing.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	AuthURL           string  `toml:"auth_url"`
	TokenURL          string  `toml:"token_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return &config, nil
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

// AuthTimeout parses [AuthConfig.Timeout], falling back to two minutes when unset or invalid.
func (c *Config) AuthTimeout() time.Duration {
	return parseDuration(c.Auth.Timeout, defaultAuthTimeout)
}

// SyncInterval parses [SyncConfig.Interval], falling back to two seconds when unset or invalid.
func (c *Config) SyncInterval() time.Duration {
	return parseDuration(c.Sync.Interval, defaultSyncInterval)
}

// TokenPath returns the credential file location with a leading ~ expanded.
func (c *Config) TokenPath() string {
	if c.Auth.TokenPath == "" {
		return ExpandHome(defaultTokenPath)
	}
	return ExpandHome(c.Auth.TokenPath)
}

// Profile looks up a named profile.
func (c *Config) Profile(name string) (models.Profile, bool) {
	p, ok := c.Profiles[name]
	return p, ok
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
