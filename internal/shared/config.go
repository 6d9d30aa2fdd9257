package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Transfer    TransferConfig    `toml:"transfer"`
	Matching    MatchingConfig    `toml:"matching"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Tidal   TidalConfig   `toml:"tidal"`
	Qobuz   QobuzConfig   `toml:"qobuz"`
}

// SpotifyConfig contains Spotify API credentials. AccessToken is an
// already-authenticated session token supplied by the caller; the engine
// never refreshes it.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
}

// TidalConfig contains Tidal API credentials and catalog region.
type TidalConfig struct {
	ClientID    string `toml:"client_id"`
	AccessToken string `toml:"access_token"`
	CountryCode string `toml:"country_code"`
}

// QobuzConfig contains Qobuz API credentials. The user auth token is
// long-lived; Qobuz has no refresh flow.
type QobuzConfig struct {
	AppID         string `toml:"app_id"`
	UserAuthToken string `toml:"user_auth_token"`
}

// DatabaseConfig contains match cache database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// TransferConfig contains engine tuning knobs.
type TransferConfig struct {
	Workers         int     `toml:"workers"`           // resolver pool size
	SourceRate      float64 `toml:"source_rate"`       // requests/second against the source provider
	TargetRate      float64 `toml:"target_rate"`       // requests/second against the target provider
	Burst           int     `toml:"burst"`             // limiter burst capacity
	RetryAttempts   int     `toml:"retry_attempts"`    // bounded retries for transient provider errors
	AcquireTimeoutS int     `toml:"acquire_timeout_s"` // rate limiter wait deadline, seconds
}

// MatchingConfig exposes the resolver thresholds and weights as tunable
// defaults rather than fixed contracts.
type MatchingConfig struct {
	MatchThreshold     float64 `toml:"match_threshold"`
	AmbiguousThreshold float64 `toml:"ambiguous_threshold"`
	TitleWeight        float64 `toml:"title_weight"`
	ArtistWeight       float64 `toml:"artist_weight"`
	DurationWeight     float64 `toml:"duration_weight"`
	AlbumWeight        float64 `toml:"album_weight"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
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
