package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "MRMOTORS"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabasePath   = "mrmotors.db"
	defaultLogLevel       = "info"
	defaultGoogleJWKSURL  = "https://www.googleapis.com/oauth2/v3/certs"
	defaultTokenTTL       = 30 * time.Minute
	defaultRequestsPerSec = 20
	defaultRequestBurst   = 40
	defaultPlaceholderURL = "https://via.placeholder.com/80x60?text=No+Image"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress      string
	DatabasePath     string
	LogLevel         string
	LogPath          string
	GoogleClientID   string
	GoogleJWKSURL    string
	SigningSecret    string
	TokenTTL         time.Duration
	RequestsPerSec   float64
	RequestBurst     int
	ContactPhone     string
	PlaceholderImage string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.path", "")
	configViper.SetDefault("google.jwks_url", defaultGoogleJWKSURL)
	configViper.SetDefault("auth.token_ttl", defaultTokenTTL)
	configViper.SetDefault("http.requests_per_second", defaultRequestsPerSec)
	configViper.SetDefault("http.request_burst", defaultRequestBurst)
	configViper.SetDefault("catalog.placeholder_image", defaultPlaceholderURL)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:      configViper.GetString("http.address"),
		DatabasePath:     configViper.GetString("database.path"),
		LogLevel:         configViper.GetString("log.level"),
		LogPath:          configViper.GetString("log.path"),
		GoogleClientID:   configViper.GetString("google.client_id"),
		GoogleJWKSURL:    configViper.GetString("google.jwks_url"),
		SigningSecret:    configViper.GetString("auth.signing_secret"),
		TokenTTL:         configViper.GetDuration("auth.token_ttl"),
		RequestsPerSec:   configViper.GetFloat64("http.requests_per_second"),
		RequestBurst:     configViper.GetInt("http.request_burst"),
		ContactPhone:     configViper.GetString("contact.phone"),
		PlaceholderImage: configViper.GetString("catalog.placeholder_image"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.GoogleClientID) == "" {
		return fmt.Errorf("google.client_id is required")
	}
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.RequestsPerSec <= 0 {
		return fmt.Errorf("http.requests_per_second must be positive")
	}
	if c.RequestBurst <= 0 {
		return fmt.Errorf("http.request_burst must be positive")
	}
	return nil
}
