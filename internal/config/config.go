package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "SEARCHVOL"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "searchvolume.db"
	defaultLogLevel     = "info"
	defaultAnchorHour   = 9
	defaultTokenTTL     = 60
)

// AppConfig captures runtime configuration for the search volume service.
type AppConfig struct {
	HTTPAddress   string
	DatabasePath  string
	LogLevel      string
	AnchorHour    int
	SigningSecret string
	TokenTTL      time.Duration
}

// AuthEnabled reports whether the bearer-token gate on /query is active.
func (c AppConfig) AuthEnabled() bool {
	return strings.TrimSpace(c.SigningSecret) != ""
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
	configViper.SetDefault("snapshot.anchor_hour", defaultAnchorHour)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTL)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		DatabasePath:  configViper.GetString("database.path"),
		LogLevel:      configViper.GetString("log.level"),
		AnchorHour:    configViper.GetInt("snapshot.anchor_hour"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		TokenTTL:      time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.AnchorHour < 0 || c.AnchorHour > 23 {
		return fmt.Errorf("snapshot.anchor_hour must be between 0 and 23")
	}
	return nil
}
