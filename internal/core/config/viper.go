package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Secrets are environment-only; a config file carrying one is rejected.
var (
	ErrPasswordInConfig = errors.New("database password not allowed in config files (use GK_DATABASE_URL environment variable)")
	ErrTokenInConfig    = errors.New("admin token not allowed in config files (use GK_ADMIN_TOKEN environment variable)")
)

// Load reads configuration using viper.
// Environment > config file > defaults precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("admin.host", def.Admin.Host)
	v.SetDefault("admin.port", def.Admin.Port)
	v.SetDefault("admin.request_timeout", def.Admin.RequestTimeout.String())
	v.SetDefault("engine.reload_interval", def.Engine.ReloadInterval.String())
	v.SetDefault("database.url", def.Database.URL)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Runs before AutomaticEnv so only the file value is inspected.
		if err := validateNoSecretsInConfig(v); err != nil {
			return nil, err
		}
	}

	// Bind environment variables with GK_ prefix
	v.SetEnvPrefix("GK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Admin: AdminConfig{
			Host:           v.GetString("admin.host"),
			Port:           v.GetInt("admin.port"),
			RequestTimeout: v.GetDuration("admin.request_timeout"),
		},
		Engine: EngineConfig{
			ReloadInterval: v.GetDuration("engine.reload_interval"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateNoSecretsInConfig enforces environment-only credentials.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("admin.token") {
		return ErrTokenInConfig
	}
	if !v.InConfig("database.url") {
		return nil
	}
	u, err := url.Parse(v.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("database.url: %w", err)
	}
	if _, ok := u.User.Password(); ok {
		return ErrPasswordInConfig
	}
	return nil
}
