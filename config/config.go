// Package config loads process configuration through a profile-based
// viper setup: a base profile selected by APP_ENVIRONMENT, overridden by
// APP_*__* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved process configuration.
type Config struct {
	Host              string
	Port              int
	StorePath         string
	SessionStorePath  string
	StoreInterval     time.Duration
	SessionSecretPath string
}

// Load builds a viper instance scoped to the named profile (selected via
// APP_ENVIRONMENT when profile is empty), reads an optional config file
// named config.<profile>.yaml from configDir, and applies APP_*__*
// environment overrides on top.
func Load(configDir, profile string) (Config, error) {
	v := viper.New()

	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("store.path", "collab-todo.db")
	v.SetDefault("store.session_store_path", "collab-todo-sessions.db")
	v.SetDefault("store.session_secret_path", "session-secret.key")
	v.SetDefault("todo_handler.store_interval", "1s")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if profile == "" {
		profile = v.GetString("environment")
	}
	if profile == "" {
		profile = "development"
	}

	if configDir != "" {
		v.AddConfigPath(configDir)
		v.SetConfigName("config." + profile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return Config{}, fmt.Errorf("config: read profile %s: %w", profile, err)
			}
		}
	}

	interval, err := time.ParseDuration(v.GetString("todo_handler.store_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("config: parse todo_handler.store_interval: %w", err)
	}

	return Config{
		Host:              v.GetString("app.host"),
		Port:              v.GetInt("app.port"),
		StorePath:         v.GetString("store.path"),
		SessionStorePath:  v.GetString("store.session_store_path"),
		StoreInterval:     interval,
		SessionSecretPath: v.GetString("store.session_secret_path"),
	}, nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
