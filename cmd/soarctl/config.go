package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the CLI configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Library LibraryConfig `mapstructure:"library"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Retries        int    `mapstructure:"retries"`
}

type CacheConfig struct {
	Path   string        `mapstructure:"path"`   // bbolt file; empty keeps the cache in memory
	MaxAge time.Duration `mapstructure:"max_age"` // default for `cache purge`
}

type LibraryConfig struct {
	PageSize int    `mapstructure:"page_size"`
	UserID   string `mapstructure:"user_id"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	DebugHTTP bool   `mapstructure:"debug_http"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.timeout_seconds", 15)
	v.SetDefault("server.retries", 2)
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("cache.max_age", 24*time.Hour)
	v.SetDefault("library.page_size", 20)
	v.SetDefault("library.user_id", "")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.debug_http", false)
}

// defaultConfigDir is ~/.config/soar.
func defaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "soar")
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", "soar", "offline.db")
}

// loadConfig reads file (or config.yaml from the default locations when
// file is empty) and SOAR_* environment overrides into v. A missing default
// config file is not an error.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigDir())
		v.AddConfigPath(".")
	}

	// SOAR_SERVER_URL overrides server.url, and so on.
	v.SetEnvPrefix("SOAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.Server.URL == "" {
		return nil, fmt.Errorf("server.url must be set")
	}
	if cfg.Server.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("server.timeout_seconds must be > 0")
	}
	if cfg.Server.Retries < 0 {
		return nil, fmt.Errorf("server.retries must be >= 0")
	}
	return cfg, nil
}
