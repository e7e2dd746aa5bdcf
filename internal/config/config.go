// Package config loads the on-disk and environment-variable
// configuration for indexing and serving a project, following the
// teacher's internal/config/config.go layering: a JSON file under
// .ckb/, defaulted and then overridden by CKB_*-prefixed environment
// variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"scipdex/internal/logging"
	"scipdex/internal/watcher"
)

// CacheConfig controls the disk cache's size ceiling (§4.G).
type CacheConfig struct {
	MaxIndexBytes int64 `json:"maxIndexBytes" mapstructure:"maxIndexBytes"`
}

// LoggingConfig controls the ambient logger's format and level.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// Config is scipdex's full on-disk configuration.
type Config struct {
	Version int            `json:"version" mapstructure:"version"`
	Cache   CacheConfig    `json:"cache" mapstructure:"cache"`
	Logging LoggingConfig  `json:"logging" mapstructure:"logging"`
	Watcher watcher.Config `json:"watcher" mapstructure:"watcher"`
}

// DefaultConfig returns scipdex's built-in defaults, used when no
// .ckb/config.json exists.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Cache:   CacheConfig{MaxIndexBytes: 256 * 1024 * 1024},
		Logging: LoggingConfig{Format: "human", Level: "info"},
		Watcher: watcher.DefaultConfig(),
	}
}

// EnvOverride records one CKB_*-prefixed environment override applied on
// top of the loaded config, for `config show --diff`-style reporting.
type EnvOverride struct {
	EnvVar    string
	Path      string
	Value     interface{}
	FromValue string
}

// LoadResult is the config plus metadata about where it came from.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	EnvOverrides []EnvOverride
	UsedDefaults bool
}

// Load reads repoRoot/.ckb/config.json through viper, falling back to
// DefaultConfig when it doesn't exist, then layers CKB_*-prefixed
// environment overrides on top.
func Load(repoRoot string) (*LoadResult, error) {
	result := &LoadResult{}

	if explicit := os.Getenv("CKB_CONFIG_PATH"); explicit != "" {
		cfg, err := loadFromPath(explicit)
		if err != nil {
			return nil, fmt.Errorf("config: loading CKB_CONFIG_PATH=%s: %w", explicit, err)
		}
		result.Config = cfg
		result.ConfigPath = explicit
	} else {
		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(filepath.Join(repoRoot, ".ckb"))

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				result.Config = DefaultConfig()
				result.UsedDefaults = true
			} else {
				return nil, fmt.Errorf("config: reading .ckb/config.json: %w", err)
			}
		} else {
			cfg := DefaultConfig()
			if err := v.Unmarshal(cfg); err != nil {
				return nil, fmt.Errorf("config: unmarshalling .ckb/config.json: %w", err)
			}
			result.Config = cfg
			result.ConfigPath = v.ConfigFileUsed()
		}
	}

	result.EnvOverrides = applyEnvOverrides(result.Config)
	return result, nil
}

func loadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks the small set of CKB_*-prefixed variables
// that matter enough to override without editing the config file, and
// records each one it applies.
func applyEnvOverrides(cfg *Config) []EnvOverride {
	var out []EnvOverride
	if raw := os.Getenv("CKB_LOG_LEVEL"); raw != "" {
		cfg.Logging.Level = raw
		out = append(out, EnvOverride{EnvVar: "CKB_LOG_LEVEL", Path: "logging.level", Value: raw, FromValue: raw})
	}
	if raw := os.Getenv("CKB_LOG_FORMAT"); raw != "" {
		cfg.Logging.Format = raw
		out = append(out, EnvOverride{EnvVar: "CKB_LOG_FORMAT", Path: "logging.format", Value: raw, FromValue: raw})
	}
	if raw := os.Getenv("CKB_MAX_INDEX_BYTES"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.Cache.MaxIndexBytes = n
			out = append(out, EnvOverride{EnvVar: "CKB_MAX_INDEX_BYTES", Path: "cache.maxIndexBytes", Value: n, FromValue: raw})
		}
	}
	if raw := os.Getenv("CKB_WATCH_DEBOUNCE_MS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.Watcher.DebounceMs = n
			out = append(out, EnvOverride{EnvVar: "CKB_WATCH_DEBOUNCE_MS", Path: "watcher.debounceMs", Value: n, FromValue: raw})
		}
	}
	return out
}

// Save writes cfg to repoRoot/.ckb/config.json, creating the directory
// if needed.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".ckb")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// LoggerConfig adapts LoggingConfig to internal/logging.Config.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Format: logging.Format(c.Logging.Format),
		Level:  logging.LogLevel(c.Logging.Level),
	}
}
