package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. GOLDRATE_API_BASE.
const EnvPrefix = "GOLDRATE"

// Load builds the Config from defaults, an optional YAML file and GOLDRATE_*
// environment variables (a .env file in the working directory is honoured).
// An empty path searches goldrate.yaml in $HOME/.goldrate and the working directory; a
// missing file there is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("goldrate")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".goldrate"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.resolveDataDir(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api_base", d.APIBase)
	v.SetDefault("site_base", d.SiteBase)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("debounce_interval", d.DebounceInterval)
	v.SetDefault("min_query_length", d.MinQueryLength)
	v.SetDefault("animate", d.Animate)
	v.SetDefault("animation_duration", d.AnimationDuration)
	v.SetDefault("frame_interval", d.FrameInterval)
	v.SetDefault("toggle_debounce", d.ToggleDebounce)
	v.SetDefault("default_unit", d.DefaultUnit)
	v.SetDefault("default_grade", d.DefaultGrade)
	v.SetDefault("cache_backend", d.CacheBackend)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("redis_addr", d.RedisAddr)
	v.SetDefault("redis_password", d.RedisPassword)
	v.SetDefault("redis_db", d.RedisDB)
	v.SetDefault("probe_interval", d.ProbeInterval)
	v.SetDefault("share_command", d.ShareCommand)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("default_city", d.DefaultCity)
	v.SetDefault("cities", d.Cities)
}

func (c *Config) resolveDataDir() error {
	if c.DataDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, ".goldrate")
		return nil
	}
	dir, err := homedir.Expand(c.DataDir)
	if err != nil {
		return fmt.Errorf("expand data_dir: %w", err)
	}
	c.DataDir = dir
	return nil
}

// Validate rejects settings the session cannot run with.
func (c *Config) Validate() error {
	if c.APIBase == "" {
		return errors.New("config: api_base is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.MinQueryLength < 1 {
		return fmt.Errorf("config: min_query_length must be >= 1, got %d", c.MinQueryLength)
	}
	switch c.DefaultUnit {
	case 1, 8, 10, 100:
	default:
		return fmt.Errorf("config: default_unit %d is not one of 1, 8, 10, 100", c.DefaultUnit)
	}
	switch c.CacheBackend {
	case "sqlite", "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache_backend %q", c.CacheBackend)
	}
	return nil
}

// WriteDefault writes the default configuration as YAML to path.
// Durations are written in their string form so the file stays editable.
func WriteDefault(path string) error {
	d := Default()
	doc := map[string]interface{}{
		"api_base":           d.APIBase,
		"site_base":          d.SiteBase,
		"rate_limit":         d.RateLimit,
		"request_timeout":    d.RequestTimeout.String(),
		"debounce_interval":  d.DebounceInterval.String(),
		"min_query_length":   d.MinQueryLength,
		"animate":            d.Animate,
		"animation_duration": d.AnimationDuration.String(),
		"frame_interval":     d.FrameInterval.String(),
		"toggle_debounce":    d.ToggleDebounce.String(),
		"default_unit":       d.DefaultUnit,
		"default_grade":      d.DefaultGrade,
		"cache_backend":      d.CacheBackend,
		"redis_addr":         d.RedisAddr,
		"probe_interval":     d.ProbeInterval.String(),
		"log_level":          d.LogLevel,
		"default_city":       d.DefaultCity,
		"cities":             d.Cities,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
