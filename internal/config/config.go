// Package config provides configuration management for isorender using
// Viper for loading from files, environment variables and command-line flags.
//
// Configuration is read from .isorender.yml (or the file named by --config or
// ISORENDER_CONFIG_FILE) and every key can be overridden with an
// ISORENDER_<SECTION>_<OPTION> environment variable. Load applies defaults
// and validates the result.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete runtime configuration.
type Config struct {
	Server      ServerConfig           `mapstructure:"server" yaml:"server"`
	Cache       CacheConfig            `mapstructure:"cache" yaml:"cache"`
	Render      RenderConfig           `mapstructure:"render" yaml:"render"`
	Development DevelopmentConfig      `mapstructure:"development" yaml:"development"`
	I18n        I18nConfig             `mapstructure:"i18n" yaml:"i18n"`
	Log         LogConfig              `mapstructure:"log" yaml:"log"`
	Client      map[string]interface{} `mapstructure:"client" yaml:"client"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig controls the rendered-response cache.
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	CapacityBytes int64         `mapstructure:"capacity_bytes" yaml:"capacity_bytes"`
	MaxAge        time.Duration `mapstructure:"max_age" yaml:"max_age"`
}

// RenderConfig controls the multi-round render loop and its data loaders.
type RenderConfig struct {
	MaxRounds      int           `mapstructure:"max_rounds" yaml:"max_rounds"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	LoaderAttempts int           `mapstructure:"loader_attempts" yaml:"loader_attempts"`
	LoaderBackoff  time.Duration `mapstructure:"loader_backoff" yaml:"loader_backoff"`
}

type DevelopmentConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	HotReload  bool          `mapstructure:"hot_reload" yaml:"hot_reload"`
	WatchPaths []string      `mapstructure:"watch_paths" yaml:"watch_paths"`
	Debounce   time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type I18nConfig struct {
	Locales []string `mapstructure:"locales" yaml:"locales"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.capacity_bytes", 64<<20)
	v.SetDefault("cache.max_age", "1m")

	v.SetDefault("render.max_rounds", 5)
	v.SetDefault("render.timeout", "10s")
	v.SetDefault("render.concurrency", 8)
	v.SetDefault("render.loader_attempts", 3)
	v.SetDefault("render.loader_backoff", "100ms")

	v.SetDefault("development.enabled", false)
	v.SetDefault("development.hot_reload", true)
	v.SetDefault("development.watch_paths", []string{"."})
	v.SetDefault("development.debounce", "300ms")

	v.SetDefault("i18n.locales", []string{"en"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom applies defaults to v, unmarshals it and validates the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	// Slices set from env vars arrive as one space separated string.
	if v.IsSet("i18n.locales") {
		cfg.I18n.Locales = v.GetStringSlice("i18n.locales")
	}
	if v.IsSet("development.watch_paths") {
		cfg.Development.WatchPaths = v.GetStringSlice("development.watch_paths")
	}
	if cfg.Client == nil {
		cfg.Client = make(map[string]interface{})
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
