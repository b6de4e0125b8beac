package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/conneroisu/isorender/internal/errors"
	"github.com/conneroisu/isorender/internal/logging"
)

const maxRenderRounds = 50

// Validate checks every section and returns the first problem found.
func Validate(cfg *Config) error {
	checks := []func(*Config) error{
		validateServer,
		validateCache,
		validateRender,
		validateDevelopment,
		validateI18n,
		validateLog,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field, format string, args ...interface{}) *errors.Error {
	return errors.NewConfigError(errors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...)).
		WithContext("field", field)
}

func validateServer(cfg *Config) error {
	s := cfg.Server
	// 0 lets the OS pick a port, used by tests.
	if s.Port < 0 || s.Port > 65535 {
		return invalid("server.port", "port %d is not in valid range 0-65535", s.Port)
	}
	if strings.ContainsAny(s.Host, ";&|$`()<>\"'\\ ") {
		return invalid("server.host", "host %q contains invalid characters", s.Host)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		return invalid("server", "timeouts must not be negative")
	}
	return nil
}

func validateCache(cfg *Config) error {
	c := cfg.Cache
	if !c.Enabled {
		return nil
	}
	if c.CapacityBytes <= 0 {
		return invalid("cache.capacity_bytes", "capacity must be positive when the cache is enabled, got %d", c.CapacityBytes)
	}
	if c.MaxAge <= 0 {
		return invalid("cache.max_age", "max age must be positive when the cache is enabled, got %s", c.MaxAge)
	}
	return nil
}

func validateRender(cfg *Config) error {
	r := cfg.Render
	if r.MaxRounds < 1 || r.MaxRounds > maxRenderRounds {
		return invalid("render.max_rounds", "max rounds %d is not in valid range 1-%d", r.MaxRounds, maxRenderRounds)
	}
	if r.Timeout < 0 {
		return invalid("render.timeout", "timeout must not be negative")
	}
	if r.Concurrency < 1 {
		return invalid("render.concurrency", "concurrency must be at least 1, got %d", r.Concurrency)
	}
	if r.LoaderAttempts < 1 {
		return invalid("render.loader_attempts", "loader attempts must be at least 1, got %d", r.LoaderAttempts)
	}
	if r.LoaderBackoff < 0 {
		return invalid("render.loader_backoff", "loader backoff must not be negative")
	}
	return nil
}

func validateDevelopment(cfg *Config) error {
	for _, path := range cfg.Development.WatchPaths {
		if path == "" {
			return invalid("development.watch_paths", "empty watch path")
		}
		if strings.Contains(filepath.Clean(path), "..") {
			return invalid("development.watch_paths", "watch path %q contains traversal", path)
		}
	}
	return nil
}

func validateI18n(cfg *Config) error {
	if len(cfg.I18n.Locales) == 0 {
		return invalid("i18n.locales", "at least one locale is required")
	}
	for _, locale := range cfg.I18n.Locales {
		if _, err := language.Parse(locale); err != nil {
			return invalid("i18n.locales", "locale %q is not a valid BCP 47 tag", locale).WithCause(err)
		}
	}
	return nil
}

func validateLog(cfg *Config) error {
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return invalid("log.level", "%v", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
		return nil
	default:
		return invalid("log.format", "log format %q must be text or json", cfg.Log.Format)
	}
}

// Tags parses the configured locales. The first tag is the fallback.
func (c I18nConfig) Tags() []language.Tag {
	tags := make([]language.Tag, 0, len(c.Locales))
	for _, locale := range c.Locales {
		if tag, err := language.Parse(locale); err == nil {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		tags = append(tags, language.English)
	}
	return tags
}

// NewLogger builds the application logger described by the log section.
func (c LogConfig) NewLogger() *logging.StructuredLogger {
	level, _ := logging.ParseLevel(c.Level)
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: c.Format,
	})
}
