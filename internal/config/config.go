/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/heirloom/internal/scheduling"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string

	// Content calendar
	CalendarTimezone      string
	CalendarIntervalDays  int
	CalendarMaxProbes     int
	CalendarDayCapacity   int
	CalendarCapacityTries int
	CalendarSocialWindow  int
	CalendarSocialSpacing int
	CalendarSocialPosts   int
	CalendarLockEnabled   bool
	CalendarLockTTL       time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string // empty disables event forwarding
	InstanceID    string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"HEIRLOOM_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"HEIRLOOM_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"HEIRLOOM_HTTP_PORT", "PORT"}, 8080),
		DBBackend:     DatabaseBackend(getEnvAny([]string{"HEIRLOOM_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:         getEnvAny([]string{"HEIRLOOM_DB_DSN", "DATABASE_URL"}, ""),
		JWTSigningKey: getEnvAny([]string{"HEIRLOOM_JWT_SIGNING_KEY"}, ""),

		CalendarTimezone:      getEnvAny([]string{"HEIRLOOM_CALENDAR_TIMEZONE"}, "UTC"),
		CalendarIntervalDays:  getEnvIntAny([]string{"HEIRLOOM_CALENDAR_INTERVAL_DAYS"}, 7),
		CalendarMaxProbes:     getEnvIntAny([]string{"HEIRLOOM_CALENDAR_MAX_PROBES"}, 10000),
		CalendarDayCapacity:   getEnvIntAny([]string{"HEIRLOOM_CALENDAR_DAY_CAPACITY"}, 3),
		CalendarCapacityTries: getEnvIntAny([]string{"HEIRLOOM_CALENDAR_CAPACITY_ATTEMPTS"}, 50),
		CalendarSocialWindow:  getEnvIntAny([]string{"HEIRLOOM_CALENDAR_SOCIAL_WINDOW_DAYS"}, 30),
		CalendarSocialSpacing: getEnvIntAny([]string{"HEIRLOOM_CALENDAR_SOCIAL_SPACING_DAYS"}, 2),
		CalendarSocialPosts:   getEnvIntAny([]string{"HEIRLOOM_CALENDAR_SOCIAL_POSTS"}, 3),
		CalendarLockEnabled:   getEnvBoolAny([]string{"HEIRLOOM_CALENDAR_LOCK_ENABLED"}, false),
		CalendarLockTTL:       getEnvDurationAny([]string{"HEIRLOOM_CALENDAR_LOCK_TTL"}, 2*time.Minute),

		TracingEnabled:    getEnvBoolAny([]string{"HEIRLOOM_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"HEIRLOOM_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"HEIRLOOM_TRACING_SAMPLE_RATE"}, 1.0),

		RedisAddr:     getEnvAny([]string{"HEIRLOOM_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"HEIRLOOM_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"HEIRLOOM_REDIS_DB"}, 0),
		NATSURL:       getEnvAny([]string{"HEIRLOOM_NATS_URL"}, ""),
		InstanceID:    getEnvAny([]string{"HEIRLOOM_INSTANCE_ID"}, ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("HEIRLOOM_DB_DSN must be provided")
	}

	if _, err := time.LoadLocation(cfg.CalendarTimezone); err != nil {
		return nil, fmt.Errorf("HEIRLOOM_CALENDAR_TIMEZONE: %w", err)
	}

	for name, v := range map[string]int{
		"HEIRLOOM_CALENDAR_INTERVAL_DAYS":      cfg.CalendarIntervalDays,
		"HEIRLOOM_CALENDAR_MAX_PROBES":         cfg.CalendarMaxProbes,
		"HEIRLOOM_CALENDAR_DAY_CAPACITY":       cfg.CalendarDayCapacity,
		"HEIRLOOM_CALENDAR_CAPACITY_ATTEMPTS":  cfg.CalendarCapacityTries,
		"HEIRLOOM_CALENDAR_SOCIAL_WINDOW_DAYS": cfg.CalendarSocialWindow,
	} {
		if v < 1 {
			return nil, fmt.Errorf("%s must be at least 1, got %d", name, v)
		}
	}
	if cfg.CalendarSocialSpacing < 0 || cfg.CalendarSocialPosts < 0 {
		return nil, fmt.Errorf("HEIRLOOM_CALENDAR_SOCIAL_SPACING_DAYS and HEIRLOOM_CALENDAR_SOCIAL_POSTS must not be negative")
	}

	if cfg.CalendarLockEnabled && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("HEIRLOOM_REDIS_ADDR is required when HEIRLOOM_CALENDAR_LOCK_ENABLED is set")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

// ValidateServe checks settings only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if c.JWTSigningKey == "" {
		return fmt.Errorf("HEIRLOOM_JWT_SIGNING_KEY must be provided")
	}
	if strings.EqualFold(c.Environment, "production") && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("HEIRLOOM_JWT_SIGNING_KEY must be at least 32 bytes in production")
	}
	return nil
}

// Location returns the calendar timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.CalendarTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SchedulingOptions maps the calendar settings onto the scheduler tuning.
func (c *Config) SchedulingOptions() scheduling.Options {
	return scheduling.Options{
		DefaultIntervalDays: c.CalendarIntervalDays,
		MaxProbes:           c.CalendarMaxProbes,
		DayCapacity:         c.CalendarDayCapacity,
		CapacityAttempts:    c.CalendarCapacityTries,
		SocialWindowDays:    c.CalendarSocialWindow,
		SocialSpacingDays:   c.CalendarSocialSpacing,
		DefaultSocialPosts:  c.CalendarSocialPosts,
	}
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"JWT_SIGNING_KEY":     "use HEIRLOOM_JWT_SIGNING_KEY",
		"TRACING_ENABLED":     "use HEIRLOOM_TRACING_ENABLED",
		"CALENDAR_TIMEZONE":   "use HEIRLOOM_CALENDAR_TIMEZONE",
		"REDIS_ADDR":          "use HEIRLOOM_REDIS_ADDR",
		"NATS_URL":            "use HEIRLOOM_NATS_URL",
		"TRACING_SAMPLE_RATE": "use HEIRLOOM_TRACING_SAMPLE_RATE",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("unprefixed env key %s is ignored; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny accepts Go durations ("90s") or bare seconds.
func getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
