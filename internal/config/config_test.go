/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HEIRLOOM_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CalendarTimezone != "UTC" || cfg.CalendarIntervalDays != 7 || cfg.CalendarDayCapacity != 3 {
		t.Fatalf("unexpected calendar defaults: %+v", cfg)
	}
	if cfg.CalendarCapacityTries != 50 || cfg.CalendarMaxProbes != 10000 || cfg.CalendarLockTTL != 2*time.Minute {
		t.Fatalf("unexpected search defaults: %+v", cfg)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("Location() = %v, want UTC", cfg.Location())
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("HEIRLOOM_DB_DSN", "")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DSN")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/heirloom")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN != "postgres://localhost/heirloom" {
		t.Fatalf("DBDSN = %q", cfg.DBDSN)
	}
}

func TestLoadValidatesCalendarSettings(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"HEIRLOOM_CALENDAR_TIMEZONE", "Mars/Olympus_Mons"},
		{"HEIRLOOM_CALENDAR_INTERVAL_DAYS", "0"},
		{"HEIRLOOM_CALENDAR_DAY_CAPACITY", "-1"},
		{"HEIRLOOM_CALENDAR_SOCIAL_SPACING_DAYS", "-2"},
		{"HEIRLOOM_DB_BACKEND", "oracle"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("HEIRLOOM_DB_DSN", "file::memory:")
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadParsesDurationsAndBools(t *testing.T) {
	t.Setenv("HEIRLOOM_DB_DSN", "file::memory:")
	t.Setenv("HEIRLOOM_CALENDAR_LOCK_ENABLED", "yes")
	t.Setenv("HEIRLOOM_CALENDAR_LOCK_TTL", "45")
	t.Setenv("HEIRLOOM_CALENDAR_TIMEZONE", "America/New_York")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.CalendarLockEnabled || cfg.CalendarLockTTL != 45*time.Second {
		t.Fatalf("lock settings = %v %v", cfg.CalendarLockEnabled, cfg.CalendarLockTTL)
	}
	if cfg.Location().String() != "America/New_York" {
		t.Fatalf("Location() = %v", cfg.Location())
	}
}

func TestSchedulingOptions(t *testing.T) {
	t.Setenv("HEIRLOOM_DB_DSN", "file::memory:")
	t.Setenv("HEIRLOOM_CALENDAR_SOCIAL_POSTS", "5")
	t.Setenv("HEIRLOOM_CALENDAR_SOCIAL_WINDOW_DAYS", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	opts := cfg.SchedulingOptions()
	if opts.DefaultSocialPosts != 5 || opts.SocialWindowDays != 14 || opts.DayCapacity != 3 {
		t.Fatalf("options = %+v", opts)
	}
}

func TestValidateServe(t *testing.T) {
	cfg := &Config{Environment: "development"}
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("expected error without signing key")
	}
	cfg.JWTSigningKey = "short"
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("development should accept short key: %v", err)
	}
	cfg.Environment = "production"
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("production should reject short key")
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("HEIRLOOM_DB_DSN", "file::memory:")
	t.Setenv("JWT_SIGNING_KEY", "legacy")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.LegacyEnvWarnings) == 0 {
		t.Fatal("expected legacy env warnings")
	}
}
