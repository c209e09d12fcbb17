// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/coterie/config.yaml",
	"/etc/coterie/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces all environment overrides, e.g.
// COTERIE_TIERS_CEILING=500 -> tiers.ceiling.
const envPrefix = "COTERIE_"

// defaultConfig returns a Config with every tunable set to its documented
// default. Defaults are applied first, then overridden by file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "/data/coterie.duckdb",
			MaxMemory:    "1GB",
			Threads:      0, // 0 = runtime.NumCPU()
			MaxOpenConns: 8,
		},
		Lease: LeaseConfig{
			Path: "/data/lease",
			TTL:  10 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3858,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			CacheTTL:        15 * time.Second,
		},
		Scoring: ScoringConfig{
			WindowDays:          7,
			MaxSubScore:         10,
			OptimalPostsPerDay:  2.5,
			OverPostPenaltyRate: 1.5,
			OverPostPenaltyCap:  0.3,
			OverPostScoreFloor:  0.5,

			LikesReceivedReference:    10,
			CommentsReceivedReference: 5,
			LikesReceivedWeight:       0.3,
			CommentsReceivedWeight:    0.7,
			ProfileViewsReference:     20,
			ViewBonusShare:            0.2,

			LikesGivenReference:   15,
			CommentsMadeReference: 8,
			LikesGivenWeight:      0.4,
			CommentsMadeWeight:    0.6,

			TargetLoginDays: 7,
			ExactLoginBonus: 0.1,

			Workers:       8,
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
			RunTimeout:    10 * time.Minute,
		},
		Tiers: TiersConfig{
			ActiveThreshold: 30,
			WatchThreshold:  20,
			Ceiling:         500,
			TargetActivePct: 60,
			TargetWatchPct:  25,
			TargetRiskPct:   15,
			TolerancePct:    5,
		},
		Rotation: RotationConfig{
			WarningPeriodDays:   14,
			GracePeriodDays:     28,
			ReapplyCooldownDays: 30,
			RunInterval:         time.Hour,
		},
		Highlight: HighlightConfig{
			MaxHighlights:         1,
			RecencyWeight:         0.2,
			QualityWeight:         0.3,
			JitterWithQuality:     0.025,
			JitterWithoutQuality:  0.05,
			RefreshInterval:       15 * time.Minute,
			EligibilityWindowDays: 30,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			MaxRequests:      1,
		},
		Notify: NotifyConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Subject: "coterie.notifications",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file
//  3. Environment variables: COTERIE_* overrides (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Broken deployment config must fail the process before any mutation.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransformFunc maps environment variable names to koanf paths.
// The first underscore after the prefix separates the section:
// COTERIE_TIERS_ACTIVE_THRESHOLD -> tiers.active_threshold.
func envTransformFunc(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
