// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package config

import "time"

// Config holds all application configuration loaded from defaults, an optional
// YAML config file, and environment variables (highest priority).
//
// Every numeric tunable of the capacity engine lives here rather than in code:
// scoring weights and reference values, tier thresholds and target ratios, the
// rotation timers, and the highlight selection knobs are all operator-visible
// business decisions.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Lease     LeaseConfig     `koanf:"lease"`
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Tiers     TiersConfig     `koanf:"tiers"`
	Rotation  RotationConfig  `koanf:"rotation"`
	Highlight HighlightConfig `koanf:"highlight"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Notify    NotifyConfig    `koanf:"notify"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the database file location.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count; 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`

	// MaxOpenConns bounds the sql.DB pool. The scoring worker pool is sized
	// to this limit.
	MaxOpenConns int `koanf:"max_open_conns"`
}

// LeaseConfig configures the BadgerDB-backed run lease.
type LeaseConfig struct {
	// Path is the badger directory for lease state.
	Path string `koanf:"path"`

	// TTL is the lease lifetime. A stuck run is reclaimed after TTL expires.
	TTL time.Duration `koanf:"ttl"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// APIConfig configures pagination and response caching for the read-only
// query endpoints.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// CacheTTL bounds staleness of cached snapshot/highlight responses.
	// Zero disables response caching.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// ScoringConfig holds the score calculator weights and reference values plus
// the scoring batch parameters.
type ScoringConfig struct {
	// WindowDays is the trailing activity window.
	WindowDays int `koanf:"window_days"`

	// MaxSubScore bounds each sub-score; the overall score is bounded by
	// four times this value.
	MaxSubScore float64 `koanf:"max_sub_score"`

	// Daily post score.
	OptimalPostsPerDay  float64 `koanf:"optimal_posts_per_day"`
	OverPostPenaltyRate float64 `koanf:"over_post_penalty_rate"`
	OverPostPenaltyCap  float64 `koanf:"over_post_penalty_cap"`  // share of max
	OverPostScoreFloor  float64 `koanf:"over_post_score_floor"`  // share of max

	// Engagement score (received signals).
	LikesReceivedReference    float64 `koanf:"likes_received_reference"`
	CommentsReceivedReference float64 `koanf:"comments_received_reference"`
	LikesReceivedWeight       float64 `koanf:"likes_received_weight"`
	CommentsReceivedWeight    float64 `koanf:"comments_received_weight"`
	ProfileViewsReference     float64 `koanf:"profile_views_reference"`
	ViewBonusShare            float64 `koanf:"view_bonus_share"` // share of max

	// Community contribution score (outbound signals).
	LikesGivenReference   float64 `koanf:"likes_given_reference"`
	CommentsMadeReference float64 `koanf:"comments_made_reference"`
	LikesGivenWeight      float64 `koanf:"likes_given_weight"`
	CommentsMadeWeight    float64 `koanf:"comments_made_weight"`

	// Login consistency score.
	TargetLoginDays  int     `koanf:"target_login_days"`
	ExactLoginBonus  float64 `koanf:"exact_login_bonus"` // share of max

	// Batch execution.
	Workers       int           `koanf:"workers"`
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
	RunTimeout    time.Duration `koanf:"run_timeout"`
}

// OverallMax returns the upper bound of the overall health score.
func (s ScoringConfig) OverallMax() float64 {
	return 4 * s.MaxSubScore
}

// TiersConfig holds the classifier thresholds and the community-level capacity
// targets.
type TiersConfig struct {
	// ActiveThreshold and WatchThreshold partition the overall score range:
	// score >= ActiveThreshold -> active, >= WatchThreshold -> watch,
	// otherwise risk. Lower boundaries are inclusive.
	ActiveThreshold float64 `koanf:"active_threshold"`
	WatchThreshold  float64 `koanf:"watch_threshold"`

	// Ceiling is the membership target the evaluator flags when exceeded.
	Ceiling int `koanf:"ceiling"`

	// Target ratios per tier, in percentage points. Must sum to 100.
	TargetActivePct float64 `koanf:"target_active_pct"`
	TargetWatchPct  float64 `koanf:"target_watch_pct"`
	TargetRiskPct   float64 `koanf:"target_risk_pct"`

	// TolerancePct is the dead-band: a tier ratio must deviate from its
	// target by more than this many points before a rebalance is flagged.
	TolerancePct float64 `koanf:"tolerance_pct"`
}

// RotationConfig holds the control-loop timers.
type RotationConfig struct {
	WarningPeriodDays   int `koanf:"warning_period_days"`
	GracePeriodDays     int `koanf:"grace_period_days"`
	ReapplyCooldownDays int `koanf:"reapply_cooldown_days"`

	// RunInterval is the scheduled cadence of the full control-loop pass.
	RunInterval time.Duration `koanf:"run_interval"`
}

// WarningPeriod returns the warning deadline as a duration.
func (r RotationConfig) WarningPeriod() time.Duration {
	return time.Duration(r.WarningPeriodDays) * 24 * time.Hour
}

// GracePeriod returns the eviction deadline as a duration.
func (r RotationConfig) GracePeriod() time.Duration {
	return time.Duration(r.GracePeriodDays) * 24 * time.Hour
}

// ReapplyCooldown returns the waitlist cooldown as a duration.
func (r RotationConfig) ReapplyCooldown() time.Duration {
	return time.Duration(r.ReapplyCooldownDays) * 24 * time.Hour
}

// HighlightConfig holds the highlight selector knobs.
type HighlightConfig struct {
	// MaxHighlights bounds the persisted highlight set per refresh.
	MaxHighlights int `koanf:"max_highlights"`

	// Heuristic-path blend weights. The engagement blend receives the
	// remainder 1 - RecencyWeight - QualityWeight.
	RecencyWeight float64 `koanf:"recency_weight"`
	QualityWeight float64 `koanf:"quality_weight"`

	// Symmetric score jitter, as a fraction of the score range.
	JitterWithQuality    float64 `koanf:"jitter_with_quality"`
	JitterWithoutQuality float64 `koanf:"jitter_without_quality"`

	// RefreshInterval is the scheduled cadence of highlight refreshes.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// EligibilityWindowDays bounds how old a content item may be and still
	// enter the candidate pool.
	EligibilityWindowDays int `koanf:"eligibility_window_days"`
}

// BreakerConfig configures the circuit breaker around the activity counter
// source.
type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	MaxRequests      uint32        `koanf:"max_requests"`
}

// NotifyConfig configures the warning notification sink.
type NotifyConfig struct {
	// Enabled switches between the NATS sink and a log-only sink.
	Enabled bool `koanf:"enabled"`

	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
