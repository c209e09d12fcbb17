// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package config

import (
	"fmt"
	"math"
)

// ratioSumEpsilon tolerates float drift when checking that the tier target
// ratios sum to 100 points.
const ratioSumEpsilon = 0.001

// Validate checks that the configuration describes a sane deployment.
// A validation failure here aborts startup before any mutation.
func (c *Config) Validate() error {
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateTiers(); err != nil {
		return err
	}
	if err := c.validateRotation(); err != nil {
		return err
	}
	if err := c.validateHighlight(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateScoring() error {
	s := c.Scoring
	if s.MaxSubScore <= 0 {
		return fmt.Errorf("scoring.max_sub_score must be positive, got %v", s.MaxSubScore)
	}
	if s.OptimalPostsPerDay <= 0 {
		return fmt.Errorf("scoring.optimal_posts_per_day must be positive, got %v", s.OptimalPostsPerDay)
	}
	if sum := s.LikesReceivedWeight + s.CommentsReceivedWeight; math.Abs(sum-1) > ratioSumEpsilon {
		return fmt.Errorf("scoring received-signal weights must sum to 1, got %v", sum)
	}
	if sum := s.LikesGivenWeight + s.CommentsMadeWeight; math.Abs(sum-1) > ratioSumEpsilon {
		return fmt.Errorf("scoring outbound-signal weights must sum to 1, got %v", sum)
	}
	for name, ref := range map[string]float64{
		"likes_received_reference":    s.LikesReceivedReference,
		"comments_received_reference": s.CommentsReceivedReference,
		"profile_views_reference":     s.ProfileViewsReference,
		"likes_given_reference":       s.LikesGivenReference,
		"comments_made_reference":     s.CommentsMadeReference,
	} {
		if ref <= 0 {
			return fmt.Errorf("scoring.%s must be positive, got %v", name, ref)
		}
	}
	if s.TargetLoginDays <= 0 {
		return fmt.Errorf("scoring.target_login_days must be positive, got %d", s.TargetLoginDays)
	}
	if s.Workers < 1 {
		return fmt.Errorf("scoring.workers must be at least 1, got %d", s.Workers)
	}
	if s.WindowDays <= 0 {
		return fmt.Errorf("scoring.window_days must be positive, got %d", s.WindowDays)
	}
	return nil
}

func (c *Config) validateTiers() error {
	t := c.Tiers
	if t.Ceiling <= 0 {
		return fmt.Errorf("tiers.ceiling must be positive, got %d", t.Ceiling)
	}
	if t.WatchThreshold <= 0 || t.ActiveThreshold <= t.WatchThreshold {
		return fmt.Errorf("tier thresholds must satisfy 0 < watch (%v) < active (%v)",
			t.WatchThreshold, t.ActiveThreshold)
	}
	if t.ActiveThreshold > c.Scoring.OverallMax() {
		return fmt.Errorf("tiers.active_threshold %v exceeds the overall score bound %v",
			t.ActiveThreshold, c.Scoring.OverallMax())
	}
	sum := t.TargetActivePct + t.TargetWatchPct + t.TargetRiskPct
	if math.Abs(sum-100) > ratioSumEpsilon {
		return fmt.Errorf("tier target ratios must sum to 100 points, got %v", sum)
	}
	if t.TolerancePct < 0 {
		return fmt.Errorf("tiers.tolerance_pct must not be negative, got %v", t.TolerancePct)
	}
	return nil
}

func (c *Config) validateRotation() error {
	r := c.Rotation
	if r.WarningPeriodDays <= 0 || r.GracePeriodDays <= 0 {
		return fmt.Errorf("rotation periods must be positive, got warning=%d grace=%d",
			r.WarningPeriodDays, r.GracePeriodDays)
	}
	if r.WarningPeriodDays >= r.GracePeriodDays {
		return fmt.Errorf("rotation.warning_period_days (%d) must be shorter than grace_period_days (%d)",
			r.WarningPeriodDays, r.GracePeriodDays)
	}
	if r.ReapplyCooldownDays <= 0 {
		return fmt.Errorf("rotation.reapply_cooldown_days must be positive, got %d", r.ReapplyCooldownDays)
	}
	if r.RunInterval <= 0 {
		return fmt.Errorf("rotation.run_interval must be positive, got %v", r.RunInterval)
	}
	return nil
}

func (c *Config) validateHighlight() error {
	h := c.Highlight
	if h.MaxHighlights < 1 {
		return fmt.Errorf("highlight.max_highlights must be at least 1, got %d", h.MaxHighlights)
	}
	if h.RecencyWeight < 0 || h.QualityWeight < 0 || h.RecencyWeight+h.QualityWeight >= 1 {
		return fmt.Errorf("highlight weights must be non-negative and sum below 1, got recency=%v quality=%v",
			h.RecencyWeight, h.QualityWeight)
	}
	if h.JitterWithQuality < 0 || h.JitterWithQuality > 0.5 {
		return fmt.Errorf("highlight.jitter_with_quality must be in [0, 0.5], got %v", h.JitterWithQuality)
	}
	if h.JitterWithoutQuality < 0 || h.JitterWithoutQuality > 0.5 {
		return fmt.Errorf("highlight.jitter_without_quality must be in [0, 0.5], got %v", h.JitterWithoutQuality)
	}
	if h.RefreshInterval <= 0 {
		return fmt.Errorf("highlight.refresh_interval must be positive, got %v", h.RefreshInterval)
	}
	if h.EligibilityWindowDays <= 0 {
		return fmt.Errorf("highlight.eligibility_window_days must be positive, got %d", h.EligibilityWindowDays)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes must satisfy 1 <= default (%d) <= max (%d)",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	if c.API.CacheTTL < 0 {
		return fmt.Errorf("api.cache_ttl must be non-negative, got %v", c.API.CacheTTL)
	}
	if c.Lease.TTL <= 0 {
		return fmt.Errorf("lease.ttl must be positive, got %v", c.Lease.TTL)
	}
	return nil
}
