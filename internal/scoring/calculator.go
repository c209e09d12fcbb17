// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package scoring computes per-member engagement scores, classifies members
// into capacity tiers, and runs the full-population scoring batch.
//
// Calculate and Classify are pure functions; every weight and reference value
// comes from the injected configuration. The batch engine layers persistence,
// bounded retry, and a worker pool on top.
package scoring

import (
	"math"
	"time"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/models"
)

// Calculate derives the four sub-scores and the overall health score from a
// member's trailing-window activity counters. Pure arithmetic; negative
// counters must be prevented upstream.
func Calculate(counters *models.ActivityCounters, cfg *config.ScoringConfig) models.ActivityScore {
	s := models.ActivityScore{
		MemberID:     counters.MemberID,
		CalculatedAt: time.Now(),
	}

	s.DailyPostScore = dailyPostScore(counters.PostsPerDay, cfg)
	s.EngagementScore = engagementScore(counters, cfg)
	s.CommunityContributionScore = contributionScore(counters, cfg)
	s.LoginConsistencyScore = loginConsistencyScore(counters.LoginDaysInWindow, cfg)

	sum := s.DailyPostScore + s.EngagementScore + s.CommunityContributionScore + s.LoginConsistencyScore
	s.OverallHealthScore = clamp(sum, 0, cfg.OverallMax())

	return s
}

// dailyPostScore rewards posting up to the optimal rate linearly and
// penalizes over-posting, never dropping below half credit.
func dailyPostScore(posts float64, cfg *config.ScoringConfig) float64 {
	max := cfg.MaxSubScore

	switch {
	case posts <= 0:
		return 0
	case posts <= cfg.OptimalPostsPerDay:
		return (posts / cfg.OptimalPostsPerDay) * max
	default:
		excess := posts - cfg.OptimalPostsPerDay
		penalty := math.Min(excess*cfg.OverPostPenaltyRate, max*cfg.OverPostPenaltyCap)
		return math.Max(max-penalty, max*cfg.OverPostScoreFloor)
	}
}

// engagementScore blends normalized received likes and comments, then adds an
// uncapped profile-view bonus that can push the score above the base terms.
// The total is clamped to the sub-score bound.
func engagementScore(c *models.ActivityCounters, cfg *config.ScoringConfig) float64 {
	max := cfg.MaxSubScore

	likes := normalize(float64(c.LikesReceived), cfg.LikesReceivedReference)
	comments := normalize(float64(c.CommentsReceived), cfg.CommentsReceivedReference)
	base := (cfg.LikesReceivedWeight*likes + cfg.CommentsReceivedWeight*comments) * max

	// The view bonus is deliberately not normalized to 1: heavy profile
	// traffic keeps adding credit until the clamp.
	viewBonus := (float64(c.ProfileViews) / cfg.ProfileViewsReference) * (max * cfg.ViewBonusShare)

	return clamp(base+viewBonus, 0, max)
}

// contributionScore is the symmetric outbound measure of engagementScore:
// likes given and comments made.
func contributionScore(c *models.ActivityCounters, cfg *config.ScoringConfig) float64 {
	max := cfg.MaxSubScore

	likes := normalize(float64(c.LikesGiven), cfg.LikesGivenReference)
	comments := normalize(float64(c.CommentsMade), cfg.CommentsMadeReference)

	return clamp((cfg.LikesGivenWeight*likes+cfg.CommentsMadeWeight*comments)*max, 0, max)
}

// loginConsistencyScore scales login days against the target, with a flat
// bonus only when the member logged in on exactly every target day.
func loginConsistencyScore(loginDays int, cfg *config.ScoringConfig) float64 {
	max := cfg.MaxSubScore

	score := (float64(loginDays) / float64(cfg.TargetLoginDays)) * max
	if loginDays == cfg.TargetLoginDays {
		score += max * cfg.ExactLoginBonus
	}
	return clamp(score, 0, max)
}

// normalize maps count onto [0,1] against a reference value.
func normalize(count, reference float64) float64 {
	return math.Min(count/reference, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
