// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package scoring

import (
	"math"
	"testing"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/models"
)

const scoreTolerance = 1e-9

// testScoringConfig mirrors the shipped defaults so the expected values in
// the tables below stay readable.
func testScoringConfig() *config.ScoringConfig {
	return &config.ScoringConfig{
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
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < scoreTolerance
}

func TestDailyPostScore(t *testing.T) {
	cfg := testScoringConfig()

	tests := []struct {
		name  string
		posts float64
		want  float64
	}{
		{"no posts", 0, 0},
		{"negative guarded", -1, 0},
		{"half of optimal", 1.25, 5},
		{"exactly optimal", 2.5, 10},
		{"slightly over optimal", 3, 9.25},
		{"penalty capped", 100, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dailyPostScore(tt.posts, cfg)
			if !almostEqual(got, tt.want) {
				t.Errorf("dailyPostScore(%v) = %v, want %v", tt.posts, got, tt.want)
			}
		})
	}
}

func TestEngagementScore(t *testing.T) {
	cfg := testScoringConfig()

	tests := []struct {
		name     string
		counters models.ActivityCounters
		want     float64
	}{
		{"no engagement", models.ActivityCounters{}, 0},
		{"at both references", models.ActivityCounters{LikesReceived: 10, CommentsReceived: 5}, 10},
		{"likes saturate above reference", models.ActivityCounters{LikesReceived: 50}, 3},
		{"view bonus alone", models.ActivityCounters{ProfileViews: 20}, 2},
		{"view bonus is uncapped until clamp", models.ActivityCounters{LikesReceived: 10, ProfileViews: 200}, 10},
		{"comments dominate per weights", models.ActivityCounters{CommentsReceived: 5}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engagementScore(&tt.counters, cfg)
			if !almostEqual(got, tt.want) {
				t.Errorf("engagementScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContributionScore(t *testing.T) {
	cfg := testScoringConfig()

	tests := []struct {
		name     string
		counters models.ActivityCounters
		want     float64
	}{
		{"no contribution", models.ActivityCounters{}, 0},
		{"at both references", models.ActivityCounters{LikesGiven: 15, CommentsMade: 8}, 10},
		{"likes given only", models.ActivityCounters{LikesGiven: 15}, 4},
		{"comments made only", models.ActivityCounters{CommentsMade: 4}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := contributionScore(&tt.counters, cfg)
			if !almostEqual(got, tt.want) {
				t.Errorf("contributionScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoginConsistencyScore(t *testing.T) {
	cfg := testScoringConfig()

	tests := []struct {
		name      string
		loginDays int
		want      float64
	}{
		{"no logins", 0, 0},
		{"partial week", 3, 3.0 / 7.0 * 10},
		{"exact target hits the clamp with bonus", 7, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := loginConsistencyScore(tt.loginDays, cfg)
			if !almostEqual(got, tt.want) {
				t.Errorf("loginConsistencyScore(%d) = %v, want %v", tt.loginDays, got, tt.want)
			}
		})
	}
}

func TestLoginBonusOnlyOnExactTarget(t *testing.T) {
	cfg := testScoringConfig()
	cfg.TargetLoginDays = 14

	exact := loginConsistencyScore(14, cfg)
	if !almostEqual(exact, 10) {
		t.Errorf("exact target = %v, want clamped 10", exact)
	}
	nearMiss := loginConsistencyScore(13, cfg)
	if !almostEqual(nearMiss, 13.0/14.0*10) {
		t.Errorf("near miss = %v, want %v without bonus", nearMiss, 13.0/14.0*10)
	}
}

func TestCalculateBounds(t *testing.T) {
	cfg := testScoringConfig()

	idle := Calculate(&models.ActivityCounters{MemberID: "idle"}, cfg)
	if idle.OverallHealthScore != 0 {
		t.Errorf("idle member overall = %v, want 0", idle.OverallHealthScore)
	}

	saturated := Calculate(&models.ActivityCounters{
		MemberID:          "busy",
		PostsPerDay:       2.5,
		LikesReceived:     100,
		CommentsReceived:  100,
		LikesGiven:        100,
		CommentsMade:      100,
		LoginDaysInWindow: 7,
		ProfileViews:      500,
	}, cfg)
	if !almostEqual(saturated.OverallHealthScore, cfg.OverallMax()) {
		t.Errorf("saturated overall = %v, want %v", saturated.OverallHealthScore, cfg.OverallMax())
	}

	for name, sub := range map[string]float64{
		"daily_post":   saturated.DailyPostScore,
		"engagement":   saturated.EngagementScore,
		"contribution": saturated.CommunityContributionScore,
		"login":        saturated.LoginConsistencyScore,
	} {
		if sub < 0 || sub > cfg.MaxSubScore {
			t.Errorf("%s sub-score %v outside [0, %v]", name, sub, cfg.MaxSubScore)
		}
	}
}

func TestCalculateSumsSubScores(t *testing.T) {
	cfg := testScoringConfig()

	got := Calculate(&models.ActivityCounters{
		MemberID:          "m1",
		PostsPerDay:       3,
		LikesReceived:     5,
		CommentsReceived:  2,
		LikesGiven:        6,
		CommentsMade:      4,
		LoginDaysInWindow: 5,
		ProfileViews:      10,
	}, cfg)

	sum := got.DailyPostScore + got.EngagementScore +
		got.CommunityContributionScore + got.LoginConsistencyScore
	if !almostEqual(got.OverallHealthScore, sum) {
		t.Errorf("overall = %v, want sum of sub-scores %v", got.OverallHealthScore, sum)
	}
	if got.MemberID != "m1" {
		t.Errorf("member id = %q, want m1", got.MemberID)
	}
	if got.CalculatedAt.IsZero() {
		t.Error("CalculatedAt not set")
	}
}
