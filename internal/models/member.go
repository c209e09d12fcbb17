// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package models

import "time"

// Member is the per-member capacity record. It is owned by the rotation
// controller and mutated only through tier-transition operations; a member is
// never deleted, only moved to the waitlist.
type Member struct {
	// ID is the platform-wide member identifier.
	ID string `json:"id"`

	// CurrentTier is the tier the member occupies right now. A member has
	// exactly one tier at any time.
	CurrentTier Tier `json:"current_tier"`

	// TierEnteredAt tracks the last tier transition, not the last evaluation.
	TierEnteredAt time.Time `json:"tier_entered_at"`

	// HealthScore is the most recent overall health score, bounded [0,40].
	HealthScore float64 `json:"health_score"`

	// WarningSentAt is set once when an eviction warning is sent and cleared
	// when the member leaves the risk tier. Nil means no warning outstanding.
	WarningSentAt *time.Time `json:"warning_sent_at,omitempty"`

	// RiskTierStartedAt is set exactly once on entering the risk tier and
	// cleared on leaving it.
	RiskTierStartedAt *time.Time `json:"risk_tier_started_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// InRiskLongerThan reports whether the member has been in the risk tier for at
// least d as of now. Members outside the risk tier are never overdue.
func (m *Member) InRiskLongerThan(now time.Time, d time.Duration) bool {
	if m.CurrentTier != TierRisk || m.RiskTierStartedAt == nil {
		return false
	}
	return now.Sub(*m.RiskTierStartedAt) >= d
}

// ActivityCounters are the trailing-window raw engagement counts for one
// member, produced by the external event log. Read-only input.
type ActivityCounters struct {
	MemberID          string  `json:"member_id"`
	PostsPerDay       float64 `json:"posts_per_day"`
	LikesReceived     int     `json:"likes_received"`
	CommentsReceived  int     `json:"comments_received"`
	LikesGiven        int     `json:"likes_given"`
	CommentsMade      int     `json:"comments_made"`
	LoginDaysInWindow int     `json:"login_days_in_window"`
	ProfileViews      int     `json:"profile_views"`
}

// ActivityScore is the derived score for the most recent window. No history
// is retained; each evaluation overwrites the previous one.
type ActivityScore struct {
	MemberID string `json:"member_id"`

	// Sub-scores, each bounded [0,10].
	DailyPostScore             float64 `json:"daily_post_score"`
	EngagementScore            float64 `json:"engagement_score"`
	CommunityContributionScore float64 `json:"community_contribution_score"`
	LoginConsistencyScore      float64 `json:"login_consistency_score"`

	// OverallHealthScore is the sum of the sub-scores, bounded [0,40].
	OverallHealthScore float64 `json:"overall_health_score"`

	CalculatedAt time.Time `json:"calculated_at"`
}
