// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package models

import "time"

// WaitlistEntry is the holding record for an evicted member. Created on
// eviction, deleted on reactivation.
type WaitlistEntry struct {
	MemberID string `json:"member_id"`

	// Reason is the short machine-readable eviction reason.
	Reason string `json:"reason"`

	// ScoreWhenMoved is the overall health score at eviction time.
	ScoreWhenMoved float64 `json:"score_when_moved"`

	// CanReapplyAfter gates reactivation: eviction time plus the configured
	// cooldown.
	CanReapplyAfter time.Time `json:"can_reapply_after"`

	// PriorityScore orders the waitlist pull, highest first.
	PriorityScore float64 `json:"priority_score"`

	CreatedAt time.Time `json:"created_at"`
}

// CommunitySnapshot is the ephemeral community-wide aggregate, recomputed on
// every control-loop run.
type CommunitySnapshot struct {
	TotalMembers int `json:"total_members"`

	TierCounts map[Tier]int     `json:"tier_counts"`
	TierRatios map[Tier]float64 `json:"tier_ratios"`

	// IsOverCapacity flags total membership above the configured ceiling.
	// The ceiling is a target the evaluator flags, not a hard enforced cap.
	IsOverCapacity bool `json:"is_over_capacity"`

	// NeedsRebalancing flags a tier ratio outside its dead-band.
	NeedsRebalancing bool `json:"needs_rebalancing"`

	TakenAt time.Time `json:"taken_at"`
}

// RotationAction is the kind of decision recorded in the rotation log.
type RotationAction string

const (
	ActionTierChanged RotationAction = "tier_changed"
	ActionWarned      RotationAction = "warned"
	ActionEvicted     RotationAction = "evicted"
	ActionReactivated RotationAction = "reactivated"
	ActionMonitored   RotationAction = "monitored"
)

// RotationLogEntry is one immutable row of the append-only rotation audit log.
// The log exists for audit only; current tier is always read from the member
// record, never reconstructed from the log.
type RotationLogEntry struct {
	ID            string         `json:"id"`
	MemberID      string         `json:"member_id"`
	ActionType    RotationAction `json:"action_type"`
	FromTier      Tier           `json:"from_tier,omitempty"`
	ToTier        Tier           `json:"to_tier,omitempty"`
	Reason        string         `json:"reason"`
	ScoreAtAction float64        `json:"score_at_action"`
	Timestamp     time.Time      `json:"timestamp"`
}
