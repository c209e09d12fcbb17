// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package models

import "fmt"

// Tier is the coarse capacity bucket a member occupies.
type Tier string

const (
	// TierActive members are healthy and in good standing.
	TierActive Tier = "active"

	// TierWatch members show declining engagement and are monitored.
	TierWatch Tier = "watch"

	// TierRisk members are candidates for warning and eventual eviction.
	TierRisk Tier = "risk"
)

// Tiers lists all tiers in descending order of standing.
var Tiers = []Tier{TierActive, TierWatch, TierRisk}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierActive, TierWatch, TierRisk:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}

// ParseTier converts a stored string back into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// MemberStatus is the profile-level status maintained by the member directory.
type MemberStatus string

const (
	MemberStatusActive     MemberStatus = "active"
	MemberStatusWaitlisted MemberStatus = "waitlisted"
)
