// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package community

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/models"
)

type mockSnapshotStore struct {
	counts    map[models.Tier]int
	waitlist  int
	snapshots []models.CommunitySnapshot
}

func (s *mockSnapshotStore) CountMembersByTier(_ context.Context) (map[models.Tier]int, error) {
	return s.counts, nil
}

func (s *mockSnapshotStore) SaveSnapshot(_ context.Context, snap *models.CommunitySnapshot) error {
	s.snapshots = append(s.snapshots, *snap)
	return nil
}

func (s *mockSnapshotStore) CountWaitlist(_ context.Context) (int, error) {
	return s.waitlist, nil
}

func testTiersConfig() *config.TiersConfig {
	return &config.TiersConfig{
		ActiveThreshold: 30,
		WatchThreshold:  20,
		Ceiling:         500,
		TargetActivePct: 60,
		TargetWatchPct:  25,
		TargetRiskPct:   15,
		TolerancePct:    5,
	}
}

func newTestEvaluator(store *mockSnapshotStore) *Evaluator {
	return NewEvaluator(store, testTiersConfig(), zerolog.Nop())
}

func TestEvaluateSnapshot(t *testing.T) {
	store := &mockSnapshotStore{counts: map[models.Tier]int{
		models.TierActive: 60,
		models.TierWatch:  25,
		models.TierRisk:   15,
	}}

	snap, err := newTestEvaluator(store).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if snap.TotalMembers != 100 {
		t.Errorf("total = %d, want 100", snap.TotalMembers)
	}
	if got := snap.TierRatios[models.TierActive]; math.Abs(got-60) > 1e-9 {
		t.Errorf("active ratio = %v, want 60", got)
	}
	if snap.IsOverCapacity {
		t.Error("100 members under a 500 ceiling must not flag over-capacity")
	}
	if snap.NeedsRebalancing {
		t.Error("ratios exactly on target must not flag rebalancing")
	}
	if len(store.snapshots) != 1 {
		t.Fatalf("persisted snapshots = %d, want 1", len(store.snapshots))
	}
}

func TestEvaluateOverCapacity(t *testing.T) {
	store := &mockSnapshotStore{counts: map[models.Tier]int{
		models.TierActive: 400,
		models.TierWatch:  80,
		models.TierRisk:   21,
	}}

	snap, err := newTestEvaluator(store).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !snap.IsOverCapacity {
		t.Error("501 members over a 500 ceiling must flag over-capacity")
	}
}

func TestEvaluateAtCeilingIsNotOverCapacity(t *testing.T) {
	store := &mockSnapshotStore{counts: map[models.Tier]int{
		models.TierActive: 500,
	}}

	snap, err := newTestEvaluator(store).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if snap.IsOverCapacity {
		t.Error("exactly at the ceiling is not over capacity")
	}
}

func TestEvaluateEmptyCommunity(t *testing.T) {
	store := &mockSnapshotStore{counts: map[models.Tier]int{}}

	snap, err := newTestEvaluator(store).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if snap.TotalMembers != 0 {
		t.Errorf("total = %d, want 0", snap.TotalMembers)
	}
	for tier, ratio := range snap.TierRatios {
		if ratio != 0 {
			t.Errorf("%s ratio = %v, want 0 for empty community", tier, ratio)
		}
	}
	if snap.NeedsRebalancing {
		t.Error("empty community must not flag rebalancing")
	}
}

func TestRebalanceDeadBand(t *testing.T) {
	tests := []struct {
		name   string
		counts map[models.Tier]int
		want   bool
	}{
		{
			// active 64%, inside the 5-point band around 60.
			name:   "within tolerance",
			counts: map[models.Tier]int{models.TierActive: 64, models.TierWatch: 22, models.TierRisk: 14},
			want:   false,
		},
		{
			// active 70%, 10 points above target.
			name:   "active beyond tolerance",
			counts: map[models.Tier]int{models.TierActive: 70, models.TierWatch: 20, models.TierRisk: 10},
			want:   true,
		},
		{
			// risk 22%, 7 points above target.
			name:   "risk beyond tolerance",
			counts: map[models.Tier]int{models.TierActive: 58, models.TierWatch: 20, models.TierRisk: 22},
			want:   true,
		},
		{
			// deviation of exactly 5 points sits on the dead-band edge.
			name:   "exactly at tolerance",
			counts: map[models.Tier]int{models.TierActive: 65, models.TierWatch: 20, models.TierRisk: 15},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockSnapshotStore{counts: tt.counts}
			snap, err := newTestEvaluator(store).Evaluate(context.Background())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if snap.NeedsRebalancing != tt.want {
				t.Errorf("NeedsRebalancing = %v, want %v (ratios %v)", snap.NeedsRebalancing, tt.want, snap.TierRatios)
			}
		})
	}
}
