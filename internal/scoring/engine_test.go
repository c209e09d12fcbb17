// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package scoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/database"
	"github.com/tomtom215/coterie/internal/models"
)

// mockStore is a concurrency-safe in-memory MemberStore.
type mockStore struct {
	mu      sync.Mutex
	members map[string]models.Member
	scores  map[string]models.ActivityScore
}

// mockRecorder captures audit entries synchronously.
type mockRecorder struct {
	mu  sync.Mutex
	log []models.RotationLogEntry
}

func (r *mockRecorder) Record(e *models.RotationLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, *e)
}

func newMockStore() *mockStore {
	return &mockStore{
		members: make(map[string]models.Member),
		scores:  make(map[string]models.ActivityScore),
	}
}

func (s *mockStore) GetMember(_ context.Context, id string) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := m
	return &cp, nil
}

func (s *mockStore) UpsertMember(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = *m
	return nil
}

func (s *mockStore) UpsertActivityScore(_ context.Context, sc *models.ActivityScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[sc.MemberID] = *sc
	return nil
}

type mockDirectory struct {
	ids []string
}

func (d *mockDirectory) ListActiveMembers(_ context.Context) ([]string, error) {
	return d.ids, nil
}

func (d *mockDirectory) SetStatus(_ context.Context, _ string, _ models.MemberStatus) error {
	return nil
}

// mockCounters serves canned counters per member, with optional per-member
// failures and a call counter for retry assertions.
type mockCounters struct {
	mu       sync.Mutex
	counters map[string]*models.ActivityCounters
	failures map[string]error
	failsFor map[string]int // transient failures before success
	calls    map[string]int
}

func newMockCounters() *mockCounters {
	return &mockCounters{
		counters: make(map[string]*models.ActivityCounters),
		failures: make(map[string]error),
		failsFor: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (c *mockCounters) WindowCounters(_ context.Context, memberID string, _ int) (*models.ActivityCounters, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[memberID]++
	if err, ok := c.failures[memberID]; ok {
		return nil, err
	}
	if n := c.failsFor[memberID]; n > 0 {
		c.failsFor[memberID] = n - 1
		return nil, errors.New("upstream timeout")
	}
	counters, ok := c.counters[memberID]
	if !ok {
		return nil, ErrCounterNotFound
	}
	return counters, nil
}

func newTestEngine(store MemberStore, dir MemberDirectory, src CounterSource, rec AuditRecorder) *Engine {
	cfg := testScoringConfig()
	cfg.Workers = 2
	cfg.RetryAttempts = 3
	cfg.RetryDelay = time.Millisecond
	cfg.RunTimeout = 5 * time.Second
	tiers := &config.TiersConfig{ActiveThreshold: 30, WatchThreshold: 20}

	return NewEngine(store, dir, src, rec, cfg, tiers, zerolog.Nop())
}

// activeCounters scores well above the active threshold.
func activeCounters(id string) *models.ActivityCounters {
	return &models.ActivityCounters{
		MemberID:          id,
		PostsPerDay:       2.5,
		LikesReceived:     10,
		CommentsReceived:  5,
		LikesGiven:        15,
		CommentsMade:      8,
		LoginDaysInWindow: 7,
		ProfileViews:      20,
	}
}

func TestRunEvaluatesAllMembers(t *testing.T) {
	store := newMockStore()
	rec := &mockRecorder{}
	src := newMockCounters()
	ids := []string{"m1", "m2", "m3"}
	for _, id := range ids {
		src.counters[id] = activeCounters(id)
	}

	engine := newTestEngine(store, &mockDirectory{ids: ids}, src, rec)
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Evaluated != 3 || len(report.Failed) != 0 {
		t.Fatalf("report = %d evaluated, %d failed; want 3, 0", report.Evaluated, len(report.Failed))
	}
	for _, id := range ids {
		member, ok := store.members[id]
		if !ok {
			t.Fatalf("member %s not persisted", id)
		}
		if member.CurrentTier != models.TierActive {
			t.Errorf("member %s tier = %v, want active", id, member.CurrentTier)
		}
		if _, ok := store.scores[id]; !ok {
			t.Errorf("score for %s not persisted", id)
		}
	}

	if got := engine.LastReport(); got != report {
		t.Error("LastReport does not return the latest run")
	}
}

func TestRunSkipsFailedMembers(t *testing.T) {
	store := newMockStore()
	rec := &mockRecorder{}
	src := newMockCounters()
	src.counters["good"] = activeCounters("good")
	src.failures["bad"] = errors.New("connection refused")

	engine := newTestEngine(store, &mockDirectory{ids: []string{"good", "bad"}}, src, rec)
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Evaluated != 1 {
		t.Errorf("evaluated = %d, want 1", report.Evaluated)
	}
	if _, ok := report.Failed["bad"]; !ok {
		t.Error("failed member missing from report")
	}
	if _, ok := store.members["bad"]; ok {
		t.Error("failed member must not be persisted")
	}
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	store := newMockStore()
	rec := &mockRecorder{}
	src := newMockCounters()
	src.counters["m1"] = activeCounters("m1")
	src.failsFor["m1"] = 2 // two transient failures, third attempt succeeds

	engine := newTestEngine(store, &mockDirectory{ids: []string{"m1"}}, src, rec)
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Evaluated != 1 || len(report.Failed) != 0 {
		t.Fatalf("report = %d evaluated, %d failed; want 1, 0", report.Evaluated, len(report.Failed))
	}
	if src.calls["m1"] != 3 {
		t.Errorf("calls = %d, want 3", src.calls["m1"])
	}
}

func TestMissingWindowIsNotRetried(t *testing.T) {
	store := newMockStore()
	rec := &mockRecorder{}
	src := newMockCounters()

	engine := newTestEngine(store, &mockDirectory{ids: []string{"ghost"}}, src, rec)
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := report.Failed["ghost"]; !ok {
		t.Error("member with no counter window should be reported failed")
	}
	if src.calls["ghost"] != 1 {
		t.Errorf("calls = %d, want 1 (no retry on missing window)", src.calls["ghost"])
	}
}

func TestTierChangeUpdatesStateAndLog(t *testing.T) {
	store := newMockStore()
	rec := &mockRecorder{}
	riskStart := time.Now().Add(-10 * 24 * time.Hour)
	warned := time.Now().Add(-3 * 24 * time.Hour)
	store.members["m1"] = models.Member{
		ID:                "m1",
		CurrentTier:       models.TierRisk,
		TierEnteredAt:     riskStart,
		HealthScore:       12,
		RiskTierStartedAt: &riskStart,
		WarningSentAt:     &warned,
	}

	src := newMockCounters()
	src.counters["m1"] = activeCounters("m1")

	engine := newTestEngine(store, &mockDirectory{ids: []string{"m1"}}, src, rec)
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TierChanges != 1 {
		t.Fatalf("tier changes = %d, want 1", report.TierChanges)
	}

	member := store.members["m1"]
	if member.CurrentTier != models.TierActive {
		t.Errorf("tier = %v, want active", member.CurrentTier)
	}
	if member.RiskTierStartedAt != nil {
		t.Error("leaving risk must clear RiskTierStartedAt")
	}
	if member.WarningSentAt != nil {
		t.Error("leaving risk must clear WarningSentAt")
	}
	if !member.TierEnteredAt.After(riskStart) {
		t.Error("tier change must refresh TierEnteredAt")
	}

	if len(rec.log) != 1 {
		t.Fatalf("rotation log entries = %d, want 1", len(rec.log))
	}
	entry := rec.log[0]
	if entry.ActionType != models.ActionTierChanged {
		t.Errorf("action = %v, want %v", entry.ActionType, models.ActionTierChanged)
	}
	if entry.FromTier != models.TierRisk || entry.ToTier != models.TierActive {
		t.Errorf("transition = %v -> %v, want risk -> active", entry.FromTier, entry.ToTier)
	}
}

func TestEnteringRiskSetsRiskStart(t *testing.T) {
	store := newMockStore()
	rec := &mockRecorder{}
	entered := time.Now().Add(-30 * 24 * time.Hour)
	store.members["m1"] = models.Member{
		ID:            "m1",
		CurrentTier:   models.TierWatch,
		TierEnteredAt: entered,
		HealthScore:   25,
	}

	src := newMockCounters()
	src.counters["m1"] = &models.ActivityCounters{MemberID: "m1", LoginDaysInWindow: 2}

	engine := newTestEngine(store, &mockDirectory{ids: []string{"m1"}}, src, rec)
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	member := store.members["m1"]
	if member.CurrentTier != models.TierRisk {
		t.Fatalf("tier = %v, want risk", member.CurrentTier)
	}
	if member.RiskTierStartedAt == nil {
		t.Error("entering risk must set RiskTierStartedAt")
	}
}

func TestUnchangedTierRefreshesScoreOnly(t *testing.T) {
	store := newMockStore()
	rec := &mockRecorder{}
	entered := time.Now().Add(-30 * 24 * time.Hour)
	store.members["m1"] = models.Member{
		ID:            "m1",
		CurrentTier:   models.TierActive,
		TierEnteredAt: entered,
		HealthScore:   31,
	}

	src := newMockCounters()
	src.counters["m1"] = activeCounters("m1")

	engine := newTestEngine(store, &mockDirectory{ids: []string{"m1"}}, src, rec)
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TierChanges != 0 {
		t.Errorf("tier changes = %d, want 0", report.TierChanges)
	}

	member := store.members["m1"]
	if !member.TierEnteredAt.Equal(entered) {
		t.Error("unchanged tier must not touch TierEnteredAt")
	}
	if member.HealthScore == 31 {
		t.Error("health score should be refreshed from the new calculation")
	}
	if len(rec.log) != 0 {
		t.Errorf("rotation log entries = %d, want 0", len(rec.log))
	}
}
