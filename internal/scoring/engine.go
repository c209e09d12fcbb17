// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/database"
	"github.com/tomtom215/coterie/internal/metrics"
	"github.com/tomtom215/coterie/internal/models"
)

// MemberStore is the subset of the database layer the scoring engine needs.
type MemberStore interface {
	GetMember(ctx context.Context, id string) (*models.Member, error)
	UpsertMember(ctx context.Context, m *models.Member) error
	UpsertActivityScore(ctx context.Context, s *models.ActivityScore) error
}

// AuditRecorder accepts rotation-log entries for asynchronous persistence.
type AuditRecorder interface {
	Record(e *models.RotationLogEntry)
}

// MemberDirectory lists the members to evaluate and maintains profile status.
// Implemented by the surrounding platform's member service.
type MemberDirectory interface {
	ListActiveMembers(ctx context.Context) ([]string, error)
	SetStatus(ctx context.Context, memberID string, status models.MemberStatus) error
}

// Report summarizes one full-population scoring run. The latest report backs
// the admin surface showing failed-evaluation counts and the latest error per
// failed member.
type Report struct {
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Listed      int               `json:"listed"`
	Evaluated   int               `json:"evaluated"`
	TierChanges int               `json:"tier_changes"`
	Failed      map[string]string `json:"failed,omitempty"`
}

// Engine runs the scoring batch for the whole member population. Safe for
// concurrent use; concurrent Run calls are serialized by the caller (the
// scheduler runs one pass at a time).
type Engine struct {
	store     MemberStore
	directory MemberDirectory
	counters  CounterSource
	audit     AuditRecorder
	cfg       *config.ScoringConfig
	tiers     *config.TiersConfig
	logger    zerolog.Logger

	reportMu   sync.RWMutex
	lastReport *Report
}

// NewEngine creates a scoring engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(store MemberStore, directory MemberDirectory, counters CounterSource,
	audit AuditRecorder, cfg *config.ScoringConfig, tiers *config.TiersConfig, logger zerolog.Logger) *Engine {
	return &Engine{
		store:     store,
		directory: directory,
		counters:  counters,
		audit:     audit,
		cfg:       cfg,
		tiers:     tiers,
		logger:    logger.With().Str("component", "scoring").Logger(),
	}
}

// LastReport returns the most recent run report, or nil before the first run.
func (e *Engine) LastReport() *Report {
	e.reportMu.RLock()
	defer e.reportMu.RUnlock()
	return e.lastReport
}

// Run evaluates the full member population once. Individual member failures
// are recorded in the report and never abort the batch. The run observes a
// coarse timeout; members left unprocessed are picked up by the next
// scheduled run, which is safe because every step is idempotent.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{StartedAt: start, Failed: make(map[string]string)}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RunTimeout)
	defer cancel()

	memberIDs, err := e.directory.ListActiveMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	report.Listed = len(memberIDs)

	e.logger.Info().
		Int("members", len(memberIDs)).
		Int("workers", e.cfg.Workers).
		Msg("Starting scoring run")

	var mu sync.Mutex
	var wg sync.WaitGroup
	work := make(chan string)

	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				changed, err := e.evaluateMember(ctx, id)
				mu.Lock()
				if err != nil {
					report.Failed[id] = err.Error()
				} else {
					report.Evaluated++
					if changed {
						report.TierChanges++
					}
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, id := range memberIDs {
		select {
		case work <- id:
		case <-ctx.Done():
			// Leave the rest for the next scheduled run.
			break feed
		}
	}
	close(work)
	wg.Wait()

	report.FinishedAt = time.Now()
	e.reportMu.Lock()
	e.lastReport = report
	e.reportMu.Unlock()

	metrics.ScoringRunDuration.Observe(time.Since(start).Seconds())
	metrics.ScoringMembersEvaluated.Add(float64(report.Evaluated))

	e.logger.Info().
		Int("evaluated", report.Evaluated).
		Int("failed", len(report.Failed)).
		Int("tier_changes", report.TierChanges).
		Dur("elapsed", time.Since(start)).
		Msg("Scoring run complete")

	return report, nil
}

// evaluateMember scores and classifies one member and persists the result.
// Returns whether the member changed tier.
func (e *Engine) evaluateMember(ctx context.Context, memberID string) (bool, error) {
	counters, err := e.fetchCounters(ctx, memberID)
	if err != nil {
		metrics.ScoringFailures.WithLabelValues("counter_source").Inc()
		e.logger.Warn().Str("member_id", memberID).Err(err).Msg("Skipping member evaluation")
		return false, err
	}

	score := Calculate(counters, e.cfg)
	newTier := Classify(score.OverallHealthScore, e.tiers)
	now := time.Now()

	member, err := e.store.GetMember(ctx, memberID)
	switch {
	case err == nil:
		// Existing record; fall through to the transition check.
	case errors.Is(err, database.ErrNotFound):
		member = &models.Member{
			ID:            memberID,
			CurrentTier:   newTier,
			TierEnteredAt: now,
		}
		if newTier == models.TierRisk {
			member.RiskTierStartedAt = &now
		}
	default:
		metrics.ScoringFailures.WithLabelValues("persist").Inc()
		return false, fmt.Errorf("load member: %w", err)
	}

	member.HealthScore = score.OverallHealthScore
	member.UpdatedAt = now

	oldTier := member.CurrentTier
	changed := oldTier != newTier
	if changed {
		e.applyTransition(member, newTier, now)
	}

	if err := e.store.UpsertMember(ctx, member); err != nil {
		metrics.ScoringFailures.WithLabelValues("persist").Inc()
		return false, fmt.Errorf("persist member: %w", err)
	}
	if err := e.store.UpsertActivityScore(ctx, &score); err != nil {
		metrics.ScoringFailures.WithLabelValues("persist").Inc()
		return false, fmt.Errorf("persist score: %w", err)
	}

	if changed {
		e.audit.Record(&models.RotationLogEntry{
			MemberID:      memberID,
			ActionType:    models.ActionTierChanged,
			FromTier:      oldTier,
			ToTier:        newTier,
			Reason:        fmt.Sprintf("score %.2f", score.OverallHealthScore),
			ScoreAtAction: score.OverallHealthScore,
			Timestamp:     now,
		})
	}

	return changed, nil
}

// applyTransition mutates the member record for a tier change.
// TierEnteredAt tracks the last transition, not the last evaluation, so it is
// only touched here.
func (e *Engine) applyTransition(member *models.Member, newTier models.Tier, now time.Time) {
	oldTier := member.CurrentTier

	member.CurrentTier = newTier
	member.TierEnteredAt = now

	if newTier == models.TierRisk {
		member.RiskTierStartedAt = &now
	}
	if oldTier == models.TierRisk {
		// Leaving risk resets the rotation state machine.
		member.RiskTierStartedAt = nil
		member.WarningSentAt = nil
	}

	metrics.TierTransitions.WithLabelValues(string(oldTier), string(newTier)).Inc()
	e.logger.Info().
		Str("member_id", member.ID).
		Str("from", string(oldTier)).
		Str("to", string(newTier)).
		Float64("score", member.HealthScore).
		Msg("Member changed tier")
}

// fetchCounters retrieves counters with bounded retry for transient errors.
// A missing window is returned immediately; retrying cannot create data.
func (e *Engine) fetchCounters(ctx context.Context, memberID string) (*models.ActivityCounters, error) {
	var lastErr error
	attempts := e.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		counters, err := e.counters.WindowCounters(ctx, memberID, e.cfg.WindowDays)
		if err == nil {
			return counters, nil
		}
		if errors.Is(err, ErrCounterNotFound) {
			return nil, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
