// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package community

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/lease"
	"github.com/tomtom215/coterie/internal/metrics"
	"github.com/tomtom215/coterie/internal/models"
	"github.com/tomtom215/coterie/internal/notify"
	"github.com/tomtom215/coterie/internal/scoring"
)

// rotationLease names the lease guarding the control loop.
const rotationLease = "rotation"

// RotationStore is the subset of the database layer the controller needs.
// EvictMember and ReactivateMember are single transactions.
type RotationStore interface {
	ListMembersByTier(ctx context.Context, tier models.Tier) ([]models.Member, error)
	ListRiskMembersByScore(ctx context.Context, limit int) ([]models.Member, error)
	UpsertMember(ctx context.Context, m *models.Member) error
	EvictMember(ctx context.Context, entry *models.WaitlistEntry, logEntry *models.RotationLogEntry) error
	ReactivateMember(ctx context.Context, member *models.Member, score *models.ActivityScore, logEntry *models.RotationLogEntry) error
	EligibleWaitlistEntries(ctx context.Context, now time.Time, limit int) ([]models.WaitlistEntry, error)
}

// LeaseManager grants the run-level lease.
type LeaseManager interface {
	Acquire(name, owner string) error
	Release(name, owner string) error
}

// RotationResult summarizes one control-loop pass.
type RotationResult struct {
	Warned       int `json:"warned"`
	Evicted      int `json:"evicted"`
	Reactivated  int `json:"reactivated"`
	Monitored    int `json:"monitored"`
	Failed       int `json:"failed"`
	RiskReviewed int `json:"risk_reviewed"`
}

// Controller runs the member rotation state machine. One pass reviews every
// risk-tier member, warns or evicts per the configured timers, and refills
// freed capacity from the waitlist.
type Controller struct {
	store     RotationStore
	directory scoring.MemberDirectory
	leases    LeaseManager
	sink      notify.Sink
	audit     scoring.AuditRecorder
	cfg       *config.RotationConfig
	logger    zerolog.Logger
}

// NewController creates a rotation controller.
func NewController(store RotationStore, directory scoring.MemberDirectory, leases LeaseManager,
	sink notify.Sink, audit scoring.AuditRecorder, cfg *config.RotationConfig, logger zerolog.Logger) *Controller {
	return &Controller{
		store:     store,
		directory: directory,
		leases:    leases,
		sink:      sink,
		audit:     audit,
		cfg:       cfg,
		logger:    logger.With().Str("component", "rotation").Logger(),
	}
}

// Run executes one rotation pass under the run lease. A concurrent pass
// returns lease.ErrLeaseHeld without touching any member. Reruns are
// idempotent: warned members are not re-warned and evicted members are gone
// from the risk tier.
func (c *Controller) Run(ctx context.Context) (*RotationResult, error) {
	owner := uuid.NewString()
	if err := c.leases.Acquire(rotationLease, owner); err != nil {
		if errors.Is(err, lease.ErrLeaseHeld) {
			metrics.RotationLeaseContention.Inc()
			c.logger.Warn().Msg("Rotation pass skipped: lease held")
			return nil, err
		}
		return nil, fmt.Errorf("acquire rotation lease: %w", err)
	}
	defer func() {
		if err := c.leases.Release(rotationLease, owner); err != nil {
			c.logger.Error().Err(err).Msg("Failed to release rotation lease")
		}
	}()

	start := time.Now()
	result := &RotationResult{}

	riskMembers, err := c.store.ListMembersByTier(ctx, models.TierRisk)
	if err != nil {
		return nil, fmt.Errorf("list risk members: %w", err)
	}
	result.RiskReviewed = len(riskMembers)

	now := time.Now().UTC()
	for i := range riskMembers {
		if err := c.reviewMember(ctx, &riskMembers[i], now, result); err != nil {
			result.Failed++
			metrics.RotationMemberFailures.Inc()
			c.logger.Error().Str("member_id", riskMembers[i].ID).Err(err).
				Msg("Rotation decision failed for member")
		}
	}

	reactivated, err := c.replenish(ctx, now, result.Evicted)
	if err != nil {
		c.logger.Error().Err(err).Msg("Waitlist replenishment failed")
	}
	result.Reactivated = reactivated

	metrics.RotationRunDuration.Observe(time.Since(start).Seconds())
	c.logger.Info().
		Int("risk_reviewed", result.RiskReviewed).
		Int("warned", result.Warned).
		Int("evicted", result.Evicted).
		Int("reactivated", result.Reactivated).
		Int("failed", result.Failed).
		Msg("Rotation pass complete")

	return result, nil
}

// reviewMember applies the state machine to one risk-tier member. Grace
// eviction is terminal and does not depend on whether the warning went out.
func (c *Controller) reviewMember(ctx context.Context, member *models.Member, now time.Time, result *RotationResult) error {
	if member.RiskTierStartedAt == nil {
		// Should be set on entering risk; repair it rather than evicting a
		// member whose clock never started.
		member.RiskTierStartedAt = &now
		if err := c.store.UpsertMember(ctx, member); err != nil {
			return fmt.Errorf("repair risk start: %w", err)
		}
		result.Monitored++
		return nil
	}

	switch {
	case member.InRiskLongerThan(now, c.cfg.GracePeriod()):
		if err := c.evict(ctx, member, now, "grace period expired", "grace"); err != nil {
			return err
		}
		result.Evicted++

	case member.InRiskLongerThan(now, c.cfg.WarningPeriod()) && member.WarningSentAt == nil:
		if err := c.warn(ctx, member, now); err != nil {
			return err
		}
		result.Warned++

	default:
		c.logger.Debug().Str("member_id", member.ID).
			Time("next_deadline", c.nextDeadline(member)).
			Msg("Risk member monitored")
		result.Monitored++
	}
	return nil
}

// nextDeadline is the nearer of the member's pending warning and grace
// deadlines, surfaced for monitor logging.
func (c *Controller) nextDeadline(member *models.Member) time.Time {
	deadline := member.RiskTierStartedAt.Add(c.cfg.GracePeriod())
	if member.WarningSentAt == nil {
		if warnAt := member.RiskTierStartedAt.Add(c.cfg.WarningPeriod()); warnAt.Before(deadline) {
			deadline = warnAt
		}
	}
	return deadline
}

// warn marks the member warned, then attempts delivery. The flag is persisted
// before the send so a sink outage cannot cause a second warning later.
func (c *Controller) warn(ctx context.Context, member *models.Member, now time.Time) error {
	member.WarningSentAt = &now
	member.UpdatedAt = now
	if err := c.store.UpsertMember(ctx, member); err != nil {
		return fmt.Errorf("persist warning flag: %w", err)
	}

	c.audit.Record(&models.RotationLogEntry{
		MemberID:      member.ID,
		ActionType:    models.ActionWarned,
		FromTier:      models.TierRisk,
		ToTier:        models.TierRisk,
		Reason:        fmt.Sprintf("in risk tier %d days", int(now.Sub(*member.RiskTierStartedAt).Hours()/24)),
		ScoreAtAction: member.HealthScore,
		Timestamp:     now,
	})

	metrics.RotationWarnings.Inc()
	if err := c.sink.Send(ctx, member.ID, notify.KindWarning); err != nil {
		c.logger.Error().Str("member_id", member.ID).Err(err).
			Msg("Warning notification failed; member stays warned")
	}
	return nil
}

// evict moves the member to the waitlist in one transaction, then updates the
// member's profile status and notifies. kind distinguishes grace-period
// evictions from operator-triggered emergency ones.
func (c *Controller) evict(ctx context.Context, member *models.Member, now time.Time, reason, kind string) error {
	entry := &models.WaitlistEntry{
		MemberID:        member.ID,
		Reason:          reason,
		ScoreWhenMoved:  member.HealthScore,
		CanReapplyAfter: now.Add(c.cfg.ReapplyCooldown()),
		PriorityScore:   member.HealthScore,
		CreatedAt:       now,
	}
	logEntry := &models.RotationLogEntry{
		MemberID:      member.ID,
		ActionType:    models.ActionEvicted,
		FromTier:      models.TierRisk,
		Reason:        reason,
		ScoreAtAction: member.HealthScore,
		Timestamp:     now,
	}

	if err := c.store.EvictMember(ctx, entry, logEntry); err != nil {
		return fmt.Errorf("evict member: %w", err)
	}

	if err := c.directory.SetStatus(ctx, member.ID, models.MemberStatusWaitlisted); err != nil {
		// The eviction committed; the profile service catches up on retry or
		// reconciliation, so this is reported but not fatal.
		c.logger.Error().Str("member_id", member.ID).Err(err).
			Msg("Failed to set waitlisted profile status")
	}

	metrics.RotationEvictions.WithLabelValues(kind).Inc()
	if err := c.sink.Send(ctx, member.ID, notify.KindEviction); err != nil {
		c.logger.Error().Str("member_id", member.ID).Err(err).Msg("Eviction notification failed")
	}

	c.logger.Info().Str("member_id", member.ID).Str("kind", kind).
		Float64("score", member.HealthScore).Msg("Member evicted to waitlist")
	return nil
}

// replenish reactivates at most maxPulls waitlisted members whose cooldown
// has elapsed, highest priority first. Capacity only refills after it shrank:
// reactivations never exceed evictions in the same pass.
func (c *Controller) replenish(ctx context.Context, now time.Time, maxPulls int) (int, error) {
	if maxPulls <= 0 {
		return 0, nil
	}

	entries, err := c.store.EligibleWaitlistEntries(ctx, now, maxPulls)
	if err != nil {
		return 0, fmt.Errorf("list eligible waitlist entries: %w", err)
	}

	reactivated := 0
	for i := range entries {
		if err := c.reactivate(ctx, &entries[i], now); err != nil {
			metrics.RotationMemberFailures.Inc()
			c.logger.Error().Str("member_id", entries[i].MemberID).Err(err).
				Msg("Reactivation failed")
			continue
		}
		reactivated++
	}
	return reactivated, nil
}

// reactivate re-admits one waitlisted member as active in one transaction.
func (c *Controller) reactivate(ctx context.Context, entry *models.WaitlistEntry, now time.Time) error {
	member := &models.Member{
		ID:            entry.MemberID,
		CurrentTier:   models.TierActive,
		TierEnteredAt: now,
		HealthScore:   entry.ScoreWhenMoved,
		UpdatedAt:     now,
	}
	score := &models.ActivityScore{
		MemberID:           entry.MemberID,
		OverallHealthScore: entry.ScoreWhenMoved,
		CalculatedAt:       now,
	}
	logEntry := &models.RotationLogEntry{
		MemberID:      entry.MemberID,
		ActionType:    models.ActionReactivated,
		ToTier:        models.TierActive,
		Reason:        "reactivated from waitlist",
		ScoreAtAction: entry.ScoreWhenMoved,
		Timestamp:     now,
	}

	if err := c.store.ReactivateMember(ctx, member, score, logEntry); err != nil {
		return fmt.Errorf("reactivate member: %w", err)
	}

	if err := c.directory.SetStatus(ctx, entry.MemberID, models.MemberStatusActive); err != nil {
		c.logger.Error().Str("member_id", entry.MemberID).Err(err).
			Msg("Failed to set active profile status")
	}

	metrics.RotationReactivations.Inc()
	if err := c.sink.Send(ctx, entry.MemberID, notify.KindReactivated); err != nil {
		c.logger.Error().Str("member_id", entry.MemberID).Err(err).Msg("Reactivation notification failed")
	}
	return nil
}

// EmergencyRebalance immediately evicts the count lowest-scoring risk members,
// bypassing the warning and grace timers. Operator-triggered; runs under the
// same lease and eviction transaction as a scheduled pass.
func (c *Controller) EmergencyRebalance(ctx context.Context, count int) (*RotationResult, error) {
	if count < 1 {
		return nil, fmt.Errorf("rebalance count must be positive, got %d", count)
	}

	owner := uuid.NewString()
	if err := c.leases.Acquire(rotationLease, owner); err != nil {
		if errors.Is(err, lease.ErrLeaseHeld) {
			metrics.RotationLeaseContention.Inc()
			return nil, err
		}
		return nil, fmt.Errorf("acquire rotation lease: %w", err)
	}
	defer func() {
		if err := c.leases.Release(rotationLease, owner); err != nil {
			c.logger.Error().Err(err).Msg("Failed to release rotation lease")
		}
	}()

	members, err := c.store.ListRiskMembersByScore(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("list risk members by score: %w", err)
	}

	now := time.Now().UTC()
	result := &RotationResult{RiskReviewed: len(members)}
	for i := range members {
		if err := c.evict(ctx, &members[i], now, "emergency rebalance", "emergency"); err != nil {
			result.Failed++
			metrics.RotationMemberFailures.Inc()
			c.logger.Error().Str("member_id", members[i].ID).Err(err).
				Msg("Emergency eviction failed")
			continue
		}
		result.Evicted++
	}

	c.logger.Warn().Int("requested", count).Int("evicted", result.Evicted).
		Msg("Emergency rebalance complete")
	return result, nil
}
