// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package scheduler drives the batch cadence: the rotation cycle (scoring
// pass, community snapshot, rotation pass) on one ticker and the highlight
// refresh on another. The two loops are independent; a highlight refresh may
// overlap a rotation pass safely.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/community"
	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/models"
	"github.com/tomtom215/coterie/internal/scoring"
)

// ScoringRunner runs the full-population scoring pass.
type ScoringRunner interface {
	Run(ctx context.Context) (*scoring.Report, error)
}

// SnapshotTaker recomputes the community snapshot.
type SnapshotTaker interface {
	Evaluate(ctx context.Context) (*models.CommunitySnapshot, error)
}

// RotationRunner runs one rotation pass.
type RotationRunner interface {
	Run(ctx context.Context) (*community.RotationResult, error)
}

// HighlightRefresher refreshes the highlight set.
type HighlightRefresher interface {
	Refresh(ctx context.Context) ([]models.HighlightRecord, error)
}

// Scheduler owns the two ticker loops.
type Scheduler struct {
	engine     ScoringRunner
	evaluator  SnapshotTaker
	rotation   RotationRunner
	highlights HighlightRefresher

	rotationInterval  time.Duration
	highlightInterval time.Duration
	logger            zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler from the configured cadences.
func New(engine ScoringRunner, evaluator SnapshotTaker, rotation RotationRunner,
	highlights HighlightRefresher, rotationCfg *config.RotationConfig,
	highlightCfg *config.HighlightConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine:            engine,
		evaluator:         evaluator,
		rotation:          rotation,
		highlights:        highlights,
		rotationInterval:  rotationCfg.RunInterval,
		highlightInterval: highlightCfg.RefreshInterval,
		logger:            logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches both loops. Each runs its pass immediately, then on its
// ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().
		Dur("rotation_interval", s.rotationInterval).
		Dur("highlight_interval", s.highlightInterval).
		Msg("Starting scheduler")

	go s.run(ctx)
	return nil
}

// Stop halts both loops and waits for the current pass to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.loop(ctx, s.rotationInterval, s.rotationCycle)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, s.highlightInterval, s.highlightCycle)
	}()

	wg.Wait()
}

// loop runs fn immediately, then on every tick until stopped.
func (s *Scheduler) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(ctx)

	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// rotationCycle is one full control-loop pass: score everyone, recompute the
// snapshot, then rotate. Each stage failure is logged and the remaining
// stages still run with the freshest data available.
func (s *Scheduler) rotationCycle(ctx context.Context) {
	if _, err := s.engine.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Scoring pass failed")
	}
	if _, err := s.evaluator.Evaluate(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Snapshot evaluation failed")
	}
	if _, err := s.rotation.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Rotation pass failed")
	}
}

func (s *Scheduler) highlightCycle(ctx context.Context) {
	if _, err := s.highlights.Refresh(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Highlight refresh failed")
	}
}
