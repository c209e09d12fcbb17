// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package platform adapts the photo platform's ingested data (roster,
// activity rollups, content items) to the interfaces the scoring, rotation
// and highlight components consume. The ingest pipeline writes into the
// shared DuckDB store; these adapters only read, except for roster status
// changes driven by rotation.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/coterie/internal/database"
	"github.com/tomtom215/coterie/internal/models"
	"github.com/tomtom215/coterie/internal/scoring"
)

// Counters implements scoring.CounterSource over the ingested activity
// rollups.
type Counters struct {
	db *database.DB
}

// NewCounters creates a counter source backed by the shared store.
func NewCounters(db *database.DB) *Counters {
	return &Counters{db: db}
}

// WindowCounters returns a member's aggregated trailing-window activity.
// A member absent from the roster maps to scoring.ErrCounterNotFound so the
// engine skips them without retrying.
func (c *Counters) WindowCounters(ctx context.Context, memberID string, windowDays int) (*models.ActivityCounters, error) {
	counters, err := c.db.WindowCounters(ctx, memberID, windowDays)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, scoring.ErrCounterNotFound
		}
		return nil, fmt.Errorf("window counters for %s: %w", memberID, err)
	}
	return counters, nil
}

// Directory implements scoring.MemberDirectory over the platform roster.
type Directory struct {
	db *database.DB
}

// NewDirectory creates a member directory backed by the shared store.
func NewDirectory(db *database.DB) *Directory {
	return &Directory{db: db}
}

// ListActiveMembers returns the IDs of every roster member in active status.
func (d *Directory) ListActiveMembers(ctx context.Context) ([]string, error) {
	return d.db.ListRosterActive(ctx)
}

// SetStatus flips a roster member's status after eviction or reactivation.
func (d *Directory) SetStatus(ctx context.Context, memberID string, status models.MemberStatus) error {
	return d.db.SetRosterStatus(ctx, memberID, status)
}

// Catalog implements highlight.ContentSource and highlight.QualityOracle
// over the ingested content items.
type Catalog struct {
	db         *database.DB
	windowDays int
}

// NewCatalog creates a content catalog bounded to the eligibility window.
func NewCatalog(db *database.DB, windowDays int) *Catalog {
	return &Catalog{db: db, windowDays: windowDays}
}

// ListEligibleItems returns content items created within the eligibility
// window.
func (c *Catalog) ListEligibleItems(ctx context.Context) ([]models.ContentItem, error) {
	since := time.Now().AddDate(0, 0, -c.windowDays)
	return c.db.RecentContentItems(ctx, since)
}

// QualityScore returns the stored model-assigned quality for an item. An
// unknown item reports no score rather than an error, which sends the
// selector down the heuristic path.
func (c *Catalog) QualityScore(ctx context.Context, contentItemID string) (float64, bool, error) {
	score, ok, err := c.db.ContentQuality(ctx, contentItemID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("content quality for %s: %w", contentItemID, err)
	}
	return score, ok, nil
}
