// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package database

import (
	"context"
	"fmt"
)

// schemaStatements creates every table Coterie persists. Statements are
// idempotent so startup after a crash is safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id VARCHAR PRIMARY KEY,
		current_tier VARCHAR NOT NULL,
		tier_entered_at TIMESTAMP NOT NULL,
		health_score DOUBLE NOT NULL,
		warning_sent_at TIMESTAMP,
		risk_tier_started_at TIMESTAMP,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activity_scores (
		member_id VARCHAR PRIMARY KEY,
		daily_post_score DOUBLE NOT NULL,
		engagement_score DOUBLE NOT NULL,
		community_contribution_score DOUBLE NOT NULL,
		login_consistency_score DOUBLE NOT NULL,
		overall_health_score DOUBLE NOT NULL,
		calculated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS waitlist (
		member_id VARCHAR PRIMARY KEY,
		reason VARCHAR NOT NULL,
		score_when_moved DOUBLE NOT NULL,
		can_reapply_after TIMESTAMP NOT NULL,
		priority_score DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rotation_log (
		id VARCHAR PRIMARY KEY,
		member_id VARCHAR NOT NULL,
		action_type VARCHAR NOT NULL,
		from_tier VARCHAR,
		to_tier VARCHAR,
		reason VARCHAR NOT NULL,
		score_at_action DOUBLE NOT NULL,
		timestamp TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS community_snapshots (
		taken_at TIMESTAMP NOT NULL,
		total_members INTEGER NOT NULL,
		active_count INTEGER NOT NULL,
		watch_count INTEGER NOT NULL,
		risk_count INTEGER NOT NULL,
		is_over_capacity BOOLEAN NOT NULL,
		needs_rebalancing BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS highlights (
		id VARCHAR PRIMARY KEY,
		content_item_id VARCHAR NOT NULL,
		score DOUBLE NOT NULL,
		reason VARCHAR NOT NULL,
		display_order INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS roster (
		member_id VARCHAR PRIMARY KEY,
		status VARCHAR NOT NULL,
		joined_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activity_days (
		member_id VARCHAR NOT NULL,
		day DATE NOT NULL,
		posts INTEGER NOT NULL,
		likes_received INTEGER NOT NULL,
		comments_received INTEGER NOT NULL,
		likes_given INTEGER NOT NULL,
		comments_made INTEGER NOT NULL,
		profile_views INTEGER NOT NULL,
		logged_in BOOLEAN NOT NULL,
		PRIMARY KEY (member_id, day)
	)`,
	`CREATE TABLE IF NOT EXISTS content_items (
		id VARCHAR PRIMARY KEY,
		author_id VARCHAR NOT NULL,
		likes INTEGER NOT NULL,
		comments INTEGER NOT NULL,
		quality_score DOUBLE,
		external_commentary BOOLEAN NOT NULL,
		description_length INTEGER NOT NULL,
		tag_count INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// initialize creates the schema.
func (db *DB) initialize() error {
	ctx, cancel := db.ensureContext(context.Background())
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
