// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/coterie/internal/models"
)

// ActivityDay is one day of platform-side activity rollups for a member.
// The platform ingest pipeline writes these; the scoring engine reads them
// aggregated over the trailing window.
type ActivityDay struct {
	Posts            int
	LikesReceived    int
	CommentsReceived int
	LikesGiven       int
	CommentsMade     int
	ProfileViews     int
	LoggedIn         bool
}

// UpsertRosterEntry inserts or updates a platform roster entry.
func (db *DB) UpsertRosterEntry(ctx context.Context, memberID string, status models.MemberStatus, joinedAt time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO roster (member_id, status, joined_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (member_id) DO UPDATE SET
		status = excluded.status,
		updated_at = excluded.updated_at`

	_, err := db.conn.ExecContext(ctx, query, memberID, string(status), joinedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert roster entry %s: %w", memberID, err)
	}
	return nil
}

// ListRosterActive returns the IDs of all roster members with active status.
func (db *DB) ListRosterActive(ctx context.Context) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT member_id FROM roster WHERE status = ? ORDER BY member_id`

	rows, err := db.conn.QueryContext(ctx, query, string(models.MemberStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active roster: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetRosterStatus updates a roster entry's status. Returns ErrNotFound when
// the member is not on the roster.
func (db *DB) SetRosterStatus(ctx context.Context, memberID string, status models.MemberStatus) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `UPDATE roster SET status = ?, updated_at = ? WHERE member_id = ?`

	res, err := db.conn.ExecContext(ctx, query, string(status), time.Now(), memberID)
	if err != nil {
		return fmt.Errorf("failed to set roster status for %s: %w", memberID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set roster status for %s: %w", memberID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertActivityDay records one day of activity rollups for a member.
func (db *DB) UpsertActivityDay(ctx context.Context, memberID string, day time.Time, d ActivityDay) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO activity_days (
		member_id, day, posts, likes_received, comments_received,
		likes_given, comments_made, profile_views, logged_in
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (member_id, day) DO UPDATE SET
		posts = excluded.posts,
		likes_received = excluded.likes_received,
		comments_received = excluded.comments_received,
		likes_given = excluded.likes_given,
		comments_made = excluded.comments_made,
		profile_views = excluded.profile_views,
		logged_in = excluded.logged_in`

	_, err := db.conn.ExecContext(ctx, query,
		memberID, day, d.Posts, d.LikesReceived, d.CommentsReceived,
		d.LikesGiven, d.CommentsMade, d.ProfileViews, d.LoggedIn,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert activity day for %s: %w", memberID, err)
	}
	return nil
}

// WindowCounters aggregates a member's activity over the trailing window.
// Returns ErrNotFound when the member is not on the roster at all; a roster
// member with no activity rows gets zero counters.
func (db *DB) WindowCounters(ctx context.Context, memberID string, windowDays int) (*models.ActivityCounters, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var onRoster bool
	rosterQuery := `SELECT COUNT(*) > 0 FROM roster WHERE member_id = ?`
	if err := db.conn.QueryRowContext(ctx, rosterQuery, memberID).Scan(&onRoster); err != nil {
		return nil, fmt.Errorf("failed to check roster for %s: %w", memberID, err)
	}
	if !onRoster {
		return nil, ErrNotFound
	}

	since := time.Now().AddDate(0, 0, -windowDays)
	query := `SELECT
		COALESCE(SUM(posts), 0),
		COALESCE(SUM(likes_received), 0),
		COALESCE(SUM(comments_received), 0),
		COALESCE(SUM(likes_given), 0),
		COALESCE(SUM(comments_made), 0),
		COALESCE(SUM(profile_views), 0),
		COALESCE(SUM(CASE WHEN logged_in THEN 1 ELSE 0 END), 0)
	FROM activity_days WHERE member_id = ? AND day >= ?`

	var posts int
	c := &models.ActivityCounters{MemberID: memberID}
	err := db.conn.QueryRowContext(ctx, query, memberID, since).Scan(
		&posts, &c.LikesReceived, &c.CommentsReceived,
		&c.LikesGiven, &c.CommentsMade, &c.ProfileViews, &c.LoginDaysInWindow,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate activity for %s: %w", memberID, err)
	}
	if windowDays > 0 {
		c.PostsPerDay = float64(posts) / float64(windowDays)
	}
	return c, nil
}

// UpsertContentItem inserts or updates a platform content item.
func (db *DB) UpsertContentItem(ctx context.Context, item *models.ContentItem) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO content_items (
		id, author_id, likes, comments, quality_score,
		external_commentary, description_length, tag_count, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		likes = excluded.likes,
		comments = excluded.comments,
		quality_score = excluded.quality_score,
		external_commentary = excluded.external_commentary,
		description_length = excluded.description_length,
		tag_count = excluded.tag_count`

	_, err := db.conn.ExecContext(ctx, query,
		item.ID, item.AuthorID, item.Likes, item.Comments, item.QualityScore,
		item.ExternalCommentary, item.DescriptionLength, item.TagCount, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert content item %s: %w", item.ID, err)
	}
	return nil
}

// RecentContentItems returns content items created at or after since,
// newest first.
func (db *DB) RecentContentItems(ctx context.Context, since time.Time) ([]models.ContentItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, author_id, likes, comments, quality_score,
		external_commentary, description_length, tag_count, created_at
	FROM content_items WHERE created_at >= ? ORDER BY created_at DESC`

	rows, err := db.conn.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent content: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		err := rows.Scan(
			&item.ID, &item.AuthorID, &item.Likes, &item.Comments, &item.QualityScore,
			&item.ExternalCommentary, &item.DescriptionLength, &item.TagCount, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ContentQuality returns the stored external quality score for an item.
// The second return is false when the item has no model-assigned score.
// Returns ErrNotFound for an unknown item.
func (db *DB) ContentQuality(ctx context.Context, itemID string) (float64, bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT quality_score FROM content_items WHERE id = ?`

	var score sql.NullFloat64
	err := db.conn.QueryRowContext(ctx, query, itemID).Scan(&score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, ErrNotFound
		}
		return 0, false, fmt.Errorf("failed to get content quality for %s: %w", itemID, err)
	}
	if !score.Valid {
		return 0, false, nil
	}
	return score.Float64, true, nil
}
