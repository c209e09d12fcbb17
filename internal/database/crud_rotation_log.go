// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/coterie/internal/models"
)

// AppendRotationLog writes one immutable audit entry.
func (db *DB) AppendRotationLog(ctx context.Context, e *models.RotationLogEntry) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return appendRotationLogTx(ctx, tx, e)
	})
}

// RotationLogPage returns one page of the rotation log, newest first, along
// with the total entry count.
func (db *DB) RotationLogPage(ctx context.Context, page, pageSize int) ([]models.RotationLogEntry, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM rotation_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count rotation log: %w", err)
	}

	query := `SELECT id, member_id, action_type, from_tier, to_tier,
		reason, score_at_action, timestamp
	FROM rotation_log
	ORDER BY timestamp DESC, id DESC
	LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query rotation log: %w", err)
	}
	defer rows.Close()

	var entries []models.RotationLogEntry
	for rows.Next() {
		var e models.RotationLogEntry
		var action string
		var fromTier, toTier sql.NullString
		if err := rows.Scan(&e.ID, &e.MemberID, &action, &fromTier, &toTier,
			&e.Reason, &e.ScoreAtAction, &e.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("failed to scan rotation log entry: %w", err)
		}
		e.ActionType = models.RotationAction(action)
		if fromTier.Valid {
			e.FromTier = models.Tier(fromTier.String)
		}
		if toTier.Valid {
			e.ToTier = models.Tier(toTier.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate rotation log: %w", err)
	}
	return entries, total, nil
}

// RotationLogForMember returns all audit entries for one member, newest first.
func (db *DB) RotationLogForMember(ctx context.Context, memberID string) ([]models.RotationLogEntry, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, member_id, action_type, from_tier, to_tier,
		reason, score_at_action, timestamp
	FROM rotation_log
	WHERE member_id = ?
	ORDER BY timestamp DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation log for %s: %w", memberID, err)
	}
	defer rows.Close()

	var entries []models.RotationLogEntry
	for rows.Next() {
		var e models.RotationLogEntry
		var action string
		var fromTier, toTier sql.NullString
		if err := rows.Scan(&e.ID, &e.MemberID, &action, &fromTier, &toTier,
			&e.Reason, &e.ScoreAtAction, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan rotation log entry: %w", err)
		}
		e.ActionType = models.RotationAction(action)
		if fromTier.Valid {
			e.FromTier = models.Tier(fromTier.String)
		}
		if toTier.Valid {
			e.ToTier = models.Tier(toTier.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rotation log: %w", err)
	}
	return entries, nil
}
