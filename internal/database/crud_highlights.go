// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/coterie/internal/models"
)

// ReplaceHighlights atomically clears and rewrites the persisted highlight
// set. Readers never observe an empty set mid-update because the clear and
// the writes commit together.
func (db *DB) ReplaceHighlights(ctx context.Context, records []models.HighlightRecord) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM highlights`); err != nil {
			return fmt.Errorf("clear highlights: %w", err)
		}

		insert := `INSERT INTO highlights (
			id, content_item_id, score, reason, display_order, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`

		for i := range records {
			r := &records[i]
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx, insert,
				r.ID, r.ContentItemID, r.Score, r.Reason,
				r.DisplayOrder, r.CreatedAt); err != nil {
				return fmt.Errorf("insert highlight %s: %w", r.ContentItemID, err)
			}
		}
		return nil
	})
}

// ListHighlights returns the current highlight set in display order.
func (db *DB) ListHighlights(ctx context.Context) ([]models.HighlightRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, content_item_id, score, reason, display_order, created_at
	FROM highlights ORDER BY display_order ASC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list highlights: %w", err)
	}
	defer rows.Close()

	var records []models.HighlightRecord
	for rows.Next() {
		var r models.HighlightRecord
		if err := rows.Scan(&r.ID, &r.ContentItemID, &r.Score, &r.Reason,
			&r.DisplayOrder, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan highlight: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate highlights: %w", err)
	}
	return records, nil
}
