// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package models

import "time"

// ContentItem is one photo post eligible for highlighting.
type ContentItem struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`

	Likes    int `json:"likes"`
	Comments int `json:"comments"`

	// QualityScore is the optional output of the external photo-quality
	// model, in [0,1]. Nil triggers the heuristic scoring path.
	QualityScore *float64 `json:"quality_score,omitempty"`

	// Auxiliary signals used by the heuristic quality proxy.
	ExternalCommentary bool `json:"external_commentary"`
	DescriptionLength  int  `json:"description_length"`
	TagCount           int  `json:"tag_count"`

	CreatedAt time.Time `json:"created_at"`
}

// HighlightRecord is one selected highlight. The entire set is cleared and
// rewritten each refresh; no versioning.
type HighlightRecord struct {
	ID            string    `json:"id"`
	ContentItemID string    `json:"content_item_id"`
	Score         float64   `json:"score"`
	Reason        string    `json:"reason"`
	DisplayOrder  int       `json:"display_order"`
	CreatedAt     time.Time `json:"created_at"`
}
