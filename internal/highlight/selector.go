// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package highlight selects the featured content set. Selection is weighted
// random on purpose: repeated runs over an unchanged item set should not
// always surface the same winner, so every refresh perturbs scores and picks
// from a candidate pool instead of taking the deterministic maximum.
package highlight

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/metrics"
	"github.com/tomtom215/coterie/internal/models"
)

// ContentSource lists the content items eligible for highlighting.
type ContentSource interface {
	ListEligibleItems(ctx context.Context) ([]models.ContentItem, error)
}

// QualityOracle optionally supplies an external quality score for an item.
// The second return reports presence; absence routes the item through the
// heuristic scoring path.
type QualityOracle interface {
	QualityScore(ctx context.Context, contentItemID string) (float64, bool, error)
}

// HighlightStore persists the selected set.
type HighlightStore interface {
	ReplaceHighlights(ctx context.Context, records []models.HighlightRecord) error
}

// Entropy is the randomness the selector consumes. Injected so tests can fix
// the sequence; production uses a time-seeded source.
type Entropy interface {
	Float64() float64
	Int63() int64
}

// scoredItem pairs an item with its perturbed selection score.
type scoredItem struct {
	item     models.ContentItem
	score    float64
	external bool
}

// Selector runs the highlight refresh pipeline.
type Selector struct {
	source ContentSource
	oracle QualityOracle
	store  HighlightStore
	cfg    *config.HighlightConfig
	rng    Entropy
	logger zerolog.Logger
}

// NewSelector creates a selector with a time-seeded entropy source. The
// oracle may be nil when no external quality service is deployed.
func NewSelector(source ContentSource, oracle QualityOracle, store HighlightStore,
	cfg *config.HighlightConfig, logger zerolog.Logger) *Selector {
	return &Selector{
		source: source,
		oracle: oracle,
		store:  store,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // selection variety, not cryptography
		logger: logger.With().Str("component", "highlight").Logger(),
	}
}

// SetEntropy replaces the entropy source. Test hook.
func (s *Selector) SetEntropy(e Entropy) {
	s.rng = e
}

// Refresh scores all eligible items, selects up to the configured number of
// highlights, and atomically replaces the persisted set. An empty item set
// clears the highlights and is not an error.
func (s *Selector) Refresh(ctx context.Context) ([]models.HighlightRecord, error) {
	start := time.Now()

	items, err := s.source.ListEligibleItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible items: %w", err)
	}
	if len(items) == 0 {
		if err := s.store.ReplaceHighlights(ctx, nil); err != nil {
			return nil, fmt.Errorf("clear highlights: %w", err)
		}
		s.logger.Info().Msg("No eligible content; highlight set cleared")
		return nil, nil
	}

	scored := s.scoreItems(ctx, items, time.Now().UTC())
	pool := candidatePool(scored)
	metrics.HighlightCandidatePool.Observe(float64(len(pool)))

	selected := s.selectFromPool(pool)

	records := make([]models.HighlightRecord, len(selected))
	now := time.Now().UTC()
	for i, cand := range selected {
		records[i] = models.HighlightRecord{
			ID:            uuid.NewString(),
			ContentItemID: cand.item.ID,
			Score:         cand.score,
			Reason:        scoreReason(cand),
			DisplayOrder:  i,
			CreatedAt:     now,
		}
	}

	if err := s.store.ReplaceHighlights(ctx, records); err != nil {
		return nil, fmt.Errorf("replace highlights: %w", err)
	}

	metrics.HighlightRefreshDuration.Observe(time.Since(start).Seconds())
	s.logger.Info().
		Int("eligible", len(items)).
		Int("pool", len(pool)).
		Int("selected", len(records)).
		Msg("Highlight set refreshed")

	return records, nil
}

// scoreItems computes the perturbed selection score for every item.
// Engagement terms are normalized against the current set's maxima so a quiet
// week still produces a full [0,1] spread.
func (s *Selector) scoreItems(ctx context.Context, items []models.ContentItem, now time.Time) []scoredItem {
	maxLikes, maxComments := 0, 0
	for i := range items {
		if items[i].Likes > maxLikes {
			maxLikes = items[i].Likes
		}
		if items[i].Comments > maxComments {
			maxComments = items[i].Comments
		}
	}

	scored := make([]scoredItem, 0, len(items))
	for i := range items {
		item := items[i]
		blend := engagementBlend(&item, maxLikes, maxComments)

		quality, hasQuality := s.itemQuality(ctx, &item)

		var score float64
		if hasQuality {
			score = 0.8*clamp01(quality) + 0.2*blend
		} else {
			engagementWeight := 1 - s.cfg.RecencyWeight - s.cfg.QualityWeight
			score = engagementWeight*blend +
				s.cfg.RecencyWeight*recencyScore(now.Sub(item.CreatedAt)) +
				s.cfg.QualityWeight*heuristicQuality(&item)
		}

		jitter := s.cfg.JitterWithoutQuality
		if hasQuality {
			jitter = s.cfg.JitterWithQuality
		}
		score += (s.rng.Float64()*2 - 1) * jitter

		scored = append(scored, scoredItem{
			item:     item,
			score:    clamp01(score),
			external: hasQuality,
		})
	}
	return scored
}

// itemQuality resolves the external quality score: the embedded value first,
// then the oracle. Oracle failures degrade to the heuristic path.
func (s *Selector) itemQuality(ctx context.Context, item *models.ContentItem) (float64, bool) {
	if item.QualityScore != nil {
		return *item.QualityScore, true
	}
	if s.oracle == nil {
		return 0, false
	}
	quality, ok, err := s.oracle.QualityScore(ctx, item.ID)
	if err != nil {
		s.logger.Warn().Str("content_id", item.ID).Err(err).
			Msg("Quality oracle failed; using heuristic score")
		return 0, false
	}
	return quality, ok
}

// candidatePool sorts by score descending and keeps the top
// max(3, ceil(0.2*N)) items, capped at N.
func candidatePool(scored []scoredItem) []scoredItem {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	size := int(math.Ceil(0.2 * float64(len(scored))))
	if size < 3 {
		size = 3
	}
	if size > len(scored) {
		size = len(scored)
	}
	return scored[:size]
}

// selectFromPool picks the lead highlight via a high-entropy index, then
// fills remaining slots with a one-per-author first pass and a leftover pass
// that never repeats an item ID.
func (s *Selector) selectFromPool(pool []scoredItem) []scoredItem {
	limit := s.cfg.MaxHighlights
	if limit > len(pool) {
		limit = len(pool)
	}
	if limit == 0 {
		return nil
	}

	// Combining time, an independent draw, and a hash of the candidate IDs
	// keeps the index well spread even for small, stable pools hit in quick
	// succession.
	mix := time.Now().UnixNano() ^ s.rng.Int63() ^ int64(poolHash(pool))
	lead := int(uint64(mix) % uint64(len(pool)))

	// Rotate so the picked candidate leads, preserving score order behind it.
	ordered := make([]scoredItem, 0, len(pool))
	ordered = append(ordered, pool[lead:]...)
	ordered = append(ordered, pool[:lead]...)

	selected := make([]scoredItem, 0, limit)
	seenIDs := make(map[string]struct{}, limit)
	seenAuthors := make(map[string]struct{}, limit)

	for _, cand := range ordered {
		if len(selected) == limit {
			return selected
		}
		if _, dup := seenAuthors[cand.item.AuthorID]; dup {
			continue
		}
		selected = append(selected, cand)
		seenIDs[cand.item.ID] = struct{}{}
		seenAuthors[cand.item.AuthorID] = struct{}{}
	}

	// Leftover pass: author diversity exhausted, fill by score without
	// duplicate item IDs.
	for _, cand := range ordered {
		if len(selected) == limit {
			break
		}
		if _, dup := seenIDs[cand.item.ID]; dup {
			continue
		}
		selected = append(selected, cand)
		seenIDs[cand.item.ID] = struct{}{}
	}
	return selected
}

// engagementBlend weighs normalized likes and comments 0.7/0.3 against the
// set maxima.
func engagementBlend(item *models.ContentItem, maxLikes, maxComments int) float64 {
	var likes, comments float64
	if maxLikes > 0 {
		likes = float64(item.Likes) / float64(maxLikes)
	}
	if maxComments > 0 {
		comments = float64(item.Comments) / float64(maxComments)
	}
	return 0.7*likes + 0.3*comments
}

// recencyScore is a step function of content age.
func recencyScore(age time.Duration) float64 {
	switch {
	case age <= 24*time.Hour:
		return 1.0
	case age <= 3*24*time.Hour:
		return 0.8
	case age <= 7*24*time.Hour:
		return 0.6
	case age <= 14*24*time.Hour:
		return 0.3
	default:
		return 0.1
	}
}

// heuristicQuality proxies editorial quality from auxiliary signals when no
// external score exists: commentary, a substantial description, and tagging
// effort.
func heuristicQuality(item *models.ContentItem) float64 {
	score := 0.0
	if item.ExternalCommentary {
		score += 0.4
	}
	score += math.Min(float64(item.DescriptionLength)/300, 1) * 0.3
	score += math.Min(float64(item.TagCount)/5, 1) * 0.3
	return clamp01(score)
}

// poolHash hashes the candidate item IDs for the selection index.
func poolHash(pool []scoredItem) uint32 {
	h := fnv.New32a()
	for i := range pool {
		_, _ = h.Write([]byte(pool[i].item.ID))
	}
	return h.Sum32()
}

func scoreReason(cand scoredItem) string {
	if cand.external {
		return fmt.Sprintf("external quality, score %.3f", cand.score)
	}
	return fmt.Sprintf("heuristic, score %.3f", cand.score)
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
