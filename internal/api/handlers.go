// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/coterie/internal/cache"
	"github.com/tomtom215/coterie/internal/community"
	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/database"
	"github.com/tomtom215/coterie/internal/lease"
	"github.com/tomtom215/coterie/internal/models"
	"github.com/tomtom215/coterie/internal/scoring"
)

var validate = validator.New()

// Store is the read surface the handlers expose.
type Store interface {
	LatestSnapshot(ctx context.Context) (*models.CommunitySnapshot, error)
	GetMember(ctx context.Context, id string) (*models.Member, error)
	GetActivityScore(ctx context.Context, memberID string) (*models.ActivityScore, error)
	RotationLogPage(ctx context.Context, page, pageSize int) ([]models.RotationLogEntry, int, error)
	ListHighlights(ctx context.Context) ([]models.HighlightRecord, error)
	Ping(ctx context.Context) error
}

// RotationRunner triggers operator-forced control-loop passes.
type RotationRunner interface {
	Run(ctx context.Context) (*community.RotationResult, error)
	EmergencyRebalance(ctx context.Context, count int) (*community.RotationResult, error)
}

// ReportProvider exposes the latest scoring run report.
type ReportProvider interface {
	LastReport() *scoring.Report
}

// Handler serves the read API and the operator endpoints.
type Handler struct {
	store    Store
	rotation RotationRunner
	reports  ReportProvider
	cfg      *config.APIConfig

	// Response caches for the hot read endpoints. Nil when caching is
	// disabled (cache_ttl <= 0); flushed after operator-forced runs.
	snapshots  *cache.Cache[*models.CommunitySnapshot]
	highlights *cache.Cache[[]models.HighlightRecord]
}

// NewHandler creates the API handler.
func NewHandler(store Store, rotation RotationRunner, reports ReportProvider, cfg *config.APIConfig) *Handler {
	h := &Handler{
		store:    store,
		rotation: rotation,
		reports:  reports,
		cfg:      cfg,
	}
	if cfg.CacheTTL > 0 {
		h.snapshots = cache.New[*models.CommunitySnapshot](cfg.CacheTTL)
		h.highlights = cache.New[[]models.HighlightRecord](cfg.CacheTTL)
	}
	return h
}

// flushCaches drops cached reads so the next request reflects a forced run.
func (h *Handler) flushCaches() {
	if h.snapshots != nil {
		h.snapshots.Flush()
	}
	if h.highlights != nil {
		h.highlights.Flush()
	}
}

// Snapshot returns the latest community snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots != nil {
		if cached, ok := h.snapshots.Get("latest"); ok {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	snapshot, err := h.store.LatestSnapshot(r.Context())
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no snapshot taken yet")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	if h.snapshots != nil {
		h.snapshots.Set("latest", snapshot)
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// memberStanding is the member read model: tier state plus the sub-scores
// behind it.
type memberStanding struct {
	Member *models.Member        `json:"member"`
	Score  *models.ActivityScore `json:"score,omitempty"`
}

// MemberStanding returns one member's tier and score breakdown.
func (h *Handler) MemberStanding(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "id")
	if memberID == "" {
		respondError(w, http.StatusBadRequest, "member id required")
		return
	}

	member, err := h.store.GetMember(r.Context(), memberID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load member")
		return
	}

	standing := memberStanding{Member: member}
	if score, err := h.store.GetActivityScore(r.Context(), memberID); err == nil {
		standing.Score = score
	}
	respondJSON(w, http.StatusOK, standing)
}

// RotationLog returns a page of the audit history, newest first.
func (h *Handler) RotationLog(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", h.cfg.DefaultPageSize)
	if page < 1 {
		respondError(w, http.StatusBadRequest, "page must be >= 1")
		return
	}
	if pageSize < 1 || pageSize > h.cfg.MaxPageSize {
		respondError(w, http.StatusBadRequest, "page_size out of range")
		return
	}

	entries, total, err := h.store.RotationLogPage(r.Context(), page, pageSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load rotation log")
		return
	}

	respondJSON(w, http.StatusOK, PagedData{
		Items:    entries,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// Highlights returns the current highlight set in display order.
func (h *Handler) Highlights(w http.ResponseWriter, r *http.Request) {
	if h.highlights != nil {
		if cached, ok := h.highlights.Get("current"); ok {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	records, err := h.store.ListHighlights(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load highlights")
		return
	}
	if h.highlights != nil {
		h.highlights.Set("current", records)
	}
	respondJSON(w, http.StatusOK, records)
}

// RotationReport returns the latest scoring run report for the admin surface.
func (h *Handler) RotationReport(w http.ResponseWriter, _ *http.Request) {
	report := h.reports.LastReport()
	if report == nil {
		respondError(w, http.StatusNotFound, "no scoring run completed yet")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// OpsRotate forces one control-loop pass.
func (h *Handler) OpsRotate(w http.ResponseWriter, r *http.Request) {
	result, err := h.rotation.Run(r.Context())
	if errors.Is(err, lease.ErrLeaseHeld) {
		respondError(w, http.StatusConflict, "a rotation pass is already running")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "rotation pass failed")
		return
	}
	h.flushCaches()
	respondJSON(w, http.StatusOK, result)
}

// rebalanceRequest is the emergency-rebalance body.
type rebalanceRequest struct {
	Count int `json:"count" validate:"required,min=1"`
}

// OpsRebalance forces an emergency rebalance of the lowest-scoring risk
// members.
func (h *Handler) OpsRebalance(w http.ResponseWriter, r *http.Request) {
	var req rebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "count must be a positive integer")
		return
	}

	result, err := h.rotation.EmergencyRebalance(r.Context(), req.Count)
	if errors.Is(err, lease.ErrLeaseHeld) {
		respondError(w, http.StatusConflict, "a rotation pass is already running")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "emergency rebalance failed")
		return
	}
	h.flushCaches()
	respondJSON(w, http.StatusOK, result)
}

// Health reports readiness, including store connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
