// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/coterie/internal/community"
	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/database"
	"github.com/tomtom215/coterie/internal/lease"
	"github.com/tomtom215/coterie/internal/models"
	"github.com/tomtom215/coterie/internal/scoring"
)

type mockAPIStore struct {
	snapshot   *models.CommunitySnapshot
	member     *models.Member
	score      *models.ActivityScore
	logEntries []models.RotationLogEntry
	logTotal   int
	highlights []models.HighlightRecord
	pingErr    error
}

func (s *mockAPIStore) LatestSnapshot(_ context.Context) (*models.CommunitySnapshot, error) {
	if s.snapshot == nil {
		return nil, database.ErrNotFound
	}
	return s.snapshot, nil
}

func (s *mockAPIStore) GetMember(_ context.Context, id string) (*models.Member, error) {
	if s.member == nil || s.member.ID != id {
		return nil, database.ErrNotFound
	}
	return s.member, nil
}

func (s *mockAPIStore) GetActivityScore(_ context.Context, memberID string) (*models.ActivityScore, error) {
	if s.score == nil || s.score.MemberID != memberID {
		return nil, database.ErrNotFound
	}
	return s.score, nil
}

func (s *mockAPIStore) RotationLogPage(_ context.Context, _, _ int) ([]models.RotationLogEntry, int, error) {
	return s.logEntries, s.logTotal, nil
}

func (s *mockAPIStore) ListHighlights(_ context.Context) ([]models.HighlightRecord, error) {
	return s.highlights, nil
}

func (s *mockAPIStore) Ping(_ context.Context) error {
	return s.pingErr
}

type mockRunner struct {
	result    *community.RotationResult
	err       error
	lastCount int
}

func (r *mockRunner) Run(_ context.Context) (*community.RotationResult, error) {
	return r.result, r.err
}

func (r *mockRunner) EmergencyRebalance(_ context.Context, count int) (*community.RotationResult, error) {
	r.lastCount = count
	return r.result, r.err
}

type mockReports struct {
	report *scoring.Report
}

func (r *mockReports) LastReport() *scoring.Report { return r.report }

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		Timeout:         5 * time.Second,
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
		CORSOrigins:     []string{"*"},
	}
}

func newTestRouter(store *mockAPIStore, runner *mockRunner, reports *mockReports) http.Handler {
	handler := NewHandler(store, runner, reports, &config.APIConfig{DefaultPageSize: 20, MaxPageSize: 100})
	return NewRouter(handler, testServerConfig())
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestSnapshotEndpoint(t *testing.T) {
	store := &mockAPIStore{snapshot: &models.CommunitySnapshot{
		TotalMembers: 42,
		TierCounts:   map[models.Tier]int{models.TierActive: 42},
		TakenAt:      time.Now().UTC(),
	}}
	router := newTestRouter(store, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/community/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "ok" {
		t.Errorf("status field = %q, want ok", resp.Status)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	router := newTestRouter(&mockAPIStore{}, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/community/snapshot", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMemberStanding(t *testing.T) {
	store := &mockAPIStore{
		member: &models.Member{ID: "m1", CurrentTier: models.TierWatch, HealthScore: 24},
		score:  &models.ActivityScore{MemberID: "m1", OverallHealthScore: 24},
	}
	router := newTestRouter(store, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/members/m1/standing", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"watch"`) {
		t.Errorf("body missing tier: %s", rec.Body.String())
	}
}

func TestMemberStandingNotFound(t *testing.T) {
	router := newTestRouter(&mockAPIStore{}, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/members/ghost/standing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRotationLogPaging(t *testing.T) {
	store := &mockAPIStore{
		logEntries: []models.RotationLogEntry{{MemberID: "m1", ActionType: models.ActionWarned}},
		logTotal:   7,
	}
	router := newTestRouter(store, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/rotation/log?page=1&page_size=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total":7`) {
		t.Errorf("body missing total: %s", rec.Body.String())
	}
}

func TestRotationLogRejectsBadPaging(t *testing.T) {
	router := newTestRouter(&mockAPIStore{}, &mockRunner{}, &mockReports{})

	tests := []string{
		"/api/v1/rotation/log?page=0",
		"/api/v1/rotation/log?page=abc",
		"/api/v1/rotation/log?page_size=0",
		"/api/v1/rotation/log?page_size=101",
	}
	for _, path := range tests {
		if rec := doRequest(t, router, http.MethodGet, path, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestHighlightsEndpoint(t *testing.T) {
	store := &mockAPIStore{highlights: []models.HighlightRecord{
		{ID: "h1", ContentItemID: "c1", Score: 0.8, DisplayOrder: 0},
	}}
	router := newTestRouter(store, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/highlights", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"c1"`) {
		t.Errorf("body missing highlight: %s", rec.Body.String())
	}
}

func TestRotationReport(t *testing.T) {
	reports := &mockReports{report: &scoring.Report{
		Evaluated: 10,
		Failed:    map[string]string{"m9": "counter source: connection refused"},
	}}
	router := newTestRouter(&mockAPIStore{}, &mockRunner{}, reports)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/rotation/report", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "m9") {
		t.Errorf("body missing failed member: %s", rec.Body.String())
	}
}

func TestRotationReportBeforeFirstRun(t *testing.T) {
	router := newTestRouter(&mockAPIStore{}, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/rotation/report", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestOpsRotate(t *testing.T) {
	runner := &mockRunner{result: &community.RotationResult{Evicted: 2, Reactivated: 2}}
	router := newTestRouter(&mockAPIStore{}, runner, &mockReports{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/ops/rotate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestOpsRotateConflictWhenLeaseHeld(t *testing.T) {
	runner := &mockRunner{err: lease.ErrLeaseHeld}
	router := newTestRouter(&mockAPIStore{}, runner, &mockReports{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/ops/rotate", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestOpsRebalance(t *testing.T) {
	runner := &mockRunner{result: &community.RotationResult{Evicted: 3}}
	router := newTestRouter(&mockAPIStore{}, runner, &mockReports{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/ops/rebalance", `{"count":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if runner.lastCount != 3 {
		t.Errorf("rebalance count = %d, want 3", runner.lastCount)
	}
}

func TestOpsRebalanceValidation(t *testing.T) {
	router := newTestRouter(&mockAPIStore{}, &mockRunner{}, &mockReports{})

	tests := []struct {
		name string
		body string
	}{
		{"zero count", `{"count":0}`},
		{"negative count", `{"count":-5}`},
		{"missing count", `{}`},
		{"invalid json", `{count}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/ops/rebalance", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&mockAPIStore{}, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHealthUnavailableWhenStoreDown(t *testing.T) {
	store := &mockAPIStore{pingErr: context.DeadlineExceeded}
	router := newTestRouter(store, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsExposed(t *testing.T) {
	router := newTestRouter(&mockAPIStore{}, &mockRunner{}, &mockReports{})

	rec := doRequest(t, router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSnapshotResponseCaching(t *testing.T) {
	store := &mockAPIStore{snapshot: &models.CommunitySnapshot{TotalMembers: 100}}
	handler := NewHandler(store, &mockRunner{result: &community.RotationResult{}}, &mockReports{},
		&config.APIConfig{DefaultPageSize: 20, MaxPageSize: 100, CacheTTL: time.Minute})
	router := NewRouter(handler, testServerConfig())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/community/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("first snapshot read = %d", rec.Code)
	}

	// Within the TTL the cached copy is served even after the store changes.
	store.snapshot = &models.CommunitySnapshot{TotalMembers: 500}
	rec = doRequest(t, router, http.MethodGet, "/api/v1/community/snapshot", "")
	if !strings.Contains(rec.Body.String(), `"total_members":100`) {
		t.Errorf("expected cached snapshot, got %s", rec.Body.String())
	}

	// A forced rotation flushes the cache.
	rec = doRequest(t, router, http.MethodPost, "/api/v1/ops/rotate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ops/rotate = %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/api/v1/community/snapshot", "")
	if !strings.Contains(rec.Body.String(), `"total_members":500`) {
		t.Errorf("expected fresh snapshot after flush, got %s", rec.Body.String())
	}
}
