// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package platform

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/coterie/internal/database"
	"github.com/tomtom215/coterie/internal/models"
	"github.com/tomtom215/coterie/internal/scoring"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return db
}

func TestDirectoryListsActiveRosterOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for _, m := range []struct {
		id     string
		status models.MemberStatus
	}{
		{"m-1", models.MemberStatusActive},
		{"m-2", models.MemberStatusWaitlisted},
		{"m-3", models.MemberStatusActive},
	} {
		if err := db.UpsertRosterEntry(ctx, m.id, m.status, now); err != nil {
			t.Fatalf("UpsertRosterEntry(%s): %v", m.id, err)
		}
	}

	dir := NewDirectory(db)
	ids, err := dir.ListActiveMembers(ctx)
	if err != nil {
		t.Fatalf("ListActiveMembers: %v", err)
	}
	if len(ids) != 2 || ids[0] != "m-1" || ids[1] != "m-3" {
		t.Errorf("active roster = %v, want [m-1 m-3]", ids)
	}
}

func TestDirectorySetStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpsertRosterEntry(ctx, "m-1", models.MemberStatusActive, time.Now()); err != nil {
		t.Fatalf("UpsertRosterEntry: %v", err)
	}

	dir := NewDirectory(db)
	if err := dir.SetStatus(ctx, "m-1", models.MemberStatusWaitlisted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	ids, err := dir.ListActiveMembers(ctx)
	if err != nil {
		t.Fatalf("ListActiveMembers: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("active roster after waitlisting = %v, want empty", ids)
	}

	if err := dir.SetStatus(ctx, "ghost", models.MemberStatusActive); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("SetStatus(unknown) = %v, want ErrNotFound", err)
	}
}

func TestCountersAggregateWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	if err := db.UpsertRosterEntry(ctx, "m-1", models.MemberStatusActive, now); err != nil {
		t.Fatalf("UpsertRosterEntry: %v", err)
	}

	days := []struct {
		daysAgo int
		d       database.ActivityDay
	}{
		{1, database.ActivityDay{Posts: 3, LikesReceived: 10, CommentsReceived: 2, LikesGiven: 5, CommentsMade: 1, ProfileViews: 20, LoggedIn: true}},
		{2, database.ActivityDay{Posts: 1, LikesReceived: 4, CommentsMade: 2, LoggedIn: true}},
		// Outside a 7-day window, must not count.
		{10, database.ActivityDay{Posts: 50, LikesReceived: 100, LoggedIn: true}},
	}
	for _, e := range days {
		day := now.AddDate(0, 0, -e.daysAgo)
		if err := db.UpsertActivityDay(ctx, "m-1", day, e.d); err != nil {
			t.Fatalf("UpsertActivityDay: %v", err)
		}
	}

	src := NewCounters(db)
	c, err := src.WindowCounters(ctx, "m-1", 7)
	if err != nil {
		t.Fatalf("WindowCounters: %v", err)
	}
	if math.Abs(c.PostsPerDay-4.0/7.0) > 1e-9 {
		t.Errorf("PostsPerDay = %v, want %v", c.PostsPerDay, 4.0/7.0)
	}
	if c.LikesReceived != 14 || c.CommentsReceived != 2 {
		t.Errorf("received = %d/%d, want 14/2", c.LikesReceived, c.CommentsReceived)
	}
	if c.LikesGiven != 5 || c.CommentsMade != 3 {
		t.Errorf("given = %d/%d, want 5/3", c.LikesGiven, c.CommentsMade)
	}
	if c.LoginDaysInWindow != 2 {
		t.Errorf("LoginDaysInWindow = %d, want 2", c.LoginDaysInWindow)
	}
	if c.ProfileViews != 20 {
		t.Errorf("ProfileViews = %d, want 20", c.ProfileViews)
	}
}

func TestCountersIdleRosterMemberScoresZero(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpsertRosterEntry(ctx, "m-idle", models.MemberStatusActive, time.Now()); err != nil {
		t.Fatalf("UpsertRosterEntry: %v", err)
	}

	src := NewCounters(db)
	c, err := src.WindowCounters(ctx, "m-idle", 7)
	if err != nil {
		t.Fatalf("WindowCounters: %v", err)
	}
	if c.PostsPerDay != 0 || c.LikesReceived != 0 || c.LoginDaysInWindow != 0 {
		t.Errorf("idle member counters not zero: %+v", c)
	}
}

func TestCountersUnknownMemberMapsToSentinel(t *testing.T) {
	db := newTestDB(t)
	src := NewCounters(db)

	_, err := src.WindowCounters(context.Background(), "ghost", 7)
	if !errors.Is(err, scoring.ErrCounterNotFound) {
		t.Errorf("WindowCounters(unknown) = %v, want ErrCounterNotFound", err)
	}
}

func contentItem(id, author string, daysAgo int, quality *float64) *models.ContentItem {
	return &models.ContentItem{
		ID:                id,
		AuthorID:          author,
		Likes:             5,
		Comments:          2,
		QualityScore:      quality,
		DescriptionLength: 80,
		TagCount:          3,
		CreatedAt:         time.Now().AddDate(0, 0, -daysAgo),
	}
}

func TestCatalogEligibilityWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, item := range []*models.ContentItem{
		contentItem("c-fresh", "a1", 2, nil),
		contentItem("c-older", "a2", 20, nil),
		contentItem("c-stale", "a3", 45, nil),
	} {
		if err := db.UpsertContentItem(ctx, item); err != nil {
			t.Fatalf("UpsertContentItem(%s): %v", item.ID, err)
		}
	}

	catalog := NewCatalog(db, 30)
	items, err := catalog.ListEligibleItems(ctx)
	if err != nil {
		t.Fatalf("ListEligibleItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("eligible items = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.ID == "c-stale" {
			t.Error("stale item included in eligibility window")
		}
	}
}

func TestCatalogQualityScore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	q := 0.85
	if err := db.UpsertContentItem(ctx, contentItem("c-scored", "a1", 1, &q)); err != nil {
		t.Fatalf("UpsertContentItem: %v", err)
	}
	if err := db.UpsertContentItem(ctx, contentItem("c-unscored", "a2", 1, nil)); err != nil {
		t.Fatalf("UpsertContentItem: %v", err)
	}

	catalog := NewCatalog(db, 30)

	score, ok, err := catalog.QualityScore(ctx, "c-scored")
	if err != nil || !ok || score != 0.85 {
		t.Errorf("QualityScore(scored) = (%v, %v, %v), want (0.85, true, nil)", score, ok, err)
	}

	_, ok, err = catalog.QualityScore(ctx, "c-unscored")
	if err != nil || ok {
		t.Errorf("QualityScore(unscored) = (_, %v, %v), want (false, nil)", ok, err)
	}

	_, ok, err = catalog.QualityScore(ctx, "c-ghost")
	if err != nil || ok {
		t.Errorf("QualityScore(unknown) = (_, %v, %v), want (false, nil)", ok, err)
	}
}
