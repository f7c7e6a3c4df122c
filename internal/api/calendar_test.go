/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/heirloom/internal/auth"
	"github.com/friendsincode/heirloom/internal/calendar"
	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/contentgen"
	"github.com/friendsincode/heirloom/internal/models"
	"github.com/friendsincode/heirloom/internal/scheduling"
)

var testSecret = []byte("test-secret-test-secret-test-secret")

type testEnv struct {
	db     *gorm.DB
	store  *calendar.Store
	router chi.Router
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Topic{}, &models.ContentItem{}, &models.BatchRun{}, &models.BatchRunError{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cal := clock.New(time.UTC).WithNow(func() time.Time {
		return time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	})
	store := calendar.NewStore(db, cal, zerolog.Nop())
	opts := scheduling.DefaultOptions()
	opts.Source = rand.NewPCG(1, 2)
	scheduler := scheduling.NewBatchScheduler(store, contentgen.NewTemplateGenerator(), cal, opts, zerolog.Nop())

	r := chi.NewRouter()
	New(testSecret, scheduler, store, zerolog.Nop()).Routes(r)

	token, err := auth.Issue(testSecret, auth.Claims{UserID: "u1", Roles: []string{auth.RoleEditor}}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &testEnv{db: db, store: store, router: r, token: token}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) seedTopics(t *testing.T, ids ...string) {
	t.Helper()
	topics := make([]models.Topic, 0, len(ids))
	for _, id := range ids {
		topics = append(topics, models.Topic{ID: id, Title: "Topic " + id, Keywords: []string{"heirloom"}})
	}
	if _, err := e.store.UpsertTopics(context.Background(), topics); err != nil {
		t.Fatalf("seed topics: %v", err)
	}
}

func (e *testEnv) seedApproved(t *testing.T, day time.Time) {
	t.Helper()
	item := models.ContentItem{
		ID:           uuid.NewString(),
		TopicID:      "existing",
		Kind:         models.ContentKindBlog,
		Status:       models.ContentApproved,
		Title:        "existing post",
		ScheduledFor: &day,
	}
	if err := e.db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body["error"]
}

func TestCalendarRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar/occupancy", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	viewer, err := auth.Issue(testSecret, auth.Claims{UserID: "u2", Roles: []string{"viewer"}}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/calendar/occupancy", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestScheduleBatchPlacesTopicsOnCadence(t *testing.T) {
	env := newTestEnv(t)
	env.seedTopics(t, "a", "b", "c")
	env.seedApproved(t, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))

	rr := env.do(t, http.MethodPost, "/api/v1/calendar/batches",
		`{"topic_ids":["a","b","c"],"start_date":"2025-01-01","interval_days":7,"formats":["blog"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}

	var summary scheduling.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Succeeded != 3 || summary.Failed != 0 {
		t.Fatalf("succeeded/failed = %d/%d, want 3/0", summary.Succeeded, summary.Failed)
	}
	want := []string{"2025-01-01", "2025-01-15", "2025-01-22"}
	for i, p := range summary.Placements {
		if p.PrimaryDate == nil {
			t.Fatalf("placement %d has no primary date", i)
		}
		if got := p.PrimaryDate.UTC().Format(clock.DateLayout); got != want[i] {
			t.Errorf("placement %d primary = %s, want %s", i, got, want[i])
		}
	}

	rr = env.do(t, http.MethodGet, "/api/v1/calendar/batches/"+summary.BatchRunID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get batch status = %d body = %s", rr.Code, rr.Body.String())
	}
	var run models.BatchRun
	if err := json.Unmarshal(rr.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.Succeeded != 3 || run.ItemsPlaced != 3 {
		t.Fatalf("run succeeded/items = %d/%d, want 3/3", run.Succeeded, run.ItemsPlaced)
	}
}

func TestScheduleBatchReportsTopicFailures(t *testing.T) {
	env := newTestEnv(t)
	env.seedTopics(t, "a")

	rr := env.do(t, http.MethodPost, "/api/v1/calendar/batches",
		`{"topic_ids":["missing","a"],"start_date":"2025-02-01","formats":["blog","newsletter"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	var summary scheduling.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Failed != 1 || len(summary.Errors) != 1 {
		t.Fatalf("failed = %d errors = %d, want 1/1", summary.Failed, len(summary.Errors))
	}
	if summary.Errors[0].TopicID != "missing" || summary.Errors[0].Position != 0 {
		t.Fatalf("error = %+v", summary.Errors[0])
	}
	if got := summary.Placements[1].PrimaryDate.UTC().Format(clock.DateLayout); got != "2025-02-01" {
		t.Fatalf("primary = %s, want 2025-02-01", got)
	}
	if summary.ItemsPlaced != 2 {
		t.Fatalf("items placed = %d, want 2", summary.ItemsPlaced)
	}
}

func TestScheduleBatchRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty body", ``, "invalid_json"},
		{"no topics", `{"topic_ids":[]}`, "validation_failed"},
		{"unknown format", `{"topic_ids":["a"],"formats":["video"]}`, "validation_failed"},
		{"bad date", `{"topic_ids":["a"],"start_date":"01/02/2025"}`, "validation_failed"},
		{"negative interval", `{"topic_ids":["a"],"interval_days":-1}`, "validation_failed"},
		{"unknown field", `{"topic_ids":["a"],"cadence":3}`, "invalid_json"},
		{"trailing data", `{"topic_ids":["a"]} {}`, "invalid_json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/v1/calendar/batches", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
			}
			if got := errorCode(t, rr); got != tt.code {
				t.Fatalf("error = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestGetBatchNotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/v1/calendar/batches/"+uuid.NewString(), "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if got := errorCode(t, rr); got != "batch_run_not_found" {
		t.Fatalf("error = %q", got)
	}
}

func TestNextAvailable(t *testing.T) {
	env := newTestEnv(t)
	env.seedApproved(t, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name   string
		query  string
		status int
		date   string
	}{
		{"free day", "?date=2025-01-09", http.StatusOK, "2025-01-09"},
		{"taken day skips interval", "?date=2025-01-08&interval_days=7", http.StatusOK, "2025-01-15"},
		{"defaults to today", "", http.StatusOK, "2025-01-01"},
		{"bad interval", "?interval_days=0", http.StatusBadRequest, ""},
		{"bad date", "?date=tomorrow", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/api/v1/calendar/next-available"+tt.query, "")
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.status, rr.Body.String())
			}
			if tt.date == "" {
				return
			}
			var body map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["date"] != tt.date {
				t.Fatalf("date = %v, want %s", body["date"], tt.date)
			}
		})
	}
}

func TestOccupancyAndRangeValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedApproved(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))

	rr := env.do(t, http.MethodGet, "/api/v1/calendar/occupancy?from=2025-01-01&to=2025-01-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Days []calendar.DayOccupancy `json:"days"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Days) != 3 {
		t.Fatalf("days = %d, want 3", len(body.Days))
	}
	if body.Days[1].Date != "2025-01-02" || body.Days[1].Total != 1 {
		t.Fatalf("day 2 = %+v", body.Days[1])
	}

	rr = env.do(t, http.MethodGet, "/api/v1/calendar/occupancy?from=2025-01-05&to=2025-01-01", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("reversed range status = %d, want 400", rr.Code)
	}
	if got := errorCode(t, rr); got != "invalid_range" {
		t.Fatalf("error = %q", got)
	}
}

func TestListItems(t *testing.T) {
	env := newTestEnv(t)
	env.seedApproved(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))

	rr := env.do(t, http.MethodGet, "/api/v1/calendar/items?from=2025-01-01&to=2025-01-07", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Items []models.ContentItem `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Title != "existing post" {
		t.Fatalf("items = %+v", body.Items)
	}
}

func TestExportICal(t *testing.T) {
	env := newTestEnv(t)
	env.seedApproved(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))

	rr := env.do(t, http.MethodGet, "/api/v1/calendar/export.ics?from=2025-01-01&to=2025-01-31", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, ".ics") {
		t.Fatalf("content disposition = %q", cd)
	}
	if !strings.Contains(rr.Body.String(), "BEGIN:VCALENDAR") {
		t.Fatalf("body is not a calendar: %s", rr.Body.String())
	}
}
