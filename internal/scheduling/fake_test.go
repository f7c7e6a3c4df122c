/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/friendsincode/heirloom/internal/calendarlock"
	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/models"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu       sync.Mutex
	cal      *clock.Calendar
	topics   map[string]*models.Topic
	items    []*models.ContentItem
	runs     []*models.BatchRun
	countErr error
	saveErr  error
	full     func(day time.Time) bool

	approvedCalls int
	statusCalls   int
}

func newFakeStore(cal *clock.Calendar) *fakeStore {
	return &fakeStore{cal: cal, topics: map[string]*models.Topic{}}
}

func (s *fakeStore) addTopic(id string) {
	s.topics[id] = &models.Topic{ID: id, Title: "Topic " + id, Status: models.TopicApproved}
}

func (s *fakeStore) addItem(status models.ContentStatus, day time.Time) {
	at := day.Add(10 * time.Hour)
	s.items = append(s.items, &models.ContentItem{ID: "seed", Kind: models.ContentKindBlog, Status: status, ScheduledFor: &at})
}

func (s *fakeStore) CountApprovedOnDay(ctx context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	s.approvedCalls++
	s.mu.Unlock()
	return s.count(day, []models.ContentStatus{models.ContentApproved})
}

func (s *fakeStore) CountOnDayByStatus(ctx context.Context, day time.Time, statuses []models.ContentStatus) (int64, error) {
	s.mu.Lock()
	s.statusCalls++
	s.mu.Unlock()
	if s.full != nil && s.full(day) {
		return 3, nil
	}
	return s.count(day, statuses)
}

func (s *fakeStore) count(day time.Time, statuses []models.ContentStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	start, end := s.cal.DayRange(day)
	var n int64
	for _, it := range s.items {
		if it.ScheduledFor == nil || !slices.Contains(statuses, it.Status) {
			continue
		}
		if !it.ScheduledFor.Before(start) && it.ScheduledFor.Before(end) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) LoadTopic(ctx context.Context, id string) (*models.Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[id]
	if !ok {
		return nil, ErrTopicNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) SaveTopicItems(ctx context.Context, topic *models.Topic, items []*models.ContentItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.items = append(s.items, items...)
	s.topics[topic.ID].Status = models.TopicScheduled
	return nil
}

func (s *fakeStore) SaveBatchRun(ctx context.Context, run *models.BatchRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeStore) itemsFor(topicID string, kind models.ContentKind) []*models.ContentItem {
	var out []*models.ContentItem
	for _, it := range s.items {
		if it.TopicID == topicID && it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context) (calendarlock.Release, error) {
	return nil, calendarlock.ErrHeld
}

type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context) (calendarlock.Release, error) {
	return nil, errors.New("redis down")
}

// cancelAwareLocker fails like a network lock would on a dead context.
type cancelAwareLocker struct{}

func (cancelAwareLocker) Acquire(ctx context.Context) (calendarlock.Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func(context.Context) error { return nil }, nil
}

func utcCalendar() *clock.Calendar {
	return clock.New(time.UTC)
}

func mustDay(t *testing.T, cal *clock.Calendar, s string) time.Time {
	t.Helper()
	d, err := cal.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func seeded(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}
