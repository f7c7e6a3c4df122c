/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package calendar persists content items and answers day-occupancy queries.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/models"
	"github.com/friendsincode/heirloom/internal/scheduling"
)

// MaxRangeDays bounds occupancy and export queries.
const MaxRangeDays = 366

var (
	ErrBatchRunNotFound = errors.New("batch run not found")
	ErrInvalidRange     = errors.New("invalid date range")
)

// Store is the gorm-backed calendar.
type Store struct {
	db     *gorm.DB
	cal    *clock.Calendar
	logger zerolog.Logger
}

var _ scheduling.Store = (*Store)(nil)

// NewStore creates a calendar store.
func NewStore(db *gorm.DB, cal *clock.Calendar, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		cal:    cal,
		logger: logger.With().Str("component", "calendar_store").Logger(),
	}
}

// Calendar returns the day arithmetic the store counts in.
func (s *Store) Calendar() *clock.Calendar {
	return s.cal
}

// CountApprovedOnDay counts approved items scheduled on day.
func (s *Store) CountApprovedOnDay(ctx context.Context, day time.Time) (int64, error) {
	return s.CountOnDayByStatus(ctx, day, []models.ContentStatus{models.ContentApproved})
}

// CountOnDayByStatus counts items with one of statuses scheduled in [day, next day).
func (s *Store) CountOnDayByStatus(ctx context.Context, day time.Time, statuses []models.ContentStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	start, end := s.cal.DayRange(day)

	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("status IN ?", statuses).
		Where("scheduled_for >= ? AND scheduled_for < ?", start.UTC(), end.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count content items: %w", err)
	}
	return n, nil
}

// LoadTopic fetches a topic by id.
func (s *Store) LoadTopic(ctx context.Context, id string) (*models.Topic, error) {
	var topic models.Topic
	err := s.db.WithContext(ctx).First(&topic, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, scheduling.ErrTopicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load topic: %w", err)
	}
	return &topic, nil
}

// SaveTopicItems inserts items and marks the topic scheduled in one transaction.
func (s *Store) SaveTopicItems(ctx context.Context, topic *models.Topic, items []*models.ContentItem) error {
	for _, item := range items {
		if item.ScheduledFor != nil {
			utc := item.ScheduledFor.UTC()
			item.ScheduledFor = &utc
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("insert content items: %w", err)
			}
		}
		res := tx.Model(&models.Topic{}).
			Where("id = ?", topic.ID).
			Update("status", models.TopicScheduled)
		if res.Error != nil {
			return fmt.Errorf("mark topic scheduled: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return scheduling.ErrTopicNotFound
		}
		return nil
	})
}

// SaveBatchRun stores a batch run and its errors.
func (s *Store) SaveBatchRun(ctx context.Context, run *models.BatchRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("save batch run: %w", err)
	}
	return nil
}

// GetBatchRun loads a batch run with its errors in input order.
func (s *Store) GetBatchRun(ctx context.Context, id string) (*models.BatchRun, error) {
	var run models.BatchRun
	err := s.db.WithContext(ctx).
		Preload("Errors", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load batch run: %w", err)
	}
	return &run, nil
}

// UpsertTopics creates topics or refreshes their copy fields. Status of an
// existing topic is left alone. Topics without an id get one; ids are
// returned in input order.
func (s *Store) UpsertTopics(ctx context.Context, topics []models.Topic) ([]string, error) {
	ids := make([]string, 0, len(topics))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range topics {
			t := &topics[i]
			if strings.TrimSpace(t.Title) == "" {
				return fmt.Errorf("topic %d: title is required", i)
			}
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if t.Status == "" {
				t.Status = models.TopicApproved
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "summary", "keywords", "social_posts", "updated_at"}),
			}).Create(t).Error
			if err != nil {
				return fmt.Errorf("upsert topic %s: %w", t.ID, err)
			}
			ids = append(ids, t.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DayOccupancy is the per-status item count of one calendar day.
type DayOccupancy struct {
	Date   string                         `json:"date"`
	Total  int64                          `json:"total"`
	Counts map[models.ContentStatus]int64 `json:"counts"`
}

// Occupancy counts items per day and status for every day in [from, to].
// Days without items are included with zero counts.
func (s *Store) Occupancy(ctx context.Context, from, to time.Time) ([]DayOccupancy, error) {
	start, end, err := s.span(from, to)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status       models.ContentStatus
		ScheduledFor time.Time
	}
	err = s.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Select("status, scheduled_for").
		Where("scheduled_for >= ? AND scheduled_for < ?", start.UTC(), end.UTC()).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}

	byDay := make(map[string]*DayOccupancy)
	var out []DayOccupancy
	for day := start; day.Before(end); day = s.cal.AddDays(day, 1) {
		out = append(out, DayOccupancy{Date: s.cal.Format(day), Counts: map[models.ContentStatus]int64{}})
	}
	for i := range out {
		byDay[out[i].Date] = &out[i]
	}
	for _, r := range rows {
		d, ok := byDay[s.cal.Format(r.ScheduledFor)]
		if !ok {
			continue
		}
		d.Counts[r.Status]++
		d.Total++
	}
	return out, nil
}

// ListScheduled returns items scheduled in [from, to] ordered by date then kind.
func (s *Store) ListScheduled(ctx context.Context, from, to time.Time) ([]models.ContentItem, error) {
	start, end, err := s.span(from, to)
	if err != nil {
		return nil, err
	}

	var items []models.ContentItem
	err = s.db.WithContext(ctx).
		Where("scheduled_for >= ? AND scheduled_for < ?", start.UTC(), end.UTC()).
		Order("scheduled_for ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list scheduled items: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := s.cal.Format(*items[i].ScheduledFor), s.cal.Format(*items[j].ScheduledFor)
		if di != dj {
			return di < dj
		}
		return kindRank(items[i].Kind) < kindRank(items[j].Kind)
	})
	return items, nil
}

// span converts an inclusive day range into the half-open instant range.
func (s *Store) span(from, to time.Time) (time.Time, time.Time, error) {
	start := s.cal.StartOfDay(from)
	last := s.cal.StartOfDay(to)
	if last.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, s.cal.Format(last), s.cal.Format(start))
	}
	if s.cal.DaysBetween(start, last) >= MaxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: more than %d days", ErrInvalidRange, MaxRangeDays)
	}
	return start, s.cal.AddDays(last, 1), nil
}

func kindRank(k models.ContentKind) int {
	switch k {
	case models.ContentKindBlog:
		return 0
	case models.ContentKindNewsletter:
		return 1
	default:
		return 2
	}
}
