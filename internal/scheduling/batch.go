/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/heirloom/internal/calendarlock"
	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/contentgen"
	"github.com/friendsincode/heirloom/internal/events"
	"github.com/friendsincode/heirloom/internal/models"
	"github.com/friendsincode/heirloom/internal/telemetry"
)

// Store is the datastore surface a batch needs.
type Store interface {
	CalendarQuery
	// LoadTopic returns ErrTopicNotFound for unknown ids.
	LoadTopic(ctx context.Context, id string) (*models.Topic, error)
	// SaveTopicItems writes items and marks the topic scheduled atomically.
	SaveTopicItems(ctx context.Context, topic *models.Topic, items []*models.ContentItem) error
	SaveBatchRun(ctx context.Context, run *models.BatchRun) error
}

// Request describes one batch. Zero values select defaults.
type Request struct {
	TopicIDs     []string
	StartDate    time.Time
	IntervalDays int
	// Formats to produce. Blog is always produced; empty means every format.
	Formats []models.ContentKind
}

// DerivativePlacement is the date given to one newsletter or social post.
type DerivativePlacement struct {
	Kind     models.ContentKind `json:"kind"`
	Index    int                `json:"index"`
	Date     time.Time          `json:"date"`
	Fallback bool               `json:"fallback,omitempty"`
}

// Placement is the outcome for one topic, in input order.
type Placement struct {
	TopicID     string                `json:"topic_id"`
	PrimaryDate *time.Time            `json:"primary_date,omitempty"`
	Derivatives []DerivativePlacement `json:"derivatives,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Summary reports a finished batch. Partial success is a normal outcome.
type Summary struct {
	BatchRunID   string               `json:"batch_run_id"`
	StartDate    time.Time            `json:"start_date"`
	IntervalDays int                  `json:"interval_days"`
	Formats      []models.ContentKind `json:"formats"`
	Succeeded    int                  `json:"succeeded"`
	Failed       int                  `json:"failed"`
	ItemsPlaced  int                  `json:"items_placed"`
	Fallbacks    int                  `json:"capacity_fallbacks"`
	Placements   []Placement          `json:"placements"`
	Errors       []TopicError         `json:"errors"`
}

// BatchScheduler turns approved topics into dated calendar items.
type BatchScheduler struct {
	store    Store
	gen      contentgen.Generator
	cal      *clock.Calendar
	opts     Options
	primary  *PrimaryFinder
	capacity *CapacityFinder
	locker   calendarlock.Locker
	bus      events.Publisher
	logger   zerolog.Logger
}

// NewBatchScheduler wires the finders over store.
func NewBatchScheduler(store Store, gen contentgen.Generator, cal *clock.Calendar, opts Options, logger zerolog.Logger) *BatchScheduler {
	opts = opts.withDefaults()
	return &BatchScheduler{
		store:    store,
		gen:      gen,
		cal:      cal,
		opts:     opts,
		primary:  NewPrimaryFinder(store, cal, opts.MaxProbes),
		capacity: NewCapacityFinder(store, cal, opts.DayCapacity, opts.CapacityAttempts, opts.Source),
		locker:   calendarlock.Noop{},
		logger:   logger.With().Str("component", "batch_scheduler").Logger(),
	}
}

// SetLocker serializes batch runs through l.
func (b *BatchScheduler) SetLocker(l calendarlock.Locker) {
	if l == nil {
		l = calendarlock.Noop{}
	}
	b.locker = l
}

// SetBus publishes batch events to p.
func (b *BatchScheduler) SetBus(p events.Publisher) {
	b.bus = p
}

// Primary exposes the primary finder for read-only probes.
func (b *BatchScheduler) Primary() *PrimaryFinder {
	return b.primary
}

// DefaultIntervalDays is the cadence used when a request leaves it unset.
func (b *BatchScheduler) DefaultIntervalDays() int {
	return b.opts.DefaultIntervalDays
}

// Schedule runs one batch. Only request validation and lock contention are
// returned as errors; per-topic failures are reported in the summary.
// ctx bounds lock acquisition only; cancelling it later does not stop the batch.
func (b *BatchScheduler) Schedule(ctx context.Context, req Request) (*Summary, error) {
	formats, err := NormalizeFormats(req.Formats)
	if err != nil {
		return nil, err
	}
	if len(req.TopicIDs) == 0 {
		return nil, ErrNoTopics
	}
	interval := req.IntervalDays
	if interval < 0 {
		return nil, ErrInvalidInterval
	}
	if interval == 0 {
		interval = b.opts.DefaultIntervalDays
	}
	start := b.cal.Today()
	if !req.StartDate.IsZero() {
		start = b.cal.StartOfDay(req.StartDate)
	}

	release, err := b.locker.Acquire(ctx)
	if errors.Is(err, calendarlock.ErrHeld) {
		return nil, ErrBatchInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire calendar lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			b.logger.Warn().Err(err).Msg("release calendar lock")
		}
	}()

	// Once the lock is held the batch runs to completion. A caller that goes
	// away must not leave half the topics failed and the run unrecorded.
	ctx = context.WithoutCancel(ctx)

	ctx, span := telemetry.StartSpan(ctx, "scheduling", "BatchScheduler.Schedule")
	defer span.End()

	began := time.Now()
	summary := &Summary{
		BatchRunID:   uuid.NewString(),
		StartDate:    start,
		IntervalDays: interval,
		Formats:      formats,
		Placements:   make([]Placement, 0, len(req.TopicIDs)),
		Errors:       []TopicError{},
	}
	telemetry.AddSpanAttributes(span, map[string]any{
		"batch_run_id":  summary.BatchRunID,
		"topics":        len(req.TopicIDs),
		"interval_days": interval,
		"start_date":    start,
	})

	cursor := start
	for i, topicID := range req.TopicIDs {
		placement, placed, fallbacks, err := b.scheduleTopic(ctx, summary.BatchRunID, topicID, &cursor, interval, formats)
		if err != nil {
			te := TopicError{TopicID: topicID, Position: i, Message: err.Error()}
			summary.Errors = append(summary.Errors, te)
			summary.Failed++
			placement = Placement{TopicID: topicID, Error: te.Message}
			telemetry.CalendarTopicsTotal.WithLabelValues("failed").Inc()
			b.logger.Warn().Err(err).Str("topic_id", topicID).Int("position", i).Msg("topic not scheduled")
			b.publish(events.EventTopicFailed, events.Payload{
				"batch_run_id": summary.BatchRunID,
				"topic_id":     topicID,
				"position":     i,
				"error":        te.Message,
			})
		} else {
			summary.Succeeded++
			summary.ItemsPlaced += placed
			summary.Fallbacks += fallbacks
			telemetry.CalendarTopicsTotal.WithLabelValues("scheduled").Inc()
		}
		summary.Placements = append(summary.Placements, placement)
	}

	if err := b.recordRun(ctx, summary, len(req.TopicIDs), began); err != nil {
		telemetry.RecordError(span, err)
	}

	outcome := "ok"
	switch {
	case summary.Succeeded == 0:
		outcome = "failed"
	case summary.Failed > 0:
		outcome = "partial"
	}
	telemetry.CalendarBatchesTotal.WithLabelValues(outcome).Inc()
	telemetry.CalendarBatchDuration.Observe(time.Since(began).Seconds())
	telemetry.AddSpanAttributes(span, map[string]any{
		"succeeded":    summary.Succeeded,
		"failed":       summary.Failed,
		"items_placed": summary.ItemsPlaced,
	})

	b.logger.Info().
		Str("batch_run_id", summary.BatchRunID).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("items_placed", summary.ItemsPlaced).
		Int("capacity_fallbacks", summary.Fallbacks).
		Dur("took", time.Since(began)).
		Msg("content batch scheduled")

	b.publish(events.EventBatchCompleted, events.Payload{
		"batch_run_id":       summary.BatchRunID,
		"succeeded":          summary.Succeeded,
		"failed":             summary.Failed,
		"items_placed":       summary.ItemsPlaced,
		"capacity_fallbacks": summary.Fallbacks,
	})

	return summary, nil
}

// scheduleTopic places one topic. cursor moves to primary+interval as soon as
// the primary date is found, even if a later step fails.
func (b *BatchScheduler) scheduleTopic(ctx context.Context, runID, topicID string, cursor *time.Time, interval int, formats []models.ContentKind) (Placement, int, int, error) {
	topic, err := b.store.LoadTopic(ctx, topicID)
	if err != nil {
		return Placement{}, 0, 0, err
	}
	if topic.Status != models.TopicApproved {
		return Placement{}, 0, 0, fmt.Errorf("%w: status %s", ErrTopicNotApproved, topic.Status)
	}

	primary, err := b.primary.FindNextAvailableDate(ctx, *cursor, interval)
	if err != nil {
		return Placement{}, 0, 0, err
	}
	*cursor = b.cal.AddDays(primary, interval)

	genReq := contentgen.Request{Topic: *topic, Formats: formats}
	if wants(formats, models.ContentKindSocial) {
		genReq.SocialPosts = topic.SocialPosts
		if genReq.SocialPosts <= 0 {
			genReq.SocialPosts = b.opts.DefaultSocialPosts
		}
	}
	draft, err := b.gen.Generate(ctx, genReq)
	if err != nil {
		return Placement{}, 0, 0, fmt.Errorf("generate content: %w", err)
	}

	pending := &pendingQuery{CalendarQuery: b.store, cal: b.cal}
	capacity := b.capacity.withQuery(pending)

	blog := b.newItem(runID, topic.ID, nil, models.ContentKindBlog, 0, draft.Blog, primary)
	pending.add(blog)
	placement := Placement{TopicID: topic.ID, PrimaryDate: &primary}

	socialDate := b.cal.AddDays(primary, 1)
	if draft.Newsletter != nil {
		pending.add(b.newItem(runID, topic.ID, &blog.ID, models.ContentKindNewsletter, 0, *draft.Newsletter, socialDate))
		placement.Derivatives = append(placement.Derivatives, DerivativePlacement{
			Kind: models.ContentKindNewsletter,
			Date: socialDate,
		})
	}

	fallbacks := 0
	for n, piece := range draft.Socials {
		slot, err := capacity.FindRandomAvailableDate(ctx, Window{
			BaseDate:      socialDate,
			WindowDays:    b.opts.SocialWindowDays,
			MinOffsetDays: n * b.opts.SocialSpacingDays,
		})
		if err != nil {
			return Placement{}, 0, 0, fmt.Errorf("place social post %d: %w", n, err)
		}
		if slot.Fallback {
			fallbacks++
			b.logger.Warn().
				Str("topic_id", topic.ID).
				Int("index", n).
				Str("date", b.cal.Format(slot.Date)).
				Int("attempts", slot.Attempts).
				Msg("capacity exhausted, using fallback date")
		}
		pending.add(b.newItem(runID, topic.ID, &blog.ID, models.ContentKindSocial, n, piece, slot.Date))
		placement.Derivatives = append(placement.Derivatives, DerivativePlacement{
			Kind:     models.ContentKindSocial,
			Index:    n,
			Date:     slot.Date,
			Fallback: slot.Fallback,
		})
	}

	if err := b.store.SaveTopicItems(ctx, topic, pending.items); err != nil {
		return Placement{}, 0, 0, fmt.Errorf("save content items: %w", err)
	}
	for _, item := range pending.items {
		telemetry.CalendarItemsPlacedTotal.WithLabelValues(string(item.Kind)).Inc()
		b.publish(events.EventItemPlaced, events.Payload{
			"batch_run_id": runID,
			"topic_id":     topic.ID,
			"item_id":      item.ID,
			"kind":         string(item.Kind),
			"date":         b.cal.Format(*item.ScheduledFor),
		})
	}

	return placement, len(pending.items), fallbacks, nil
}

func (b *BatchScheduler) newItem(runID, topicID string, parentID *string, kind models.ContentKind, seq int, piece contentgen.Piece, day time.Time) *models.ContentItem {
	at := day
	return &models.ContentItem{
		ID:           uuid.NewString(),
		TopicID:      topicID,
		BatchRunID:   runID,
		ParentID:     parentID,
		Kind:         kind,
		Status:       models.ContentDraft,
		Sequence:     seq,
		Title:        piece.Title,
		Body:         piece.Body,
		ScheduledFor: &at,
	}
}

// recordRun persists the audit record. Failure is logged; the batch itself
// already committed.
func (b *BatchScheduler) recordRun(ctx context.Context, s *Summary, topics int, began time.Time) error {
	finished := time.Now()
	run := &models.BatchRun{
		ID:           s.BatchRunID,
		StartDate:    s.StartDate,
		IntervalDays: s.IntervalDays,
		Formats:      formatStrings(s.Formats),
		TopicCount:   topics,
		Succeeded:    s.Succeeded,
		Failed:       s.Failed,
		ItemsPlaced:  s.ItemsPlaced,
		Fallbacks:    s.Fallbacks,
		StartedAt:    began,
		FinishedAt:   &finished,
	}
	for _, te := range s.Errors {
		run.Errors = append(run.Errors, models.BatchRunError{
			ID:         uuid.NewString(),
			BatchRunID: run.ID,
			TopicID:    te.TopicID,
			Position:   te.Position,
			Message:    te.Message,
		})
	}
	if err := b.store.SaveBatchRun(ctx, run); err != nil {
		b.logger.Error().Err(err).Str("batch_run_id", run.ID).Msg("failed to record batch run")
		return err
	}
	return nil
}

func (b *BatchScheduler) publish(t events.EventType, p events.Payload) {
	if b.bus != nil {
		b.bus.Publish(t, p)
	}
}

// NormalizeFormats validates formats, adds blog and orders the result
// blog, newsletter, social. Empty input selects every format.
func NormalizeFormats(in []models.ContentKind) ([]models.ContentKind, error) {
	all := []models.ContentKind{models.ContentKindBlog, models.ContentKindNewsletter, models.ContentKindSocial}
	if len(in) == 0 {
		return all, nil
	}
	for _, f := range in {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}
	out := []models.ContentKind{models.ContentKindBlog}
	for _, k := range all[1:] {
		if wants(in, k) {
			out = append(out, k)
		}
	}
	return out, nil
}

func wants(formats []models.ContentKind, kind models.ContentKind) bool {
	for _, f := range formats {
		if f == kind {
			return true
		}
	}
	return false
}

func formatStrings(formats []models.ContentKind) []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out
}
