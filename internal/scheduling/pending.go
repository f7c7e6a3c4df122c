/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"slices"
	"time"

	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/models"
)

// pendingQuery counts a topic's not yet persisted items on top of the store,
// so its own social posts share the per-day capacity. Only the capacity
// finder reads through it; the primary finder sees the store as persisted.
type pendingQuery struct {
	CalendarQuery
	cal   *clock.Calendar
	items []*models.ContentItem
}

func (p *pendingQuery) add(item *models.ContentItem) {
	p.items = append(p.items, item)
}

func (p *pendingQuery) CountOnDayByStatus(ctx context.Context, day time.Time, statuses []models.ContentStatus) (int64, error) {
	n, err := p.CalendarQuery.CountOnDayByStatus(ctx, day, statuses)
	if err != nil {
		return 0, err
	}
	return n + p.count(day, statuses), nil
}

func (p *pendingQuery) count(day time.Time, statuses []models.ContentStatus) int64 {
	start, end := p.cal.DayRange(day)
	var n int64
	for _, item := range p.items {
		if item.ScheduledFor == nil || !slices.Contains(statuses, item.Status) {
			continue
		}
		at := *item.ScheduledFor
		if !at.Before(start) && at.Before(end) {
			n++
		}
	}
	return n
}
