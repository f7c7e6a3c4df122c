/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/friendsincode/heirloom/internal/models"
)

// CalendarQuery reads day occupancy. day is the start of a calendar day and
// implementations count items in [day, next day).
type CalendarQuery interface {
	CountApprovedOnDay(ctx context.Context, day time.Time) (int64, error)
	CountOnDayByStatus(ctx context.Context, day time.Time, statuses []models.ContentStatus) (int64, error)
}

// CapacityStatuses are the statuses counted against the per-day capacity.
var CapacityStatuses = []models.ContentStatus{models.ContentDraft, models.ContentScheduled}

// Options tunes the date finders and the batch scheduler.
type Options struct {
	DefaultIntervalDays int
	MaxProbes           int
	DayCapacity         int
	CapacityAttempts    int
	SocialWindowDays    int
	SocialSpacingDays   int
	DefaultSocialPosts  int

	// Source drives random placement. nil seeds from the wall clock.
	Source rand.Source
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		DefaultIntervalDays: 7,
		MaxProbes:           10000,
		DayCapacity:         3,
		CapacityAttempts:    50,
		SocialWindowDays:    30,
		SocialSpacingDays:   2,
		DefaultSocialPosts:  3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DefaultIntervalDays <= 0 {
		o.DefaultIntervalDays = d.DefaultIntervalDays
	}
	if o.MaxProbes <= 0 {
		o.MaxProbes = d.MaxProbes
	}
	if o.DayCapacity <= 0 {
		o.DayCapacity = d.DayCapacity
	}
	if o.CapacityAttempts <= 0 {
		o.CapacityAttempts = d.CapacityAttempts
	}
	if o.SocialWindowDays <= 0 {
		o.SocialWindowDays = d.SocialWindowDays
	}
	if o.SocialSpacingDays < 0 {
		o.SocialSpacingDays = d.SocialSpacingDays
	}
	if o.DefaultSocialPosts < 0 {
		o.DefaultSocialPosts = d.DefaultSocialPosts
	}
	return o
}
