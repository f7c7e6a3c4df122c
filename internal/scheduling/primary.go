/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/telemetry"
)

// PrimaryFinder finds the next day free of approved content.
type PrimaryFinder struct {
	query     CalendarQuery
	cal       *clock.Calendar
	maxProbes int
}

// NewPrimaryFinder creates a finder. maxProbes <= 0 uses the default bound.
func NewPrimaryFinder(query CalendarQuery, cal *clock.Calendar, maxProbes int) *PrimaryFinder {
	if maxProbes <= 0 {
		maxProbes = DefaultOptions().MaxProbes
	}
	return &PrimaryFinder{query: query, cal: cal, maxProbes: maxProbes}
}

// FindNextAvailableDate returns candidate's day if it has no approved items,
// otherwise the first day candidate+k*intervalDays that has none.
func (f *PrimaryFinder) FindNextAvailableDate(ctx context.Context, candidate time.Time, intervalDays int) (time.Time, error) {
	if intervalDays < 1 {
		return time.Time{}, ErrInvalidInterval
	}

	start := f.cal.StartOfDay(candidate)
	day := start
	for probe := 1; probe <= f.maxProbes; probe++ {
		n, err := f.query.CountApprovedOnDay(ctx, day)
		if err != nil {
			return time.Time{}, fmt.Errorf("count approved on %s: %w", f.cal.Format(day), err)
		}
		if n == 0 {
			telemetry.CalendarPrimaryProbes.Observe(float64(probe))
			return day, nil
		}
		day = f.cal.AddDays(day, intervalDays)
	}

	telemetry.CalendarPrimaryProbes.Observe(float64(f.maxProbes))
	return time.Time{}, &NoAvailableDateError{Start: start, IntervalDays: intervalDays, Probes: f.maxProbes}
}
