/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/telemetry"
)

// Window is the range of days a derivative may land on: BaseDate plus an
// offset in [MinOffsetDays, WindowDays).
type Window struct {
	BaseDate      time.Time
	WindowDays    int
	MinOffsetDays int
}

// Slot is the outcome of a capacity search.
type Slot struct {
	Date     time.Time
	Attempts int
	// Fallback is set when every attempt hit a full day and Date is
	// BaseDate+MinOffsetDays regardless of its occupancy.
	Fallback bool
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) intN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// CapacityFinder places items on random days that are under capacity.
// It is safe for concurrent use.
type CapacityFinder struct {
	query    CalendarQuery
	cal      *clock.Calendar
	capacity int64
	attempts int
	rng      *lockedRand
}

// NewCapacityFinder creates a finder. A nil src seeds from the wall clock.
func NewCapacityFinder(query CalendarQuery, cal *clock.Calendar, capacity, attempts int, src rand.Source) *CapacityFinder {
	d := DefaultOptions()
	if capacity <= 0 {
		capacity = d.DayCapacity
	}
	if attempts <= 0 {
		attempts = d.CapacityAttempts
	}
	if src == nil {
		src = rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())
	}
	return &CapacityFinder{
		query:    query,
		cal:      cal,
		capacity: int64(capacity),
		attempts: attempts,
		rng:      &lockedRand{r: rand.New(src)},
	}
}

// withQuery returns a finder sharing f's random source over another query.
func (f *CapacityFinder) withQuery(q CalendarQuery) *CapacityFinder {
	c := *f
	c.query = q
	return &c
}

// FindRandomAvailableDate returns the first randomly drawn day in w whose
// draft and scheduled items number fewer than the capacity.
func (f *CapacityFinder) FindRandomAvailableDate(ctx context.Context, w Window) (Slot, error) {
	if w.WindowDays < 1 || w.MinOffsetDays < 0 {
		return Slot{}, fmt.Errorf("%w: window %d days, min offset %d", ErrInvalidWindow, w.WindowDays, w.MinOffsetDays)
	}

	base := f.cal.StartOfDay(w.BaseDate)
	span := w.WindowDays - w.MinOffsetDays

	for attempt := 1; attempt <= f.attempts; attempt++ {
		offset := w.MinOffsetDays
		if span > 1 {
			offset += f.rng.intN(span)
		}
		day := f.cal.AddDays(base, offset)

		n, err := f.query.CountOnDayByStatus(ctx, day, CapacityStatuses)
		if err != nil {
			return Slot{}, fmt.Errorf("count occupancy on %s: %w", f.cal.Format(day), err)
		}
		if n < f.capacity {
			telemetry.CalendarCapacityAttempts.Observe(float64(attempt))
			return Slot{Date: day, Attempts: attempt}, nil
		}
		if span <= 1 {
			// Every draw is the same day; more attempts cannot change the answer.
			telemetry.CalendarCapacityAttempts.Observe(float64(attempt))
			telemetry.CalendarCapacityFallbacksTotal.Inc()
			return Slot{Date: day, Attempts: attempt, Fallback: true}, nil
		}
	}

	telemetry.CalendarCapacityAttempts.Observe(float64(f.attempts))
	telemetry.CalendarCapacityFallbacksTotal.Inc()
	return Slot{Date: f.cal.AddDays(base, w.MinOffsetDays), Attempts: f.attempts, Fallback: true}, nil
}
