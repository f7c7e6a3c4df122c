/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package clock does calendar-day arithmetic in a single configured timezone.
//
// Every day boundary in the content calendar goes through a Calendar so that
// occupancy queries and placement math agree on where a day starts.
package clock

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// Calendar converts instants into calendar days for one location.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New returns a calendar for loc. A nil loc means UTC.
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, now: time.Now}
}

// Load returns a calendar for the named IANA timezone.
func Load(name string) (*Calendar, error) {
	if name == "" {
		return New(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return New(loc), nil
}

// WithNow overrides the wall clock, for tests.
func (c *Calendar) WithNow(now func() time.Time) *Calendar {
	return &Calendar{loc: c.loc, now: now}
}

// Location returns the calendar's timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// StartOfDay returns midnight of the day containing t.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// AddDays moves day by n calendar days and returns midnight of the result.
// Going through time.Date keeps the result on midnight across DST changes.
func (c *Calendar) AddDays(day time.Time, n int) time.Time {
	day = day.In(c.loc)
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, c.loc)
}

// DayRange returns the half-open range [start, end) covering the day of t.
func (c *Calendar) DayRange(t time.Time) (start, end time.Time) {
	start = c.StartOfDay(t)
	return start, c.AddDays(start, 1)
}

// Today returns midnight of the current day.
func (c *Calendar) Today() time.Time {
	return c.StartOfDay(c.now())
}

// Parse reads a YYYY-MM-DD day in the calendar's timezone.
func (c *Calendar) Parse(value string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, value, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", value, err)
	}
	return day, nil
}

// Format renders t as the YYYY-MM-DD day it falls on.
func (c *Calendar) Format(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// DaysBetween counts whole calendar days from a to b.
func (c *Calendar) DaysBetween(a, b time.Time) int {
	a, b = c.StartOfDay(a), c.StartOfDay(b)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	// Compare as UTC dates so DST hours do not skew the count.
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
