/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package calendar

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/friendsincode/heirloom/internal/models"
)

// ICalExport is a rendered iCalendar document.
type ICalExport struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportICal renders every item scheduled in [from, to] as an all-day event.
func (s *Store) ExportICal(ctx context.Context, from, to time.Time) (*ICalExport, error) {
	items, err := s.ListScheduled(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return s.renderICal(items, from, to, time.Now()), nil
}

func (s *Store) renderICal(items []models.ContentItem, from, to, stamp time.Time) *ICalExport {
	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//Heirloom//Content Calendar//EN\r\n")
	buf.WriteString("X-WR-CALNAME:Heirloom Content Calendar\r\n")
	buf.WriteString(fmt.Sprintf("X-WR-TIMEZONE:%s\r\n", s.cal.Location().String()))
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")

	for _, item := range items {
		if item.ScheduledFor == nil {
			continue
		}
		day := s.cal.StartOfDay(*item.ScheduledFor)

		buf.WriteString("BEGIN:VEVENT\r\n")
		buf.WriteString(fmt.Sprintf("UID:%s@heirloom\r\n", item.ID))
		buf.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICalTime(stamp)))
		buf.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", formatICalDate(day)))
		buf.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", formatICalDate(s.cal.AddDays(day, 1))))
		buf.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICalText(fmt.Sprintf("[%s] %s", item.Kind, item.Title))))
		if item.Body != "" {
			buf.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICalText(item.Body)))
		}
		buf.WriteString(fmt.Sprintf("CATEGORIES:%s\r\n", strings.ToUpper(string(item.Kind))))
		buf.WriteString(fmt.Sprintf("STATUS:%s\r\n", icalStatus(item.Status)))
		if item.ParentID != nil {
			buf.WriteString(fmt.Sprintf("RELATED-TO:%s@heirloom\r\n", *item.ParentID))
		}
		buf.WriteString("END:VEVENT\r\n")
	}

	buf.WriteString("END:VCALENDAR\r\n")

	return &ICalExport{
		Data:        buf.Bytes(),
		Filename:    fmt.Sprintf("heirloom-content-%s-to-%s.ics", s.cal.Format(from), s.cal.Format(to)),
		ContentType: "text/calendar; charset=utf-8",
	}
}

func icalStatus(status models.ContentStatus) string {
	switch status {
	case models.ContentApproved, models.ContentPublished:
		return "CONFIRMED"
	default:
		return "TENTATIVE"
	}
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func formatICalDate(t time.Time) string {
	return t.Format("20060102")
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
