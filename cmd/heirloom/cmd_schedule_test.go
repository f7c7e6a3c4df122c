/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/models"
	"github.com/friendsincode/heirloom/internal/scheduling"
)

func TestSummaryRows(t *testing.T) {
	cal := clock.New(time.UTC)
	primary := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	s := &scheduling.Summary{
		BatchRunID: "run-1",
		Placements: []scheduling.Placement{
			{
				TopicID:     "a",
				PrimaryDate: &primary,
				Derivatives: []scheduling.DerivativePlacement{
					{Kind: models.ContentKindNewsletter, Date: primary.AddDate(0, 0, 1)},
					{Kind: models.ContentKindSocial, Index: 0, Date: primary.AddDate(0, 0, 5)},
					{Kind: models.ContentKindSocial, Index: 1, Date: primary.AddDate(0, 0, 3), Fallback: true},
				},
			},
			{TopicID: "b", Error: "topic not found"},
		},
	}

	rows := summaryRows(s, cal)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	want := []string{"1", "a", "2025-03-03", "2025-03-04", "2025-03-08, 2025-03-06*", ""}
	for i, cell := range want {
		if rows[0][i] != cell {
			t.Errorf("row 0 col %d = %q, want %q", i, rows[0][i], cell)
		}
	}
	if rows[1][2] != "" || rows[1][5] != "topic not found" {
		t.Fatalf("row 1 = %v", rows[1])
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &scheduling.Summary{BatchRunID: "run-9", Succeeded: 2, Failed: 1, ItemsPlaced: 7}, clock.New(time.UTC))
	out := buf.String()
	if !strings.Contains(strings.ToUpper(out), "NEWSLETTER") {
		t.Fatalf("missing header: %s", out)
	}
	if !strings.Contains(out, "batch run-9: 2 scheduled, 1 failed, 7 items placed, 0 capacity fallbacks") {
		t.Fatalf("missing totals line: %s", out)
	}
}
