/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/models"
	"github.com/friendsincode/heirloom/internal/scheduling"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule a batch of topics onto the content calendar",
	Long:  "Load topics from a YAML file and/or reference stored topic ids, then place each topic's blog post, newsletter, and social posts on the calendar.",
	RunE:  runSchedule,
}

// schedule flags
var (
	scheduleFile     string
	scheduleTopicIDs []string
	scheduleStart    string
	scheduleInterval int
	scheduleFormats  []string
	scheduleJSON     bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVarP(&scheduleFile, "file", "f", "", "YAML file of topics to upsert and schedule")
	scheduleCmd.Flags().StringSliceVar(&scheduleTopicIDs, "topics", nil, "Stored topic ids to schedule after any from --file")
	scheduleCmd.Flags().StringVar(&scheduleStart, "start", "", "First candidate day (YYYY-MM-DD, default today)")
	scheduleCmd.Flags().IntVar(&scheduleInterval, "interval", 0, "Days between primary posts (0 uses HEIRLOOM_CALENDAR_INTERVAL_DAYS)")
	scheduleCmd.Flags().StringSliceVar(&scheduleFormats, "formats", nil, "Formats to produce: blog, newsletter, social (default all)")
	scheduleCmd.Flags().BoolVar(&scheduleJSON, "json", false, "Print the batch summary as JSON")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if scheduleFile == "" && len(scheduleTopicIDs) == 0 {
		return fmt.Errorf("either --file or --topics is required")
	}
	if err := loadConfig(); err != nil {
		return err
	}

	var topics []models.Topic
	if scheduleFile != "" {
		var err error
		topics, err = readTopicsFile(scheduleFile)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := openCalendar(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	cal := sess.store.Calendar()
	req := scheduling.Request{IntervalDays: scheduleInterval}
	if scheduleStart != "" {
		req.StartDate, err = cal.Parse(scheduleStart)
		if err != nil {
			return err
		}
	}
	for _, f := range scheduleFormats {
		req.Formats = append(req.Formats, models.ContentKind(strings.ToLower(strings.TrimSpace(f))))
	}

	if len(topics) > 0 {
		ids, err := sess.store.UpsertTopics(ctx, topics)
		if err != nil {
			return fmt.Errorf("store topics: %w", err)
		}
		req.TopicIDs = append(req.TopicIDs, ids...)
		logger.Info().Int("count", len(ids)).Str("file", scheduleFile).Msg("topics loaded")
	}
	req.TopicIDs = append(req.TopicIDs, scheduleTopicIDs...)

	summary, err := sess.scheduler.Schedule(ctx, req)
	if err != nil {
		return err
	}

	if scheduleJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(os.Stdout, summary, cal)
	return nil
}

func printSummary(w io.Writer, s *scheduling.Summary, cal *clock.Calendar) {
	headers := []string{"#", "Topic", "Blog", "Newsletter", "Social", "Error"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}
	fmt.Fprintln(w, renderTable(headers, summaryRows(s, cal), aligns))
	fmt.Fprintf(w, "batch %s: %d scheduled, %d failed, %d items placed, %d capacity fallbacks\n",
		s.BatchRunID, s.Succeeded, s.Failed, s.ItemsPlaced, s.Fallbacks)
}

// summaryRows renders one row per topic. Social dates placed by fallback are
// marked with a trailing "*".
func summaryRows(s *scheduling.Summary, cal *clock.Calendar) [][]string {
	rows := make([][]string, 0, len(s.Placements))
	for i, p := range s.Placements {
		row := []string{strconv.Itoa(i + 1), p.TopicID, "", "", "", p.Error}
		if p.PrimaryDate != nil {
			row[2] = cal.Format(*p.PrimaryDate)
		}
		var socials []string
		for _, d := range p.Derivatives {
			switch d.Kind {
			case models.ContentKindNewsletter:
				row[3] = cal.Format(d.Date)
			case models.ContentKindSocial:
				day := cal.Format(d.Date)
				if d.Fallback {
					day += "*"
				}
				socials = append(socials, day)
			}
		}
		row[4] = strings.Join(socials, ", ")
		rows = append(rows, row)
	}
	return rows
}
