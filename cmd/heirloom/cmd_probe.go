/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Print the next day free for a primary post",
	RunE:  runProbe,
}

var (
	probeDate     string
	probeInterval int
)

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVar(&probeDate, "date", "", "Candidate day (YYYY-MM-DD, default today)")
	probeCmd.Flags().IntVar(&probeInterval, "interval", 0, "Step between candidates in days (0 uses HEIRLOOM_CALENDAR_INTERVAL_DAYS)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
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
	from := cal.Today()
	if probeDate != "" {
		if from, err = cal.Parse(probeDate); err != nil {
			return err
		}
	}
	interval := probeInterval
	if interval == 0 {
		interval = sess.scheduler.DefaultIntervalDays()
	}

	day, err := sess.scheduler.Primary().FindNextAvailableDate(ctx, from, interval)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cal.Format(day))
	return nil
}
