/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export scheduled content as an iCalendar file",
	RunE:  runExport,
}

var (
	exportFrom string
	exportTo   string
	exportOut  string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First day (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last day, inclusive (YYYY-MM-DD, default from + 30 days)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default: generated filename in the current directory, - for stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
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
	if exportFrom != "" {
		if from, err = cal.Parse(exportFrom); err != nil {
			return err
		}
	}
	to := cal.AddDays(from, 30)
	if exportTo != "" {
		if to, err = cal.Parse(exportTo); err != nil {
			return err
		}
	}

	export, err := sess.store.ExportICal(ctx, from, to)
	if err != nil {
		return err
	}

	if exportOut == "-" {
		_, err = cmd.OutOrStdout().Write(export.Data)
		return err
	}
	path := exportOut
	if path == "" {
		path = export.Filename
	}
	if err := os.WriteFile(path, export.Data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	logger.Info().Str("path", path).Int("bytes", len(export.Data)).Msg("calendar exported")
	return nil
}
