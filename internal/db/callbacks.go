/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/heirloom/internal/telemetry"
)

const startedAtKey = "heirloom:started_at"

// RegisterCallbacks times every statement the calendar store issues. Row
// covers the occupancy scan and Raw covers migrations.
func RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Query().Before("gorm:query").Register("heirloom:before_query", markStart),
		cb.Query().After("gorm:query").Register("heirloom:after_query", observe("query")),
		cb.Row().Before("gorm:row").Register("heirloom:before_row", markStart),
		cb.Row().After("gorm:row").Register("heirloom:after_row", observe("row")),
		cb.Create().Before("gorm:create").Register("heirloom:before_create", markStart),
		cb.Create().After("gorm:create").Register("heirloom:after_create", observe("create")),
		cb.Update().Before("gorm:update").Register("heirloom:before_update", markStart),
		cb.Update().After("gorm:update").Register("heirloom:after_update", observe("update")),
		cb.Delete().Before("gorm:delete").Register("heirloom:before_delete", markStart),
		cb.Delete().After("gorm:delete").Register("heirloom:after_delete", observe("delete")),
		cb.Raw().Before("gorm:raw").Register("heirloom:before_raw", markStart),
		cb.Raw().After("gorm:raw").Register("heirloom:after_raw", observe("raw")),
	)
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

// observe records duration per operation and table, and counts failures.
// A missing row is a normal outcome for topic lookups and is not an error.
func observe(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		telemetry.DatabaseQueryDuration.
			WithLabelValues(operation, tableLabel(db.Statement)).
			Observe(time.Since(started).Seconds())

		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, errorKind(db.Error)).Inc()
		}
	}
}

func tableLabel(stmt *gorm.Statement) string {
	switch {
	case stmt == nil:
		return "raw"
	case stmt.Table != "":
		return stmt.Table
	case stmt.Schema != nil:
		return stmt.Schema.Table
	default:
		return "raw"
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "duplicate_key"
	default:
		return "query_error"
	}
}

// UpdateConnectionMetrics updates connection pool metrics.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	stats := sqlDB.Stats()
	telemetry.DatabaseConnectionsActive.Set(float64(stats.OpenConnections))
}

// ReportConnections refreshes the pool gauge every interval until ctx ends.
func ReportConnections(ctx context.Context, db *gorm.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		UpdateConnectionMetrics(db)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
