/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"gorm.io/gorm"

	"github.com/friendsincode/heirloom/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Topic{},
		&models.ContentItem{},
		&models.BatchRun{},
		&models.BatchRunError{},
	); err != nil {
		return err
	}

	return applyPostgresOccupancyIndex(database)
}

// applyPostgresOccupancyIndex adds a partial index for the capacity query,
// which only ever counts draft and scheduled rows.
func applyPostgresOccupancyIndex(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}
	return database.Exec(`
CREATE INDEX IF NOT EXISTS idx_content_items_capacity_day
ON content_items (scheduled_for)
WHERE status IN ('draft', 'scheduled')
`).Error
}
