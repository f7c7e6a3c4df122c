/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// BatchRun records the outcome of one content-calendar batch.
type BatchRun struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	StartDate    time.Time       `gorm:"not null" json:"start_date"`
	IntervalDays int             `gorm:"not null" json:"interval_days"`
	Formats      []string        `gorm:"serializer:json" json:"formats"`
	TopicCount   int             `gorm:"not null" json:"topic_count"`
	Succeeded    int             `gorm:"not null" json:"succeeded"`
	Failed       int             `gorm:"not null" json:"failed"`
	ItemsPlaced  int             `gorm:"not null" json:"items_placed"`
	Fallbacks    int             `gorm:"not null" json:"capacity_fallbacks"`
	StartedAt    time.Time       `gorm:"not null" json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Errors       []BatchRunError `gorm:"foreignKey:BatchRunID" json:"errors"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName returns the table name for GORM.
func (BatchRun) TableName() string {
	return "batch_runs"
}

// BatchRunError is a per-topic failure captured during a batch run.
type BatchRunError struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	BatchRunID string    `gorm:"type:uuid;index;not null" json:"batch_run_id"`
	TopicID    string    `gorm:"type:varchar(64);not null" json:"topic_id"`
	Position   int       `gorm:"not null" json:"position"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (BatchRunError) TableName() string {
	return "batch_run_errors"
}
