/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// ContentKind identifies the channel a content item is published on.
type ContentKind string

const (
	ContentKindBlog       ContentKind = "blog"
	ContentKindNewsletter ContentKind = "newsletter"
	ContentKindSocial     ContentKind = "social"
)

// Valid reports whether k is a known content kind.
func (k ContentKind) Valid() bool {
	switch k {
	case ContentKindBlog, ContentKindNewsletter, ContentKindSocial:
		return true
	}
	return false
}

// ContentStatus tracks the editorial state of a content item.
type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentScheduled ContentStatus = "scheduled"
	ContentApproved  ContentStatus = "approved"
	ContentPublished ContentStatus = "published"
)

// ContentItem is one piece of marketing content placed on the calendar.
// Primary items are blog posts; newsletters and social posts derive from them.
type ContentItem struct {
	ID           string        `gorm:"type:uuid;primaryKey" json:"id"`
	TopicID      string        `gorm:"type:varchar(64);index:idx_content_items_topic" json:"topic_id"`
	BatchRunID   string        `gorm:"type:uuid;index" json:"batch_run_id,omitempty"`
	ParentID     *string       `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Kind         ContentKind   `gorm:"type:varchar(16);not null" json:"kind"`
	Status       ContentStatus `gorm:"type:varchar(16);not null;default:'draft';index:idx_content_items_status_day" json:"status"`
	Sequence     int           `gorm:"not null;default:0" json:"sequence"` // 0-based index among same-kind derivatives
	Title        string        `gorm:"type:varchar(255);not null" json:"title"`
	Body         string        `gorm:"type:text" json:"body"`
	ScheduledFor *time.Time    `gorm:"index:idx_content_items_status_day" json:"scheduled_for,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ContentItem) TableName() string {
	return "content_items"
}
