/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// TopicStatus tracks whether a topic is waiting for a batch run.
type TopicStatus string

const (
	TopicPending   TopicStatus = "pending"
	TopicApproved  TopicStatus = "approved"
	TopicScheduled TopicStatus = "scheduled"
	TopicRejected  TopicStatus = "rejected"
)

// Topic is an approved content idea that a batch run turns into a blog post
// plus its derivative newsletter and social posts.
type Topic struct {
	ID          string      `gorm:"type:varchar(64);primaryKey" json:"id" yaml:"id"`
	Title       string      `gorm:"type:varchar(255);not null" json:"title" yaml:"title"`
	Summary     string      `gorm:"type:text" json:"summary" yaml:"summary"`
	Keywords    []string    `gorm:"serializer:json" json:"keywords,omitempty" yaml:"keywords"`
	Status      TopicStatus `gorm:"type:varchar(16);not null;default:'approved';index" json:"status" yaml:"status"`
	SocialPosts int         `gorm:"not null;default:0" json:"social_posts" yaml:"social_posts"` // 0 uses the configured default
	CreatedAt   time.Time   `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time   `json:"updated_at" yaml:"-"`
}

// TableName returns the table name for GORM.
func (Topic) TableName() string {
	return "topics"
}
