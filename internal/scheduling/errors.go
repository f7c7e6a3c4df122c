/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/friendsincode/heirloom/internal/clock"
)

var (
	ErrNoAvailableDate  = errors.New("no available date")
	ErrInvalidInterval  = errors.New("interval days must be positive")
	ErrInvalidWindow    = errors.New("invalid schedule window")
	ErrNoTopics         = errors.New("no topics to schedule")
	ErrUnknownFormat    = errors.New("unknown content format")
	ErrBatchInProgress  = errors.New("another batch is in progress")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrTopicNotApproved = errors.New("topic is not approved")
)

// NoAvailableDateError is returned when the primary search gives up.
type NoAvailableDateError struct {
	Start        time.Time
	IntervalDays int
	Probes       int
}

func (e *NoAvailableDateError) Error() string {
	return fmt.Sprintf("no available date after %d probes from %s every %d days",
		e.Probes, e.Start.Format(clock.DateLayout), e.IntervalDays)
}

// Is makes errors.Is(err, ErrNoAvailableDate) match.
func (e *NoAvailableDateError) Is(target error) bool {
	return target == ErrNoAvailableDate
}

// TopicError records why one topic of a batch could not be scheduled.
type TopicError struct {
	TopicID  string `json:"topic_id"`
	Position int    `json:"position"`
	Message  string `json:"message"`
}

func (e TopicError) Error() string {
	return fmt.Sprintf("topic %s: %s", e.TopicID, e.Message)
}
