/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/heirloom/internal/calendar"
	"github.com/friendsincode/heirloom/internal/calendarlock"
	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/contentgen"
	"github.com/friendsincode/heirloom/internal/db"
	"github.com/friendsincode/heirloom/internal/scheduling"
)

// calendarSession is the store and scheduler a one-shot command works with.
type calendarSession struct {
	store     *calendar.Store
	scheduler *scheduling.BatchScheduler
	closers   []func() error
}

func (s *calendarSession) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn().Err(err).Msg("cleanup failed")
		}
	}
}

// openCalendar connects, migrates, and builds a scheduler. The Redis lock is
// honoured so CLI batches cannot overlap with ones started over the API.
func openCalendar(ctx context.Context) (*calendarSession, error) {
	database, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	sess := &calendarSession{closers: []func() error{func() error { return db.Close(database) }}}

	if err := db.Migrate(database); err != nil {
		sess.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	cal := clock.New(cfg.Location())
	sess.store = calendar.NewStore(database, cal, logger)
	sess.scheduler = scheduling.NewBatchScheduler(sess.store, contentgen.NewTemplateGenerator(), cal, cfg.SchedulingOptions(), logger)

	if cfg.CalendarLockEnabled {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		client, err := calendarlock.Dial(dialCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			sess.Close()
			return nil, fmt.Errorf("calendar lock: %w", err)
		}
		sess.closers = append(sess.closers, client.Close)
		sess.scheduler.SetLocker(calendarlock.NewRedisLocker(client, calendarlock.Config{
			TTL:        cfg.CalendarLockTTL,
			InstanceID: cfg.InstanceID,
		}, logger))
	}
	return sess, nil
}
