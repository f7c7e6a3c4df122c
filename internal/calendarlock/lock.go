/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package calendarlock provides the advisory lock that serializes batch
// scheduling across instances.
package calendarlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultKey is the Redis key guarding the content calendar.
const DefaultKey = "heirloom:lock:content_calendar"

const defaultTTL = 2 * time.Minute

// ErrHeld is returned when another holder owns the lock.
var ErrHeld = errors.New("calendar lock held by another instance")

// Release gives the lock back. It is safe to call after the lease expired.
type Release func(ctx context.Context) error

// Locker acquires the calendar lock.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// Noop never blocks. Used when locking is disabled.
type Noop struct{}

// Acquire always succeeds.
func (Noop) Acquire(context.Context) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

// Config configures the Redis locker.
type Config struct {
	Key string
	// TTL is the lease length. The holder renews it every RenewalInterval.
	TTL time.Duration
	// RenewalInterval defaults to TTL/3.
	RenewalInterval time.Duration
	InstanceID      string
}

// RedisLocker holds the lock as a Redis key with a lease. Only the owner
// token can release it.
type RedisLocker struct {
	client *redis.Client
	logger zerolog.Logger
	cfg    Config
}

// NewRedisLocker wraps an existing client.
func NewRedisLocker(client *redis.Client, cfg Config, logger zerolog.Logger) *RedisLocker {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.RenewalInterval <= 0 || cfg.RenewalInterval >= cfg.TTL {
		cfg.RenewalInterval = cfg.TTL / 3
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	return &RedisLocker{
		client: client,
		logger: logger.With().Str("component", "calendar_lock").Logger(),
		cfg:    cfg,
	}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

const renewScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// Acquire takes the lock or returns ErrHeld. The lease is renewed in the
// background until the returned Release is called.
func (l *RedisLocker) Acquire(ctx context.Context) (Release, error) {
	token := l.cfg.InstanceID + ":" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.cfg.Key, token, l.cfg.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("set lock: %w", err)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, l.cfg.Key).Result()
		l.logger.Debug().Str("holder", holder).Msg("calendar lock busy")
		return nil, ErrHeld
	}
	l.logger.Debug().Str("key", l.cfg.Key).Dur("ttl", l.cfg.TTL).Msg("acquired calendar lock")

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(token, stop, done)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
		})
		if err := l.client.Eval(ctx, releaseScript, []string{l.cfg.Key}, token).Err(); err != nil {
			return fmt.Errorf("release lock: %w", err)
		}
		return nil
	}, nil
}

// renew extends the lease while token still owns it. It stops when stop is
// closed or the key was taken over.
func (l *RedisLocker) renew(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.cfg.RenewalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.RenewalInterval)
		n, err := l.client.Eval(ctx, renewScript, []string{l.cfg.Key}, token, l.cfg.TTL.Milliseconds()).Int64()
		cancel()
		if err != nil {
			l.logger.Warn().Err(err).Str("key", l.cfg.Key).Msg("renew calendar lock")
			continue
		}
		if n == 0 {
			l.logger.Error().Str("key", l.cfg.Key).Msg("calendar lock lost before batch finished")
			return
		}
	}
}
