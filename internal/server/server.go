/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/heirloom/internal/api"
	"github.com/friendsincode/heirloom/internal/calendar"
	"github.com/friendsincode/heirloom/internal/calendarlock"
	"github.com/friendsincode/heirloom/internal/clock"
	"github.com/friendsincode/heirloom/internal/config"
	"github.com/friendsincode/heirloom/internal/contentgen"
	"github.com/friendsincode/heirloom/internal/db"
	"github.com/friendsincode/heirloom/internal/eventbus"
	"github.com/friendsincode/heirloom/internal/events"
	"github.com/friendsincode/heirloom/internal/scheduling"
	"github.com/friendsincode/heirloom/internal/telemetry"
	"github.com/friendsincode/heirloom/internal/version"
)

const requestTimeout = 60 * time.Second

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db        *gorm.DB
	store     *calendar.Store
	scheduler *scheduling.BatchScheduler
	bus       *events.Bus
	natsBus   *eventbus.NATSBus
	api       *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New connects to the database and wires the calendar services.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	database, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	srv, err := NewWithDB(cfg, database, logger)
	if err != nil {
		_ = db.Close(database)
		return nil, err
	}
	srv.DeferClose(func() error { return db.Close(database) })
	return srv, nil
}

// NewWithDB wires the server over an open database. The caller owns database.
func NewWithDB(cfg *config.Config, database *gorm.DB, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("heirloom-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(requestTimeout))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		db:     database,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		srv.runClosers()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	if err := db.Migrate(s.db); err != nil {
		return err
	}

	cal := clock.New(s.cfg.Location())
	s.store = calendar.NewStore(s.db, cal, s.logger)
	s.scheduler = scheduling.NewBatchScheduler(s.store, contentgen.NewTemplateGenerator(), cal, s.cfg.SchedulingOptions(), s.logger)

	if s.cfg.CalendarLockEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := calendarlock.Dial(ctx, s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB)
		cancel()
		if err != nil {
			return fmt.Errorf("calendar lock: %w", err)
		}
		s.DeferClose(client.Close)
		s.scheduler.SetLocker(calendarlock.NewRedisLocker(client, calendarlock.Config{
			TTL:        s.cfg.CalendarLockTTL,
			InstanceID: s.cfg.InstanceID,
		}, s.logger))
		s.logger.Info().Str("redis", s.cfg.RedisAddr).Msg("batch runs serialized through redis lock")
	}

	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsCfg.NodeID = s.cfg.InstanceID
		nb, err := eventbus.NewNATSBus(natsCfg, s.bus, s.logger)
		if err != nil {
			return fmt.Errorf("event bus: %w", err)
		}
		s.natsBus = nb
		s.DeferClose(nb.Close)
		s.scheduler.SetBus(nb)
	} else {
		s.scheduler.SetBus(s.bus)
	}

	s.api = api.New([]byte(s.cfg.JWTSigningKey), s.scheduler, s.store, s.logger)
	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Bus returns the in-process event bus.
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	return s.runClosers()
}

func (s *Server) runClosers() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		db.ReportConnections(ctx, s.db, 30*time.Second)
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.logBatchEvents(ctx)
	}()
}

// logBatchEvents records every completed batch, including ones run by other
// instances and relayed over NATS.
func (s *Server) logBatchEvents(ctx context.Context) {
	sub := s.bus.Subscribe(events.EventBatchCompleted)
	defer s.bus.Unsubscribe(events.EventBatchCompleted, sub)

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			s.logger.Debug().Fields(map[string]any(payload)).Msg("batch completed event")
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]any{"status": "ok", "version": version.Version}
		if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
