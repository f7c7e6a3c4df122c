/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/heirloom/internal/auth"
	"github.com/friendsincode/heirloom/internal/calendar"
	"github.com/friendsincode/heirloom/internal/scheduling"
)

// API exposes the content calendar over HTTP.
type API struct {
	jwtSecret []byte
	scheduler *scheduling.BatchScheduler
	store     *calendar.Store
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(jwtSecret []byte, scheduler *scheduling.BatchScheduler, store *calendar.Store, logger zerolog.Logger) *API {
	return &API{
		jwtSecret: jwtSecret,
		scheduler: scheduler,
		store:     store,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts every endpoint under /api/v1.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))
			pr.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleEditor))
			NewCalendarAPI(a).RegisterRoutes(pr)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeDomainError maps calendar and scheduling errors onto HTTP responses.
func (a *API) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrNoTopics):
		writeError(w, http.StatusBadRequest, "no_topics")
	case errors.Is(err, scheduling.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, "invalid_interval")
	case errors.Is(err, scheduling.ErrUnknownFormat):
		writeError(w, http.StatusBadRequest, "unknown_format")
	case errors.Is(err, calendar.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range")
	case errors.Is(err, scheduling.ErrBatchInProgress):
		writeError(w, http.StatusConflict, "batch_in_progress")
	case errors.Is(err, scheduling.ErrNoAvailableDate):
		writeError(w, http.StatusUnprocessableEntity, "no_available_date")
	case errors.Is(err, calendar.ErrBatchRunNotFound):
		writeError(w, http.StatusNotFound, "batch_run_not_found")
	default:
		a.logger.Error().Err(err).Msg("calendar request failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
