/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/heirloom/internal/auth"
	"github.com/friendsincode/heirloom/internal/models"
	"github.com/friendsincode/heirloom/internal/scheduling"
)

// defaultExportDays is the span exported when the caller gives no range.
const defaultExportDays = 30

// CalendarAPI handles batch scheduling and calendar read endpoints.
type CalendarAPI struct {
	api *API
}

// NewCalendarAPI creates the calendar handlers.
func NewCalendarAPI(api *API) *CalendarAPI {
	return &CalendarAPI{api: api}
}

// RegisterRoutes registers calendar routes.
func (c *CalendarAPI) RegisterRoutes(r chi.Router) {
	r.Route("/calendar", func(r chi.Router) {
		r.Post("/batches", c.handleScheduleBatch)
		r.Get("/batches/{batchID}", c.handleGetBatch)
		r.Get("/next-available", c.handleNextAvailable)
		r.Get("/occupancy", c.handleOccupancy)
		r.Get("/items", c.handleListItems)
		r.Get("/export.ics", c.handleExportICal)
	})
}

type scheduleBatchRequest struct {
	TopicIDs     []string `json:"topic_ids" validate:"required,min=1,dive,required,max=64"`
	StartDate    string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	IntervalDays int      `json:"interval_days" validate:"gte=0"`
	Formats      []string `json:"formats" validate:"omitempty,dive,oneof=blog newsletter social"`
}

func (c *CalendarAPI) handleScheduleBatch(w http.ResponseWriter, r *http.Request) {
	body, err := decodeJSON[scheduleBatchRequest](r)
	if err != nil {
		writeBindError(w, err)
		return
	}

	req := scheduling.Request{
		TopicIDs:     body.TopicIDs,
		IntervalDays: body.IntervalDays,
	}
	if body.StartDate != "" {
		start, err := c.api.store.Calendar().Parse(body.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date")
			return
		}
		req.StartDate = start
	}
	for _, f := range body.Formats {
		req.Formats = append(req.Formats, models.ContentKind(f))
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		c.api.logger.Info().Str("user_id", claims.UserID).Int("topics", len(req.TopicIDs)).Msg("batch requested")
	}

	summary, err := c.api.scheduler.Schedule(r.Context(), req)
	if err != nil {
		c.api.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (c *CalendarAPI) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	run, err := c.api.store.GetBatchRun(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		c.api.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (c *CalendarAPI) handleNextAvailable(w http.ResponseWriter, r *http.Request) {
	cal := c.api.store.Calendar()
	from := cal.Today()
	if v := r.URL.Query().Get("date"); v != "" {
		day, err := cal.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		from = day
	}

	interval := c.api.scheduler.DefaultIntervalDays()
	if v := r.URL.Query().Get("interval_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_interval")
			return
		}
		interval = n
	}

	day, err := c.api.scheduler.Primary().FindNextAvailableDate(r.Context(), from, interval)
	if err != nil {
		c.api.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":          cal.Format(day),
		"requested":     cal.Format(from),
		"interval_days": interval,
	})
}

func (c *CalendarAPI) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	from, to, ok := c.parseRange(w, r)
	if !ok {
		return
	}
	days, err := c.api.store.Occupancy(r.Context(), from, to)
	if err != nil {
		c.api.writeDomainError(w, err)
		return
	}

	cal := c.api.store.Calendar()
	writeJSON(w, http.StatusOK, map[string]any{
		"from": cal.Format(from),
		"to":   cal.Format(to),
		"days": days,
	})
}

func (c *CalendarAPI) handleListItems(w http.ResponseWriter, r *http.Request) {
	from, to, ok := c.parseRange(w, r)
	if !ok {
		return
	}
	items, err := c.api.store.ListScheduled(r.Context(), from, to)
	if err != nil {
		c.api.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *CalendarAPI) handleExportICal(w http.ResponseWriter, r *http.Request) {
	from, to, ok := c.parseRange(w, r)
	if !ok {
		return
	}
	export, err := c.api.store.ExportICal(r.Context(), from, to)
	if err != nil {
		c.api.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+export.Filename+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}

// parseRange reads from/to days. Missing bounds default to today and
// today plus defaultExportDays.
func (c *CalendarAPI) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	cal := c.api.store.Calendar()
	from := cal.Today()
	if v := r.URL.Query().Get("from"); v != "" {
		day, err := cal.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from")
			return time.Time{}, time.Time{}, false
		}
		from = day
	}
	to := cal.AddDays(from, defaultExportDays)
	if v := r.URL.Query().Get("to"); v != "" {
		day, err := cal.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to")
			return time.Time{}, time.Time{}, false
		}
		to = day
	}
	return from, to, true
}
