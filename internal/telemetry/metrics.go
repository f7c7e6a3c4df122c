/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "heirloom"

// Content calendar metrics.
var (
	CalendarBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "batches_total",
		Help:      "Batch scheduling runs by outcome (completed, partial, rejected).",
	}, []string{"outcome"})

	CalendarTopicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "topics_total",
		Help:      "Topics processed by batch runs, by outcome (scheduled, failed).",
	}, []string{"outcome"})

	CalendarItemsPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "items_placed_total",
		Help:      "Content items given a publish date, by kind.",
	}, []string{"kind"})

	CalendarPrimaryProbes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "primary_probes",
		Help:      "Days probed before a free primary day was found.",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50, 100, 1000},
	})

	CalendarCapacityAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "capacity_attempts",
		Help:      "Random draws used to place a derivative item.",
		Buckets:   []float64{1, 2, 3, 5, 10, 20, 30, 40, 50},
	})

	CalendarCapacityFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "capacity_fallbacks_total",
		Help:      "Derivative placements that exhausted their attempts and used the fallback day.",
	})

	CalendarBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of a batch scheduling run.",
		Buckets:   prometheus.DefBuckets,
	})
)

// HTTP API metrics.
var (
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "In-flight HTTP requests.",
	})
)

// Database metrics.
var (
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "query_duration_seconds",
		Help:      "Database operation latency by operation and table.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "errors_total",
		Help:      "Database operation errors by operation.",
	}, []string{"operation", "kind"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "connections_active",
		Help:      "Open connections in the database pool.",
	})
)

// Event forwarding metrics.
var EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "published_total",
	Help:      "Events forwarded to the external broker, by event type and result.",
}, []string{"event_type", "result"})

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
