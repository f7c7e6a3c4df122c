/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduling allocates publish dates on the marketing content calendar.
//
// A batch walks its topics in order. Each topic's blog post takes the first
// day at or after a rolling cursor that holds no approved content, stepping by
// the batch interval. The newsletter follows on the next day and every social
// post is dropped at random into a window after it, under a soft per-day
// capacity.
//
// Occupancy is read and later written without a transaction, so two writers
// can both see a day as free and both take it. Batch runs of this service can
// be serialized with a calendarlock.Locker; writers outside it are not guarded.
package scheduling
