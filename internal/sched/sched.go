// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package sched is the single-threaded cooperative event loop each unit
// runs: handlers execute in event order, run to completion, and never
// overlap. A handler that cannot finish returns a defer reason and is
// re-posted on the next tick -- there is no hidden resumption state and
// no green thread behind a deferral. Cross-unit parallelism is real but
// is coordinated entirely through the kv bus and the cluster's own
// primitives, never through shared memory in this process.
package sched

import (
	"context"

	"go.uber.org/zap"
)

// Event is any work item posted to the queue. Events are compared only
// by identity the handler gives them; the queue itself is opaque to
// their content.
type Event interface{}

// Result is what a Handler returns: Done, or a DeferReason asking for a
// re-post on the next tick. FollowUp events, if any, are appended to the
// queue after the current event is disposed of.
type Result struct {
	Done        bool
	DeferReason string
	FollowUp    []Event
}

// Handler processes one event. It must not block beyond the bounded
// timeouts its collaborators carry; long waits are expressed by
// deferring.
type Handler func(ctx context.Context, ev Event) Result

// Queue is the per-unit event queue. It is not safe for concurrent use:
// one unit is one process is one queue, and ticks are serialized by the
// caller.
type Queue struct {
	events   []Event
	deferred []Event
	handler  Handler
	log      *zap.SugaredLogger

	// MaxPerTick bounds how many events one tick drains, so a handler
	// that keeps generating follow-ups cannot starve the caller. Zero
	// means no bound.
	MaxPerTick int
}

// New builds a Queue dispatching to handler.
func New(handler Handler, log *zap.SugaredLogger) *Queue {
	return &Queue{handler: handler, log: log}
}

// Post appends ev to the queue for the current or next tick.
func (q *Queue) Post(ev Event) {
	q.events = append(q.events, ev)
}

// Len reports how many events are pending, including deferred ones
// waiting for the next tick.
func (q *Queue) Len() int {
	return len(q.events) + len(q.deferred)
}

// Tick drains the queue once: every event currently posted is handled in
// order, deferrals are collected, and at the end of the tick the
// deferred events become the next tick's queue. Events posted by
// handlers during the tick (follow-ups) run within the same tick, after
// the events that were already queued, subject to MaxPerTick.
func (q *Queue) Tick(ctx context.Context) (handled, deferred int) {
	processed := 0
	for len(q.events) > 0 {
		if q.MaxPerTick > 0 && processed >= q.MaxPerTick {
			break
		}
		ev := q.events[0]
		q.events = q.events[1:]
		processed++

		if ctx.Err() != nil {
			q.deferred = append(q.deferred, ev)
			q.deferred = append(q.deferred, q.events...)
			q.events = nil
			break
		}

		result := q.handler(ctx, ev)
		if result.Done {
			handled++
		} else {
			deferred++
			q.deferred = append(q.deferred, ev)
			if q.log != nil {
				q.log.Debugw("event deferred", "reason", result.DeferReason)
			}
		}
		q.events = append(q.events, result.FollowUp...)
	}

	q.events = append(q.deferred, q.events...)
	q.deferred = nil
	return handled, deferred
}
