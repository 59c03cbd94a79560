// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package lifecycle implements the per-unit lifecycle controller: the
// Start/Stop/Restart/Upgrade sequences and the can-service-start gate,
// behind the ServiceRuntime interface this package defines.
//
// No step here blocks indefinitely: every Handle* function returns an
// Outcome immediately, and a failure that should be retried comes back
// as a DeferReason rather than an error the caller must interpret. The
// caller (internal/sched) re-invokes the same Handle* call on its next
// tick; there is no hidden resumption state.
package lifecycle

import "github.com/opensearch-operator/cluster-operator/internal/plugins"

// Outcome is what every lifecycle step returns instead of blocking or
// raising: either the step finished, or it wants to be retried later for
// DeferReason (never both).
type Outcome struct {
	Done        bool
	DeferReason string

	// PluginActions is the ordered plugin-reconciliation fan-out computed
	// during post-start init. Empty
	// unless StartInput carried a desired plugin set.
	PluginActions []plugins.Action
}

// Completed is the Outcome for a step that needs no retry.
func Completed() Outcome { return Outcome{Done: true} }

// Defer builds an Outcome asking the caller to re-post the same event on
// its next tick, carrying a human-readable reason for status reporting.
func Defer(reason string) Outcome { return Outcome{Done: false, DeferReason: reason} }

// StartEvent is StartOpenSearch{ignore_lock, after_upgrade}.
type StartEvent struct {
	IgnoreLock  bool
	AfterUpgrade bool
}

// UpgradeEvent is UpgradeOpenSearch{ignore_lock}.
type UpgradeEvent struct {
	IgnoreLock bool
}
