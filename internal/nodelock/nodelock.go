// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package nodelock implements the cluster-wide node lock: an
// at-most-one-holder mutex serializing per-unit start/stop/restart/
// upgrade and storage-detaching across the whole fleet. Once the cluster
// accepts writes the lock lives in a dedicated index (IndexLock); before
// that, during bootstrap, it falls back to the application-scope databag
// of the KV bus (Lock). FleetLock routes between the two.
package nodelock

import (
	"fmt"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
)

const lockKey = "node_lock_holder"

// Lock is a single logical at-most-one-holder mutex scoped to one app.
type Lock struct {
	bus      kvbus.Bus
	relation kvbus.RelationID
	unit     string
}

// New builds a Lock for unit (e.g. "opensearch/2"), using relation as the
// app-scope databag to store the holder key. Pass kvbus.NoRelation's app-
// scope equivalent when the substrate exposes a dedicated application
// databag distinct from any peer relation.
func New(bus kvbus.Bus, relation kvbus.RelationID, unit string) *Lock {
	return &Lock{bus: bus, relation: relation, unit: unit}
}

// Acquire returns true iff this unit now uniquely holds the lock. It is
// idempotent: re-acquiring while already holding succeeds.
func (l *Lock) Acquire() (bool, error) {
	data, err := l.bus.ReadRelationData(l.relation)
	if err != nil {
		return false, fmt.Errorf("nodelock: reading holder: %w", err)
	}
	holder := data[lockKey]
	if holder != "" && holder != l.unit {
		return false, nil
	}
	if err := l.bus.WriteRelationData(l.relation, map[string]string{lockKey: l.unit}); err != nil {
		return false, fmt.Errorf("nodelock: writing holder: %w", err)
	}
	return true, nil
}

// Release releases the lock iff this unit currently holds it. Releasing
// while not holding is a no-op, never an error, so release can run on
// every path that acquired the lock, including failure paths, without
// the caller having to track whether Acquire actually succeeded.
func (l *Lock) Release() error {
	data, err := l.bus.ReadRelationData(l.relation)
	if err != nil {
		return fmt.Errorf("nodelock: reading holder: %w", err)
	}
	if data[lockKey] != l.unit {
		return nil
	}
	return l.bus.WriteRelationData(l.relation, map[string]string{lockKey: ""})
}

// Acquired reports the eventually-consistent observed holder state:
// whether this unit currently holds the lock.
func (l *Lock) Acquired() (bool, error) {
	data, err := l.bus.ReadRelationData(l.relation)
	if err != nil {
		return false, fmt.Errorf("nodelock: reading holder: %w", err)
	}
	return data[lockKey] == l.unit, nil
}

// Holder returns the unit name currently holding the lock, or "" if free.
func (l *Lock) Holder() (string, error) {
	data, err := l.bus.ReadRelationData(l.relation)
	if err != nil {
		return "", fmt.Errorf("nodelock: reading holder: %w", err)
	}
	return data[lockKey], nil
}

// WithLock runs fn while holding the lock, releasing unconditionally
// afterward. It returns an error without running fn if the
// lock could not be acquired.
func (l *Lock) WithLock(fn func() error) error {
	acquired, err := l.Acquire()
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("nodelock: held by another unit")
	}
	defer l.Release()
	return fn()
}
