// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package nodelock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opensearch-operator/cluster-operator/internal/ossvc"
)

// DefaultLockIndex is the dedicated index backing the cluster-wide lock
// once the cluster accepts writes.
const DefaultLockIndex = ".opensearch-node-lock"

// lockDocID is the single document whose create/delete carries the lock.
// Index create with op_type=create is linearizable on the doc id, which
// is what makes the at-most-one-holder guarantee hold across units.
const lockDocID = "0"

// IndexLock is the cluster-backed implementation of the node lock: one
// document in a dedicated index, created atomically by the winner and
// deleted on release.
type IndexLock struct {
	client *ossvc.Client
	index  string
	unit   string
	log    *zap.SugaredLogger
}

// NewIndexLock builds an IndexLock for unit over the given index name.
func NewIndexLock(client *ossvc.Client, index, unit string, log *zap.SugaredLogger) *IndexLock {
	if index == "" {
		index = DefaultLockIndex
	}
	return &IndexLock{client: client, index: index, unit: unit, log: log}
}

type lockDoc struct {
	UnitName string `json:"unit-name"`
}

// Acquire attempts to create the lock document with op_type=create.
// A 409 means another unit holds it -- unless the holder is this unit,
// in which case re-acquiring succeeds.
func (l *IndexLock) Acquire(ctx context.Context) (bool, error) {
	body := lockDoc{UnitName: l.unit}
	err := l.client.Request(ctx, "PUT", "/"+l.index+"/_create/"+lockDocID+"?refresh=true", body, 1, 10*time.Second, nil, nil)
	if err == nil {
		return true, nil
	}
	var statusErr *ossvc.StatusError
	if asStatusErr(err, &statusErr) && statusErr.StatusCode == 409 {
		holder, herr := l.Holder(ctx)
		if herr != nil {
			return false, herr
		}
		return holder == l.unit, nil
	}
	return false, err
}

// Release deletes the lock document iff this unit holds it. A missing
// document is success: the lock is already free.
func (l *IndexLock) Release(ctx context.Context) error {
	holder, err := l.Holder(ctx)
	if err != nil {
		return err
	}
	if holder != l.unit {
		return nil
	}
	err = l.client.Request(ctx, "DELETE", "/"+l.index+"/_doc/"+lockDocID+"?refresh=true", nil, 1, 10*time.Second, nil, nil)
	var statusErr *ossvc.StatusError
	if err != nil && asStatusErr(err, &statusErr) && statusErr.StatusCode == 404 {
		return nil
	}
	return err
}

// Holder returns the unit currently holding the lock, or "" when free.
func (l *IndexLock) Holder(ctx context.Context) (string, error) {
	var resp struct {
		Found  bool    `json:"found"`
		Source lockDoc `json:"_source"`
	}
	err := l.client.Request(ctx, "GET", "/"+l.index+"/_doc/"+lockDocID, nil, 1, 10*time.Second, nil, &resp)
	if err != nil {
		var statusErr *ossvc.StatusError
		if asStatusErr(err, &statusErr) && statusErr.StatusCode == 404 {
			return "", nil
		}
		return "", err
	}
	if !resp.Found {
		return "", nil
	}
	return resp.Source.UnitName, nil
}

// Acquired reports the eventually-consistent observed state.
func (l *IndexLock) Acquired(ctx context.Context) (bool, error) {
	holder, err := l.Holder(ctx)
	if err != nil {
		return false, err
	}
	return holder == l.unit, nil
}

func asStatusErr(err error, target **ossvc.StatusError) bool {
	se, ok := err.(*ossvc.StatusError)
	if !ok {
		return false
	}
	*target = se
	return true
}

// FleetLock routes lock operations to the index-backed lock when the
// cluster accepts writes, falling back to the app-scope databag lock
// during the bootstrap phase before the first node is up.
type FleetLock struct {
	index    *IndexLock
	fallback *Lock
	// ClusterReady reports whether the lock index is usable; re-evaluated
	// on every operation since the cluster can come up or go away between
	// ticks.
	ClusterReady func(ctx context.Context) bool
}

// NewFleetLock combines an IndexLock with the databag fallback.
func NewFleetLock(index *IndexLock, fallback *Lock, clusterReady func(ctx context.Context) bool) *FleetLock {
	return &FleetLock{index: index, fallback: fallback, ClusterReady: clusterReady}
}

// Acquire takes the lock through whichever backend is currently usable.
func (f *FleetLock) Acquire(ctx context.Context) (bool, error) {
	if f.ClusterReady != nil && f.ClusterReady(ctx) {
		return f.index.Acquire(ctx)
	}
	return f.fallback.Acquire()
}

// Release frees the lock on both backends so a holder that acquired via
// the databag during bootstrap does not leak the slot after the cluster
// comes up.
func (f *FleetLock) Release(ctx context.Context) error {
	if f.ClusterReady != nil && f.ClusterReady(ctx) {
		if err := f.index.Release(ctx); err != nil {
			return err
		}
	}
	return f.fallback.Release()
}

// Acquired reports whether this unit holds the lock on the active backend.
func (f *FleetLock) Acquired(ctx context.Context) (bool, error) {
	if f.ClusterReady != nil && f.ClusterReady(ctx) {
		return f.index.Acquired(ctx)
	}
	return f.fallback.Acquired()
}
