// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

// SnapshotInfo is one snapshot as listed from the repository.
type SnapshotInfo struct {
	Snapshot string   `json:"snapshot"`
	State    string   `json:"state"`
	Indices  []string `json:"indices"`
}

type snapshotListResponse struct {
	Snapshots []SnapshotInfo `json:"snapshots"`
}

// ListSnapshots returns every snapshot in repo, newest last, from
// GET _snapshot/{repo}/_all.
func (c *Coordinator) ListSnapshots(ctx context.Context, repo string) ([]SnapshotInfo, error) {
	var resp snapshotListResponse
	if err := c.client.Request(ctx, "GET", "/_snapshot/"+repo+"/_all", nil, 1, 30*time.Second, nil, &resp); err != nil {
		return nil, fmt.Errorf("backup: listing snapshots in %s: %w", repo, err)
	}
	return resp.Snapshots, nil
}

type snapshotStatusResponse struct {
	Snapshots []struct {
		Snapshot string `json:"snapshot"`
		State    string `json:"state"`
	} `json:"snapshots"`
}

// SnapshotInProgress reports whether any snapshot is currently running,
// from the global GET _snapshot/_status view.
func (c *Coordinator) SnapshotInProgress(ctx context.Context) (bool, error) {
	var resp snapshotStatusResponse
	if err := c.client.Request(ctx, "GET", "/_snapshot/_status", nil, 1, 30*time.Second, nil, &resp); err != nil {
		return false, fmt.Errorf("backup: reading global snapshot status: %w", err)
	}
	for _, s := range resp.Snapshots {
		if s.State == "IN_PROGRESS" || s.State == "STARTED" {
			return true, nil
		}
	}
	return false, nil
}

// RestoreInProgress reports whether any snapshot-sourced recovery is
// still running, from GET _cat/recovery.
func (c *Coordinator) RestoreInProgress(ctx context.Context) (bool, error) {
	var entries []RecoveryEntry
	if err := c.client.Request(ctx, "GET", "/_cat/recovery?format=json", nil, 1, 30*time.Second, nil, &entries); err != nil {
		return false, fmt.Errorf("backup: reading recovery progress: %w", err)
	}
	for _, e := range entries {
		if e.Type == "snapshot" && e.Stage != "done" {
			return true, nil
		}
	}
	return false, nil
}

// ServiceState classifies the current backup subsystem standing for
// status publication: in-progress states win over success, and a
// classification from the error table wins over both.
func ServiceState(snapshotRunning, restoreRunning bool, lastErr *model.BackupServiceState) model.BackupServiceState {
	if lastErr != nil {
		return *lastErr
	}
	if restoreRunning {
		return model.BackupStateRestoreInProgress
	}
	if snapshotRunning {
		return model.BackupStateSnapshotInProgress
	}
	return model.BackupStateSuccess
}
