// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package backup

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// systemIndices are excluded from snapshot/restore index patterns: the
// security index, log-types config, and the node lock index (named by
// the caller, since its name is configuration).
func systemIndices(nodeLockIndex string) []string {
	return []string{".opendistro_security", ".opensearch-sap-log-types-config", nodeLockIndex}
}

// indexPattern renders the "*, -<system-indices>" pattern shared by
// snapshot create and restore.
func indexPattern(nodeLockIndex string) string {
	excludes := make([]string, 0, 3)
	for _, idx := range systemIndices(nodeLockIndex) {
		excludes = append(excludes, "-"+idx)
	}
	return strings.Join(append([]string{"*"}, excludes...), ",")
}

// SnapshotID derives the snapshot id from the current wall clock:
// lower-cased "%Y-%m-%dT%H:%M:%SZ".
func (c *Coordinator) SnapshotID() string {
	return strings.ToLower(c.clock.NowUTC().Format("2006-01-02T15:04:05Z"))
}

// SnapshotResult is what CreateSnapshot returns to the caller.
type SnapshotResult struct {
	BackupID string
	Status   string
}

// CreateSnapshot takes one snapshot: the caller has already run
// CheckPrerequisites and confirmed no backup/restore is in progress.
// PUT _snapshot/{repo}/{id}?wait_for_completion=false with the system-
// index exclusion pattern.
func (c *Coordinator) CreateSnapshot(ctx context.Context, repo, nodeLockIndex string) (SnapshotResult, error) {
	id := c.SnapshotID()
	body := map[string]interface{}{
		"indices":              indexPattern(nodeLockIndex),
		"ignore_unavailable":   true,
		"include_global_state": true,
	}
	path := fmt.Sprintf("/_snapshot/%s/%s?wait_for_completion=false", repo, id)
	if err := c.client.Request(ctx, "PUT", path, body, 1, 30*time.Second, nil, nil); err != nil {
		return SnapshotResult{}, fmt.Errorf("backup: creating snapshot %s: %w", id, err)
	}
	return SnapshotResult{BackupID: id, Status: "snapshot_in_progress"}, nil
}

// SnapshotManifest is the subset of GET _snapshot/{repo}/{id} this
// package needs.
type SnapshotManifest struct {
	Snapshots []struct {
		Indices []string `json:"indices"`
	} `json:"snapshots"`
}

// RecoveryEntry is one row of GET _cat/recovery?format=json.
type RecoveryEntry struct {
	Index      string `json:"index"`
	Type       string `json:"type"`
	Repository string `json:"repository"`
	Snapshot   string `json:"snapshot"`
	Stage      string `json:"stage"`
}

// RestoreResult reports the outcome of RestoreSnapshot, including any
// indices the sanity check found were not fully
// recovered.
type RestoreResult struct {
	SuccessWithWarning bool
	NotRestored        []string
}

// RestoreSnapshot restores one snapshot. closeIndices is the caller's
// mechanism for closing indices (internal/topology knows what's open);
// fetchManifest and fetchRecovery are injected so tests can drive the
// sanity-check branch without a live cluster.
func (c *Coordinator) RestoreSnapshot(
	ctx context.Context,
	repo, id, nodeLockIndex string,
	fetchManifest func(ctx context.Context, repo, id string) (SnapshotManifest, error),
	closeIndices func(ctx context.Context, indices []string) (failed []string, err error),
	fetchRecovery func(ctx context.Context) ([]RecoveryEntry, error),
	health func(ctx context.Context) (string, error),
) (RestoreResult, error) {
	manifest, err := fetchManifest(ctx, repo, id)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("%w: %s/%s", ErrSnapshotMissing, repo, id)
	}
	if len(manifest.Snapshots) == 0 {
		return RestoreResult{}, fmt.Errorf("%w: %s/%s", ErrSnapshotMissing, repo, id)
	}

	wanted := manifest.Snapshots[0].Indices
	toClose := nonSystemIndices(wanted, nodeLockIndex)
	if len(toClose) > 0 {
		if failed, err := closeIndices(ctx, toClose); err != nil || len(failed) > 0 {
			return RestoreResult{}, fmt.Errorf("backup: failed to close indices %v before restore: %w", failed, err)
		}
	}

	body := map[string]interface{}{
		"indices":              indexPattern(nodeLockIndex),
		"ignore_unavailable":   true,
		"include_global_state": false,
	}
	path := fmt.Sprintf("/_snapshot/%s/%s/_restore?wait_for_completion=true", repo, id)
	if err := c.client.Request(ctx, "POST", path, body, 1, 60*time.Second, nil, nil); err != nil {
		return RestoreResult{}, fmt.Errorf("backup: restoring snapshot %s: %w", id, err)
	}

	recovered, err := fetchRecovery(ctx)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("backup: checking recovery progress: %w", err)
	}
	done := make(map[string]bool, len(recovered))
	for _, r := range recovered {
		if r.Type == "snapshot" && r.Repository == repo && r.Snapshot == id && r.Stage == "done" {
			done[r.Index] = true
		}
	}
	var notRestored []string
	for _, idx := range wanted {
		if !done[idx] {
			notRestored = append(notRestored, idx)
		}
	}
	if len(notRestored) > 0 {
		return RestoreResult{NotRestored: notRestored}, fmt.Errorf("Failed to restore %d indices.", len(notRestored))
	}

	healthColor, err := health(ctx)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("backup: checking cluster health after restore: %w", err)
	}
	if healthColor == "yellow" {
		return RestoreResult{SuccessWithWarning: true}, nil
	}
	return RestoreResult{}, nil
}

// nonSystemIndices filters wanted down to the indices that are not the
// fixed system set.
func nonSystemIndices(wanted []string, nodeLockIndex string) []string {
	sys := make(map[string]bool)
	for _, idx := range systemIndices(nodeLockIndex) {
		sys[idx] = true
	}
	var out []string
	for _, idx := range wanted {
		if !sys[idx] {
			out = append(out, idx)
		}
	}
	return out
}
