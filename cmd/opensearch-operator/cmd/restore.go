// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opensearch-operator/cluster-operator/internal/backup"
	"github.com/opensearch-operator/cluster-operator/internal/keystore"
	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/topology"
)

func newRestoreCmd() *cobra.Command {
	var (
		repo          string
		snapshotID    string
		nodeLockIndex string
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a snapshot, closing affected indices first",
		RunE: func(c *cobra.Command, args []string) error {
			return runRestore(c, repo, snapshotID, nodeLockIndex)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "opensearch-snapshots", "snapshot repository name")
	cmd.Flags().StringVar(&snapshotID, "snapshot-id", "", "snapshot id to restore, as returned by 'snapshot'")
	cmd.Flags().StringVar(&nodeLockIndex, "node-lock-index", ".opensearch-node-lock", "node lock index, excluded from the restore")
	_ = cmd.MarkFlagRequired("snapshot-id")

	return cmd
}

func runRestore(c *cobra.Command, repo, snapshotID, nodeLockIndex string) error {
	log, err := buildLogger(c, "backup")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	client, err := buildClient(c, log)
	if err != nil {
		return err
	}
	app := model.App{}
	ks := keystore.New(".", client)
	topo := topology.New(client, app)
	coord := backup.New(client, ks, topo, backup.ClockFunc(nowUTC), log)

	ctx := c.Context()

	fetchManifest := func(ctx context.Context, repo, id string) (backup.SnapshotManifest, error) {
		var manifest backup.SnapshotManifest
		err := client.Request(ctx, "GET", fmt.Sprintf("/_snapshot/%s/%s", repo, id), nil, 6, 30*time.Second, nil, &manifest)
		return manifest, err
	}
	closeIndices := func(ctx context.Context, indices []string) ([]string, error) {
		var failed []string
		for _, idx := range indices {
			if err := client.Request(ctx, "POST", fmt.Sprintf("/%s/_close", idx), nil, 6, 10*time.Second, nil, nil); err != nil {
				failed = append(failed, idx)
			}
		}
		if len(failed) > 0 {
			return failed, fmt.Errorf("could not close %d indices", len(failed))
		}
		return nil, nil
	}
	fetchRecovery := func(ctx context.Context) ([]backup.RecoveryEntry, error) {
		var entries []backup.RecoveryEntry
		err := client.Request(ctx, "GET", "/_cat/recovery?format=json", nil, 6, 10*time.Second, nil, &entries)
		return entries, err
	}
	health := func(ctx context.Context) (string, error) {
		color, err := topo.Health(ctx)
		return string(color), err
	}

	result, err := coord.RestoreSnapshot(ctx, repo, snapshotID, nodeLockIndex, fetchManifest, closeIndices, fetchRecovery, health)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
