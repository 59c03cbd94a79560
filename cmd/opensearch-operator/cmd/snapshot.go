// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opensearch-operator/cluster-operator/internal/backup"
	"github.com/opensearch-operator/cluster-operator/internal/keystore"
	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/topology"
)

func newSnapshotCmd() *cobra.Command {
	var (
		repo          string
		nodeLockIndex string
		isLeader      bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Take a snapshot against the registered repository",
		RunE: func(c *cobra.Command, args []string) error {
			return runSnapshot(c, repo, nodeLockIndex, isLeader)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "opensearch-snapshots", "snapshot repository name")
	cmd.Flags().StringVar(&nodeLockIndex, "node-lock-index", ".opensearch-node-lock", "node lock index, excluded from the snapshot")
	cmd.Flags().BoolVar(&isLeader, "leader", false, "whether this unit is the application leader")

	return cmd
}

func runSnapshot(c *cobra.Command, repo, nodeLockIndex string, isLeader bool) error {
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
	health, err := topo.Health(ctx)
	if err != nil {
		return fmt.Errorf("checking cluster health: %w", err)
	}

	snapshotRunning, err := coord.SnapshotInProgress(ctx)
	if err != nil {
		return fmt.Errorf("checking snapshot status: %w", err)
	}
	restoreRunning, err := coord.RestoreInProgress(ctx)
	if err != nil {
		return fmt.Errorf("checking restore status: %w", err)
	}

	if err := backup.CheckPrerequisites(backup.PrereqInput{
		IsLeader:            isLeader,
		DeploymentActive:    true,
		Backend:             model.BackendS3,
		ClusterReachable:    true,
		RepositoryCreated:   true,
		Health:              health,
		OperationInProgress: snapshotRunning || restoreRunning,
	}); err != nil {
		return fmt.Errorf("prerequisites not met: %w", err)
	}

	result, err := coord.CreateSnapshot(ctx, repo, nodeLockIndex)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
