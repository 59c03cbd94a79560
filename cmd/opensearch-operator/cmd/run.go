// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/peercluster"
)

// newRunCmd builds the "run" subcommand: one PCM.Run evaluation pass,
// invoked once per event rather than as a long-lived loop -- the calling
// supervisor is responsible for re-invoking it on the next tick.
func newRunCmd() *cobra.Command {
	var (
		modelUUID     string
		appName       string
		statePath     string
		hasPeerRelation bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the peer-cluster deployment description for one tick",
		Long: `Reads the current user configuration and any previously-published
DeploymentDescription from --state, recomputes it through the Peer-Cluster
Manager, writes the (possibly unchanged) result back to --state, and
prints it as JSON. Exit code is non-zero iff the resulting state is
BLOCKED_*, so a calling supervisor can treat this as a health check.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runPCMOnce(c, modelUUID, appName, statePath, hasPeerRelation)
		},
	}

	cmd.Flags().StringVar(&modelUUID, "model-uuid", "", "deployment-substrate model/namespace identity (App.ModelUUID)")
	cmd.Flags().StringVar(&appName, "app-name", "", "this application's name (App.Name)")
	cmd.Flags().StringVar(&statePath, "state", "deployment-description.json", "path to the persisted DeploymentDescription")
	cmd.Flags().BoolVar(&hasPeerRelation, "has-peer-relation", false, "whether a peer-cluster-orchestrator relation currently exists")
	_ = cmd.MarkFlagRequired("app-name")

	return cmd
}

func runPCMOnce(c *cobra.Command, modelUUID, appName, statePath string, hasPeerRelation bool) error {
	log, err := buildLogger(c, "pcm")
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	userCfg, err := loadUserConfig(c)
	if err != nil {
		return err
	}

	cfg := model.PeerClusterConfig{
		ClusterName: userCfg.ClusterName,
		InitHold:    userCfg.InitHold,
		Profile:     userCfg.Profile,
	}
	if err := cfg.Normalize(userCfg.RawRoles); err != nil {
		return fmt.Errorf("normalizing roles: %w", err)
	}

	app := model.App{ModelUUID: modelUUID, Name: appName}
	pcm := peercluster.New(app, peercluster.ClockFunc(nowSeconds), log)

	prev, err := loadDescription(statePath)
	if err != nil {
		return err
	}

	desc, changed, err := pcm.Run(cfg, prev, hasPeerRelation)
	if err != nil {
		return fmt.Errorf("pcm: %w", err)
	}

	if changed {
		log.Infow("deployment description changed", "state", desc.Status.State, "type", desc.Typ)
		if err := saveDescription(statePath, desc); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(desc); err != nil {
		return fmt.Errorf("encoding deployment description: %w", err)
	}

	if desc.Status.State != model.StateActive {
		return fmt.Errorf("deployment blocked: %s", desc.Status.Message)
	}
	return nil
}

func loadDescription(path string) (*model.DeploymentDescription, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file %s: %w", path, err)
	}
	var desc model.DeploymentDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return &desc, nil
}

func saveDescription(path string, desc *model.DeploymentDescription) error {
	raw, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling deployment description: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o640); err != nil {
		return fmt.Errorf("writing state file %s: %w", path, err)
	}
	return nil
}
