// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package cmd implements the operator binary's command surface (run,
// snapshot, restore, rotate-ca) on github.com/spf13/cobra. The binary
// itself is a thin shell around the internal/ packages.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the operator's root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "opensearch-operator",
		Short: "Peer-cluster orchestration and lifecycle control for an OpenSearch cluster",
		Long: `opensearch-operator drives the control-plane concerns of one OpenSearch
application: peer-cluster orchestration, per-unit start/stop/restart,
snapshot-repository coordination, and TLS/credential rotation. It is
designed to run once per unit under the deployment substrate's own
supervisor, not as a long-lived standalone daemon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("host", "localhost:9200", "primary OpenSearch admin host")
	root.PersistentFlags().String("admin-user", "admin", "admin basic-auth username")
	root.PersistentFlags().String("admin-password", "", "admin basic-auth password (prefer OPENSEARCH_ADMIN_PASSWORD)")
	root.PersistentFlags().Bool("insecure-skip-verify", false, "skip TLS verification against the admin API (testing only)")
	root.PersistentFlags().Bool("dev-log", false, "use a human-readable development logger instead of the production JSON logger")
	root.PersistentFlags().String("config", "", "path to a config file holding the user-facing keys (cluster_name, init_hold, roles, profile)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newRestoreCmd())
	root.AddCommand(newRotateCACmd())

	return root
}

// Execute runs the root command and exits the process on failure,
// so a calling supervisor sees failures as non-zero exits.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
