// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/opensearch-operator/cluster-operator/internal/tlsfabric"
)

// newRotateCACmd builds the "rotate-ca" subcommand family implementing
// the two-phase CA-rotation protocol against the on-disk
// ca.pem/old-ca.pem/chain.pem layout.
func newRotateCACmd() *cobra.Command {
	var trustDir string

	root := &cobra.Command{
		Use:   "rotate-ca",
		Short: "Drive the two-phase CA-rotation protocol",
	}
	root.PersistentFlags().StringVar(&trustDir, "trust-dir", ".", "directory holding ca.pem, old-ca.pem and chain.pem")

	root.AddCommand(newRotateCABeginCmd(&trustDir))
	root.AddCommand(newRotateCAFinishCmd(&trustDir))
	root.AddCommand(newRotateCAWatchCmd(&trustDir))

	return root
}

func newRotateCABeginCmd(trustDir *string) *cobra.Command {
	var newCAPath string

	cmd := &cobra.Command{
		Use:   "begin",
		Short: "Phase 1: import a new CA, demoting the current one to old-ca",
		RunE: func(c *cobra.Command, args []string) error {
			return runRotateCABegin(c, *trustDir, newCAPath)
		},
	}
	cmd.Flags().StringVar(&newCAPath, "new-ca", "", "path to the replacement CA certificate (PEM)")
	_ = cmd.MarkFlagRequired("new-ca")
	return cmd
}

func newRotateCAFinishCmd(trustDir *string) *cobra.Command {
	var allRenewed bool

	cmd := &cobra.Command{
		Use:   "finish",
		Short: "Phase 2: drop old-ca once every unit has renewed",
		RunE: func(c *cobra.Command, args []string) error {
			return runRotateCAFinish(c, *trustDir, allRenewed)
		},
	}
	cmd.Flags().BoolVar(&allRenewed, "all-renewed", false, "whether every unit in every relation has reported tls_ca_renewed")
	_ = cmd.MarkFlagRequired("all-renewed")
	return cmd
}

func loadTrustStore(trustDir string) (tlsfabric.TrustStore, error) {
	ca, err := os.ReadFile(filepath.Join(trustDir, "ca.pem"))
	if err != nil {
		return tlsfabric.TrustStore{}, fmt.Errorf("reading ca.pem: %w", err)
	}
	oldCA, err := os.ReadFile(filepath.Join(trustDir, "old-ca.pem"))
	if err != nil && !os.IsNotExist(err) {
		return tlsfabric.TrustStore{}, fmt.Errorf("reading old-ca.pem: %w", err)
	}
	return tlsfabric.TrustStore{CA: ca, OldCA: oldCA}, nil
}

func writeTrustStore(trustDir string, store tlsfabric.TrustStore) error {
	if err := os.WriteFile(filepath.Join(trustDir, "ca.pem"), store.CA, 0o640); err != nil {
		return fmt.Errorf("writing ca.pem: %w", err)
	}
	oldPath := filepath.Join(trustDir, "old-ca.pem")
	if len(store.OldCA) == 0 {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing old-ca.pem: %w", err)
		}
		return nil
	}
	return os.WriteFile(oldPath, store.OldCA, 0o640)
}

func runRotateCABegin(c *cobra.Command, trustDir, newCAPath string) error {
	log, err := buildLogger(c, "tlsfabric")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	store, err := loadTrustStore(trustDir)
	if err != nil {
		return err
	}
	newCA, err := os.ReadFile(newCAPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", newCAPath, err)
	}

	next, restartNeeded := tlsfabric.BeginRotation(store, newCA)
	if !restartNeeded {
		log.Infow("new CA matches current CA, nothing to do")
		return nil
	}
	if err := writeTrustStore(trustDir, next); err != nil {
		return err
	}

	chainPath := filepath.Join(trustDir, "chain.pem")
	chain, err := os.ReadFile(chainPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading chain.pem: %w", err)
	}
	if err := os.WriteFile(chainPath, tlsfabric.AppendToChain(chain, newCA), 0o640); err != nil {
		return fmt.Errorf("writing chain.pem: %w", err)
	}

	log.Infow("CA rotation phase 1 complete, restart required", "trust_dir", trustDir)
	return nil
}

func runRotateCAFinish(c *cobra.Command, trustDir string, allRenewed bool) error {
	log, err := buildLogger(c, "tlsfabric")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	store, err := loadTrustStore(trustDir)
	if err != nil {
		return err
	}
	next := tlsfabric.FinishRotation(store, allRenewed)
	if len(next.OldCA) == len(store.OldCA) {
		log.Infow("fleet not yet fully renewed, old-ca retained")
		return nil
	}
	if err := writeTrustStore(trustDir, next); err != nil {
		return err
	}
	log.Infow("CA rotation phase 2 complete, old-ca retired")
	return nil
}

// newRotateCAWatchCmd runs the periodic CA-expiry maintenance sweep
// on a cron schedule, the way a supervisor would invoke this
// binary's other subcommands on external events rather than as a
// one-shot evaluation. It never rotates on its own -- BeginRotation
// still requires an operator-supplied replacement CA -- it only warns
// when the current CA is approaching its NotAfter.
func newRotateCAWatchCmd(trustDir *string) *cobra.Command {
	var (
		schedule string
		within   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the periodic CA-expiry sweep on a cron schedule until cancelled",
		RunE: func(c *cobra.Command, args []string) error {
			return runRotateCAWatch(c, *trustDir, schedule, within)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "0 0 * * * *", "cron schedule for the expiry sweep (robfig/cron v1 six-field syntax)")
	cmd.Flags().DurationVar(&within, "warn-within", 30*24*time.Hour, "warn when the current CA's NotAfter falls within this window")
	return cmd
}

func runRotateCAWatch(c *cobra.Command, trustDir, schedule string, within time.Duration) error {
	log, err := buildLogger(c, "tlsfabric")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	sweep := func() {
		store, err := loadTrustStore(trustDir)
		if err != nil {
			log.Errorw("expiry sweep: loading trust store", "error", err)
			return
		}
		check, err := tlsfabric.CheckExpiry(store.CA, nowUTC(), within)
		if err != nil {
			log.Errorw("expiry sweep: checking CA", "error", err)
			return
		}
		if check.NearExpiry {
			log.Warnw("current CA approaching expiry", "subject", check.Subject, "not_after", check.NotAfter)
		} else {
			log.Infow("current CA within validity window", "subject", check.Subject, "not_after", check.NotAfter)
		}
	}

	sched := cron.New()
	if err := sched.AddFunc(schedule, sweep); err != nil {
		return fmt.Errorf("parsing --schedule %q: %w", schedule, err)
	}
	sched.Start()
	defer sched.Stop()

	log.Infow("CA-expiry sweep scheduled", "schedule", schedule, "warn_within", within)
	<-c.Context().Done()
	return nil
}
