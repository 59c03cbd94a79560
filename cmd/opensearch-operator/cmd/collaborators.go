// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package cmd

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/opensearch-operator/cluster-operator/internal/config"
	"github.com/opensearch-operator/cluster-operator/internal/obslog"
	"github.com/opensearch-operator/cluster-operator/internal/ossvc"
	"github.com/opensearch-operator/cluster-operator/internal/secrets"
)

// buildLogger constructs the component logger per the --dev-log flag,
// using internal/obslog's field conventions.
func buildLogger(cmd *cobra.Command, component string) (*zap.SugaredLogger, error) {
	dev, _ := cmd.Flags().GetBool("dev-log")
	if dev {
		return obslog.NewDevelopment(component)
	}
	return obslog.New(component)
}

// buildClient constructs the ossvc.Client the subcommands share, reading
// connection flags and falling back to OPENSEARCH_ADMIN_PASSWORD the way
// operators mount credentials as files/env
// rather than requiring them on the command line.
func buildClient(cmd *cobra.Command, log *zap.SugaredLogger) (*ossvc.Client, error) {
	host, _ := cmd.Flags().GetString("host")
	user, _ := cmd.Flags().GetString("admin-user")
	password, _ := cmd.Flags().GetString("admin-password")
	if password == "" {
		password = os.Getenv("OPENSEARCH_ADMIN_PASSWORD")
	}
	insecure, _ := cmd.Flags().GetBool("insecure-skip-verify")

	if password != "" {
		warnOnPasswordDrift(log, password)
	}

	auth := ossvc.BasicAuth{Username: user, Password: password}
	tlsCfg := &tls.Config{InsecureSkipVerify: insecure} //nolint:gosec // opt-in via explicit flag only
	return ossvc.New(host, auth, tlsCfg, log), nil
}

// adminPasswordHashFile caches a bcrypt hash of the admin password this
// binary last saw, purely to flag unexpected drift between invocations
// (e.g. a credential rotated out from under a running supervisor). It
// never makes the process fail -- a changed hash is logged and the
// cache is refreshed.
const adminPasswordHashFile = ".admin-password.hash"

func warnOnPasswordDrift(log *zap.SugaredLogger, password string) {
	hash, err := secrets.HashPassword(password)
	if err != nil {
		log.Warnw("could not hash admin password for drift detection", "error", err)
		return
	}

	if prev, err := os.ReadFile(adminPasswordHashFile); err == nil {
		if !secrets.PasswordMatchesHash(password, string(prev)) {
			log.Warnw("admin password differs from the last invocation's cached hash")
		}
	}

	if err := os.WriteFile(adminPasswordHashFile, []byte(hash), 0o600); err != nil {
		log.Warnw("could not cache admin password hash", "error", err)
	}
}

// loadUserConfig reads the user-facing keys via viper, from --config if set and
// otherwise from the process environment with an "OPENSEARCH_" prefix.
func loadUserConfig(cmd *cobra.Command) (config.UserConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("OPENSEARCH")
	v.AutomaticEnv()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config.UserConfig{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	return config.Load(v)
}
