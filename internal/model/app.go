// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package model holds the entities shared by every component of the
// operator: App, Node, PeerClusterConfig, DeploymentDescription, and the
// small closed-world tagged unions (Directive, State, BackupServiceState,
// PluginState, HealthColor) that flow across relation boundaries.
package model

import (
	"crypto/md5" //nolint:gosec // identity fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
)

// App is the logical application identity of one deployed unit of the
// operator. Two apps are the same application iff ModelUUID and Name match.
type App struct {
	ModelUUID string `json:"model_uuid"`
	Name      string `json:"name"`
}

// ID uniquely identifies this application across the fleet for the
// operator's lifetime.
func (a App) ID() string {
	return fmt.Sprintf("%s/%s", a.ModelUUID, a.Name)
}

// ShortID is the first 3 hex characters of md5(ID()), used where a compact,
// human-glanceable tag is needed (e.g. auto-generated cluster names).
func (a App) ShortID() string {
	sum := md5.Sum([]byte(a.ID())) //nolint:gosec
	return hex.EncodeToString(sum[:])[:3]
}

// Equal reports whether two apps denote the same application identity.
func (a App) Equal(other App) bool {
	return a.ModelUUID == other.ModelUUID && a.Name == other.Name
}

// IsZero reports whether a has never been assigned an identity.
func (a App) IsZero() bool {
	return a.ModelUUID == "" && a.Name == ""
}
