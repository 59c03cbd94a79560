// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package backup

import "errors"

// Sentinel errors surfaced by the credential and prerequisite checks.
// Messages are human-readable -- they are published
// verbatim as BLOCKED status text or action-failure reasons.
var (
	ErrBackupRelConflict      = errors.New("more than one object-storage integrator relation is related; remove all but one")
	ErrBackupCredentialIncorrect = errors.New("object-storage credentials were rejected by the backend")
	ErrBackendNotImplemented  = errors.New("backup: gcs credential propagation is not implemented")
	ErrNotLeader              = errors.New("backup: only the application leader may mutate the snapshot repository")
	ErrDeploymentNotReady     = errors.New("backup: deployment is not active")
	ErrUpgradeInProgress      = errors.New("backup: an upgrade is in progress")
	ErrBackendUnknown         = errors.New("backup: no object-storage backend is configured")
	ErrClusterUnreachable     = errors.New("backup: cluster is not reachable")
	ErrRepositoryNotCreated   = errors.New("backup: snapshot repository is not created")
	ErrOperationInProgress    = errors.New("backup: a snapshot or restore operation is already in progress")
	ErrSnapshotMissing        = errors.New("backup: snapshot not found in repository")
)

// HealthError wraps a cluster health color that blocks a backup action,
// carrying the human-readable reason the prerequisite check returns
//.
type HealthError struct {
	Reason string
}

func (e *HealthError) Error() string { return "backup: " + e.Reason }
