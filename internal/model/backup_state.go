// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package model

// BackupServiceState is the full lifecycle of a snapshot/restore operation
// as tracked by the Backup Repository Coordinator, including
// the exact error-classification outcomes of ClassifyError.
type BackupServiceState string

const (
	BackupStateSuccess                            BackupServiceState = "success"
	BackupStateSnapshotInProgress                 BackupServiceState = "snapshot_in_progress"
	BackupStateRestoreInProgress                  BackupServiceState = "restore_in_progress"
	BackupStateSnapshotPartiallyTaken             BackupServiceState = "snapshot_partially_taken"
	BackupStateSnapshotIncompatibility            BackupServiceState = "snapshot_incompatibility"
	BackupStateSnapshotFailedUnknown              BackupServiceState = "snapshot_failed_unknown"
	BackupStateSnapshotMissing                    BackupServiceState = "snapshot_missing"
	BackupStateSnapshotRestoreError               BackupServiceState = "snapshot_restore_error"
	BackupStateSnapshotRestoreErrorIndexNotClosed BackupServiceState = "snapshot_restore_error_index_not_closed"
	BackupStateRepoNotCreated                     BackupServiceState = "repo_not_created"
	BackupStateRepoCreationErr                    BackupServiceState = "repo_creation_err"
	BackupStateRepoErrUnknown                     BackupServiceState = "repo_err_unknown"
	BackupStateRepoMissing                        BackupServiceState = "repo_missing"
	BackupStateRepoUnreachable                    BackupServiceState = "repo_unreachable"
	BackupStateRepoNotCreatedAlreadyExists        BackupServiceState = "repo_not_created_already_exists"
	BackupStateIllegalArgument                    BackupServiceState = "illegal_argument"
	BackupStateResponseFailedNetwork              BackupServiceState = "response_failed_network"
	BackupStateInvalidCredentials                 BackupServiceState = "invalid_credentials"
	BackupStateRepositoryConflict                 BackupServiceState = "repository_conflict"
	BackupStateCABundleMismatch                   BackupServiceState = "ca_bundle_mismatch"
	BackupStateBackendNotImplemented              BackupServiceState = "backend_not_implemented"
)

// Terminal reports whether state represents a finished attempt (success
// or failure) rather than work in progress.
func (s BackupServiceState) Terminal() bool {
	switch s {
	case BackupStateSuccess, BackupStateSnapshotPartiallyTaken,
		BackupStateSnapshotIncompatibility, BackupStateSnapshotFailedUnknown,
		BackupStateSnapshotMissing, BackupStateSnapshotRestoreError,
		BackupStateSnapshotRestoreErrorIndexNotClosed, BackupStateRepoNotCreated,
		BackupStateRepoCreationErr, BackupStateRepoErrUnknown, BackupStateRepoMissing,
		BackupStateRepoUnreachable, BackupStateRepoNotCreatedAlreadyExists,
		BackupStateIllegalArgument, BackupStateResponseFailedNetwork,
		BackupStateInvalidCredentials, BackupStateRepositoryConflict,
		BackupStateCABundleMismatch, BackupStateBackendNotImplemented:
		return true
	default:
		return false
	}
}
