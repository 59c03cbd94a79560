// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

func TestResolveBackendMainNoRelations(t *testing.T) {
	backend, inherited, err := ResolveBackend(true, IntegratorRelations{}, "", false)
	require.NoError(t, err)
	assert.Empty(t, backend)
	assert.False(t, inherited)
}

func TestResolveBackendMainSingleRelation(t *testing.T) {
	backend, inherited, err := ResolveBackend(true, IntegratorRelations{S3: true}, "", false)
	require.NoError(t, err)
	assert.Equal(t, model.BackendS3, backend)
	assert.False(t, inherited)
}

func TestResolveBackendMainConflict(t *testing.T) {
	_, _, err := ResolveBackend(true, IntegratorRelations{S3: true, Azure: true}, "", false)
	assert.ErrorIs(t, err, ErrBackupRelConflict)
}

func TestResolveBackendNonMainInheritsPeer(t *testing.T) {
	backend, inherited, err := ResolveBackend(false, IntegratorRelations{}, model.BackendAzure, true)
	require.NoError(t, err)
	assert.Equal(t, model.BackendAzure, backend)
	assert.True(t, inherited)
}

func TestResolveBackendNonMainNoPeerCreds(t *testing.T) {
	backend, inherited, err := ResolveBackend(false, IntegratorRelations{}, "", false)
	require.NoError(t, err)
	assert.Empty(t, backend)
	assert.False(t, inherited)
}

func TestCheckPrerequisitesOrdering(t *testing.T) {
	base := PrereqInput{
		IsLeader:          true,
		DeploymentActive:  true,
		Backend:           model.BackendS3,
		ClusterReachable:  true,
		RepositoryCreated: true,
		Health:            model.HealthGreen,
	}

	t.Run("not leader wins first", func(t *testing.T) {
		in := base
		in.IsLeader = false
		in.DeploymentActive = false
		assert.ErrorIs(t, CheckPrerequisites(in), ErrNotLeader)
	})

	t.Run("upgrade in progress beats backend conflict", func(t *testing.T) {
		in := base
		in.UpgradeInProgress = true
		in.BackendConflict = true
		assert.ErrorIs(t, CheckPrerequisites(in), ErrUpgradeInProgress)
	})

	t.Run("peer cluster backup bypasses repository-created check", func(t *testing.T) {
		in := base
		in.RepositoryCreated = false
		in.IsPeerClusterBackup = true
		assert.NoError(t, CheckPrerequisites(in))
	})

	t.Run("red health blocks after repo check", func(t *testing.T) {
		in := base
		in.Health = model.HealthRed
		err := CheckPrerequisites(in)
		require.Error(t, err)
		var he *HealthError
		require.ErrorAs(t, err, &he)
	})

	t.Run("operation in progress is the last gate", func(t *testing.T) {
		in := base
		in.OperationInProgress = true
		assert.ErrorIs(t, CheckPrerequisites(in), ErrOperationInProgress)
	})

	t.Run("fully satisfied passes", func(t *testing.T) {
		assert.NoError(t, CheckPrerequisites(base))
	})
}

func TestClassifyErrorTable(t *testing.T) {
	cases := []struct {
		name    string
		errType string
		reason  string
		body    string
		want    model.BackupServiceState
	}{
		{"repo type missing", "repository_exception", "repository type does not exist", "", model.BackupStateRepoNotCreated},
		{"repo generation unknown", "repository_exception", "Could not determine repository generation", "", model.BackupStateRepoCreationErr},
		{"repo exception unknown reason", "repository_exception", "something else", "", model.BackupStateRepoErrUnknown},
		{"repo missing", "repository_missing_exception", "", "", model.BackupStateRepoMissing},
		{"repo not accessible", "repository_verification_exception", "bucket is not accessible", "", model.BackupStateRepoUnreachable},
		{"repo verification other", "repository_verification_exception", "other", "", model.BackupStateRepoErrUnknown},
		{"illegal argument", "illegal_argument_exception", "", "", model.BackupStateIllegalArgument},
		{"snapshot missing", "snapshot_missing_exception", "", "", model.BackupStateSnapshotMissing},
		{"restore index not closed", "snapshot_restore_exception", "open index with same name already exists", "", model.BackupStateSnapshotRestoreErrorIndexNotClosed},
		{"restore other", "snapshot_restore_exception", "other reason", "", model.BackupStateSnapshotRestoreError},
		{"body in progress", "", "", "snapshot IN_PROGRESS right now", model.BackupStateSnapshotInProgress},
		{"body partial", "", "", "PARTIAL completion", model.BackupStateSnapshotPartiallyTaken},
		{"body incompatible", "", "", "version INCOMPATIBLE", model.BackupStateSnapshotIncompatibility},
		{"body failed", "", "", "operation FAILED", model.BackupStateSnapshotFailedUnknown},
		{"body unrecognized", "", "", "", model.BackupStateResponseFailedNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.errType, tc.reason, tc.body))
		})
	}
}

func TestSnapshotIDFormat(t *testing.T) {
	fixed := time.Date(2023, time.March, 4, 5, 6, 7, 0, time.UTC)
	c := New(nil, nil, nil, ClockFunc(func() time.Time { return fixed }), nil)
	assert.Equal(t, "2023-03-04t05:06:07z", c.SnapshotID())
}
