// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package backup implements the snapshot repository coordinator:
// backend resolution, the credential lifecycle, snapshot/restore, and
// the shared error-classification table. One coordinator serves every
// backend; the S3/Azure/GCS split is a tagged value, not a type
// hierarchy, so branches stay data-driven.
package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opensearch-operator/cluster-operator/internal/keystore"
	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/ossvc"
	"github.com/opensearch-operator/cluster-operator/internal/retry"
	"github.com/opensearch-operator/cluster-operator/internal/topology"
)

// IntegratorRelations reports which object-storage integrator relations
// are currently related, as consumed by ResolveBackend.
type IntegratorRelations struct {
	S3    bool
	Azure bool
	GCS   bool
}

// count returns how many integrator relations are active.
func (r IntegratorRelations) count() int {
	n := 0
	if r.S3 {
		n++
	}
	if r.Azure {
		n++
	}
	if r.GCS {
		n++
	}
	return n
}

// ResolveBackend picks the active object-storage backend.
// For MAIN_ORCHESTRATOR apps the backend is the one with an active
// integrator relation; for non-main apps it is whichever backend's
// credentials appeared on the peer-cluster relation, returned with the
// second result set to true so callers can distinguish locally-sourced
// credentials from fleet-inherited ones.
func ResolveBackend(isMain bool, rel IntegratorRelations, peerBackend model.Backend, peerCredsPresent bool) (model.Backend, bool, error) {
	if !isMain {
		if !peerCredsPresent {
			return "", false, nil
		}
		return peerBackend, true, nil
	}

	switch rel.count() {
	case 0:
		return "", false, nil
	case 1:
		switch {
		case rel.S3:
			return model.BackendS3, false, nil
		case rel.Azure:
			return model.BackendAzure, false, nil
		default:
			return model.BackendGCS, false, nil
		}
	default:
		return "", false, ErrBackupRelConflict
	}
}

// Coordinator owns the snapshot/restore lifecycle and credential
// propagation for one app. It has no opinion on which backend is
// active beyond what ResolveBackend / the caller tells it.
type Coordinator struct {
	client   *ossvc.Client
	keystore *keystore.Manager
	topology *topology.Reader
	clock    Clock
	log      *zap.SugaredLogger

	// validate probes the object store before keystore writes. Defaults
	// to ValidateBackendCredentials; tests substitute a stub.
	validate func(ctx context.Context, creds model.SnapshotCredentials) error
}

// New builds a Coordinator against the already-constructed collaborators.
func New(client *ossvc.Client, ks *keystore.Manager, topo *topology.Reader, clock Clock, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{client: client, keystore: ks, topology: topo, clock: clock, log: log, validate: ValidateBackendCredentials}
}

// WithValidator overrides the credential probe, for tests and for
// substrates where the object store is only reachable from the workload.
func (c *Coordinator) WithValidator(fn func(ctx context.Context, creds model.SnapshotCredentials) error) *Coordinator {
	c.validate = fn
	return c
}

// Clock supplies the wall-clock time used to format snapshot ids, injected so the coordinator stays testable.
type Clock interface {
	NowUTC() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) NowUTC() time.Time { return f() }

// PrereqInput carries the facts the ordered prerequisite check needs.
// Callers gather these from the peer-cluster manager, the node lock, and
// the topology reader before invoking any backup action.
type PrereqInput struct {
	IsLeader            bool
	DeploymentActive    bool
	UpgradeInProgress   bool
	Backend             model.Backend
	BackendConflict     bool
	ClusterReachable    bool
	RepositoryCreated   bool
	IsPeerClusterBackup bool // fleet-inherited credentials bypass the repo-created check
	Health              model.HealthColor
	OperationInProgress bool
}

// CheckPrerequisites implements the ordered gate shared by every backup
// action: leader -> deployment ready -> not in upgrade -> not
// CONFLICT -> known backend -> reachable cluster -> repo created (or
// peer-cluster bypass) -> health acceptable -> no operation in progress.
// The first failing check is returned; later checks are never evaluated.
func CheckPrerequisites(in PrereqInput) error {
	if !in.IsLeader {
		return ErrNotLeader
	}
	if !in.DeploymentActive {
		return ErrDeploymentNotReady
	}
	if in.UpgradeInProgress {
		return ErrUpgradeInProgress
	}
	if in.BackendConflict {
		return ErrBackupRelConflict
	}
	if in.Backend == "" {
		return ErrBackendUnknown
	}
	if !in.ClusterReachable {
		return ErrClusterUnreachable
	}
	if !in.RepositoryCreated && !in.IsPeerClusterBackup {
		return ErrRepositoryNotCreated
	}
	switch in.Health {
	case model.HealthRed:
		return &HealthError{Reason: "cluster health is red"}
	case model.HealthYellowTemp:
		return &HealthError{Reason: "shards relocating"}
	case model.HealthUnknown, model.HealthUnreachable:
		return &HealthError{Reason: "unknown"}
	}
	if in.OperationInProgress {
		return ErrOperationInProgress
	}
	return nil
}

// repositorySettings builds the backend-specific body of
// PUT _snapshot/{repo}.
func repositorySettings(backend model.Backend, creds model.SnapshotCredentials) (map[string]interface{}, error) {
	switch backend {
	case model.BackendS3:
		if creds.S3 == nil {
			return nil, fmt.Errorf("backup: s3 backend selected but no s3 credentials supplied")
		}
		settings := map[string]interface{}{
			"bucket":            creds.S3.Bucket,
			"client":            "default",
			"path_style_access": true,
		}
		if creds.S3.Region != "" {
			settings["region"] = creds.S3.Region
		}
		if creds.S3.Endpoint != "" {
			settings["endpoint"] = creds.S3.Endpoint
		}
		if creds.S3.BasePath != "" {
			settings["base_path"] = creds.S3.BasePath
		}
		return map[string]interface{}{"type": "s3", "settings": settings}, nil
	case model.BackendAzure:
		if creds.Azure == nil {
			return nil, fmt.Errorf("backup: azure backend selected but no azure credentials supplied")
		}
		settings := map[string]interface{}{
			"client":    "default",
			"container": creds.Azure.Container,
		}
		if creds.Azure.BasePath != "" {
			settings["base_path"] = creds.Azure.BasePath
		}
		return map[string]interface{}{"type": "azure", "settings": settings}, nil
	case model.BackendGCS:
		return nil, ErrBackendNotImplemented
	default:
		return nil, fmt.Errorf("backup: unknown backend %q", backend)
	}
}

// RegisterRepository registers or updates the snapshot repository:
// PUT _snapshot/{repo} with backend-specific settings, retried with the
// fixed 3-attempt/3s repository-mutation policy.
func (c *Coordinator) RegisterRepository(ctx context.Context, repo string, backend model.Backend, creds model.SnapshotCredentials) error {
	body, err := repositorySettings(backend, creds)
	if err != nil {
		return err
	}
	return retry.Do(ctx, retry.RepositoryMutation, c.log, func() error {
		return c.client.Request(ctx, "PUT", "/_snapshot/"+repo, body, 1, 30*time.Second, nil, nil)
	})
}

// DeleteRepository removes the snapshot repository. A
// repository_missing_exception is treated as success.
func (c *Coordinator) DeleteRepository(ctx context.Context, repo string) error {
	err := retry.Do(ctx, retry.RepositoryMutation, c.log, func() error {
		return c.client.Request(ctx, "DELETE", "/_snapshot/"+repo, nil, 1, 30*time.Second, nil, nil)
	})
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "repository_missing_exception") {
		return nil
	}
	return err
}

// ClassifyError maps an OpenSearch error's root_cause.type and reason
// substring to a BackupServiceState. When errType is empty (no
// structured root_cause available), it falls back to scanning body for
// the IN_PROGRESS/PARTIAL/INCOMPATIBLE/FAILED keywords.
func ClassifyError(errType, reason, body string) model.BackupServiceState {
	switch errType {
	case "repository_exception":
		switch {
		case strings.Contains(reason, "repository type does not exist"):
			return model.BackupStateRepoNotCreated
		case strings.Contains(reason, "Could not determine repository generation"):
			return model.BackupStateRepoCreationErr
		default:
			return model.BackupStateRepoErrUnknown
		}
	case "repository_missing_exception":
		return model.BackupStateRepoMissing
	case "repository_verification_exception":
		if strings.Contains(reason, "is not accessible") {
			return model.BackupStateRepoUnreachable
		}
		return model.BackupStateRepoErrUnknown
	case "illegal_argument_exception":
		return model.BackupStateIllegalArgument
	case "snapshot_missing_exception":
		return model.BackupStateSnapshotMissing
	case "snapshot_restore_exception":
		if strings.Contains(reason, "open index with same name already exists") {
			return model.BackupStateSnapshotRestoreErrorIndexNotClosed
		}
		return model.BackupStateSnapshotRestoreError
	}

	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "in_progress"):
		return model.BackupStateSnapshotInProgress
	case strings.Contains(lower, "partial"):
		return model.BackupStateSnapshotPartiallyTaken
	case strings.Contains(lower, "incompatible"):
		return model.BackupStateSnapshotIncompatibility
	case strings.Contains(lower, "failed"):
		return model.BackupStateSnapshotFailedUnknown
	default:
		return model.BackupStateResponseFailedNetwork
	}
}
