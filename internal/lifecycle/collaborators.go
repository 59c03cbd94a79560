// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/opensearch-operator/cluster-operator/internal/keystore"
	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/nodelock"
	"github.com/opensearch-operator/cluster-operator/internal/ossvc"
	"github.com/opensearch-operator/cluster-operator/internal/topology"
)

// ServiceRuntime is the local machine/workload surface the controller
// drives: the actual process supervisor (systemd unit, snap service,
// whatever substrate the unit runs on). It is an interface so tests can
// fake a machine without a real OpenSearch process.
type ServiceRuntime interface {
	IsUp(ctx context.Context) (bool, error)
	StartService(ctx context.Context) error
	StopService(ctx context.Context) error
	RestartInPlace(ctx context.Context) error
	UpgradeWorkload(ctx context.Context) error
}

// Controller drives one unit's lifecycle. It holds the
// collaborators every step needs; it carries no persistent state of its
// own beyond them -- state that must survive a defer/retry (started,
// security_index_initialised, voting exclusions) lives in the caller's
// unit-state store and is passed in per call.
type Controller struct {
	runtime  ServiceRuntime
	lock     *nodelock.Lock
	topology *topology.Reader
	keystore *keystore.Manager
	client   *ossvc.Client
	log      *zap.SugaredLogger
}

// New builds a Controller from its collaborators.
func New(runtime ServiceRuntime, lock *nodelock.Lock, topo *topology.Reader, ks *keystore.Manager, client *ossvc.Client, log *zap.SugaredLogger) *Controller {
	return &Controller{runtime: runtime, lock: lock, topology: topo, keystore: ks, client: client, log: log}
}

// UnitState is the subset of this unit's persisted status the lifecycle
// steps read and mutate. The caller owns the backing store; the controller only
// describes the desired mutations through the returned StateDelta.
type UnitState struct {
	Started                  bool
	HoldsClusterManagerRole  bool
	SecurityIndexInitialised bool
	ContributedBootstrapConf bool
	AllocationExcluded       bool
	VotingExcluded           bool
}

// StateDelta describes the UnitState fields a step wants changed. Only
// non-nil fields should be applied by the caller.
type StateDelta struct {
	Started                  *bool
	SecurityIndexInitialised *bool
	ContributedBootstrapConf *bool
	AllocationExcluded       *bool
	VotingExcluded           *bool
}

// CanStartInput carries everything CanServiceStart's gate needs
// beyond the unit's own runtime state.
type CanStartInput struct {
	MemoryThresholdMet       bool
	Directive                *model.DeploymentDescription
	AdminUserConfigured      bool
	SecurityIndexInitialised bool
	IsLeader                 bool
	IsMainOrchestratorSingle bool
	IsGeneratedRolesUnit     bool
	HasDataRole              bool
	Health                   model.HealthColor
	LeaderUnreachable        bool
}
