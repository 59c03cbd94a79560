// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package lifecycle

import (
	"context"
	"time"

	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/plugins"
)

// StartInput carries the facts HandleStart needs beyond the event and
// this unit's persisted state.
type StartInput struct {
	State             UnitState
	CanStart          CanStartInput
	IsFirstDataUnit   bool
	HasClusterManagerOnlyRoles bool
	FleetHasDataNode  bool
	IsLeader          bool
	SecurityIndexInitialised bool
	HasDataRole       bool
	NodeConfigWriter  func(ctx context.Context) error

	// SecurityBootstrap invokes the security-admin tool with the admin
	// keystore/truststore to seed the security index. Called at most once
	// per cluster lifetime, from the leader data unit.
	SecurityBootstrap func(ctx context.Context) error

	// ReadinessProbe reports whether the local node answers HTTP 200.
	// Nil falls back to the runtime's IsUp.
	ReadinessProbe func(ctx context.Context) (bool, error)

	// DesiredPlugins/InstalledPlugins feed the post-start plugin-lifecycle
	// fan-out. Nil DesiredPlugins skips it entirely.
	DesiredPlugins   []model.PluginConfig
	InstalledPlugins []model.PluginConfig
}

// HandleStart runs the start sequence. It never blocks: a step that cannot
// complete yet returns Defer, and the caller is expected to re-invoke
// HandleStart for the same event on its next tick.
func (c *Controller) HandleStart(ctx context.Context, ev StartEvent, in StartInput) (Outcome, StateDelta, error) {
	up, err := c.runtime.IsUp(ctx)
	if err != nil {
		return Defer("checking service status failed"), StateDelta{}, nil
	}
	if up {
		return c.postStartCleanup(ctx, in)
	}

	// Machine-reboot fast path: this unit was already a
	// started cluster-manager and the process just isn't running locally.
	if in.State.Started && in.State.HoldsClusterManagerRole {
		if err := c.runtime.RestartInPlace(ctx); err != nil {
			return Defer("in-place restart failed"), StateDelta{}, nil
		}
		return c.postStartInit(ctx, ev, in)
	}

	if !in.CanStart.Directive.CanStart() {
		return Defer("pcm directive blocks start"), StateDelta{}, nil
	}
	if !in.CanStart.AdminUserConfigured {
		return Defer("admin user not configured"), StateDelta{}, nil
	}

	if in.HasClusterManagerOnlyRoles && !in.FleetHasDataNode {
		return Defer("waiting for data node"), StateDelta{}, nil
	}

	acquired := ev.IgnoreLock || in.IsFirstDataUnit
	if !acquired {
		ok, err := c.lock.Acquire()
		if err != nil {
			return Defer("acquiring node lock failed"), StateDelta{}, nil
		}
		if !ok {
			return Defer("node lock held by another unit"), StateDelta{}, nil
		}
		acquired = true
	}

	if in.NodeConfigWriter != nil {
		if err := in.NodeConfigWriter(ctx); err != nil {
			c.releaseLock(acquired)
			return Defer("writing node config failed"), StateDelta{}, nil
		}
	}

	if err := c.runtime.StartService(ctx); err != nil {
		c.releaseLock(acquired)
		return Defer("starting service failed"), StateDelta{}, nil
	}

	if !c.pollReadiness(ctx, in) {
		c.releaseLock(acquired)
		return Defer("service did not come up"), StateDelta{}, nil
	}

	return c.postStartInit(ctx, ev, in)
}

// postStartInit runs post-start initialization: security index bootstrap,
// bootstrap-conf flush, exclusion cleanup, allocation re-enable, and
// marking started. A cluster that isn't green yet keeps the lock and
// defers (per the note after step 10) instead of releasing it.
func (c *Controller) postStartInit(ctx context.Context, ev StartEvent, in StartInput) (Outcome, StateDelta, error) {
	if c.topology != nil {
		health, err := c.topology.Health(ctx)
		if err == nil && !health.Acceptable() {
			return Defer("cluster not yet green after start"), StateDelta{}, nil
		}
	}

	delta := StateDelta{}
	started := true
	delta.Started = &started

	if in.IsLeader && !in.SecurityIndexInitialised && in.HasDataRole {
		if in.SecurityBootstrap != nil {
			if err := in.SecurityBootstrap(ctx); err != nil {
				return Defer("security index bootstrap failed"), StateDelta{}, nil
			}
		}
		initialised := true
		delta.SecurityIndexInitialised = &initialised
	}

	contributed := false
	delta.ContributedBootstrapConf = &contributed

	if in.State.VotingExcluded || in.State.AllocationExcluded {
		if c.client != nil {
			if err := c.clearExclusions(ctx); err != nil {
				return Defer("clearing voting/allocation exclusions failed"), StateDelta{}, nil
			}
		}
	}
	allocExcluded := false
	delta.AllocationExcluded = &allocExcluded
	votingExcluded := false
	delta.VotingExcluded = &votingExcluded

	if ev.AfterUpgrade && c.client != nil {
		if err := c.resetAllocationEnable(ctx); err != nil {
			return Defer("resetting allocation.enable after upgrade failed"), StateDelta{}, nil
		}
	}

	c.releaseLock(true)

	outcome := Completed()
	if in.DesiredPlugins != nil {
		outcome.PluginActions = plugins.Reconcile(in.DesiredPlugins, in.InstalledPlugins)
		if c.log != nil && len(outcome.PluginActions) > 0 {
			c.log.Infow("plugin reconciliation produced actions", "count", len(outcome.PluginActions))
		}
	}
	return outcome, delta, nil
}

// clearExclusions removes this node from the cluster's voting-config and
// shard-allocation exclusion lists.
func (c *Controller) clearExclusions(ctx context.Context) error {
	if err := c.client.Request(ctx, "POST", "/_cluster/voting_config_exclusions?wait_for_removal=false", nil, 1, 10*time.Second, nil, nil); err != nil {
		return err
	}
	body := map[string]interface{}{
		"transient": map[string]interface{}{
			"cluster.routing.allocation.exclude._name": "",
		},
	}
	return c.client.Request(ctx, "PUT", "/_cluster/settings", body, 1, 10*time.Second, nil, nil)
}

// resetAllocationEnable restores cluster.routing.allocation.enable to its
// default (all) once an upgrade's start completes.
func (c *Controller) resetAllocationEnable(ctx context.Context) error {
	body := map[string]interface{}{
		"transient": map[string]interface{}{
			"cluster.routing.allocation.enable": "all",
		},
	}
	return c.client.Request(ctx, "PUT", "/_cluster/settings", body, 1, 10*time.Second, nil, nil)
}

// postStartCleanup handles the already-running case: the service is up,
// so this call only clears transient status and removes this unit's
// bootstrap-conf contribution if any.
func (c *Controller) postStartCleanup(ctx context.Context, in StartInput) (Outcome, StateDelta, error) {
	delta := StateDelta{}
	if in.State.ContributedBootstrapConf {
		contributed := false
		delta.ContributedBootstrapConf = &contributed
	}
	return Completed(), delta, nil
}

// pollReadiness waits for the freshly started process to answer, bounded
// so a node that never comes up falls back to a deferral instead of
// hanging the tick.
func (c *Controller) pollReadiness(ctx context.Context, in StartInput) bool {
	probe := in.ReadinessProbe
	if probe == nil {
		probe = c.runtime.IsUp
	}
	for attempt := 0; attempt < readinessAttempts; attempt++ {
		up, err := probe(ctx)
		if err == nil && up {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(readinessInterval):
		}
	}
	return false
}

const (
	readinessAttempts = 6
	readinessInterval = 5 * time.Second
)

func (c *Controller) releaseLock(acquired bool) {
	if acquired && c.lock != nil {
		_ = c.lock.Release()
	}
}

// CanStart is a package-level convenience wrapping model.DeploymentDescription.CanStart
// for callers that only have the description, not a full CanStartInput.
func CanStart(desc *model.DeploymentDescription) bool {
	return desc.CanStart()
}
