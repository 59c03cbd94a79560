// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/nodelock"
	"github.com/opensearch-operator/cluster-operator/internal/plugins"
)

type fakeRuntime struct {
	up             bool
	startErr       error
	stopErr        error
	restartInPlace int
	upgraded       int
}

func (f *fakeRuntime) IsUp(ctx context.Context) (bool, error) { return f.up, nil }
func (f *fakeRuntime) StartService(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.up = true
	return nil
}
func (f *fakeRuntime) StopService(ctx context.Context) error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.up = false
	return nil
}
func (f *fakeRuntime) RestartInPlace(ctx context.Context) error {
	f.restartInPlace++
	f.up = true
	return nil
}
func (f *fakeRuntime) UpgradeWorkload(ctx context.Context) error {
	f.upgraded++
	return nil
}

func newTestController(rt *fakeRuntime) *Controller {
	bus := kvbus.NewFake(true)
	lock := nodelock.New(bus, kvbus.RelationID(1), "opensearch/0")
	return New(rt, lock, nil, nil, nil, nil)
}

func TestHandleStartAlreadyUpCleansTransientState(t *testing.T) {
	c := newTestController(&fakeRuntime{up: true})
	in := StartInput{State: UnitState{ContributedBootstrapConf: true}}

	outcome, delta, err := c.HandleStart(context.Background(), StartEvent{}, in)

	require.NoError(t, err)
	assert.True(t, outcome.Done)
	require.NotNil(t, delta.ContributedBootstrapConf)
	assert.False(t, *delta.ContributedBootstrapConf)
}

func TestHandleStartMachineRebootFastPath(t *testing.T) {
	rt := &fakeRuntime{up: false}
	c := newTestController(rt)
	in := StartInput{State: UnitState{Started: true, HoldsClusterManagerRole: true}}

	outcome, delta, err := c.HandleStart(context.Background(), StartEvent{}, in)

	require.NoError(t, err)
	assert.True(t, outcome.Done)
	assert.Equal(t, 1, rt.restartInPlace)
	require.NotNil(t, delta.Started)
	assert.True(t, *delta.Started)
}

func TestHandleStartDefersWhenDirectiveBlocks(t *testing.T) {
	c := newTestController(&fakeRuntime{up: false})
	desc := &model.DeploymentDescription{PendingDirectives: []model.Directive{model.DirectiveReconfigure}}
	in := StartInput{CanStart: CanStartInput{Directive: desc}}

	outcome, _, err := c.HandleStart(context.Background(), StartEvent{}, in)

	require.NoError(t, err)
	assert.False(t, outcome.Done)
	assert.Contains(t, outcome.DeferReason, "directive")
}

func TestHandleStartDefersWaitingForDataNode(t *testing.T) {
	c := newTestController(&fakeRuntime{up: false})
	in := StartInput{
		CanStart:                   CanStartInput{Directive: &model.DeploymentDescription{}, AdminUserConfigured: true},
		HasClusterManagerOnlyRoles: true,
		FleetHasDataNode:           false,
	}

	outcome, _, err := c.HandleStart(context.Background(), StartEvent{}, in)

	require.NoError(t, err)
	assert.False(t, outcome.Done)
	assert.Contains(t, outcome.DeferReason, "data node")
}

func TestHandleStartFirstDataUnitBypassesLock(t *testing.T) {
	bus := kvbus.NewFake(true)
	rt := &fakeRuntime{up: false}
	c := New(rt, nodelock.New(bus, kvbus.RelationID(1), "opensearch/0"), nil, nil, nil, nil)
	in := StartInput{
		CanStart:        CanStartInput{Directive: &model.DeploymentDescription{}, AdminUserConfigured: true},
		IsFirstDataUnit: true,
	}

	// Hold the lock with a different unit on the same bus first; the
	// first-data-unit path must still succeed because it never calls
	// Acquire.
	other := nodelock.New(bus, kvbus.RelationID(1), "opensearch/9")
	acquired, err := other.Acquire()
	require.NoError(t, err)
	require.True(t, acquired)

	outcome, _, err := c.HandleStart(context.Background(), StartEvent{}, in)
	require.NoError(t, err)
	assert.True(t, outcome.Done)
}

func TestHandleStartRunsPluginReconciliation(t *testing.T) {
	c := newTestController(&fakeRuntime{up: false})
	in := StartInput{
		CanStart:       CanStartInput{Directive: &model.DeploymentDescription{}, AdminUserConfigured: true},
		IsFirstDataUnit: true,
		DesiredPlugins:  []model.PluginConfig{{Name: "repository-s3", Enabled: true}},
	}

	outcome, _, err := c.HandleStart(context.Background(), StartEvent{}, in)

	require.NoError(t, err)
	assert.True(t, outcome.Done)
	require.NotEmpty(t, outcome.PluginActions)
	assert.True(t, plugins.RestartRequired(outcome.PluginActions))
}

func TestHandleStartReleasesLockOnStartFailure(t *testing.T) {
	bus := kvbus.NewFake(true)
	rt := &fakeRuntime{up: false, startErr: errors.New("boom")}
	c := New(rt, nodelock.New(bus, kvbus.RelationID(1), "opensearch/0"), nil, nil, nil, nil)
	in := StartInput{
		CanStart: CanStartInput{Directive: &model.DeploymentDescription{}, AdminUserConfigured: true},
	}

	outcome, _, err := c.HandleStart(context.Background(), StartEvent{}, in)
	require.NoError(t, err)
	assert.False(t, outcome.Done)

	// The failed attempt must have released the lock it acquired; a
	// different unit must now be able to acquire it.
	lockB := nodelock.New(bus, kvbus.RelationID(1), "opensearch/1")
	ok, err := lockB.Acquire()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandleStopWaitsForShardRelocation(t *testing.T) {
	rt := &fakeRuntime{up: true}
	c := newTestController(rt)
	in := StopInput{
		OtherNodesOnline: true,
		PrimaryShardsOffThisNode: func(ctx context.Context) (bool, error) {
			return false, nil
		},
	}

	outcome, _, err := c.HandleStop(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, outcome.Done)
	assert.Contains(t, outcome.DeferReason, "relocate")
}

func TestHandleStopExcludesVotingNotAllocationOnRestart(t *testing.T) {
	rt := &fakeRuntime{up: true}
	c := newTestController(rt)
	votingCalled, allocationCalled := false, false
	in := StopInput{
		OtherNodesOnline: true,
		ForRestart:       true,
		ExcludeVoting: func(ctx context.Context, unit string) error {
			votingCalled = true
			return nil
		},
		ExcludeAllocation: func(ctx context.Context, unit string) error {
			allocationCalled = true
			return nil
		},
	}

	outcome, delta, err := c.HandleStop(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, outcome.Done)
	assert.True(t, votingCalled)
	assert.False(t, allocationCalled)
	require.NotNil(t, delta.Started)
	assert.False(t, *delta.Started)
}

func TestHandleRestartEmitsStartEvent(t *testing.T) {
	rt := &fakeRuntime{up: true}
	c := newTestController(rt)

	outcome, _, result, err := c.HandleRestart(context.Background(), StopInput{})
	require.NoError(t, err)
	assert.True(t, outcome.Done)
	_, ok := result.NextEvent.(StartEvent)
	assert.True(t, ok)
}

func TestHandleUpgradeSetsPrimariesOnlyAndEmitsAfterUpgradeStart(t *testing.T) {
	rt := &fakeRuntime{up: true}
	c := newTestController(rt)
	primariesOnly := false

	in := UpgradeInput{
		SetAllocationPrimariesOnly: func(ctx context.Context) error {
			primariesOnly = true
			return nil
		},
	}

	outcome, _, result, err := c.HandleUpgrade(context.Background(), UpgradeEvent{}, in)
	require.NoError(t, err)
	assert.True(t, outcome.Done)
	assert.True(t, primariesOnly)
	assert.Equal(t, 1, rt.upgraded)

	started, ok := result.NextEvent.(StartEvent)
	require.True(t, ok)
	assert.True(t, started.AfterUpgrade)
}

func TestHandleUpgradeIgnoreLockBypassesAcquire(t *testing.T) {
	rt := &fakeRuntime{up: true}
	bus := kvbus.NewFake(true)
	c := New(rt, nodelock.New(bus, kvbus.RelationID(1), "opensearch/0"), nil, nil, nil, nil)

	// Exhaust the lock on a different holder; ignore_lock must still work.
	other := nodelock.New(bus, kvbus.RelationID(1), "opensearch/9")
	held, err := other.Acquire()
	require.NoError(t, err)
	require.True(t, held)

	outcome, _, _, err := c.HandleUpgrade(context.Background(), UpgradeEvent{IgnoreLock: true}, UpgradeInput{})
	require.NoError(t, err)
	assert.True(t, outcome.Done)
}

func TestCanServiceStartGateOrdersChecksAndFailsFast(t *testing.T) {
	outcome := CanServiceStart(CanStartInput{MemoryThresholdMet: false})
	assert.False(t, outcome.Done)
	assert.Contains(t, outcome.DeferReason, "memory")

	outcome = CanServiceStart(CanStartInput{
		MemoryThresholdMet: true,
		Directive:          &model.DeploymentDescription{PendingDirectives: []model.Directive{model.DirectiveWaitForPeerClusterRelation}},
	})
	assert.False(t, outcome.Done)
	assert.Contains(t, outcome.DeferReason, "directive")

	outcome = CanServiceStart(CanStartInput{
		MemoryThresholdMet: true,
		Directive:          &model.DeploymentDescription{},
		AdminUserConfigured: true,
		SecurityIndexInitialised: true,
		Health:              model.HealthYellowTemp,
	})
	assert.False(t, outcome.Done)
	assert.Contains(t, outcome.DeferReason, "yellow_temp")

	outcome = CanServiceStart(CanStartInput{
		MemoryThresholdMet:       true,
		Directive:                &model.DeploymentDescription{},
		AdminUserConfigured:      true,
		SecurityIndexInitialised: true,
		Health:                   model.HealthGreen,
	})
	assert.True(t, outcome.Done)
}

func TestCanStartHelperWrapsDescription(t *testing.T) {
	desc := &model.DeploymentDescription{}
	assert.True(t, CanStart(desc))

	desc.PendingDirectives = []model.Directive{model.DirectiveValidateClusterName}
	assert.False(t, CanStart(desc))
}
