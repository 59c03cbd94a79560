// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package relation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/peercluster"
)

func testPCM() *peercluster.PCM {
	app := model.App{ModelUUID: "m1", Name: "other"}
	return peercluster.New(app, peercluster.ClockFunc(func() float64 { return 1000 }), nil)
}

func writeProviderPayload(t *testing.T, bus kvbus.Bus, rel kvbus.RelationID, payload ProviderPayload) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	hash, err := payload.Hash()
	require.NoError(t, err)
	require.NoError(t, bus.WriteRelationData(rel, map[string]string{dataKey: string(raw), relDataHashKey: hash}))
}

func TestOnProviderChangedMergesClusterNameAndSeedHosts(t *testing.T) {
	bus := kvbus.NewFake(false)
	rel := kvbus.RelationID(7)
	requirer := NewRequirer(bus, model.App{ModelUUID: "m1", Name: "other"}, nil)

	mainApp := model.App{ModelUUID: "m1", Name: "main"}
	writeProviderPayload(t, bus, rel, ProviderPayload{
		ClusterName: "logs",
		CMNodes: []model.Node{
			{Name: "main-0", IP: "10.0.0.1", Roles: []model.Role{model.RoleClusterManager}},
		},
		DeploymentDesc:           &model.DeploymentDescription{App: mainApp, Typ: model.TypeMainOrchestrator},
		SecurityIndexInitialised: true,
	})

	prev := &model.DeploymentDescription{
		App:               model.App{ModelUUID: "m1", Name: "other"},
		PendingDirectives: []model.Directive{model.DirectiveInheritClusterName},
	}
	prev.Status = model.Active()

	orchestrators := model.NewPeerClusterOrchestrators()
	slots := NewStatusSlots()

	result, err := requirer.OnProviderChanged(rel, testPCM(), prev, &orchestrators, slots)
	require.NoError(t, err)

	assert.Equal(t, "logs", result.Description.Config.ClusterName)
	assert.Equal(t, []string{"10.0.0.1"}, result.SeedHosts)
	assert.True(t, result.SecurityIndexInitialised)
	require.NotNil(t, orchestrators.MainApp)
	assert.Equal(t, "main", orchestrators.MainApp.Name)
	assert.Empty(t, slots.Blocking())
}

func TestOnProviderChangedShortCircuitsOnUnchangedHash(t *testing.T) {
	bus := kvbus.NewFake(false)
	rel := kvbus.RelationID(7)
	requirer := NewRequirer(bus, model.App{ModelUUID: "m1", Name: "other"}, nil)

	writeProviderPayload(t, bus, rel, ProviderPayload{ClusterName: "logs"})

	prev := &model.DeploymentDescription{App: model.App{ModelUUID: "m1", Name: "other"}}
	prev.Status = model.Active()
	orchestrators := model.NewPeerClusterOrchestrators()
	slots := NewStatusSlots()

	first, err := requirer.OnProviderChanged(rel, testPCM(), prev, &orchestrators, slots)
	require.NoError(t, err)
	assert.False(t, first.NoOp)

	second, err := requirer.OnProviderChanged(rel, testPCM(), prev, &orchestrators, slots)
	require.NoError(t, err)
	assert.True(t, second.NoOp)
}

func TestOnProviderChangedPropagatesErrorSeverity(t *testing.T) {
	bus := kvbus.NewFake(false)
	rel := kvbus.RelationID(7)
	requirer := NewRequirer(bus, model.App{ModelUUID: "m1", Name: "other"}, nil)
	provider := NewProvider(bus, model.App{ModelUUID: "m1", Name: "main"}, nil)

	require.NoError(t, provider.WriteError(rel, ErrorData{
		ClusterName:         "logs",
		ShouldSeverRelation: true,
		BlockedMessage:      "two main orchestrators related",
	}))

	orchestrators := model.NewPeerClusterOrchestrators()
	slots := NewStatusSlots()
	result, err := requirer.OnProviderChanged(rel, testPCM(), nil, &orchestrators, slots)
	require.NoError(t, err)

	assert.True(t, result.Severed)
	assert.False(t, result.Wait)
	require.Len(t, slots.Blocking(), 1)
	assert.Contains(t, slots.Blocking()[0], "two main orchestrators")
}

func TestOnProviderChangedDemotesSelfWhenBothMain(t *testing.T) {
	bus := kvbus.NewFake(false)
	rel := kvbus.RelationID(7)
	requirer := NewRequirer(bus, model.App{ModelUUID: "m1", Name: "other"}, nil)

	mainApp := model.App{ModelUUID: "m1", Name: "main"}
	writeProviderPayload(t, bus, rel, ProviderPayload{
		ClusterName:    "logs",
		DeploymentDesc: &model.DeploymentDescription{App: mainApp, Typ: model.TypeMainOrchestrator},
	})

	now := 500.0
	prev := &model.DeploymentDescription{
		App:           model.App{ModelUUID: "m1", Name: "other"},
		Typ:           model.TypeMainOrchestrator,
		PromotionTime: &now,
	}
	prev.Status = model.Active()

	orchestrators := model.NewPeerClusterOrchestrators()
	result, err := requirer.OnProviderChanged(rel, testPCM(), prev, &orchestrators, NewStatusSlots())
	require.NoError(t, err)
	assert.True(t, result.DemoteSelf)
}

func TestOnProviderChangedResolvesGrantedSecrets(t *testing.T) {
	bus := kvbus.NewFake(false)
	rel := kvbus.RelationID(7)
	requirer := NewRequirer(bus, model.App{ModelUUID: "m1", Name: "other"}, nil)

	pwRef, err := bus.PutSecret("main", map[string]string{"password": "hunter2"})
	require.NoError(t, err)
	require.NoError(t, bus.GrantSecret(pwRef, rel))

	writeProviderPayload(t, bus, rel, ProviderPayload{
		ClusterName: "logs",
		Credentials: Credentials{AdminUsername: "admin", AdminPassword: pwRef},
	})

	orchestrators := model.NewPeerClusterOrchestrators()
	result, err := requirer.OnProviderChanged(rel, testPCM(), nil, &orchestrators, NewStatusSlots())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", result.AdminPassword)
}

func TestPeerCredentialsResolvesS3Refs(t *testing.T) {
	bus := kvbus.NewFake(false)
	rel := kvbus.RelationID(7)
	requirer := NewRequirer(bus, model.App{ModelUUID: "m1", Name: "other"}, nil)

	accessRef, _ := bus.PutSecret("main", map[string]string{"value": "AKIA"})
	secretRef, _ := bus.PutSecret("main", map[string]string{"value": "shhh"})
	require.NoError(t, bus.GrantSecret(accessRef, rel))
	require.NoError(t, bus.GrantSecret(secretRef, rel))

	payload := &ProviderPayload{
		Credentials: Credentials{S3: &S3CredRefs{AccessKey: accessRef, SecretKey: secretRef}},
	}
	creds, err := requirer.PeerCredentials(rel, payload)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, model.BackendS3, creds.Backend)
	assert.Equal(t, "AKIA", creds.S3.AccessKey)
	assert.Equal(t, "shhh", creds.S3.SecretKey)
}

func TestStatusSlotsClearByExactKeyOnly(t *testing.T) {
	slots := NewStatusSlots()
	slots.SetProviderError(1, "rel 1 broken")
	slots.SetProviderError(12, "rel 12 broken")

	slots.ClearProviderError(1)
	remaining := slots.Blocking()
	require.Len(t, remaining, 1)
	assert.Equal(t, "rel 12 broken", remaining[0])
}

func TestCountMainDisconnectsIncludesSelf(t *testing.T) {
	bus := kvbus.NewFake(true)
	provider := NewProvider(bus, model.App{ModelUUID: "m1", Name: "failover"}, nil)

	rels := []kvbus.RelationID{1, 2}
	for i, rel := range rels {
		payload := RequirerPayload{MainOrchestratorRegistered: i == 0}
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		require.NoError(t, bus.WriteRelationData(rel, map[string]string{dataKey: string(raw)}))
	}

	disconnected, total, err := provider.CountMainDisconnects(rels, true)
	require.NoError(t, err)
	assert.Equal(t, 2, disconnected, "one requirer reports disconnect, plus self")
	assert.Equal(t, 2, total)
}

func TestEvaluateAndPromoteBroadcastsTrigger(t *testing.T) {
	bus := kvbus.NewFake(true)
	failoverApp := model.App{ModelUUID: "m1", Name: "failover"}
	provider := NewProvider(bus, failoverApp, nil)
	pcm := peercluster.New(failoverApp, peercluster.ClockFunc(func() float64 { return 2000 }), nil)

	rels := []kvbus.RelationID{1, 2, 3}
	for _, rel := range rels {
		payload := RequirerPayload{MainOrchestratorRegistered: false}
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		require.NoError(t, bus.WriteRelationData(rel, map[string]string{dataKey: string(raw)}))
	}

	desc := &model.DeploymentDescription{App: failoverApp, Typ: model.TypeFailoverOrchestrator}
	desc.Status = model.Active()
	orchestrators := model.NewPeerClusterOrchestrators()
	orchestrators.FailoverRelID = 1
	orchestrators.FailoverApp = &failoverApp

	promoted, didPromote, err := provider.EvaluateAndPromote(pcm, desc, &orchestrators, true, rels, ProviderPayload{ClusterName: "logs"})
	require.NoError(t, err)
	assert.True(t, didPromote)
	assert.Equal(t, model.TypeMainOrchestrator, promoted.Typ)
	require.NotNil(t, promoted.PromotionTime)
	assert.Equal(t, 2000.0, *promoted.PromotionTime)
	require.NotNil(t, orchestrators.MainApp)
	assert.Equal(t, "failover", orchestrators.MainApp.Name)
	assert.Nil(t, orchestrators.FailoverApp)

	data, err := bus.ReadRelationData(rels[0])
	require.NoError(t, err)
	assert.Equal(t, triggerMain, data[triggerKey])
	assert.NotEmpty(t, data[relDataHashKey])
}

func TestEvaluateAndPromoteRequiresMajorityAndTLS(t *testing.T) {
	bus := kvbus.NewFake(true)
	failoverApp := model.App{ModelUUID: "m1", Name: "failover"}
	provider := NewProvider(bus, failoverApp, nil)
	pcm := peercluster.New(failoverApp, peercluster.ClockFunc(func() float64 { return 2000 }), nil)

	rels := []kvbus.RelationID{1, 2, 3}
	for i, rel := range rels {
		payload := RequirerPayload{MainOrchestratorRegistered: i != 0}
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		require.NoError(t, bus.WriteRelationData(rel, map[string]string{dataKey: string(raw)}))
	}

	desc := &model.DeploymentDescription{App: failoverApp, Typ: model.TypeFailoverOrchestrator}
	desc.Status = model.Active()
	mainApp := model.App{ModelUUID: "m1", Name: "main"}
	orchestrators := model.NewPeerClusterOrchestrators()
	orchestrators.MainApp = &mainApp

	// Only 1 of 3 requirers reports disconnect: below the strict majority.
	_, didPromote, err := provider.EvaluateAndPromote(pcm, desc, &orchestrators, true, rels, ProviderPayload{})
	require.NoError(t, err)
	assert.False(t, didPromote)

	// TLS not configured blocks promotion regardless of the count.
	for _, rel := range rels {
		payload := RequirerPayload{MainOrchestratorRegistered: false}
		raw, _ := json.Marshal(payload)
		require.NoError(t, bus.WriteRelationData(rel, map[string]string{dataKey: string(raw)}))
	}
	_, didPromote, err = provider.EvaluateAndPromote(pcm, desc, &orchestrators, false, rels, ProviderPayload{})
	require.NoError(t, err)
	assert.False(t, didPromote)
}
