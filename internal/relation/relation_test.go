// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
	"github.com/opensearch-operator/cluster-operator/internal/model"
)

func TestProviderElectsFirstCandidateFailover(t *testing.T) {
	bus := kvbus.NewFake(true)
	mainApp := model.App{ModelUUID: "m1", Name: "main"}
	provider := NewProvider(bus, mainApp, nil)
	orchestrators := model.NewPeerClusterOrchestrators()

	failoverApp := model.App{ModelUUID: "m1", Name: "failover"}
	req := RequirerPayload{
		App:                             model.PeerClusterApp{App: failoverApp},
		IsCandidateFailoverOrchestrator: true,
	}

	elected := provider.OnRequirerChanged(kvbus.RelationID(1), req, &orchestrators)
	assert.True(t, elected)
	require.NotNil(t, orchestrators.FailoverApp)
	assert.Equal(t, "failover", orchestrators.FailoverApp.Name)
}

func TestProviderDoesNotReElectOnceFailoverSet(t *testing.T) {
	bus := kvbus.NewFake(true)
	mainApp := model.App{ModelUUID: "m1", Name: "main"}
	provider := NewProvider(bus, mainApp, nil)
	orchestrators := model.NewPeerClusterOrchestrators()
	orchestrators.FailoverRelID = 1
	firstApp := model.App{ModelUUID: "m1", Name: "failover"}
	orchestrators.FailoverApp = &firstApp

	otherApp := model.App{ModelUUID: "m1", Name: "other"}
	req := RequirerPayload{App: model.PeerClusterApp{App: otherApp}, IsCandidateFailoverOrchestrator: true}

	elected := provider.OnRequirerChanged(kvbus.RelationID(2), req, &orchestrators)
	assert.False(t, elected)
	assert.Equal(t, "failover", orchestrators.FailoverApp.Name)
}

func TestProviderDepartedClearsFailoverSlot(t *testing.T) {
	bus := kvbus.NewFake(true)
	mainApp := model.App{ModelUUID: "m1", Name: "main"}
	provider := NewProvider(bus, mainApp, nil)
	orchestrators := model.NewPeerClusterOrchestrators()
	orchestrators.FailoverRelID = 1
	failoverApp := model.App{ModelUUID: "m1", Name: "failover"}
	orchestrators.FailoverApp = &failoverApp

	provider.OnRequirerDeparted(kvbus.RelationID(1), &orchestrators)
	assert.Equal(t, model.NoRelationID, orchestrators.FailoverRelID)
	assert.Nil(t, orchestrators.FailoverApp)
}

func TestRefreshRelationDataGrantsAndWrites(t *testing.T) {
	bus := kvbus.NewFake(true)
	app := model.App{ModelUUID: "m1", Name: "main"}
	provider := NewProvider(bus, app, nil)

	adminPwRef, err := bus.PutSecret("main", map[string]string{"password": "x"})
	require.NoError(t, err)

	payload := ProviderPayload{
		ClusterName: "logs",
		Credentials: Credentials{
			AdminUsername:      "admin",
			AdminPassword:       adminPwRef,
			AdminPasswordHash:   adminPwRef,
			KibanaPassword:      adminPwRef,
			KibanaPasswordHash:  adminPwRef,
		},
	}

	rel := kvbus.RelationID(5)
	require.NoError(t, provider.RefreshRelationData(payload, []kvbus.RelationID{rel}))

	_, err = bus.GetSecret(adminPwRef, rel)
	require.NoError(t, err, "embedded secret must be granted to the relation")

	data, err := bus.ReadRelationData(rel)
	require.NoError(t, err)
	assert.NotEmpty(t, data[dataKey])
	assert.NotEmpty(t, data[relDataHashKey])
}

func TestRequirerClassifiesErrorData(t *testing.T) {
	bus := kvbus.NewFake(false)
	app := model.App{ModelUUID: "m1", Name: "other"}
	requirer := NewRequirer(bus, app, nil)
	mainApp := model.App{ModelUUID: "m1", Name: "main"}
	provider := NewProvider(bus, mainApp, nil)

	rel := kvbus.RelationID(3)
	require.NoError(t, provider.WriteError(rel, ErrorData{ClusterName: "logs", ShouldWait: true, BlockedMessage: "cluster unreachable"}))

	payload, errData, err := requirer.Classify(rel)
	require.NoError(t, err)
	assert.Nil(t, payload)
	require.NotNil(t, errData)
	assert.True(t, errData.ShouldWait)
}

func TestMergeOrchestratorsDetectsPromotion(t *testing.T) {
	local := model.NewPeerClusterOrchestrators()
	sameApp := model.App{ModelUUID: "m1", Name: "failover"}
	remote := model.PeerClusterOrchestrators{MainRelID: 2, MainApp: &sameApp, FailoverRelID: 2, FailoverApp: &sameApp}

	promoted := MergeOrchestrators(&local, remote)
	assert.True(t, promoted)
	assert.Nil(t, local.FailoverApp)
	assert.Equal(t, model.NoRelationID, local.FailoverRelID)
}

func TestShouldDemoteSelf(t *testing.T) {
	assert.True(t, ShouldDemoteSelf(model.TypeMainOrchestrator, true))
	assert.False(t, ShouldDemoteSelf(model.TypeMainOrchestrator, false))
	assert.False(t, ShouldDemoteSelf(model.TypeOther, true))
}
