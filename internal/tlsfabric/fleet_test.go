// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package tlsfabric

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
	"github.com/opensearch-operator/cluster-operator/internal/ossvc"
)

func TestFleetRotationFlagsRoundTrip(t *testing.T) {
	bus := kvbus.NewFake(true)
	rel := kvbus.RelationID(1)
	rotation := NewFleetRotation(bus, "opensearch/0")

	require.NoError(t, rotation.MarkRenewing([]kvbus.RelationID{rel}))
	data, err := bus.ReadRelationData(rel)
	require.NoError(t, err)
	assert.Equal(t, "true", data["opensearch/0.tls_ca_renewing"])

	require.NoError(t, rotation.MarkRenewed([]kvbus.RelationID{rel}))
	data, err = bus.ReadRelationData(rel)
	require.NoError(t, err)
	assert.Equal(t, "true", data["opensearch/0.tls_ca_renewed"])
	assert.Equal(t, "false", data["opensearch/0.tls_ca_renewing"])

	require.NoError(t, rotation.ClearFlags([]kvbus.RelationID{rel}))
	data, err = bus.ReadRelationData(rel)
	require.NoError(t, err)
	_, renewing := data["opensearch/0.tls_ca_renewing"]
	_, renewed := data["opensearch/0.tls_ca_renewed"]
	assert.False(t, renewing)
	assert.False(t, renewed)
}

func TestFleetRotationPreservesUnrelatedKeys(t *testing.T) {
	bus := kvbus.NewFake(true)
	rel := kvbus.RelationID(1)
	require.NoError(t, bus.WriteRelationData(rel, map[string]string{"data": "payload"}))

	rotation := NewFleetRotation(bus, "opensearch/0")
	require.NoError(t, rotation.MarkRenewing([]kvbus.RelationID{rel}))

	data, err := bus.ReadRelationData(rel)
	require.NoError(t, err)
	assert.Equal(t, "payload", data["data"])
}

func TestFleetFinishedRequiresEveryUnit(t *testing.T) {
	bus := kvbus.NewFake(true)
	rel := kvbus.RelationID(1)
	bus.SetRelatedUnits(rel, []string{"opensearch/0", "opensearch/1"})

	rotation0 := NewFleetRotation(bus, "opensearch/0")
	rotation1 := NewFleetRotation(bus, "opensearch/1")
	rels := []kvbus.RelationID{rel}

	require.NoError(t, rotation0.MarkRenewed(rels))
	require.NoError(t, rotation0.mergeFlags(rels, map[string]string{"opensearch/0.tls_configured": "true"}))

	finished, err := rotation0.FleetFinished(rels)
	require.NoError(t, err)
	assert.False(t, finished, "unit 1 has not renewed yet")

	require.NoError(t, rotation1.MarkRenewed(rels))
	require.NoError(t, rotation1.mergeFlags(rels, map[string]string{"opensearch/1.tls_configured": "true"}))

	finished, err = rotation0.FleetFinished(rels)
	require.NoError(t, err)
	assert.True(t, finished)
}

func TestFleetFinishedBlocksWhileAnyUnitRenewing(t *testing.T) {
	bus := kvbus.NewFake(true)
	rel := kvbus.RelationID(1)
	bus.SetRelatedUnits(rel, []string{"opensearch/0"})

	rotation := NewFleetRotation(bus, "opensearch/0")
	rels := []kvbus.RelationID{rel}
	require.NoError(t, rotation.MarkRenewing(rels))

	finished, err := rotation.FleetFinished(rels)
	require.NoError(t, err)
	assert.False(t, finished)
}

func TestReloadCertsFallsBackToRestartOnFailure(t *testing.T) {
	calls := map[string]int{}
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls[r.URL.Path]++
		if strings.Contains(r.URL.Path, "/transport/") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"message":"updated"}`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "https://")
	client := ossvc.New(host, ossvc.BasicAuth{}, srv.Client().Transport.(*http.Transport).TLSClientConfig, nil)

	result := ReloadCerts(context.Background(), client, []ReloadLayer{ReloadHTTP, ReloadTransport}, nil)
	assert.Equal(t, []ReloadLayer{ReloadHTTP}, result.Reloaded)
	assert.True(t, result.RestartRequired)
	assert.Equal(t, 1, calls["/_plugins/_security/api/ssl/http/reloadcerts"])
	assert.Equal(t, 1, calls["/_plugins/_security/api/ssl/transport/reloadcerts"])
}
