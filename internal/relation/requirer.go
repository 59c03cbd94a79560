// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package relation

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
	"github.com/opensearch-operator/cluster-operator/internal/model"
)

// Requirer runs on every non-main app.
type Requirer struct {
	bus      kvbus.Bus
	app      model.App
	log      *zap.SugaredLogger
	lastHash map[kvbus.RelationID]string
}

// NewRequirer builds a Requirer for app.
func NewRequirer(bus kvbus.Bus, app model.App, log *zap.SugaredLogger) *Requirer {
	return &Requirer{bus: bus, app: app, log: log, lastHash: make(map[kvbus.RelationID]string)}
}

// Publish writes this app's census row and promotion-candidacy/
// main-registration flags to the relation.
func (r *Requirer) Publish(rel kvbus.RelationID, payload RequirerPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("relation: marshaling requirer payload: %w", err)
	}
	return r.bus.WriteRelationData(rel, map[string]string{dataKey: string(raw)})
}

// Classify reads the other side's databag and reports whether it is an
// ErrorData payload (propagate-to-status case) or a normal
// ProviderPayload.
func (r *Requirer) Classify(rel kvbus.RelationID) (payload *ProviderPayload, errData *ErrorData, err error) {
	data, err := r.bus.ReadRelationData(rel)
	if err != nil {
		return nil, nil, fmt.Errorf("relation: reading relation %d: %w", rel, err)
	}
	if raw, ok := data[errorDataKey]; ok && raw != "" {
		var e ErrorData
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, nil, fmt.Errorf("relation: decoding error data: %w", err)
		}
		return nil, &e, nil
	}
	raw, ok := data[dataKey]
	if !ok || raw == "" {
		return nil, nil, nil
	}
	var p ProviderPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, nil, fmt.Errorf("relation: decoding provider payload: %w", err)
	}
	return &p, nil, nil
}

// MergeOrchestrators merges the remote PeerClusterOrchestrators view into
// local. If the same App now occupies both the main and failover slots,
// it reports promoted=true so the caller can drop the old main relation.
func MergeOrchestrators(local *model.PeerClusterOrchestrators, remote model.PeerClusterOrchestrators) (promoted bool) {
	*local = remote
	if local.MainApp != nil && local.FailoverApp != nil && local.MainApp.Equal(*local.FailoverApp) {
		local.FailoverRelID = model.NoRelationID
		local.FailoverApp = nil
		return true
	}
	return false
}

// ShouldDemoteSelf implements: if the remote is a MAIN orchestrator and
// this app was itself MAIN before, demote self to FAILOVER_ORCHESTRATOR.
func ShouldDemoteSelf(remoteTyp model.DeploymentType, selfWasMain bool) bool {
	return remoteTyp == model.TypeMainOrchestrator && selfWasMain
}
