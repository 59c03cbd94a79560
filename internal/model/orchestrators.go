// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package model

// NoRelationID is the sentinel value for an unset relation id.
const NoRelationID = -1

// PeerClusterOrchestrators is the per-app registry of which apps are
// currently main/failover orchestrator for this app's relation.
type PeerClusterOrchestrators struct {
	MainRelID     int  `json:"main_rel_id"`
	MainApp       *App `json:"main_app,omitempty"`
	FailoverRelID int  `json:"failover_rel_id"`
	FailoverApp   *App `json:"failover_app,omitempty"`
}

// NewPeerClusterOrchestrators returns an empty registry with both slots
// unset.
func NewPeerClusterOrchestrators() PeerClusterOrchestrators {
	return PeerClusterOrchestrators{MainRelID: NoRelationID, FailoverRelID: NoRelationID}
}

// PromoteFailover atomically copies the failover slot into the main slot
// and clears the failover slot.
func (o *PeerClusterOrchestrators) PromoteFailover() {
	o.MainRelID = o.FailoverRelID
	o.MainApp = o.FailoverApp
	o.FailoverRelID = NoRelationID
	o.FailoverApp = nil
}

// Valid reports whether a given app is not simultaneously both main and
// failover.
func (o *PeerClusterOrchestrators) Valid() bool {
	if o.MainApp == nil || o.FailoverApp == nil {
		return true
	}
	return !o.MainApp.Equal(*o.FailoverApp)
}

// PeerClusterApp is the fleet-wide census row for one app.
type PeerClusterApp struct {
	App          App    `json:"app"`
	PlannedUnits int    `json:"planned_units"`
	Units        []string `json:"units"`
	Roles        []Role `json:"roles"`
}
