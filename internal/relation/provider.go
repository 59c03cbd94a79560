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

const (
	dataKey        = "data"
	relDataHashKey = "rel_data_hash"
	errorDataKey   = "error_data"
)

// Provider runs on MAIN and FAILOVER apps.
type Provider struct {
	bus    kvbus.Bus
	app    model.App
	log    *zap.SugaredLogger
	census map[kvbus.RelationID]model.PeerClusterApp
}

// NewProvider builds a Provider for app.
func NewProvider(bus kvbus.Bus, app model.App, log *zap.SugaredLogger) *Provider {
	return &Provider{bus: bus, app: app, log: log, census: make(map[kvbus.RelationID]model.PeerClusterApp)}
}

// OnRequirerChanged appends the requirer's PeerClusterApp to the fleet
// census and, if it is a candidate failover orchestrator and no failover
// is currently registered, elects it.
func (p *Provider) OnRequirerChanged(rel kvbus.RelationID, req RequirerPayload, orchestrators *model.PeerClusterOrchestrators) (elected bool) {
	p.census[rel] = req.App

	if req.IsCandidateFailoverOrchestrator && orchestrators.FailoverRelID == model.NoRelationID {
		orchestrators.FailoverRelID = int(rel)
		app := req.App.App
		orchestrators.FailoverApp = &app
		return true
	}
	return false
}

// OnRequirerDeparted drops an app from the census once it has zero
// related units; if it was the failover, clears the failover slot.
func (p *Provider) OnRequirerDeparted(rel kvbus.RelationID, orchestrators *model.PeerClusterOrchestrators) {
	delete(p.census, rel)
	if orchestrators.FailoverRelID == int(rel) {
		orchestrators.FailoverRelID = model.NoRelationID
		orchestrators.FailoverApp = nil
	}
}

// RefreshRelationData computes the provider payload, grants every
// embedded secret to every related relation, and writes payload +
// rel_data_hash to each. Callers supply the already up-to-date
// ProviderPayload and the list of currently related relations.
func (p *Provider) RefreshRelationData(payload ProviderPayload, relations []kvbus.RelationID) error {
	for _, ref := range payload.secretRefs() {
		for _, rel := range relations {
			if err := p.bus.GrantSecret(ref, rel); err != nil {
				return fmt.Errorf("relation: granting secret to relation %d: %w", rel, err)
			}
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("relation: marshaling provider payload: %w", err)
	}
	hash, err := payload.Hash()
	if err != nil {
		return fmt.Errorf("relation: hashing provider payload: %w", err)
	}

	for _, rel := range relations {
		if err := p.bus.WriteRelationData(rel, map[string]string{dataKey: string(raw), relDataHashKey: hash}); err != nil {
			return fmt.Errorf("relation: writing relation %d: %w", rel, err)
		}
	}
	return nil
}

// WriteError writes an ErrorData payload to relation in place of the
// normal data slot, used when a failure (e.g. cluster not reachable)
// prevents computing a valid ProviderPayload.
func (p *Provider) WriteError(rel kvbus.RelationID, errData ErrorData) error {
	raw, err := json.Marshal(errData)
	if err != nil {
		return fmt.Errorf("relation: marshaling error data: %w", err)
	}
	return p.bus.WriteRelationData(rel, map[string]string{errorDataKey: string(raw)})
}

// secretRefs enumerates every SecretRef embedded in the payload's
// credentials block, skipping unset optional refs.
func (p ProviderPayload) secretRefs() []kvbus.SecretRef {
	refs := []kvbus.SecretRef{
		p.Credentials.AdminPassword,
		p.Credentials.AdminPasswordHash,
		p.Credentials.KibanaPassword,
		p.Credentials.KibanaPasswordHash,
	}
	if p.Credentials.MonitorPassword != "" {
		refs = append(refs, p.Credentials.MonitorPassword)
	}
	if p.Credentials.AdminTLS != "" {
		refs = append(refs, p.Credentials.AdminTLS)
	}
	if p.Credentials.S3 != nil {
		refs = append(refs, p.Credentials.S3.AccessKey, p.Credentials.S3.SecretKey)
		if p.Credentials.S3.TLSCAChain != "" {
			refs = append(refs, p.Credentials.S3.TLSCAChain)
		}
	}
	if p.Credentials.Azure != nil {
		refs = append(refs, p.Credentials.Azure.StorageAccount, p.Credentials.Azure.SecretKey)
	}
	return refs
}
