// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package relation

import (
	"encoding/json"
	"fmt"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/peercluster"
)

// trigger values written alongside a re-broadcast so requirers can tell a
// routine refresh from a promotion announcement.
const (
	triggerKey  = "trigger"
	triggerMain = "main"
)

// ReadRequirerPayload decodes the requirer databag on rel, or returns nil
// when the requirer has not published yet.
func (p *Provider) ReadRequirerPayload(rel kvbus.RelationID) (*RequirerPayload, error) {
	data, err := p.bus.ReadRelationData(rel)
	if err != nil {
		return nil, fmt.Errorf("relation: reading requirer databag %d: %w", rel, err)
	}
	raw, ok := data[dataKey]
	if !ok || raw == "" {
		return nil, nil
	}
	var payload RequirerPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("relation: decoding requirer payload: %w", err)
	}
	return &payload, nil
}

// CountMainDisconnects tallies, across the given requirer relations, how
// many report the main orchestrator as no longer registered. A requirer
// that has never published counts as neither. When includeSelf is true
// (this failover itself has no main recorded) the count starts at one.
func (p *Provider) CountMainDisconnects(relations []kvbus.RelationID, includeSelf bool) (disconnected, total int, err error) {
	if includeSelf {
		disconnected++
	}
	total = len(relations)
	for _, rel := range relations {
		payload, err := p.ReadRequirerPayload(rel)
		if err != nil {
			return 0, 0, err
		}
		if payload == nil {
			continue
		}
		if !payload.MainOrchestratorRegistered {
			disconnected++
		}
	}
	return disconnected, total, nil
}

// EvaluateAndPromote runs the failover-promotion decision for a FAILOVER
// app and, when the strict-majority rule fires, applies the promotion
// through the peer-cluster manager and re-broadcasts the payload with
// trigger=main to every related relation.
func (p *Provider) EvaluateAndPromote(
	pcm *peercluster.PCM,
	desc *model.DeploymentDescription,
	orchestrators *model.PeerClusterOrchestrators,
	tlsConfigured bool,
	relations []kvbus.RelationID,
	payload ProviderPayload,
) (*model.DeploymentDescription, bool, error) {
	includeSelf := orchestrators.MainApp == nil
	disconnected, total, err := p.CountMainDisconnects(relations, includeSelf)
	if err != nil {
		return desc, false, err
	}
	if !peercluster.EvaluatePromotion(desc, tlsConfigured, total, disconnected) {
		return desc, false, nil
	}

	promoted := pcm.PromoteDeploymentType(desc, orchestrators)
	payload.DeploymentDesc = promoted

	raw, err := json.Marshal(payload)
	if err != nil {
		return desc, false, fmt.Errorf("relation: marshaling promotion payload: %w", err)
	}
	hash, err := payload.Hash()
	if err != nil {
		return desc, false, fmt.Errorf("relation: hashing promotion payload: %w", err)
	}
	for _, rel := range relations {
		write := map[string]string{dataKey: string(raw), relDataHashKey: hash, triggerKey: triggerMain}
		if err := p.bus.WriteRelationData(rel, write); err != nil {
			return desc, false, fmt.Errorf("relation: broadcasting promotion to relation %d: %w", rel, err)
		}
	}
	if p.log != nil {
		p.log.Infow("promoted failover orchestrator to main", "app", promoted.App.Name, "disconnected", disconnected, "related", total)
	}
	return promoted, true, nil
}
