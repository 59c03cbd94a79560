// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package relation

import (
	"fmt"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/peercluster"
)

// ChangeResult is what OnProviderChanged hands back to the event loop:
// the merged description, the seed hosts to write into discovery config,
// the resolved credential material, and the flags the caller must act on.
type ChangeResult struct {
	// NoOp is true when the provider's rel_data_hash matched the last one
	// this requirer processed, so nothing was re-read.
	NoOp bool

	// Severed is true when the provider wrote error_data with
	// should_sever_relation; the caller must hard-block and drop the
	// relation.
	Severed bool

	// Wait is true when the provider wrote error_data with should_wait;
	// the caller defers and retries on the next tick.
	Wait bool

	// DemoteSelf is true when the remote is a MAIN orchestrator and this
	// app was itself MAIN before; the caller demotes through the PCM.
	DemoteSelf bool

	// PromotedFailover is true when, after the remote main is recorded,
	// the local orchestrators view holds the same app in both slots; the
	// failover slot is cleared and the caller drops the old main relation.
	PromotedFailover bool

	Description              *model.DeploymentDescription
	SeedHosts                []string
	AdminPassword            string
	AdminTLS                 map[string]string
	SecurityIndexInitialised bool
}

// OnProviderChanged runs the requirer side of a relation-changed event:
// short-circuit on an unchanged payload hash, classify error_data versus
// real data, merge orchestrators, resolve granted secrets, and fold the
// cluster name / CM-node roster into the deployment description through
// the peer-cluster manager.
func (r *Requirer) OnProviderChanged(
	rel kvbus.RelationID,
	pcm *peercluster.PCM,
	prevDesc *model.DeploymentDescription,
	orchestrators *model.PeerClusterOrchestrators,
	slots *StatusSlots,
) (ChangeResult, error) {
	data, err := r.bus.ReadRelationData(rel)
	if err != nil {
		return ChangeResult{}, fmt.Errorf("relation: reading relation %d: %w", rel, err)
	}
	if hash := data[relDataHashKey]; hash != "" && hash == r.lastHash[rel] {
		return ChangeResult{NoOp: true}, nil
	}

	payload, errData, err := r.Classify(rel)
	if err != nil {
		return ChangeResult{}, err
	}
	if errData != nil {
		slots.SetProviderError(int(rel), errData.BlockedMessage)
		return ChangeResult{Severed: errData.ShouldSeverRelation, Wait: errData.ShouldWait}, nil
	}
	if payload == nil {
		// Nothing written yet; the provider has not completed its first
		// refresh.
		return ChangeResult{Wait: true}, nil
	}
	slots.ClearProviderError(int(rel))

	result := ChangeResult{SecurityIndexInitialised: payload.SecurityIndexInitialised}

	if payload.DeploymentDesc != nil {
		remote := payload.DeploymentDesc
		if remote.Typ == model.TypeMainOrchestrator && prevDesc != nil && prevDesc.Typ == model.TypeMainOrchestrator {
			result.DemoteSelf = true
		}
		if !remote.App.IsZero() {
			mainApp := remote.App
			if remote.Typ == model.TypeMainOrchestrator {
				orchestrators.MainRelID = int(rel)
				orchestrators.MainApp = &mainApp
			}
		}
	}
	if orchestrators.MainApp != nil && orchestrators.FailoverApp != nil && orchestrators.MainApp.Equal(*orchestrators.FailoverApp) {
		orchestrators.FailoverRelID = model.NoRelationID
		orchestrators.FailoverApp = nil
		result.PromotedFailover = true
	}

	if prevDesc != nil {
		desc, seedHosts, err := pcm.RunWithRelationData(prevDesc, peercluster.RelationData{
			ClusterName:              payload.ClusterName,
			CMNodes:                  payload.CMNodes,
			SecurityIndexInitialised: payload.SecurityIndexInitialised,
		})
		if err != nil {
			return ChangeResult{}, err
		}
		result.Description = desc
		result.SeedHosts = seedHosts
	}

	if payload.Credentials.AdminPassword != "" {
		content, err := r.bus.GetSecret(payload.Credentials.AdminPassword, rel)
		if err != nil {
			return ChangeResult{}, fmt.Errorf("relation: reading admin password secret: %w", err)
		}
		result.AdminPassword = content["password"]
	}
	if payload.Credentials.AdminTLS != "" {
		content, err := r.bus.GetSecret(payload.Credentials.AdminTLS, rel)
		if err != nil {
			return ChangeResult{}, fmt.Errorf("relation: reading admin tls secret: %w", err)
		}
		result.AdminTLS = content
	}

	if hash := data[relDataHashKey]; hash != "" {
		r.lastHash[rel] = hash
	}
	return result, nil
}

// PeerCredentials resolves the fleet-propagated object-storage credential
// refs from the provider payload into a SnapshotCredentials value the
// backup coordinator can apply locally.
func (r *Requirer) PeerCredentials(rel kvbus.RelationID, payload *ProviderPayload) (*model.SnapshotCredentials, error) {
	switch {
	case payload.Credentials.S3 != nil:
		access, err := r.bus.GetSecret(payload.Credentials.S3.AccessKey, rel)
		if err != nil {
			return nil, fmt.Errorf("relation: reading s3 access key: %w", err)
		}
		secret, err := r.bus.GetSecret(payload.Credentials.S3.SecretKey, rel)
		if err != nil {
			return nil, fmt.Errorf("relation: reading s3 secret key: %w", err)
		}
		creds := &model.SnapshotCredentials{
			Backend: model.BackendS3,
			S3: &model.S3Credentials{
				AccessKey: access["value"],
				SecretKey: secret["value"],
			},
		}
		if payload.Credentials.S3.TLSCAChain != "" {
			chain, err := r.bus.GetSecret(payload.Credentials.S3.TLSCAChain, rel)
			if err != nil {
				return nil, fmt.Errorf("relation: reading s3 ca chain: %w", err)
			}
			creds.S3.TLSCAChain = chain["value"]
		}
		return creds, nil
	case payload.Credentials.Azure != nil:
		account, err := r.bus.GetSecret(payload.Credentials.Azure.StorageAccount, rel)
		if err != nil {
			return nil, fmt.Errorf("relation: reading azure storage account: %w", err)
		}
		key, err := r.bus.GetSecret(payload.Credentials.Azure.SecretKey, rel)
		if err != nil {
			return nil, fmt.Errorf("relation: reading azure secret key: %w", err)
		}
		return &model.SnapshotCredentials{
			Backend: model.BackendAzure,
			Azure: &model.AzureCredentials{
				AccountName: account["value"],
				AccountKey:  key["value"],
			},
		}, nil
	default:
		return nil, nil
	}
}
