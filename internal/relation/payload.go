// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package relation implements the orchestrator relation wire protocol:
// the provider and requirer sides of the cross-app
// "peer-cluster-orchestrator" relation. Payloads are a small
// closed-world tagged union encoded as discriminated JSON records -- no
// inheritance, an explicit round trip, matching the data model's
// Equal/Clone discipline in internal/model.
package relation

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
	"github.com/opensearch-operator/cluster-operator/internal/model"
)

// Credentials is the provider payload's credentials block. Every SecretRef
// here must be granted to the relation before the payload is written.
type Credentials struct {
	AdminUsername      string          `json:"admin_username"`
	AdminPassword      kvbus.SecretRef `json:"admin_password"`
	AdminPasswordHash  kvbus.SecretRef `json:"admin_password_hash"`
	KibanaPassword     kvbus.SecretRef `json:"kibana_password"`
	KibanaPasswordHash kvbus.SecretRef `json:"kibana_password_hash"`
	MonitorPassword    kvbus.SecretRef `json:"monitor_password,omitempty"`
	AdminTLS           kvbus.SecretRef `json:"admin_tls,omitempty"`
	S3                 *S3CredRefs     `json:"s3,omitempty"`
	Azure              *AzureCredRefs  `json:"azure,omitempty"`
}

// S3CredRefs is the S3 credential slice of the provider payload.
type S3CredRefs struct {
	AccessKey  kvbus.SecretRef `json:"access-key"`
	SecretKey  kvbus.SecretRef `json:"secret-key"`
	TLSCAChain kvbus.SecretRef `json:"tls_ca_chain,omitempty"`
}

// AzureCredRefs is the Azure credential slice of the provider payload.
type AzureCredRefs struct {
	StorageAccount kvbus.SecretRef `json:"storage-account"`
	SecretKey      kvbus.SecretRef `json:"secret-key"`
}

// ProviderPayload is the Provider -> Requirer payload.
type ProviderPayload struct {
	ClusterName               string                          `json:"cluster_name"`
	CMNodes                   []model.Node                    `json:"cm_nodes"`
	Credentials                Credentials                    `json:"credentials"`
	DeploymentDesc              *model.DeploymentDescription    `json:"deployment_desc,omitempty"`
	SecurityIndexInitialised    bool                            `json:"security_index_initialised"`
}

// Hash returns the SHA-1 hex digest of the canonical JSON encoding of the
// unredacted payload, used by requirers to short-circuit no-op changes.
func (p ProviderPayload) Hash() (string, error) {
	canonical, err := canonicalJSON(p)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(canonical)
	return fmt.Sprintf("%x", sum), nil
}

// RequirerPayload is the Requirer -> Provider payload.
type RequirerPayload struct {
	App                             model.PeerClusterApp            `json:"app"`
	IsCandidateFailoverOrchestrator bool                             `json:"is_candidate_failover_orchestrator,omitempty"`
	MainOrchestratorRegistered      bool                             `json:"main_orchestrator_registered"`
	Orchestrators                   model.PeerClusterOrchestrators   `json:"orchestrators"`
}

// ErrorData is the dedicated error_data slot shape.
type ErrorData struct {
	ClusterName        string                       `json:"cluster_name"`
	ShouldSeverRelation bool                         `json:"should_sever_relation"`
	ShouldWait          bool                         `json:"should_wait"`
	BlockedMessage      string                       `json:"blocked_message"`
	DeploymentDesc      *model.DeploymentDescription `json:"deployment_desc,omitempty"`
}

// canonicalJSON marshals v with sorted map keys (HTML characters are
// escaped, as encoding/json does by default) so that semantically
// identical payloads always hash identically regardless of map iteration
// order.
func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
