// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package peercluster

import (
	"fmt"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

// RelationData is the subset of the provider payload the PCM consumes on
// a peer-cluster relation change: the announced cluster name and the
// provider's cluster-manager-eligible node roster.
type RelationData struct {
	ClusterName              string
	CMNodes                  []model.Node
	SecurityIndexInitialised bool
}

// RunWithRelationData folds a peer-cluster relation payload into the
// current description. It consumes the INHERIT_CLUSTER_NAME and
// VALIDATE_CLUSTER_NAME directives: an inherit adopts the remote name, a
// validate compares the local name against the remote and blocks with
// BLOCKED_WRONG_RELATED_CLUSTER on mismatch. The returned seed hosts are
// the remote cluster-manager IPs for discovery.seed_hosts.
func (p *PCM) RunWithRelationData(prev *model.DeploymentDescription, data RelationData) (desc *model.DeploymentDescription, seedHosts []string, err error) {
	if prev == nil {
		return nil, nil, fmt.Errorf("peercluster: no deployment description to merge relation data into")
	}
	desc = prev.Clone()

	if model.ContainsDirective(desc.PendingDirectives, model.DirectiveInheritClusterName) {
		if data.ClusterName == "" {
			return prev, nil, fmt.Errorf("peercluster: remote cluster name not yet announced")
		}
		desc.Config.ClusterName = data.ClusterName
		desc.ClusterNameAutogenerated = false
		desc.PendingDirectives = model.RemoveDirective(desc.PendingDirectives, model.DirectiveInheritClusterName)
	}

	if model.ContainsDirective(desc.PendingDirectives, model.DirectiveValidateClusterName) {
		if data.ClusterName == "" {
			return prev, nil, fmt.Errorf("peercluster: remote cluster name not yet announced")
		}
		if desc.Config.ClusterName != data.ClusterName {
			blocked := prev.Clone()
			status, serr := model.NewStatus(
				model.StateBlockedWrongRelatedCluster,
				fmt.Sprintf("related to a different cluster: expected %q, remote announces %q", desc.Config.ClusterName, data.ClusterName),
			)
			if serr != nil {
				return prev, nil, serr
			}
			blocked.Status = status
			return blocked, nil, nil
		}
		desc.PendingDirectives = model.RemoveDirective(desc.PendingDirectives, model.DirectiveValidateClusterName)
	}

	// The relation now exists, so the wait directive is satisfied.
	desc.PendingDirectives = model.RemoveDirective(desc.PendingDirectives, model.DirectiveWaitForPeerClusterRelation)
	desc.PendingDirectives = model.RemoveDirective(desc.PendingDirectives, model.DirectiveShowStatus)
	if desc.Status.State == model.StateBlockedWaitingForRelation || desc.Status.State == model.StateBlockedWrongRelatedCluster {
		desc.Status = model.Active()
	}

	seedHosts = SeedHostsFromCMNodes(data.CMNodes)
	if p.log != nil && len(seedHosts) > 0 {
		p.log.Debugw("merged peer-cluster relation data", "cluster_name", desc.Config.ClusterName, "seed_hosts", len(seedHosts))
	}
	return desc, seedHosts, nil
}

// SeedHostsFromCMNodes extracts the deduplicated IP list of
// cluster-manager-eligible nodes for discovery.seed_hosts.
func SeedHostsFromCMNodes(nodes []model.Node) []string {
	seen := make(map[string]bool, len(nodes))
	var hosts []string
	for _, n := range nodes {
		if !model.IsClusterManagerEligible(n.Roles) || n.IP == "" || seen[n.IP] {
			continue
		}
		seen[n.IP] = true
		hosts = append(hosts, n.IP)
	}
	return hosts
}
