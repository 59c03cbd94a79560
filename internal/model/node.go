// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package model

import "sort"

// Role is one of the roles an OpenSearch node can hold.
type Role string

const (
	RoleClusterManager Role = "cluster_manager"
	RoleData           Role = "data"
	RoleIngest         Role = "ingest"
	RoleML             Role = "ml"
	RoleVotingOnly     Role = "voting_only"
	RoleCoordinating   Role = "coordinating"
)

// Temperature is the data-tier temperature a data node serves.
type Temperature string

const (
	TemperatureHot     Temperature = "hot"
	TemperatureWarm    Temperature = "warm"
	TemperatureCold    Temperature = "cold"
	TemperatureFrozen  Temperature = "frozen"
	TemperatureContent Temperature = "content"
)

// ValidTemperature reports whether t is one of the whitelisted values.
func ValidTemperature(t Temperature) bool {
	switch t {
	case TemperatureHot, TemperatureWarm, TemperatureCold, TemperatureFrozen, TemperatureContent:
		return true
	default:
		return false
	}
}

// Node is one observed OpenSearch process, built from live API responses or
// relation payloads -- never owned by the operator.
type Node struct {
	Name        string       `json:"name"`
	Roles       []Role       `json:"roles"`
	Temperature *Temperature `json:"temperature,omitempty"`
	IP          string       `json:"ip"`
	App         App          `json:"app"`
	UnitNumber  int          `json:"unit_number"`
}

// NormalizeRoles deduplicates roles: cluster_manager and voting_only
// cannot both be present on the same node. It returns the deduplicated,
// sorted role list and whether the input violated that exclusivity.
func NormalizeRoles(roles []Role) (out []Role, violatesExclusivity bool) {
	seen := make(map[Role]bool, len(roles))
	for _, r := range roles {
		seen[r] = true
	}
	if seen[RoleClusterManager] && seen[RoleVotingOnly] {
		violatesExclusivity = true
	}
	out = make([]Role, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, violatesExclusivity
}

// HasRole reports whether roles contains want.
func HasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// IsClusterManagerEligible reports whether a node with these roles counts
// toward the fleet-wide cluster-manager quorum.
func IsClusterManagerEligible(roles []Role) bool {
	return HasRole(roles, RoleClusterManager)
}
