// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package model

import "fmt"

// Profile selects heap sizing and default index-template policy.
type Profile string

const (
	ProfileProduction Profile = "production"
	ProfileStaging    Profile = "staging"
	ProfileTesting    Profile = "testing"
)

// ValidProfile reports whether p is a recognized profile.
func ValidProfile(p Profile) bool {
	switch p {
	case ProfileProduction, ProfileStaging, ProfileTesting:
		return true
	default:
		return false
	}
}

// PeerClusterConfig is the user-provided configuration for one app.
type PeerClusterConfig struct {
	ClusterName     string      `json:"cluster_name"`
	InitHold        bool        `json:"init_hold"`
	Roles           []Role      `json:"roles"`
	Profile         Profile     `json:"profile"`
	DataTemperature Temperature `json:"data_temperature,omitempty"`
}

// Normalize expands `data.<temp>` shorthands into `roles=[...,"data"]` plus
// DataTemperature, and validates that at most one temperature is given and
// that it is whitelisted.
func (c *PeerClusterConfig) Normalize(rawRoles []string) error {
	var normalized []Role
	var temp Temperature
	tempSeen := false

	for _, raw := range rawRoles {
		role, t, hasTemp := splitDataTemperature(raw)
		if hasTemp {
			if tempSeen && temp != t {
				return fmt.Errorf("at most one data temperature may be specified, got %q and %q", temp, t)
			}
			if !ValidTemperature(t) {
				return fmt.Errorf("invalid data temperature %q", t)
			}
			temp = t
			tempSeen = true
		}
		normalized = append(normalized, role)
	}

	c.Roles = normalized
	if tempSeen {
		c.DataTemperature = temp
	}
	return nil
}

// splitDataTemperature turns "data.hot" into (RoleData, TemperatureHot, true)
// and passes through any other role unchanged.
func splitDataTemperature(raw string) (Role, Temperature, bool) {
	const prefix = "data."
	if len(raw) > len(prefix) && raw[:len(prefix)] == prefix {
		return RoleData, Temperature(raw[len(prefix):]), true
	}
	return Role(raw), "", false
}
