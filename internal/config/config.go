// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package config reads the user-facing configuration keys (cluster_name,
// init_hold, roles, profile) through viper, and derives the
// profile-driven heap sizing and default index-template policy.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

// Keys recognized on each app.
const (
	KeyClusterName = "cluster_name"
	KeyInitHold    = "init_hold"
	KeyRoles       = "roles"
	KeyProfile     = "profile"
)

// UserConfig is the parsed, not-yet-normalized user configuration.
type UserConfig struct {
	ClusterName string
	InitHold    bool
	RawRoles    []string
	Profile     model.Profile
}

// Load reads the recognized keys from v, applying defaults for an absent
// profile (production) and an absent roles list (empty -- generated
// roles mode applies, see internal/peercluster).
func Load(v *viper.Viper) (UserConfig, error) {
	profile := model.Profile(v.GetString(KeyProfile))
	if profile == "" {
		profile = model.ProfileProduction
	}
	if !model.ValidProfile(profile) {
		return UserConfig{}, fmt.Errorf("config: invalid profile %q", profile)
	}

	var roles []string
	if raw := v.GetString(KeyRoles); raw != "" {
		for _, r := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(r); trimmed != "" {
				roles = append(roles, trimmed)
			}
		}
	}

	return UserConfig{
		ClusterName: v.GetString(KeyClusterName),
		InitHold:    v.GetBool(KeyInitHold),
		RawRoles:    roles,
		Profile:     profile,
	}, nil
}

// IndexTemplatePolicy is the default policy applied to an app's indices,
// driven by Profile: production and staging apply the default ILM-
// style template, testing applies none.
type IndexTemplatePolicy struct {
	Enabled      bool
	PrimaryShards int
	Replicas     int
}

// DefaultIndexTemplatePolicy returns the index-template defaults for a
// profile.
func DefaultIndexTemplatePolicy(profile model.Profile) IndexTemplatePolicy {
	switch profile {
	case model.ProfileProduction:
		return IndexTemplatePolicy{Enabled: true, PrimaryShards: 3, Replicas: 1}
	case model.ProfileStaging:
		return IndexTemplatePolicy{Enabled: true, PrimaryShards: 1, Replicas: 1}
	default:
		return IndexTemplatePolicy{Enabled: false}
	}
}
