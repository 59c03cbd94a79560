// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

func TestLoadDefaultsProfileToProduction(t *testing.T) {
	v := viper.New()
	v.Set(KeyClusterName, "prod-cluster")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, model.ProfileProduction, cfg.Profile)
	assert.Equal(t, "prod-cluster", cfg.ClusterName)
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	v := viper.New()
	v.Set(KeyProfile, "bogus")

	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoadSplitsRoles(t *testing.T) {
	v := viper.New()
	v.Set(KeyRoles, "data.hot, cluster_manager")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"data.hot", "cluster_manager"}, cfg.RawRoles)
}

func TestDefaultIndexTemplatePolicy(t *testing.T) {
	assert.True(t, DefaultIndexTemplatePolicy(model.ProfileProduction).Enabled)
	assert.True(t, DefaultIndexTemplatePolicy(model.ProfileStaging).Enabled)
	assert.False(t, DefaultIndexTemplatePolicy(model.ProfileTesting).Enabled)
}
