// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

func TestReconcileInstallsNewPlugin(t *testing.T) {
	desired := []model.PluginConfig{{Name: "repository-s3", Version: "2.11.0", Enabled: true}}
	actions := Reconcile(desired, nil)

	assert.Equal(t, ActionInstall, actions[0].Kind)
	assert.Equal(t, ActionConfigure, actions[1].Kind)
	assert.Equal(t, ActionEnableNeedsRestart, actions[2].Kind)
	assert.Equal(t, ActionEnable, actions[3].Kind)
	assert.True(t, RestartRequired(actions))
}

func TestReconcileNoopWhenUnchanged(t *testing.T) {
	cfg := model.PluginConfig{Name: "repository-s3", Version: "2.11.0", Enabled: true}
	actions := Reconcile([]model.PluginConfig{cfg}, []model.PluginConfig{cfg})
	assert.Empty(t, actions)
}

func TestReconcileConfigChangeForcesRestart(t *testing.T) {
	installed := []model.PluginConfig{{Name: "repository-s3", Version: "2.11.0", Enabled: true}}
	desired := []model.PluginConfig{{Name: "repository-s3", Version: "2.12.0", Enabled: true}}

	actions := Reconcile(desired, installed)
	assert.True(t, RestartRequired(actions))
	assert.Equal(t, ActionConfigure, actions[0].Kind)
}

func TestReconcileUninstallsUndesiredPlugin(t *testing.T) {
	installed := []model.PluginConfig{{Name: "analysis-icu", Enabled: true}}
	actions := Reconcile(nil, installed)

	assert.Equal(t, ActionDisable, actions[0].Kind)
	assert.Equal(t, ActionUninstall, actions[1].Kind)
}

func TestReconcileEnablesExistingDisabledPlugin(t *testing.T) {
	installed := []model.PluginConfig{{Name: "repository-s3", Version: "1.0", Enabled: false}}
	desired := []model.PluginConfig{{Name: "repository-s3", Version: "1.0", Enabled: true}}

	actions := Reconcile(desired, installed)
	assert.Equal(t, ActionEnableNeedsRestart, actions[0].Kind)
	assert.Equal(t, ActionEnable, actions[1].Kind)
}

func TestReconcileDisablesWithoutUninstallWhenStillDesired(t *testing.T) {
	installed := []model.PluginConfig{{Name: "repository-s3", Version: "1.0", Enabled: true}}
	desired := []model.PluginConfig{{Name: "repository-s3", Version: "1.0", Enabled: false}}

	actions := Reconcile(desired, installed)
	assert.Len(t, actions, 1)
	assert.Equal(t, ActionDisable, actions[0].Kind)
}
