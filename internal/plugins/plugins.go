// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package plugins implements plugin-lifecycle reconciliation.
// Reconcile diffs a desired plugin set against what is currently
// installed and returns an ordered action list; the lifecycle
// controller's post-start step fans out over the result after role-tag
// publication.
package plugins

import "github.com/opensearch-operator/cluster-operator/internal/model"

// ActionKind is one step of a plugin's install, configure,
// enable-needs-restart, enabled progression.
type ActionKind string

const (
	ActionInstall            ActionKind = "install"
	ActionConfigure          ActionKind = "configure"
	ActionEnableNeedsRestart ActionKind = "enable_needs_restart"
	ActionEnable             ActionKind = "enable"
	ActionDisable            ActionKind = "disable"
	ActionUninstall          ActionKind = "uninstall"
)

// Action is one ordered unit of plugin work the caller must carry out
// (via the workload's plugin-install CLI, not modeled here).
type Action struct {
	Plugin          string
	Kind            ActionKind
	RestartRequired bool
	Reason          string
}

// Reconcile computes the ordered actions needed to bring installed in
// line with desired. Installed plugins absent from desired are
// disabled then uninstalled; desired plugins absent from installed are
// installed, configured, and enabled; desired plugins present in both
// but with a changed Config or Version are reconfigured and flagged for
// restart to pick up changed plugin config.
func Reconcile(desired, installed []model.PluginConfig) []Action {
	byName := make(map[string]model.PluginConfig, len(installed))
	for _, p := range installed {
		byName[p.Name] = p
	}
	wanted := make(map[string]bool, len(desired))

	var actions []Action
	for _, want := range desired {
		wanted[want.Name] = true
		cur, present := byName[want.Name]
		if !present {
			actions = append(actions,
				Action{Plugin: want.Name, Kind: ActionInstall, Reason: "plugin not installed"},
				Action{Plugin: want.Name, Kind: ActionConfigure, Reason: "apply desired config"},
			)
			if want.Enabled {
				actions = append(actions, enableActions(want.Name, "newly installed plugin")...)
			}
			continue
		}
		if configChanged(cur, want) {
			actions = append(actions, Action{Plugin: want.Name, Kind: ActionConfigure, Reason: "config changed"})
			actions = append(actions, enableActions(want.Name, "config change requires restart")...)
			continue
		}
		if want.Enabled && !cur.Enabled {
			actions = append(actions, enableActions(want.Name, "plugin config enabled")...)
		} else if !want.Enabled && cur.Enabled {
			actions = append(actions, Action{Plugin: want.Name, Kind: ActionDisable, RestartRequired: true, Reason: "plugin config disabled"})
		}
	}

	for _, cur := range installed {
		if wanted[cur.Name] {
			continue
		}
		if cur.Enabled {
			actions = append(actions, Action{Plugin: cur.Name, Kind: ActionDisable, RestartRequired: true, Reason: "no longer desired"})
		}
		actions = append(actions, Action{Plugin: cur.Name, Kind: ActionUninstall, Reason: "no longer desired"})
	}
	return actions
}

func enableActions(name, reason string) []Action {
	return []Action{
		{Plugin: name, Kind: ActionEnableNeedsRestart, RestartRequired: true, Reason: reason},
		{Plugin: name, Kind: ActionEnable, Reason: reason},
	}
}

func configChanged(cur, want model.PluginConfig) bool {
	if cur.Version != want.Version {
		return true
	}
	if len(cur.Config) != len(want.Config) {
		return true
	}
	for k, v := range want.Config {
		if cur.Config[k] != v {
			return true
		}
	}
	return false
}

// RestartRequired reports whether any action in the list requires the
// node to restart before it takes effect.
func RestartRequired(actions []Action) bool {
	for _, a := range actions {
		if a.RestartRequired {
			return true
		}
	}
	return false
}
