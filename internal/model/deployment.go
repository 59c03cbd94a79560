// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package model

import "fmt"

// State is the publishable status of a DeploymentDescription.
type State string

const (
	StateActive                         State = "active"
	StateBlockedWaitingForRelation       State = "blocked_waiting_for_relation"
	StateBlockedWrongRelatedCluster      State = "blocked_wrong_related_cluster"
	StateBlockedCannotStartWithRoles     State = "blocked_cannot_start_with_roles"
	StateBlockedCannotApplyNewRoles      State = "blocked_cannot_apply_new_roles"
)

// DeploymentStatus carries a State plus the human-readable message that
// must be non-empty for every non-ACTIVE state and empty for ACTIVE.
type DeploymentStatus struct {
	State   State  `json:"state"`
	Message string `json:"message"`
}

// NewStatus builds a DeploymentStatus, enforcing the message rule.
func NewStatus(state State, message string) (DeploymentStatus, error) {
	if state == StateActive && message != "" {
		return DeploymentStatus{}, fmt.Errorf("ACTIVE state must carry an empty message, got %q", message)
	}
	if state != StateActive && message == "" {
		return DeploymentStatus{}, fmt.Errorf("non-ACTIVE state %q must carry a message", state)
	}
	return DeploymentStatus{State: state, Message: message}, nil
}

// Active is the canonical ACTIVE status.
func Active() DeploymentStatus {
	return DeploymentStatus{State: StateActive}
}

// StartMode describes how a unit should derive its initial roles.
type StartMode string

const (
	StartWithProvidedRoles StartMode = "with_provided_roles"
	StartWithGeneratedRoles StartMode = "with_generated_roles"
)

// DeploymentType is what this app is within the fleet.
type DeploymentType string

const (
	TypeMainOrchestrator     DeploymentType = "main_orchestrator"
	TypeFailoverOrchestrator DeploymentType = "failover_orchestrator"
	TypeOther                DeploymentType = "other"
)

// DeploymentDescription is the authoritative per-app record that
// drives every other component. It is owned by the leader of App and
// mutated only through the PCM.
type DeploymentDescription struct {
	App                      App              `json:"app"`
	Config                   PeerClusterConfig `json:"config"`
	Start                    StartMode        `json:"start"`
	PendingDirectives        []Directive      `json:"pending_directives"`
	Typ                      DeploymentType   `json:"typ"`
	Status                   DeploymentStatus `json:"status"`
	ClusterNameAutogenerated bool             `json:"cluster_name_autogenerated"`
	// PromotionTime is set (non-nil) iff Typ == TypeMainOrchestrator.
	// It is epoch seconds, injected by the caller rather than derived from
	// a clock inside this package, so that PCM evaluation stays pure and
	// testable (see internal/peercluster.Clock).
	PromotionTime *float64 `json:"promotion_time,omitempty"`
}

// CanStart reports whether no blocking directive is pending.
func (d *DeploymentDescription) CanStart() bool {
	if d == nil {
		return false
	}
	for _, directive := range d.PendingDirectives {
		if directive.IsBlocking() {
			return false
		}
	}
	return true
}

// Clone returns a deep-enough copy for safe independent mutation in tests
// and in the PCM's read-modify-write cycle.
func (d *DeploymentDescription) Clone() *DeploymentDescription {
	if d == nil {
		return nil
	}
	clone := *d
	clone.PendingDirectives = append([]Directive(nil), d.PendingDirectives...)
	clone.Config.Roles = append([]Role(nil), d.Config.Roles...)
	if d.PromotionTime != nil {
		t := *d.PromotionTime
		clone.PromotionTime = &t
	}
	return &clone
}

// Equal reports whether two descriptions are identical in every
// field that matters for publish-on-change suppression.
func (d *DeploymentDescription) Equal(other *DeploymentDescription) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.App != other.App || d.Start != other.Start || d.Typ != other.Typ ||
		d.Status != other.Status || d.ClusterNameAutogenerated != other.ClusterNameAutogenerated {
		return false
	}
	if (d.PromotionTime == nil) != (other.PromotionTime == nil) {
		return false
	}
	if d.PromotionTime != nil && *d.PromotionTime != *other.PromotionTime {
		return false
	}
	if d.Config.ClusterName != other.Config.ClusterName || d.Config.InitHold != other.Config.InitHold ||
		d.Config.Profile != other.Config.Profile || d.Config.DataTemperature != other.Config.DataTemperature {
		return false
	}
	if len(d.Config.Roles) != len(other.Config.Roles) {
		return false
	}
	for i := range d.Config.Roles {
		if d.Config.Roles[i] != other.Config.Roles[i] {
			return false
		}
	}
	if len(d.PendingDirectives) != len(other.PendingDirectives) {
		return false
	}
	for i := range d.PendingDirectives {
		if d.PendingDirectives[i] != other.PendingDirectives[i] {
			return false
		}
	}
	return true
}
