// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package peercluster implements the peer-cluster manager: the state
// machine that decides whether this app is a main orchestrator, a
// failover orchestrator, or a plain participant, derives its start
// mode, and owns the published DeploymentDescription and directive
// queue. Every rule here is an ordered, short-circuiting check: the
// first violation wins and the description is never advanced past a
// failed validation.
package peercluster

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

const hexAlphabet = "0123456789abcdef"

// PCM evaluates and owns one app's DeploymentDescription.
type PCM struct {
	app   model.App
	clock Clock
	log   *zap.SugaredLogger
}

// New builds a PCM for app.
func New(app model.App, clock Clock, log *zap.SugaredLogger) *PCM {
	return &PCM{app: app, clock: clock, log: log}
}

// Run recomputes the DeploymentDescription given the user config, any
// prior description, and whether a peer-cluster-orchestrator relation
// currently exists. It returns the new description and whether it differs
// from prev.
func (p *PCM) Run(cfg model.PeerClusterConfig, prev *model.DeploymentDescription, hasPeerRelation bool) (desc *model.DeploymentDescription, changed bool, err error) {
	if prev == nil {
		desc, err = p.newClusterSetup(cfg, hasPeerRelation)
	} else {
		desc, err = p.existingClusterReconcile(cfg, prev)
	}
	if err != nil {
		return prev, false, err
	}
	changed = prev == nil || !prev.Equal(desc)
	return desc, changed, nil
}

// newClusterSetup builds the first description for an app with no
// prior one.
func (p *PCM) newClusterSetup(cfg model.PeerClusterConfig, hasPeerRelation bool) (*model.DeploymentDescription, error) {
	desc := &model.DeploymentDescription{
		App:    p.app,
		Config: cfg,
	}

	if cfg.InitHold {
		if cfg.ClusterName != "" {
			desc.PendingDirectives = model.AppendDirective(desc.PendingDirectives, model.DirectiveValidateClusterName)
		} else {
			desc.PendingDirectives = model.AppendDirective(desc.PendingDirectives, model.DirectiveInheritClusterName)
		}
		if !hasPeerRelation {
			desc.PendingDirectives = model.AppendDirective(desc.PendingDirectives, model.DirectiveWaitForPeerClusterRelation)
			desc.PendingDirectives = model.AppendDirective(desc.PendingDirectives, model.DirectiveShowStatus)
			status, err := model.NewStatus(model.StateBlockedWaitingForRelation, "waiting for peer-cluster-orchestrator relation")
			if err != nil {
				return nil, err
			}
			desc.Status = status
		} else {
			desc.Status = model.Active()
		}
	} else {
		if cfg.ClusterName == "" {
			generated, err := generateClusterName(p.app.Name)
			if err != nil {
				return nil, err
			}
			desc.Config.ClusterName = generated
			desc.ClusterNameAutogenerated = true
		}
		if len(cfg.Roles) == 0 {
			desc.Start = model.StartWithGeneratedRoles
			desc.Status = model.Active()
		} else if model.HasRole(cfg.Roles, model.RoleClusterManager) && model.HasRole(cfg.Roles, model.RoleVotingOnly) {
			desc.Start = model.StartWithProvidedRoles
			status, err := model.NewStatus(model.StateBlockedCannotApplyNewRoles, ErrCmVoRolesProvidedInvalid.Error())
			if err != nil {
				return nil, err
			}
			desc.Status = status
		} else {
			desc.Start = model.StartWithProvidedRoles
			if !model.HasRole(cfg.Roles, model.RoleClusterManager) {
				desc.PendingDirectives = model.AppendDirective(desc.PendingDirectives, model.DirectiveWaitForPeerClusterRelation)
				status, err := model.NewStatus(model.StateBlockedCannotStartWithRoles, "roles must include cluster_manager or rely on a peer cluster_manager")
				if err != nil {
					return nil, err
				}
				desc.Status = status
			} else {
				desc.Status = model.Active()
			}
		}
	}

	desc.Typ = p.deriveDeploymentType(desc)
	if desc.Typ == model.TypeMainOrchestrator && desc.PromotionTime == nil {
		now := p.clock.NowSeconds()
		desc.PromotionTime = &now
	}
	return desc, nil
}

// existingClusterReconcile diffs the new config against the previous
// description and validates the role transition.
func (p *PCM) existingClusterReconcile(cfg model.PeerClusterConfig, prev *model.DeploymentDescription) (*model.DeploymentDescription, error) {
	prevRoles := prev.Config.Roles
	newRoles := cfg.Roles

	if rolesEqual(prevRoles, newRoles) && cfg.InitHold == prev.Config.InitHold && cfg.ClusterName == prev.Config.ClusterName {
		return prev, nil
	}

	if model.HasRole(prevRoles, model.RoleClusterManager) && !model.HasRole(newRoles, model.RoleClusterManager) && len(newRoles) > 0 {
		return p.blockCannotApplyNewRoles(prev, ErrCMRoleRemovalForbidden)
	}
	if model.HasRole(newRoles, model.RoleClusterManager) && model.HasRole(newRoles, model.RoleVotingOnly) {
		return p.blockCannotApplyNewRoles(prev, ErrCmVoRolesProvidedInvalid)
	}

	desc := prev.Clone()
	desc.Config = cfg

	if len(newRoles) == 0 {
		desc.Start = model.StartWithGeneratedRoles
	} else {
		desc.Start = model.StartWithProvidedRoles
	}

	if prev.Status.State == model.StateBlockedCannotStartWithRoles && !cfg.InitHold {
		if model.HasRole(newRoles, model.RoleClusterManager) || desc.Start == model.StartWithGeneratedRoles {
			desc.PendingDirectives = model.RemoveDirective(desc.PendingDirectives, model.DirectiveWaitForPeerClusterRelation)
			desc.Status = model.Active()
		}
	}

	desc.Typ = p.deriveDeploymentType(desc)
	if desc.Typ == model.TypeMainOrchestrator && desc.PromotionTime == nil {
		now := p.clock.NowSeconds()
		desc.PromotionTime = &now
	}
	return desc, nil
}

func (p *PCM) blockCannotApplyNewRoles(prev *model.DeploymentDescription, cause error) (*model.DeploymentDescription, error) {
	blocked := prev.Clone()
	status, err := model.NewStatus(model.StateBlockedCannotApplyNewRoles, cause.Error())
	if err != nil {
		return nil, err
	}
	blocked.Status = status
	return blocked, nil
}

// deriveDeploymentType classifies the app from its start mode, roles,
// and init_hold.
func (p *PCM) deriveDeploymentType(desc *model.DeploymentDescription) model.DeploymentType {
	hasCM := desc.Start == model.StartWithGeneratedRoles || model.HasRole(desc.Config.Roles, model.RoleClusterManager)
	switch {
	case !hasCM:
		return model.TypeOther
	case desc.Config.InitHold:
		return model.TypeFailoverOrchestrator
	default:
		return model.TypeMainOrchestrator
	}
}

// CanStart reports whether no blocking directive is pending.
func (p *PCM) CanStart(desc *model.DeploymentDescription) bool {
	return desc.CanStart()
}

// PromoteDeploymentType applies the local effects of a failover
// promotion: the type flips to main and the orchestrator registry copies
// failover into main. Re-broadcasting to requirers and re-validating the
// CM quorum are the caller's responsibility since they need fleet-wide
// state this package does not hold.
func (p *PCM) PromoteDeploymentType(desc *model.DeploymentDescription, orchestrators *model.PeerClusterOrchestrators) *model.DeploymentDescription {
	promoted := desc.Clone()
	promoted.Typ = model.TypeMainOrchestrator
	now := p.clock.NowSeconds()
	promoted.PromotionTime = &now
	orchestrators.PromoteFailover()
	return promoted
}

// DemoteDeploymentType implements the demote_deployment_type contract:
// MAIN -> FAILOVER, clearing promotion_time.
func (p *PCM) DemoteDeploymentType(desc *model.DeploymentDescription) *model.DeploymentDescription {
	demoted := desc.Clone()
	demoted.Typ = model.TypeFailoverOrchestrator
	demoted.PromotionTime = nil
	return demoted
}

// EvaluatePromotion applies the majority-disconnect rule: promote
// iff desc is currently FAILOVER_ORCHESTRATOR, tlsConfigured, and a strict
// majority of the N related apps report the main disconnected
// (disconnectedCount > floor((N+1)/2)).
func EvaluatePromotion(desc *model.DeploymentDescription, tlsConfigured bool, relatedAppCount, disconnectedCount int) bool {
	if desc.Typ != model.TypeFailoverOrchestrator || !tlsConfigured {
		return false
	}
	threshold := (relatedAppCount + 1) / 2
	return disconnectedCount > threshold
}

// CMQuorumStatus checks fleet quorum: fewer than 3 CM-eligible nodes in a
// multi-app topology is a quorum violation; solo-app topologies are
// exempt.
func CMQuorumStatus(appCount, cmEligibleNodeCount int) (ok bool, message string) {
	if appCount <= 1 {
		return true, ""
	}
	if cmEligibleNodeCount < 3 {
		return false, "≥3 cluster-manager-eligible units required"
	}
	return true, ""
}

// ValidateDataRoleRemoval guards the data-role removal rule:
// removing "data" from prevRoles is only allowed if the broader fleet
// still has at least one data node on a different app. Callers
// (internal/relation, on a fleet census update) invoke this before
// accepting a role change that drops "data".
func ValidateDataRoleRemoval(prevRoles, newRoles []model.Role, fleetHasOtherDataNode bool) error {
	if model.HasRole(prevRoles, model.RoleData) && !model.HasRole(newRoles, model.RoleData) && !fleetHasOtherDataNode {
		return ErrDataRoleRemovalForbidden
	}
	return nil
}

func rolesEqual(a, b []model.Role) bool {
	an, _ := model.NormalizeRoles(a)
	bn, _ := model.NormalizeRoles(b)
	if len(an) != len(bn) {
		return false
	}
	for i := range an {
		if an[i] != bn[i] {
			return false
		}
	}
	return true
}

func generateClusterName(appName string) (string, error) {
	suffix := make([]byte, 4)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(hexAlphabet))))
		if err != nil {
			return "", fmt.Errorf("peercluster: generating cluster name suffix: %w", err)
		}
		suffix[i] = hexAlphabet[n.Int64()]
	}
	return strings.ToLower(fmt.Sprintf("%s-%s", appName, string(suffix))), nil
}
