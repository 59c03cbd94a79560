// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package lifecycle

import "github.com/opensearch-operator/cluster-operator/internal/model"

// CanServiceStart evaluates the ordered pre-start gate. The first
// failing check wins; later checks are never evaluated.
func CanServiceStart(in CanStartInput) Outcome {
	if !in.MemoryThresholdMet {
		return Defer("system memory below the required threshold for this profile")
	}
	if in.Directive == nil || !in.Directive.CanStart() {
		return Defer("waiting on a pending directive")
	}
	if !in.AdminUserConfigured {
		return Defer("admin user not yet configured")
	}
	if !in.SecurityIndexInitialised {
		eligible := in.IsLeader && in.IsMainOrchestratorSingle || in.IsGeneratedRolesUnit || in.HasDataRole
		if !eligible {
			return Defer("security index not initialized and this unit cannot bootstrap it")
		}
	}
	if in.Health == model.HealthYellowTemp && !in.LeaderUnreachable {
		return Defer("cluster health is yellow_temp (shards relocating)")
	}
	return Completed()
}
