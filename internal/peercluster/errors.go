// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package peercluster

import "errors"

// Validation failures from existing-cluster reconcile. Each
// surfaces as BLOCKED_CANNOT_APPLY_NEW_ROLES with the error's message;
// the description is not advanced when one of these is returned.
var (
	ErrCMRoleRemovalForbidden   = errors.New("cluster_manager role cannot be removed once granted")
	ErrCmVoRolesProvidedInvalid = errors.New("cluster_manager and voting_only roles cannot be both set on the same nodes.")
	ErrDataRoleRemovalForbidden = errors.New("data role cannot be removed while no other app in the fleet serves data")
)
