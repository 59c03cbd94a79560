// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package lifecycle

import (
	"context"
)

// StopInput carries the facts HandleStop needs.
type StopInput struct {
	OtherNodesOnline bool
	ForRestart       bool
	ThisUnit         string
	ExcludeVoting    func(ctx context.Context, unit string) error
	ExcludeAllocation func(ctx context.Context, unit string) error
	PrimaryShardsOffThisNode func(ctx context.Context) (bool, error)
}

// HandleStop runs the stop sequence: voting/allocation exclusion, wait for
// primary-shard relocation, then stop the service.
func (c *Controller) HandleStop(ctx context.Context, in StopInput) (Outcome, StateDelta, error) {
	if in.OtherNodesOnline {
		if in.ExcludeVoting != nil {
			if err := in.ExcludeVoting(ctx, in.ThisUnit); err != nil {
				return Defer("adding voting exclusion failed"), StateDelta{}, nil
			}
		}
		if !in.ForRestart && in.ExcludeAllocation != nil {
			if err := in.ExcludeAllocation(ctx, in.ThisUnit); err != nil {
				return Defer("adding allocation exclusion failed"), StateDelta{}, nil
			}
		}
	}

	if in.PrimaryShardsOffThisNode != nil {
		clear, err := in.PrimaryShardsOffThisNode(ctx)
		if err != nil {
			return Defer("checking shard relocation failed"), StateDelta{}, nil
		}
		if !clear {
			return Defer("waiting for primary shards to relocate off this node"), StateDelta{}, nil
		}
	}

	if err := c.runtime.StopService(ctx); err != nil {
		return Defer("stopping service failed"), StateDelta{}, nil
	}

	started := false
	return Completed(), StateDelta{Started: &started}, nil
}
