// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package lifecycle

import (
	"context"
)

// RestartResult is the event HandleRestart/HandleUpgrade ask the caller
// to post next: the scheduler owns enqueueing it, this package only
// names it.
type RestartResult struct {
	NextEvent interface{}
}

// HandleRestart runs the restart path: stop with restart=true
// (skips allocation exclusion), then emit Start.
func (c *Controller) HandleRestart(ctx context.Context, in StopInput) (Outcome, StateDelta, RestartResult, error) {
	in.ForRestart = true
	outcome, delta, err := c.HandleStop(ctx, in)
	if err != nil || !outcome.Done {
		return outcome, delta, RestartResult{}, err
	}
	return outcome, delta, RestartResult{NextEvent: StartEvent{}}, nil
}

// UpgradeInput carries the facts HandleUpgrade needs beyond StopInput
//.
type UpgradeInput struct {
	Stop                StopInput
	SetAllocationPrimariesOnly func(ctx context.Context) error
	BestEffortFlush     func(ctx context.Context) error
}

// HandleUpgrade runs the upgrade path: acquire the lock, set
// allocation to primaries-only, best-effort flush, stop (restart=true),
// upgrade the workload, then emit Start{after_upgrade=true}. Re-enabling
// allocation happens in the subsequent Start's post-init (step 9), not
// here.
func (c *Controller) HandleUpgrade(ctx context.Context, ev UpgradeEvent, in UpgradeInput) (Outcome, StateDelta, RestartResult, error) {
	acquired := ev.IgnoreLock
	if !acquired {
		ok, err := c.lock.Acquire()
		if err != nil {
			return Defer("acquiring node lock failed"), StateDelta{}, RestartResult{}, nil
		}
		if !ok {
			return Defer("node lock held by another unit"), StateDelta{}, RestartResult{}, nil
		}
		acquired = true
	}

	if in.SetAllocationPrimariesOnly != nil {
		if err := in.SetAllocationPrimariesOnly(ctx); err != nil {
			c.releaseLock(acquired)
			return Defer("setting allocation to primaries-only failed"), StateDelta{}, RestartResult{}, nil
		}
	}

	if in.BestEffortFlush != nil {
		// Best-effort: a flush failure here does not block the
		// upgrade, it only risks a slower post-upgrade recovery.
		_ = in.BestEffortFlush(ctx)
	}

	in.Stop.ForRestart = true
	if outcome, delta, err := c.HandleStop(ctx, in.Stop); err != nil || !outcome.Done {
		c.releaseLock(acquired)
		return outcome, delta, RestartResult{}, err
	}

	if err := c.runtime.UpgradeWorkload(ctx); err != nil {
		c.releaseLock(acquired)
		return Defer("upgrading workload failed"), StateDelta{}, RestartResult{}, nil
	}

	c.releaseLock(acquired)
	return Completed(), StateDelta{}, RestartResult{NextEvent: StartEvent{AfterUpgrade: true}}, nil
}
