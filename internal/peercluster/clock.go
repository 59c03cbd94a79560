// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package peercluster

// Clock supplies the current time as epoch seconds to the PCM so that
// promotion bookkeeping (DeploymentDescription.PromotionTime) stays
// caller-injected and the state machine itself stays pure and testable.
type Clock interface {
	NowSeconds() float64
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() float64

func (f ClockFunc) NowSeconds() float64 { return f() }
