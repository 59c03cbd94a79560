// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package model

// HealthColor is the cluster health color surfaced to operators, extended
// with YELLOW_TEMP for a yellow cluster whose only unassigned shards belong
// to a cold/frozen tier that is expected to be offline.
type HealthColor string

const (
	HealthGreen      HealthColor = "green"
	HealthYellow     HealthColor = "yellow"
	HealthYellowTemp HealthColor = "yellow_temp"
	HealthRed        HealthColor = "red"
	HealthUnknown    HealthColor = "unknown"
	HealthUnreachable HealthColor = "unreachable"
)

// Acceptable reports whether color is good enough to proceed with a
// service-start or rolling-restart step: green or a yellow caused
// only by intentionally-offline cold/frozen tiers.
func (c HealthColor) Acceptable() bool {
	return c == HealthGreen || c == HealthYellowTemp
}
