// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package tlsfabric

import (
	"fmt"
	"strconv"

	"github.com/opensearch-operator/cluster-operator/internal/kvbus"
)

// Unit-scope flag keys carried on the peer and peer-cluster relations
// during a CA rotation. Each unit writes its own; the finish decision
// reads every unit's.
const (
	flagCARenewing   = "tls_ca_renewing"
	flagCARenewed    = "tls_ca_renewed"
	flagTLSConfigured = "tls_configured"
)

// FleetRotation coordinates the cross-unit half of the two-phase CA
// rotation: broadcasting this unit's renewing/renewed flags and deciding
// when the whole fleet has finished so the old CA can be trimmed.
type FleetRotation struct {
	bus  kvbus.Bus
	unit string
}

// NewFleetRotation builds a FleetRotation for unit.
func NewFleetRotation(bus kvbus.Bus, unit string) *FleetRotation {
	return &FleetRotation{bus: bus, unit: unit}
}

func unitFlagKey(unit, flag string) string {
	return fmt.Sprintf("%s.%s", unit, flag)
}

// MarkRenewing sets tls_ca_renewing=true for this unit on every given
// relation, the broadcast that opens phase one.
func (f *FleetRotation) MarkRenewing(relations []kvbus.RelationID) error {
	return f.writeFlag(relations, flagCARenewing, true)
}

// MarkRenewed sets tls_ca_renewed=true and clears tls_ca_renewing for
// this unit, the post-restart step of phase two.
func (f *FleetRotation) MarkRenewed(relations []kvbus.RelationID) error {
	return f.mergeFlags(relations, map[string]string{
		unitFlagKey(f.unit, flagCARenewed):  "true",
		unitFlagKey(f.unit, flagCARenewing): "false",
	})
}

// ClearFlags removes both rotation flags for this unit once the rotation
// is complete fleet-wide.
func (f *FleetRotation) ClearFlags(relations []kvbus.RelationID) error {
	return f.mergeFlags(relations, map[string]string{
		unitFlagKey(f.unit, flagCARenewed):  "",
		unitFlagKey(f.unit, flagCARenewing): "",
	})
}

func (f *FleetRotation) writeFlag(relations []kvbus.RelationID, flag string, value bool) error {
	return f.mergeFlags(relations, map[string]string{
		unitFlagKey(f.unit, flag): strconv.FormatBool(value),
	})
}

// mergeFlags read-modify-writes each relation bag: WriteRelationData
// replaces the whole bag, so the existing keys must be carried through.
func (f *FleetRotation) mergeFlags(relations []kvbus.RelationID, flags map[string]string) error {
	for _, rel := range relations {
		existing, err := f.bus.ReadRelationData(rel)
		if err != nil {
			return fmt.Errorf("tlsfabric: reading relation %d: %w", rel, err)
		}
		merged := make(map[string]string, len(existing)+len(flags))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range flags {
			if v == "" {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		if err := f.bus.WriteRelationData(rel, merged); err != nil {
			return fmt.Errorf("tlsfabric: writing rotation flags to relation %d: %w", rel, err)
		}
	}
	return nil
}

// FleetFinished reports whether every unit on every given relation has
// tls_ca_renewed=true and tls_configured=true with no unit still
// tls_ca_renewing -- the gate before the old-ca alias is deleted and the
// old CA removed from chain.pem.
func (f *FleetRotation) FleetFinished(relations []kvbus.RelationID) (bool, error) {
	for _, rel := range relations {
		units, err := f.bus.RelatedUnits(rel)
		if err != nil {
			return false, fmt.Errorf("tlsfabric: listing units on relation %d: %w", rel, err)
		}
		data, err := f.bus.ReadRelationData(rel)
		if err != nil {
			return false, fmt.Errorf("tlsfabric: reading relation %d: %w", rel, err)
		}
		for _, unit := range units {
			if data[unitFlagKey(unit, flagCARenewing)] == "true" {
				return false, nil
			}
			if data[unitFlagKey(unit, flagCARenewed)] != "true" {
				return false, nil
			}
			if data[unitFlagKey(unit, flagTLSConfigured)] != "true" {
				return false, nil
			}
		}
	}
	return true, nil
}
