// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package config

import (
	"fmt"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

// Byte size units, adapted from pkg/util/memory.
const (
	UnitK = 1024
	UnitM = 1024 * UnitK
	UnitG = 1024 * UnitM
)

// HeapBytes computes the JVM heap size in bytes for a node given its
// profile and the total RAM available to it:
//   production = min(50% RAM, 32GiB)
//   staging    = 25% RAM
//   testing    = 1GiB flat
func HeapBytes(profile model.Profile, ramBytes int64) (int64, error) {
	switch profile {
	case model.ProfileProduction:
		half := ramBytes / 2
		if half > 32*UnitG {
			return 32 * UnitG, nil
		}
		return half, nil
	case model.ProfileStaging:
		return ramBytes / 4, nil
	case model.ProfileTesting:
		return UnitG, nil
	default:
		return 0, fmt.Errorf("unknown profile %q", profile)
	}
}

// FormatJvmHeapMinMax returns the -Xms/-Xmx pair java.options expects,
// kept verbatim from pkg/util/memory.FormatJvmHeapMinMax.
func FormatJvmHeapMinMax(heap string) string {
	return fmt.Sprintf("-Xms%s -Xmx%s", heap, heap)
}

// FormatJvmHeapSize renders sizeB as a whole-number JVM size string (e.g.
// "1500m", "50g"), kept verbatim from pkg/util/memory.FormatJvmHeapSize.
func FormatJvmHeapSize(sizeB int64) string {
	if sizeB >= UnitG {
		if sizeB%UnitG == 0 {
			return fmt.Sprintf("%.0fg", float64(sizeB)/UnitG)
		}
		if sizeB%UnitM == 0 {
			return fmt.Sprintf("%.0fm", float64(sizeB)/UnitM)
		}
		return fmt.Sprintf("%.0fm", float64(sizeB)/UnitM+1)
	}
	if sizeB >= UnitM && sizeB%UnitM == 0 {
		return fmt.Sprintf("%.0fm", float64(sizeB)/UnitM)
	}
	if sizeB%UnitK == 0 {
		return fmt.Sprintf("%.0fk", float64(sizeB)/UnitK)
	}
	return fmt.Sprintf("%vk", sizeB/UnitK+1)
}
