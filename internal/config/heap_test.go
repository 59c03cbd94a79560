// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

func TestHeapBytesProduction(t *testing.T) {
	heap, err := HeapBytes(model.ProfileProduction, 16*UnitG)
	require.NoError(t, err)
	assert.EqualValues(t, 8*UnitG, heap)
}

func TestHeapBytesProductionCapsAt32G(t *testing.T) {
	heap, err := HeapBytes(model.ProfileProduction, 128*UnitG)
	require.NoError(t, err)
	assert.EqualValues(t, 32*UnitG, heap)
}

func TestHeapBytesStaging(t *testing.T) {
	heap, err := HeapBytes(model.ProfileStaging, 16*UnitG)
	require.NoError(t, err)
	assert.EqualValues(t, 4*UnitG, heap)
}

func TestHeapBytesTestingIsFlat(t *testing.T) {
	heap, err := HeapBytes(model.ProfileTesting, 128*UnitG)
	require.NoError(t, err)
	assert.EqualValues(t, UnitG, heap)
}

func TestFormatJvmHeapSize(t *testing.T) {
	assert.Equal(t, "1k", FormatJvmHeapSize(100))
	assert.Equal(t, "1m", FormatJvmHeapSize(UnitM))
	assert.Equal(t, "1g", FormatJvmHeapSize(UnitG))
	assert.Equal(t, "1500m", FormatJvmHeapSize(1500*UnitM))
}

func TestFormatJvmHeapMinMax(t *testing.T) {
	assert.Equal(t, "-Xms2g -Xmx2g", FormatJvmHeapMinMax("2g"))
}
