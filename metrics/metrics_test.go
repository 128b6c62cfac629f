// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionsMatchIDs(t *testing.T) {
	defs := GetDefinitions()
	require.Len(t, defs, int(IDMax-1))

	seen := make(map[MetricID]bool)
	for _, d := range defs {
		assert.False(t, seen[d.ID], "duplicate id %d", d.ID)
		seen[d.ID] = true
		assert.Contains(t, []MetricType{MetricTypeCounter, MetricTypeGauge}, d.Type)
		assert.NotEmpty(t, d.Field)
	}
}

func TestAddCounterAndGauge(t *testing.T) {
	before := Value(IDMapEntriesWritten)
	Add(IDMapEntriesWritten, 3)
	AddSlice([]Metric{{IDMapEntriesWritten, 4}, {IDMapEntriesWritten, 0}})
	assert.Equal(t, before+7, Value(IDMapEntriesWritten))

	Add(IDRoutines, 10)
	Add(IDRoutines, 2)
	assert.Equal(t, MetricValue(2), Value(IDRoutines))
}

func TestAddOutOfRange(t *testing.T) {
	assert.NotPanics(t, func() {
		Add(IDInvalid, 1)
		Add(IDMax, 1)
	})
	assert.Equal(t, MetricValue(0), Value(IDMax))
}
