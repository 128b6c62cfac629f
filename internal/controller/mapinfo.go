// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/perfpt/jitperf/internal/controller"

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/perfpt/jitperf/jitmap"
)

// MapSummary describes a perf map file.
type MapSummary struct {
	Entries  int
	Overlaps int
	// Low and High bound the covered address range.
	Low, High uint64
}

// ReadMap parses a perf map and summarizes it. The regions are returned sorted by start.
func ReadMap(r io.Reader) (MapSummary, []jitmap.Region, error) {
	regions, err := jitmap.ParseMap(r)
	if err != nil {
		return MapSummary{}, nil, fmt.Errorf("failed to parse perf map: %w", err)
	}
	summary := MapSummary{
		Entries:  len(regions),
		Overlaps: jitmap.Overlaps(regions),
	}
	if len(regions) > 0 {
		summary.Low = regions[0].Start
		for _, region := range regions {
			summary.High = max(summary.High, region.End())
		}
	}
	return summary, regions, nil
}

// FindRegion returns the region containing addr with the highest start address. Among regions
// with the same start the later one in the file wins.
func FindRegion(sorted []jitmap.Region, addr uint64) (jitmap.Region, bool) {
	idx, found := slices.BinarySearchFunc(sorted, addr, func(r jitmap.Region, a uint64) int {
		return cmp.Compare(r.Start, a)
	})
	if found {
		// Move past all regions starting at addr.
		for idx < len(sorted) && sorted[idx].Start == addr {
			idx++
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if addr < sorted[i].End() {
			return sorted[i], true
		}
	}
	return jitmap.Region{}, false
}
