// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package jitmap tracks where JIT compiled methods live in memory and writes that knowledge
// out as perf map files.
package jitmap // import "github.com/perfpt/jitperf/jitmap"

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/perfpt/jitperf/libpf/xsync"
	"github.com/perfpt/jitperf/symbolizer"
)

// Region is a named range of JIT generated machine code. Regions order and compare by Start.
type Region struct {
	Start  uint64
	Length uint64
	Name   string
}

// End returns the first address after the region.
func (r Region) End() uint64 {
	return r.Start + r.Length
}

func (r Region) String() string {
	return fmt.Sprintf("%s@%x for %d bytes", r.Name, r.Start, r.Length)
}

// record holds the live code regions of one compiled method.
type record struct {
	id      symbolizer.MethodID
	regions []Region
}

// Registry maps method ids to their currently loaded code regions.
//
// Mutations are serialized by a lock and Dump works on a snapshot, so compiler events may
// arrive from any thread while a dump is in progress. Between a racing load and unload of the
// same id the later one wins.
type Registry struct {
	records xsync.RWMutex[map[symbolizer.MethodID]*record]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		records: xsync.NewRWMutex(make(map[symbolizer.MethodID]*record)),
	}
}

// Load replaces the region set of id with regions. Earlier regions of id are dropped even
// if the code they describe is still mapped; only the latest load is retained.
func (r *Registry) Load(id symbolizer.MethodID, regions ...Region) {
	set := sortedRegionSet(regions)

	records := r.records.WLock()
	defer r.records.WUnlock(&records)

	rec, ok := (*records)[id]
	if !ok {
		rec = &record{id: id}
		(*records)[id] = rec
	}
	rec.regions = set
}

// Unload removes id. Unknown ids are ignored.
func (r *Registry) Unload(id symbolizer.MethodID) {
	records := r.records.WLock()
	defer r.records.WUnlock(&records)
	delete(*records, id)
}

// Len returns the number of methods with live code.
func (r *Registry) Len() int {
	records := r.records.RLock()
	defer r.records.RUnlock(&records)
	return len(*records)
}

// Regions returns a copy of the live regions of id.
func (r *Registry) Regions(id symbolizer.MethodID) ([]Region, bool) {
	records := r.records.RLock()
	defer r.records.RUnlock(&records)
	rec, ok := (*records)[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(rec.regions), true
}

// Dump calls emit once per region: methods in ascending id order, regions of a method in
// ascending address order. It returns the number of regions emitted before the first error.
func (r *Registry) Dump(emit func(Region) error) (int, error) {
	snapshot := r.snapshot()

	count := 0
	for _, region := range snapshot {
		if err := emit(region); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (r *Registry) snapshot() []Region {
	records := r.records.RLock()
	defer r.records.RUnlock(&records)

	ids := make([]symbolizer.MethodID, 0, len(*records))
	total := 0
	for id, rec := range *records {
		ids = append(ids, id)
		total += len(rec.regions)
	}
	slices.Sort(ids)

	regions := make([]Region, 0, total)
	for _, id := range ids {
		regions = append(regions, (*records)[id].regions...)
	}
	return regions
}

// sortedRegionSet orders regions by start address. Of several regions sharing a start only
// the first one is kept.
func sortedRegionSet(regions []Region) []Region {
	set := slices.Clone(regions)
	slices.SortStableFunc(set, func(a, b Region) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return slices.CompactFunc(set, func(a, b Region) bool {
		return a.Start == b.Start
	})
}
