// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package samples folds a time ordered stream of samples into per routine self time and
// invocation counts.
package samples // import "github.com/perfpt/jitperf/samples"

import (
	"cmp"
	"slices"

	"github.com/perfpt/jitperf/metrics"
)

// Sample is one observation of the program counter.
type Sample struct {
	// Timestamp in nanoseconds.
	Timestamp uint64
	// Symbol is the function the sampled address resolved to.
	Symbol string
	// Origin is the object (DSO or perf map) the symbol came from.
	Origin string
}

// Name returns the routine key "symbol@origin".
func (s Sample) Name() string {
	return s.Symbol + "@" + s.Origin
}

// Routine accumulates the statistics of one symbol@origin.
type Routine struct {
	Name string
	// SelfTime is the time in nanoseconds the routine was the latest observed sample.
	SelfTime uint64
	// Invocations counts how often the sample stream switched to the routine.
	Invocations uint64
}

// Table aggregates samples. It is not safe for concurrent use; the reporting pass owns it.
//
// Time is credited to a routine when the stream switches away from it, so the interval of
// the last routine stays open until Close is called.
type Table struct {
	routines map[string]*Routine
	// created keeps routines in creation order, which breaks ranking ties.
	created []*Routine

	current      *Routine
	currentStart uint64

	// visited counts all samples; reported is the part already added to the metric.
	visited, reported uint64
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{routines: make(map[string]*Routine)}
}

// Visit feeds the next sample. Consecutive samples of the same routine coalesce.
func (t *Table) Visit(s Sample) {
	t.visited++
	name := s.Name()

	if t.current == nil {
		t.current = t.arrive(name)
		t.currentStart = s.Timestamp
		return
	}
	if name == t.current.Name {
		return
	}

	t.credit(s.Timestamp)
	t.current = t.arrive(name)
	t.currentStart = s.Timestamp
}

// Close credits the open interval of the current routine up to timestamp.
func (t *Table) Close(timestamp uint64) {
	if t.current == nil {
		return
	}
	t.credit(timestamp)
	t.currentStart = max(t.currentStart, timestamp)
}

// credit adds the time since the current routine started. Out of order timestamps credit
// nothing rather than wrapping around.
func (t *Table) credit(timestamp uint64) {
	if timestamp > t.currentStart {
		t.current.SelfTime += timestamp - t.currentStart
	}
}

func (t *Table) arrive(name string) *Routine {
	if r, ok := t.routines[name]; ok {
		r.Invocations++
		return r
	}
	r := &Routine{Name: name, Invocations: 1}
	t.routines[name] = r
	t.created = append(t.created, r)
	return r
}

// Len returns the number of distinct routines.
func (t *Table) Len() int {
	return len(t.created)
}

// Visited returns the number of samples fed to Visit.
func (t *Table) Visited() uint64 {
	return t.visited
}

// Lookup returns a copy of the statistics of name.
func (t *Table) Lookup(name string) (Routine, bool) {
	r, ok := t.routines[name]
	if !ok {
		return Routine{}, false
	}
	return *r, true
}

// Rank snapshots all routines ordered by descending self time. Routines with equal self time
// keep their creation order.
func (t *Table) Rank() Ranking {
	ranked := make([]Routine, len(t.created))
	for i, r := range t.created {
		ranked[i] = *r
	}
	slices.SortStableFunc(ranked, func(a, b Routine) int {
		return cmp.Compare(b.SelfTime, a.SelfTime)
	})

	metrics.AddSlice([]metrics.Metric{
		{ID: metrics.IDSamplesVisited, Value: metrics.MetricValue(t.visited - t.reported)},
		{ID: metrics.IDRoutines, Value: metrics.MetricValue(len(ranked))},
	})
	t.reported = t.visited
	return Ranking{routines: ranked}
}

// Ranking is the ordered result of Table.Rank. Indices run from 0 (most self time) to Len()-1.
type Ranking struct {
	routines []Routine
}

// Len returns the number of ranked routines.
func (r Ranking) Len() int {
	return len(r.routines)
}

// At returns the routine at index i.
func (r Ranking) At(i int) Routine {
	return r.routines[i]
}

// TopAt returns the name of the routine at index i.
func (r Ranking) TopAt(i int) string {
	return r.routines[i].Name
}

// SelfTimeAt returns the self time of the routine at index i.
func (r Ranking) SelfTimeAt(i int) uint64 {
	return r.routines[i].SelfTime
}

// InvocationsAt returns the invocation count of the routine at index i.
func (r Ranking) InvocationsAt(i int) uint64 {
	return r.routines[i].Invocations
}

// TotalSelfTime sums the self time of all routines.
func (r Ranking) TotalSelfTime() uint64 {
	var total uint64
	for _, routine := range r.routines {
		total += routine.SelfTime
	}
	return total
}
