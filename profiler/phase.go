// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/perfpt/jitperf/profiler"

// Phase is the lifecycle position of a profiling session.
type Phase uint32

const (
	PhaseIdle Phase = iota
	PhaseArmed
	PhaseRecording
	PhaseDumping
	PhaseReporting
	PhaseDone
	PhaseTerminated
)

var phaseToName = map[Phase]string{
	PhaseIdle:       "idle",
	PhaseArmed:      "armed",
	PhaseRecording:  "recording",
	PhaseDumping:    "dumping",
	PhaseReporting:  "reporting",
	PhaseDone:       "done",
	PhaseTerminated: "terminated",
}

func (p Phase) String() string {
	if name, ok := phaseToName[p]; ok {
		return name
	}
	return "<unknown>"
}
