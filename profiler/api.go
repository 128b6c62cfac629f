// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/perfpt/jitperf/profiler"

import (
	"errors"
	"sync"

	"github.com/perfpt/jitperf/jvmti"
	"github.com/perfpt/jitperf/recorder"
)

var errNoAgent = errors.New("no JIT agent loaded")

var (
	defaultOnce        sync.Once
	defaultCoordinator *Coordinator
)

// Default returns the process wide coordinator. It records with perf and dumps the map of the
// agent registered by jvmti.OnLoad.
func Default() *Coordinator {
	defaultOnce.Do(func() {
		c, err := New(Config{
			Recorder: recorder.NewPerf(recorder.PerfConfig{}),
			Dumper: DumperFunc(func() (int, error) {
				agent := jvmti.Default()
				if agent == nil {
					return 0, errNoAgent
				}
				return agent.DumpMap()
			}),
		})
		if err != nil {
			// Both dependencies are set above.
			panic(err)
		}
		defaultCoordinator = c
	})
	return defaultCoordinator
}

// Init arms the default coordinator. See Coordinator.Init.
func Init(countdown int) error {
	return Default().Init(countdown)
}

// Start counts down on the default coordinator. See Coordinator.Start.
func Start() error {
	return Default().Start()
}

// Stop ends the default session. See Coordinator.Stop.
func Stop() error {
	return Default().Stop()
}
