// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package recorder drives the external sampling profiler that records the profiled thread.
package recorder // import "github.com/perfpt/jitperf/recorder"

import (
	"context"

	"github.com/perfpt/jitperf/samples"
)

// Recorder records one thread until asked to stop and then replays the recorded samples.
type Recorder interface {
	// Record blocks while the thread tid is being recorded. It returns once the recording
	// has ended, either because RequestStop was called or because ctx was cancelled.
	Record(ctx context.Context, tid int) error
	// Ready reports whether the recording is capturing samples.
	Ready() bool
	// RequestStop asks a running (or not yet started) recording to end.
	RequestStop()
	// Samples calls visit for every recorded sample in time order.
	Samples(ctx context.Context, visit func(samples.Sample) error) error
}
