// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profiler // import "github.com/perfpt/jitperf/profiler"

import (
	"os"

	log "github.com/sirupsen/logrus"
)

const (
	// ExitStopped is the exit code after a completed session.
	ExitStopped = 1
	// ExitFailed is the exit code after the session worker failed.
	ExitFailed = 2
)

// Termination asks the host process to exit.
type Termination struct {
	Code   int
	Reason string
}

// Terminator ends the host process once a session is over.
type Terminator interface {
	Terminate(Termination)
}

// TerminatorFunc adapts a function to Terminator.
type TerminatorFunc func(Termination)

func (f TerminatorFunc) Terminate(t Termination) {
	f(t)
}

type exitTerminator struct{}

func (exitTerminator) Terminate(t Termination) {
	log.Infof("Exiting with code %d: %s", t.Code, t.Reason)
	os.Exit(t.Code)
}
