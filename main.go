// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// jitperf inspects the output of a profiling session: perf map files written by the JIT
// agent and recorded samples.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/perfpt/jitperf/internal/controller"
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	root := newRootCmd(os.Stdout)

	if err := root.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return controller.ExitSuccess
		}
		return parseError("Failure to parse arguments: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer cancel()

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return controller.ExitSuccess
		}
		var coded controller.ErrorWithExitCode
		if errors.As(err, &coded) {
			log.Error(err)
			return coded.Code()
		}
		return failure("%v", err)
	}
	return controller.ExitSuccess
}

func parseError(msg string, args ...any) int {
	log.Errorf(msg, args...)
	return controller.ExitParseError
}

func failure(msg string, args ...any) int {
	log.Errorf(msg, args...)
	return controller.ExitFailure
}
