// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/perfpt/jitperf/internal/controller"

import (
	"errors"
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// StdStream selects stdin or stdout in place of a file name.
const StdStream = "-"

// Config holds the arguments of the report command.
type Config struct {
	// Input is `perf script --ns` output, optionally zstd compressed.
	Input string
	// Output receives the top list.
	Output      string
	Top         int
	Demangle    bool
	VerboseMode bool

	Fs *flag.FlagSet
}

// Dump visits all flag sets, and dumps them all to debug
// Used for verbose mode logging.
func (cfg *Config) Dump() {
	log.Debug("Config:")
	cfg.Fs.VisitAll(func(f *flag.Flag) {
		log.Debug(fmt.Sprintf("%s: %v", f.Name, f.Value))
	})
}

// Validate runs validations on the provided configuration, and returns errors
// if invalid values were provided.
func (cfg *Config) Validate() error {
	if cfg.Input == "" {
		return errors.New("no input given")
	}
	if cfg.Output == "" {
		return errors.New("no output given")
	}
	if cfg.Top < 0 {
		return fmt.Errorf("invalid top limit %d", cfg.Top)
	}
	return nil
}
