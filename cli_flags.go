// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"io"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"github.com/perfpt/jitperf/internal/controller"
)

const (
	// Default values for CLI flags
	defaultArgTop    = 20
	defaultArgOutput = controller.StdStream

	envVarPrefix = "JITPERF"
)

// Help strings for command line arguments
var (
	verboseModeHelp = "Enable verbose logging and debugging capabilities."
	inputHelp       = "File with `perf script --ns` output, zstd compressed or not. " +
		"Use - for stdin."
	outputHelp   = "File the top list is written to. Use - for stdout."
	topHelp      = "Number of routines to report. 0 reports all."
	demangleHelp = "Demangle C++ symbols perf did not demangle."
)

// ffOptions are shared by all commands that take flags.
func ffOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(envVarPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the current version
		// does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	}
}

func newRootCmd(stdout io.Writer) *ffcli.Command {
	var verbose bool
	fs := flag.NewFlagSet("jitperf", flag.ContinueOnError)
	fs.BoolVar(&verbose, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&verbose, "verbose", false, verboseModeHelp)
	fs.String("config", "", "Config file path.")

	setVerbose := func() bool {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
		return verbose
	}

	return &ffcli.Command{
		Name:       "jitperf",
		ShortUsage: "jitperf [flags] <subcommand> [flags]",
		ShortHelp:  "Tool for inspecting JIT perf maps and profiling sessions",
		FlagSet:    fs,
		Options:    ffOptions(),
		Subcommands: []*ffcli.Command{
			newReportCmd(stdout, setVerbose),
			newMapCmd(stdout),
			newVersionCmd(stdout),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

type reportCmd struct {
	cfg        controller.Config
	stdout     io.Writer
	setVerbose func() bool
}

func newReportCmd(stdout io.Writer, setVerbose func() bool) *ffcli.Command {
	cmd := reportCmd{stdout: stdout, setVerbose: setVerbose}
	fs := flag.NewFlagSet("report", flag.ContinueOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.BoolVar(&cmd.cfg.Demangle, "demangle", false, demangleHelp)
	fs.String("config", "", "Config file path.")
	fs.StringVar(&cmd.cfg.Input, "input", controller.StdStream, inputHelp)
	fs.StringVar(&cmd.cfg.Output, "output", defaultArgOutput, outputHelp)
	fs.IntVar(&cmd.cfg.Top, "top", defaultArgTop, topHelp)

	cmd.cfg.Fs = fs

	return &ffcli.Command{
		Name:       "report",
		ShortUsage: "report [flags]",
		ShortHelp:  "Aggregate recorded samples into a top list of routines",
		FlagSet:    fs,
		Options:    ffOptions(),
		Exec:       cmd.exec,
	}
}

func (cmd *reportCmd) exec(ctx context.Context, _ []string) error {
	if cmd.setVerbose() {
		cmd.cfg.VerboseMode = true
		// Dump the arguments in debug mode.
		cmd.cfg.Dump()
	}
	if err := cmd.cfg.Validate(); err != nil {
		return controller.WithExitCode(err, controller.ExitParseError)
	}

	c := controller.New(&cmd.cfg)
	if cmd.cfg.Output == controller.StdStream {
		c.SetStdout(cmd.stdout)
	}
	return c.Report(ctx)
}
