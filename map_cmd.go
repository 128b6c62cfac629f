// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/perfpt/jitperf/internal/controller"
)

type mapCmd struct {
	stdout io.Writer

	// User-specified command line arguments.
	addrs string
	list  bool
}

func newMapCmd(stdout io.Writer) *ffcli.Command {
	cmd := mapCmd{stdout: stdout}
	set := flag.NewFlagSet("map", flag.ContinueOnError)
	set.StringVar(&cmd.addrs, "addr", "",
		"Comma separated hex addresses to look up in the map")
	set.BoolVar(&cmd.list, "list", false, "Print all entries sorted by address")
	return &ffcli.Command{
		Name:       "map",
		ShortUsage: "map [flags] <perf-map-file>",
		ShortHelp:  "Summarize a perf map file and resolve addresses against it",
		FlagSet:    set,
		Exec:       cmd.exec,
	}
}

func (cmd *mapCmd) exec(_ context.Context, args []string) error {
	if len(args) != 1 {
		return controller.WithExitCode(errors.New("expected exactly one perf map file"),
			controller.ExitParseError)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	summary, regions, err := controller.ReadMap(f)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.stdout, "entries:  %d\n", summary.Entries)
	fmt.Fprintf(cmd.stdout, "overlaps: %d\n", summary.Overlaps)
	fmt.Fprintf(cmd.stdout, "range:    %#x-%#x\n", summary.Low, summary.High)

	if cmd.list {
		for _, region := range regions {
			fmt.Fprintf(cmd.stdout, "%x %x %s\n", region.Start, region.Length, region.Name)
		}
	}

	if cmd.addrs == "" {
		return nil
	}
	for field := range strings.SplitSeq(cmd.addrs, ",") {
		field = strings.TrimSpace(field)
		addr, err := strconv.ParseUint(strings.TrimPrefix(field, "0x"), 16, 64)
		if err != nil {
			return controller.WithExitCode(fmt.Errorf("invalid address %q: %v", field, err),
				controller.ExitParseError)
		}
		if region, ok := controller.FindRegion(regions, addr); ok {
			fmt.Fprintf(cmd.stdout, "%#x: %s+%#x\n", addr, region.Name, addr-region.Start)
		} else {
			fmt.Fprintf(cmd.stdout, "%#x: not mapped\n", addr)
		}
	}
	return nil
}
