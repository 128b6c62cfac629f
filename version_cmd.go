// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/perfpt/jitperf/vc"
)

func newVersionCmd(stdout io.Writer) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "version",
		ShortHelp:  "Show version",
		Exec: func(context.Context, []string) error {
			_, err := fmt.Fprintln(stdout, vc.Summary())
			return err
		},
	}
}
