// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller runs the offline commands of jitperf.
package controller // import "github.com/perfpt/jitperf/internal/controller"

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"

	"github.com/perfpt/jitperf/samples"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Controller turns recorded perf script output into a top list.
type Controller struct {
	config *Config
	stdin  io.Reader
	stdout io.Writer
}

// New creates a new controller
func New(cfg *Config) *Controller {
	return &Controller{
		config: cfg,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// SetStdout replaces the writer used for the "-" output.
func (c *Controller) SetStdout(w io.Writer) {
	c.stdout = w
}

// Report aggregates the samples of the configured input and writes the top list.
func (c *Controller) Report(ctx context.Context) error {
	in, closeIn, err := c.openInput()
	if err != nil {
		return err
	}
	defer closeIn()

	table := samples.NewTable()
	n, err := samples.ParseScript(ctx, in, func(s samples.Sample) error {
		table.Visit(s)
		return nil
	}, samples.ScriptOptions{Demangle: c.config.Demangle})
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.config.Input, err)
	}
	ranking := table.Rank()
	log.Debugf("Aggregated %d samples into %d routines", n, ranking.Len())

	out, closeOut, err := c.openOutput()
	if err != nil {
		return err
	}
	if err := samples.WriteTop(out, ranking, c.config.Top); err != nil {
		_ = closeOut()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeOut()
}

func (c *Controller) openInput() (io.Reader, func(), error) {
	var (
		raw     io.Reader = c.stdin
		closers []func()
	)
	if c.config.Input != StdStream {
		f, err := os.Open(c.config.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open input: %w", err)
		}
		raw = f
		closers = append(closers, func() { _ = f.Close() })
	}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	buffered := bufio.NewReader(raw)
	magic, _ := buffered.Peek(len(zstdMagic))
	if !bytes.Equal(magic, zstdMagic) {
		return buffered, closeAll, nil
	}

	dec, err := zstd.NewReader(buffered)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	closers = append(closers, dec.Close)
	log.Debugf("Reading zstd compressed input %s", c.config.Input)
	return dec, closeAll, nil
}

func (c *Controller) openOutput() (io.Writer, func() error, error) {
	if c.config.Output == StdStream {
		return c.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(c.config.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	w := bufio.NewWriter(f)
	return w, func() error {
		if err := w.Flush(); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}, nil
}
