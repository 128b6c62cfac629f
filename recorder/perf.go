// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package recorder // import "github.com/perfpt/jitperf/recorder"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/perfpt/jitperf/samples"
)

const (
	// DefaultBinary is looked up in PATH.
	DefaultBinary = "perf"
	// DefaultEvent records user space Intel PT with cycle accurate timing.
	DefaultEvent = "intel_pt/cyc,cyc_thresh=0/u"
	// DefaultDataPath is where perf record writes by default.
	DefaultDataPath = "perf.data"
)

// PerfConfig configures Perf. Zero values select the defaults.
type PerfConfig struct {
	Binary   string
	Event    string
	DataPath string
	// ExtraRecordArgs are appended to the perf record command line.
	ExtraRecordArgs []string
	Script          samples.ScriptOptions
}

// Perf records with `perf record` and replays with `perf script --ns`.
type Perf struct {
	cfg PerfConfig

	process       atomic.Pointer[os.Process]
	running       atomic.Bool
	stopRequested atomic.Bool
}

var _ Recorder = (*Perf)(nil)

// NewPerf returns a Perf recorder for cfg.
func NewPerf(cfg PerfConfig) *Perf {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Event == "" {
		cfg.Event = DefaultEvent
	}
	if cfg.DataPath == "" {
		cfg.DataPath = DefaultDataPath
	}
	return &Perf{cfg: cfg}
}

// DataPath returns the file perf record writes to.
func (p *Perf) DataPath() string {
	return p.cfg.DataPath
}

func (p *Perf) recordArgs(tid int) []string {
	args := []string{"record", "-e", p.cfg.Event, "--tid", strconv.Itoa(tid),
		"-o", p.cfg.DataPath}
	return append(args, p.cfg.ExtraRecordArgs...)
}

func (p *Perf) scriptArgs() []string {
	return []string{"script", "--ns", "-i", p.cfg.DataPath}
}

// Record runs perf record for tid until RequestStop is called.
func (p *Perf) Record(ctx context.Context, tid int) error {
	stderr := log.StandardLogger().WriterLevel(log.DebugLevel)
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, p.cfg.Binary, p.recordArgs(tid)...)
	cmd.Stderr = stderr
	cmd.Stdout = stderr

	// Ready keys off the data file, so a file left by an earlier run must go first.
	if err := os.Remove(p.cfg.DataPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale %s: %v", p.cfg.DataPath, err)
	}

	log.Debugf("Starting %s %v", p.cfg.Binary, cmd.Args[1:])
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s record: %v", p.cfg.Binary, err)
	}
	p.process.Store(cmd.Process)
	p.running.Store(true)
	defer func() {
		p.running.Store(false)
		p.process.Store(nil)
	}()

	// A stop request may have raced with the start.
	if p.stopRequested.Load() {
		p.signalStop(cmd.Process)
	}

	err := cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if p.stopRequested.Load() && errors.As(err, &exitErr) {
			log.Debugf("%s record ended after stop request: %v", p.cfg.Binary, err)
			return nil
		}
		return fmt.Errorf("%s record failed: %w", p.cfg.Binary, err)
	}
	return nil
}

// Ready reports whether perf record is running and has written its data file header.
func (p *Perf) Ready() bool {
	if !p.running.Load() {
		return false
	}
	info, err := os.Stat(p.cfg.DataPath)
	return err == nil && info.Size() > 0
}

// RequestStop sends SIGINT to perf record, which makes it flush and exit.
func (p *Perf) RequestStop() {
	p.stopRequested.Store(true)
	if process := p.process.Load(); process != nil {
		p.signalStop(process)
	}
}

func (p *Perf) signalStop(process *os.Process) {
	if err := process.Signal(unix.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Warnf("Failed to interrupt %s record: %v", p.cfg.Binary, err)
	}
}

// Samples runs perf script over the recorded data and parses its output.
func (p *Perf) Samples(ctx context.Context, visit func(samples.Sample) error) error {
	stderr := log.StandardLogger().WriterLevel(log.DebugLevel)
	defer stderr.Close()

	g, ctx := errgroup.WithContext(ctx)
	pr, pw := io.Pipe()

	cmd := exec.CommandContext(ctx, p.cfg.Binary, p.scriptArgs()...)
	cmd.Stdout = pw
	cmd.Stderr = stderr

	g.Go(func() error {
		err := cmd.Run()
		if err != nil {
			err = fmt.Errorf("%s script failed: %w", p.cfg.Binary, err)
		}
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		n, err := samples.ParseScript(ctx, pr, visit, p.cfg.Script)
		// Unblock perf script if parsing stopped early.
		pr.CloseWithError(io.ErrClosedPipe)
		if err != nil {
			return err
		}
		log.Debugf("Parsed %d samples from %s", n, p.cfg.DataPath)
		return nil
	})
	return g.Wait()
}
