// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package profiler sequences a profiling session of one thread: record it with an external
// recorder, write the perf map, aggregate the samples into a top list and end the process.
package profiler // import "github.com/perfpt/jitperf/profiler"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/perfpt/jitperf/metrics"
	"github.com/perfpt/jitperf/recorder"
	"github.com/perfpt/jitperf/samples"
)

var (
	// ErrAlreadyInitialized is returned by Init after the first call.
	ErrAlreadyInitialized = errors.New("profiler already initialized")
	// ErrWaitTimeout is returned when a handshake wait exceeds Config.WaitTimeout.
	ErrWaitTimeout = errors.New("timed out waiting for the profiling session")
	// ErrSessionFailed is returned when the session worker failed while a caller waited on it.
	ErrSessionFailed = errors.New("profiling session failed")
)

// Dumper writes the current code address map.
type Dumper interface {
	DumpMap() (int, error)
}

// DumperFunc adapts a function to Dumper.
type DumperFunc func() (int, error)

func (f DumperFunc) DumpMap() (int, error) {
	return f()
}

// Config configures a Coordinator.
type Config struct {
	Recorder recorder.Recorder
	Dumper   Dumper
	// Output receives the top list. Defaults to os.Stdout.
	Output io.Writer
	// ThreadID identifies the calling OS thread. Defaults to unix.Gettid.
	ThreadID func() int
	// Terminator is called once the session is over. Defaults to os.Exit.
	Terminator Terminator
	// WaitTimeout bounds each handshake wait. Zero waits forever.
	WaitTimeout time.Duration
	// TopLimit is the number of routines written. Zero writes all.
	TopLimit int
}

// Coordinator runs one profiling session. Start and Stop identify the profiled thread by OS
// thread id, so callers pin their goroutine with runtime.LockOSThread around both calls.
type Coordinator struct {
	cfg    Config
	logger *log.Entry

	initialized atomic.Bool
	countdown   atomic.Int64
	phase       atomic.Uint32
	tid         atomic.Int64

	// wake hands the profiled thread over to the worker.
	wake chan struct{}

	// started is set by the worker right before recording begins.
	started atomic.Bool
	// recording is set while a Stop call may end the session.
	recording atomic.Bool
	completed atomic.Bool
	failed    atomic.Bool

	cancel context.CancelFunc
}

// New returns an idle Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Recorder == nil {
		return nil, errors.New("missing recorder")
	}
	if cfg.Dumper == nil {
		return nil, errors.New("missing map dumper")
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.ThreadID == nil {
		cfg.ThreadID = unix.Gettid
	}
	if cfg.Terminator == nil {
		cfg.Terminator = exitTerminator{}
	}

	return &Coordinator{
		cfg:    cfg,
		logger: log.WithField("session", uuid.NewString()),
		wake:   make(chan struct{}, 1),
	}, nil
}

// Phase returns the current session phase.
func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Coordinator) setPhase(p Phase) {
	c.phase.Store(uint32(p))
	c.logger.Debugf("Session phase %v", p)
}

// Init arms the session: the worker starts waiting and the Start countdown is set. Only the
// first call has an effect.
func (c *Coordinator) Init(countdown int) error {
	if !c.initialized.CompareAndSwap(false, true) {
		c.logger.Warn("Profiler already initialized")
		return ErrAlreadyInitialized
	}
	c.countdown.Store(int64(countdown))
	c.setPhase(PhaseArmed)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx)

	c.logger.Infof("Profiler armed, recording starts after %d Start calls", countdown)
	return nil
}

// Start counts down. The call that reaches zero hands its thread to the recorder and returns
// once recording is live. All other calls return immediately.
func (c *Coordinator) Start() error {
	if c.countdown.Add(-1) != 0 {
		return nil
	}

	tid := c.cfg.ThreadID()
	c.tid.Store(int64(tid))
	c.logger.Infof("Starting to profile thread %d", tid)

	begin := time.Now()
	c.wake <- struct{}{}
	if err := c.waitFor(c.started.Load); err != nil {
		return err
	}
	if err := c.waitFor(c.cfg.Recorder.Ready); err != nil {
		return err
	}
	metrics.Add(metrics.IDSessionStartWaitMs, metrics.MetricValue(time.Since(begin).Milliseconds()))
	return nil
}

// Stop ends the session when called on the profiled thread while recording. It waits for the
// map dump and report and then terminates the process. Other calls do nothing.
func (c *Coordinator) Stop() error {
	if !c.recording.Load() {
		return nil
	}
	if tid := c.cfg.ThreadID(); int64(tid) != c.tid.Load() {
		c.logger.Debugf("Ignoring stop from thread %d", tid)
		return nil
	}

	begin := time.Now()
	c.cfg.Recorder.RequestStop()
	c.recording.Store(false)
	if err := c.waitFor(c.completed.Load); err != nil {
		return err
	}
	c.completed.Store(false)
	metrics.Add(metrics.IDSessionStopWaitMs, metrics.MetricValue(time.Since(begin).Milliseconds()))

	c.setPhase(PhaseTerminated)
	c.cfg.Terminator.Terminate(Termination{Code: ExitStopped, Reason: "profiling finished"})
	return nil
}

// Close stops a worker that was never woken.
func (c *Coordinator) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// waitFor spins until cond holds, the worker fails or the wait timeout passes.
func (c *Coordinator) waitFor(cond func() bool) error {
	var deadline time.Time
	if c.cfg.WaitTimeout > 0 {
		deadline = time.Now().Add(c.cfg.WaitTimeout)
	}
	for !cond() {
		if c.failed.Load() {
			return ErrSessionFailed
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrWaitTimeout
		}
		runtime.Gosched()
	}
	return nil
}

func (c *Coordinator) run(ctx context.Context) {
	select {
	case <-c.wake:
	case <-ctx.Done():
		return
	}

	tid := int(c.tid.Load())
	c.setPhase(PhaseRecording)
	c.recording.Store(true)
	c.started.Store(true)
	if err := c.cfg.Recorder.Record(ctx, tid); err != nil {
		c.fail(fmt.Errorf("recording thread %d: %w", tid, err))
		return
	}

	c.setPhase(PhaseDumping)
	n, err := c.cfg.Dumper.DumpMap()
	if err != nil {
		c.fail(fmt.Errorf("writing perf map: %w", err))
		return
	}
	c.logger.Debugf("Dumped %d map entries", n)

	c.setPhase(PhaseReporting)
	if err := c.report(ctx); err != nil {
		c.fail(err)
		return
	}

	c.setPhase(PhaseDone)
	c.completed.Store(true)
}

func (c *Coordinator) report(ctx context.Context) error {
	table := samples.NewTable()
	if err := c.cfg.Recorder.Samples(ctx, func(s samples.Sample) error {
		table.Visit(s)
		return nil
	}); err != nil {
		return fmt.Errorf("reading samples: %w", err)
	}
	if err := samples.WriteTop(c.cfg.Output, table.Rank(), c.cfg.TopLimit); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func (c *Coordinator) fail(err error) {
	c.logger.Errorf("Profiling session failed: %v", err)
	c.recording.Store(false)
	c.failed.Store(true)
	c.setPhase(PhaseTerminated)
	c.cfg.Terminator.Terminate(Termination{Code: ExitFailed, Reason: err.Error()})
}
