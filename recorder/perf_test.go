// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfpt/jitperf/samples"
)

// fakePerf mimics the two perf subcommands used by Perf.
const fakePerf = `#!/bin/sh
case "$1" in
record)
	out=""
	for arg in "$@"; do
		if [ "$prev" = "-o" ]; then out="$arg"; fi
		prev="$arg"
	done
	echo "$@" > "$out.args"
	trap 'exit 0' INT
	if [ -n "$PERF_STARTUP_DELAY" ]; then sleep "$PERF_STARTUP_DELAY"; fi
	echo header > "$out"
	while true; do sleep 0.01; done
	;;
script)
	cat <<'EOS'
java 7 [000] 1.000000000: cycles:u: 7f00 A (/tmp/perf-7.map)
java 7 [000] 1.000000010: cycles:u: 7f00 B+0x4 (/tmp/perf-7.map)
java 7 [000] 1.000000030: cycles:u: 7f00 A (/tmp/perf-7.map)
EOS
	;;
*)
	exit 3
	;;
esac
`

func newFakePerf(t *testing.T) *Perf {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	binary := filepath.Join(dir, "perf")
	require.NoError(t, os.WriteFile(binary, []byte(fakePerf), 0o755))
	return NewPerf(PerfConfig{
		Binary:   binary,
		DataPath: filepath.Join(dir, "perf.data"),
	})
}

func TestPerfArgs(t *testing.T) {
	p := NewPerf(PerfConfig{ExtraRecordArgs: []string{"-m", "8"}})
	assert.Equal(t, []string{"record", "-e", "intel_pt/cyc,cyc_thresh=0/u", "--tid", "42",
		"-o", "perf.data", "-m", "8"}, p.recordArgs(42))
	assert.Equal(t, []string{"script", "--ns", "-i", "perf.data"}, p.scriptArgs())
	assert.Equal(t, "perf.data", p.DataPath())
	assert.False(t, p.Ready())
}

func TestPerfRecordAndReplay(t *testing.T) {
	p := newFakePerf(t)

	done := make(chan error, 1)
	go func() {
		done <- p.Record(context.Background(), 1234)
	}()

	require.Eventually(t, p.Ready, 5*time.Second, 5*time.Millisecond)
	p.RequestStop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("perf record did not stop")
	}
	assert.False(t, p.Ready())

	args, err := os.ReadFile(p.DataPath() + ".args")
	require.NoError(t, err)
	assert.Contains(t, string(args), "--tid 1234")
	assert.True(t, strings.HasPrefix(string(args), "record -e intel_pt/cyc,cyc_thresh=0/u"))

	var got []samples.Sample
	require.NoError(t, p.Samples(context.Background(), func(s samples.Sample) error {
		got = append(got, s)
		return nil
	}))
	assert.Equal(t, []samples.Sample{
		{Timestamp: 1000000000, Symbol: "A", Origin: "/tmp/perf-7.map"},
		{Timestamp: 1000000010, Symbol: "B", Origin: "/tmp/perf-7.map"},
		{Timestamp: 1000000030, Symbol: "A", Origin: "/tmp/perf-7.map"},
	}, got)
}

func TestPerfIgnoresStaleDataFile(t *testing.T) {
	p := newFakePerf(t)
	require.NoError(t, os.WriteFile(p.DataPath(), []byte("stale recording"), 0o644))
	t.Setenv("PERF_STARTUP_DELAY", "1")

	done := make(chan error, 1)
	go func() {
		done <- p.Record(context.Background(), 1)
	}()

	// The stale file is gone before perf runs; the fresh one appears after the delay.
	require.Eventually(t, func() bool { return p.running.Load() }, 5*time.Second,
		time.Millisecond)
	assert.False(t, p.Ready())
	require.Eventually(t, p.Ready, 5*time.Second, 5*time.Millisecond)

	data, err := os.ReadFile(p.DataPath())
	require.NoError(t, err)
	assert.Equal(t, "header\n", string(data))

	p.RequestStop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("perf record did not stop")
	}
}

func TestPerfStopBeforeStart(t *testing.T) {
	p := newFakePerf(t)
	p.RequestStop()

	done := make(chan error, 1)
	go func() {
		done <- p.Record(context.Background(), 1)
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("perf record did not stop")
	}
}

func TestPerfMissingBinary(t *testing.T) {
	p := NewPerf(PerfConfig{
		Binary:   filepath.Join(t.TempDir(), "missing"),
		DataPath: filepath.Join(t.TempDir(), "perf.data"),
	})
	require.Error(t, p.Record(context.Background(), 1))
	require.Error(t, p.Samples(context.Background(), func(samples.Sample) error { return nil }))
}
