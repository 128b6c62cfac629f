// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const script = `java 1 [000] 1.000000000: cycles:u: 7f00 A (/tmp/perf-1.map)
java 1 [000] 1.000000010: cycles:u: 7f00 B (/tmp/perf-1.map)
java 1 [000] 1.000000040: cycles:u: 7f00 A (/tmp/perf-1.map)
java 1 [000] 1.000000050: cycles:u: 7f00 C (/tmp/perf-1.map)
`

func TestConfigValidate(t *testing.T) {
	for name, tc := range map[string]struct {
		cfg   Config
		valid bool
	}{
		"valid":     {cfg: Config{Input: "-", Output: "-"}, valid: true},
		"no input":  {cfg: Config{Output: "-"}},
		"no output": {cfg: Config{Input: "-"}},
		"bad top":   {cfg: Config{Input: "-", Output: "-", Top: -1}},
	} {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestReportFromStdin(t *testing.T) {
	var out bytes.Buffer
	c := New(&Config{Input: StdStream, Output: StdStream})
	c.stdin = strings.NewReader(script)
	c.stdout = &out

	require.NoError(t, c.Report(context.Background()))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "B@/tmp/perf-1.map")
	assert.Contains(t, lines[2], "A@/tmp/perf-1.map")
	assert.Contains(t, lines[3], "C@/tmp/perf-1.map")
}

func TestReportCompressedFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "script.txt.zst")
	output := filepath.Join(dir, "top.txt")

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(input, enc.EncodeAll([]byte(script), nil), 0o644))
	require.NoError(t, enc.Close())

	c := New(&Config{Input: input, Output: output, Top: 1})
	require.NoError(t, c.Report(context.Background()))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "B@/tmp/perf-1.map")
}

func TestReportMissingInput(t *testing.T) {
	c := New(&Config{Input: filepath.Join(t.TempDir(), "missing"), Output: StdStream})
	require.Error(t, c.Report(context.Background()))
}

func TestErrorWithExitCode(t *testing.T) {
	base := errors.New("boom")
	err := error(WithExitCode(base, ExitParseError))

	var coded ErrorWithExitCode
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ExitParseError, coded.Code())
	require.ErrorIs(t, err, base)
	assert.Equal(t, "boom", err.Error())
}

func TestReadMap(t *testing.T) {
	input := "1000 100 A\n1080 10 B\n2000 20 C\n1000 8 D\n"
	summary, regions, err := ReadMap(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, MapSummary{Entries: 4, Overlaps: 1, Low: 0x1000, High: 0x2020}, summary)

	for _, tc := range []struct {
		addr  uint64
		name  string
		found bool
	}{
		{addr: 0xfff},
		{addr: 0x1000, name: "D", found: true},
		{addr: 0x1008, name: "A", found: true},
		{addr: 0x1085, name: "B", found: true},
		{addr: 0x10a0, name: "A", found: true},
		{addr: 0x1100},
		{addr: 0x201f, name: "C", found: true},
		{addr: 0x2020},
	} {
		region, found := FindRegion(regions, tc.addr)
		assert.Equal(t, tc.found, found, "%x", tc.addr)
		if tc.found {
			assert.Equal(t, tc.name, region.Name, "%x", tc.addr)
		}
	}

	_, _, err = ReadMap(strings.NewReader("nonsense\n"))
	require.Error(t, err)

	summary, _, err = ReadMap(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, MapSummary{}, summary)
	_, found := FindRegion(nil, 1)
	assert.False(t, found)
}
