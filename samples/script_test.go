// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package samples

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string, opts ScriptOptions) []Sample {
	t.Helper()
	var got []Sample
	n, err := ParseScript(context.Background(), strings.NewReader(input),
		func(s Sample) error {
			got = append(got, s)
			return nil
		}, opts)
	require.NoError(t, err)
	assert.Len(t, got, n)
	return got
}

func TestParseScript(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected []Sample
	}{
		"plain samples": {
			input: `# ========
# captured on: Mon Oct 19 10:00:00 2026
# ========
            java  4242 [003] 1234.000000100:     250000 cycles:u:      7f0012345678 com.example.Main::loop()V+0x1c (/tmp/perf-4242.map)
            java  4242 [003] 1234.000000200:     250000 cycles:u:      7f7788990011 __memmove_avx_unaligned_erms+0x8 (/usr/lib/libc.so.6)
`,
			expected: []Sample{
				{Timestamp: 1234000000100, Symbol: "com.example.Main::loop()V",
					Origin: "/tmp/perf-4242.map"},
				{Timestamp: 1234000000200, Symbol: "__memmove_avx_unaligned_erms",
					Origin: "/usr/lib/libc.so.6"},
			},
		},
		"pid and tid": {
			input: "java 4242/4243 1.5: cycles:u: 1000 Interpreter (/tmp/perf-4242.map)\n",
			expected: []Sample{
				{Timestamp: 1500000000, Symbol: "Interpreter", Origin: "/tmp/perf-4242.map"},
			},
		},
		"callchain uses innermost frame": {
			input: `java  4242 [001] 10.000000001: cycles:u:
	    7f0012345678 Leaf::run()V+0x10 (/tmp/perf-4242.map)
	    7f0012345000 Caller::run()V+0x40 (/tmp/perf-4242.map)

java  4242 [001] 10.000000009: cycles:u:
	    7f0000000010 [unknown] ([unknown])

`,
			expected: []Sample{
				{Timestamp: 10000000001, Symbol: "Leaf::run()V", Origin: "/tmp/perf-4242.map"},
				{Timestamp: 10000000009, Symbol: UnknownSymbol, Origin: UnknownSymbol},
			},
		},
		"branch records use source": {
			input: "java 4242 [000] 20.000000003:          1  branches:u:  " +
				"7f0012345678 A::a()V+0x4 (/tmp/perf-4242.map) =>     7f0012349999 B::b()V+0x0 (/tmp/perf-4242.map)\n",
			expected: []Sample{
				{Timestamp: 20000000003, Symbol: "A::a()V", Origin: "/tmp/perf-4242.map"},
			},
		},
		"microsecond timestamps": {
			input: "java 4242 [000] 3.000001: cycles:u: 7f00 f+0x1 (/lib/x.so)\n",
			expected: []Sample{
				{Timestamp: 3000001000, Symbol: "f", Origin: "/lib/x.so"},
			},
		},
		"address only": {
			input: "java 4242 [000] 3.000000001: cycles:u: 7f00 ([unknown])\n",
			expected: []Sample{
				{Timestamp: 3000000001, Symbol: UnknownSymbol, Origin: UnknownSymbol},
			},
		},
		"malformed lines are skipped": {
			input: `garbage
java 4242 [000] 4.000000001 no event here
java 4242 [000] 4.000000002: cycles:u: 7f00 ok (/lib/x.so)
`,
			expected: []Sample{
				{Timestamp: 4000000002, Symbol: "ok", Origin: "/lib/x.so"},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, collect(t, tc.input, ScriptOptions{}))
		})
	}
}

func TestParseScriptDemangle(t *testing.T) {
	input := "a.out 1 [000] 1.000000001: cycles:u: 401000 _ZN3foo3barEv+0x4 (/tmp/a.out)\n"

	got := collect(t, input, ScriptOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, "_ZN3foo3barEv", got[0].Symbol)

	got = collect(t, input, ScriptOptions{Demangle: true})
	require.Len(t, got, 1)
	assert.Equal(t, "foo::bar()", got[0].Symbol)
}

func TestParseScriptVisitError(t *testing.T) {
	input := `java 1 [000] 1.000000001: cycles:u: 7f00 a (/x)
java 1 [000] 1.000000002: cycles:u: 7f00 b (/x)
`
	errStop := errors.New("stop")
	calls := 0
	n, err := ParseScript(context.Background(), strings.NewReader(input),
		func(Sample) error {
			calls++
			return errStop
		}, ScriptOptions{})
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)
}

func TestParseScriptIntoTable(t *testing.T) {
	input := `java 1 [000] 1.000000000: cycles:u: 7f00 A (/x)
java 1 [000] 1.000000010: cycles:u: 7f00 A (/x)
java 1 [000] 1.000000020: cycles:u: 7f00 B (/x)
java 1 [000] 1.000000030: cycles:u: 7f00 A (/x)
`
	table := NewTable()
	_, err := ParseScript(context.Background(), strings.NewReader(input),
		func(s Sample) error {
			table.Visit(s)
			return nil
		}, ScriptOptions{})
	require.NoError(t, err)

	ranking := table.Rank()
	require.Equal(t, 2, ranking.Len())
	assert.Equal(t, "A@/x", ranking.TopAt(0))
	assert.Equal(t, uint64(2), ranking.InvocationsAt(0))
	assert.Equal(t, "B@/x", ranking.TopAt(1))
	assert.Equal(t, uint64(1), ranking.InvocationsAt(1))
}
