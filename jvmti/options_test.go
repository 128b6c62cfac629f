// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package jvmti

import (
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfpt/jitperf/jitmap"
	"github.com/perfpt/jitperf/symbolizer"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		in       string
		expected Options
	}{
		{"", Options{}},
		{"unfold", Options{Unfold: jitmap.UnfoldDefault}},
		{"unfoldsimple", Options{Unfold: jitmap.UnfoldSimple}},
		{"unfold,unfoldall", Options{Unfold: jitmap.UnfoldAll}},
		{"unfoldsimple,unfoldall", Options{Unfold: jitmap.UnfoldAll}},
		{"msig, sourcepos ,dottedclass", Options{Symbols: symbolizer.Options{
			MethodSignatures: true, SourcePositions: true, DottedClassNames: true}}},
		// Switch names are case sensitive.
		{"DottedClass", Options{}},
		{"debug_dump_unfold_entries,unfold", Options{Unfold: jitmap.UnfoldDefault,
			DebugDumpUnfoldEntries: true}},
		// The debug switch contains "unfold" and so enables unfolding on its own.
		{"debug_dump_unfold_entries", Options{Unfold: jitmap.UnfoldDefault,
			DebugDumpUnfoldEntries: true}},
		{"bogus,,msig", Options{Symbols: symbolizer.Options{MethodSignatures: true}}},
		// Switches match anywhere in the blob.
		{"unfoldall msig", Options{Unfold: jitmap.UnfoldAll,
			Symbols: symbolizer.Options{MethodSignatures: true}}},
		{"opts=unfoldsimple", Options{Unfold: jitmap.UnfoldSimple}},
		{"unfoldsimple;sourcepos", Options{Unfold: jitmap.UnfoldSimple,
			Symbols: symbolizer.Options{SourcePositions: true}}},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseOptions(tc.in))
		})
	}
}

func TestOptionsString(t *testing.T) {
	blob := "unfoldall,msig,sourcepos,dottedclass,debug_dump_unfold_entries"
	opts := ParseOptions(blob)
	assert.Equal(t, blob, opts.String())
	assert.Equal(t, opts, ParseOptions(opts.String()))
	assert.Empty(t, Options{}.String())
}

func TestParseOptionsLogging(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	ParseOptions("unfoldall,msig,bogus")

	var infos, warnings []string
	for _, entry := range hook.AllEntries() {
		switch entry.Level {
		case log.InfoLevel:
			infos = append(infos, entry.Message)
		case log.WarnLevel:
			warnings = append(warnings, entry.Message)
		}
	}
	require.Len(t, infos, 1)
	assert.Equal(t, `Agent options: "unfoldall,msig,bogus" -> unfoldall,msig`, infos[0])
	assert.Equal(t, 1, strings.Count(infos[0], "unfoldall,msig"))
	assert.Equal(t, []string{"Ignoring unknown agent option: bogus"}, warnings)
}
