// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package jvmti // import "github.com/perfpt/jitperf/jvmti"

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/perfpt/jitperf/jitmap"
	"github.com/perfpt/jitperf/symbolizer"
)

// optionSwitch values identify the switches of the agent option blob.
type optionSwitch int

const (
	optUnfold optionSwitch = iota
	optUnfoldSimple
	optUnfoldAll
	optMethodSignatures
	optSourcePositions
	optDottedClassNames
	optDebugDumpUnfoldEntries

	maxSwitches
)

var switchToName = map[optionSwitch]string{
	optUnfold:                 "unfold",
	optUnfoldSimple:           "unfoldsimple",
	optUnfoldAll:              "unfoldall",
	optMethodSignatures:       "msig",
	optSourcePositions:        "sourcepos",
	optDottedClassNames:       "dottedclass",
	optDebugDumpUnfoldEntries: "debug_dump_unfold_entries",
}

// Options is the parsed agent option blob.
type Options struct {
	Unfold  jitmap.UnfoldMode
	Symbols symbolizer.Options
	// DebugDumpUnfoldEntries prints the raw inline table of every loaded blob.
	DebugDumpUnfoldEntries bool
}

// String renders the options back into blob form.
func (o Options) String() string {
	var names []string
	switch o.Unfold {
	case jitmap.UnfoldDefault:
		names = append(names, switchToName[optUnfold])
	case jitmap.UnfoldSimple:
		names = append(names, switchToName[optUnfoldSimple])
	case jitmap.UnfoldAll:
		names = append(names, switchToName[optUnfoldAll])
	}
	if o.Symbols.MethodSignatures {
		names = append(names, switchToName[optMethodSignatures])
	}
	if o.Symbols.SourcePositions {
		names = append(names, switchToName[optSourcePositions])
	}
	if o.Symbols.DottedClassNames {
		names = append(names, switchToName[optDottedClassNames])
	}
	if o.DebugDumpUnfoldEntries {
		names = append(names, switchToName[optDebugDumpUnfoldEntries])
	}
	return strings.Join(names, ",")
}

// ParseOptions parses an option blob such as "unfoldall,msig,dottedclass". A switch is on
// when its name occurs anywhere in the blob, so "unfoldall msig" and "opts=unfoldsimple" work
// too. Every unfold flavor, and debug_dump_unfold_entries, turns unfolding on; unfoldall wins
// over unfoldsimple. Comma separated tokens that name no switch are logged and ignored.
func ParseOptions(blob string) Options {
	var seen [maxSwitches]bool
	for sw := range maxSwitches {
		seen[sw] = strings.Contains(blob, switchToName[sw])
	}

	for token := range strings.SplitSeq(blob, ",") {
		token = strings.TrimSpace(token)
		if token != "" && !namesSwitch(token) {
			log.Warnf("Ignoring unknown agent option: %s", token)
		}
	}

	var opts Options
	switch {
	case seen[optUnfoldAll]:
		opts.Unfold = jitmap.UnfoldAll
	case seen[optUnfoldSimple]:
		opts.Unfold = jitmap.UnfoldSimple
	case seen[optUnfold]:
		opts.Unfold = jitmap.UnfoldDefault
	}
	opts.Symbols.MethodSignatures = seen[optMethodSignatures]
	opts.Symbols.SourcePositions = seen[optSourcePositions]
	opts.Symbols.DottedClassNames = seen[optDottedClassNames]
	opts.DebugDumpUnfoldEntries = seen[optDebugDumpUnfoldEntries]

	if blob != "" {
		log.Infof("Agent options: %q -> %v", blob, opts)
	}
	return opts
}

func namesSwitch(token string) bool {
	for _, name := range switchToName {
		if strings.Contains(token, name) {
			return true
		}
	}
	return false
}
