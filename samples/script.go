// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package samples // import "github.com/perfpt/jitperf/samples"

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ianlancetaylor/demangle"
	log "github.com/sirupsen/logrus"

	"github.com/perfpt/jitperf/metrics"
)

// UnknownSymbol names a sample whose address did not resolve to a symbol or object.
const UnknownSymbol = "[unknown]"

// maxScriptLine bounds a single perf script line. Deeply templated C++ symbols get long.
const maxScriptLine = 1 << 20

var (
	// headerRegex matches the leading "comm pid[/tid] [cpu] sec.frac:" part of a sample line.
	headerRegex = regexp.MustCompile(`^\s*\S.*?\s+\d+(?:/\d+)?\s+(?:\[\d+\]\s+)?(\d+)\.(\d+):\s*(.*)$`)
	// offsetRegex matches the "+0x1c" offset perf appends to resolved symbols.
	offsetRegex = regexp.MustCompile(`\+0x[0-9a-fA-F]+$`)
)

// ScriptOptions controls ParseScript.
type ScriptOptions struct {
	// Demangle C++ symbols that perf left mangled.
	Demangle bool
}

// ParseScript reads `perf script --ns` output from r and calls visit for each sample in input
// order. Both plain samples and samples followed by a callchain are understood; for the latter
// the innermost frame is used. For branch records ("from => to") the source frame is used.
//
// The number of samples passed to visit is returned. Lines that cannot be parsed are skipped
// and counted. An error returned by visit aborts parsing and is returned as is.
func ParseScript(ctx context.Context, r io.Reader, visit func(Sample) error,
	opts ScriptOptions) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxScriptLine)

	var count, lineNo int
	var malformed int64
	// pending is set after a sample header whose leaf frame follows on the next line.
	var pending, sawLeaf bool
	var pendingTS uint64

	symbolize := symbolFilter(opts)
	emitSample := func(ts uint64, frame string) error {
		symbol, origin := parseFrame(frame)
		count++
		return visit(Sample{Timestamp: ts, Symbol: symbolize(symbol), Origin: origin})
	}

	for scanner.Scan() {
		lineNo++
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return count, err
			}
		}

		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			pending, sawLeaf = false, false
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := headerRegex.FindStringSubmatch(line); m != nil {
			if pending && !sawLeaf {
				malformed++
			}
			pending, sawLeaf = false, false

			ts, err := parseTimestamp(m[1], m[2])
			if err != nil {
				log.Debugf("Skipping perf script line %d: %v", lineNo, err)
				malformed++
				continue
			}
			frame, ok := frameAfterEvent(m[3])
			if !ok {
				malformed++
				continue
			}
			if frame == "" {
				pending, pendingTS = true, ts
				continue
			}
			if err := emitSample(ts, frame); err != nil {
				return count, err
			}
			continue
		}

		if pending && !sawLeaf {
			sawLeaf = true
			if err := emitSample(pendingTS, trimmed); err != nil {
				return count, err
			}
		}
		// Remaining callchain frames are not needed.
	}
	if pending && !sawLeaf {
		malformed++
	}
	if malformed > 0 {
		log.Debugf("Skipped %d malformed perf script samples", malformed)
		metrics.Add(metrics.IDSamplesMalformed, metrics.MetricValue(malformed))
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read perf script output: %w", err)
	}
	return count, nil
}

func symbolFilter(opts ScriptOptions) func(string) string {
	if !opts.Demangle {
		return func(s string) string { return s }
	}
	return func(s string) string {
		return demangle.Filter(s, demangle.NoClones)
	}
}

// parseTimestamp converts "sec" and a fractional part of up to nine digits to nanoseconds.
func parseTimestamp(sec, frac string) (uint64, error) {
	if len(frac) > 9 {
		return 0, fmt.Errorf("timestamp fraction %q too precise", frac)
	}
	s, err := strconv.ParseUint(sec, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp seconds %q: %v", sec, err)
	}
	f, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp fraction %q: %v", frac, err)
	}
	for range 9 - len(frac) {
		f *= 10
	}
	return s*1_000_000_000 + f, nil
}

// frameAfterEvent skips the optional period and the event name ("cycles:u:") and returns
// what follows. An empty frame means the callchain starts on the next line.
func frameAfterEvent(rest string) (string, bool) {
	for field := range strings.FieldsSeq(rest) {
		if !strings.HasSuffix(field, ":") {
			continue
		}
		idx := strings.Index(rest, field)
		return strings.TrimSpace(rest[idx+len(field):]), true
	}
	return "", false
}

// parseFrame splits "addr symbol+0xoff (origin)" into symbol and origin.
func parseFrame(frame string) (symbol, origin string) {
	if from, _, found := strings.Cut(frame, "=>"); found {
		frame = strings.TrimSpace(from)
	}

	// The address comes first; drop it.
	if addr, rest, found := strings.Cut(frame, " "); found && isHex(addr) {
		frame = strings.TrimSpace(rest)
	} else if isHex(frame) {
		frame = ""
	}

	symbol, origin = frame, UnknownSymbol
	if strings.HasSuffix(frame, ")") {
		if idx := strings.LastIndex(frame, " ("); idx >= 0 {
			symbol = strings.TrimSpace(frame[:idx])
			origin = frame[idx+2 : len(frame)-1]
		} else if strings.HasPrefix(frame, "(") {
			symbol = ""
			origin = frame[1 : len(frame)-1]
		}
	}

	symbol = offsetRegex.ReplaceAllString(symbol, "")
	if symbol == "" {
		symbol = UnknownSymbol
	}
	if origin == "" {
		origin = UnknownSymbol
	}
	return symbol, origin
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 16, 64)
	return err == nil
}
