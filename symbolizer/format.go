// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package symbolizer // import "github.com/perfpt/jitperf/symbolizer"

import (
	"fmt"
	"strings"

	lru "github.com/elastic/go-freelru"
	log "github.com/sirupsen/logrus"

	"github.com/perfpt/jitperf/metrics"
)

// DefaultCacheSize is the number of formatted names kept by a Formatter.
const DefaultCacheSize = 16384

// Formatter renders "Type::name[signature][(file:line)]" names. It is safe for concurrent use.
type Formatter struct {
	resolver MethodResolver
	opts     Options

	// names caches successfully formatted names. Sentinels are not cached so that
	// a transient metadata failure is retried on the next load event.
	names *lru.SyncedLRU[MethodID, string]
}

var _ Namer = (*Formatter)(nil)

// New creates a Formatter backed by resolver.
func New(resolver MethodResolver, opts Options, cacheSize uint32) (*Formatter, error) {
	names, err := lru.NewSynced[MethodID, string](cacheSize, MethodID.Hash32)
	if err != nil {
		return nil, fmt.Errorf("failed to create name cache: %v", err)
	}
	return &Formatter{
		resolver: resolver,
		opts:     opts,
		names:    names,
	}, nil
}

// Options returns the decorations this Formatter applies.
func (f *Formatter) Options() Options {
	return f.opts
}

// Name returns the display name of id, or ErrorSentinel when its metadata is unavailable.
func (f *Formatter) Name(id MethodID) string {
	if name, ok := f.names.Get(id); ok {
		return name
	}

	name, err := f.format(id)
	if err != nil {
		log.Debugf("Failed to format method %#x: %v", uint64(id), err)
		metrics.Add(metrics.IDSymbolFormatErrors, 1)
		return ErrorSentinel
	}
	f.names.Add(id, name)
	return name
}

// Forget drops the cached name of id. Called on unload since method ids may be reused.
func (f *Formatter) Forget(id MethodID) {
	f.names.Remove(id)
}

func (f *Formatter) format(id MethodID) (string, error) {
	name, signature, err := f.resolver.MethodName(id)
	if err != nil {
		return "", fmt.Errorf("method name: %w", err)
	}
	classSig, err := f.resolver.DeclaringClassSignature(id)
	if err != nil {
		return "", fmt.Errorf("declaring class: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(Truncate(ClassName(classSig, f.opts.DottedClassNames), MaxNameLen))
	sb.WriteString("::")
	sb.WriteString(name)
	if f.opts.MethodSignatures {
		sb.WriteString(signature)
	}
	if f.opts.SourcePositions {
		sb.WriteString(f.sourcePosition(id))
	}
	return Truncate(sb.String(), MaxNameLen), nil
}

// sourcePosition returns "(file:line)" using the first line table entry, with line -1 for an
// empty table. Missing source data yields no decoration at all.
func (f *Formatter) sourcePosition(id MethodID) string {
	file, err := f.resolver.SourceFileName(id)
	if err != nil {
		return ""
	}
	lines, err := f.resolver.LineNumbers(id)
	if err != nil {
		return ""
	}
	lineNo := int32(-1)
	if len(lines) > 0 {
		lineNo = lines[0].LineNumber
	}
	return Truncate(fmt.Sprintf("(%s:%d)", file, lineNo), maxSourceInfoLen)
}
