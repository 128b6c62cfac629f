// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package symbolizer turns JIT compiled method identities into the display names written to
// perf map files.
package symbolizer // import "github.com/perfpt/jitperf/symbolizer"

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
)

// ErrorSentinel replaces a name whose metadata could not be retrieved.
const ErrorSentinel = "<error writing signature>"

const (
	// MaxNameLen bounds a single method name in bytes.
	MaxNameLen = 1999
	// MaxChainLen bounds a full inline chain name in bytes.
	MaxChainLen = 19999
	// maxSourceInfoLen bounds the "(file:line)" decoration.
	maxSourceInfoLen = 999
)

// MethodID is the opaque handle the compiler instrumentation assigns to a method.
type MethodID uint64

// Hash32 returns a 32 bits hash of the id, used as LRU key hash.
func (id MethodID) Hash32() uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return uint32(xxh3.Hash(buf[:]))
}

// LineNumberEntry maps a bytecode location to a source line.
type LineNumberEntry struct {
	StartLocation int64
	LineNumber    int32
}

// MethodResolver retrieves method metadata from the host compiler instrumentation.
type MethodResolver interface {
	// MethodName returns the method name and its parameter signature, e.g. "hashCode", "()I".
	MethodName(id MethodID) (name, signature string, err error)
	// DeclaringClassSignature returns the type descriptor of the declaring class,
	// e.g. "Ljava/lang/String;".
	DeclaringClassSignature(id MethodID) (string, error)
	// SourceFileName returns the source file of the declaring class.
	SourceFileName(id MethodID) (string, error)
	// LineNumbers returns the line number table of the method.
	LineNumbers(id MethodID) ([]LineNumberEntry, error)
}

// Namer resolves a method to its display name. Implementations never fail: unresolvable
// methods are named ErrorSentinel.
type Namer interface {
	Name(id MethodID) string
}

// Options selects the decorations added to method names.
type Options struct {
	// MethodSignatures appends the raw parameter signature.
	MethodSignatures bool
	// SourcePositions appends "(file:line)".
	SourcePositions bool
	// DottedClassNames converts "Ljava/lang/String;" to "java.lang.String".
	DottedClassNames bool
}

// ClassName returns the display form of a class type descriptor.
func ClassName(signature string, dotted bool) string {
	if !dotted || len(signature) == 0 || signature[0] != 'L' {
		return signature
	}
	name := []byte(signature[1:])
	for i, c := range name {
		switch c {
		case '/':
			name[i] = '.'
		case ';':
			return string(name[:i])
		}
	}
	return string(name)
}

// Truncate bounds s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// LineNumberAt returns the line of the last entry of table starting at or before location.
// The table is scanned in order and the scan stops at the first entry past location. It
// returns -1 when no entry qualifies.
func LineNumberAt(table []LineNumberEntry, location int64) int32 {
	line := int32(-1)
	for _, entry := range table {
		if entry.StartLocation > location {
			break
		}
		line = entry.LineNumber
	}
	return line
}
