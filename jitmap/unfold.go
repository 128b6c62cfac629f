// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package jitmap // import "github.com/perfpt/jitperf/jitmap"

import (
	"fmt"
	"io"
	"strings"

	"github.com/perfpt/jitperf/symbolizer"
)

// UnfoldMode selects how code of inlined methods is attributed.
type UnfoldMode uint8

const (
	// UnfoldNone attributes a whole code blob to its root method.
	UnfoldNone UnfoldMode = iota
	// UnfoldDefault names inlined ranges "<inlined> in <root>".
	UnfoldDefault
	// UnfoldSimple names inlined ranges by the inlined method alone.
	UnfoldSimple
	// UnfoldAll names ranges by the full inline chain, outermost first.
	UnfoldAll
)

var unfoldModeNames = map[UnfoldMode]string{
	UnfoldNone:    "none",
	UnfoldDefault: "default",
	UnfoldSimple:  "simple",
	UnfoldAll:     "all",
}

func (m UnfoldMode) String() string {
	if name, ok := unfoldModeNames[m]; ok {
		return name
	}
	return "<unknown>"
}

// chainSeparator joins the frames of an inline chain in UnfoldAll mode.
const chainSeparator = "->"

// maxInlinedNameLen bounds "<inlined> in <root>".
const maxInlinedNameLen = 2*(symbolizer.MaxNameLen+1) + 3

// PCStackInfo is the inline stack active from PC onwards, innermost method first.
type PCStackInfo struct {
	PC      uint64
	Methods []symbolizer.MethodID
}

// Blob is one compiled code blob as reported by a compiled method load event.
type Blob struct {
	Method symbolizer.MethodID
	Addr   uint64
	Size   uint64
	// Inline is the per-PC inline table in ascending PC order, nil if the compiler provided
	// no inline information.
	Inline []PCStackInfo
}

// Unfold partitions the blob into contiguous ranges that share the same top-of-inline-stack
// method. The returned regions are ascending and cover exactly [Addr, Addr+Size); only the
// single-region result of a blob without inline information may be empty.
func Unfold(blob Blob, mode UnfoldMode, namer symbolizer.Namer) []Region {
	rootName := namer.Name(blob.Method)
	if mode == UnfoldNone || blob.Inline == nil {
		return []Region{{Start: blob.Addr, Length: blob.Size, Name: rootName}}
	}

	u := unfolder{
		blob:     blob,
		mode:     mode,
		namer:    namer,
		rootName: rootName,
	}

	end := blob.Addr + blob.Size
	start := blob.Addr
	current := blob.Method
	var prev *PCStackInfo
	var regions []Region

	for i := range blob.Inline {
		info := &blob.Inline[i]
		if len(info.Methods) == 0 {
			continue
		}
		if info.PC >= end {
			break
		}
		// As long as the top method remains the same the range keeps growing.
		if top := info.Methods[0]; top != current {
			if info.PC > start {
				regions = append(regions, Region{
					Start:  start,
					Length: info.PC - start,
					Name:   u.name(prev),
				})
				start = info.PC
			}
			current = top
		}
		prev = info
	}

	if start != end {
		regions = append(regions, Region{
			Start:  start,
			Length: end - start,
			Name:   u.name(prev),
		})
	}
	return regions
}

type unfolder struct {
	blob     Blob
	mode     UnfoldMode
	namer    symbolizer.Namer
	rootName string
}

// name returns the name of a range whose last breakpoint is info. A range that started before
// any breakpoint belongs to the root method.
func (u *unfolder) name(info *PCStackInfo) string {
	if info == nil {
		return u.rootName
	}

	if u.mode == UnfoldAll {
		var sb strings.Builder
		for i := len(info.Methods) - 1; i >= 0; i-- {
			sb.WriteString(u.namer.Name(info.Methods[i]))
			if i != 0 {
				sb.WriteString(chainSeparator)
			}
			if sb.Len() >= symbolizer.MaxChainLen {
				break
			}
		}
		return symbolizer.Truncate(sb.String(), symbolizer.MaxChainLen)
	}

	top := info.Methods[0]
	if top == u.blob.Method {
		return u.rootName
	}
	if u.mode == UnfoldSimple {
		return u.namer.Name(top)
	}
	return symbolizer.Truncate(u.namer.Name(top)+" in "+u.rootName, maxInlinedNameLen)
}

// DumpInlineRecord writes a human readable listing of the raw inline table of blob.
func DumpInlineRecord(w io.Writer, blob Blob, namer symbolizer.Namer) {
	fmt.Fprintf(w, "At %s size %x from %#x to %#x", namer.Name(blob.Method), blob.Size,
		blob.Addr, blob.Addr+blob.Size)
	if blob.Inline == nil {
		fmt.Fprintln(w, " with no inline info")
		return
	}

	fmt.Fprintf(w, " with %d entries\n", len(blob.Inline))
	for _, info := range blob.Inline {
		fmt.Fprintf(w, "  %#x has %d stack entries\n", info.PC, len(info.Methods))
		for _, m := range info.Methods {
			fmt.Fprintf(w, "    %s\n", namer.Name(m))
		}
	}
}
