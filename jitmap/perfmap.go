// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package jitmap // import "github.com/perfpt/jitperf/jitmap"

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/perfpt/jitperf/metrics"
)

// ErrMapNotOpen is returned when writing to a MapFile that is not open.
var ErrMapNotOpen = errors.New("perf map file is not open")

// DefaultMapPath returns the location perf looks for the symbols of process pid.
func DefaultMapPath(pid int) string {
	return "/tmp/perf-" + strconv.Itoa(pid) + ".map"
}

// MapFile writes "<hex start> <hex size> <name>" lines to a perf map file.
//
// The first Open of a MapFile truncates the file; opening again after Close appends, so that
// entries written before a dump (dynamically generated code) and by the dump itself end up in
// the same file.
type MapFile struct {
	path string

	mu      sync.Mutex
	file    *os.File
	w       *bufio.Writer
	created bool
}

// NewMapFile returns a closed MapFile for path.
func NewMapFile(path string) *MapFile {
	return &MapFile{path: path}
}

// Path returns the file system location of the map file.
func (m *MapFile) Path() string {
	return m.path
}

// Open opens the file unless it already is open.
func (m *MapFile) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file != nil {
		return nil
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if !m.created {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(m.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", m.path, err)
	}
	m.file = f
	m.w = bufio.NewWriter(f)
	m.created = true
	return nil
}

// WriteEntry appends one entry.
func (m *MapFile) WriteEntry(addr, size uint64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return ErrMapNotOpen
	}
	if _, err := fmt.Fprintf(m.w, "%x %x %s\n", addr, size, name); err != nil {
		metrics.Add(metrics.IDMapWriteErrors, 1)
		return fmt.Errorf("failed to write %s: %w", m.path, err)
	}
	return nil
}

// Close flushes and closes the file. Closing a closed MapFile is a no-op.
func (m *MapFile) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	flushErr := m.w.Flush()
	closeErr := m.file.Close()
	m.file = nil
	m.w = nil
	if flushErr != nil {
		return fmt.Errorf("failed to flush %s: %w", m.path, flushErr)
	}
	return closeErr
}

// DumpRegistry writes the whole registry into mf and closes it. It returns the number of
// entries written.
func DumpRegistry(reg *Registry, mf *MapFile) (int, error) {
	if err := mf.Open(); err != nil {
		return 0, err
	}

	count, err := reg.Dump(func(r Region) error {
		return mf.WriteEntry(r.Start, r.Length, r.Name)
	})
	metrics.Add(metrics.IDMapEntriesWritten, metrics.MetricValue(count))
	log.Infof("Processed: %d symbols", count)

	if closeErr := mf.Close(); err == nil {
		err = closeErr
	}
	return count, err
}

// ParseMap reads a perf map file. The result is sorted by start address; entries keep the
// order of the file among equal starts.
func ParseMap(r io.Reader) ([]Region, error) {
	var regions []Region

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields: %q", lineNo, line)
		}
		start, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid address: %v", lineNo, err)
		}
		size, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid size: %v", lineNo, err)
		}
		regions = append(regions, Region{Start: start, Length: size, Name: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(regions, func(a, b Region) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return regions, nil
}

// Overlaps returns the number of regions of a sorted slice that start before the previous
// region ended.
func Overlaps(sorted []Region) int {
	n := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End() {
			n++
		}
	}
	return n
}
