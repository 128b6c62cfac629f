// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package symbolizertest provides an in-memory MethodResolver for tests.
package symbolizertest // import "github.com/perfpt/jitperf/symbolizer/symbolizertest"

import (
	"errors"
	"sync"

	"github.com/perfpt/jitperf/symbolizer"
)

// ErrNoMethod is returned for ids that were never added.
var ErrNoMethod = errors.New("invalid method id")

// Method is the metadata served for one method id.
type Method struct {
	ClassSignature string
	Name           string
	Signature      string
	SourceFile     string
	Lines          []symbolizer.LineNumberEntry

	// Fail the name lookup, the class lookup, or the source lookups.
	FailName   bool
	FailClass  bool
	FailSource bool
}

// Resolver is a map backed symbolizer.MethodResolver. It counts MethodName calls so tests can
// observe caching.
type Resolver struct {
	mu      sync.Mutex
	methods map[symbolizer.MethodID]Method
	calls   int
}

var _ symbolizer.MethodResolver = (*Resolver)(nil)

// New returns an empty Resolver.
func New() *Resolver {
	return &Resolver{methods: make(map[symbolizer.MethodID]Method)}
}

// Add registers (or replaces) the metadata of id.
func (r *Resolver) Add(id symbolizer.MethodID, m Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[id] = m
}

// NameCalls returns how often MethodName was called.
func (r *Resolver) NameCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *Resolver) get(id symbolizer.MethodID) (Method, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.methods[id]
	return m, ok
}

func (r *Resolver) MethodName(id symbolizer.MethodID) (name, signature string, err error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	m, ok := r.get(id)
	if !ok || m.FailName {
		return "", "", ErrNoMethod
	}
	return m.Name, m.Signature, nil
}

func (r *Resolver) DeclaringClassSignature(id symbolizer.MethodID) (string, error) {
	m, ok := r.get(id)
	if !ok || m.FailClass {
		return "", ErrNoMethod
	}
	return m.ClassSignature, nil
}

func (r *Resolver) SourceFileName(id symbolizer.MethodID) (string, error) {
	m, ok := r.get(id)
	if !ok || m.FailSource {
		return "", ErrNoMethod
	}
	return m.SourceFile, nil
}

func (r *Resolver) LineNumbers(id symbolizer.MethodID) ([]symbolizer.LineNumberEntry, error) {
	m, ok := r.get(id)
	if !ok || m.FailSource {
		return nil, ErrNoMethod
	}
	return m.Lines, nil
}
