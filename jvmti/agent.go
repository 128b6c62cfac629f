// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package jvmti receives compiled code events from the JVM tool interface side of the agent
// and keeps the perf map of the process up to date. The native shim that registers the
// callbacks with the JVM is not part of this package; it forwards events to an Agent.
package jvmti // import "github.com/perfpt/jitperf/jvmti"

import (
	"errors"
	"io"
	"os"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/perfpt/jitperf/jitmap"
	"github.com/perfpt/jitperf/metrics"
	"github.com/perfpt/jitperf/symbolizer"
)

// CompiledMethodLoad describes a method whose compiled code now lives at
// [CodeAddr, CodeAddr+CodeSize).
type CompiledMethodLoad struct {
	Method   symbolizer.MethodID
	CodeAddr uint64
	CodeSize uint64
	// Inline is the inline record of the blob, nil if the compiler did not provide one.
	Inline []jitmap.PCStackInfo
}

// Config configures an Agent.
type Config struct {
	Options  Options
	Resolver symbolizer.MethodResolver
	// MapPath defaults to /tmp/perf-<pid>.map of the current process.
	MapPath string
	// DebugOutput receives the inline record listings, os.Stdout if nil.
	DebugOutput io.Writer
	// NameCacheSize defaults to symbolizer.DefaultCacheSize.
	NameCacheSize uint32
}

var errMissingResolver = errors.New("missing method resolver")

// Agent turns compiled code events into registry updates and map file entries.
type Agent struct {
	opts      Options
	formatter *symbolizer.Formatter
	registry  *jitmap.Registry
	mapFile   *jitmap.MapFile
	debug     io.Writer
}

// NewAgent creates an Agent and opens its map file.
func NewAgent(cfg Config) (*Agent, error) {
	if cfg.Resolver == nil {
		return nil, errMissingResolver
	}
	if cfg.MapPath == "" {
		cfg.MapPath = jitmap.DefaultMapPath(os.Getpid())
	}
	if cfg.DebugOutput == nil {
		cfg.DebugOutput = os.Stdout
	}
	if cfg.NameCacheSize == 0 {
		cfg.NameCacheSize = symbolizer.DefaultCacheSize
	}

	formatter, err := symbolizer.New(cfg.Resolver, cfg.Options.Symbols, cfg.NameCacheSize)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		opts:      cfg.Options,
		formatter: formatter,
		registry:  jitmap.NewRegistry(),
		mapFile:   jitmap.NewMapFile(cfg.MapPath),
		debug:     cfg.DebugOutput,
	}
	if err = a.mapFile.Open(); err != nil {
		return nil, err
	}
	log.Debugf("Writing perf map to %s", cfg.MapPath)
	return a, nil
}

// Registry exposes the code regions tracked by the agent.
func (a *Agent) Registry() *jitmap.Registry {
	return a.registry
}

// MapPath returns the location of the perf map file.
func (a *Agent) MapPath() string {
	return a.mapFile.Path()
}

// CompiledMethodLoad records the code of a freshly compiled method, replacing whatever the
// registry knew about the method before.
func (a *Agent) CompiledMethodLoad(ev CompiledMethodLoad) {
	blob := jitmap.Blob{
		Method: ev.Method,
		Addr:   ev.CodeAddr,
		Size:   ev.CodeSize,
		Inline: ev.Inline,
	}
	if a.opts.DebugDumpUnfoldEntries {
		jitmap.DumpInlineRecord(a.debug, blob, a.formatter)
	}

	regions := jitmap.Unfold(blob, a.opts.Unfold, a.formatter)
	a.registry.Load(ev.Method, regions...)

	metrics.Add(metrics.IDJITMethodLoad, 1)
	if len(regions) > 1 {
		metrics.Add(metrics.IDJITUnfoldedRegions, metrics.MetricValue(len(regions)))
	}
}

// CompiledMethodUnload forgets the code of a method.
func (a *Agent) CompiledMethodUnload(id symbolizer.MethodID) {
	a.registry.Unload(id)
	a.formatter.Forget(id)
	metrics.Add(metrics.IDJITMethodUnload, 1)
}

// DynamicCodeGenerated writes stubs and other VM generated code straight to the map file.
// They are never unloaded, so they bypass the registry.
func (a *Agent) DynamicCodeGenerated(name string, addr, size uint64) error {
	if err := a.mapFile.Open(); err != nil {
		return err
	}
	if err := a.mapFile.WriteEntry(addr, size, name); err != nil {
		return err
	}
	metrics.Add(metrics.IDJITDynamicCode, 1)
	return nil
}

// DumpMap writes every live region to the map file and closes it.
func (a *Agent) DumpMap() (int, error) {
	return jitmap.DumpRegistry(a.registry, a.mapFile)
}

// Close closes the map file without dumping the registry.
func (a *Agent) Close() error {
	return a.mapFile.Close()
}

var defaultAgent atomic.Pointer[Agent]

// OnLoad creates the process wide agent from the option blob passed at agent load time.
func OnLoad(options string, resolver symbolizer.MethodResolver) (*Agent, error) {
	a, err := NewAgent(Config{
		Options:  ParseOptions(options),
		Resolver: resolver,
	})
	if err != nil {
		return nil, err
	}
	if prev := defaultAgent.Swap(a); prev != nil {
		log.Warnf("Agent loaded twice, replacing the previous instance")
		_ = prev.Close()
	}
	return a, nil
}

// Default returns the agent created by OnLoad, or nil.
func Default() *Agent {
	return defaultAgent.Load()
}
