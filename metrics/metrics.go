// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics counts what the agent, the aggregator and the profiling session do and
// forwards the values to the OpenTelemetry metrics API. Without a configured MeterProvider the
// instruments are no-ops and only the in-process totals (Value) are kept.
package metrics // import "github.com/perfpt/jitperf/metrics"

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/perfpt/jitperf/vc"
)

var (
	//go:embed metrics.json
	metricsJSON []byte

	metricTypes map[MetricID]MetricType

	// totals mirrors every reported value: summed for counters, last value for gauges.
	totals [IDMax]atomic.Int64

	meter = otel.Meter("github.com/perfpt/jitperf",
		metric.WithInstrumentationVersion(vc.Version()))
	counters = map[MetricID]metric.Int64Counter{}
	gauges   = map[MetricID]metric.Int64Gauge{}
)

func init() {
	defs := GetDefinitions()
	metricTypes = make(map[MetricID]MetricType, len(defs))
	for _, md := range defs {
		if md.Obsolete {
			continue
		}
		metricTypes[md.ID] = md.Type
		switch typ := md.Type; typ {
		case MetricTypeCounter:
			counter, err := meter.Int64Counter(md.Field,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Counter: %v", err)
				continue
			}
			counters[md.ID] = counter
		case MetricTypeGauge:
			gauge, err := meter.Int64Gauge(md.Field,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Gauge: %v", err)
				continue
			}
			gauges[md.ID] = gauge
		default:
			panic(fmt.Sprintf("Unknown metric type: %v", typ))
		}
	}
}

// AddSlice reports a batch of metrics.
func AddSlice(newMetrics []Metric) {
	ctx := context.Background()
	for _, m := range newMetrics {
		if m.ID <= IDInvalid || m.ID >= IDMax {
			log.Errorf("Metric value %d out of range [%d,%d]- needs investigation",
				m.ID, IDInvalid+1, IDMax-1)
			continue
		}

		switch metricTypes[m.ID] {
		case MetricTypeCounter:
			if m.Value == 0 {
				continue
			}
			totals[m.ID].Add(int64(m.Value))
			if counter, ok := counters[m.ID]; ok {
				counter.Add(ctx, int64(m.Value))
			}
		case MetricTypeGauge:
			totals[m.ID].Store(int64(m.Value))
			if gauge, ok := gauges[m.ID]; ok {
				gauge.Record(ctx, int64(m.Value))
			}
		default:
			log.Warnf("Invalid metric id %d, skipping", m.ID)
		}
	}
}

// Add reports a single metric.
func Add(id MetricID, value MetricValue) {
	AddSlice([]Metric{{id, value}})
}

// Value returns the in-process total of a counter or the last value of a gauge.
func Value(id MetricID) MetricValue {
	if id <= IDInvalid || id >= IDMax {
		return 0
	}
	return MetricValue(totals[id].Load())
}

// GetDefinitions returns the metric definitions from the embedded metrics.json file.
func GetDefinitions() []MetricDefinition {
	var defs []MetricDefinition

	dec := json.NewDecoder(bytes.NewReader(metricsJSON))
	dec.DisallowUnknownFields()

	err := dec.Decode(&defs)
	if err != nil {
		panic(fmt.Sprintf("extracting definitions from metrics.json: %v", err))
	}
	return defs
}
