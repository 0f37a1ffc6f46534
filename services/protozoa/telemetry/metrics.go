// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics contains the agent's OpenTelemetry instruments.
//
// Description:
//
//	All instruments use the "protozoa_" prefix. A nil *Metrics is valid and
//	records nothing, so components can be built without telemetry.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// TicksTotal counts completed ticks by behavioural mode.
	TicksTotal metric.Int64Counter

	// TickDuration records wall time of one tick in seconds.
	TickDuration metric.Float64Histogram

	// FreeEnergy records the variational free energy after inference.
	FreeEnergy metric.Float64Histogram

	// Energy tracks the current metabolic energy.
	Energy metric.Float64Gauge

	// MorphologyEventsTotal counts regulator adjustments by kind
	// (structural, allostatic, recovery).
	MorphologyEventsTotal metric.Int64Counter

	// LandmarkEventsTotal counts landmark store changes by event.
	LandmarkEventsTotal metric.Int64Counter

	// HaltsTotal counts ticks that stopped the agent on a non-finite value.
	HaltsTotal metric.Int64Counter
}

// NewMetrics registers all instruments with the provided meter.
//
// Inputs:
//
//	meter - The OTel meter to use for registration.
//
// Outputs:
//
//	*Metrics - The instruments.
//	error - Non-nil if any registration fails.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TicksTotal, err = meter.Int64Counter(
		"protozoa_ticks_total",
		metric.WithDescription("Completed simulation ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ticks_total: %w", err)
	}

	m.TickDuration, err = meter.Float64Histogram(
		"protozoa_tick_duration_seconds",
		metric.WithDescription("Duration of one agent tick in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05),
	)
	if err != nil {
		return nil, fmt.Errorf("create tick_duration: %w", err)
	}

	m.FreeEnergy, err = meter.Float64Histogram(
		"protozoa_free_energy",
		metric.WithDescription("Variational free energy after belief update"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1, 2, 5, 10, 50),
	)
	if err != nil {
		return nil, fmt.Errorf("create free_energy: %w", err)
	}

	m.Energy, err = meter.Float64Gauge(
		"protozoa_energy",
		metric.WithDescription("Current metabolic energy in [0, 1]"),
	)
	if err != nil {
		return nil, fmt.Errorf("create energy: %w", err)
	}

	m.MorphologyEventsTotal, err = meter.Int64Counter(
		"protozoa_morphology_events_total",
		metric.WithDescription("Morphological regulator adjustments"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create morphology_events_total: %w", err)
	}

	m.LandmarkEventsTotal, err = meter.Int64Counter(
		"protozoa_landmark_events_total",
		metric.WithDescription("Landmark store insertions and refreshes"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create landmark_events_total: %w", err)
	}

	m.HaltsTotal, err = meter.Int64Counter(
		"protozoa_halts_total",
		metric.WithDescription("Agents halted on a non-finite value"),
		metric.WithUnit("{halt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create halts_total: %w", err)
	}

	return m, nil
}

// RecordTick records the per-tick instruments.
func (m *Metrics) RecordTick(ctx context.Context, mode string, d time.Duration, vfe, energy float64) {
	if m == nil {
		return
	}
	m.TicksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	m.TickDuration.Record(ctx, d.Seconds())
	m.FreeEnergy.Record(ctx, vfe)
	m.Energy.Record(ctx, energy)
}

// RecordMorphology counts one regulator adjustment of the given kind.
func (m *Metrics) RecordMorphology(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.MorphologyEventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordLandmark counts one landmark store change.
func (m *Metrics) RecordLandmark(ctx context.Context, event string) {
	if m == nil {
		return
	}
	m.LandmarkEventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// RecordHalt counts one halt caused by the given stage.
func (m *Metrics) RecordHalt(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.HaltsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
