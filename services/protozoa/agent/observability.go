// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const agentTracerName = "protozoa.agent"

// Tracer provides OpenTelemetry spans for agent ticks.
//
// Thread Safety: Safe for concurrent use.
type Tracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewTracer creates a tick tracer.
//
// Inputs:
//   - logger: Logger for structured logging (can be nil for slog.Default).
//   - enabled: Whether spans are recorded.
func NewTracer(logger *slog.Logger, enabled bool) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{
		tracer:  otel.Tracer(agentTracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// Enabled reports whether spans are recorded.
func (t *Tracer) Enabled() bool {
	return t.enabled
}

// StartTick starts a span for one tick.
//
// Outputs:
//   - context.Context: Context with span.
//   - trace.Span: The created span (noop if tracing disabled).
func (t *Tracer) StartTick(ctx context.Context, runID string, tick uint64) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "agent.tick",
		trace.WithAttributes(
			attribute.String("agent.run_id", runID),
			attribute.Int64("agent.tick", int64(tick)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndTick completes the tick span.
//
// Inputs:
//   - span: The span to end.
//   - snap: The published snapshot (nil on error).
//   - err: Error if the tick halted the agent.
func (t *Tracer) EndTick(span trace.Span, snap *Snapshot, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if snap != nil {
		span.SetAttributes(
			attribute.String("agent.mode", string(snap.Mode)),
			attribute.Float64("agent.energy", snap.Energy),
			attribute.Float64("agent.vfe", snap.VFE),
			attribute.Float64("agent.efe", snap.EFE.Total),
			attribute.Float64("agent.x", snap.X),
			attribute.Float64("agent.y", snap.Y),
		)
		if snap.Adjustment.Changed() {
			span.AddEvent("morphology_adjusted",
				trace.WithAttributes(
					attribute.Bool("structural", snap.Adjustment.Structural),
					attribute.Bool("allostatic", snap.Adjustment.Allostatic),
					attribute.Bool("recovered", snap.Adjustment.Recovered),
				),
			)
		}
	}

	span.End()
}
