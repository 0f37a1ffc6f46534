// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planning

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const plannerTracerName = "protozoa.planner"

// PlanTracer provides OpenTelemetry tracing for planning cycles.
//
// Thread Safety: Safe for concurrent use.
type PlanTracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewPlanTracer creates a new tracer.
//
// Inputs:
//   - logger: Logger for structured logging (can be nil for slog.Default).
//   - enabled: Whether spans are recorded.
//
// Outputs:
//   - *PlanTracer: Tracer instance.
func NewPlanTracer(logger *slog.Logger, enabled bool) *PlanTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanTracer{
		tracer:  otel.Tracer(plannerTracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// StartPlan starts a span for one planning cycle.
//
// Inputs:
//   - ctx: Parent context.
//   - state: Pose the rollouts start from.
//   - trigger: Why the plan was requested.
//   - rollouts: Number of rollouts.
//   - depth: Lookahead depth.
//
// Outputs:
//   - context.Context: Context with span.
//   - trace.Span: The created span (noop if tracing disabled).
func (t *PlanTracer) StartPlan(ctx context.Context, state State, trigger Trigger, rollouts, depth int) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	ctx, span := t.tracer.Start(ctx, "planner.plan",
		trace.WithAttributes(
			attribute.String("planner.trigger", string(trigger)),
			attribute.Int("planner.rollouts", rollouts),
			attribute.Int("planner.depth", depth),
			attribute.Float64("planner.start.x", state.X),
			attribute.Float64("planner.start.y", state.Y),
			attribute.Float64("planner.start.energy", state.Energy),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	t.logger.DebugContext(ctx, "Planning started",
		slog.String("trigger", string(trigger)),
		slog.Int("rollouts", rollouts),
		slog.Int("depth", depth),
	)

	return ctx, span
}

// EndPlan completes the planning span.
//
// Inputs:
//   - span: The span to end.
//   - plan: The resulting plan (can be nil on error).
//   - err: Error if planning failed.
func (t *PlanTracer) EndPlan(span trace.Span, plan *Plan, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if plan != nil {
		span.SetAttributes(
			attribute.String("planner.result.action", plan.Action.String()),
			attribute.Float64("planner.result.score", plan.Best().MeanScore),
			attribute.Float64("planner.result.pragmatic", plan.Best().MeanPragmatic),
			attribute.Float64("planner.result.epistemic", plan.Best().MeanEpistemic),
		)
		for _, d := range plan.Details {
			span.AddEvent("action_score",
				trace.WithAttributes(
					attribute.String("action", d.Action.String()),
					attribute.Float64("mean_score", d.MeanScore),
					attribute.Int("rollouts", d.Rollouts),
				),
			)
		}
	}

	span.End()

	if plan != nil {
		t.logger.Debug("Planning completed",
			slog.String("action", plan.Action.String()),
			slog.Float64("score", plan.Best().MeanScore),
		)
	}
}
