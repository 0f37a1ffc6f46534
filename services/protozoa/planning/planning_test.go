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
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/inference"
	"github.com/AleutianAI/protozoa/services/protozoa/memory"
)

// funcModel adapts two closures to WorldModel.
type funcModel struct {
	mean      func(x, y float64) float64
	precision func(x, y float64) float64
}

func (m funcModel) Mean(x, y float64) float64      { return m.mean(x, y) }
func (m funcModel) Precision(x, y float64) float64 { return m.precision(x, y) }

func flatModel(mean, precision float64) funcModel {
	return funcModel{
		mean:      func(_, _ float64) float64 { return mean },
		precision: func(_, _ float64) float64 { return precision },
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Planner.Rollouts = 30
	cfg.Planner.Depth = 5
	return cfg
}

var centre = State{X: 50, Y: 50, Angle: 0, Speed: 0, Energy: 0.8}

// =============================================================================
// Action / Kinematics
// =============================================================================

func TestAction_StringAndDelta(t *testing.T) {
	assert.Equal(t, "TurnLeft", TurnLeft.String())
	assert.Equal(t, "Straight", Straight.String())
	assert.Equal(t, "TurnRight", TurnRight.String())
	assert.Equal(t, "Action(7)", Action(7).String())

	assert.Equal(t, 0.3, TurnLeft.Delta(0.3))
	assert.Equal(t, 0.0, Straight.Delta(0.3))
	assert.Equal(t, -0.3, TurnRight.Delta(0.3))
}

func TestKinematics_MoveClampsToWorld(t *testing.T) {
	k := Kinematics{World: config.Default().World, Agent: config.Default().Agent}

	x, y := k.Move(99.5, 50, 0, 2)
	assert.Equal(t, k.World.Width, x)
	assert.InDelta(t, 50, y, 1e-12)

	x, y = k.Move(0.2, 0.2, math.Pi*1.25, 2)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
}

func TestKinematics_MetabolizeStaysInUnitInterval(t *testing.T) {
	k := Kinematics{World: config.Default().World, Agent: config.Default().Agent}

	assert.Equal(t, 1.0, k.Metabolize(1, 0, 1e6))
	assert.Equal(t, 0.0, k.Metabolize(0.001, k.Agent.MaxSpeed, -1))
	assert.Equal(t, 1.0, k.Metabolize(0.5, 0, math.Inf(1)))

	e := k.Metabolize(0.5, 0, 0)
	assert.InDelta(t, 0.5-k.Agent.BaseMetabolicCost, e, 1e-12)
}

// =============================================================================
// Scheduling
// =============================================================================

func TestPlanner_Due(t *testing.T) {
	p := NewPlanner(config.Default(), 1)

	tests := []struct {
		name     string
		tick     uint64
		last     uint64
		energy   float64
		wantDue  bool
		wantTrig Trigger
	}{
		{"first tick", 0, 0, 1, true, TriggerInitial},
		{"not yet", 5, 0, 0.9, false, ""},
		{"interval elapsed", 20, 0, 0.9, true, TriggerScheduled},
		{"low energy", 3, 2, 0.1, true, TriggerUrgent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trig, due := p.Due(tt.tick, tt.last, tt.energy)
			assert.Equal(t, tt.wantDue, due)
			assert.Equal(t, tt.wantTrig, trig)
		})
	}

	assert.Equal(t, uint64(15), p.TicksUntilReplan(5, 0))
	assert.Equal(t, uint64(0), p.TicksUntilReplan(25, 0))
}

// =============================================================================
// Plan
// =============================================================================

func TestPlan_StratifiesFirstActions(t *testing.T) {
	cfg := config.Default()
	cfg.Planner.Rollouts = 50
	p := NewPlanner(cfg, 3)

	plan, err := p.Plan(context.Background(), centre, flatModel(0.5, 1), TriggerInitial)
	require.NoError(t, err)

	assert.Equal(t, 17, plan.Details[TurnLeft].Rollouts)
	assert.Equal(t, 17, plan.Details[Straight].Rollouts)
	assert.Equal(t, 16, plan.Details[TurnRight].Rollouts)
	for _, a := range Actions {
		assert.Equal(t, a, plan.Details[a].Action)
	}
}

func TestPlan_TiesGoToLowestIndex(t *testing.T) {
	p := NewPlanner(testConfig(), 3)

	plan, err := p.Plan(context.Background(), centre, flatModel(0.5, 2), TriggerInitial)
	require.NoError(t, err)

	assert.Equal(t, plan.Details[TurnLeft].MeanScore, plan.Details[Straight].MeanScore)
	assert.Equal(t, TurnLeft, plan.Action)
	assert.Equal(t, 0.3, plan.Delta)
	assert.Equal(t, TriggerInitial, plan.Trigger)
}

func TestPlan_DeterministicForSeed(t *testing.T) {
	model := funcModel{
		mean:      func(x, y float64) float64 { return x / 100 },
		precision: func(x, y float64) float64 { return 1 + y/10 },
	}

	a := NewPlanner(testConfig(), 42)
	b := NewPlanner(testConfig(), 42)
	for i := 0; i < 3; i++ {
		pa, err := a.Plan(context.Background(), centre, model, TriggerScheduled)
		require.NoError(t, err)
		pb, err := b.Plan(context.Background(), centre, model, TriggerScheduled)
		require.NoError(t, err)
		assert.Equal(t, pa, pb, "call %d", i)
	}
}

func TestPlan_IndependentOfWorkerCount(t *testing.T) {
	model := funcModel{
		mean:      func(x, y float64) float64 { return y / 100 },
		precision: func(x, y float64) float64 { return 1 + x/25 },
	}

	serialCfg := testConfig()
	serialCfg.Planner.Workers = 1
	parallelCfg := testConfig()
	parallelCfg.Planner.Workers = 8

	serial, err := NewPlanner(serialCfg, 9).Plan(context.Background(), centre, model, TriggerInitial)
	require.NoError(t, err)
	parallel, err := NewPlanner(parallelCfg, 9).Plan(context.Background(), centre, model, TriggerInitial)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestPlan_PrefersRicherSide(t *testing.T) {
	cfg := config.Default()
	cfg.Planner.Rollouts = 600
	cfg.Planner.Depth = 5
	cfg.Planner.ExplorationScale = 0

	// Facing +x, a left turn heads toward larger y.
	richNorth := funcModel{
		mean:      func(_, y float64) float64 { return y / 100 },
		precision: func(_, _ float64) float64 { return 1 },
	}
	plan, err := NewPlanner(cfg, 5).Plan(context.Background(), centre, richNorth, TriggerInitial)
	require.NoError(t, err)
	assert.Equal(t, TurnLeft, plan.Action)

	richSouth := funcModel{
		mean:      func(_, y float64) float64 { return 1 - y/100 },
		precision: func(_, _ float64) float64 { return 1 },
	}
	plan, err = NewPlanner(cfg, 5).Plan(context.Background(), centre, richSouth, TriggerInitial)
	require.NoError(t, err)
	assert.Equal(t, TurnRight, plan.Action)
}

func TestPlan_EpistemicBonusFavoursUnvisitedCells(t *testing.T) {
	cfg := config.Default()
	world := cfg.World
	grid := memory.NewSpatialGrid(world, cfg.Memory)

	// Visit the lower half of the dish so the upper half stays uncertain.
	mid := world.Height / 2
	for x := 0.0; x < world.Width; x += 2 {
		for y := 0.0; y < mid; y += 2 {
			for i := 0; i < 4; i++ {
				grid.Update(x, y, 0.2)
			}
		}
	}

	cfg.Planner.Rollouts = 300
	cfg.Planner.Depth = 8
	cfg.Planner.ExplorationScale = 5
	start := State{X: world.Width / 2, Y: mid + 0.5, Angle: 0, Speed: 1, Energy: 0.8}

	plan, err := NewPlanner(cfg, 11).Plan(context.Background(), start, grid, TriggerInitial)
	require.NoError(t, err)
	assert.Greater(t, plan.Details[TurnLeft].MeanEpistemic, plan.Details[TurnRight].MeanEpistemic)
	assert.Equal(t, TurnLeft, plan.Action)
}

func TestPlan_NonFiniteScoreFails(t *testing.T) {
	p := NewPlanner(testConfig(), 1)

	_, err := p.Plan(context.Background(), centre, flatModel(math.NaN(), 1), TriggerInitial)
	require.ErrorIs(t, err, inference.ErrNonFiniteValue)

	_, err = p.Plan(context.Background(), centre, flatModel(0.5, 0), TriggerInitial)
	require.ErrorIs(t, err, inference.ErrNonFiniteValue)
}

// =============================================================================
// Observability
// =============================================================================

func TestPlan_RecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	p := NewPlanner(testConfig(), 1).WithTracer(NewPlanTracer(nil, true))
	_, err := p.Plan(context.Background(), centre, flatModel(0.5, 1), TriggerUrgent)
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "planner.plan", spans[0].Name())
	assert.Len(t, spans[0].Events(), NumActions)

	var trigger string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "planner.trigger" {
			trigger = kv.Value.AsString()
		}
	}
	assert.Equal(t, "urgent", trigger)
}

func TestPlan_DisabledTracerRecordsNothing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	p := NewPlanner(testConfig(), 1).WithTracer(NewPlanTracer(nil, false))
	_, err := p.Plan(context.Background(), centre, flatModel(0.5, 1), TriggerUrgent)
	require.NoError(t, err)
	assert.Empty(t, rec.Ended())
}

func TestPlan_UpdatesMetrics(t *testing.T) {
	plans := testutil.ToFloat64(plansTotal.WithLabelValues("scheduled", "success"))
	failures := testutil.ToFloat64(plansTotal.WithLabelValues("scheduled", "failure"))
	rollouts := testutil.ToFloat64(rolloutsTotal)

	p := NewPlanner(testConfig(), 1)
	_, err := p.Plan(context.Background(), centre, flatModel(0.5, 1), TriggerScheduled)
	require.NoError(t, err)
	_, err = p.Plan(context.Background(), centre, flatModel(math.Inf(1), 1), TriggerScheduled)
	require.Error(t, err)

	assert.Equal(t, plans+1, testutil.ToFloat64(plansTotal.WithLabelValues("scheduled", "success")))
	assert.Equal(t, failures+1, testutil.ToFloat64(plansTotal.WithLabelValues("scheduled", "failure")))
	assert.Equal(t, rollouts+60, testutil.ToFloat64(rolloutsTotal))
}
