// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package simulation

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/protozoa/services/protozoa/agent"
	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/environment"
	"github.com/AleutianAI/protozoa/services/protozoa/inference"
)

// steppingField counts Step calls and otherwise serves a static Gaussian.
type steppingField struct {
	*environment.GaussianField
	steps int
}

func (f *steppingField) Step() { f.steps++ }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Seed = 11
	cfg.Planner.Rollouts = 20
	cfg.Planner.Depth = 4
	cfg.Simulation.TickInterval = 0
	cfg.Simulation.SummaryEvery = 0
	return cfg
}

func newAgent(t *testing.T, cfg config.Config) *agent.Agent {
	t.Helper()
	a, err := agent.New(cfg, agent.Pose{X: 50, Y: 50}, agent.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	return a
}

func gaussian(cfg config.Config) *environment.GaussianField {
	return environment.NewGaussianField(cfg.World.Width, cfg.World.Height, 50, 50, 15, 1)
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig()
	_, err := New(nil, gaussian(cfg), cfg.Simulation)
	assert.ErrorIs(t, err, ErrNilAgent)

	_, err = New(newAgent(t, cfg), nil, cfg.Simulation)
	assert.ErrorIs(t, err, ErrNilField)
}

func TestRun_StopsAtMaxTicks(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.MaxTicks = 25
	field := &steppingField{GaussianField: gaussian(cfg)}

	r, err := New(newAgent(t, cfg), field, cfg.Simulation)
	require.NoError(t, err)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopMaxTicks, res.Reason)
	assert.Equal(t, uint64(25), res.Ticks)
	assert.Equal(t, uint64(25), res.Final.Tick)
	assert.Equal(t, 25, field.steps, "field steps once per tick")
}

func TestRun_Cancelled(t *testing.T) {
	cfg := testConfig()
	r, err := New(newAgent(t, cfg), gaussian(cfg), cfg.Simulation)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopCancelled, res.Reason)
	assert.Zero(t, res.Ticks)
}

func TestRun_DeadlineStopsUnboundedRun(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.TickInterval = 5 * time.Millisecond
	r, err := New(newAgent(t, cfg), gaussian(cfg), cfg.Simulation)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopCancelled, res.Reason)
	assert.Positive(t, res.Ticks)
	assert.Equal(t, res.Ticks, res.Final.Tick)
}

func TestRun_Pacing(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.TickInterval = 20 * time.Millisecond
	cfg.Simulation.MaxTicks = 4
	r, err := New(newAgent(t, cfg), gaussian(cfg), cfg.Simulation)
	require.NoError(t, err)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), res.Ticks)
	// The first tick is immediate, the other three wait one interval each.
	assert.GreaterOrEqual(t, res.Elapsed, 50*time.Millisecond)
}

func TestRun_HaltOnNonFinite(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.MaxTicks = 10
	calls := 0
	field := environment.FieldFunc(func(x, y float64) float64 {
		calls++
		// Two sensors per tick; poison the third tick.
		if calls > 4 {
			return math.NaN()
		}
		return 0.5
	})

	r, err := New(newAgent(t, cfg), field, cfg.Simulation)
	require.NoError(t, err)

	res, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrNonFiniteValue)
	assert.Equal(t, StopHalted, res.Reason)
	assert.Equal(t, uint64(2), res.Ticks)
	assert.Equal(t, uint64(2), res.Final.Tick, "last good snapshot survives")
	assert.True(t, r.Agent().Halted())

	_, err = r.Step(context.Background())
	assert.ErrorIs(t, err, agent.ErrHalted)
}

func TestStep_LogsSummaries(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.SummaryEvery = 10

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r, err := New(newAgent(t, cfg), gaussian(cfg), cfg.Simulation, WithLogger(logger))
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		snap, err := r.Step(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), snap.Tick)
	}

	assert.Equal(t, 2, strings.Count(buf.String(), `"msg":"Simulation summary"`))
	assert.Contains(t, buf.String(), `"tick":20`)
}

func TestAccessors(t *testing.T) {
	cfg := testConfig()
	a := newAgent(t, cfg)
	f := gaussian(cfg)
	r, err := New(a, f, cfg.Simulation)
	require.NoError(t, err)
	assert.Same(t, a, r.Agent())
	assert.Equal(t, environment.Field(f), r.Field())
}
