// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package morphology

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/inference"
)

type recordingModel struct {
	angles  []float64
	targets []float64
}

func (m *recordingModel) SetSensorAngle(a float64) { m.angles = append(m.angles, a) }
func (m *recordingModel) SetTarget(t float64)      { m.targets = append(m.targets, t) }

func TestFromConfig_Clamps(t *testing.T) {
	cfg := config.Default().Morphology
	cfg.SensorDist = 100
	cfg.TargetConcentration = 0.1

	m := FromConfig(cfg)
	assert.Equal(t, cfg.MaxSensorDist, m.SensorDist)
	assert.Equal(t, cfg.MinTarget, m.TargetConcentration)
}

func TestRegulate_SurpriseFiresAtWindowBoundaryNotBefore(t *testing.T) {
	cfg := config.Default().Morphology
	r := NewRegulator(cfg)
	model := &recordingModel{}
	start := r.Morphology()

	const vfe = 3.0 // above the 2.0 threshold
	for tick := uint64(1); tick < cfg.WindowSize; tick++ {
		adj, err := r.Regulate(tick, vfe, 0, model)
		require.NoError(t, err)
		require.False(t, adj.Changed(), "no adjustment before the window elapses (tick %d)", tick)
		require.InDelta(t, vfe*float64(tick), r.Accumulators().Surprise, 1e-9,
			"accumulator must not reset or decay before the boundary")
	}

	adj, err := r.Regulate(cfg.WindowSize, vfe, 0, model)
	require.NoError(t, err)

	assert.True(t, adj.Structural)
	assert.InDelta(t, vfe, adj.AvgSurprise, 1e-9)
	assert.Equal(t, 0.0, r.Accumulators().Surprise, "accumulator resets at the boundary")
	assert.Equal(t, cfg.WindowSize, r.Accumulators().SurpriseWindowStart)

	after := r.Morphology()
	assert.Greater(t, after.SensorDist, start.SensorDist)
	assert.Greater(t, after.SensorAngle, start.SensorAngle)
	assert.Greater(t, after.BeliefLearningRate, start.BeliefLearningRate)

	delta := (vfe - cfg.SurpriseThreshold) / cfg.SurpriseThreshold
	assert.InDelta(t, start.SensorDist+cfg.SensorDistRate*delta, after.SensorDist, 1e-12)

	require.Len(t, model.angles, 1)
	assert.Equal(t, after.SensorAngle, model.angles[0], "new angle is pushed into the model")
}

func TestRegulate_BelowThresholdDecays(t *testing.T) {
	cfg := config.Default().Morphology
	cfg.WindowSize = 10
	r := NewRegulator(cfg)
	model := &recordingModel{}

	for tick := uint64(1); tick < 10; tick++ {
		_, err := r.Regulate(tick, 1.0, 0, model)
		require.NoError(t, err)
	}
	assert.InDelta(t, 9.0, r.Accumulators().Surprise, 1e-12)

	adj, err := r.Regulate(10, 1.0, 0, model)
	require.NoError(t, err)
	assert.False(t, adj.Structural)
	assert.InDelta(t, 10.0*cfg.AccumulatorDecay, r.Accumulators().Surprise, 1e-12)
	assert.Equal(t, uint64(10), r.Accumulators().SurpriseWindowStart)
	assert.Empty(t, model.angles)
	assert.Equal(t, FromConfig(cfg), r.Morphology())
}

func TestRegulate_QuietSpellDoesNotDiluteLaterStress(t *testing.T) {
	cfg := config.Default().Morphology
	cfg.WindowSize = 10
	r := NewRegulator(cfg)
	model := &recordingModel{}

	tick := uint64(0)
	for i := 0; i < 500; i++ {
		tick++
		adj, err := r.Regulate(tick, 0, 0, model)
		require.NoError(t, err)
		require.False(t, adj.Structural)
	}
	assert.Equal(t, tick, r.Accumulators().SurpriseWindowStart)
	assert.Equal(t, tick, r.Accumulators().FrustrationWindowStart)

	// One window of high surprise after a long calm run still fires.
	vfe := cfg.SurpriseThreshold * 3
	fired := false
	for i := 0; i < 10; i++ {
		tick++
		adj, err := r.Regulate(tick, vfe, 0, model)
		require.NoError(t, err)
		fired = fired || adj.Structural
	}
	assert.True(t, fired)
	assert.Greater(t, r.Morphology().SensorDist, cfg.SensorDist)
}

func TestRegulate_FrustrationLowersTarget(t *testing.T) {
	cfg := config.Default().Morphology
	cfg.WindowSize = 5
	r := NewRegulator(cfg)
	model := &recordingModel{}

	var adj Adjustment
	var err error
	for tick := uint64(1); tick <= 5; tick++ {
		adj, err = r.Regulate(tick, 0, 10.0, model)
		require.NoError(t, err)
	}

	assert.True(t, adj.Allostatic)
	assert.False(t, adj.Structural)
	assert.Less(t, r.Morphology().TargetConcentration, cfg.TargetConcentration)
	require.Len(t, model.targets, 1)
	assert.Equal(t, r.Morphology().TargetConcentration, model.targets[0])
	assert.Equal(t, 0.0, r.Accumulators().Frustration)
}

func TestRegulate_NegativeEFEIsNotFrustration(t *testing.T) {
	cfg := config.Default().Morphology
	r := NewRegulator(cfg)
	_, err := r.Regulate(1, 0, -4, &recordingModel{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Accumulators().Frustration)
}

func TestRegulate_BoundsHoldUnderSustainedStress(t *testing.T) {
	cfg := config.Default().Morphology
	cfg.WindowSize = 3
	r := NewRegulator(cfg)
	model := &recordingModel{}

	for tick := uint64(1); tick <= 600; tick++ {
		_, err := r.Regulate(tick, 50, 50, model)
		require.NoError(t, err)
	}

	m := r.Morphology()
	assert.Equal(t, cfg.MaxSensorDist, m.SensorDist)
	assert.Equal(t, cfg.MaxSensorAngle, m.SensorAngle)
	assert.Equal(t, cfg.MaxLearningRate, m.BeliefLearningRate)
	assert.Equal(t, cfg.MinTarget, m.TargetConcentration)
}

func TestRegulate_TargetRecoversTowardIdeal(t *testing.T) {
	cfg := config.Default().Morphology
	cfg.WindowSize = 4
	r := NewRegulator(cfg)
	model := &recordingModel{}

	tick := uint64(0)
	for i := 0; i < 4; i++ {
		tick++
		_, err := r.Regulate(tick, 0, 20, model)
		require.NoError(t, err)
	}
	lowered := r.Morphology().TargetConcentration
	require.Less(t, lowered, cfg.TargetConcentration)

	recoveries := 0
	for i := 0; i < 40; i++ {
		tick++
		adj, err := r.Regulate(tick, 0, 0, model)
		require.NoError(t, err)
		if adj.Recovered {
			recoveries++
		}
	}

	got := r.Morphology().TargetConcentration
	assert.Greater(t, got, lowered)
	assert.LessOrEqual(t, got, cfg.TargetConcentration)
	assert.LessOrEqual(t, recoveries, 10, "at most one recovery per window")
	assert.Positive(t, recoveries)
}

func TestRegulate_NonFiniteIsRejected(t *testing.T) {
	cfg := config.Default().Morphology
	r := NewRegulator(cfg)
	_, err := r.Regulate(1, 1, 0, &recordingModel{})
	require.NoError(t, err)
	before := r.Accumulators()

	_, err = r.Regulate(2, math.NaN(), 0, &recordingModel{})
	require.ErrorIs(t, err, inference.ErrNonFiniteValue)
	assert.Equal(t, before, r.Accumulators())
}

func TestRegulate_WritesIntoGenerativeModel(t *testing.T) {
	full := config.Default()
	full.Morphology.WindowSize = 1
	r := NewRegulator(full.Morphology)
	model := inference.NewGenerativeModel(full)

	_, err := r.Regulate(1, 10, 0, model)
	require.NoError(t, err)
	assert.Equal(t, r.Morphology().SensorAngle, model.SensorAngle)
}
