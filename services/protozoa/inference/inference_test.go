// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inference

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
)

func newTestModel() (*GenerativeModel, config.Config) {
	cfg := config.Default()
	return NewGenerativeModel(cfg), cfg
}

// =============================================================================
// Generative model
// =============================================================================

func TestGenerativeModel_Defaults(t *testing.T) {
	m, cfg := newTestModel()

	assert.InDelta(t, cfg.Morphology.TargetConcentration, m.PriorMean.Nutrient, 1e-12)
	assert.InDelta(t, 50.0, m.PriorMean.X, 1e-12)
	assert.InDelta(t, 25.0, m.PriorMean.Y, 1e-12)
	assert.InDelta(t, cfg.Morphology.SensorAngle, m.SensorAngle, 1e-12)
}

func TestGenerativeModel_PredictBounds(t *testing.T) {
	m, _ := newTestModel()
	rng := rand.New(rand.NewPCG(7, 7))

	for i := 0; i < 1000; i++ {
		mean := Vector{
			Nutrient: rng.Float64()*4 - 2,
			Angle:    rng.Float64() * 4 * math.Pi,
		}
		p := m.Predict(mean)
		require.True(t, p.Left >= 0 && p.Left <= 1, "left %v out of range", p.Left)
		require.True(t, p.Right >= 0 && p.Right <= 1, "right %v out of range", p.Right)
	}
}

func TestGenerativeModel_SymmetricAtZeroAngle(t *testing.T) {
	m, _ := newTestModel()
	p := m.Predict(Vector{Nutrient: 0.5, Angle: 0})
	assert.InDelta(t, p.Left, p.Right, 1e-12)
}

func TestGenerativeModel_JacobianMatchesFiniteDifference(t *testing.T) {
	m, _ := newTestModel()
	mean := Vector{Nutrient: 0.5, Angle: 0.7}
	j := m.Jacobian(mean)

	const h = 1e-6
	plus := m.Predict(Vector{Nutrient: mean.Nutrient, Angle: mean.Angle + h})
	minus := m.Predict(Vector{Nutrient: mean.Nutrient, Angle: mean.Angle - h})
	assert.InDelta(t, (plus.Left-minus.Left)/(2*h), j.DAngle[0], 1e-6)
	assert.InDelta(t, (plus.Right-minus.Right)/(2*h), j.DAngle[1], 1e-6)

	assert.Equal(t, [2]float64{1, 1}, j.DNutrient)
	assert.LessOrEqual(t, j.DAngle[0]*j.DAngle[1], 0.0, "angle derivatives must have opposite signs")
}

func TestGenerativeModel_SensorAngleChangesPrediction(t *testing.T) {
	m, _ := newTestModel()
	mean := Vector{Nutrient: 0.5, Angle: 1.0}

	before := m.Predict(mean)
	m.SetSensorAngle(1.0)
	after := m.Predict(mean)

	assert.Greater(t, after.Left-after.Right, before.Left-before.Right,
		"wider sensor angle should increase the predicted differential")
}

func TestGenerativeModel_SetTarget(t *testing.T) {
	m, _ := newTestModel()
	m.SetTarget(0.6)
	assert.InDelta(t, 0.6, m.PriorMean.Nutrient, 1e-12)
}

func TestAngleHelpers(t *testing.T) {
	assert.InDelta(t, 0.5, WrapAngle(0.5+4*math.Pi), 1e-9)
	assert.InDelta(t, 2*math.Pi-0.5, WrapAngle(-0.5), 1e-9)
	assert.InDelta(t, -0.2, AngleDiff(0.1, 0.3), 1e-12)
	assert.InDelta(t, 0.2, AngleDiff(0.1, 2*math.Pi-0.1), 1e-9)
}

// =============================================================================
// Belief update
// =============================================================================

func TestInfer_ReducesFreeEnergy(t *testing.T) {
	m, cfg := newTestModel()
	belief := NewBeliefState(cfg.Inference, 50, 25, 0)
	obs := Observation{Left: 0.6, Right: 0.6}

	before := FreeEnergy(obs, belief.Mean, m)
	res, err := Infer(obs, belief, m, cfg.Morphology.BeliefLearningRate, cfg.Inference.UncertaintyReduction)
	require.NoError(t, err)

	assert.Less(t, res.VFE, before)
	assert.Greater(t, res.Belief.Mean.Nutrient, belief.Mean.Nutrient,
		"belief should move toward the observed concentration")
}

func TestInfer_DoesNotMutateInput(t *testing.T) {
	m, cfg := newTestModel()
	belief := NewBeliefState(cfg.Inference, 10, 10, 1)
	orig := belief

	_, err := Infer(Observation{Left: 0.9, Right: 0.1}, belief, m, 0.15, 0.95)
	require.NoError(t, err)
	assert.Equal(t, orig, belief)
}

func TestInfer_FiniteForInBoundsObservations(t *testing.T) {
	m, cfg := newTestModel()
	rng := rand.New(rand.NewPCG(1, 99))
	belief := NewBeliefState(cfg.Inference, 50, 25, 0)

	for i := 0; i < 5000; i++ {
		obs := Observation{Left: rng.Float64(), Right: rng.Float64()}
		if i%50 == 0 {
			obs.Left = -1 // wall sentinel
		}
		belief.SyncPose(rng.Float64()*100, rng.Float64()*50, rng.Float64()*2*math.Pi)
		res, err := Infer(obs, belief, m, cfg.Morphology.MaxLearningRate, cfg.Inference.UncertaintyReduction)
		require.NoError(t, err)
		belief = res.Belief

		require.NoError(t, CheckFinite("test", belief.Mean.Nutrient, belief.Mean.Angle, res.VFE))
	}
}

func TestInfer_NonFiniteObservationIsFatal(t *testing.T) {
	m, cfg := newTestModel()
	belief := NewBeliefState(cfg.Inference, 50, 25, 0)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Infer(Observation{Left: bad, Right: 0.5}, belief, m, 0.15, 0.95)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNonFiniteValue))

		var nf *NonFiniteError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "observation", nf.Stage)
	}
}

func TestInfer_NonFiniteLearningRateIsFatal(t *testing.T) {
	m, cfg := newTestModel()
	belief := NewBeliefState(cfg.Inference, 50, 25, 0)

	_, err := Infer(Observation{Left: 0.2, Right: 0.4}, belief, m, math.Inf(1), 0.95)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonFiniteValue)
}

func TestBeliefState_VarianceBounds(t *testing.T) {
	_, cfg := newTestModel()
	b := NewBeliefState(cfg.Inference, 0, 0, 0)

	for i := 0; i < 1000; i++ {
		b.ScaleVariance(0.5)
	}
	assert.InDelta(t, cfg.Inference.MinVariance, b.Variance.Nutrient, 1e-15)

	for i := 0; i < 1000; i++ {
		b.ScaleVariance(2)
	}
	assert.InDelta(t, cfg.Inference.MaxVariance, b.Variance.Angle, 1e-9)
	assert.InDelta(t, 4*cfg.Inference.MaxVariance, b.TotalUncertainty(), 1e-9)
}

// =============================================================================
// Expected Free Energy
// =============================================================================

func TestExpectedFreeEnergy_Breakdown(t *testing.T) {
	m, cfg := newTestModel()
	b := NewBeliefState(cfg.Inference, 50, 25, 0)
	b.Mean.Nutrient = 0.4

	efe := ExpectedFreeEnergy(b, m)

	wantRisk := 0.5 * cfg.Inference.NutrientPriorPrecision * 0.4 * 0.4
	wantAmb := 2 * 1 / (2 * cfg.Inference.InitialSensoryPrecision)
	wantEpi := 0.5 * math.Log(1+cfg.Inference.InitialVariance*cfg.Inference.InitialSensoryPrecision)

	assert.InDelta(t, wantRisk, efe.Risk, 1e-12)
	assert.InDelta(t, wantAmb, efe.Ambiguity, 1e-12)
	assert.InDelta(t, wantEpi, efe.Epistemic, 1e-12)
	assert.InDelta(t, wantRisk+wantAmb-wantEpi, efe.Total, 1e-12)
}

func TestExpectedFreeEnergy_PrefersTarget(t *testing.T) {
	m, cfg := newTestModel()
	near := NewBeliefState(cfg.Inference, 0, 0, 0)
	near.Mean.Nutrient = 0.8
	far := near
	far.Mean.Nutrient = 0.1

	assert.Less(t, ExpectedFreeEnergy(near, m).Total, ExpectedFreeEnergy(far, m).Total)
}

// =============================================================================
// Precision estimator
// =============================================================================

func TestPrecisionEstimator_StaysInBounds(t *testing.T) {
	_, cfg := newTestModel()
	p := NewPrecisionEstimator(cfg.Inference)

	for i := 0; i < 200; i++ {
		require.NoError(t, p.Update(Observation{Left: 0, Right: 0}))
	}
	assert.InDelta(t, cfg.Inference.MaxSensoryPrecision, p.Precision().Left, 1e-12)

	for i := 0; i < 200; i++ {
		require.NoError(t, p.Update(Observation{Left: 5, Right: 5}))
	}
	assert.InDelta(t, cfg.Inference.MinSensoryPrecision, p.Precision().Right, 1e-12)
}

func TestPrecisionEstimator_DownweightsNoisySensor(t *testing.T) {
	_, cfg := newTestModel()
	p := NewPrecisionEstimator(cfg.Inference)

	for i := 0; i < 20; i++ {
		require.NoError(t, p.Update(Observation{Left: 0.5, Right: 0.01}))
	}
	got := p.Precision()
	assert.Less(t, got.Left, got.Right)
}

func TestPrecisionEstimator_RejectsNaN(t *testing.T) {
	_, cfg := newTestModel()
	p := NewPrecisionEstimator(cfg.Inference)
	before := p.Precision()

	err := p.Update(Observation{Left: math.NaN(), Right: 0})
	assert.ErrorIs(t, err, ErrNonFiniteValue)
	assert.Equal(t, before, p.Precision(), "estimate must be unchanged after a rejected update")
}
