// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package inference implements the agent's generative model and Gaussian
// belief update.
//
// # Description
//
// The generative model predicts the two chemoreceptor readings from the
// hidden state {nutrient, x, y, angle}. The belief mean descends the
// gradient of Variational Free Energy; sensory precision is re-estimated
// online from prediction errors. Expected Free Energy scores predicted
// beliefs for action selection.
//
// All functions here are pure over their inputs. Anything that can produce
// NaN or Inf is checked and reported as a *NonFiniteError.
package inference

import (
	"math"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
)

// Vector is a value per hidden state dimension.
type Vector struct {
	Nutrient float64 `json:"nutrient"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
}

// Observation is one pair of chemoreceptor readings.
type Observation struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Mean returns the average of both readings.
func (o Observation) Mean() float64 {
	return (o.Left + o.Right) / 2
}

// Jacobian holds ∂g/∂μ for the two non-zero columns of the observation
// function. Position does not enter g.
type Jacobian struct {
	// DNutrient is (∂gL/∂nutrient, ∂gR/∂nutrient).
	DNutrient [2]float64
	// DAngle is (∂gL/∂angle, ∂gR/∂angle).
	DAngle [2]float64
}

// GenerativeModel is p(o, s) = p(o|s)·p(s).
//
// The nutrient prior mean is the homeostatic target: a preference expressed
// as a prior. Only the morphology regulator rewrites it, through SetTarget.
type GenerativeModel struct {
	PriorMean        Vector
	PriorPrecision   Vector
	SensoryPrecision Observation
	SensorAngle      float64
	ObservationGain  float64
}

// NewGenerativeModel builds the model from configuration.
//
// The position prior is centred on the world with a very weak precision so
// the agent is free to roam.
func NewGenerativeModel(cfg config.Config) *GenerativeModel {
	inf := cfg.Inference
	return &GenerativeModel{
		PriorMean: Vector{
			Nutrient: cfg.Morphology.TargetConcentration,
			X:        cfg.World.Width / 2,
			Y:        cfg.World.Height / 2,
			Angle:    0,
		},
		PriorPrecision: Vector{
			Nutrient: inf.NutrientPriorPrecision,
			X:        inf.PositionPriorPrecision,
			Y:        inf.PositionPriorPrecision,
			Angle:    inf.AnglePriorPrecision,
		},
		SensoryPrecision: Observation{
			Left:  inf.InitialSensoryPrecision,
			Right: inf.InitialSensoryPrecision,
		},
		SensorAngle:     cfg.Morphology.SensorAngle,
		ObservationGain: inf.ObservationGain,
	}
}

func (m *GenerativeModel) gradientFactor() float64 {
	return math.Sin(m.SensorAngle) * m.ObservationGain
}

// Predict is the observation function g(μ).
//
// The sensors sit at ±SensorAngle from the heading, so a heading that is
// not aligned with the gradient produces a left/right differential.
func (m *GenerativeModel) Predict(mean Vector) Observation {
	k := m.gradientFactor()
	s := math.Sin(mean.Angle)
	return Observation{
		Left:  clamp(mean.Nutrient+k*s, 0, 1),
		Right: clamp(mean.Nutrient-k*s, 0, 1),
	}
}

// Jacobian returns ∂g/∂μ at the current sensor angle.
func (m *GenerativeModel) Jacobian(mean Vector) Jacobian {
	k := m.gradientFactor()
	c := math.Cos(mean.Angle)
	return Jacobian{
		DNutrient: [2]float64{1, 1},
		DAngle:    [2]float64{k * c, -k * c},
	}
}

// SetSensorAngle keeps g and J consistent with the actual morphology.
func (m *GenerativeModel) SetSensorAngle(angle float64) {
	m.SensorAngle = angle
}

// SetTarget rewrites the homeostatic set-point.
func (m *GenerativeModel) SetTarget(target float64) {
	m.PriorMean.Nutrient = target
}

// SetSensoryPrecision installs freshly estimated sensor precisions.
func (m *GenerativeModel) SetSensoryPrecision(p Observation) {
	m.SensoryPrecision = p
}

// MeanSensoryPrecision is the average of the two sensor precisions.
func (m *GenerativeModel) MeanSensoryPrecision() float64 {
	return m.SensoryPrecision.Mean()
}

// =============================================================================
// Angle helpers
// =============================================================================

// WrapAngle maps a into [0, 2π).
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		return 0
	}
	return a
}

// AngleDiff returns the signed shortest rotation from b to a, in (−π, π].
func AngleDiff(a, b float64) float64 {
	d := WrapAngle(a - b)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
