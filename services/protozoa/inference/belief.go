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
	"math"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
)

// BeliefState is the Gaussian posterior q(s) = N(μ, Σ) with diagonal Σ.
//
// Variance is kept inside [MinVariance, MaxVariance] so Σ stays positive
// without any matrix inversion.
type BeliefState struct {
	Mean     Vector `json:"mean"`
	Variance Vector `json:"variance"`

	minVariance float64
	maxVariance float64
}

// NewBeliefState creates a belief at the given pose with no nutrient
// expectation and the configured initial variance.
func NewBeliefState(cfg config.InferenceConfig, x, y, angle float64) BeliefState {
	v := cfg.InitialVariance
	return BeliefState{
		Mean:        Vector{Nutrient: 0, X: x, Y: y, Angle: WrapAngle(angle)},
		Variance:    Vector{Nutrient: v, X: v, Y: v, Angle: v},
		minVariance: cfg.MinVariance,
		maxVariance: cfg.MaxVariance,
	}
}

// SyncPose overwrites the positional beliefs with the actual pose.
// Proprioception is treated as exact.
func (b *BeliefState) SyncPose(x, y, angle float64) {
	b.Mean.X = x
	b.Mean.Y = y
	b.Mean.Angle = WrapAngle(angle)
}

// ScaleVariance multiplies every variance by factor, then bounds it.
func (b *BeliefState) ScaleVariance(factor float64) {
	scale := func(v float64) float64 {
		return clamp(v*factor, b.minVariance, b.maxVariance)
	}
	b.Variance = Vector{
		Nutrient: scale(b.Variance.Nutrient),
		X:        scale(b.Variance.X),
		Y:        scale(b.Variance.Y),
		Angle:    scale(b.Variance.Angle),
	}
}

// TotalUncertainty is the trace of Σ.
func (b BeliefState) TotalUncertainty() float64 {
	return b.Variance.Nutrient + b.Variance.X + b.Variance.Y + b.Variance.Angle
}

// =============================================================================
// Variational Free Energy
// =============================================================================

// PredictionErrors returns e = o − g(μ).
func PredictionErrors(obs Observation, mean Vector, model *GenerativeModel) Observation {
	pred := model.Predict(mean)
	return Observation{
		Left:  obs.Left - pred.Left,
		Right: obs.Right - pred.Right,
	}
}

// priorDeviation returns μ − η with the angle wrapped.
func priorDeviation(mean Vector, model *GenerativeModel) Vector {
	return Vector{
		Nutrient: mean.Nutrient - model.PriorMean.Nutrient,
		X:        mean.X - model.PriorMean.X,
		Y:        mean.Y - model.PriorMean.Y,
		Angle:    AngleDiff(mean.Angle, model.PriorMean.Angle),
	}
}

// FreeEnergy computes F = ½ eᵀΠo e + ½ (μ−η)ᵀΠη(μ−η).
func FreeEnergy(obs Observation, mean Vector, model *GenerativeModel) float64 {
	e := PredictionErrors(obs, mean, model)
	po := model.SensoryPrecision
	sensory := 0.5 * (po.Left*e.Left*e.Left + po.Right*e.Right*e.Right)

	d := priorDeviation(mean, model)
	pp := model.PriorPrecision
	prior := 0.5 * (pp.Nutrient*d.Nutrient*d.Nutrient +
		pp.X*d.X*d.X +
		pp.Y*d.Y*d.Y +
		pp.Angle*d.Angle*d.Angle)

	return sensory + prior
}

// DescentDirection returns Πo·Jᵀ·e − Πη·(μ−η), the negative VFE gradient.
func DescentDirection(obs Observation, mean Vector, model *GenerativeModel) Vector {
	e := PredictionErrors(obs, mean, model)
	j := model.Jacobian(mean)
	po := model.SensoryPrecision
	wl, wr := po.Left*e.Left, po.Right*e.Right

	d := priorDeviation(mean, model)
	pp := model.PriorPrecision

	return Vector{
		Nutrient: j.DNutrient[0]*wl + j.DNutrient[1]*wr - pp.Nutrient*d.Nutrient,
		X:        -pp.X * d.X,
		Y:        -pp.Y * d.Y,
		Angle:    j.DAngle[0]*wl + j.DAngle[1]*wr - pp.Angle*d.Angle,
	}
}

// InferenceResult is the outcome of one belief update.
type InferenceResult struct {
	Belief    BeliefState
	VFE       float64
	Errors    Observation
	Direction Vector
}

// Infer performs one gradient step on the belief mean.
//
// # Description
//
// Computes μ' = μ + lr·(Πo·Jᵀ·e − Πη·(μ−η)), shrinks the variance by
// reduction, and evaluates F and the prediction errors at μ'. Nothing is
// written back to the caller's belief; the result is only returned when every
// term is finite.
//
// Inputs:
//   - obs: The current observation pair.
//   - belief: Current belief (already synced to the pose).
//   - model: Generative model with the current sensor angle.
//   - lr: The morphology's current belief learning rate.
//   - reduction: Variance shrink factor applied after the update.
//
// Outputs:
//   - InferenceResult: Updated belief, VFE and errors at the new mean.
//   - error: *NonFiniteError wrapping ErrNonFiniteValue on NaN/Inf.
func Infer(obs Observation, belief BeliefState, model *GenerativeModel, lr, reduction float64) (InferenceResult, error) {
	if err := CheckFinite("observation", obs.Left, obs.Right); err != nil {
		return InferenceResult{}, err
	}

	dir := DescentDirection(obs, belief.Mean, model)
	if err := CheckFinite("gradient", dir.Nutrient, dir.X, dir.Y, dir.Angle); err != nil {
		return InferenceResult{}, err
	}

	next := belief
	next.Mean = Vector{
		Nutrient: belief.Mean.Nutrient + lr*dir.Nutrient,
		X:        belief.Mean.X + lr*dir.X,
		Y:        belief.Mean.Y + lr*dir.Y,
		Angle:    WrapAngle(belief.Mean.Angle + lr*dir.Angle),
	}
	next.ScaleVariance(reduction)
	if err := CheckFinite("belief", next.Mean.Nutrient, next.Mean.X, next.Mean.Y, next.Mean.Angle); err != nil {
		return InferenceResult{}, err
	}

	vfe := FreeEnergy(obs, next.Mean, model)
	if err := CheckFinite("vfe", vfe); err != nil {
		return InferenceResult{}, err
	}

	return InferenceResult{
		Belief:    next,
		VFE:       vfe,
		Errors:    PredictionErrors(obs, next.Mean, model),
		Direction: dir,
	}, nil
}

// =============================================================================
// Expected Free Energy
// =============================================================================

// EFE is the Expected Free Energy of a predicted belief, with its parts.
//
// Total = Risk + Ambiguity − Epistemic. Lower is better.
type EFE struct {
	// Risk is the divergence of the predicted nutrient from the preference.
	Risk float64 `json:"risk"`
	// Ambiguity is the expected observation noise, Σ 1/(2Πo).
	Ambiguity float64 `json:"ambiguity"`
	// Epistemic is the expected information gain about the nutrient.
	Epistemic float64 `json:"epistemic"`
	Total     float64 `json:"total"`
}

// ExpectedFreeEnergy scores a predicted belief.
func ExpectedFreeEnergy(predicted BeliefState, model *GenerativeModel) EFE {
	d := predicted.Mean.Nutrient - model.PriorMean.Nutrient
	risk := 0.5 * model.PriorPrecision.Nutrient * d * d

	po := model.SensoryPrecision
	ambiguity := 1/(2*po.Left) + 1/(2*po.Right)

	epistemic := 0.5 * math.Log1p(predicted.Variance.Nutrient*model.MeanSensoryPrecision())

	return EFE{
		Risk:      risk,
		Ambiguity: ambiguity,
		Epistemic: epistemic,
		Total:     risk + ambiguity - epistemic,
	}
}
