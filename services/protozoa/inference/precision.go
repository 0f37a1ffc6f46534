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

import "github.com/AleutianAI/protozoa/services/protozoa/config"

// PrecisionEstimator tracks per-sensor precision as an exponential moving
// average of squared prediction error:
//
//	Πo ← clamp(1 / (α·e² + (1−α)/Πo), MIN, MAX)
//
// Sensors that have recently been wrong lose weight; the bounds prevent
// runaway confidence.
type PrecisionEstimator struct {
	precision Observation
	alpha     float64
	min, max  float64
}

// NewPrecisionEstimator starts both sensors at the initial precision.
func NewPrecisionEstimator(cfg config.InferenceConfig) *PrecisionEstimator {
	return &PrecisionEstimator{
		precision: Observation{
			Left:  cfg.InitialSensoryPrecision,
			Right: cfg.InitialSensoryPrecision,
		},
		alpha: cfg.PrecisionSmoothing,
		min:   cfg.MinSensoryPrecision,
		max:   cfg.MaxSensoryPrecision,
	}
}

func (p *PrecisionEstimator) step(prev, e float64) float64 {
	return clamp(1/(p.alpha*e*e+(1-p.alpha)/prev), p.min, p.max)
}

// Update folds one pair of prediction errors into the estimate.
//
// The estimate is left unchanged and an error returned if either result is
// non-finite.
func (p *PrecisionEstimator) Update(errs Observation) error {
	next := Observation{
		Left:  p.step(p.precision.Left, errs.Left),
		Right: p.step(p.precision.Right, errs.Right),
	}
	if err := CheckFinite("precision", next.Left, next.Right); err != nil {
		return err
	}
	p.precision = next
	return nil
}

// Precision returns the current (left, right) estimate.
func (p *PrecisionEstimator) Precision() Observation {
	return p.precision
}
