// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package morphology implements the slow, second-timescale regulator that
// adapts the agent's own sensing and learning parameters.
//
// # Description
//
// Two stress signals are accumulated every tick:
//
//   - surprise: the Variational Free Energy after belief update.
//   - frustration: the positive part of Expected Free Energy.
//
// When a signal's average over a full window exceeds its threshold the
// regulator acts once and resets that accumulator. High surprise widens the
// sensors and speeds up learning (structural morphogenesis). High
// frustration lowers the homeostatic target (allostatic regulation). Below
// threshold the accumulators decay instead of resetting and a new window
// begins.
//
// The regulator never holds a reference to the generative model. It pushes
// new values through a ModelWriter passed to each Regulate call.
package morphology

import (
	"math"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/inference"
)

// Morphology is the set of parameters allowed to change during a run.
type Morphology struct {
	SensorDist          float64 `json:"sensor_dist"`
	SensorAngle         float64 `json:"sensor_angle"`
	BeliefLearningRate  float64 `json:"belief_learning_rate"`
	TargetConcentration float64 `json:"target_concentration"`
}

// FromConfig returns the initial morphology, clamped to its bounds.
func FromConfig(cfg config.MorphologyConfig) Morphology {
	return Morphology{
		SensorDist:          cfg.SensorDist,
		SensorAngle:         cfg.SensorAngle,
		BeliefLearningRate:  cfg.BeliefLearningRate,
		TargetConcentration: cfg.TargetConcentration,
	}.Clamp(cfg)
}

// Clamp bounds every field to its configured range.
func (m Morphology) Clamp(cfg config.MorphologyConfig) Morphology {
	return Morphology{
		SensorDist:          clamp(m.SensorDist, cfg.MinSensorDist, cfg.MaxSensorDist),
		SensorAngle:         clamp(m.SensorAngle, cfg.MinSensorAngle, cfg.MaxSensorAngle),
		BeliefLearningRate:  clamp(m.BeliefLearningRate, cfg.MinLearningRate, cfg.MaxLearningRate),
		TargetConcentration: clamp(m.TargetConcentration, cfg.MinTarget, cfg.MaxTarget),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ModelWriter receives morphology changes that the generative model depends
// on. *inference.GenerativeModel implements it.
type ModelWriter interface {
	SetSensorAngle(angle float64)
	SetTarget(target float64)
}

// Accumulators exposes the regulator's internal stress levels.
type Accumulators struct {
	Surprise               float64 `json:"surprise"`
	Frustration            float64 `json:"frustration"`
	SurpriseWindowStart    uint64  `json:"surprise_window_start"`
	FrustrationWindowStart uint64  `json:"frustration_window_start"`
}

// Adjustment describes what one Regulate call did.
type Adjustment struct {
	// Structural is true when sensor geometry and learning rate changed.
	Structural bool
	// Allostatic is true when the target was lowered.
	Allostatic bool
	// Recovered is true when the target moved back toward its ideal.
	Recovered bool

	AvgSurprise    float64
	AvgFrustration float64
	Before, After  Morphology
}

// Changed reports whether any morphology field was modified.
func (a Adjustment) Changed() bool {
	return a.Structural || a.Allostatic || a.Recovered
}

// Regulator owns the morphology and the two stress accumulators.
//
// # Thread Safety
//
// NOT safe for concurrent use; the agent calls it once per tick.
type Regulator struct {
	cfg   config.MorphologyConfig
	morph Morphology
	ideal float64

	surprise         float64
	frustration      float64
	surpriseStart    uint64
	frustrationStart uint64
	lastTargetChange uint64
}

// NewRegulator creates a regulator starting from the configured morphology.
func NewRegulator(cfg config.MorphologyConfig) *Regulator {
	m := FromConfig(cfg)
	return &Regulator{
		cfg:   cfg,
		morph: m,
		ideal: m.TargetConcentration,
	}
}

// Morphology returns the current morphology.
func (r *Regulator) Morphology() Morphology {
	return r.morph
}

// Accumulators returns the current stress levels.
func (r *Regulator) Accumulators() Accumulators {
	return Accumulators{
		Surprise:               r.surprise,
		Frustration:            r.frustration,
		SurpriseWindowStart:    r.surpriseStart,
		FrustrationWindowStart: r.frustrationStart,
	}
}

// Regulate folds one tick's signals in and applies any due adjustment.
//
// # Description
//
// tick is the number of completed ticks including this one, so the first
// call uses tick 1. For each signal, once WindowSize ticks have elapsed
// since its window start the average accumulator / elapsed is compared with
// the threshold. Above it, the adjustment fires, the accumulator is reset to
// zero and the window restarts at tick. Otherwise the accumulator is
// multiplied by AccumulatorDecay and the window also restarts, so every
// average spans one window plus the decayed carry-over. Before the window
// has elapsed nothing but accumulation happens.
//
// # Inputs
//
//   - tick: Completed tick count.
//   - vfe: Variational Free Energy of this tick.
//   - efe: Expected Free Energy of the committed action.
//   - model: Receives the new sensor angle and target.
//
// # Outputs
//
//   - Adjustment: What changed.
//   - error: *inference.NonFiniteError if an accumulator became non-finite.
//     Nothing is modified in that case.
func (r *Regulator) Regulate(tick uint64, vfe, efe float64, model ModelWriter) (Adjustment, error) {
	surprise := r.surprise + vfe
	frustration := r.frustration + math.Max(0, efe)
	if err := inference.CheckFinite("regulator accumulator", surprise, frustration); err != nil {
		return Adjustment{}, err
	}
	r.surprise, r.frustration = surprise, frustration

	adj := Adjustment{Before: r.morph}
	window := r.cfg.WindowSize

	if elapsed := sub(tick, r.surpriseStart); elapsed >= window {
		adj.AvgSurprise = r.surprise / float64(elapsed)
		if adj.AvgSurprise > r.cfg.SurpriseThreshold {
			delta := (adj.AvgSurprise - r.cfg.SurpriseThreshold) / r.cfg.SurpriseThreshold
			r.morph.SensorDist += r.cfg.SensorDistRate * delta
			r.morph.SensorAngle += r.cfg.SensorAngleRate * delta
			r.morph.BeliefLearningRate += r.cfg.LearningRateRate * delta
			r.morph = r.morph.Clamp(r.cfg)
			model.SetSensorAngle(r.morph.SensorAngle)

			r.surprise = 0
			r.surpriseStart = tick
			adj.Structural = true
		} else {
			r.surprise *= r.cfg.AccumulatorDecay
			r.surpriseStart = tick
		}
	}

	if elapsed := sub(tick, r.frustrationStart); elapsed >= window {
		adj.AvgFrustration = r.frustration / float64(elapsed)
		if adj.AvgFrustration > r.cfg.FrustrationThreshold {
			delta := (adj.AvgFrustration - r.cfg.FrustrationThreshold) / r.cfg.FrustrationThreshold
			r.morph.TargetConcentration -= r.cfg.TargetRate * delta
			r.morph = r.morph.Clamp(r.cfg)
			model.SetTarget(r.morph.TargetConcentration)

			r.frustration = 0
			r.frustrationStart = tick
			r.lastTargetChange = tick
			adj.Allostatic = true
		} else {
			r.frustration *= r.cfg.AccumulatorDecay
			r.frustrationStart = tick
			adj.Recovered = r.recover(tick, model)
		}
	}

	adj.After = r.morph
	return adj, nil
}

// recover moves the target a fraction of the way back to its ideal value,
// at most once per window.
func (r *Regulator) recover(tick uint64, model ModelWriter) bool {
	gap := r.ideal - r.morph.TargetConcentration
	if math.Abs(gap) < 1e-9 || sub(tick, r.lastTargetChange) < r.cfg.WindowSize {
		return false
	}
	r.morph.TargetConcentration += gap * r.cfg.TargetRecovery
	r.morph = r.morph.Clamp(r.cfg)
	model.SetTarget(r.morph.TargetConcentration)
	r.lastTargetChange = tick
	return true
}

func sub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
