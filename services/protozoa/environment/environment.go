// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package environment provides the nutrient field the agent senses.
//
// The agent only ever sees the field through the Field interface: a point
// query returning a concentration in [0, 1], or Sentinel when the point lies
// outside the dish. Everything else here (drifting sources, decay, respawn)
// is a collaborator the cognitive engine never inspects.
package environment

import (
	"math"
	"math/rand/v2"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
)

// Sentinel is returned for queries outside the field bounds. The agent treats
// it as a strongly negative reading, which pushes it away from the walls.
const Sentinel = -1.0

// Field is a point-query oracle over a 2D nutrient concentration.
//
// Implementations must return a value in [0, 1] for in-bounds points and
// exactly Sentinel otherwise. Non-finite coordinates are out of bounds.
type Field interface {
	Concentration(x, y float64) float64
}

// Stepper is implemented by fields that evolve between ticks.
type Stepper interface {
	Step()
}

// FieldFunc adapts an ordinary function to the Field interface.
//
// No bounds checking is applied; the function is responsible for honoring
// the Field contract.
type FieldFunc func(x, y float64) float64

// Concentration calls f(x, y).
func (f FieldFunc) Concentration(x, y float64) float64 {
	return f(x, y)
}

// inBounds reports whether (x, y) lies within [0,w]×[0,h]. NaN fails every
// comparison and is therefore out of bounds.
func inBounds(x, y, w, h float64) bool {
	return x >= 0 && x <= w && y >= 0 && y <= h
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// =============================================================================
// Static Gaussian field
// =============================================================================

// GaussianField is a single stationary Gaussian source inside a rectangle.
type GaussianField struct {
	Width, Height float64
	CX, CY        float64
	Sigma         float64
	Peak          float64
}

// NewGaussianField creates a field with one source at (cx, cy).
func NewGaussianField(width, height, cx, cy, sigma, peak float64) *GaussianField {
	return &GaussianField{
		Width:  width,
		Height: height,
		CX:     cx,
		CY:     cy,
		Sigma:  sigma,
		Peak:   peak,
	}
}

// Concentration implements Field.
func (g *GaussianField) Concentration(x, y float64) float64 {
	if !inBounds(x, y, g.Width, g.Height) {
		return Sentinel
	}
	dx, dy := x-g.CX, y-g.CY
	return clamp01(g.Peak * math.Exp(-(dx*dx+dy*dy)/(2*g.Sigma*g.Sigma)))
}

// =============================================================================
// Petri dish
// =============================================================================

// Source is one Gaussian nutrient blob in the dish.
type Source struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	Intensity float64 `json:"intensity"`
	Decay     float64 `json:"decay"`
}

// PetriDish is a rectangular dish of drifting, decaying nutrient sources.
//
// # Description
//
// Each Step every source loses intensity geometrically, drifts by a bounded
// Brownian step, and is replaced by a fresh random source once its intensity
// falls below the respawn threshold. The concentration at a point is the
// sum of all source contributions, clamped to [0, 1].
//
// Thread Safety: Not safe for concurrent use. The simulation runner steps
// the dish and the agent from the same goroutine.
type PetriDish struct {
	width, height float64
	cfg           config.EnvironmentConfig
	sources       []Source
	rng           *rand.Rand
}

// NewPetriDish creates a dish with a random number of sources.
//
// Inputs:
//   - world: Dish dimensions.
//   - env: Source generation parameters.
//   - seed: Seed for the dish's own random stream.
//
// Outputs:
//   - *PetriDish: The populated dish.
func NewPetriDish(world config.WorldConfig, env config.EnvironmentConfig, seed uint64) *PetriDish {
	d := &PetriDish{
		width:  world.Width,
		height: world.Height,
		cfg:    env,
		rng:    rand.New(rand.NewPCG(seed, 0x5eed_d15b)),
	}
	n := env.SourceCountMin
	if env.SourceCountMax > env.SourceCountMin {
		n += d.rng.IntN(env.SourceCountMax - env.SourceCountMin + 1)
	}
	d.sources = make([]Source, n)
	for i := range d.sources {
		d.sources[i] = d.randomSource()
	}
	return d
}

func (d *PetriDish) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + d.rng.Float64()*(hi-lo)
}

func (d *PetriDish) randomSource() Source {
	m := d.cfg.SourceMargin
	return Source{
		X:         d.uniform(m, d.width-m),
		Y:         d.uniform(m, d.height-m),
		Radius:    d.uniform(d.cfg.RadiusMin, d.cfg.RadiusMax),
		Intensity: d.uniform(d.cfg.IntensityMin, d.cfg.IntensityMax),
		Decay:     d.uniform(d.cfg.DecayMin, d.cfg.DecayMax),
	}
}

// Width returns the dish width.
func (d *PetriDish) Width() float64 { return d.width }

// Height returns the dish height.
func (d *PetriDish) Height() float64 { return d.height }

// Concentration implements Field.
func (d *PetriDish) Concentration(x, y float64) float64 {
	if !inBounds(x, y, d.width, d.height) {
		return Sentinel
	}
	total := 0.0
	for _, s := range d.sources {
		dx, dy := x-s.X, y-s.Y
		total += s.Intensity * math.Exp(-(dx*dx+dy*dy)/(2*s.Radius*s.Radius))
	}
	return clamp01(total)
}

// Step advances the dish by one tick: decay, drift, respawn.
func (d *PetriDish) Step() {
	m := d.cfg.SourceMargin
	step := d.cfg.BrownianStep
	for i := range d.sources {
		s := &d.sources[i]
		s.Intensity *= s.Decay
		s.X = math.Max(m, math.Min(d.width-m, s.X+d.uniform(-step, step)))
		s.Y = math.Max(m, math.Min(d.height-m, s.Y+d.uniform(-step, step)))
		if s.Intensity < d.cfg.RespawnThreshold {
			*s = d.randomSource()
		}
	}
}

// Sources returns a copy of the current sources.
func (d *PetriDish) Sources() []Source {
	out := make([]Source, len(d.sources))
	copy(out, d.sources)
	return out
}
