// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package environment

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
)

func newTestDish(seed uint64) *PetriDish {
	cfg := config.Default()
	return NewPetriDish(cfg.World, cfg.Environment, seed)
}

func TestPetriDish_ConcentrationRange(t *testing.T) {
	dish := newTestDish(11)
	rng := rand.New(rand.NewPCG(1, 2))

	for step := 0; step < 50; step++ {
		for i := 0; i < 200; i++ {
			x := rng.Float64() * dish.Width()
			y := rng.Float64() * dish.Height()
			c := dish.Concentration(x, y)
			if c < 0 || c > 1 {
				t.Fatalf("concentration(%.2f, %.2f) = %v, want within [0,1]", x, y, c)
			}
		}
		dish.Step()
	}
}

func TestPetriDish_OutOfBoundsReturnsSentinel(t *testing.T) {
	dish := newTestDish(3)

	points := [][2]float64{
		{-0.001, 10},
		{10, -5},
		{dish.Width() + 0.5, 10},
		{10, dish.Height() + 1},
		{math.NaN(), 10},
		{10, math.Inf(1)},
	}
	for _, p := range points {
		assert.Equal(t, Sentinel, dish.Concentration(p[0], p[1]), "point %v", p)
	}
}

func TestPetriDish_EdgesAreInBounds(t *testing.T) {
	dish := newTestDish(3)
	assert.NotEqual(t, Sentinel, dish.Concentration(0, 0))
	assert.NotEqual(t, Sentinel, dish.Concentration(dish.Width(), dish.Height()))
}

func TestPetriDish_SourceCountAndPlacement(t *testing.T) {
	cfg := config.Default()
	for seed := uint64(0); seed < 20; seed++ {
		dish := NewPetriDish(cfg.World, cfg.Environment, seed)
		sources := dish.Sources()
		require.GreaterOrEqual(t, len(sources), cfg.Environment.SourceCountMin)
		require.LessOrEqual(t, len(sources), cfg.Environment.SourceCountMax)

		for _, s := range sources {
			assert.GreaterOrEqual(t, s.X, cfg.Environment.SourceMargin)
			assert.LessOrEqual(t, s.X, cfg.World.Width-cfg.Environment.SourceMargin)
			assert.GreaterOrEqual(t, s.Radius, cfg.Environment.RadiusMin)
			assert.LessOrEqual(t, s.Radius, cfg.Environment.RadiusMax)
		}
	}
}

func TestPetriDish_DeterministicForSeed(t *testing.T) {
	a := newTestDish(42)
	b := newTestDish(42)
	for i := 0; i < 25; i++ {
		a.Step()
		b.Step()
	}
	assert.Equal(t, a.Sources(), b.Sources())
}

func TestPetriDish_DecayAndRespawn(t *testing.T) {
	cfg := config.Default()
	env := cfg.Environment
	env.DecayMin, env.DecayMax = 0.5, 0.5
	env.IntensityMin, env.IntensityMax = 1.0, 1.0
	env.RespawnThreshold = 0.3

	dish := NewPetriDish(cfg.World, env, 9)

	dish.Step()
	for _, s := range dish.Sources() {
		assert.InDelta(t, 0.5, s.Intensity, 1e-12)
	}

	// 0.25 < 0.3 triggers respawn at full intensity.
	dish.Step()
	for _, s := range dish.Sources() {
		assert.InDelta(t, 1.0, s.Intensity, 1e-12)
	}
}

func TestPetriDish_SourcesIsACopy(t *testing.T) {
	dish := newTestDish(5)
	s := dish.Sources()
	s[0].Intensity = 123
	assert.NotEqual(t, 123.0, dish.Sources()[0].Intensity)
}

func TestGaussianField(t *testing.T) {
	f := NewGaussianField(100, 100, 50, 50, 10, 1.0)

	assert.InDelta(t, 1.0, f.Concentration(50, 50), 1e-12)
	assert.Less(t, f.Concentration(70, 50), f.Concentration(60, 50))
	assert.Equal(t, Sentinel, f.Concentration(101, 50))
}

func TestFieldFunc(t *testing.T) {
	var f Field = FieldFunc(func(x, y float64) float64 { return 0.25 })
	assert.Equal(t, 0.25, f.Concentration(1, 2))
}
