// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"slices"

	"github.com/AleutianAI/protozoa/services/protozoa/inference"
	"github.com/AleutianAI/protozoa/services/protozoa/memory"
	"github.com/AleutianAI/protozoa/services/protozoa/morphology"
	"github.com/AleutianAI/protozoa/services/protozoa/planning"
)

// Mode is the behavioural label derived from agent state each tick. It is
// for observers only and never feeds back into behaviour.
type Mode string

const (
	ModeExploring   Mode = "Exploring"
	ModeExploiting  Mode = "Exploiting"
	ModeSeekingGoal Mode = "SeekingGoal"
	ModePanicking   Mode = "Panicking"
	ModeExhausted   Mode = "Exhausted"
)

// HeadingTerms is the breakdown of one tick's heading change.
type HeadingTerms struct {
	EFE      float64 `json:"efe"`
	Plan     float64 `json:"plan"`
	Reactive float64 `json:"reactive"`
	Explore  float64 `json:"explore"`
	Noise    float64 `json:"noise"`
	Panic    float64 `json:"panic"`
	Goal     float64 `json:"goal"`
}

// Total returns the heading change in radians.
func (h HeadingTerms) Total() float64 {
	return h.EFE + h.Plan + h.Reactive + h.Explore + h.Noise + h.Panic + h.Goal
}

// Snapshot is the self-consistent view of the agent published at the end
// of every successful tick.
type Snapshot struct {
	RunID string `json:"run_id"`
	// Tick is the number of completed ticks.
	Tick uint64 `json:"tick"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Angle  float64 `json:"angle"`
	Speed  float64 `json:"speed"`
	Energy float64 `json:"energy"`
	Mode   Mode    `json:"mode"`

	Left             float64               `json:"left"`
	Right            float64               `json:"right"`
	TemporalGradient float64               `json:"temporal_gradient"`
	Trend            memory.Trend          `json:"trend"`
	PredictionError  float64               `json:"prediction_error"`
	Precision        inference.Observation `json:"precision"`
	SpatialPrecision float64               `json:"spatial_precision"`

	Belief      inference.Vector `json:"belief"`
	Uncertainty float64          `json:"uncertainty"`
	VFE         float64          `json:"vfe"`

	// EFE is the breakdown for the action chosen by EFE this tick.
	EFE         inference.EFE                      `json:"efe"`
	EFEByAction [planning.NumActions]inference.EFE `json:"efe_by_action"`
	EFEAction   planning.Action                    `json:"efe_action"`
	Heading     HeadingTerms                       `json:"heading"`

	Grid      memory.GridSnapshot `json:"grid"`
	Landmarks []memory.Landmark   `json:"landmarks"`

	HasPlan          bool          `json:"has_plan"`
	Plan             planning.Plan `json:"plan"`
	TicksUntilReplan uint64        `json:"ticks_until_replan"`

	Morphology   morphology.Morphology   `json:"morphology"`
	Accumulators morphology.Accumulators `json:"accumulators"`
	Adjustment   morphology.Adjustment   `json:"-"`
}

// Clone returns a deep copy so callers may keep or modify it freely.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Landmarks = slices.Clone(s.Landmarks)
	out.Grid.Means = slices.Clone(s.Grid.Means)
	out.Grid.Visits = slices.Clone(s.Grid.Visits)
	return out
}
