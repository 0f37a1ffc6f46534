// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"math"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
)

// Landmark is a remembered high-nutrient location.
type Landmark struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	PeakNutrient  float64 `json:"peak_nutrient"`
	LastVisitTick uint64  `json:"last_visit_tick"`
	VisitCount    uint64  `json:"visit_count"`

	// Reliability is in (0, 1]. It is 1.0 right after a visit and decays
	// geometrically every tick the landmark is not visited.
	Reliability float64 `json:"reliability"`
}

// DistanceTo returns the Euclidean distance to (x, y).
func (l Landmark) DistanceTo(x, y float64) float64 {
	return math.Hypot(l.X-x, l.Y-y)
}

// LandmarkEvent reports what Observe did.
type LandmarkEvent int

const (
	// LandmarkNone means nothing was stored or refreshed.
	LandmarkNone LandmarkEvent = iota
	// LandmarkRefreshed means an existing landmark was revisited.
	LandmarkRefreshed
	// LandmarkCreated means a new landmark was stored in a free slot.
	LandmarkCreated
	// LandmarkReplaced means a new landmark evicted the least reliable one.
	LandmarkReplaced
)

// String returns a human-readable event name.
func (e LandmarkEvent) String() string {
	switch e {
	case LandmarkRefreshed:
		return "refreshed"
	case LandmarkCreated:
		return "created"
	case LandmarkReplaced:
		return "replaced"
	default:
		return "none"
	}
}

// LandmarkStore is the bounded episodic memory.
//
// # Description
//
// Holds at most Capacity landmarks. A full store never rejects a qualifying
// candidate; it evicts the least reliable entry instead. Landmarks whose
// reliability falls below MinReliability are forgotten.
//
// # Thread Safety
//
// NOT safe for concurrent use; the agent mutates it within a tick.
type LandmarkStore struct {
	cfg       config.LandmarkConfig
	landmarks []Landmark
}

// NewLandmarkStore creates an empty store.
func NewLandmarkStore(cfg config.LandmarkConfig) *LandmarkStore {
	return &LandmarkStore{
		cfg:       cfg,
		landmarks: make([]Landmark, 0, cfg.Capacity),
	}
}

// Len returns the number of stored landmarks.
func (s *LandmarkStore) Len() int {
	return len(s.landmarks)
}

// Landmarks returns a copy of the stored landmarks.
func (s *LandmarkStore) Landmarks() []Landmark {
	out := make([]Landmark, len(s.landmarks))
	copy(out, s.landmarks)
	return out
}

// nearestWithin returns the index of the nearest landmark closer than the
// visit radius, or -1.
func (s *LandmarkStore) nearestWithin(x, y float64) int {
	best, bestDist := -1, s.cfg.VisitRadius
	for i, l := range s.landmarks {
		if d := l.DistanceTo(x, y); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// add inserts l, evicting the least reliable entry when full. Returns the
// slot used and the event.
func (s *LandmarkStore) add(l Landmark) (int, LandmarkEvent) {
	if len(s.landmarks) < s.cfg.Capacity {
		s.landmarks = append(s.landmarks, l)
		return len(s.landmarks) - 1, LandmarkCreated
	}
	victim := 0
	for i, existing := range s.landmarks {
		if existing.Reliability < s.landmarks[victim].Reliability {
			victim = i
		}
	}
	s.landmarks[victim] = l
	return victim, LandmarkReplaced
}

// Add stores a landmark directly, applying the eviction policy.
func (s *LandmarkStore) Add(l Landmark) LandmarkEvent {
	_, ev := s.add(l)
	return ev
}

// Observe is the per-tick landmark update.
//
// # Description
//
//  1. If a landmark lies within VisitRadius, the nearest one is refreshed:
//     reliability 1.0, last visit = tick, peak = max(peak, value).
//  2. Otherwise, if value ≥ Threshold, a new landmark is stored.
//  3. Every other landmark decays by Decay; those below MinReliability are
//     removed.
//
// # Inputs
//
//   - x, y: Agent position.
//   - value: Mean sensed concentration this tick.
//   - tick: Current tick.
//
// # Outputs
//
//   - LandmarkEvent: What happened in steps 1 and 2.
func (s *LandmarkStore) Observe(x, y, value float64, tick uint64) LandmarkEvent {
	visited := s.nearestWithin(x, y)
	event := LandmarkNone

	switch {
	case visited >= 0:
		l := &s.landmarks[visited]
		l.Reliability = 1.0
		l.LastVisitTick = tick
		l.VisitCount++
		l.PeakNutrient = math.Max(l.PeakNutrient, value)
		event = LandmarkRefreshed
	case value >= s.cfg.Threshold:
		visited, event = s.add(Landmark{
			X:             x,
			Y:             y,
			PeakNutrient:  value,
			LastVisitTick: tick,
			VisitCount:    1,
			Reliability:   1.0,
		})
	}

	kept := s.landmarks[:0]
	for i, l := range s.landmarks {
		if i != visited {
			l.Reliability *= s.cfg.Decay
			if l.Reliability < s.cfg.MinReliability {
				continue
			}
		}
		kept = append(kept, l)
	}
	s.landmarks = kept
	return event
}

// Best returns the most reliable landmark at least VisitRadius away from
// (x, y). Ties go to the nearest.
//
// # Outputs
//
//   - Landmark: The selected landmark.
//   - bool: False if no landmark qualifies.
func (s *LandmarkStore) Best(x, y float64) (Landmark, bool) {
	var (
		best     Landmark
		bestDist float64
		found    bool
	)
	for _, l := range s.landmarks {
		d := l.DistanceTo(x, y)
		if d < s.cfg.VisitRadius {
			continue
		}
		if !found || l.Reliability > best.Reliability ||
			(l.Reliability == best.Reliability && d < bestDist) {
			best, bestDist, found = l, d, true
		}
	}
	return best, found
}
