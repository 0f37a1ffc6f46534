// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory holds the agent's three memory layers.
//
// # Description
//
//   - SensorHistory: short-term ring buffer of recent sensor samples.
//   - SpatialGrid: long-term per-cell Welford statistics of sensed nutrient.
//   - LandmarkStore: episodic memory of high-value locations.
//
// # Thread Safety
//
// None of the types are safe for concurrent mutation. The agent owns them
// and mutates them only inside a tick. SpatialGrid.Snapshot returns an
// immutable copy that the planner reads from many goroutines.
package memory

// RingBuffer is a fixed-size circular buffer.
//
// # Description
//
// Provides O(1) push and indexed read with bounded memory. When full, the
// oldest item is overwritten.
//
// # Thread Safety
//
// NOT safe for concurrent use; caller must synchronize.
type RingBuffer[T any] struct {
	data  []T
	head  int // Next write position
	count int
}

// NewRingBuffer creates a ring buffer with the given capacity.
//
// # Inputs
//
//   - capacity: Maximum number of elements to store. Values below 1 are raised to 1.
//
// # Outputs
//
//   - *RingBuffer[T]: Ready-to-use buffer.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{data: make([]T, capacity)}
}

// Push adds an item, overwriting the oldest when full.
func (r *RingBuffer[T]) Push(item T) {
	r.data[r.head] = item
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// At returns the i-th item where 0 is the oldest.
//
// # Outputs
//
//   - T: The item.
//   - bool: False if i is out of range.
func (r *RingBuffer[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.count {
		return zero, false
	}
	oldest := (r.head - r.count + len(r.data)) % len(r.data)
	return r.data[(oldest+i)%len(r.data)], true
}

// Latest returns the newest item.
func (r *RingBuffer[T]) Latest() (T, bool) {
	return r.At(r.count - 1)
}

// Len returns the current number of elements.
func (r *RingBuffer[T]) Len() int {
	return r.count
}

// Cap returns the maximum capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}

// Slice returns all items from oldest to newest as a copy.
func (r *RingBuffer[T]) Slice() []T {
	if r.count == 0 {
		return nil
	}
	out := make([]T, r.count)
	for i := range out {
		out[i], _ = r.At(i)
	}
	return out
}

// =============================================================================
// Sensor history
// =============================================================================

// SensorSample is one tick of short-term experience.
type SensorSample struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Energy float64 `json:"energy"`
	Tick   uint64  `json:"tick"`
}

// Mean returns the average of both sensor readings.
func (s SensorSample) Mean() float64 {
	return (s.Left + s.Right) / 2
}

// TrendDirection indicates the direction of a trend.
type TrendDirection string

const (
	TrendUp     TrendDirection = "UP"
	TrendDown   TrendDirection = "DOWN"
	TrendStable TrendDirection = "STABLE"
)

// stableBand is the |delta| below which a trend is reported as stable.
const stableBand = 1e-3

// Trend is the change in mean sensed concentration over a window.
type Trend struct {
	// Delta is newest mean minus the mean k samples earlier.
	Delta float64 `json:"delta"`

	// Direction classifies Delta.
	Direction TrendDirection `json:"direction"`

	// Samples is the number of samples actually spanned.
	Samples int `json:"samples"`
}

// SensorHistory is the short-term memory of recent samples.
type SensorHistory struct {
	buf *RingBuffer[SensorSample]
}

// NewSensorHistory creates a history of the given capacity.
func NewSensorHistory(capacity int) *SensorHistory {
	return &SensorHistory{buf: NewRingBuffer[SensorSample](capacity)}
}

// Push records a sample.
func (h *SensorHistory) Push(s SensorSample) {
	h.buf.Push(s)
}

// Len returns the number of stored samples.
func (h *SensorHistory) Len() int {
	return h.buf.Len()
}

// At returns the i-th sample, 0 being the oldest.
func (h *SensorHistory) At(i int) (SensorSample, bool) {
	return h.buf.At(i)
}

// Latest returns the most recent sample.
func (h *SensorHistory) Latest() (SensorSample, bool) {
	return h.buf.Latest()
}

// Samples returns all samples, oldest first.
func (h *SensorHistory) Samples() []SensorSample {
	return h.buf.Slice()
}

// TemporalGradient returns now minus the mean of the latest stored sample,
// or 0 when the history is empty.
func (h *SensorHistory) TemporalGradient(now float64) float64 {
	last, ok := h.buf.Latest()
	if !ok {
		return 0
	}
	return now - last.Mean()
}

// Trend compares the newest sample with the one k samples before it.
//
// # Inputs
//
//   - k: Look-back distance. Clamped to the available history.
//
// # Outputs
//
//   - Trend: Zero-valued and stable when fewer than two samples exist.
func (h *SensorHistory) Trend(k int) Trend {
	n := h.buf.Len()
	if n < 2 || k < 1 {
		return Trend{Direction: TrendStable}
	}
	if k > n-1 {
		k = n - 1
	}
	newest, _ := h.buf.At(n - 1)
	past, _ := h.buf.At(n - 1 - k)
	delta := newest.Mean() - past.Mean()

	dir := TrendStable
	switch {
	case delta > stableBand:
		dir = TrendUp
	case delta < -stableBand:
		dir = TrendDown
	}
	return Trend{Delta: delta, Direction: dir, Samples: k}
}
