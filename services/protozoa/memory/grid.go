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

// Cell holds Welford running statistics for one grid cell.
type Cell struct {
	Mean   float64 `json:"mean"`
	M2     float64 `json:"m2"`
	Visits uint64  `json:"visits"`
}

// SpatialGrid is the agent's long-term map of expected nutrient.
//
// # Description
//
// The world is divided into Width×Height cells. Each tick the sensed value
// is folded into the agent's current cell with Welford's algorithm. The grid
// never shrinks and lives as long as the agent.
//
// Precision is visits / (1 + variance), clamped to [MinPrecision,
// MaxPrecision]. Variance is only defined from two visits on and is floored
// at VarianceFloor, so a perfectly constant cell never yields a zero
// variance.
//
// # Thread Safety
//
// Reads are safe from many goroutines as long as no Update runs
// concurrently. The agent never updates the grid while planning.
type SpatialGrid struct {
	cols, rows    int
	cellW, cellH  float64
	minPrecision  float64
	maxPrecision  float64
	varianceFloor float64
	cells         []Cell
}

// NewSpatialGrid creates an empty grid covering the world.
func NewSpatialGrid(world config.WorldConfig, cfg config.MemoryConfig) *SpatialGrid {
	return &SpatialGrid{
		cols:          cfg.GridWidth,
		rows:          cfg.GridHeight,
		cellW:         world.Width / float64(cfg.GridWidth),
		cellH:         world.Height / float64(cfg.GridHeight),
		minPrecision:  cfg.MinPrecision,
		maxPrecision:  cfg.MaxPrecision,
		varianceFloor: cfg.VarianceFloor,
		cells:         make([]Cell, cfg.GridWidth*cfg.GridHeight),
	}
}

// Dims returns the number of columns and rows.
func (g *SpatialGrid) Dims() (cols, rows int) {
	return g.cols, g.rows
}

// CellIndex maps world coordinates to a cell by floor division, clamped to
// the grid. A NaN coordinate maps to index 0.
func (g *SpatialGrid) CellIndex(x, y float64) (col, row int) {
	return clampIndex(x/g.cellW, g.cols), clampIndex(y/g.cellH, g.rows)
}

func clampIndex(v float64, n int) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(v)
}

func (g *SpatialGrid) at(x, y float64) *Cell {
	col, row := g.CellIndex(x, y)
	return &g.cells[row*g.cols+col]
}

// Update folds value into the cell containing (x, y).
//
// Outputs:
//   - bool: False if value was non-finite and the update was skipped.
func (g *SpatialGrid) Update(x, y, value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	c := g.at(x, y)
	c.Visits++
	delta := value - c.Mean
	c.Mean += delta / float64(c.Visits)
	c.M2 += delta * (value - c.Mean)
	if c.M2 < 0 {
		c.M2 = 0
	}
	return true
}

// Cell returns the statistics of the cell containing (x, y).
func (g *SpatialGrid) Cell(x, y float64) Cell {
	return *g.at(x, y)
}

// CellAt returns the statistics of a cell by index. Out-of-range indices are
// clamped.
func (g *SpatialGrid) CellAt(col, row int) Cell {
	col = max(0, min(g.cols-1, col))
	row = max(0, min(g.rows-1, row))
	return g.cells[row*g.cols+col]
}

// Mean returns the learned expectation at (x, y); 0 for unvisited cells.
func (g *SpatialGrid) Mean(x, y float64) float64 {
	return g.at(x, y).Mean
}

// Variance returns the sample variance at (x, y).
//
// Zero below two visits; otherwise at least VarianceFloor.
func (g *SpatialGrid) Variance(x, y float64) float64 {
	return g.variance(*g.at(x, y))
}

func (g *SpatialGrid) variance(c Cell) float64 {
	if c.Visits < 2 {
		return 0
	}
	return math.Max(c.M2/float64(c.Visits-1), g.varianceFloor)
}

// Precision returns the clamped confidence at (x, y).
func (g *SpatialGrid) Precision(x, y float64) float64 {
	c := *g.at(x, y)
	p := float64(c.Visits) / (1 + g.variance(c))
	return math.Max(g.minPrecision, math.Min(g.maxPrecision, p))
}

// Clone returns an independent deep copy.
func (g *SpatialGrid) Clone() *SpatialGrid {
	out := *g
	out.cells = make([]Cell, len(g.cells))
	copy(out.cells, g.cells)
	return &out
}

// GridSnapshot is a read-only view of the grid for observers.
type GridSnapshot struct {
	Cols   int       `json:"cols"`
	Rows   int       `json:"rows"`
	Means  []float64 `json:"means"`
	Visits []uint64  `json:"visits"`
}

// MeanAt returns the mean of a cell by index.
func (s GridSnapshot) MeanAt(col, row int) float64 {
	return s.Means[row*s.Cols+col]
}

// VisitsAt returns the visit count of a cell by index.
func (s GridSnapshot) VisitsAt(col, row int) uint64 {
	return s.Visits[row*s.Cols+col]
}

// Snapshot copies cell means and visit counts in row-major order.
func (g *SpatialGrid) Snapshot() GridSnapshot {
	s := GridSnapshot{
		Cols:   g.cols,
		Rows:   g.rows,
		Means:  make([]float64, len(g.cells)),
		Visits: make([]uint64, len(g.cells)),
	}
	for i, c := range g.cells {
		s.Means[i] = c.Mean
		s.Visits[i] = c.Visits
	}
	return s
}
