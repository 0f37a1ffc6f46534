// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/protozoa/services/protozoa/agent"
	"github.com/AleutianAI/protozoa/services/protozoa/memory"
	"github.com/AleutianAI/protozoa/services/protozoa/planning"
)

const (
	dishCols = 48
	dishRows = 20

	// maxLandmarkRows caps the landmark list in the status panel.
	maxLandmarkRows = 6
)

// ramp maps a concentration in [0, 1] to a glyph of increasing density.
const ramp = " .:-=+*#%@"

// headingGlyphs is indexed by heading octant, counter-clockwise from +x.
// Rows grow downward on screen, so +y points down.
var headingGlyphs = []string{"→", "↘", "↓", "↙", "←", "↖", "↑", "↗"}

// =============================================================================
// Styles
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	agentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))

	landmarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	chosenStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	haltStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// modeColors keys mode labels to a foreground color.
var modeColors = map[agent.Mode]lipgloss.Color{
	agent.ModeExploring:   lipgloss.Color("39"),
	agent.ModeExploiting:  lipgloss.Color("42"),
	agent.ModeSeekingGoal: lipgloss.Color("214"),
	agent.ModePanicking:   lipgloss.Color("196"),
	agent.ModeExhausted:   lipgloss.Color("241"),
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	s := m.snap
	var b strings.Builder

	b.WriteString(titleStyle.Render("Protozoa"))
	b.WriteString(statsStyle.Render(fmt.Sprintf("  run %s  tick %d  ", shortID(s.RunID), s.Tick)))
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(modeColors[s.Mode]).Render(string(s.Mode)))
	b.WriteString(statsStyle.Render(fmt.Sprintf("  energy %s %.2f  vfe %.3f  efe %.3f",
		bar(s.Energy, 10), s.Energy, s.VFE, s.EFE.Total)))

	switch {
	case m.halted:
		b.WriteString(haltStyle.Render("  [halted]"))
	case m.done:
		b.WriteString(pausedStyle.Render("  [finished]"))
	case m.paused:
		b.WriteString(pausedStyle.Render("  [paused]"))
	}
	return b.String()
}

// =============================================================================
// Panels
// =============================================================================

func (m Model) renderPanels() string {
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		panel("Dish", m.renderDish()),
		panel("Spatial memory", renderGrid(m.snap.Grid)),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		panel("Planner", renderPlanner(m.snap)),
		panel("Landmarks & morphology", renderStatus(m.snap)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func panel(title, body string) string {
	return panelStyle.Render(panelTitleStyle.Render(title) + "\n" + body)
}

// renderDish samples the live field at cell centres and overlays the
// agent and its landmarks.
func (m Model) renderDish() string {
	field := m.runner.Field()
	cw := m.world.Width / dishCols
	ch := m.world.Height / dishRows

	cells := make([][]string, dishRows)
	for row := range cells {
		cells[row] = make([]string, dishCols)
		for col := range cells[row] {
			v := field.Concentration((float64(col)+0.5)*cw, (float64(row)+0.5)*ch)
			cells[row][col] = glyph(v)
		}
	}

	for _, l := range m.snap.Landmarks {
		if col, row, ok := cellOf(l.X, l.Y, cw, ch, dishCols, dishRows); ok {
			cells[row][col] = landmarkStyle.Render("L")
		}
	}
	if col, row, ok := cellOf(m.snap.X, m.snap.Y, cw, ch, dishCols, dishRows); ok {
		cells[row][col] = agentStyle.Render(headingGlyph(m.snap.Angle))
	}

	return joinCells(cells)
}

// renderGrid draws the learned mean of every cell. Unvisited cells are
// shown as a dot.
func renderGrid(g memory.GridSnapshot) string {
	if g.Cols == 0 || g.Rows == 0 {
		return statsStyle.Render("(empty)")
	}
	cells := make([][]string, g.Rows)
	for row := range cells {
		cells[row] = make([]string, g.Cols)
		for col := range cells[row] {
			if g.VisitsAt(col, row) == 0 {
				cells[row][col] = statsStyle.Render("·")
				continue
			}
			cells[row][col] = glyph(g.MeanAt(col, row))
		}
	}
	return joinCells(cells)
}

func renderPlanner(s agent.Snapshot) string {
	var b strings.Builder

	if !s.HasPlan {
		b.WriteString(statsStyle.Render("no plan yet"))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "plan %s (%s)  replan in %d\n", s.Plan.Action, s.Plan.Trigger, s.TicksUntilReplan)
		fmt.Fprintf(&b, "%-10s %8s %8s %8s %5s\n", "action", "score", "prag", "epist", "n")
		for _, d := range s.Plan.Details {
			line := fmt.Sprintf("%-10s %8.3f %8.3f %8.3f %5d", d.Action, d.MeanScore, d.MeanPragmatic, d.MeanEpistemic, d.Rollouts)
			if d.Action == s.Plan.Action {
				line = chosenStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "efe pick %s\n", s.EFEAction)
	for _, a := range planning.Actions {
		e := s.EFEByAction[a]
		fmt.Fprintf(&b, "%-10s risk %.3f amb %.3f epi %.3f\n", a, e.Risk, e.Ambiguity, e.Epistemic)
	}

	h := s.Heading
	b.WriteString("\n")
	fmt.Fprintf(&b, "turn %+.3f = efe %+.3f plan %+.3f react %+.3f\n", h.Total(), h.EFE, h.Plan, h.Reactive)
	fmt.Fprintf(&b, "  explore %+.3f noise %+.3f panic %+.3f goal %+.3f", h.Explore, h.Noise, h.Panic, h.Goal)
	return b.String()
}

func renderStatus(s agent.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "sensors L %.3f R %.3f  dC %+.4f %s\n", s.Left, s.Right, s.TemporalGradient, s.Trend.Direction)
	fmt.Fprintf(&b, "belief %.3f  pred err %.3f  unc %.3f\n", s.Belief.Nutrient, s.PredictionError, s.Uncertainty)
	fmt.Fprintf(&b, "precision L %.2f R %.2f  spatial %.2f\n", s.Precision.Left, s.Precision.Right, s.SpatialPrecision)

	mo := s.Morphology
	b.WriteString("\n")
	fmt.Fprintf(&b, "sensor angle %.3f  dist %.2f\n", mo.SensorAngle, mo.SensorDist)
	fmt.Fprintf(&b, "learning rate %.3f  target %.3f\n", mo.BeliefLearningRate, mo.TargetConcentration)
	fmt.Fprintf(&b, "surprise %.2f  frustration %.2f\n", s.Accumulators.Surprise, s.Accumulators.Frustration)

	b.WriteString("\n")
	fmt.Fprintf(&b, "landmarks %d\n", len(s.Landmarks))
	for i, l := range s.Landmarks {
		if i == maxLandmarkRows {
			b.WriteString(statsStyle.Render(fmt.Sprintf("  … %d more", len(s.Landmarks)-i)))
			break
		}
		fmt.Fprintf(&b, "  (%5.1f,%5.1f) peak %.2f rel %.2f visits %d\n", l.X, l.Y, l.PeakNutrient, l.Reliability, l.VisitCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// Helpers
// =============================================================================

// glyph maps a concentration to the density ramp. Sentinel and other
// negative values render as a wall.
func glyph(v float64) string {
	if v < 0 || math.IsNaN(v) {
		return "X"
	}
	i := int(math.Round(math.Min(v, 1) * float64(len(ramp)-1)))
	return string(ramp[i])
}

func headingGlyph(angle float64) string {
	octant := int(math.Round(angle/(math.Pi/4))) % len(headingGlyphs)
	if octant < 0 {
		octant += len(headingGlyphs)
	}
	return headingGlyphs[octant]
}

func cellOf(x, y, cw, ch float64, cols, rows int) (col, row int, ok bool) {
	if cw <= 0 || ch <= 0 || math.IsNaN(x) || math.IsNaN(y) || x < 0 || y < 0 {
		return 0, 0, false
	}
	col = int(x / cw)
	row = int(y / ch)
	if col == cols {
		col--
	}
	if row == rows {
		row--
	}
	if col < 0 || col >= cols || row < 0 || row >= rows {
		return 0, 0, false
	}
	return col, row, true
}

func joinCells(cells [][]string) string {
	lines := make([]string, len(cells))
	for i, row := range cells {
		lines[i] = strings.Join(row, "")
	}
	return strings.Join(lines, "\n")
}

func bar(v float64, width int) string {
	n := int(math.Round(math.Max(0, math.Min(1, v)) * float64(width)))
	return "[" + strings.Repeat("█", n) + strings.Repeat("░", width-n) + "]"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
