// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides the live terminal dashboard for a simulation run.
//
// # Description
//
// The dashboard shows four panels: the dish with the agent overlaid, the
// agent's spatial memory, the planner's last decision and the landmark and
// morphology state. Each frame advances the simulation by one tick.
//
// # Thread Safety
//
// The model is designed for single-threaded use within the bubbletea event
// loop. Do not access model state from multiple goroutines.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/protozoa/services/protozoa/agent"
	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/simulation"
)

// minFrame bounds the redraw rate when no tick interval is configured.
const minFrame = 16 * time.Millisecond

// =============================================================================
// Messages
// =============================================================================

// TickMsg asks the model to advance the simulation by one tick.
type TickMsg time.Time

// =============================================================================
// Keys
// =============================================================================

type keyMap struct {
	Pause key.Binding
	Step  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Step, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Pause, k.Step}, {k.Help, k.Quit}}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Pause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "pause/resume"),
		),
		Step: key.NewBinding(
			key.WithKeys("n", "."),
			key.WithHelp("n", "step once"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// =============================================================================
// Model
// =============================================================================

// Model is the bubbletea model for the dashboard.
type Model struct {
	ctx      context.Context
	runner   *simulation.Runner
	world    config.WorldConfig
	interval time.Duration
	maxTicks uint64

	snap   agent.Snapshot
	err    error
	halted bool
	paused bool
	done   bool

	keys     keyMap
	help     help.Model
	width    int
	height   int
	quitting bool
}

// New creates a dashboard model over a runner.
//
// Inputs:
//   - ctx: Context passed to every tick (carries tracing).
//   - r: The simulation runner. The model calls r.Step once per frame.
//   - cfg: Configuration of the run; only the world size and simulation
//     pacing are read.
//
// Outputs:
//   - Model: Ready-to-use model for tea.NewProgram.
func New(ctx context.Context, r *simulation.Runner, cfg config.Config) Model {
	interval := cfg.Simulation.TickInterval
	if interval < minFrame {
		interval = minFrame
	}
	return Model{
		ctx:      ctx,
		runner:   r,
		world:    cfg.World,
		interval: interval,
		maxTicks: cfg.Simulation.MaxTicks,
		snap:     r.Agent().Snapshot(),
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
}

// Snapshot returns the snapshot currently displayed.
func (m Model) Snapshot() agent.Snapshot {
	return m.snap
}

// Err returns the error that halted the agent, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Step):
			if m.paused {
				m.advance()
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case TickMsg:
		if !m.paused {
			m.advance()
		}
		if m.halted || m.done {
			return m, nil
		}
		return m, m.tick()
	}

	return m, nil
}

// advance runs one simulation tick unless the run is over.
func (m *Model) advance() {
	if m.halted || m.done {
		return
	}
	snap, err := m.runner.Step(m.ctx)
	m.snap = snap
	if err != nil {
		m.err = err
		m.halted = true
		return
	}
	if m.maxTicks > 0 && snap.Tick >= m.maxTicks {
		m.done = true
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderPanels())
	b.WriteString("\n")
	if m.halted {
		b.WriteString(haltStyle.Render("HALTED: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
