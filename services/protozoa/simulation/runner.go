// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package simulation drives an agent against an environment field.
//
// # Description
//
// A Runner owns the pairing of one agent with one field. It advances the
// field (when the field evolves) and then the agent, one tick at a time.
// Step is used by interactive front ends that own their own clock; Run is
// the headless loop with soft pacing and periodic structured summaries.
//
// # Thread Safety
//
// A Runner must be driven from a single goroutine. The agent it wraps is
// safe to read (Snapshot) from any goroutine.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/protozoa/services/protozoa/agent"
	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/environment"
)

var (
	// ErrNilAgent is returned when a runner is created without an agent.
	ErrNilAgent = errors.New("agent must not be nil")

	// ErrNilField is returned when a runner is created without a field.
	ErrNilField = errors.New("field must not be nil")
)

// StopReason records why Run returned.
type StopReason string

const (
	StopMaxTicks  StopReason = "max_ticks"
	StopCancelled StopReason = "cancelled"
	StopHalted    StopReason = "halted"
)

// Result summarises a finished Run.
type Result struct {
	Reason StopReason

	// Ticks is the number of ticks completed during this Run.
	Ticks   uint64
	Elapsed time.Duration

	// Final is the last successfully published snapshot.
	Final agent.Snapshot
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for summaries and lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner pairs an agent with a field.
type Runner struct {
	agent   *agent.Agent
	field   environment.Field
	stepper environment.Stepper
	cfg     config.SimulationConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a runner.
//
// # Description
//
// If field also implements environment.Stepper it is stepped once before
// every agent tick. A zero TickInterval disables pacing.
//
// Inputs:
//   - a: The agent to drive. Must not be nil.
//   - field: The environment oracle. Must not be nil.
//   - cfg: Pacing, summary and tick-limit settings.
//
// Outputs:
//   - *Runner: The runner.
//   - error: ErrNilAgent or ErrNilField.
func New(a *agent.Agent, field environment.Field, cfg config.SimulationConfig, opts ...Option) (*Runner, error) {
	if a == nil {
		return nil, ErrNilAgent
	}
	if field == nil {
		return nil, ErrNilField
	}

	r := &Runner{
		agent:  a,
		field:  field,
		cfg:    cfg,
		logger: slog.Default(),
	}
	if s, ok := field.(environment.Stepper); ok {
		r.stepper = s
	}
	if cfg.TickInterval > 0 {
		r.limiter = rate.NewLimiter(rate.Every(cfg.TickInterval), 1)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Agent returns the driven agent.
func (r *Runner) Agent() *agent.Agent {
	return r.agent
}

// Field returns the environment field.
func (r *Runner) Field() environment.Field {
	return r.field
}

// Step advances the field and then the agent by one tick, without pacing.
//
// Outputs:
//   - agent.Snapshot: The newly published snapshot, or the last good one
//     when the agent halted.
//   - error: Non-nil when the agent halted on this or an earlier tick.
func (r *Runner) Step(ctx context.Context) (agent.Snapshot, error) {
	if r.stepper != nil && !r.agent.Halted() {
		r.stepper.Step()
	}
	if err := r.agent.Tick(ctx, r.field); err != nil {
		return r.agent.Snapshot(), err
	}

	snap := r.agent.Snapshot()
	if r.cfg.SummaryEvery > 0 && snap.Tick%r.cfg.SummaryEvery == 0 {
		r.logSummary(snap)
	}
	return snap, nil
}

// Run is the headless loop.
//
// # Description
//
// Ticks until MaxTicks ticks have completed (0 means no limit), the context
// is done, or the agent halts. Ticks are spaced at least TickInterval apart.
// Cancellation is checked between ticks only; a tick in progress always
// completes.
//
// Outputs:
//   - Result: Why the loop stopped and the last good snapshot.
//   - error: The halting error when the agent hit a non-finite value;
//     nil for max-ticks and cancellation.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{Final: r.agent.Snapshot()}

	r.logger.Info("Simulation started",
		slog.String("run_id", r.agent.RunID()),
		slog.Uint64("max_ticks", r.cfg.MaxTicks),
		slog.Duration("tick_interval", r.cfg.TickInterval),
	)

	for {
		if r.cfg.MaxTicks > 0 && res.Ticks >= r.cfg.MaxTicks {
			res.Reason = StopMaxTicks
			break
		}
		if ctx.Err() != nil {
			res.Reason = StopCancelled
			break
		}
		if r.limiter != nil {
			// Wait fails early when the next slot lies past the deadline.
			if err := r.limiter.Wait(ctx); err != nil {
				res.Reason = StopCancelled
				break
			}
		}

		snap, err := r.Step(ctx)
		res.Final = snap
		if err != nil {
			res.Reason = StopHalted
			res.Elapsed = time.Since(start)
			r.logger.Error("Simulation halted",
				slog.String("run_id", r.agent.RunID()),
				slog.Uint64("tick", snap.Tick),
				slog.String("error", err.Error()),
			)
			return res, fmt.Errorf("simulation halted: %w", err)
		}
		res.Ticks++
	}

	res.Elapsed = time.Since(start)
	r.logger.Info("Simulation stopped",
		slog.String("run_id", r.agent.RunID()),
		slog.String("reason", string(res.Reason)),
		slog.Uint64("ticks", res.Ticks),
		slog.Duration("elapsed", res.Elapsed),
		slog.Float64("energy", res.Final.Energy),
	)
	return res, nil
}

func (r *Runner) logSummary(s agent.Snapshot) {
	r.logger.Info("Simulation summary",
		slog.String("run_id", s.RunID),
		slog.Uint64("tick", s.Tick),
		slog.String("mode", string(s.Mode)),
		slog.Float64("x", s.X),
		slog.Float64("y", s.Y),
		slog.Float64("energy", s.Energy),
		slog.Float64("vfe", s.VFE),
		slog.Float64("efe", s.EFE.Total),
		slog.Float64("sensed", (s.Left+s.Right)/2),
		slog.Int("landmarks", len(s.Landmarks)),
		slog.Float64("sensor_angle", s.Morphology.SensorAngle),
		slog.Float64("target", s.Morphology.TargetConcentration),
	)
}
