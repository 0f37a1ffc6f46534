// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planning implements Monte Carlo rollout planning over the agent's
// learned spatial prior.
//
// # Description
//
// The planner never touches the real environment. Each rollout simulates a
// short sequence of discrete turns using the agent's own kinematics, reading
// the expected nutrient and its precision from a WorldModel (the spatial
// grid). Rollouts are scored by
//
//	G = Σ mean·energy + ExplorationScale · Σ 1/precision
//
// and averaged per first action. The best first action becomes the cached
// heading delta until the next plan.
//
// # Thread Safety
//
// A Planner is used by one agent and is not safe for concurrent Plan calls.
// Inside Plan, rollouts run concurrently against a read-only WorldModel; each
// rollout writes only its own result slot.
package planning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/inference"
)

// planStream separates the planner's PCG stream from other consumers of the
// run seed.
const planStream = 0x706c616e

// WorldModel is the planner's read-only view of the learned environment.
// *memory.SpatialGrid implements it.
type WorldModel interface {
	Mean(x, y float64) float64
	Precision(x, y float64) float64
}

// Trigger records why a plan was requested.
type Trigger string

const (
	TriggerInitial   Trigger = "initial"
	TriggerScheduled Trigger = "scheduled"
	TriggerUrgent    Trigger = "urgent"
)

// ActionDetail aggregates the rollouts that began with one action.
type ActionDetail struct {
	Action        Action  `json:"action"`
	MeanScore     float64 `json:"mean_score"`
	MeanPragmatic float64 `json:"mean_pragmatic"`
	MeanEpistemic float64 `json:"mean_epistemic"`
	Rollouts      int     `json:"rollouts"`
}

// Plan is the outcome of one planning cycle.
type Plan struct {
	Action  Action                   `json:"action"`
	Delta   float64                  `json:"delta"`
	Trigger Trigger                  `json:"trigger"`
	Details [NumActions]ActionDetail `json:"details"`
}

// Best returns the detail of the chosen action.
func (p *Plan) Best() ActionDetail {
	return p.Details[p.Action]
}

// rolloutResult is one rollout's contribution, written to its own slot.
type rolloutResult struct {
	first     Action
	pragmatic float64
	epistemic float64
	score     float64
}

// Planner runs Monte Carlo rollouts over a WorldModel.
type Planner struct {
	cfg  config.PlannerConfig
	kin  Kinematics
	rng  *rand.Rand
	turn float64

	tracer *PlanTracer
	logger *slog.Logger
}

// NewPlanner creates a planner.
//
// Inputs:
//   - cfg: Full configuration. Planner, Agent and World sections are used.
//   - seed: Seed for the planner's random stream.
//
// Outputs:
//   - *Planner: Ready to use planner.
func NewPlanner(cfg config.Config, seed uint64) *Planner {
	return &Planner{
		cfg:    cfg.Planner,
		kin:    Kinematics{World: cfg.World, Agent: cfg.Agent},
		rng:    rand.New(rand.NewPCG(seed, planStream)),
		turn:   cfg.Planner.TurnAngle,
		tracer: NewPlanTracer(nil, false),
		logger: slog.Default(),
	}
}

// WithLogger sets the logger.
func (p *Planner) WithLogger(logger *slog.Logger) *Planner {
	p.logger = logger
	return p
}

// WithTracer sets the tracer.
func (p *Planner) WithTracer(tracer *PlanTracer) *Planner {
	p.tracer = tracer
	return p
}

// Due reports whether a plan should be made this tick and why.
//
// # Description
//
// Urgency overrides the schedule: low energy replans every tick.
//
// Inputs:
//   - tick: Current tick (0-based).
//   - lastPlan: Tick of the previous plan.
//   - energy: Current energy.
//
// Outputs:
//   - Trigger: Reason for replanning.
//   - bool: True if a plan is due.
func (p *Planner) Due(tick, lastPlan uint64, energy float64) (Trigger, bool) {
	switch {
	case tick == 0:
		return TriggerInitial, true
	case energy < p.cfg.UrgentEnergy:
		return TriggerUrgent, true
	case tick >= lastPlan && tick-lastPlan >= p.cfg.ReplanInterval:
		return TriggerScheduled, true
	default:
		return "", false
	}
}

// TicksUntilReplan returns how many ticks remain before the next scheduled
// plan.
func (p *Planner) TicksUntilReplan(tick, lastPlan uint64) uint64 {
	if tick < lastPlan {
		return p.cfg.ReplanInterval
	}
	elapsed := tick - lastPlan
	if elapsed >= p.cfg.ReplanInterval {
		return 0
	}
	return p.cfg.ReplanInterval - elapsed
}

// Plan runs all rollouts from state and selects the best first action.
//
// # Description
//
// Rollout i starts with Actions[i mod 3] so every first action is sampled
// evenly, then follows a uniform random policy drawn from its own PCG
// stream seeded by (call seed, i). Results are therefore independent of
// worker count and scheduling. Per first action the mean G is computed; the
// highest mean wins and ties go to the lowest action index.
//
// Inputs:
//   - ctx: Context for tracing.
//   - state: Current pose and energy.
//   - model: Read-only world model.
//   - trigger: Why the plan was requested.
//
// Outputs:
//   - *Plan: The selected action and per-action breakdown.
//   - error: *inference.NonFiniteError if any score was NaN or Inf.
func (p *Planner) Plan(ctx context.Context, state State, model WorldModel, trigger Trigger) (*Plan, error) {
	start := time.Now()
	ctx, span := p.tracer.StartPlan(ctx, state, trigger, p.cfg.Rollouts, p.cfg.Depth)

	callSeed := p.rng.Uint64()
	results := make([]rolloutResult, p.cfg.Rollouts)

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i := range results {
		g.Go(func() error {
			r := p.rollout(state, model, Actions[i%NumActions], rand.New(rand.NewPCG(callSeed, uint64(i))))
			if err := inference.CheckFinite("rollout score", r.score); err != nil {
				return fmt.Errorf("rollout %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}

	var plan *Plan
	err := g.Wait()
	if err == nil {
		plan = aggregate(results, p.turn)
		plan.Trigger = trigger
	}

	p.tracer.EndPlan(span, plan, err)
	recordPlan(trigger, plan, len(results), time.Since(start), err)

	if err != nil {
		p.logger.ErrorContext(ctx, "Planning failed",
			slog.String("trigger", string(trigger)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return plan, nil
}

// rollout simulates one trajectory. It reads model and writes nothing
// shared.
func (p *Planner) rollout(s State, model WorldModel, first Action, rng *rand.Rand) rolloutResult {
	res := rolloutResult{first: first}
	x, y, angle, energy := s.X, s.Y, s.Angle, s.Energy
	speed := math.Max(s.Speed, p.cfg.MinRolloutSpeed)

	for d := 0; d < p.cfg.Depth; d++ {
		a := first
		if d > 0 {
			a = Actions[rng.IntN(NumActions)]
		}
		angle = Turn(angle, a, p.turn)
		x, y = p.kin.Move(x, y, angle, speed)

		mean := model.Mean(x, y)
		energy = p.kin.Metabolize(energy, speed, mean)

		res.pragmatic += mean * energy
		res.epistemic += 1 / model.Precision(x, y)
	}
	res.score = res.pragmatic + p.cfg.ExplorationScale*res.epistemic
	return res
}

// aggregate reduces rollout results to per-action means and picks the best.
func aggregate(results []rolloutResult, turn float64) *Plan {
	plan := &Plan{}
	for _, a := range Actions {
		plan.Details[a].Action = a
	}
	for _, r := range results {
		d := &plan.Details[r.first]
		d.MeanScore += r.score
		d.MeanPragmatic += r.pragmatic
		d.MeanEpistemic += r.epistemic
		d.Rollouts++
	}

	best := -1
	for _, a := range Actions {
		d := &plan.Details[a]
		if d.Rollouts == 0 {
			continue
		}
		n := float64(d.Rollouts)
		d.MeanScore /= n
		d.MeanPragmatic /= n
		d.MeanEpistemic /= n
		if best < 0 || d.MeanScore > plan.Details[best].MeanScore {
			best = int(a)
		}
	}
	if best < 0 {
		best = int(Straight)
	}

	plan.Action = Action(best)
	plan.Delta = plan.Action.Delta(turn)
	return plan
}
