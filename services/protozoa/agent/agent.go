// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent is the tick controller that drives one active-inference
// agent through its environment.
//
// # Description
//
// Every tick runs the same fixed phases:
//
//	Sense → Infer → Learn → Plan → Act → Move → Regulate → publish
//
// Sense samples the field at two sensor tips. Infer performs one gradient
// step on Variational Free Energy and updates sensory precision. Learn
// writes the spatial grid, the landmark store and the sensor history. Plan
// runs Monte Carlo rollouts when the schedule or low energy asks for it. Act
// blends several heading contributions, Move applies metabolism and the new
// pose, and Regulate feeds the stress accumulators of the morphology
// regulator.
//
// # Failure
//
// A NaN or Inf anywhere in the pipeline halts the agent. The failing tick
// publishes nothing, every later Tick returns ErrHalted, and the last good
// Snapshot stays available.
//
// # Thread Safety
//
// Tick and Snapshot are safe for concurrent use. Ticks are serialized by a
// mutex, so an observer never sees a partially updated tick.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/environment"
	"github.com/AleutianAI/protozoa/services/protozoa/inference"
	"github.com/AleutianAI/protozoa/services/protozoa/memory"
	"github.com/AleutianAI/protozoa/services/protozoa/morphology"
	"github.com/AleutianAI/protozoa/services/protozoa/planning"
	"github.com/AleutianAI/protozoa/services/protozoa/telemetry"
)

// ErrHalted is returned by Tick after a non-finite value stopped the agent.
var ErrHalted = errors.New("agent halted")

// agentStream separates the agent's PCG stream from the planner's.
const agentStream = 0x6167656e74

// trendWindow is the look-back used for the snapshot trend.
const trendWindow = 8

// Pose is a starting position and heading.
type Pose struct {
	X     float64
	Y     float64
	Angle float64
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer sets the tick tracer. The planner gets a tracer with the same
// enabled flag.
func WithTracer(t *Tracer) Option {
	return func(a *Agent) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithMetrics sets the OpenTelemetry instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithEnergy sets the starting energy, clamped to [0, 1].
func WithEnergy(e float64) Option {
	return func(a *Agent) { a.energy = math.Max(0, math.Min(1, e)) }
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(a *Agent) { a.runID = id }
}

// tickResult carries per-tick values from the phases to the snapshot.
type tickResult struct {
	obs      inference.Observation
	sensed   float64
	gradient float64
	vfe      float64
	predErrs inference.Observation

	efeAction planning.Action
	efes      [planning.NumActions]inference.EFE
	heading   HeadingTerms

	adjustment morphology.Adjustment
}

// Agent is one simulated organism.
type Agent struct {
	mu sync.Mutex

	cfg     config.Config
	runID   string
	logger  *slog.Logger
	tracer  *Tracer
	metrics *telemetry.Metrics
	rng     *rand.Rand
	kin     planning.Kinematics

	x, y, angle, speed, energy float64
	tick                       uint64
	lastPlanTick               uint64

	model     *inference.GenerativeModel
	belief    inference.BeliefState
	precision *inference.PrecisionEstimator
	history   *memory.SensorHistory
	grid      *memory.SpatialGrid
	landmarks *memory.LandmarkStore
	planner   *planning.Planner
	regulator *morphology.Regulator
	plan      *planning.Plan

	halt     error
	snapshot Snapshot
}

// New creates an agent at start.
//
// # Description
//
// Validates cfg and builds every component from it. The agent starts with
// full energy unless WithEnergy says otherwise. All randomness derives from
// cfg.Seed.
//
// Inputs:
//   - cfg: Complete configuration. Treated as immutable for the run.
//   - start: Starting pose, clamped to the world.
//   - opts: Optional logger, tracer, metrics, energy and run ID.
//
// Outputs:
//   - *Agent: Ready agent with an initial snapshot published.
//   - error: Non-nil if cfg is invalid.
func New(cfg config.Config, start Pose, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Agent{
		cfg:    cfg,
		runID:  uuid.NewString(),
		logger: slog.Default(),
		energy: 1.0,
		rng:    rand.New(rand.NewPCG(cfg.Seed, agentStream)),
		kin:    planning.Kinematics{World: cfg.World, Agent: cfg.Agent},
	}
	a.tracer = NewTracer(nil, false)
	for _, opt := range opts {
		opt(a)
	}

	a.x = math.Max(0, math.Min(cfg.World.Width, start.X))
	a.y = math.Max(0, math.Min(cfg.World.Height, start.Y))
	a.angle = inference.WrapAngle(start.Angle)

	a.regulator = morphology.NewRegulator(cfg.Morphology)
	morph := a.regulator.Morphology()
	a.model = inference.NewGenerativeModel(cfg)
	a.model.SetSensorAngle(morph.SensorAngle)
	a.model.SetTarget(morph.TargetConcentration)

	a.belief = inference.NewBeliefState(cfg.Inference, a.x, a.y, a.angle)
	a.precision = inference.NewPrecisionEstimator(cfg.Inference)
	a.history = memory.NewSensorHistory(cfg.Memory.HistorySize)
	a.grid = memory.NewSpatialGrid(cfg.World, cfg.Memory)
	a.landmarks = memory.NewLandmarkStore(cfg.Landmarks)
	a.planner = planning.NewPlanner(cfg, cfg.Seed).
		WithLogger(a.logger).
		WithTracer(planning.NewPlanTracer(a.logger, a.tracer.Enabled()))

	a.snapshot = a.buildSnapshot(tickResult{efeAction: planning.Straight})

	a.logger.Info("Agent created",
		slog.String("run_id", a.runID),
		slog.Uint64("seed", cfg.Seed),
		slog.Float64("x", a.x),
		slog.Float64("y", a.y),
	)
	return a, nil
}

// RunID returns the unique ID of this run.
func (a *Agent) RunID() string {
	return a.runID
}

// Snapshot returns a copy of the last published snapshot.
//
// Thread Safety: Safe for concurrent use.
func (a *Agent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot.Clone()
}

// Halted reports whether a non-finite value stopped the agent.
func (a *Agent) Halted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.halt != nil
}

// AddLandmark stores a landmark directly, as if it had been discovered.
// The published snapshot is refreshed to include it. A halted agent keeps
// its last good snapshot and ignores the call.
func (a *Agent) AddLandmark(l memory.Landmark) memory.LandmarkEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.halt != nil {
		return memory.LandmarkNone
	}
	ev := a.landmarks.Add(l)
	a.snapshot.Landmarks = a.landmarks.Landmarks()
	return ev
}

// Tick advances the agent by one step against field.
//
// # Description
//
// Runs all phases in order and publishes a new snapshot on success. On a
// non-finite value nothing is published and the agent halts.
//
// Inputs:
//   - ctx: Context for tracing. A tick is never cancelled midway.
//   - field: The environment oracle.
//
// Outputs:
//   - error: nil on success; wraps inference.ErrNonFiniteValue on the
//     halting tick and ErrHalted on every tick after it.
func (a *Agent) Tick(ctx context.Context, field environment.Field) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.halt != nil {
		return fmt.Errorf("%w: %w", ErrHalted, a.halt)
	}

	start := time.Now()
	ctx, span := a.tracer.StartTick(ctx, a.runID, a.tick)

	res, err := a.step(ctx, field)
	if err != nil {
		a.halt = err
		stage := "unknown"
		var nf *inference.NonFiniteError
		if errors.As(err, &nf) {
			stage = nf.Stage
		}
		a.metrics.RecordHalt(ctx, stage)
		a.tracer.EndTick(span, nil, err)
		telemetry.LoggerWithTrace(ctx, a.logger).Error("Agent halted",
			slog.String("run_id", a.runID),
			slog.Uint64("tick", a.tick),
			slog.String("stage", stage),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("tick %d: %w", a.tick, err)
	}

	a.tick++
	a.snapshot = a.buildSnapshot(res)
	a.metrics.RecordTick(ctx, string(a.snapshot.Mode), time.Since(start), res.vfe, a.energy)
	a.tracer.EndTick(span, &a.snapshot, nil)
	return nil
}

// step runs the phases of one tick.
func (a *Agent) step(ctx context.Context, field environment.Field) (tickResult, error) {
	var r tickResult
	morph := a.regulator.Morphology()

	// Sense
	r.obs = a.sense(field, morph)
	r.sensed = r.obs.Mean()
	r.gradient = a.history.TemporalGradient(r.sensed)

	// Infer
	a.belief.SyncPose(a.x, a.y, a.angle)
	inf, err := inference.Infer(r.obs, a.belief, a.model, morph.BeliefLearningRate, a.cfg.Inference.UncertaintyReduction)
	if err != nil {
		return r, err
	}
	if err := a.precision.Update(inf.Errors); err != nil {
		return r, err
	}
	a.belief = inf.Belief
	a.model.SetSensoryPrecision(a.precision.Precision())
	r.vfe = inf.VFE
	r.predErrs = inf.Errors

	// Learn
	a.grid.Update(a.x, a.y, r.sensed)
	if ev := a.landmarks.Observe(a.x, a.y, r.sensed, a.tick); ev != memory.LandmarkNone {
		a.metrics.RecordLandmark(ctx, ev.String())
		a.logger.Debug("Landmark updated",
			slog.String("event", ev.String()),
			slog.Float64("x", a.x),
			slog.Float64("y", a.y),
			slog.Float64("value", r.sensed),
		)
	}
	a.history.Push(memory.SensorSample{
		Left:   r.obs.Left,
		Right:  r.obs.Right,
		X:      a.x,
		Y:      a.y,
		Energy: a.energy,
		Tick:   a.tick,
	})

	// Plan
	if trigger, due := a.planner.Due(a.tick, a.lastPlanTick, a.energy); due {
		plan, err := a.planner.Plan(ctx, a.state(), a.grid, trigger)
		if err != nil {
			return r, err
		}
		a.plan = plan
		a.lastPlanTick = a.tick
	}

	// Act
	r.efeAction, r.efes = a.evaluateActions()
	for _, e := range r.efes {
		if err := inference.CheckFinite("efe", e.Total); err != nil {
			return r, err
		}
	}
	r.heading = a.blend(r, morph)
	delta := r.heading.Total()
	if err := inference.CheckFinite("heading", delta); err != nil {
		return r, err
	}
	a.angle = inference.WrapAngle(a.angle + delta)
	ag := a.cfg.Agent
	a.speed = ag.MaxSpeed * math.Max(ag.MinSpeedFraction, math.Min(1, r.vfe/ag.MaxVFE))

	// Move
	a.energy = a.kin.Metabolize(a.energy, a.speed, r.sensed)
	if err := inference.CheckFinite("energy", a.energy); err != nil {
		return r, err
	}
	if a.energy <= ag.ExhaustionThreshold {
		a.speed *= ag.ExhaustionSpeedFactor
	}
	a.x, a.y = a.kin.Move(a.x, a.y, a.angle, a.speed)

	// Regulate
	frustration := r.efes[a.plannedAction()].Total
	adj, err := a.regulator.Regulate(a.tick+1, r.vfe, frustration, a.model)
	if err != nil {
		return r, err
	}
	r.adjustment = adj
	a.reportAdjustment(ctx, adj)

	return r, nil
}

// sense samples the field at the two sensor tips.
func (a *Agent) sense(field environment.Field, m morphology.Morphology) inference.Observation {
	thetaL := a.angle + m.SensorAngle
	thetaR := a.angle - m.SensorAngle
	return inference.Observation{
		Left:  field.Concentration(a.x+m.SensorDist*math.Cos(thetaL), a.y+m.SensorDist*math.Sin(thetaL)),
		Right: field.Concentration(a.x+m.SensorDist*math.Cos(thetaR), a.y+m.SensorDist*math.Sin(thetaR)),
	}
}

func (a *Agent) state() planning.State {
	return planning.State{X: a.x, Y: a.y, Angle: a.angle, Speed: a.speed, Energy: a.energy}
}

func (a *Agent) plannedAction() planning.Action {
	if a.plan == nil {
		return planning.Straight
	}
	return a.plan.Action
}

// predictAfter projects the belief one step ahead under action act.
//
// The nutrient expectation is blended half and half with the grid's mean at
// the predicted position, and every variance grows by UncertaintyGrowth.
func (a *Agent) predictAfter(act planning.Action) inference.BeliefState {
	p := a.belief
	p.Mean.Angle = planning.Turn(p.Mean.Angle, act, a.cfg.Planner.TurnAngle)
	speed := math.Max(a.speed, a.cfg.Agent.PredictionSpeed)
	p.Mean.X, p.Mean.Y = a.kin.Move(p.Mean.X, p.Mean.Y, p.Mean.Angle, speed)
	cell := math.Max(0, math.Min(1, a.grid.Mean(p.Mean.X, p.Mean.Y)))
	p.Mean.Nutrient = 0.5*p.Mean.Nutrient + 0.5*cell
	p.ScaleVariance(a.cfg.Inference.UncertaintyGrowth)
	return p
}

// evaluateActions scores every action by EFE and returns the lowest. Ties
// go to the lowest action index.
func (a *Agent) evaluateActions() (planning.Action, [planning.NumActions]inference.EFE) {
	var efes [planning.NumActions]inference.EFE
	best := planning.Straight
	bestTotal := math.Inf(1)
	for _, act := range planning.Actions {
		efes[act] = inference.ExpectedFreeEnergy(a.predictAfter(act), a.model)
		if efes[act].Total < bestTotal {
			best, bestTotal = act, efes[act].Total
		}
	}
	return best, efes
}

// blend computes the heading contributions for this tick.
//
// The three random draws happen on every tick, in a fixed order, so two
// agents with the same seed stay in lockstep whatever their state.
func (a *Agent) blend(r tickResult, m morphology.Morphology) HeadingTerms {
	ag := a.cfg.Agent
	turn := a.cfg.Planner.TurnAngle

	exploreRoll := a.uniform(-1, 1)
	noiseRoll := a.uniform(-1, 1)
	panicRoll := a.uniform(-ag.PanicTurnRange, ag.PanicTurnRange)

	spatialPrecision := a.grid.Precision(a.x, a.y)
	homeostatic := r.sensed - m.TargetConcentration

	h := HeadingTerms{
		EFE:      ag.EFEWeight * r.efeAction.Delta(turn),
		Reactive: ag.ReactiveWeight * -ag.ReactiveGain * homeostatic * spatialPrecision * (r.obs.Left - r.obs.Right),
		Explore:  exploreRoll * a.cfg.Memory.ExplorationScale / spatialPrecision,
		Noise:    noiseRoll * ag.NoiseScale * math.Min(1, math.Abs(homeostatic)),
	}
	if a.plan != nil {
		h.Plan = ag.PlanWeight * a.plan.Delta
	}
	if r.gradient < ag.PanicThreshold {
		h.Panic = panicRoll
	}
	if a.energy < a.cfg.Planner.UrgentEnergy {
		if l, ok := a.landmarks.Best(a.x, a.y); ok {
			target := math.Atan2(l.Y-a.y, l.X-a.x)
			h.Goal = a.cfg.Landmarks.AttractionScale * inference.AngleDiff(target, a.angle) * l.Reliability
		}
	}
	return h
}

func (a *Agent) uniform(lo, hi float64) float64 {
	return lo + a.rng.Float64()*(hi-lo)
}

// mode derives the behavioural label. Order matters: the first match wins.
func (a *Agent) mode(r tickResult) Mode {
	switch {
	case a.energy <= a.cfg.Agent.ExhaustionThreshold:
		return ModeExhausted
	case r.gradient < a.cfg.Agent.PanicThreshold:
		return ModePanicking
	}
	if a.energy < a.cfg.Planner.UrgentEnergy {
		if _, ok := a.landmarks.Best(a.x, a.y); ok {
			return ModeSeekingGoal
		}
	}
	ag := a.cfg.Agent
	if a.grid.Precision(a.x, a.y) > ag.ExploitPrecision && r.sensed > ag.ExploitConcentration && r.vfe < ag.ExploitVFE {
		return ModeExploiting
	}
	return ModeExploring
}

// reportAdjustment logs and counts a regulator adjustment.
func (a *Agent) reportAdjustment(ctx context.Context, adj morphology.Adjustment) {
	if !adj.Changed() {
		return
	}
	logger := telemetry.LoggerWithTrace(ctx, a.logger)
	if adj.Structural {
		a.metrics.RecordMorphology(ctx, "structural")
		logger.Info("Structural morphogenesis",
			slog.Uint64("tick", a.tick+1),
			slog.Float64("avg_surprise", adj.AvgSurprise),
			slog.Float64("sensor_dist", adj.After.SensorDist),
			slog.Float64("sensor_angle", adj.After.SensorAngle),
			slog.Float64("learning_rate", adj.After.BeliefLearningRate),
		)
	}
	if adj.Allostatic {
		a.metrics.RecordMorphology(ctx, "allostatic")
		logger.Info("Allostatic regulation",
			slog.Uint64("tick", a.tick+1),
			slog.Float64("avg_frustration", adj.AvgFrustration),
			slog.Float64("target", adj.After.TargetConcentration),
		)
	}
	if adj.Recovered {
		a.metrics.RecordMorphology(ctx, "recovery")
		logger.Debug("Target recovered",
			slog.Float64("target", adj.After.TargetConcentration),
		)
	}
}

// buildSnapshot assembles the published view. Called with the lock held.
func (a *Agent) buildSnapshot(r tickResult) Snapshot {
	s := Snapshot{
		RunID:            a.runID,
		Tick:             a.tick,
		X:                a.x,
		Y:                a.y,
		Angle:            a.angle,
		Speed:            a.speed,
		Energy:           a.energy,
		Mode:             a.mode(r),
		Left:             r.obs.Left,
		Right:            r.obs.Right,
		TemporalGradient: r.gradient,
		Trend:            a.history.Trend(trendWindow),
		PredictionError:  (math.Abs(r.predErrs.Left) + math.Abs(r.predErrs.Right)) / 2,
		Precision:        a.precision.Precision(),
		SpatialPrecision: a.grid.Precision(a.x, a.y),
		Belief:           a.belief.Mean,
		Uncertainty:      a.belief.TotalUncertainty(),
		VFE:              r.vfe,
		EFE:              r.efes[r.efeAction],
		EFEByAction:      r.efes,
		EFEAction:        r.efeAction,
		Heading:          r.heading,
		Grid:             a.grid.Snapshot(),
		Landmarks:        a.landmarks.Landmarks(),
		TicksUntilReplan: a.planner.TicksUntilReplan(a.tick, a.lastPlanTick),
		Morphology:       a.regulator.Morphology(),
		Accumulators:     a.regulator.Accumulators(),
		Adjustment:       r.adjustment,
	}
	if a.plan != nil {
		s.HasPlan = true
		s.Plan = *a.plan
	} else {
		s.TicksUntilReplan = 0
	}
	return s
}
