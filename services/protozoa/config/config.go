// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the single configuration value threaded through the
// protozoa cognitive engine.
//
// # Description
//
// Every hyperparameter of the agent (thresholds, rates, grid dimensions,
// rollout counts, landmark capacity, clamp bounds) lives in Config. A Config
// is built once, validated, and passed to agent.New. Components copy the
// sections they need; none of them reads ambient or global state.
//
// The only values that change during a run are the four morphology fields,
// and those are owned by the morphology package, not by Config.
//
// # Thread Safety
//
// Config is a plain value. Safe to read concurrently; do not mutate after
// handing it to a constructor.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix shared by all environment overrides.
const EnvPrefix = "PROTOZOA_"

// Config contains all engine and runner configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	// Seed drives every random source (agent noise, planner, environment).
	Seed uint64 `json:"seed" yaml:"seed"`

	World         WorldConfig         `json:"world" yaml:"world"`
	Agent         AgentConfig         `json:"agent" yaml:"agent"`
	Inference     InferenceConfig     `json:"inference" yaml:"inference"`
	Memory        MemoryConfig        `json:"memory" yaml:"memory"`
	Landmarks     LandmarkConfig      `json:"landmarks" yaml:"landmarks"`
	Planner       PlannerConfig       `json:"planner" yaml:"planner"`
	Morphology    MorphologyConfig    `json:"morphology" yaml:"morphology"`
	Environment   EnvironmentConfig   `json:"environment" yaml:"environment"`
	Simulation    SimulationConfig    `json:"simulation" yaml:"simulation"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// WorldConfig is the size of the continuous dish.
type WorldConfig struct {
	Width  float64 `json:"width" yaml:"width" validate:"gt=0"`
	Height float64 `json:"height" yaml:"height" validate:"gt=0"`
}

// AgentConfig contains kinematics, metabolism and action-blend settings.
type AgentConfig struct {
	MaxSpeed              float64 `json:"max_speed" yaml:"max_speed" validate:"gt=0"`
	PanicThreshold        float64 `json:"panic_threshold" yaml:"panic_threshold" validate:"lte=0"`
	PanicTurnRange        float64 `json:"panic_turn_range" yaml:"panic_turn_range" validate:"gte=0"`
	NoiseScale            float64 `json:"noise_scale" yaml:"noise_scale" validate:"gte=0"`
	ExhaustionThreshold   float64 `json:"exhaustion_threshold" yaml:"exhaustion_threshold" validate:"gte=0,lt=1"`
	ExhaustionSpeedFactor float64 `json:"exhaustion_speed_factor" yaml:"exhaustion_speed_factor" validate:"gt=0,lte=1"`
	BaseMetabolicCost     float64 `json:"base_metabolic_cost" yaml:"base_metabolic_cost" validate:"gte=0"`
	SpeedMetabolicCost    float64 `json:"speed_metabolic_cost" yaml:"speed_metabolic_cost" validate:"gte=0"`
	IntakeRate            float64 `json:"intake_rate" yaml:"intake_rate" validate:"gte=0"`
	MaxVFE                float64 `json:"max_vfe" yaml:"max_vfe" validate:"gt=0"`
	MinSpeedFraction      float64 `json:"min_speed_fraction" yaml:"min_speed_fraction" validate:"gte=0,lte=1"`

	// Heading blend weights.
	EFEWeight      float64 `json:"efe_weight" yaml:"efe_weight" validate:"gte=0"`
	PlanWeight     float64 `json:"plan_weight" yaml:"plan_weight" validate:"gte=0"`
	ReactiveWeight float64 `json:"reactive_weight" yaml:"reactive_weight" validate:"gte=0"`
	ReactiveGain   float64 `json:"reactive_gain" yaml:"reactive_gain" validate:"gte=0"`

	// PredictionSpeed is the minimum speed assumed when predicting one step ahead.
	PredictionSpeed float64 `json:"prediction_speed" yaml:"prediction_speed" validate:"gt=0"`

	// Exploiting mode requires all three of these at the current cell.
	ExploitPrecision     float64 `json:"exploit_precision" yaml:"exploit_precision" validate:"gte=0"`
	ExploitConcentration float64 `json:"exploit_concentration" yaml:"exploit_concentration" validate:"gte=0,lte=1"`
	ExploitVFE           float64 `json:"exploit_vfe" yaml:"exploit_vfe" validate:"gt=0"`
}

// InferenceConfig contains generative model and belief settings.
type InferenceConfig struct {
	InitialSensoryPrecision float64 `json:"initial_sensory_precision" yaml:"initial_sensory_precision" validate:"gt=0"`
	MinSensoryPrecision     float64 `json:"min_sensory_precision" yaml:"min_sensory_precision" validate:"gt=0"`
	MaxSensoryPrecision     float64 `json:"max_sensory_precision" yaml:"max_sensory_precision" validate:"gtfield=MinSensoryPrecision"`
	PrecisionSmoothing      float64 `json:"precision_smoothing" yaml:"precision_smoothing" validate:"gt=0,lte=1"`
	NutrientPriorPrecision  float64 `json:"nutrient_prior_precision" yaml:"nutrient_prior_precision" validate:"gte=0"`
	PositionPriorPrecision  float64 `json:"position_prior_precision" yaml:"position_prior_precision" validate:"gte=0"`
	AnglePriorPrecision     float64 `json:"angle_prior_precision" yaml:"angle_prior_precision" validate:"gte=0"`
	ObservationGain         float64 `json:"observation_gain" yaml:"observation_gain" validate:"gte=0"`
	InitialVariance         float64 `json:"initial_variance" yaml:"initial_variance" validate:"gt=0"`
	MinVariance             float64 `json:"min_variance" yaml:"min_variance" validate:"gt=0"`
	MaxVariance             float64 `json:"max_variance" yaml:"max_variance" validate:"gtfield=MinVariance"`
	UncertaintyGrowth       float64 `json:"uncertainty_growth" yaml:"uncertainty_growth" validate:"gte=1"`
	UncertaintyReduction    float64 `json:"uncertainty_reduction" yaml:"uncertainty_reduction" validate:"gt=0,lte=1"`
}

// MemoryConfig contains short-term buffer and spatial grid settings.
type MemoryConfig struct {
	HistorySize      int     `json:"history_size" yaml:"history_size" validate:"gte=2"`
	GridWidth        int     `json:"grid_width" yaml:"grid_width" validate:"gte=1"`
	GridHeight       int     `json:"grid_height" yaml:"grid_height" validate:"gte=1"`
	MinPrecision     float64 `json:"min_precision" yaml:"min_precision" validate:"gt=0"`
	MaxPrecision     float64 `json:"max_precision" yaml:"max_precision" validate:"gtfield=MinPrecision"`
	VarianceFloor    float64 `json:"variance_floor" yaml:"variance_floor" validate:"gt=0"`
	ExplorationScale float64 `json:"exploration_scale" yaml:"exploration_scale" validate:"gte=0"`
}

// LandmarkConfig contains episodic memory settings.
type LandmarkConfig struct {
	Capacity        int     `json:"capacity" yaml:"capacity" validate:"gte=1"`
	Threshold       float64 `json:"threshold" yaml:"threshold" validate:"gt=0,lte=1"`
	VisitRadius     float64 `json:"visit_radius" yaml:"visit_radius" validate:"gt=0"`
	Decay           float64 `json:"decay" yaml:"decay" validate:"gt=0,lt=1"`
	AttractionScale float64 `json:"attraction_scale" yaml:"attraction_scale" validate:"gte=0"`
	MinReliability  float64 `json:"min_reliability" yaml:"min_reliability" validate:"gte=0,lt=1"`
}

// PlannerConfig contains Monte Carlo rollout settings.
type PlannerConfig struct {
	Rollouts         int     `json:"rollouts" yaml:"rollouts" validate:"gte=3"`
	Depth            int     `json:"depth" yaml:"depth" validate:"gte=1"`
	ReplanInterval   uint64  `json:"replan_interval" yaml:"replan_interval" validate:"gte=1"`
	UrgentEnergy     float64 `json:"urgent_energy" yaml:"urgent_energy" validate:"gte=0,lte=1"`
	ExplorationScale float64 `json:"exploration_scale" yaml:"exploration_scale" validate:"gte=0"`
	TurnAngle        float64 `json:"turn_angle" yaml:"turn_angle" validate:"gt=0"`
	MinRolloutSpeed  float64 `json:"min_rollout_speed" yaml:"min_rollout_speed" validate:"gt=0"`

	// Workers bounds rollout concurrency. 1 runs rollouts sequentially.
	Workers int `json:"workers" yaml:"workers" validate:"gte=1"`
}

// MorphologyConfig contains initial morphology, clamp bounds and the
// regulator's thresholds.
type MorphologyConfig struct {
	SensorDist          float64 `json:"sensor_dist" yaml:"sensor_dist"`
	SensorAngle         float64 `json:"sensor_angle" yaml:"sensor_angle"`
	BeliefLearningRate  float64 `json:"belief_learning_rate" yaml:"belief_learning_rate"`
	TargetConcentration float64 `json:"target_concentration" yaml:"target_concentration"`

	MinSensorDist   float64 `json:"min_sensor_dist" yaml:"min_sensor_dist" validate:"gt=0"`
	MaxSensorDist   float64 `json:"max_sensor_dist" yaml:"max_sensor_dist" validate:"gtfield=MinSensorDist"`
	MinSensorAngle  float64 `json:"min_sensor_angle" yaml:"min_sensor_angle" validate:"gt=0"`
	MaxSensorAngle  float64 `json:"max_sensor_angle" yaml:"max_sensor_angle" validate:"gtfield=MinSensorAngle"`
	MinLearningRate float64 `json:"min_learning_rate" yaml:"min_learning_rate" validate:"gt=0"`
	MaxLearningRate float64 `json:"max_learning_rate" yaml:"max_learning_rate" validate:"gtfield=MinLearningRate"`
	MinTarget       float64 `json:"min_target" yaml:"min_target" validate:"gte=0"`
	MaxTarget       float64 `json:"max_target" yaml:"max_target" validate:"gtfield=MinTarget,lte=1"`

	SensorDistRate   float64 `json:"sensor_dist_rate" yaml:"sensor_dist_rate" validate:"gte=0"`
	SensorAngleRate  float64 `json:"sensor_angle_rate" yaml:"sensor_angle_rate" validate:"gte=0"`
	LearningRateRate float64 `json:"learning_rate_rate" yaml:"learning_rate_rate" validate:"gte=0"`
	TargetRate       float64 `json:"target_rate" yaml:"target_rate" validate:"gte=0"`
	TargetRecovery   float64 `json:"target_recovery" yaml:"target_recovery" validate:"gte=0,lte=1"`

	WindowSize           uint64  `json:"window_size" yaml:"window_size" validate:"gte=1"`
	SurpriseThreshold    float64 `json:"surprise_threshold" yaml:"surprise_threshold" validate:"gt=0"`
	FrustrationThreshold float64 `json:"frustration_threshold" yaml:"frustration_threshold" validate:"gt=0"`
	AccumulatorDecay     float64 `json:"accumulator_decay" yaml:"accumulator_decay" validate:"gt=0,lte=1"`
}

// EnvironmentConfig contains the nutrient dish generator settings.
type EnvironmentConfig struct {
	SourceCountMin   int     `json:"source_count_min" yaml:"source_count_min" validate:"gte=1"`
	SourceCountMax   int     `json:"source_count_max" yaml:"source_count_max" validate:"gtefield=SourceCountMin"`
	SourceMargin     float64 `json:"source_margin" yaml:"source_margin" validate:"gte=0"`
	RadiusMin        float64 `json:"radius_min" yaml:"radius_min" validate:"gt=0"`
	RadiusMax        float64 `json:"radius_max" yaml:"radius_max" validate:"gtefield=RadiusMin"`
	IntensityMin     float64 `json:"intensity_min" yaml:"intensity_min" validate:"gt=0"`
	IntensityMax     float64 `json:"intensity_max" yaml:"intensity_max" validate:"gtefield=IntensityMin,lte=1"`
	DecayMin         float64 `json:"decay_min" yaml:"decay_min" validate:"gt=0"`
	DecayMax         float64 `json:"decay_max" yaml:"decay_max" validate:"gtefield=DecayMin,lte=1"`
	BrownianStep     float64 `json:"brownian_step" yaml:"brownian_step" validate:"gte=0"`
	RespawnThreshold float64 `json:"respawn_threshold" yaml:"respawn_threshold" validate:"gte=0"`
}

// SimulationConfig contains runner pacing settings.
type SimulationConfig struct {
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval" validate:"gte=0"`
	SummaryEvery uint64        `json:"summary_every" yaml:"summary_every"`
	// MaxTicks of 0 runs until cancelled.
	MaxTicks uint64 `json:"max_ticks" yaml:"max_ticks"`
}

// ObservabilityConfig contains logging and telemetry settings.
type ObservabilityConfig struct {
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
	LogLevel       string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat      string `json:"log_format" yaml:"log_format" validate:"oneof=text json"`
	ServiceName    string `json:"service_name" yaml:"service_name" validate:"required"`
	TraceExporter  string `json:"trace_exporter" yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
}

// Default returns the default configuration.
//
// Outputs:
//   - Config: Default configuration with sensible values.
func Default() Config {
	return Config{
		Seed: 1,
		World: WorldConfig{
			Width:  100.0,
			Height: 50.0,
		},
		Agent: AgentConfig{
			MaxSpeed:              1.5,
			PanicThreshold:        -0.01,
			PanicTurnRange:        2.0,
			NoiseScale:            0.5,
			ExhaustionThreshold:   0.01,
			ExhaustionSpeedFactor: 0.5,
			BaseMetabolicCost:     0.0005,
			SpeedMetabolicCost:    0.0025,
			IntakeRate:            0.03,
			MaxVFE:                5.0,
			MinSpeedFraction:      0.1,
			EFEWeight:             0.4,
			PlanWeight:            0.2,
			ReactiveWeight:        0.2,
			ReactiveGain:          0.1,
			PredictionSpeed:       0.5,
			ExploitPrecision:      5.0,
			ExploitConcentration:  0.6,
			ExploitVFE:            1.0,
		},
		Inference: InferenceConfig{
			InitialSensoryPrecision: 5.0,
			MinSensoryPrecision:     0.5,
			MaxSensoryPrecision:     20.0,
			PrecisionSmoothing:      0.1,
			NutrientPriorPrecision:  2.0,
			PositionPriorPrecision:  0.001,
			AnglePriorPrecision:     0.001,
			ObservationGain:         0.2,
			InitialVariance:         1.0,
			MinVariance:             1e-4,
			MaxVariance:             100.0,
			UncertaintyGrowth:       1.1,
			UncertaintyReduction:    0.95,
		},
		Memory: MemoryConfig{
			HistorySize:      32,
			GridWidth:        20,
			GridHeight:       10,
			MinPrecision:     0.1,
			MaxPrecision:     10.0,
			VarianceFloor:    1e-6,
			ExplorationScale: 0.3,
		},
		Landmarks: LandmarkConfig{
			Capacity:        8,
			Threshold:       0.7,
			VisitRadius:     5.0,
			Decay:           0.995,
			AttractionScale: 0.5,
			MinReliability:  0.01,
		},
		Planner: PlannerConfig{
			Rollouts:         50,
			Depth:            10,
			ReplanInterval:   20,
			UrgentEnergy:     0.3,
			ExplorationScale: 0.3,
			TurnAngle:        0.3,
			MinRolloutSpeed:  0.5,
			Workers:          4,
		},
		Morphology: MorphologyConfig{
			SensorDist:           2.0,
			SensorAngle:          0.5,
			BeliefLearningRate:   0.15,
			TargetConcentration:  0.8,
			MinSensorDist:        1.0,
			MaxSensorDist:        4.0,
			MinSensorAngle:       0.2,
			MaxSensorAngle:       1.0,
			MinLearningRate:      0.05,
			MaxLearningRate:      0.3,
			MinTarget:            0.5,
			MaxTarget:            0.9,
			SensorDistRate:       0.1,
			SensorAngleRate:      0.05,
			LearningRateRate:     0.01,
			TargetRate:           0.02,
			TargetRecovery:       0.05,
			WindowSize:           100,
			SurpriseThreshold:    2.0,
			FrustrationThreshold: 5.0,
			AccumulatorDecay:     0.98,
		},
		Environment: EnvironmentConfig{
			SourceCountMin:   5,
			SourceCountMax:   10,
			SourceMargin:     10.0,
			RadiusMin:        2.5,
			RadiusMax:        8.0,
			IntensityMin:     0.5,
			IntensityMax:     1.0,
			DecayMin:         0.990,
			DecayMax:         0.998,
			BrownianStep:     0.5,
			RespawnThreshold: 0.05,
		},
		Simulation: SimulationConfig{
			TickInterval: 50 * time.Millisecond,
			SummaryEvery: 100,
			MaxTicks:     0,
		},
		Observability: ObservabilityConfig{
			TracingEnabled: true,
			LogLevel:       "info",
			LogFormat:      "text",
			ServiceName:    "protozoa",
			TraceExporter:  "none",
			MetricExporter: "none",
		},
	}
}

// Load loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - path: Path to YAML/JSON config file (optional, can be empty).
//
// Outputs:
//   - Config: Merged configuration.
//   - error: Non-nil if the file exists but is invalid, or validation fails.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Seed = u
		}
	}

	// World
	if v := os.Getenv(EnvPrefix + "WORLD_WIDTH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.World.Width = f
		}
	}
	if v := os.Getenv(EnvPrefix + "WORLD_HEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.World.Height = f
		}
	}

	// Planner
	if v := os.Getenv(EnvPrefix + "ROLLOUTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Planner.Rollouts = i
		}
	}
	if v := os.Getenv(EnvPrefix + "DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Planner.Depth = i
		}
	}
	if v := os.Getenv(EnvPrefix + "REPLAN_INTERVAL"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Planner.ReplanInterval = u
		}
	}
	if v := os.Getenv(EnvPrefix + "WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Planner.Workers = i
		}
	}

	// Memory
	if v := os.Getenv(EnvPrefix + "GRID_WIDTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Memory.GridWidth = i
		}
	}
	if v := os.Getenv(EnvPrefix + "GRID_HEIGHT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Memory.GridHeight = i
		}
	}

	// Morphology
	if v := os.Getenv(EnvPrefix + "TARGET"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Morphology.TargetConcentration = f
		}
	}
	if v := os.Getenv(EnvPrefix + "WINDOW_SIZE"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Morphology.WindowSize = u
		}
	}

	// Simulation
	if v := os.Getenv(EnvPrefix + "TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Simulation.TickInterval = d
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_TICKS"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulation.MaxTicks = u
		}
	}

	// Observability
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
	if v := os.Getenv(EnvPrefix + "TRACING_ENABLED"); v != "" {
		cfg.Observability.TracingEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Observability.TraceExporter = v
	}
	if v := os.Getenv("OTEL_METRICS_EXPORTER"); v != "" {
		cfg.Observability.MetricExporter = v
	}
}

var validate = validator.New()

// Validate checks that the configuration is valid.
//
// # Description
//
// Field-level rules are expressed as validator struct tags. Rules that relate
// an initial value to its clamp bounds are checked explicitly afterwards.
//
// Outputs:
//   - error: Non-nil if configuration is invalid.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	m := c.Morphology
	if err := inRange("morphology.sensor_dist", m.SensorDist, m.MinSensorDist, m.MaxSensorDist); err != nil {
		return err
	}
	if err := inRange("morphology.sensor_angle", m.SensorAngle, m.MinSensorAngle, m.MaxSensorAngle); err != nil {
		return err
	}
	if err := inRange("morphology.belief_learning_rate", m.BeliefLearningRate, m.MinLearningRate, m.MaxLearningRate); err != nil {
		return err
	}
	if err := inRange("morphology.target_concentration", m.TargetConcentration, m.MinTarget, m.MaxTarget); err != nil {
		return err
	}

	inf := c.Inference
	if err := inRange("inference.initial_sensory_precision", inf.InitialSensoryPrecision, inf.MinSensoryPrecision, inf.MaxSensoryPrecision); err != nil {
		return err
	}
	if err := inRange("inference.initial_variance", inf.InitialVariance, inf.MinVariance, inf.MaxVariance); err != nil {
		return err
	}

	if 2*c.Environment.SourceMargin >= math.Min(c.World.Width, c.World.Height) {
		return fmt.Errorf("environment.source_margin %.2f leaves no room in a %.0fx%.0f world",
			c.Environment.SourceMargin, c.World.Width, c.World.Height)
	}
	return nil
}

func inRange(name string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be within [%g, %g], got %g", name, lo, hi, v)
	}
	return nil
}

// ToYAML renders the configuration as YAML.
func (c Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
