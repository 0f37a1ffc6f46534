// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -----------------------------------------------------------------------------
// Planner Metrics
// -----------------------------------------------------------------------------

var (
	// plansTotal counts planning cycles by trigger and outcome.
	//
	// Labels:
	//   - trigger: "initial", "scheduled" or "urgent"
	//   - status: "success" or "failure"
	plansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "protozoa",
			Subsystem: "planner",
			Name:      "plans_total",
			Help:      "Total planning cycles by trigger and status",
		},
		[]string{"trigger", "status"},
	)

	// rolloutsTotal counts simulated trajectories.
	rolloutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "protozoa",
			Subsystem: "planner",
			Name:      "rollouts_total",
			Help:      "Total Monte Carlo rollouts simulated",
		},
	)

	// chosenActionTotal counts the first action selected by each plan.
	//
	// Labels:
	//   - action: "TurnLeft", "Straight" or "TurnRight"
	chosenActionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "protozoa",
			Subsystem: "planner",
			Name:      "chosen_action_total",
			Help:      "Planned first actions by action",
		},
		[]string{"action"},
	)

	// planDurationSeconds measures wall time of a planning cycle.
	planDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "protozoa",
			Subsystem: "planner",
			Name:      "plan_duration_seconds",
			Help:      "Duration of a planning cycle in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)
)

// recordPlan updates planner metrics for one cycle.
//
// Thread Safety: Safe for concurrent use.
func recordPlan(trigger Trigger, plan *Plan, rollouts int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	plansTotal.WithLabelValues(string(trigger), status).Inc()
	rolloutsTotal.Add(float64(rollouts))
	planDurationSeconds.Observe(duration.Seconds())
	if err == nil && plan != nil {
		chosenActionTotal.WithLabelValues(plan.Action.String()).Inc()
	}
}
