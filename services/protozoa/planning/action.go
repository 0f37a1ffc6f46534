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
	"fmt"
	"math"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/inference"
)

// Action is a discrete heading change.
type Action int

const (
	TurnLeft Action = iota
	Straight
	TurnRight

	// NumActions is the number of defined actions.
	NumActions = 3
)

// Actions lists every action in index order.
var Actions = [NumActions]Action{TurnLeft, Straight, TurnRight}

// String returns the action name.
func (a Action) String() string {
	switch a {
	case TurnLeft:
		return "TurnLeft"
	case Straight:
		return "Straight"
	case TurnRight:
		return "TurnRight"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Delta returns the heading change in radians for a turn of the given size.
// Left is a positive (counter-clockwise) rotation.
func (a Action) Delta(turn float64) float64 {
	switch a {
	case TurnLeft:
		return turn
	case TurnRight:
		return -turn
	default:
		return 0
	}
}

// =============================================================================
// Shared kinematics
// =============================================================================

// State is the pose and energy a rollout starts from.
type State struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Angle  float64 `json:"angle"`
	Speed  float64 `json:"speed"`
	Energy float64 `json:"energy"`
}

// Kinematics is the motion and metabolism model shared by the agent and
// the planner's simulated rollouts.
type Kinematics struct {
	World config.WorldConfig
	Agent config.AgentConfig
}

// Move advances the pose by speed along the heading and clamps it to the
// world.
func (k Kinematics) Move(x, y, angle, speed float64) (float64, float64) {
	nx := x + speed*math.Cos(angle)
	ny := y + speed*math.Sin(angle)
	return math.Max(0, math.Min(k.World.Width, nx)), math.Max(0, math.Min(k.World.Height, ny))
}

// Metabolize applies one tick of metabolic cost and intake, clamped to
// [0, 1]. sensed may be the negative out-of-bounds sentinel, which drains
// energy.
func (k Kinematics) Metabolize(energy, speed, sensed float64) float64 {
	cost := k.Agent.BaseMetabolicCost + k.Agent.SpeedMetabolicCost*(speed/k.Agent.MaxSpeed)
	next := energy - cost + k.Agent.IntakeRate*sensed
	return math.Max(0, math.Min(1, next))
}

// Turn applies an action to a heading.
func Turn(angle float64, a Action, turn float64) float64 {
	return inference.WrapAngle(angle + a.Delta(turn))
}
