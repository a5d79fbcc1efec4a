// Package agent holds the mobile agent model: a bicycle-kinematics
// body plus its attached sensors. Agents are plain values so the
// simulation can snapshot and integrate them off-thread; only the
// sensor handles carry synchronization.
package agent

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/scout/geom"
)

// Config holds the physical parameters of an agent. Fields are in
// world units and derived from a single scale factor so differently
// sized agents stay dynamically similar.
type Config struct {
	Mass        float64
	Length      float64
	Width       float64
	TyreRadius  float64
	TyreInertia float64

	// TorqueRange and BetaRange bound the control inputs accepted by
	// SetControls, as [min, max].
	TorqueRange [2]float64
	BetaRange   [2]float64
}

// ConfigWithScale returns a config for an agent of the given linear
// scale. Lengths grow with scale, masses with scale squared, inertias
// and drive torque with the fourth power, matching a 2D body of
// uniform density. Both inertia terms of the acceleration denominator
// go with s^4, so torque must too or larger agents accelerate slower.
func ConfigWithScale(scale float64) Config {
	s2 := scale * scale
	s4 := s2 * s2
	return Config{
		Mass:        s2,
		Length:      scale,
		Width:       scale / 2,
		TyreRadius:  scale / 4,
		TyreInertia: s4 / 32,
		TorqueRange: [2]float64{-s4, s4},
		BetaRange:   [2]float64{-math.Pi / 4, math.Pi / 4},
	}
}

// State is the integrable kinematic state of an agent. Beta is the
// steering angle, Velocity the forward speed along Heading and Torque
// the drive torque currently applied at the tyres.
type State struct {
	Beta     float64
	Velocity float64
	Torque   float64
	Position r2.Vec
	Heading  r2.Vec
}

// DefaultState returns a resting state facing +Y at the origin.
func DefaultState() State {
	return State{Heading: r2.Vec{Y: 1}}
}

// Sensors groups the sensor handles attached to an agent.
type Sensors struct {
	Lidar *LidarHandle
}

// Agent is a simulated vehicle. Last holds the state before the most
// recent Update and backs the finite-difference terms of the
// integrator; HasLast is false until the first step.
type Agent struct {
	Config  Config
	State   State
	Last    State
	HasLast bool
	Sensors Sensors
}

// New returns an agent of the given scale with a default lidar.
func New(scale float64) Agent {
	return Agent{
		Config:  ConfigWithScale(scale),
		State:   DefaultState(),
		Sensors: Sensors{Lidar: NewLidarHandle(Regular(DefaultRays))},
	}
}

// SetControls applies steering and drive inputs, clamped to the
// configured ranges.
func (a *Agent) SetControls(torque, beta float64) {
	a.State.Torque = clamp(torque, a.Config.TorqueRange)
	a.State.Beta = clamp(beta, a.Config.BetaRange)
}

func clamp(v float64, r [2]float64) float64 {
	return math.Min(math.Max(v, r[0]), r[1])
}

// Update advances the agent by dt seconds under bicycle kinematics.
// Steering and velocity rates come from backward differences against
// Last, so the first step after spawn integrates with zero rates.
// Controls decay per step: torque falls off sharply and steering
// relaxes toward straight, so inputs must be reapplied to persist.
func (a *Agent) Update(dt float64) {
	st := a.State

	var dBeta, dVel float64
	if a.HasLast {
		dBeta = (st.Beta - a.Last.Beta) / dt
		dVel = (st.Velocity - a.Last.Velocity) / dt
	}

	tanBeta := math.Tan(st.Beta)
	cosBeta2 := 1 / (1 + tanBeta*tanBeta)

	angVel := st.Velocity * tanBeta / a.Config.Length
	angAcc := tanBeta/a.Config.Length*dVel + st.Velocity/(a.Config.Length*cosBeta2)*dBeta

	accel := a.Config.TyreRadius * st.Torque /
		(2*a.Config.TyreInertia + a.Config.Mass*a.Config.TyreRadius*a.Config.TyreRadius)

	a.Last = a.State
	a.HasLast = true

	a.State.Position = r2.Add(st.Position, r2.Scale(st.Velocity*dt, st.Heading))
	a.State.Velocity = st.Velocity + accel*dt

	rot := geom.FromAngle(angVel*dt + angAcc*dt*dt/2)
	heading := geom.RotateBy(rot, st.Heading)
	if norm := math.Hypot(heading.X, heading.Y); norm > 0 {
		a.State.Heading = r2.Scale(1/norm, heading)
	} else {
		a.State.Heading = r2.Vec{}
	}

	a.State.Torque = st.Torque * math.Pow(0.01, dt)
	a.State.Beta = st.Beta * math.Pow(0.3, dt)
}
