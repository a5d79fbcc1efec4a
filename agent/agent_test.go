package agent

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestConfigWithScaleSimilarity(t *testing.T) {
	base := ConfigWithScale(1)
	big := ConfigWithScale(2)

	if big.Length != 2*base.Length || big.Width != 2*base.Width || big.TyreRadius != 2*base.TyreRadius {
		t.Error("lengths should scale linearly")
	}
	if big.Mass != 4*base.Mass {
		t.Errorf("mass = %v, want %v", big.Mass, 4*base.Mass)
	}
	if big.TyreInertia != 16*base.TyreInertia {
		t.Errorf("tyre inertia = %v, want %v", big.TyreInertia, 16*base.TyreInertia)
	}
	if big.TorqueRange[1] != 16*base.TorqueRange[1] {
		t.Errorf("torque bound = %v, want %v", big.TorqueRange[1], 16*base.TorqueRange[1])
	}

	// r*T / (2*I + m*r^2) is s*s^4 over s^4, so the peak drive
	// acceleration grows linearly with scale.
	baseAcc := base.TyreRadius * base.TorqueRange[1] /
		(2*base.TyreInertia + base.Mass*base.TyreRadius*base.TyreRadius)
	bigAcc := big.TyreRadius * big.TorqueRange[1] /
		(2*big.TyreInertia + big.Mass*big.TyreRadius*big.TyreRadius)
	if math.Abs(bigAcc-2*baseAcc) > 1e-12 {
		t.Errorf("max acceleration = %v, want %v (linear in scale)", bigAcc, 2*baseAcc)
	}
}

func TestSetControlsClamps(t *testing.T) {
	a := New(1)
	a.SetControls(1e9, -1e9)
	if a.State.Torque != a.Config.TorqueRange[1] {
		t.Errorf("torque = %v, want upper bound %v", a.State.Torque, a.Config.TorqueRange[1])
	}
	if a.State.Beta != a.Config.BetaRange[0] {
		t.Errorf("beta = %v, want lower bound %v", a.State.Beta, a.Config.BetaRange[0])
	}
}

func TestUpdateStraightLine(t *testing.T) {
	a := New(1)
	a.State.Velocity = 2

	const dt = 0.1
	for i := 0; i < 10; i++ {
		a.Update(dt)
	}

	// No steering: heading stays +Y and the agent covers velocity*time
	// along it.
	if math.Abs(a.State.Position.X) > 1e-12 {
		t.Errorf("position drifted to X=%v without steering", a.State.Position.X)
	}
	if math.Abs(a.State.Position.Y-2) > 1e-9 {
		t.Errorf("position Y = %v, want 2", a.State.Position.Y)
	}
	if math.Abs(a.State.Heading.X) > 1e-12 || math.Abs(a.State.Heading.Y-1) > 1e-12 {
		t.Errorf("heading = %v, want +Y", a.State.Heading)
	}
}

func TestUpdateTorqueAccelerates(t *testing.T) {
	a := New(1)
	a.State.Torque = 1

	a.Update(0.1)
	if a.State.Velocity <= 0 {
		t.Errorf("velocity = %v, want positive after drive torque", a.State.Velocity)
	}
	if a.State.Torque >= 1 {
		t.Errorf("torque = %v, should decay between steps", a.State.Torque)
	}
}

func TestUpdateSteeringTurns(t *testing.T) {
	a := New(1)
	a.State.Velocity = 1
	a.State.Beta = 0.3

	prev := a.State.Heading
	for i := 0; i < 5; i++ {
		a.Update(0.05)
	}

	// Positive steering at forward speed rotates the heading
	// counter-clockwise, and the heading stays unit length.
	cross := prev.X*a.State.Heading.Y - prev.Y*a.State.Heading.X
	if cross <= 0 {
		t.Errorf("heading did not rotate counter-clockwise (cross = %v)", cross)
	}
	if norm := math.Hypot(a.State.Heading.X, a.State.Heading.Y); math.Abs(norm-1) > 1e-12 {
		t.Errorf("heading norm = %v, want 1", norm)
	}
	if math.Abs(a.State.Beta) >= 0.3 {
		t.Errorf("beta = %v, should relax toward zero", a.State.Beta)
	}
}

func TestUpdateRecordsLastState(t *testing.T) {
	a := New(1)
	if a.HasLast {
		t.Fatal("fresh agent should have no previous state")
	}

	a.State.Velocity = 1
	before := a.State
	a.Update(0.1)

	if !a.HasLast {
		t.Fatal("Update should record the previous state")
	}
	if a.Last != before {
		t.Errorf("Last = %+v, want %+v", a.Last, before)
	}
}

func TestZeroHeadingStaysZero(t *testing.T) {
	a := New(1)
	a.State.Heading = r2.Vec{}
	a.Update(0.1)
	if a.State.Heading != (r2.Vec{}) {
		t.Errorf("heading = %v, want zero to stay zero", a.State.Heading)
	}
}
