package sim

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/scout/agent"
)

// ringPixels builds a grayscale grid whose border cells are solid and
// whose interior is open.
func ringPixels(size int) []byte {
	pixels := make([]byte, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x > 0 && y > 0 && x < size-1 && y < size-1 {
				pixels[y*size+x] = 255
			}
		}
	}
	return pixels
}

func newTestScene(t *testing.T, size int) *Scene {
	t.Helper()
	s, err := NewScene(size, size, ringPixels(size))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewSceneRejectsBadPixelCount(t *testing.T) {
	if _, err := NewScene(4, 4, make([]byte, 15)); err == nil {
		t.Fatal("expected error for mismatched pixel count")
	}
}

func TestSceneAgentLifecycle(t *testing.T) {
	s := newTestScene(t, 12)

	a := agent.New(1)
	id := s.AddAgent(a)
	id2 := s.AddAgent(agent.New(1))
	if id == id2 {
		t.Fatal("agent IDs must be unique")
	}
	if s.NumAgents() != 2 {
		t.Fatalf("NumAgents = %d, want 2", s.NumAgents())
	}

	got, ok := s.Agent(id)
	if !ok {
		t.Fatal("added agent not found")
	}
	if got.State.Heading != (r2.Vec{Y: 1}) {
		t.Errorf("heading = %v, want default +Y", got.State.Heading)
	}

	if !s.RemoveAgent(id) {
		t.Fatal("remove of live agent failed")
	}
	if s.RemoveAgent(id) {
		t.Fatal("double remove succeeded")
	}
	if _, ok := s.Agent(id); ok {
		t.Fatal("removed agent still queryable")
	}
	if _, ok := s.Measurements(id); ok {
		t.Fatal("removed agent still has sensor readings")
	}
	if s.NumAgents() != 1 {
		t.Fatalf("NumAgents = %d, want 1", s.NumAgents())
	}
}

func TestSceneUpdateIntegratesAgents(t *testing.T) {
	s := newTestScene(t, 12)

	a := agent.New(1)
	a.State.Velocity = 1
	id := s.AddAgent(a)

	const dt = 0.1
	for i := 0; i < 10; i++ {
		s.Update(dt)
	}

	if got := s.Time(); math.Abs(got-1) > 1e-12 {
		t.Errorf("Time = %v, want 1", got)
	}
	moved, _ := s.Agent(id)
	if math.Abs(moved.State.Position.Y-1) > 1e-9 {
		t.Errorf("agent moved to %v, want Y=1", moved.State.Position)
	}
	if !moved.HasLast {
		t.Error("integration should record previous state")
	}
}

func TestSceneControls(t *testing.T) {
	s := newTestScene(t, 12)
	id := s.AddAgent(agent.New(1))

	if !s.SetControls(id, 0.5, 0.1) {
		t.Fatal("SetControls failed for live agent")
	}
	a, _ := s.Agent(id)
	if a.State.Torque != 0.5 || a.State.Beta != 0.1 {
		t.Errorf("controls = (%v, %v), want (0.5, 0.1)", a.State.Torque, a.State.Beta)
	}
	if s.SetControls(AgentID(999), 1, 0) {
		t.Fatal("SetControls succeeded for unknown agent")
	}
}

// TestSceneLidarEndToEnd drives the full pipeline: a 12x12 ring map
// leaves a 10x10 open interior, so an agent at the center with four
// axis-aligned rays sees all four walls at distance 5.
func TestSceneLidarEndToEnd(t *testing.T) {
	s := newTestScene(t, 12)

	a := agent.New(1)
	a.State.Heading = r2.Vec{X: 1}
	a.Sensors.Lidar.SetDirections([]r2.Vec{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}})
	id := s.AddAgent(a)

	const dt = 1.0 / 60
	deadline := time.Now().Add(2 * time.Second)
	var meas agent.Measurement
	for {
		s.Update(dt)
		if m, ok := s.Measurements(id); ok {
			meas = m
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no measurement arrived")
		}
		time.Sleep(time.Millisecond)
	}

	if len(meas.Points) != 4 {
		t.Fatalf("got %d hit points, want 4", len(meas.Points))
	}
	for _, p := range meas.Points {
		d := math.Hypot(p.X, p.Y)
		if math.Abs(d-5) > 1e-9 {
			t.Errorf("hit %v at distance %v, want 5", p, d)
		}
	}
	if meas.Time <= 0 || meas.Time > s.Time()+1e-12 {
		t.Errorf("measurement time %v outside (0, %v]", meas.Time, s.Time())
	}
}

// TestSceneManyAgents exercises the parallel integration path.
func TestSceneManyAgents(t *testing.T) {
	s := newTestScene(t, 32)

	n := parallelThreshold * 2
	ids := make([]AgentID, 0, n)
	for i := 0; i < n; i++ {
		a := agent.New(1)
		a.State.Velocity = 0.5
		a.Sensors.Lidar.SetRegular(8)
		ids = append(ids, s.AddAgent(a))
	}

	const dt = 0.05
	for i := 0; i < 20; i++ {
		s.Update(dt)
	}

	for _, id := range ids {
		a, ok := s.Agent(id)
		if !ok {
			t.Fatalf("agent %d lost", id)
		}
		if math.Abs(a.State.Position.Y-0.5) > 1e-9 {
			t.Fatalf("agent %d at %v, want Y=0.5", id, a.State.Position)
		}
	}
}
