// Package sim owns the simulation loop: agent storage in an ECS world,
// parallel kinematics integration and the non-blocking sensor
// scheduler. The tick runs in three phases: snapshot agent state,
// integrate the snapshots in parallel while offering them to the
// sensors, then apply the results back in insertion order so ticks are
// deterministic for a fixed agent set.
package sim

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/scout/agent"
	"github.com/pthm-cable/scout/occupancy"
)

// AgentID identifies an agent within a scene. IDs are never reused.
type AgentID uint64

// occupiedMax is the highest grayscale pixel value treated as solid
// when loading a map.
const occupiedMax = 127

// Scene couples an occupancy map with the agents moving through it.
// Update and the query methods must be called from the owning
// goroutine; only sensing runs concurrently, against immutable
// snapshots.
type Scene struct {
	world    *ecs.World
	agents   *ecs.Map1[agent.Agent]
	entities map[AgentID]ecs.Entity
	order    []AgentID
	nextID   AgentID

	time float64
	grid *occupancy.Map

	pool     *WorkerPool
	sensors  *SensorLoop
	parallel *parallelState
}

// NewScene builds a scene from a row-major grayscale pixel grid, where
// values up to 127 are occupied. The pixel count must match
// width*height.
func NewScene(width, height int, pixels []byte) (*Scene, error) {
	occupied := make([]bool, len(pixels))
	for i, v := range pixels {
		occupied[i] = v <= occupiedMax
	}

	grid, err := occupancy.FromPixels(width, height, occupied)
	if err != nil {
		return nil, fmt.Errorf("sim: building scene map: %w", err)
	}

	world := ecs.NewWorld()
	pool := NewWorkerPool(0)

	return &Scene{
		world:    world,
		agents:   ecs.NewMap1[agent.Agent](world),
		entities: make(map[AgentID]ecs.Entity),
		grid:     grid,
		pool:     pool,
		sensors:  NewSensorLoop(pool),
		parallel: newParallelState(),
	}, nil
}

// Close stops the worker goroutines. The scene is unusable afterwards.
func (s *Scene) Close() {
	s.parallel.stopWorkers()
	s.pool.Close()
}

// AddAgent inserts the agent and registers its lidar, if any, with the
// sensor loop.
func (s *Scene) AddAgent(a agent.Agent) AgentID {
	id := s.nextID
	s.nextID++

	entity := s.agents.NewEntity(&a)
	s.entities[id] = entity
	s.order = append(s.order, id)

	if a.Sensors.Lidar != nil && !s.sensors.Contains(id) {
		s.sensors.Insert(id, a.Sensors.Lidar)
	}
	return id
}

// RemoveAgent deletes the agent and its sensor registration.
func (s *Scene) RemoveAgent(id AgentID) bool {
	entity, ok := s.entities[id]
	if !ok {
		return false
	}
	s.world.RemoveEntity(entity)
	delete(s.entities, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.sensors.Remove(id)
	return true
}

// Update advances the scene by dt seconds: integrates every agent and
// offers the resulting states to their sensors. Sensing jobs run
// against the snapshot taken here and finish on their own schedule.
func (s *Scene) Update(dt float64) {
	s.time += dt
	snap := occupancy.Snapshot{Time: s.time, Map: s.grid}

	// Phase A: snapshot agent state in insertion order.
	ps := s.parallel
	ps.snapshots = ps.snapshots[:0]
	for _, id := range s.order {
		entity := s.entities[id]
		a := s.agents.Get(entity)
		if a == nil {
			continue
		}
		ps.snapshots = append(ps.snapshots, agentSnapshot{Entity: entity, ID: id, Agent: *a})
	}

	n := len(ps.snapshots)
	if n == 0 {
		return
	}

	if cap(ps.intents) < n {
		ps.intents = make([]agentIntent, n)
	}
	ps.intents = ps.intents[:n]

	// Phase B: integrate, single-threaded for small populations.
	if n < parallelThreshold {
		s.computeChunk(0, n, dt, snap)
	} else {
		s.computeParallel(n, dt, snap)
	}

	// Phase C: apply intents single-threaded, preserving determinism.
	for i := range ps.snapshots {
		a := s.agents.Get(ps.snapshots[i].Entity)
		if a == nil {
			continue
		}
		a.State = ps.intents[i].State
		a.Last = ps.intents[i].Last
		a.HasLast = true
	}
}

// computeChunk integrates a range of snapshots and offers each
// resulting state to the sensor loop. Chunks touch disjoint index
// ranges, so workers never contend on the slices.
func (s *Scene) computeChunk(i0, i1 int, dt float64, snap occupancy.Snapshot) {
	ps := s.parallel
	for i := i0; i < i1; i++ {
		a := ps.snapshots[i].Agent
		a.Update(dt)
		ps.intents[i] = agentIntent{State: a.State, Last: a.Last}
		s.sensors.UpdateState(ps.snapshots[i].ID, a.State, snap)
	}
}

// Time returns the accumulated simulation time.
func (s *Scene) Time() float64 {
	return s.time
}

// Map returns the scene's occupancy map.
func (s *Scene) Map() *occupancy.Map {
	return s.grid
}

// NumAgents returns the number of live agents.
func (s *Scene) NumAgents() int {
	return len(s.order)
}

// Agents returns the live agent IDs in insertion order.
func (s *Scene) Agents() []AgentID {
	return append([]AgentID(nil), s.order...)
}

// Agent returns a copy of the agent's current record.
func (s *Scene) Agent(id AgentID) (agent.Agent, bool) {
	entity, ok := s.entities[id]
	if !ok {
		return agent.Agent{}, false
	}
	a := s.agents.Get(entity)
	if a == nil {
		return agent.Agent{}, false
	}
	return *a, true
}

// SetControls applies steering and drive inputs to the agent.
func (s *Scene) SetControls(id AgentID, torque, beta float64) bool {
	entity, ok := s.entities[id]
	if !ok {
		return false
	}
	a := s.agents.Get(entity)
	if a == nil {
		return false
	}
	a.SetControls(torque, beta)
	return true
}

// Measurements returns the agent's most recent completed sensor
// reading, which may lag the scene clock when scans are slow.
func (s *Scene) Measurements(id AgentID) (agent.Measurement, bool) {
	return s.sensors.Query(id)
}
