package sim

import (
	"sync"

	"github.com/pthm-cable/scout/agent"
	"github.com/pthm-cable/scout/occupancy"
)

// Sensor produces a measurement from an agent pose and a scene
// snapshot, or refuses (ok false) when the pose does not admit one.
// agent.LidarHandle is the production implementation.
type Sensor interface {
	Sense(st agent.State, snap occupancy.Snapshot) (agent.Measurement, bool)
}

// SensorLoop schedules at most one in-flight sensing job per agent.
// Each tick the simulation offers the agent's fresh state; if the
// previous job is still running the offer is dropped and the cached
// measurement keeps serving queries, so sensing lags rather than
// stalls when scans take longer than a tick.
type SensorLoop struct {
	pool *WorkerPool

	mu      sync.RWMutex
	workers map[AgentID]*sensorWorker
}

// NewSensorLoop returns a loop dispatching onto the given pool.
func NewSensorLoop(pool *WorkerPool) *SensorLoop {
	return &SensorLoop{
		pool:    pool,
		workers: make(map[AgentID]*sensorWorker),
	}
}

// Contains reports whether the agent is registered.
func (l *SensorLoop) Contains(id AgentID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.workers[id]
	return ok
}

// Insert registers a sensor for the agent. Re-inserting an agent
// replaces its sensor and drops any cached measurement.
func (l *SensorLoop) Insert(id AgentID, sensor Sensor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.workers[id] = &sensorWorker{sensor: sensor}
}

// Remove unregisters the agent. An in-flight job finishes against its
// private channel and is discarded.
func (l *SensorLoop) Remove(id AgentID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.workers, id)
}

// UpdateState offers a fresh agent state to the agent's sensor and
// reports whether the agent is registered. It never blocks: if a job
// is already in flight the offer is a no-op.
func (l *SensorLoop) UpdateState(id AgentID, st agent.State, snap occupancy.Snapshot) bool {
	l.mu.RLock()
	w, ok := l.workers[id]
	l.mu.RUnlock()
	if !ok {
		return false
	}
	w.update(l.pool, st, snap)
	return true
}

// Query returns the agent's most recent completed measurement. ok is
// false when the agent is unknown or no scan has completed yet.
func (l *SensorLoop) Query(id AgentID) (agent.Measurement, bool) {
	l.mu.RLock()
	w, ok := l.workers[id]
	l.mu.RUnlock()
	if !ok {
		return agent.Measurement{}, false
	}
	return w.query()
}

// sensorWorker tracks one agent's sensing pipeline: the cached last
// measurement and the single-slot channel the in-flight job reports
// through.
type sensorWorker struct {
	sensor Sensor

	mu      sync.Mutex
	pending chan agent.Measurement
	last    *agent.Measurement
}

// update polls the in-flight job and starts a new one when the slot is
// free. A non-blocking receive distinguishes the three cases: still
// running (drop the offer), delivered (cache the result, start a new
// job), and finished without a result (start a new job, keep the old
// cache).
func (w *sensorWorker) update(pool *WorkerPool, st agent.State, snap occupancy.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		select {
		case m, ok := <-w.pending:
			if ok {
				w.last = &m
			}
		default:
			return
		}
	}

	ch := make(chan agent.Measurement, 1)
	w.pending = ch
	sensor := w.sensor
	pool.Submit(func() {
		if m, ok := sensor.Sense(st, snap); ok {
			ch <- m
		}
		close(ch)
	})
}

func (w *sensorWorker) query() (agent.Measurement, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Harvest a completed job so queries between ticks see fresh data.
	if w.pending != nil {
		select {
		case m, ok := <-w.pending:
			if ok {
				w.last = &m
			}
			w.pending = nil
		default:
		}
	}

	if w.last == nil {
		return agent.Measurement{}, false
	}
	return *w.last, true
}
