package sim

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/scout/agent"
	"github.com/pthm-cable/scout/occupancy"
)

// parallelThreshold is the minimum agent count to use parallel
// integration. Below this, single-threaded is faster due to goroutine
// overhead.
const parallelThreshold = 64

// agentSnapshot captures read-only agent state for parallel processing.
type agentSnapshot struct {
	Entity ecs.Entity
	ID     AgentID
	Agent  agent.Agent
}

// agentIntent captures the integrated state to apply after the
// parallel phase.
type agentIntent struct {
	State agent.State
	Last  agent.State
}

// workChunk represents a range of snapshots for a worker to process.
type workChunk struct {
	start, end int
	dt         float64
	snap       occupancy.Snapshot
}

// parallelState holds resources for parallel kinematics computation.
type parallelState struct {
	snapshots  []agentSnapshot
	intents    []agentIntent
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelState() *parallelState {
	return &parallelState{
		numWorkers: runtime.GOMAXPROCS(0),
		snapshots:  make([]agentSnapshot, 0, 256),
		intents:    make([]agentIntent, 0, 256),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Scene) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *parallelState) worker(s *Scene) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, chunk.dt, chunk.snap)
			p.doneChan <- struct{}{}
		}
	}
}

// computeParallel dispatches snapshot ranges to the worker pool and
// waits for completion.
func (s *Scene) computeParallel(n int, dt float64, snap occupancy.Snapshot) {
	if !s.parallel.running {
		s.parallel.startWorkers(s)
	}

	numWorkers := s.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	dispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		s.parallel.workChan <- workChunk{start: start, end: end, dt: dt, snap: snap}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-s.parallel.doneChan
	}
}
