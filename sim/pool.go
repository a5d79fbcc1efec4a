package sim

import (
	"runtime"
	"sync"
)

// WorkerPool runs sensing jobs on a fixed set of persistent goroutines.
// Submit never blocks the caller: when every worker is busy and the
// queue is full the job runs on a fresh goroutine instead, so a slow
// sensor can delay its own next reading but never the simulation tick.
type WorkerPool struct {
	tasks chan func()
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewWorkerPool starts a pool with the given worker count, defaulting
// to GOMAXPROCS when workers is not positive.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{
		tasks: make(chan func(), workers*2),
		stop:  make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
		}
	}
}

// Submit queues the task, spilling onto a new goroutine when the queue
// is full.
func (p *WorkerPool) Submit(task func()) {
	select {
	case p.tasks <- task:
	default:
		go task()
	}
}

// Close signals the workers to exit and waits for them. Queued tasks
// that no worker picked up before the stop signal are dropped.
func (p *WorkerPool) Close() {
	close(p.stop)
	p.wg.Wait()
	close(p.tasks)
}
