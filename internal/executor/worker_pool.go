package executor

import (
	"sync"
)

// WorkerPool runs venue dispatch tasks with bounded parallelism. One task
// is one venue's slice of a plan, so per-venue ordering is preserved by
// construction.
type WorkerPool struct {
	size     int
	taskChan chan func()
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWorkerPool creates a pool of the given size.
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 4
	}
	return &WorkerPool{
		size:     size,
		taskChan: make(chan func(), size*2),
		stopChan: make(chan struct{}),
	}
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop drains the workers and waits for in-flight tasks.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

// Submit enqueues a task. Returns false if the pool is stopping, in which
// case the task never runs.
func (p *WorkerPool) Submit(task func()) bool {
	select {
	case p.taskChan <- task:
		return true
	case <-p.stopChan:
		return false
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.taskChan:
			if task != nil {
				task()
			}
		case <-p.stopChan:
			return
		}
	}
}
