package scheduler

import (
	"sync"
)

// WorkerPool bounds how many scheduled task bodies run at once. Collection,
// persistence and retention all funnel through one pool so a stalled
// database cannot spawn an unbounded pile of goroutines.
type WorkerPool struct {
	workers   int
	jobQueue  chan func()
	waitGroup sync.WaitGroup

	closeOnce sync.Once
}

// NewWorkerPool starts a pool with the given number of workers. A
// non-positive count is treated as one worker.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}

	pool := &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers),
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()
	for job := range wp.jobQueue {
		job()
	}
}

// Submit enqueues a job, blocking when the queue is full.
func (wp *WorkerPool) Submit(job func()) {
	wp.jobQueue <- job
}

// TrySubmit enqueues a job unless the pool is saturated. Periodic ticks use
// this so a slow cycle drops the tick instead of queueing a backlog.
func (wp *WorkerPool) TrySubmit(job func()) bool {
	select {
	case wp.jobQueue <- job:
		return true
	default:
		return false
	}
}

// Shutdown closes the queue and waits for in-flight jobs to finish. Safe to
// call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.closeOnce.Do(func() {
		close(wp.jobQueue)
	})
	wp.waitGroup.Wait()
}
