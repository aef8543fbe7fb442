package threading

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrProcessTimeout returned by WorkerPool to indicate that there no free goroutines during some period of time.
	ErrProcessTimeout = errors.New("process error: timed out")

	// ErrPoolStopped is returned when submitting to a stopped WorkerPool.
	ErrPoolStopped = errors.New("process error: worker pool stopped")
)

type (
	WorkerPool struct {
		workers chan struct{}
		tasks   chan *TaskEntry

		mu      sync.RWMutex
		stopped bool
	}
)

func NewWorkerPool(maxWorkerNum int, bufferSize int, spawnWorkerNum int) *WorkerPool {
	if spawnWorkerNum <= 0 && bufferSize > 0 {
		panic("dead queue configuration detected")
	}
	if spawnWorkerNum > maxWorkerNum {
		panic("spawn worker num larger than max worker num")
	}

	wp := &WorkerPool{
		workers: make(chan struct{}, maxWorkerNum),
		tasks:   make(chan *TaskEntry, bufferSize),
	}

	for range spawnWorkerNum {
		wp.workers <- struct{}{}
		NewWorker(strconv.Itoa(len(wp.workers)), wp.tasks, nil)
	}

	return wp
}

func (wp *WorkerPool) Submit(task Task) (TaskCancelFunc, error) {
	return wp.process(task, nil)
}

func (wp *WorkerPool) SubmitTimeout(timeout time.Duration, task Task) (TaskCancelFunc, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return wp.process(task, timer.C)
}

// Stop lets running workers drain the buffered tasks and exit.
// Submitting after Stop returns ErrPoolStopped.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return
	}
	wp.stopped = true
	close(wp.tasks)
}

func (wp *WorkerPool) process(task Task, timeout <-chan time.Time) (TaskCancelFunc, error) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return nil, ErrPoolStopped
	}

	entry := NewTaskEntry(task)

	select {
	case <-timeout:
		return nil, ErrProcessTimeout

	case wp.tasks <- entry:
		return entry.Cancel, nil

	case wp.workers <- struct{}{}:
		NewWorker(strconv.Itoa(len(wp.workers)), wp.tasks, entry)
		return entry.Cancel, nil
	}
}
