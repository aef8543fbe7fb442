package threading

import (
	"sync/atomic"
)

type (
	// Task is a unit of work run by a Worker.
	Task interface {
		GetID() string
		Process() error
	}

	// BaseTask is the basic structure for a Task interface.
	BaseTask struct {
		ID        string
		done      atomic.Bool
		cancelled atomic.Bool
	}

	// TaskEntry tracks the lifecycle of a submitted Task.
	TaskEntry struct {
		BaseTask
		task Task
	}

	// TaskCancelFunc is used to cancel the execution of a task. Return false if task has been done.
	TaskCancelFunc func() bool
)

func NewTaskEntry(task Task) *TaskEntry {
	return &TaskEntry{
		BaseTask: BaseTask{ID: task.GetID()},
		task:     task,
	}
}

// claim marks the entry as taken by a worker. It fails if the entry was canceled first.
func (te *TaskEntry) claim() bool {
	return te.done.CompareAndSwap(false, true)
}

func (bt *BaseTask) GetID() string      { return bt.ID }
func (bt *BaseTask) Complete()          { bt.done.Store(true) }
func (bt *BaseTask) IsCompleted() bool  { return bt.done.Load() }
func (bt *BaseTask) IsCanceled() bool   { return bt.cancelled.Load() }
func (bt *BaseTask) IsIgnoreable() bool { return bt.cancelled.Load() || bt.done.Load() }
func (bt *BaseTask) Cancel() bool {
	if bt.done.CompareAndSwap(false, true) {
		bt.cancelled.Store(true)
		return true
	}
	return false
}
