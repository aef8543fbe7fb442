package threading

import "github.com/world-in-progress/surfpool/core/logger"

type Worker struct {
	ID string
}

func NewWorker(workerID string, taskChan chan *TaskEntry, firstEntry *TaskEntry) *Worker {

	w := &Worker{
		ID: workerID,
	}

	// start worker
	GoSafe(func() {

		if firstEntry != nil {
			w.run(firstEntry)
			firstEntry = nil // cut off reference
		}

		for entry := range taskChan {
			w.run(entry)
		}
	})
	return w
}

func (w *Worker) run(entry *TaskEntry) {
	if !entry.claim() {
		logger.Debug("task %s has been canceled or done", entry.GetID())
		return
	}

	RunSafe(func() {
		if err := entry.task.Process(); err != nil {
			logger.WithFields(logger.Fields{"worker": w.ID, "task": entry.GetID()}).
				Warnf("task failed: %v", err)
		}
	})
}
