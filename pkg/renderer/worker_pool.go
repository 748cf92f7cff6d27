package renderer

import (
	"context"
	"runtime"
	"sync"
)

// Task is a unit of work whose writes do not overlap any other task's
type Task struct {
	TaskID int // For deterministic ordering
	Run    func()
}

// TaskResult reports a finished task
type TaskResult struct {
	TaskID  int
	Skipped bool // Context was cancelled before the task started
}

// WorkerPool runs a known batch of tasks in parallel and waits for all of
// them. There is no long-lived queue: every call fans out and joins.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a worker pool with the specified number of workers.
// A non-positive count uses one worker per CPU.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// Run executes every task and returns once all have finished
func (wp *WorkerPool) Run(tasks []Task) {
	_ = wp.Execute(context.Background(), tasks, nil)
}

// Execute runs tasks in submission order across the workers. Tasks not yet
// started when ctx is cancelled are skipped. onDone, if set, is called from
// the calling goroutine for each task as it finishes, so callbacks never run
// concurrently. Execute returns after every worker has exited, with the
// context error if any task was skipped.
func (wp *WorkerPool) Execute(ctx context.Context, tasks []Task, onDone func(TaskResult)) error {
	if len(tasks) == 0 {
		return nil
	}

	taskQueue := make(chan Task, len(tasks))
	resultQueue := make(chan TaskResult, len(tasks))
	for _, task := range tasks {
		taskQueue <- task
	}
	close(taskQueue)

	var wg sync.WaitGroup
	for i := 0; i < min(wp.numWorkers, len(tasks)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskQueue {
				if ctx.Err() != nil {
					resultQueue <- TaskResult{TaskID: task.TaskID, Skipped: true}
					continue
				}
				task.Run()
				resultQueue <- TaskResult{TaskID: task.TaskID}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultQueue)
	}()

	skipped := false
	for result := range resultQueue {
		skipped = skipped || result.Skipped
		if onDone != nil {
			onDone(result)
		}
	}

	if skipped {
		return ctx.Err()
	}
	return nil
}
