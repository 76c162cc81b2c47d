package backtester

import (
	"runtime"
	"sync"
)

// Executor runs a batch of independent tasks and blocks until all complete.
// Two implementations exist: an inline one for single-CPU or single-task
// batches and a pooled one for everything else. Callers go through
// NewExecutor, which probes available parallelism, so the choice is never
// hardcoded.
type Executor interface {
	Execute(tasks []func())
	Name() string
}

// NewExecutor selects an executor for taskCount tasks. The pool is sized to
// min(maxWorkers, NumCPU-1, taskCount) with a floor of one worker;
// maxWorkers <= 0 means no cap.
func NewExecutor(maxWorkers, taskCount int) Executor {
	workers := runtime.NumCPU() - 1
	if maxWorkers > 0 && maxWorkers < workers {
		workers = maxWorkers
	}
	if taskCount < workers {
		workers = taskCount
	}
	if workers <= 1 {
		return inlineExecutor{}
	}
	return &pooledExecutor{workers: workers}
}

// inlineExecutor runs tasks sequentially on the calling goroutine.
type inlineExecutor struct{}

func (inlineExecutor) Execute(tasks []func()) {
	for _, task := range tasks {
		task()
	}
}

func (inlineExecutor) Name() string { return "inline" }

// pooledExecutor fans tasks out over a fixed worker pool and joins on all of
// them. There is no inter-task communication; each task writes only to its
// own result slot.
type pooledExecutor struct {
	workers int
}

func (p *pooledExecutor) Execute(tasks []func()) {
	work := make(chan func())
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range work {
				task()
			}
		}()
	}
	for _, task := range tasks {
		work <- task
	}
	close(work)
	wg.Wait()
}

func (p *pooledExecutor) Name() string { return "pooled" }
