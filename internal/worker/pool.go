// Package worker provides a parallel boundary processing pool for batch runs.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/raynbowy23/Axon-City-sub002/internal/fetch"
	"github.com/raynbowy23/Axon-City-sub002/internal/pipeline"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// Runner is the interface for processing one boundary.
// This matches the signature of pipeline.Pipeline.Compute.
type Runner interface {
	Compute(ctx context.Context, ring orb.Ring, layers []types.LayerSpec, onProgress fetch.ProgressFunc) ([]pipeline.LayerResult, error)
}

// Task represents a single boundary to fetch and clip.
type Task struct {
	Name   string
	Ring   orb.Ring
	Layers []types.LayerSpec
}

// Result represents the outcome of one boundary task.
type Result struct {
	Task    Task
	Layers  []pipeline.LayerResult
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Runner     Runner
	OnProgress ProgressFunc
}

// Pool runs boundary tasks in parallel. Layers within one boundary are still
// fetched sequentially by the pipeline; only boundaries run concurrently.
type Pool struct {
	workers    int
	runner     Runner
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		runner:     cfg.Runner,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and returns results.
// The function blocks until all tasks complete or the context is cancelled.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
			}
		}
		close(taskCh)
	}()

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		for result := range resultCh {
			results = append(results, result)

			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(tasks), f)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{
				Task: task,
				Err:  ctx.Err(),
			}
			continue
		default:
		}

		start := time.Now()
		layers, err := p.runner.Compute(ctx, task.Ring, task.Layers, nil)
		elapsed := time.Since(start)

		results <- Result{
			Task:    task,
			Layers:  layers,
			Err:     err,
			Elapsed: elapsed,
		}
	}
}
