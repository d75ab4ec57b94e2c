package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"quandlfetcher/internal/fetcher"
	"quandlfetcher/internal/projection"
)

// Job is one independent invocation in a batch.
type Job interface {
	// Key identifies the job in the output.
	Key() string
	// Run executes the job's pagination session to completion.
	Run(ctx context.Context) (*projection.Grid, error)
}

// Coordinator runs a batch of jobs concurrently and reports their results.
// Jobs share nothing but the transport; each owns its own session.
type Coordinator struct {
	jobs []Job
	out  io.Writer
}

// New creates a new Coordinator writing results to out
func New(jobs []Job, out io.Writer) *Coordinator {
	return &Coordinator{
		jobs: jobs,
		out:  out,
	}
}

// Run executes all jobs concurrently and writes one line per job as results
// arrive:
//   - Success: "KEY: <json grid>"
//   - Error: "KEY: ERROR - error message"
//
// The returned slice holds every result in arrival order.
func (c *Coordinator) Run(ctx context.Context) ([]fetcher.Result, error) {
	if len(c.jobs) == 0 {
		return nil, fmt.Errorf("no queries configured")
	}

	// Create a channel for collecting results
	resultChan := make(chan fetcher.Result, len(c.jobs))

	// WaitGroup to track all worker goroutines
	var wg sync.WaitGroup

	// Launch a goroutine for each job
	for _, j := range c.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()

			grid, err := job.Run(ctx)

			resultChan <- fetcher.Result{
				Key:   job.Key(),
				Grid:  grid,
				Error: err,
			}
		}(j)
	}

	// Close the result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect and print results as they arrive
	results := make([]fetcher.Result, 0, len(c.jobs))
	for result := range resultChan {
		results = append(results, result)
		if result.Error != nil {
			fmt.Fprintf(c.out, "%s: ERROR - %v\n", result.Key, result.Error)
			continue
		}
		b, err := json.Marshal(result.Grid)
		if err != nil {
			fmt.Fprintf(c.out, "%s: ERROR - %v\n", result.Key, err)
			continue
		}
		fmt.Fprintf(c.out, "%s: %s\n", result.Key, b)
	}

	return results, nil
}
