// Package workerpool provides bounded fan-out for a single unit of
// work: a fixed number of workers draining a closed job channel, not a
// persistent dispatcher goroutine.
package workerpool

import (
	"context"
	"sync"
)

// Job is one unit of fan-out work.
type Job func(ctx context.Context) error

// Run executes jobs across at most maxWorkers goroutines and returns the
// first non-nil error encountered, if any. It always waits for every job
// to finish running before returning, even after an error, so a caller
// can rely on side effects from completed jobs (e.g. committed offsets)
// being visible. Jobs not yet handed to a worker when ctx is canceled
// are not run.
func Run(ctx context.Context, maxWorkers int, jobs []Job) error {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if len(jobs) == 0 {
		return nil
	}
	if maxWorkers > len(jobs) {
		maxWorkers = len(jobs)
	}

	queue := make(chan Job)
	errs := make(chan error, len(jobs))

	var wg sync.WaitGroup
	wg.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go func() {
			defer wg.Done()
			for job := range queue {
				errs <- job(ctx)
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, j := range jobs {
			select {
			case queue <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(errs)

	var first error
	for err := range errs {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
