// Package batch runs one decompilation job per input file across a
// bounded pool of worker goroutines the way the go-vslc compiler's
// Optimise pass fans work out across worker threads — a fixed-size pool
// draining a shared job list, rather than one goroutine per file. Each
// worker writes only the result slot of the job index it received, so
// collection needs no mutex.
package batch

import (
	"context"
	"runtime"
	"sort"
	"sync"
)

// Job is one unit of batch work: an input path and the function that
// processes it, returning an arbitrary result or an error.
type Job struct {
	Path string
	Run  func(ctx context.Context, path string) (interface{}, error)
}

// Result pairs a Job's path with its outcome.
type Result struct {
	Path  string
	Value interface{}
	Err   error
}

// Options controls the pool.
type Options struct {
	// Workers bounds concurrency. Zero or negative selects
	// runtime.NumCPU().
	Workers int
}

// Run executes jobs across a bounded worker pool and returns results in
// the same order jobs were submitted, regardless of completion order.
// Run does not return an error itself — per-job failures are carried in
// each Result.Err so one bad file never aborts the batch, mirroring the
// error-accumulation discipline used everywhere else in this decoder.
func Run(ctx context.Context, jobs []Job, opts Options) []Result {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		return nil
	}

	results := make([]Result, len(jobs))
	indices := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				j := jobs[i]
				v, err := j.Run(ctx, j.Path)
				results[i] = Result{Path: j.Path, Value: v, Err: err}
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := range jobs {
			select {
			case indices <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return results
}

// SortByPath orders results lexically by input path, for stable report
// output independent of completion order.
func SortByPath(results []Result) {
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
}
