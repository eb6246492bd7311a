// Package parallel provides bounded-concurrency helpers for mapping an
// operation over independent graphs. Individual graph operations are
// synchronous and single-threaded; only whole-graph batch work is
// parallelized, and callers must not share a derivation DAG between
// concurrent items.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls batch execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines to use.
	MinBatch   int  // Minimum batch size worth spawning workers for.
}

// DefaultConfig returns sensible defaults based on CPU count. Graph
// operations are coarse, so even small batches parallelize.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
		MinBatch:   2,
	}
}

// For executes f(i) for i in [0, n), distributing items over workers.
// Falls back to sequential execution when parallelism is disabled or the
// batch is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinBatch || cfg.NumWorkers < 2 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	workers := cfg.NumWorkers
	if workers > n {
		workers = n
	}
	next := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range next {
				f(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		next <- i
	}
	close(next)
	wg.Wait()
}

// Map applies fn to every item and collects the results in order.
// Typical use is scoring a batch of lattices:
//
//	scores := parallel.Map(lattices, func(g *graph.Graph) *graph.Graph {
//	    return functions.ForwardScore(g)
//	}, parallel.DefaultConfig())
func Map[T, R any](items []T, fn func(T) R, cfg Config) []R {
	results := make([]R, len(items))
	For(len(items), func(i int) {
		results[i] = fn(items[i])
	}, cfg)
	return results
}
