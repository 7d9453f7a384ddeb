// Package parallel splits index ranges across goroutines for the host-side
// reference kernels.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how work is split.
type Config struct {
	Enabled    bool
	NumWorkers int
	// MinChunkSize is the smallest range handed to one goroutine.
	MinChunkSize int
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 16,
	}
}

// Sequential runs everything on the calling goroutine.
func Sequential() Config {
	return Config{}
}

// Chunks calls f once per contiguous sub-range of [0, n). Ranges are
// disjoint and cover [0, n) exactly; f may run concurrently.
func Chunks(n int, cfg Config, f func(start, end int)) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers < 2 || n <= cfg.MinChunkSize {
		f(0, n)
		return
	}
	chunk := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}

// For calls f(i) for every i in [0, n).
func For(n int, cfg Config, f func(i int)) {
	Chunks(n, cfg, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	})
}

// ForGrid calls f(r, c) for every cell of a rows x cols grid.
func ForGrid(rows, cols int, cfg Config, f func(r, c int)) {
	if cols <= 0 {
		return
	}
	For(rows*cols, cfg, func(k int) {
		f(k/cols, k%cols)
	})
}
