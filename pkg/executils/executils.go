package executils

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
)

// ParallelExec calls fn for every value. Below parallelThreshold values are
// visited sequentially in order, otherwise workers claim chunks of step values.
func ParallelExec[T any](vals []T, parallelThreshold, step uint64, fn func(T)) {
	ParallelCount(vals, parallelThreshold, step, func(v T) bool {
		fn(v)
		return true
	})
}

// ParallelCount is ParallelExec returning how many calls of fn reported true.
func ParallelCount[T any](vals []T, parallelThreshold, step uint64, fn func(T) bool) uint64 {
	if step == 0 {
		step = 1
	}

	if uint64(len(vals)) < parallelThreshold {
		var n uint64
		for _, v := range vals {
			if fn(v) {
				n++
			}
		}
		return n
	}

	start := atomic.NewUint64(0)
	hits := atomic.NewUint64(0)
	end := uint64(len(vals))

	workers := runtime.NumCPU()
	if chunks := int((end + step - 1) / step); chunks < workers {
		workers = chunks
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for p := 0; p < workers; p++ {
		go func() {
			defer wg.Done()
			for {
				n := start.Add(step)
				if n >= end+step {
					return
				}

				for i := n - step; i < n && i < end; i++ {
					if fn(vals[i]) {
						hits.Inc()
					}
				}
			}
		}()
	}
	wg.Wait()

	return hits.Load()
}
