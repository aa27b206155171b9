package spectral

import "sync"

// minParallel is the smallest range worth splitting across goroutines; the
// spectral kernels on typical LES grids sit below this and run inline.
const minParallel = 2048

// parallelFor splits [0,n) into contiguous chunks, one per worker. The split
// only affects scheduling of independent element ranges, never results.
func parallelFor(n, workers int, fn func(lo, hi int)) {
	if workers <= 1 || n < minParallel {
		fn(0, n)
		return
	}
	var (
		wg    sync.WaitGroup
		chunk = (n + workers - 1) / workers
	)
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
