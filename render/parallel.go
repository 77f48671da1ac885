package render

import (
	"runtime"
	"sync"
)

// parallelRows splits the row range [0,height) into contiguous bands, one
// per available CPU, and runs fn on each band concurrently. Bands never
// overlap so fn may write its rows without synchronization.
func parallelRows(height int, fn func(y0, y1 int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > height {
		workers = height
	}
	if workers <= 1 {
		fn(0, height)
		return
	}
	chunk := (height + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < height; start += chunk {
		end := start + chunk
		if end > height {
			end = height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(start, end)
	}
	wg.Wait()
}
