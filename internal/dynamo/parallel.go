package dynamo

import "golang.org/x/sync/errgroup"

// ParallelFor runs fn over disjoint chunks of [0, n) using at most workers
// goroutines. Chunks smaller than minChunk are not split further. The
// first error returned by any chunk is reported after all chunks finish.
func ParallelFor(n, minChunk, workers int, fn func(start, end int) error) error {
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || workers <= 1 {
		return fn(0, n)
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		g.Go(func() error {
			return fn(start, end)
		})
	}

	return g.Wait()
}
