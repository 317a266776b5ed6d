// Package dispatcher provides the bucketed fan-out-and-join primitive used
// everywhere the validator pipeline parallelizes work across a
// transaction's or block's inputs: populate's prevout lookups and
// validate's script verification both fan out across dispatcher buckets
// and join through a single completion.
package dispatcher

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Dispatcher hands out a fixed bucket count used to partition
// per-input work: bucket b processes positions b, b+size, b+2*size, ...
type Dispatcher struct {
	size int
}

// New creates a dispatcher with the given bucket count. A size of 0 (or
// less) resolves to GOMAXPROCS, matching Settings.Cores == 0 meaning "all
// available".
func New(size int) *Dispatcher {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Dispatcher{size: size}
}

// Size returns the bucket count.
func (d *Dispatcher) Size() int {
	return d.size
}

// Fan runs fn once per bucket in [0, Size()), and joins on the result: the
// first bucket to return a non-nil error cancels the others via ctx and
// that error is returned. This is the "synchronizer" of spec.md §5 — a
// join-count barrier that arms its single terminal result as soon as every
// bucket has completed, or as soon as one fails.
func (d *Dispatcher) Fan(ctx context.Context, fn func(ctx context.Context, bucket int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for bucket := 0; bucket < d.size; bucket++ {
		bucket := bucket
		g.Go(func() error {
			return fn(gctx, bucket)
		})
	}
	return g.Wait()
}

// Positions returns the indices in [0, n) assigned to the given bucket:
// bucket, bucket+size, bucket+2*size, ...
func (d *Dispatcher) Positions(bucket, n int) []int {
	var out []int
	for i := bucket; i < n; i += d.size {
		out = append(out, i)
	}
	return out
}
