// Package workload implements the I/O workloads the benchmark phases wrap:
// bandwidth (ior), metadata (mdtest) and namespace traversal (find). Every
// workload is collective: all ranks call it, and the returned result is the
// reduction over the collective, identical on every rank.
package workload

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/Azure/azure-io500/pkg/coordination"
)

const (
	// GiB is the bandwidth unit
	GiB = 1 << 30
	// kIOPS is the metadata rate unit
	kIOPS = 1000
)

// Collective is the part of the coordination provider the workloads use.
type Collective interface {
	Rank() int
	Size() int
	Barrier(ctx context.Context) error
	AllReduce(ctx context.Context, value float64, op coordination.ReduceOp) (float64, error)
}

// Result is the outcome of a workload.
type Result struct {
	// Ops is the number of transfers, files or entries handled by this process
	Ops int64
	// Bytes is the number of bytes moved by this process
	Bytes int64

	// TotalOps is the sum of Ops over the collective
	TotalOps float64
	// TotalBytes is the sum of Bytes over the collective
	TotalBytes float64
	// Elapsed is the longest runtime of any process
	Elapsed time.Duration
}

// Bandwidth returns the collective bandwidth in GiB/s.
func (r *Result) Bandwidth() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return r.TotalBytes / r.Elapsed.Seconds() / GiB
}

// Rate returns the collective operation rate in kIOPS.
func (r *Result) Rate() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return r.TotalOps / r.Elapsed.Seconds() / kIOPS
}

// reduce completes a local result with the collective totals.
func reduce(ctx context.Context, c Collective, ops, bytes int64, elapsed time.Duration) (*Result, error) {
	totalOps, err := c.AllReduce(ctx, float64(ops), coordination.Sum)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reduce operation count")
	}
	totalBytes, err := c.AllReduce(ctx, float64(bytes), coordination.Sum)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reduce byte count")
	}
	maxElapsed, err := c.AllReduce(ctx, elapsed.Seconds(), coordination.Max)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reduce runtime")
	}
	return &Result{
		Ops:        ops,
		Bytes:      bytes,
		TotalOps:   totalOps,
		TotalBytes: totalBytes,
		Elapsed:    time.Duration(maxElapsed * float64(time.Second)),
	}, nil
}

// wearOut returns the largest count of any process. Processes that stopped
// early at the stonewall catch up to it so every process did the same work.
func wearOut(ctx context.Context, c Collective, count int64) (int64, error) {
	max, err := c.AllReduce(ctx, float64(count), coordination.Max)
	if err != nil {
		return 0, errors.Wrap(err, "failed to agree on the stonewall wear-out count")
	}
	return int64(max), nil
}

// stonewalled returns true once a stonewalled loop must stop.
func stonewalled(c clock.PassiveClock, start time.Time, stonewall time.Duration) bool {
	return stonewall > 0 && c.Since(start) >= stonewall
}

func clockOrDefault(c clock.PassiveClock) clock.PassiveClock {
	if c == nil {
		return clock.RealClock{}
	}
	return c
}
