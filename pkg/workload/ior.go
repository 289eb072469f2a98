package workload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"
)

// IOROptions configures the bandwidth workload.
type IOROptions struct {
	// Dir holds the files of the workload
	Dir string

	// Shared makes every process write interleaved records of a single
	// shared file instead of a file per process
	Shared bool

	// TransferSize is the size of a single transfer
	TransferSize int64

	// Transfers is the maximum number of transfers per process
	Transfers int64

	// Stonewall stops writing after this duration, zero disables it
	Stonewall time.Duration

	// DryRun skips all I/O
	DryRun bool

	Clock clock.PassiveClock
}

func (o IOROptions) validate() error {
	if o.Dir == "" {
		return errors.New("directory is required")
	}
	if o.TransferSize <= 0 {
		return errors.Errorf("transfer size must be positive, got %d", o.TransferSize)
	}
	if o.Transfers < 0 {
		return errors.Errorf("transfer count must not be negative, got %d", o.Transfers)
	}
	return nil
}

// IORPath returns the file a rank writes to.
func IORPath(o IOROptions, rank int) string {
	if o.Shared {
		return filepath.Join(o.Dir, "IOR_file")
	}
	return filepath.Join(o.Dir, fmt.Sprintf("ior_file_easy.%08d", rank))
}

func iorOffset(o IOROptions, rank, size int, transfer int64) int64 {
	if o.Shared {
		return (transfer*int64(size) + int64(rank)) * o.TransferSize
	}
	return transfer * o.TransferSize
}

// IORWrite writes transfers until the transfer count or the stonewall is
// reached. It returns the number of transfers of this process in Ops.
func IORWrite(ctx context.Context, c Collective, o IOROptions) (*Result, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.DryRun {
		return &Result{}, nil
	}
	clk := clockOrDefault(o.Clock)
	rank, size := c.Rank(), c.Size()

	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", o.Dir)
	}
	path := IORPath(o, rank)
	flags := os.O_CREATE | os.O_WRONLY
	if !o.Shared {
		flags |= os.O_TRUNC
	}

	buf := make([]byte, o.TransferSize)
	for i := range buf {
		buf[i] = byte(rank + i)
	}

	start := clk.Now()
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	var n int64
	for n < o.Transfers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := f.WriteAt(buf, iorOffset(o, rank, size, n)); err != nil {
			return nil, errors.Wrapf(err, "failed to write transfer %d of %s", n, path)
		}
		n++
		if stonewalled(clk, start, o.Stonewall) {
			break
		}
	}

	target, err := wearOut(ctx, c, n)
	if err != nil {
		return nil, err
	}
	for ; n < target; n++ {
		if _, err := f.WriteAt(buf, iorOffset(o, rank, size, n)); err != nil {
			return nil, errors.Wrapf(err, "failed to write transfer %d of %s", n, path)
		}
	}

	if err := f.Sync(); err != nil {
		return nil, errors.Wrapf(err, "failed to sync %s", path)
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrapf(err, "failed to close %s", path)
	}
	return reduce(ctx, c, n, n*o.TransferSize, clk.Since(start))
}

// IORRead reads back the given number of transfers written by IORWrite.
func IORRead(ctx context.Context, c Collective, o IOROptions, transfers int64) (*Result, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.DryRun {
		return &Result{}, nil
	}
	clk := clockOrDefault(o.Clock)
	rank, size := c.Rank(), c.Size()

	start := clk.Now()
	if transfers > 0 {
		path := IORPath(o, rank)
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s", path)
		}
		defer f.Close()

		buf := make([]byte, o.TransferSize)
		for n := int64(0); n < transfers; n++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, err := f.ReadAt(buf, iorOffset(o, rank, size, n)); err != nil && err != io.EOF {
				return nil, errors.Wrapf(err, "failed to read transfer %d of %s", n, path)
			}
		}
	}
	return reduce(ctx, c, transfers, transfers*o.TransferSize, clk.Since(start))
}
