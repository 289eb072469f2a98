package workload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"
)

// MDTestOptions configures the metadata workload.
type MDTestOptions struct {
	// Dir holds the files of the workload
	Dir string

	// Shared puts the files of all processes in a single directory instead
	// of a directory per process
	Shared bool

	// FileSize is the number of bytes written to and read from each file
	FileSize int64

	// Files is the maximum number of files per process
	Files int64

	// Stonewall stops creating files after this duration, zero disables it
	Stonewall time.Duration

	// DryRun skips all I/O
	DryRun bool

	Clock clock.PassiveClock
}

func (o MDTestOptions) validate() error {
	if o.Dir == "" {
		return errors.New("directory is required")
	}
	if o.FileSize < 0 {
		return errors.Errorf("file size must not be negative, got %d", o.FileSize)
	}
	if o.Files < 0 {
		return errors.Errorf("file count must not be negative, got %d", o.Files)
	}
	return nil
}

// MDTestDir returns the directory the files of a rank live in.
func MDTestDir(o MDTestOptions, rank int) string {
	if o.Shared {
		return o.Dir
	}
	return filepath.Join(o.Dir, fmt.Sprintf("mdtest_tree.%d", rank))
}

func mdtestFile(o MDTestOptions, rank int, i int64) string {
	return filepath.Join(MDTestDir(o, rank), fmt.Sprintf("file.mdtest.%d.%d", rank, i))
}

// MDTestWrite creates files until the file count or the stonewall is
// reached. It returns the number of files of this process in Ops.
func MDTestWrite(ctx context.Context, c Collective, o MDTestOptions) (*Result, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.DryRun {
		return &Result{}, nil
	}
	clk := clockOrDefault(o.Clock)
	rank := c.Rank()

	dir := MDTestDir(o, rank)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", dir)
	}
	buf := make([]byte, o.FileSize)

	start := clk.Now()
	var n int64
	for n < o.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := createFile(mdtestFile(o, rank, n), buf); err != nil {
			return nil, err
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
		if err := createFile(mdtestFile(o, rank, n), buf); err != nil {
			return nil, err
		}
	}
	return reduce(ctx, c, n, n*o.FileSize, clk.Since(start))
}

// MDTestStat stats the given number of files created by MDTestWrite.
func MDTestStat(ctx context.Context, c Collective, o MDTestOptions, files int64) (*Result, error) {
	return mdtestEach(ctx, c, o, files, func(path string) (int64, error) {
		info, err := os.Stat(path)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to stat %s", path)
		}
		if info.Size() != o.FileSize {
			return 0, errors.Errorf("%s has size %d, expected %d", path, info.Size(), o.FileSize)
		}
		return 0, nil
	})
}

// MDTestRead reads the given number of files created by MDTestWrite.
func MDTestRead(ctx context.Context, c Collective, o MDTestOptions, files int64) (*Result, error) {
	return mdtestEach(ctx, c, o, files, func(path string) (int64, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to read %s", path)
		}
		if int64(len(data)) != o.FileSize {
			return 0, errors.Errorf("read %d bytes from %s, expected %d", len(data), path, o.FileSize)
		}
		return int64(len(data)), nil
	})
}

// MDTestDelete removes the given number of files created by MDTestWrite and
// their directories.
func MDTestDelete(ctx context.Context, c Collective, o MDTestOptions, files int64) (*Result, error) {
	res, err := mdtestEach(ctx, c, o, files, func(path string) (int64, error) {
		if err := os.Remove(path); err != nil {
			return 0, errors.Wrapf(err, "failed to remove %s", path)
		}
		return 0, nil
	})
	if err != nil || o.DryRun {
		return res, err
	}

	if !o.Shared {
		if err := removeDir(MDTestDir(o, c.Rank())); err != nil {
			return nil, err
		}
	}
	// the top directory is empty only once every process is done
	if err := c.Barrier(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to synchronize before removing the directory")
	}
	if c.Rank() == 0 {
		if err := removeDir(o.Dir); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func mdtestEach(ctx context.Context, c Collective, o MDTestOptions, files int64, fn func(path string) (int64, error)) (*Result, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.DryRun {
		return &Result{}, nil
	}
	clk := clockOrDefault(o.Clock)
	rank := c.Rank()

	start := clk.Now()
	var bytes int64
	for i := int64(0); i < files; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := fn(mdtestFile(o, rank, i))
		if err != nil {
			return nil, err
		}
		bytes += n
	}
	return reduce(ctx, c, files, bytes, clk.Since(start))
}

func createFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if len(data) > 0 {
		if _, err := f.Write(data); err != nil {
			f.Close()
			return errors.Wrapf(err, "failed to write %s", path)
		}
	}
	return errors.Wrapf(f.Close(), "failed to close %s", path)
}

func removeDir(dir string) error {
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove directory %s", dir)
	}
	return nil
}
