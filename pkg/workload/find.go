package workload

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"
)

// FindOptions configures the namespace traversal workload. A file matches
// when it satisfies every criterion that is set.
type FindOptions struct {
	// Dir is the root of the traversal
	Dir string

	// Newer only matches files modified after the file at this path
	Newer string

	// Name only matches files whose name contains this string
	Name string

	// Size only matches files of exactly this size, negative disables it
	Size int64

	// DryRun skips all I/O
	DryRun bool

	Clock clock.PassiveClock
}

// FindResult is the outcome of Find.
type FindResult struct {
	Result

	// Matches is the number of files matched by this process
	Matches int64
}

// Find walks the tree below Dir. Every process walks the whole namespace
// and checks every size-th file, offset by its rank.
func Find(ctx context.Context, c Collective, o FindOptions) (*FindResult, error) {
	if o.Dir == "" {
		return nil, errors.New("directory is required")
	}
	if o.DryRun {
		return &FindResult{}, nil
	}
	clk := clockOrDefault(o.Clock)
	rank, size := c.Rank(), c.Size()

	var newer time.Time
	if o.Newer != "" {
		info, err := os.Stat(o.Newer)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat reference file %s", o.Newer)
		}
		newer = info.ModTime()
	}

	start := clk.Now()
	var idx, scanned, matches int64
	err := filepath.WalkDir(o.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		i := idx
		idx++
		if i%int64(size) != int64(rank) {
			return nil
		}
		scanned++

		if o.Name != "" && !strings.Contains(d.Name(), o.Name) {
			return nil
		}
		if o.Size < 0 && newer.IsZero() {
			matches++
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if o.Size >= 0 && info.Size() != o.Size {
			return nil
		}
		if !newer.IsZero() && !info.ModTime().After(newer) {
			return nil
		}
		matches++
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to traverse %s", o.Dir)
	}

	res, err := reduce(ctx, c, scanned, 0, clk.Since(start))
	if err != nil {
		return nil, err
	}
	return &FindResult{Result: *res, Matches: matches}, nil
}

// Touch creates the file at path or updates its modification time.
func Touch(path string, t time.Time) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", path)
	}
	return errors.Wrapf(os.Chtimes(path, t, t), "failed to set times of %s", path)
}
