//go:build !linux
// +build !linux

package workload

import (
	"runtime"

	"github.com/pkg/errors"
)

// DropCaches is only supported on linux.
func DropCaches() error {
	return errors.Errorf("dropping caches is not supported on %s", runtime.GOOS)
}
