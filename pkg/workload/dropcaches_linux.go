package workload

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const dropCachesPath = "/proc/sys/vm/drop_caches"

// DropCaches flushes dirty pages and drops the page, dentry and inode caches
// of the local node. It requires root privileges.
func DropCaches() error {
	unix.Sync()
	if err := os.WriteFile(dropCachesPath, []byte("3\n"), 0); err != nil {
		return errors.Wrap(err, "failed to drop caches")
	}
	return nil
}
