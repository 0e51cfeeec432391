//go:build !windows

package watchers

import (
	"fmt"
	"syscall"
)

// CheckDiskUsage fails when the filesystem holding path has less than
// minSpaceRequired megabytes available.
func CheckDiskUsage(path string, minSpaceRequired uint64) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return fmt.Errorf("retrieving disk stats: %w", err)
	}

	free := stat.Bavail * uint64(stat.Bsize)

	return checkThreshold(free, minSpaceRequired)
}
