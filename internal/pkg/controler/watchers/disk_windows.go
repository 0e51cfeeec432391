//go:build windows

package watchers

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// CheckDiskUsage fails when the volume holding path has less than
// minSpaceRequired megabytes available.
func CheckDiskUsage(path string, minSpaceRequired uint64) error {
	var freeBytesAvailable uint64
	var totalNumberOfBytes uint64
	var totalNumberOfFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(windows.StringToUTF16Ptr(path), &freeBytesAvailable, &totalNumberOfBytes, &totalNumberOfFreeBytes); err != nil {
		return fmt.Errorf("retrieving disk stats: %w", err)
	}
	return checkThreshold(freeBytesAvailable, minSpaceRequired)
}
