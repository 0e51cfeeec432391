// Package watchers checks the host resources a run depends on.
package watchers

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// ErrLowDiskSpace is returned when the output filesystem is nearly full
var ErrLowDiskSpace = errors.New("low disk space")

// checkThreshold fails when free is below minSpaceRequired megabytes.
func checkThreshold(free uint64, minSpaceRequired uint64) error {
	threshold := minSpaceRequired * 1024 * 1024

	if free < threshold {
		return fmt.Errorf("%w: free=%s, threshold=%s", ErrLowDiskSpace, humanize.IBytes(free), humanize.IBytes(threshold))
	}

	return nil
}
