package stats

import "errors"

var (
	// ErrStatsNotInitialized is returned by exports attempted before Init
	ErrStatsNotInitialized = errors.New("stats not initialized")
	// ErrStatsAlreadyInitialized is returned by a second Init in the same process
	ErrStatsAlreadyInitialized = errors.New("stats already initialized")
	// ErrNoMetricsPath is returned when the textfile export has no destination
	ErrNoMetricsPath = errors.New("no metrics file path")
)
