package headless

import "errors"

var (
	// ErrLaunch is returned when Chromium cannot be started or reached
	ErrLaunch = errors.New("unable to launch browser")
	// ErrNotAttached is returned when a tab command is issued before Attach
	ErrNotAttached = errors.New("tab not attached")
	// ErrNoData is returned when the print call returns no document
	ErrNoData = errors.New("no data")
)
