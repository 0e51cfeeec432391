package queue

import "errors"

var (
	// ErrNothingToDownload is returned when the selection expands to no work item
	ErrNothingToDownload = errors.New("nothing to download")

	// ErrQueueRunning is returned when a queue is started while a checkpoint exists
	ErrQueueRunning = errors.New("a download queue is already running")

	// ErrNoQueue is returned when there is no checkpoint to act on
	ErrNoQueue = errors.New("no download queue")

	// ErrNoItemInFlight is returned when a completion arrives while no item is outstanding
	ErrNoItemInFlight = errors.New("no item in flight")

	// ErrCorruptCheckpoint is returned when a persisted queue exists but its cursor cannot be trusted
	ErrCorruptCheckpoint = errors.New("corrupt download queue checkpoint")
)
