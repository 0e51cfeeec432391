package log

import "errors"

var (
	// ErrLoggerAlreadyInitialized is the error returned when the logger is already initialized
	ErrLoggerAlreadyInitialized = errors.New("logger already initialized")
	// ErrLogFileUnavailable is reported when the log file cannot be opened
	ErrLogFileUnavailable = errors.New("log file unavailable")
)
