package config

import "errors"

var (
	// ErrNotInitialized is returned when the config is used before InitConfig
	ErrNotInitialized = errors.New("config not initialized")
	// ErrInvalidConfig is returned when a value fails validation
	ErrInvalidConfig = errors.New("invalid config")
)
