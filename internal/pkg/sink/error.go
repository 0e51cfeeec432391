package sink

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned when there is nothing to write
	ErrEmptyDocument = errors.New("empty document")
	// ErrInvalidFilename is returned when the name resolves to no file
	ErrInvalidFilename = errors.New("invalid filename")
)

// SaveError is returned when the document could not be persisted.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("save failed: %v", e.Err)
	}
	return fmt.Sprintf("save %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}
