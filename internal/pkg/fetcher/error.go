package fetcher

import (
	"errors"
	"fmt"
)

var (
	// ErrContextCreate is returned when no browsing context could be opened
	ErrContextCreate = errors.New("unable to create browsing context")
	// ErrAttach is returned when the automation session cannot attach
	ErrAttach = errors.New("unable to attach to browsing context")
	// ErrCapture is returned when print media emulation or printing fails
	ErrCapture = errors.New("capture failed")
	// ErrRequest is returned when the HTTP request itself fails
	ErrRequest = errors.New("request failed")
	// ErrNoBrowser is returned when a render is requested without a browser
	ErrNoBrowser = errors.New("no browser available")
	// ErrMissingURL is returned when a request has neither URL nor HTML
	ErrMissingURL = errors.New("missing document URL")
)

// HTTPError is returned when the document server answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Capture stages.
const (
	StageOpen    = "open"
	StageAttach  = "attach"
	StageEmulate = "emulate"
	StagePrint   = "print"
)

// CaptureError is returned when a render-and-print step fails.
type CaptureError struct {
	Stage string
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Stage, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

func captureError(stage string, sentinel, cause error) *CaptureError {
	return &CaptureError{Stage: stage, Err: fmt.Errorf("%w: %w", sentinel, cause)}
}
