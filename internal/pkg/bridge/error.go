package bridge

import "errors"

var (
	// ErrNoHandler is returned when the peer has no handler for an action
	ErrNoHandler = errors.New("no handler for action")
	// ErrNotDelivered is returned when a message could not be handed to the peer.
	// The peer may or may not have seen it: callers must treat it as inconclusive.
	ErrNotDelivered = errors.New("message not delivered")
	// ErrNotConnected is returned when the endpoint has no peer
	ErrNotConnected = errors.New("endpoint not connected")
	// ErrAlreadyRunning is returned when Run is called twice on one endpoint
	ErrAlreadyRunning = errors.New("endpoint already running")
	// ErrInvalidPayload is returned when a payload cannot be encoded or decoded
	ErrInvalidPayload = errors.New("invalid payload")
)
