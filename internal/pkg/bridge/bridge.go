// Package bridge is the message contract between the queue side and the
// privileged worker side. Each side owns an Endpoint; the two are connected
// with Pipe and each runs its own dispatch loop.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
)

// DefaultInboxSize is the number of messages an endpoint buffers.
const DefaultInboxSize = 16

// Handler serves one action. Handlers run on the receiving endpoint's loop,
// one at a time.
type Handler func(ctx context.Context, msg *Message) *Reply

type envelope struct {
	msg   *Message
	reply chan *Reply // nil for notifications
}

// Endpoint is one side of the bridge.
type Endpoint struct {
	name     string
	inbox    chan envelope
	peer     *Endpoint
	handlers map[Action]Handler
	mu       sync.RWMutex
	started  atomic.Bool
	running  atomic.Bool
	done     chan struct{}
	logger   *log.FieldedLogger
}

// NewEndpoint creates an endpoint with an inbox of the given size.
func NewEndpoint(name string, inboxSize int) *Endpoint {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}

	return &Endpoint{
		name:     name,
		inbox:    make(chan envelope, inboxSize),
		handlers: make(map[Action]Handler),
		done:     make(chan struct{}),
		logger: log.NewFieldedLogger(&log.Fields{
			"component": "bridge",
			"endpoint":  name,
		}),
	}
}

// Pipe connects two endpoints to each other.
func Pipe(a, b *Endpoint) {
	a.mu.Lock()
	a.peer = b
	a.mu.Unlock()

	b.mu.Lock()
	b.peer = a
	b.mu.Unlock()
}

// Name returns the endpoint name.
func (e *Endpoint) Name() string {
	return e.name
}

// Handle registers h for action, replacing any previous handler.
func (e *Endpoint) Handle(action Action, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[action] = h
}

func (e *Endpoint) handler(action Action) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if h, ok := e.handlers[action]; ok {
		return h, true
	}
	if target, ok := aliases[action]; ok {
		h, ok := e.handlers[target]
		return h, ok
	}
	return nil, false
}

func (e *Endpoint) getPeer() (*Endpoint, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.peer == nil {
		return nil, ErrNotConnected
	}
	return e.peer, nil
}

// Running reports whether the dispatch loop is active.
func (e *Endpoint) Running() bool {
	return e.running.Load()
}

// Run dispatches incoming messages until ctx is done. An endpoint runs once. Messages still queued
// when the loop stops are dropped; their requesters get ErrNotDelivered.
func (e *Endpoint) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	e.running.Store(true)
	defer func() {
		e.running.Store(false)
		close(e.done)
	}()

	e.logger.Debug("dispatch loop started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("dispatch loop stopped")
			return nil
		case env := <-e.inbox:
			reply := e.dispatch(ctx, env.msg)
			if env.reply != nil {
				env.reply <- reply
			}
		}
	}
}

func (e *Endpoint) dispatch(ctx context.Context, msg *Message) *Reply {
	h, ok := e.handler(msg.Action)
	if !ok {
		e.logger.Warn("no handler for action", "action", msg.Action, "id", msg.ID)
		return &Reply{err: fmt.Errorf("%w: %s", ErrNoHandler, msg.Action)}
	}

	reply := h(ctx, msg)
	if reply == nil {
		reply = &Reply{Success: true}
	}
	return reply
}

func (e *Endpoint) deliver(peer *Endpoint, env envelope) error {
	if !peer.Running() {
		return fmt.Errorf("%w: %s is not running", ErrNotDelivered, peer.name)
	}

	select {
	case peer.inbox <- env:
		return nil
	default:
		return fmt.Errorf("%w: %s inbox is full", ErrNotDelivered, peer.name)
	}
}

// Request sends msg to the peer and waits for its reply. A missing reply
// (peer stopped, ctx done) is reported as ErrNotDelivered and must not be
// read as success.
func (e *Endpoint) Request(ctx context.Context, msg *Message) (*Reply, error) {
	peer, err := e.getPeer()
	if err != nil {
		return nil, err
	}

	env := envelope{msg: msg, reply: make(chan *Reply, 1)}
	if err := e.deliver(peer, env); err != nil {
		return nil, err
	}

	select {
	case reply := <-env.reply:
		if reply.err != nil {
			return nil, reply.err
		}
		return reply, nil
	case <-peer.done:
		return nil, fmt.Errorf("%w: %s stopped before replying to %s", ErrNotDelivered, peer.name, msg.Action)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNotDelivered, ctx.Err())
	}
}

// Notify hands msg to the peer without waiting. Delivery is not guaranteed:
// callers log the error and continue.
func (e *Endpoint) Notify(msg *Message) error {
	peer, err := e.getPeer()
	if err != nil {
		return err
	}

	return e.deliver(peer, envelope{msg: msg})
}
