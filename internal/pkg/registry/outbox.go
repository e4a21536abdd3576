package registry

import (
	"sync"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

// DefaultOutboxSize is the command buffer depth for one session.
const DefaultOutboxSize = 64

// Outbox is the outbound command queue for one session. Producers (the
// safety monitor, the dispatcher) enqueue without blocking; the session's
// writer loop is the sole consumer. Once closed it stays closed and drops
// all further sends.
type Outbox struct {
	mu     sync.Mutex
	ch     chan wire.ServerMessage
	closed bool
}

// NewOutbox creates an Outbox with the given buffer size.
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Outbox{
		ch: make(chan wire.ServerMessage, size),
	}
}

// Send enqueues msg without blocking. It reports false when the outbox is
// closed or full; both mean the message is dropped, which is acceptable
// for best-effort command delivery.
func (o *Outbox) Send(msg wire.ServerMessage) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	select {
	case o.ch <- msg:
		return true
	default:
		return false
	}
}

// Close shuts the queue so the consumer's receive loop ends once drained.
// Safe to call more than once.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.ch)
}

// Receive returns the channel the consumer ranges over. It yields queued
// messages and ends after Close.
func (o *Outbox) Receive() <-chan wire.ServerMessage {
	return o.ch
}
