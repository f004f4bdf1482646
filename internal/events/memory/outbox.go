package memory

import (
	"context"
	"errors"
	"sync"

	interfaces "github.com/sheikh-saqib/mini-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/models/events"
)

var ErrClosed = errors.New("outbox is closed")

// DefaultCapacity is used when NewOutbox is given a non-positive size.
const DefaultCapacity = 100

// Outbox is an in-memory implementation of interfaces.EventPublisher.
// It keeps the most recent events (oldest dropped first) and is safe for
// concurrent use.
type Outbox struct {
	mu       sync.Mutex                    // protects everything below
	events   []events.TransactionCompleted // ring buffer storage
	start    int                           // index of the oldest event
	size     int                           // number of stored events
	capacity int
	closed   bool
}

// NewOutbox creates an Outbox holding at most capacity events.
func NewOutbox(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Outbox{
		events:   make([]events.TransactionCompleted, capacity),
		capacity: capacity,
	}
}

// Publish appends the event, evicting the oldest one when full.
func (o *Outbox) Publish(ctx context.Context, event events.TransactionCompleted) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if o.size < o.capacity {
		o.events[(o.start+o.size)%o.capacity] = event
		o.size++
		return nil
	}
	o.events[o.start] = event
	o.start = (o.start + 1) % o.capacity
	return nil
}

// Events returns a copy of the stored events, oldest first.
func (o *Outbox) Events() []events.TransactionCompleted {
	o.mu.Lock()
	defer o.mu.Unlock()

	copied := make([]events.TransactionCompleted, 0, o.size)
	for i := 0; i < o.size; i++ {
		copied = append(copied, o.events[(o.start+i)%o.capacity])
	}
	return copied
}

// Recent returns up to n of the newest events, newest first.
func (o *Outbox) Recent(n int) []events.TransactionCompleted {
	all := o.Events()
	if n > len(all) || n <= 0 {
		n = len(all)
	}
	out := make([]events.TransactionCompleted, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size
}

// Close makes later Publish calls fail. Stored events stay readable.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

var _ interfaces.EventPublisher = (*Outbox)(nil)
