// Package queue implements the durable queue substrate that carries work
// between the planner, workers, and the judge. A Broker owns a set of named,
// strictly FIFO queues of serialized records, supporting non-blocking push
// and blocking pop with timeout.
//
// Delivery is at-least-once: a popped item that the consumer never acts on
// is lost only if the consuming process crashes between pop and re-queue.
// The substrate implements no visibility timeout or redelivery; that gap is
// an accepted, documented limitation of the pipeline.
package queue

import (
	"sync"
	"time"

	"github.com/outpost-labs/swarmgate/internal/errors"
)

// Names holds the well-known queue names for one agent instance.
type Names struct {
	Tasks  string
	Review string
	HITL   string
}

// NamesFor returns the queue names keyed to the given agent instance.
func NamesFor(agentID string) Names {
	return Names{
		Tasks:  "agent:" + agentID + ":task_queue",
		Review: "agent:" + agentID + ":review_queue",
		HITL:   "agent:" + agentID + ":hitl_queue",
	}
}

// namedQueue is one FIFO list plus its wakeup signal. The notify channel has
// capacity 1; a push arms it, a waiting pop drains it and re-checks under
// the lock.
type namedQueue struct {
	items  [][]byte
	notify chan struct{}
}

// Broker is an in-process queue substrate safe for any number of concurrent
// producers and consumers. Queues are created on first use.
type Broker struct {
	mu     sync.Mutex
	queues map[string]*namedQueue
	closed bool
	done   chan struct{}
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{
		queues: make(map[string]*namedQueue),
		done:   make(chan struct{}),
	}
}

// get returns the queue with the given name, creating it if necessary.
// Caller must hold b.mu.
func (b *Broker) get(name string) *namedQueue {
	q, ok := b.queues[name]
	if !ok {
		q = &namedQueue{notify: make(chan struct{}, 1)}
		b.queues[name] = q
	}
	return q
}

// Push appends item to the tail of the named queue. It never blocks.
func (b *Broker) Push(name string, item []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.NewTransportError("push", errors.ErrQueueClosed)
	}
	q := b.get(name)
	// Copy so the caller may reuse its buffer.
	cp := make([]byte, len(item))
	copy(cp, item)
	q.items = append(q.items, cp)
	b.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// BlockingPop removes and returns the head item of the named queue, blocking
// up to timeout. Expiry is not an error: it returns (nil, false, nil).
// Competing consumers each receive distinct items; per-queue FIFO order is
// preserved for any single consumer.
func (b *Broker) BlockingPop(name string, timeout time.Duration) ([]byte, bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return nil, false, errors.NewTransportError("blocking_pop", errors.ErrQueueClosed)
		}
		q := b.get(name)
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			b.mu.Unlock()

			if remaining > 0 {
				// Re-arm for other waiters; push signals coalesce.
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			return item, true, nil
		}
		notify := q.notify
		b.mu.Unlock()

		select {
		case <-notify:
			// Woken by a push; loop and re-check under the lock.
		case <-deadline.C:
			return nil, false, nil
		case <-b.done:
			return nil, false, errors.NewTransportError("blocking_pop", errors.ErrQueueClosed)
		}
	}
}

// Len returns the number of items currently in the named queue.
func (b *Broker) Len(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return 0
	}
	return len(q.items)
}

// Depths returns a snapshot of every non-empty queue's length.
func (b *Broker) Depths() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.queues))
	for name, q := range b.queues {
		if len(q.items) > 0 {
			out[name] = len(q.items)
		}
	}
	return out
}

// Close releases the broker. Blocked pops return a transport error and all
// subsequent operations fail. Close is idempotent.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}
