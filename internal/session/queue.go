package session

import (
	"errors"
	"sync"

	"github.com/pixil98/go-craft/internal/protocol"
)

var errQueueFull = errors.New("outbound queue full")

type packetClass int

const (
	// classCritical packets must reach the client; if the queue cannot make
	// room for one the session is beyond saving.
	classCritical packetClass = iota
	// classDroppable packets are high-volume and self-correcting (movement);
	// they are shed first under backpressure.
	classDroppable
)

type queuedPacket struct {
	pkt   protocol.Packet
	class packetClass
}

// outQueue is the bounded buffer between everything that produces clientbound
// packets (the read loop, bus subscription, keep-alive tick) and the single
// writer goroutine. When full it evicts the oldest droppable entry to admit a
// new packet; a critical packet that still cannot fit is a hard failure.
type outQueue struct {
	mu     sync.Mutex
	items  []queuedPacket
	cap    int
	closed bool
	wake   chan struct{}
}

func newOutQueue(capacity int) *outQueue {
	return &outQueue{
		cap:  capacity,
		wake: make(chan struct{}, 1),
	}
}

func (q *outQueue) push(pkt protocol.Packet, class packetClass) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // writer is gone; nothing left to deliver to
	}

	if len(q.items) >= q.cap {
		if !q.evictDroppable() {
			if class == classDroppable {
				return nil // shed the newcomer instead
			}
			return errQueueFull
		}
	}

	q.items = append(q.items, queuedPacket{pkt: pkt, class: class})
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// evictDroppable removes the oldest droppable entry. Caller holds q.mu.
func (q *outQueue) evictDroppable() bool {
	for i, it := range q.items {
		if it.class == classDroppable {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// pop blocks until a packet is available or the queue is closed and drained.
func (q *outQueue) pop() (protocol.Packet, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return it.pkt, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}
		<-q.wake
	}
}

// close marks the queue drained-and-done: pop keeps returning already queued
// packets and then reports exhaustion. Idempotent.
func (q *outQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *outQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
