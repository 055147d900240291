package session

import (
	"github.com/pixil98/go-craft/internal/protocol"
	"github.com/pixil98/go-craft/internal/world"
)

// Action is one step of a handler's outcome. Handlers return a slice of
// actions instead of touching the connection or the bus themselves; the
// session applies them in order, which keeps handlers testable as pure
// packet-in, actions-out functions.
type Action interface {
	isAction()
}

// Reply queues a packet for the session's own client.
type Reply struct {
	Packet protocol.Packet
}

// Transition moves the connection state machine to a new state. The session
// validates the edge against the transition table before applying it.
type Transition struct {
	To protocol.State
}

// Mutate applies a change to the shared world registry. If the mutation
// fails with a recoverable error (despawned entity, out-of-bounds block) the
// session drops this and all following actions from the same packet, so a
// broadcast never describes a change that did not happen.
type Mutate struct {
	Fn func(*world.Registry) error
}

// Publish emits a world event on the broadcast bus.
type Publish struct {
	Event *world.Event
}

// Close tears the session down after the queued replies are flushed.
type Close struct {
	Reason string
}

func (Reply) isAction()      {}
func (Transition) isAction() {}
func (Mutate) isAction()     {}
func (Publish) isAction()    {}
func (Close) isAction()      {}
