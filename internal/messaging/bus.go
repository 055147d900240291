package messaging

import (
	"fmt"
	"log/slog"

	"github.com/pixil98/go-craft/internal/world"
)

// eventsSubject carries every world change; subscribers do their own
// spatial filtering against the event's scope.
const eventsSubject = "world.events"

// Bus fans world events out to session subscribers over the embedded NATS
// server. The bus owns no state: an event is published once and each live
// subscriber consumes it independently, so one slow subscriber never blocks
// publication to the rest. Events published while a session is not
// subscribed are simply never seen by it.
type Bus struct {
	server *NatsServer
}

func NewBus(server *NatsServer) *Bus {
	return &Bus{server: server}
}

// Publish broadcasts one immutable world event.
func (b *Bus) Publish(ev *world.Event) error {
	data, err := world.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return b.server.Publish(eventsSubject, data)
}

// Subscribe registers a handler for every subsequent event. The returned
// function removes the subscription; it must be called on session teardown.
func (b *Bus) Subscribe(handler func(*world.Event)) (func(), error) {
	return b.server.Subscribe(eventsSubject, func(data []byte) {
		ev, err := world.DecodeEvent(data)
		if err != nil {
			// A bad payload is a programming error on the publish side;
			// don't let it take the subscriber down.
			slog.Warn("dropping undecodable world event", "error", err)
			return
		}
		handler(ev)
	})
}
