package world

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pixil98/go-craft/internal/protocol"
)

// EventKind names a class of world change.
type EventKind string

const (
	EventEntityMoved     EventKind = "entity_moved"
	EventEntitySpawned   EventKind = "entity_spawned"
	EventEntityDespawned EventKind = "entity_despawned"
	EventBlockChanged    EventKind = "block_changed"
	EventChat            EventKind = "chat"
)

// Scope restricts an event's delivery to subscribers within Radius blocks
// (horizontal) of a point. A nil scope means every subscriber.
type Scope struct {
	X      float64 `json:"x"`
	Z      float64 `json:"z"`
	Radius float64 `json:"radius"`
}

// Event is an immutable description of a world change, published once and
// consumed independently by every subscribed session. Fields beyond Kind are
// populated per kind; unused ones stay zero.
type Event struct {
	Kind   EventKind `json:"kind"`
	Source EntityID  `json:"source,omitempty"`

	// Entity events
	Entity   EntityID  `json:"entity,omitempty"`
	Name     string    `json:"name,omitempty"`
	UUID     uuid.UUID `json:"uuid,omitempty"`
	X        float64   `json:"ex,omitempty"`
	Y        float64   `json:"ey,omitempty"`
	Z        float64   `json:"ez,omitempty"`
	Yaw      float32   `json:"yaw,omitempty"`
	Pitch    float32   `json:"pitch,omitempty"`
	OnGround bool      `json:"on_ground,omitempty"`

	// Chat
	Message string `json:"message,omitempty"`

	// Block changes
	BlockPos protocol.Position `json:"block_pos,omitzero"`
	BlockID  int32             `json:"block_id,omitempty"`

	Scope *Scope `json:"scope,omitempty"`
}

// Droppable reports whether the event may be shed when a subscriber's
// outbound queue is full. Movement is the only high-volume, self-correcting
// kind; everything else must reach every live subscriber.
func (e *Event) Droppable() bool {
	return e.Kind == EventEntityMoved
}

// InScope reports whether a subscriber at (x, z) should receive the event.
func (e *Event) InScope(x, z float64) bool {
	if e.Scope == nil {
		return true
	}
	dx, dz := e.Scope.X-x, e.Scope.Z-z
	return dx*dx+dz*dz <= e.Scope.Radius*e.Scope.Radius
}

// EncodeEvent serializes an event for the broadcast bus.
func EncodeEvent(e *Event) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent deserializes a bus message.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
