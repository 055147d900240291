package world

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestEventRoundTrip(t *testing.T) {
	ev := &Event{
		Kind:   EventEntityMoved,
		Source: 7,
		Entity: 7,
		X:      1.5,
		Y:      64,
		Z:      -3.25,
		Yaw:    90,
		Scope:  &Scope{X: 1.5, Z: -3.25, Radius: 128},
	}

	data, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "event", got, ev)
}

func TestEventDroppable(t *testing.T) {
	tests := map[string]struct {
		kind EventKind
		want bool
	}{
		"movement is droppable":  {EventEntityMoved, true},
		"chat is critical":       {EventChat, false},
		"spawn is critical":      {EventEntitySpawned, false},
		"despawn is critical":    {EventEntityDespawned, false},
		"block edit is critical": {EventBlockChanged, false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ev := &Event{Kind: tt.kind}
			testutil.AssertEqual(t, "droppable", ev.Droppable(), tt.want)
		})
	}
}

func TestEventScope(t *testing.T) {
	unscoped := &Event{Kind: EventChat}
	testutil.AssertEqual(t, "unscoped reaches anyone", unscoped.InScope(9999, 9999), true)

	scoped := &Event{
		Kind:  EventEntityMoved,
		Scope: &Scope{X: 0, Z: 0, Radius: 10},
	}
	testutil.AssertEqual(t, "inside", scoped.InScope(3, 4), true)
	testutil.AssertEqual(t, "boundary", scoped.InScope(6, 8), true)
	testutil.AssertEqual(t, "outside", scoped.InScope(30, 40), false)
}
