package session

import (
	"errors"
	"testing"

	"github.com/pixil98/go-craft/internal/protocol"
	"github.com/pixil98/go-testutil"
)

func TestQueueEvictsDroppableForCritical(t *testing.T) {
	q := newOutQueue(100)

	// Flood with droppable movement updates, then add one critical chat line.
	for i := 0; i < 100; i++ {
		if err := q.push(&protocol.TeleportEntity{EntityID: int32(i)}, classDroppable); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := q.push(&protocol.SystemChat{Content: `{"text":"hi"}`}, classCritical); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "queue stays bounded", q.len(), 100)

	// The oldest movement packet was shed; the chat line survives at the tail.
	var last protocol.Packet
	for q.len() > 0 {
		last, _ = q.pop()
	}
	if _, ok := last.(*protocol.SystemChat); !ok {
		t.Errorf("expected the critical packet to survive, got %T", last)
	}
}

func TestQueueShedsNewDroppableWhenFullOfCritical(t *testing.T) {
	q := newOutQueue(2)

	for i := 0; i < 2; i++ {
		if err := q.push(&protocol.SystemChat{}, classCritical); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := q.push(&protocol.TeleportEntity{}, classDroppable); err != nil {
		t.Fatalf("droppable overflow should be silent, got: %v", err)
	}
	testutil.AssertEqual(t, "droppable was shed", q.len(), 2)
}

func TestQueueCriticalOverflow(t *testing.T) {
	q := newOutQueue(2)

	for i := 0; i < 2; i++ {
		if err := q.push(&protocol.SystemChat{}, classCritical); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	err := q.push(&protocol.SystemChat{}, classCritical)
	if !errors.Is(err, errQueueFull) {
		t.Errorf("expected errQueueFull, got %v", err)
	}
}

func TestQueuePreservesOrder(t *testing.T) {
	q := newOutQueue(10)

	for i := 0; i < 5; i++ {
		_ = q.push(&protocol.TeleportEntity{EntityID: int32(i)}, classCritical)
	}
	for i := 0; i < 5; i++ {
		pkt, ok := q.pop()
		testutil.AssertEqual(t, "pop ok", ok, true)
		testutil.AssertEqual(t, "order", pkt.(*protocol.TeleportEntity).EntityID, int32(i))
	}
}

func TestQueueCloseDrainsThenExhausts(t *testing.T) {
	q := newOutQueue(10)
	_ = q.push(&protocol.SystemChat{}, classCritical)
	q.close()

	_, ok := q.pop()
	testutil.AssertEqual(t, "queued packet still delivered", ok, true)
	_, ok = q.pop()
	testutil.AssertEqual(t, "then exhausted", ok, false)

	// Pushing after close is a silent no-op.
	if err := q.push(&protocol.SystemChat{}, classCritical); err != nil {
		t.Errorf("push after close should be silent, got: %v", err)
	}
	testutil.AssertEqual(t, "nothing queued", q.len(), 0)
}
