package session

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/pixil98/go-craft/internal/protocol"
	"github.com/pixil98/go-craft/internal/world"
	"github.com/pixil98/go-testutil"
)

// fakeBus is an in-process Bus: Publish delivers synchronously to every
// subscriber and records the event.
type fakeBus struct {
	mu     sync.Mutex
	events []*world.Event
	subs   map[int]func(*world.Event)
	nextID int
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: map[int]func(*world.Event){}}
}

func (b *fakeBus) Publish(ev *world.Event) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	subs := make([]func(*world.Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

func (b *fakeBus) Subscribe(handler func(*world.Event)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}, nil
}

func (b *fakeBus) published() []*world.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*world.Event(nil), b.events...)
}

func testSettings() Settings {
	s := DefaultSettings()
	s.CompressionThreshold = -1
	s.ViewDistance = 1
	s.QueueSize = 256
	return s
}

type testHarness struct {
	registry   *world.Registry
	bus        *fakeBus
	dispatcher *Dispatcher
}

func newTestHarness() *testHarness {
	registry := world.NewRegistry(world.NewChunkCache(nil, nil, &world.FlatGenerator{SurfaceY: 3, Block: 9}))
	return &testHarness{
		registry:   registry,
		bus:        newFakeBus(),
		dispatcher: NewDispatcher(testSettings(), registry),
	}
}

// newIdleSession builds a session whose connection is never driven; handler
// tests call the dispatcher directly.
func (h *testHarness) newIdleSession(t *testing.T, state protocol.State) *Session {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	s := newSession(server, h.dispatcher, h.registry, h.bus, testSettings())
	s.state = state
	return s
}

// joinPlayer spawns an entity and binds it to a play-state session.
func (h *testHarness) joinPlayer(t *testing.T, name string) *Session {
	t.Helper()
	s := h.newIdleSession(t, protocol.StatePlay)
	ent := h.registry.SpawnPlayer(name, world.OfflineUUID(name), 0, 65, 0)
	s.setIdentity(ent)
	s.inPlay.Store(true)
	return s
}

func TestDispatchRejectsIllegalPacket(t *testing.T) {
	tests := map[string]struct {
		state protocol.State
		pkt   protocol.Packet
	}{
		"status request during play":  {protocol.StatePlay, &protocol.StatusRequest{}},
		"login start during play":     {protocol.StatePlay, &protocol.LoginStart{Name: "x"}},
		"movement during login":       {protocol.StateLogin, &protocol.SetPlayerPosition{}},
		"ping during login":           {protocol.StateLogin, &protocol.PingRequest{}},
		"chat before login completes": {protocol.StateLogin, &protocol.ChatMessage{Message: "hi"}},
	}

	h := newTestHarness()
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := h.newIdleSession(t, tt.state)
			_, err := h.dispatcher.Dispatch(context.Background(), s, tt.pkt)
			if !errors.Is(err, ErrProtocolViolation) {
				t.Errorf("expected ErrProtocolViolation, got %v", err)
			}
		})
	}
}

func TestHandshakeIntentRouting(t *testing.T) {
	tests := map[string]struct {
		intent  int32
		want    protocol.State
		wantErr bool
	}{
		"status intent": {protocol.IntentStatus, protocol.StateStatus, false},
		"login intent":  {protocol.IntentLogin, protocol.StateLogin, false},
		"bogus intent":  {7, protocol.StateClosed, true},
	}

	h := newTestHarness()
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := h.newIdleSession(t, protocol.StateHandshake)
			actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.Handshake{
				ProtocolVersion: 763,
				NextState:       tt.intent,
			})
			if tt.wantErr {
				if !errors.Is(err, ErrProtocolViolation) {
					t.Fatalf("expected ErrProtocolViolation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "one action", len(actions), 1)
			testutil.AssertEqual(t, "target state", actions[0].(Transition).To, tt.want)
		})
	}
}

func TestStatusRequestReportsPlayers(t *testing.T) {
	h := newTestHarness()
	h.registry.SpawnPlayer("Alice", world.OfflineUUID("Alice"), 0, 65, 0)
	h.registry.SpawnPlayer("Bob", world.OfflineUUID("Bob"), 0, 65, 0)

	s := h.newIdleSession(t, protocol.StateStatus)
	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.StatusRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := actions[0].(Reply).Packet.(*protocol.StatusResponse)
	if !strings.Contains(resp.JSON, `"online":2`) {
		t.Errorf("status should report 2 online players: %s", resp.JSON)
	}
	if !strings.Contains(resp.JSON, testSettings().Motd) {
		t.Errorf("status should carry the motd: %s", resp.JSON)
	}
}

func TestPingEchoesPayload(t *testing.T) {
	h := newTestHarness()
	s := h.newIdleSession(t, protocol.StateStatus)

	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.PingRequest{Payload: 424242})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pong := actions[0].(Reply).Packet.(*protocol.PingResponse)
	testutil.AssertEqual(t, "payload", pong.Payload, int64(424242))
}

func TestLoginRejectsWrongProtocolVersion(t *testing.T) {
	h := newTestHarness()
	s := h.newIdleSession(t, protocol.StateLogin)
	s.protocolVersion = 47

	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.LoginStart{Name: "Alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := actions[0].(Reply).Packet.(*protocol.LoginDisconnect); !ok {
		t.Fatalf("expected LoginDisconnect, got %T", actions[0].(Reply).Packet)
	}
	if _, ok := actions[len(actions)-1].(Close); !ok {
		t.Error("login rejection must end with Close")
	}
	testutil.AssertEqual(t, "nobody spawned", h.registry.Count(), 0)
}

func TestLoginRejectsFullServer(t *testing.T) {
	h := newTestHarness()
	for i := 0; i < testSettings().MaxPlayers; i++ {
		h.registry.SpawnPlayer("p", world.OfflineUUID("p"), 0, 65, 0)
	}

	s := h.newIdleSession(t, protocol.StateLogin)
	s.protocolVersion = testSettings().ProtocolVersion

	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.LoginStart{Name: "Late"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := actions[0].(Reply).Packet.(*protocol.LoginDisconnect); !ok {
		t.Fatalf("expected LoginDisconnect, got %T", actions[0].(Reply).Packet)
	}
	testutil.AssertEqual(t, "no extra spawn", h.registry.Count(), testSettings().MaxPlayers)
}

func TestLoginStartBuildsJoinSequence(t *testing.T) {
	h := newTestHarness()
	s := h.newIdleSession(t, protocol.StateLogin)
	s.protocolVersion = testSettings().ProtocolVersion

	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.LoginStart{Name: "Alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "player spawned", h.registry.Count(), 1)
	testutil.AssertEqual(t, "identity bound", s.Username(), "Alice")

	// Compression is disabled in tests, so the sequence opens with success.
	success := actions[0].(Reply).Packet.(*protocol.LoginSuccess)
	testutil.AssertEqual(t, "username", success.Username, "Alice")
	testutil.AssertEqual(t, "offline uuid", success.PlayerUUID, world.OfflineUUID("Alice"))
	testutil.AssertEqual(t, "then play", actions[1].(Transition).To, protocol.StatePlay)

	if _, ok := actions[2].(Reply).Packet.(*protocol.JoinGame); !ok {
		t.Fatalf("expected JoinGame after transition, got %T", actions[2].(Reply).Packet)
	}

	var chunks, syncs int
	var spawnEvent bool
	for _, a := range actions {
		switch act := a.(type) {
		case Reply:
			switch act.Packet.(type) {
			case *protocol.ChunkData:
				chunks++
			case *protocol.SyncPlayerPosition:
				syncs++
			}
		case Publish:
			if act.Event.Kind == world.EventEntitySpawned {
				spawnEvent = true
			}
		}
	}
	// View distance 1 means a 3x3 square of chunks.
	testutil.AssertEqual(t, "chunk columns", chunks, 9)
	testutil.AssertEqual(t, "position sync", syncs, 1)
	testutil.AssertEqual(t, "spawn published", spawnEvent, true)
}

func TestLoginIntroducesNearbyPlayers(t *testing.T) {
	h := newTestHarness()
	h.registry.SpawnPlayer("Bob", world.OfflineUUID("Bob"), 4, 65, 4)

	s := h.newIdleSession(t, protocol.StateLogin)
	s.protocolVersion = testSettings().ProtocolVersion

	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.LoginStart{Name: "Alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var introduced []string
	for _, a := range actions {
		if r, ok := a.(Reply); ok {
			if sp, ok := r.Packet.(*protocol.SpawnPlayer); ok {
				introduced = append(introduced, sp.PlayerUUID.String())
			}
		}
	}
	testutil.AssertEqual(t, "one introduction", len(introduced), 1)
	testutil.AssertEqual(t, "it is bob", introduced[0], world.OfflineUUID("Bob").String())
}

func TestKeepAliveValidation(t *testing.T) {
	h := newTestHarness()

	t.Run("matching echo accepted", func(t *testing.T) {
		s := h.joinPlayer(t, "Alice")
		s.sendKeepAlive(1234)
		_, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.KeepAliveServerbound{KeepAliveID: 1234})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		testutil.AssertEqual(t, "challenge consumed", s.awaitingKeepAlive.Load(), false)
	})

	t.Run("wrong id rejected", func(t *testing.T) {
		s := h.joinPlayer(t, "Bob")
		s.sendKeepAlive(1234)
		_, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.KeepAliveServerbound{KeepAliveID: 999})
		if !errors.Is(err, ErrProtocolViolation) {
			t.Errorf("expected ErrProtocolViolation, got %v", err)
		}
	})

	t.Run("unsolicited echo rejected", func(t *testing.T) {
		s := h.joinPlayer(t, "Carol")
		_, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.KeepAliveServerbound{KeepAliveID: 1})
		if !errors.Is(err, ErrProtocolViolation) {
			t.Errorf("expected ErrProtocolViolation, got %v", err)
		}
	})
}

func TestMovementUpdatesRegistryAndPublishes(t *testing.T) {
	h := newTestHarness()
	s := h.joinPlayer(t, "Alice")

	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.SetPlayerPositionRotation{
		X: 10, Y: 70, Z: -5, Yaw: 90, Pitch: 15, OnGround: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, ok := h.registry.GetEntity(s.EntityID())
	testutil.AssertEqual(t, "entity found", ok, true)
	testutil.AssertEqual(t, "x", snap.X, 10.0)
	testutil.AssertEqual(t, "yaw", snap.Yaw, float32(90))

	pub := actions[0].(Publish)
	testutil.AssertEqual(t, "event kind", pub.Event.Kind, world.EventEntityMoved)
	testutil.AssertEqual(t, "event x", pub.Event.X, 10.0)
	if pub.Event.Scope == nil {
		t.Fatal("movement events must be scoped")
	}
	testutil.AssertEqual(t, "scope follows mover", pub.Event.Scope.X, 10.0)
}

func TestRotationOnlyKeepsPosition(t *testing.T) {
	h := newTestHarness()
	s := h.joinPlayer(t, "Alice")

	if _, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.SetPlayerPosition{X: 3, Y: 70, Z: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.SetPlayerRotation{Yaw: 180})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pub := actions[0].(Publish)
	testutil.AssertEqual(t, "position carried", pub.Event.X, 3.0)
	testutil.AssertEqual(t, "rotation applied", pub.Event.Yaw, float32(180))
}

func TestMovementAfterDespawnIsNoOp(t *testing.T) {
	h := newTestHarness()
	s := h.joinPlayer(t, "Alice")

	if err := h.registry.Despawn(s.EntityID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.SetPlayerPosition{X: 1, Y: 70, Z: 1})
	if err != nil {
		t.Fatalf("despawn race must be recovered, got: %v", err)
	}
	testutil.AssertEqual(t, "no actions", len(actions), 0)
}

func TestChatEchoesAndPublishes(t *testing.T) {
	h := newTestHarness()
	s := h.joinPlayer(t, "Alice")

	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.ChatMessage{Message: "hello world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	echo := actions[0].(Reply).Packet.(*protocol.SystemChat)
	if !strings.Contains(echo.Content, "hello world") || !strings.Contains(echo.Content, "Alice") {
		t.Errorf("echo should carry sender and text: %s", echo.Content)
	}

	pub := actions[1].(Publish)
	testutil.AssertEqual(t, "kind", pub.Event.Kind, world.EventChat)
	testutil.AssertEqual(t, "message", pub.Event.Message, "hello world")
	if pub.Event.Scope != nil {
		t.Error("chat must be unscoped")
	}
}

func TestFinishDiggingClearsBlockAndPublishes(t *testing.T) {
	h := newTestHarness()
	s := h.joinPlayer(t, "Alice")

	loc := protocol.Position{X: 2, Y: 3, Z: 2}
	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.PlayerAction{
		Status:   protocol.ActionFinishDigging,
		Location: loc,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.apply(context.Background(), actions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := h.registry.Chunks().BlockAt(loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "block cleared", got, world.BlockAir)

	events := h.bus.published()
	testutil.AssertEqual(t, "one event", len(events), 1)
	testutil.AssertEqual(t, "kind", events[0].Kind, world.EventBlockChanged)
	testutil.AssertEqual(t, "location", events[0].BlockPos, loc)
}

func TestStartDiggingIsIgnored(t *testing.T) {
	h := newTestHarness()
	s := h.joinPlayer(t, "Alice")

	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.PlayerAction{
		Status:   protocol.ActionStartDigging,
		Location: protocol.Position{X: 2, Y: 3, Z: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "no actions", len(actions), 0)
}

func TestOutOfBoundsDigIsRecovered(t *testing.T) {
	h := newTestHarness()
	s := h.joinPlayer(t, "Alice")

	actions, err := h.dispatcher.Dispatch(context.Background(), s, &protocol.PlayerAction{
		Status:   protocol.ActionFinishDigging,
		Location: protocol.Position{X: 0, Y: -10, Z: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.apply(context.Background(), actions); err != nil {
		t.Fatalf("out-of-bounds dig must be a no-op, got: %v", err)
	}
	// The failed mutation suppressed the broadcast too.
	testutil.AssertEqual(t, "no events", len(h.bus.published()), 0)
}
