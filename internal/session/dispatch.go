package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-craft/internal/protocol"
	"github.com/pixil98/go-craft/internal/world"
)

var (
	// ErrProtocolViolation marks client behavior the state machine forbids:
	// a packet id that is illegal in the current state, a nonsense handshake
	// intent, or a keep-alive echo that was never issued.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnhandledPacket marks a packet that is legal for the state but has
	// no registered handler. This is a server bug, not client misbehavior.
	ErrUnhandledPacket = errors.New("unhandled packet")
)

type handlerKey struct {
	state protocol.State
	id    int32
}

// HandlerFunc consumes one decoded packet and returns the actions to apply.
type HandlerFunc func(ctx context.Context, s *Session, pkt protocol.Packet) ([]Action, error)

// Dispatcher routes decoded packets to handlers keyed by (state, packet id).
// It enforces legality before lookup, so a handler never sees a packet the
// state machine would reject.
type Dispatcher struct {
	settings Settings
	registry *world.Registry
	handlers map[handlerKey]HandlerFunc
}

func NewDispatcher(settings Settings, registry *world.Registry) *Dispatcher {
	d := &Dispatcher{
		settings: settings,
		registry: registry,
		handlers: map[handlerKey]HandlerFunc{},
	}

	d.register(protocol.StateHandshake, protocol.IDHandshake, d.handleHandshake)
	d.register(protocol.StateStatus, protocol.IDStatusRequest, d.handleStatusRequest)
	d.register(protocol.StateStatus, protocol.IDPingRequest, d.handlePingRequest)
	d.register(protocol.StateLogin, protocol.IDLoginStart, d.handleLoginStart)
	d.register(protocol.StatePlay, protocol.IDKeepAliveServerbound, d.handleKeepAlive)
	d.register(protocol.StatePlay, protocol.IDChatMessage, d.handleChatMessage)
	d.register(protocol.StatePlay, protocol.IDSetPlayerPosition, d.handleSetPlayerPosition)
	d.register(protocol.StatePlay, protocol.IDSetPlayerPositionRotation, d.handleSetPlayerPositionRotation)
	d.register(protocol.StatePlay, protocol.IDSetPlayerRotation, d.handleSetPlayerRotation)
	d.register(protocol.StatePlay, protocol.IDPlayerAction, d.handlePlayerAction)

	return d
}

func (d *Dispatcher) register(state protocol.State, id int32, h HandlerFunc) {
	d.handlers[handlerKey{state, id}] = h
}

// Dispatch validates the packet against the current state and runs its
// handler. A violation or unhandled packet error closes the session.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, pkt protocol.Packet) ([]Action, error) {
	state := s.state
	if !Legal(state, pkt.ID()) {
		return nil, fmt.Errorf("%w: packet 0x%02x in state %s", ErrProtocolViolation, pkt.ID(), state)
	}

	h, ok := d.handlers[handlerKey{state, pkt.ID()}]
	if !ok {
		return nil, fmt.Errorf("%w: packet 0x%02x in state %s", ErrUnhandledPacket, pkt.ID(), state)
	}
	return h(ctx, s, pkt)
}

func (d *Dispatcher) handleHandshake(_ context.Context, s *Session, pkt protocol.Packet) ([]Action, error) {
	p := pkt.(*protocol.Handshake)
	s.protocolVersion = p.ProtocolVersion

	switch p.NextState {
	case protocol.IntentStatus:
		return []Action{Transition{To: protocol.StateStatus}}, nil
	case protocol.IntentLogin:
		return []Action{Transition{To: protocol.StateLogin}}, nil
	default:
		return nil, fmt.Errorf("%w: handshake intent %d", ErrProtocolViolation, p.NextState)
	}
}

func (d *Dispatcher) handleStatusRequest(_ context.Context, _ *Session, _ protocol.Packet) ([]Action, error) {
	return []Action{
		Reply{Packet: &protocol.StatusResponse{JSON: statusJSON(d.settings, d.registry.Count())}},
	}, nil
}

func (d *Dispatcher) handlePingRequest(_ context.Context, _ *Session, pkt protocol.Packet) ([]Action, error) {
	p := pkt.(*protocol.PingRequest)
	return []Action{
		Reply{Packet: &protocol.PingResponse{Payload: p.Payload}},
	}, nil
}

func (d *Dispatcher) handleLoginStart(ctx context.Context, s *Session, pkt protocol.Packet) ([]Action, error) {
	p := pkt.(*protocol.LoginStart)

	if s.protocolVersion != d.settings.ProtocolVersion {
		reason := chatText(fmt.Sprintf("Unsupported protocol version %d, server speaks %d",
			s.protocolVersion, d.settings.ProtocolVersion))
		return []Action{
			Reply{Packet: &protocol.LoginDisconnect{Reason: reason}},
			Close{Reason: "protocol version mismatch"},
		}, nil
	}

	if d.registry.Count() >= d.settings.MaxPlayers {
		return []Action{
			Reply{Packet: &protocol.LoginDisconnect{Reason: chatText("Server is full")}},
			Close{Reason: "server full"},
		}, nil
	}

	uid := world.OfflineUUID(p.Name)
	ent := d.registry.SpawnPlayer(p.Name, uid,
		d.settings.SpawnX, d.settings.SpawnY, d.settings.SpawnZ)
	s.setIdentity(ent)

	actions := make([]Action, 0, 16)
	if d.settings.CompressionThreshold >= 0 {
		actions = append(actions, Reply{Packet: &protocol.SetCompression{
			Threshold: int32(d.settings.CompressionThreshold),
		}})
	}
	actions = append(actions,
		Reply{Packet: &protocol.LoginSuccess{PlayerUUID: uid, Username: p.Name}},
		Transition{To: protocol.StatePlay},
		Reply{Packet: &protocol.JoinGame{
			EntityID:           int32(ent.ID),
			MaxPlayers:         int32(d.settings.MaxPlayers),
			ViewDistance:       d.settings.ViewDistance,
			SimulationDistance: d.settings.ViewDistance,
			DimensionName:      d.settings.DimensionName,
			GameMode:           1,
		}},
	)
	actions = append(actions, d.chunkActions(ctx, ent)...)
	actions = append(actions, Reply{Packet: &protocol.SyncPlayerPosition{
		X: ent.X, Y: ent.Y, Z: ent.Z,
		TeleportID: 1,
	}})

	// Introduce players already in range; their own spawn events predate
	// this subscription.
	for _, other := range d.registry.Nearby(ent.X, ent.Z, d.settings.viewRadius()) {
		if other.ID == ent.ID {
			continue
		}
		actions = append(actions, Reply{Packet: &protocol.SpawnPlayer{
			EntityID:   int32(other.ID),
			PlayerUUID: other.UUID,
			X:          other.X,
			Y:          other.Y,
			Z:          other.Z,
			Yaw:        protocol.AngleFromDegrees(other.Yaw),
			Pitch:      protocol.AngleFromDegrees(other.Pitch),
		}})
	}

	actions = append(actions, Publish{Event: &world.Event{
		Kind:   world.EventEntitySpawned,
		Source: ent.ID,
		Entity: ent.ID,
		Name:   ent.Name,
		UUID:   ent.UUID,
		X:      ent.X,
		Y:      ent.Y,
		Z:      ent.Z,
	}})

	return actions, nil
}

// chunkActions serializes every chunk within the view distance of the spawn
// point. A chunk that fails to load is skipped rather than failing the login.
func (d *Dispatcher) chunkActions(ctx context.Context, ent world.PlayerEntity) []Action {
	center := world.ChunkPosAt(protocol.Position{X: int32(ent.X), Y: int32(ent.Y), Z: int32(ent.Z)})
	r := d.settings.ViewDistance

	var actions []Action
	for cx := center.X - r; cx <= center.X+r; cx++ {
		for cz := center.Z - r; cz <= center.Z+r; cz++ {
			pos := world.ChunkPos{X: cx, Z: cz}
			data, err := d.registry.Chunks().EncodeColumn(pos)
			if err != nil {
				slog.WarnContext(ctx, "skipping chunk for join", "x", cx, "z", cz, "error", err)
				continue
			}
			actions = append(actions, Reply{Packet: &protocol.ChunkData{
				ChunkX: cx,
				ChunkZ: cz,
				Data:   data,
			}})
		}
	}
	return actions
}

func (d *Dispatcher) handleKeepAlive(_ context.Context, s *Session, pkt protocol.Packet) ([]Action, error) {
	p := pkt.(*protocol.KeepAliveServerbound)
	if !s.consumeKeepAlive(p.KeepAliveID) {
		return nil, fmt.Errorf("%w: unexpected keep-alive id %d", ErrProtocolViolation, p.KeepAliveID)
	}
	return nil, nil
}

func (d *Dispatcher) handleChatMessage(_ context.Context, s *Session, pkt protocol.Packet) ([]Action, error) {
	p := pkt.(*protocol.ChatMessage)
	name := s.Username()
	line := chatText(fmt.Sprintf("<%s> %s", name, p.Message))

	return []Action{
		Reply{Packet: &protocol.SystemChat{Content: line}},
		Publish{Event: &world.Event{
			Kind:    world.EventChat,
			Source:  s.EntityID(),
			Entity:  s.EntityID(),
			Name:    name,
			Message: p.Message,
		}},
	}, nil
}

func (d *Dispatcher) handleSetPlayerPosition(_ context.Context, s *Session, pkt protocol.Packet) ([]Action, error) {
	p := pkt.(*protocol.SetPlayerPosition)
	return d.moveActions(s, func(e *world.PlayerEntity) {
		e.X, e.Y, e.Z = p.X, p.Y, p.Z
		e.OnGround = p.OnGround
	})
}

func (d *Dispatcher) handleSetPlayerPositionRotation(_ context.Context, s *Session, pkt protocol.Packet) ([]Action, error) {
	p := pkt.(*protocol.SetPlayerPositionRotation)
	return d.moveActions(s, func(e *world.PlayerEntity) {
		e.X, e.Y, e.Z = p.X, p.Y, p.Z
		e.Yaw, e.Pitch = p.Yaw, p.Pitch
		e.OnGround = p.OnGround
	})
}

func (d *Dispatcher) handleSetPlayerRotation(_ context.Context, s *Session, pkt protocol.Packet) ([]Action, error) {
	p := pkt.(*protocol.SetPlayerRotation)
	return d.moveActions(s, func(e *world.PlayerEntity) {
		e.Yaw, e.Pitch = p.Yaw, p.Pitch
		e.OnGround = p.OnGround
	})
}

// moveActions folds a movement packet into the entity record and publishes
// the resulting pose. The event is built from the post-mutation snapshot so
// partial updates (rotation without position) broadcast the full pose.
func (d *Dispatcher) moveActions(s *Session, apply func(*world.PlayerEntity)) ([]Action, error) {
	id := s.EntityID()
	var snap world.PlayerEntity

	err := d.registry.WithEntityMut(id, func(e *world.PlayerEntity) error {
		apply(e)
		snap = *e
		return nil
	})
	if errors.Is(err, world.ErrEntityGone) {
		return nil, nil // raced a despawn; session is on its way out
	}
	if err != nil {
		return nil, err
	}

	return []Action{
		Publish{Event: &world.Event{
			Kind:     world.EventEntityMoved,
			Source:   id,
			Entity:   id,
			X:        snap.X,
			Y:        snap.Y,
			Z:        snap.Z,
			Yaw:      snap.Yaw,
			Pitch:    snap.Pitch,
			OnGround: snap.OnGround,
			Scope:    &world.Scope{X: snap.X, Z: snap.Z, Radius: d.settings.viewRadius()},
		}},
	}, nil
}

func (d *Dispatcher) handlePlayerAction(_ context.Context, s *Session, pkt protocol.Packet) ([]Action, error) {
	p := pkt.(*protocol.PlayerAction)
	if p.Status != protocol.ActionFinishDigging {
		return nil, nil
	}

	loc := p.Location
	return []Action{
		Mutate{Fn: func(r *world.Registry) error {
			return r.SetBlock(loc, world.BlockAir)
		}},
		Publish{Event: &world.Event{
			Kind:     world.EventBlockChanged,
			Source:   s.EntityID(),
			BlockPos: loc,
			BlockID:  world.BlockAir,
			Scope: &world.Scope{
				X:      float64(loc.X),
				Z:      float64(loc.Z),
				Radius: d.settings.viewRadius(),
			},
		}},
	}, nil
}
