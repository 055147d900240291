package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pixil98/go-craft/internal/protocol"
	"github.com/pixil98/go-craft/internal/world"
)

// writeRetries is how many times a timed-out write is retried before the
// session gives up on the connection.
const writeRetries = 3

// flushTimeout bounds the final queue drain during teardown so a peer that
// stopped reading cannot hold the session goroutine hostage.
const flushTimeout = 2 * time.Second

// errCloseRequested signals an orderly shutdown initiated by a Close action;
// it is not reported as a session failure.
var errCloseRequested = errors.New("close requested")

// Bus is the slice of the broadcast bus a session needs.
type Bus interface {
	Publish(*world.Event) error
	Subscribe(func(*world.Event)) (func(), error)
}

// Session owns one client connection from accept to teardown. A read
// goroutine decodes frames and dispatches packets; a writer goroutine drains
// the outbound queue; the bus subscription and the manager's tick feed the
// queue from their own goroutines. All state mutation flows through the
// shared registry, never through session-local world state.
type Session struct {
	id         string
	conn       net.Conn
	dispatcher *Dispatcher
	registry   *world.Registry
	bus        Bus
	settings   Settings

	// Owned by the read goroutine.
	state           protocol.State
	dec             *protocol.Decoder
	protocolVersion int32

	out *outQueue

	mu          sync.Mutex
	entityID    world.EntityID
	username    string
	playerUUID  uuid.UUID
	unsubscribe func()

	inPlay            atomic.Bool
	pendingKeepAlive  atomic.Int64
	awaitingKeepAlive atomic.Bool
	keepAliveSentAt   atomic.Int64 // unix nanos
	lastActive        atomic.Int64 // unix nanos

	stopOnce sync.Once
	closed   chan struct{}
}

func newSession(conn net.Conn, d *Dispatcher, registry *world.Registry, bus Bus, settings Settings) *Session {
	s := &Session{
		id:         uuid.NewString(),
		conn:       conn,
		dispatcher: d,
		registry:   registry,
		bus:        bus,
		settings:   settings,
		state:      protocol.StateHandshake,
		dec:        protocol.NewDecoder(),
		out:        newOutQueue(settings.QueueSize),
		closed:     make(chan struct{}),
	}
	s.lastActive.Store(time.Now().UnixNano())
	return s
}

// Run drives the session until the peer disconnects, the context is
// canceled, or the protocol is violated. It always despawns the entity and
// closes the connection before returning, exactly once.
func (s *Session) Run(ctx context.Context) error {
	defer s.teardown()

	writerDone := make(chan struct{})
	go s.writeLoop(writerDone)

	runErr := s.readLoop(ctx)

	// Let the writer flush anything already queued (a disconnect reason in
	// particular) before the connection is torn down.
	_ = s.conn.SetWriteDeadline(time.Now().Add(flushTimeout))
	s.out.close()
	<-writerDone

	if errors.Is(runErr, errCloseRequested) {
		return nil
	}
	return runErr
}

func (s *Session) readLoop(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.closed:
			return nil
		default:
		}

		n, err := s.conn.Read(buf)
		if n > 0 {
			s.dec.Push(buf[:n])
			if perr := s.processFrames(ctx); perr != nil {
				return perr
			}
		}
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading connection: %w", err)
		}
	}
}

// processFrames drains every complete frame buffered so far.
func (s *Session) processFrames(ctx context.Context) error {
	for {
		frame, err := s.dec.Next()
		if errors.Is(err, protocol.ErrNeedMoreData) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("framing: %w", err)
		}

		pkt, err := protocol.Decode(s.state, frame)
		if err != nil {
			return fmt.Errorf("decoding packet: %w", err)
		}
		s.lastActive.Store(time.Now().UnixNano())

		actions, err := s.dispatcher.Dispatch(ctx, s, pkt)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, actions); err != nil {
			return err
		}
	}
}

// apply executes a handler's actions in order. A recoverable mutation
// failure drops the rest of the batch so no event describes a change that
// never happened.
func (s *Session) apply(ctx context.Context, actions []Action) error {
	for _, a := range actions {
		switch act := a.(type) {
		case Reply:
			if err := s.out.push(act.Packet, classCritical); err != nil {
				return fmt.Errorf("queueing reply: %w", err)
			}
			// The decoder switches to compressed frames only after the
			// negotiation packet is on its way; the client cannot send a
			// compressed frame before receiving it.
			if sc, ok := act.Packet.(*protocol.SetCompression); ok {
				s.dec.EnableCompression(int(sc.Threshold))
			}

		case Transition:
			if !CanTransition(s.state, act.To) {
				return fmt.Errorf("%w: transition %s -> %s", ErrProtocolViolation, s.state, act.To)
			}
			s.state = act.To
			if act.To == protocol.StatePlay {
				if err := s.enterPlay(); err != nil {
					return err
				}
			}

		case Mutate:
			if err := act.Fn(s.registry); err != nil {
				if errors.Is(err, world.ErrEntityGone) || errors.Is(err, world.ErrOutOfBounds) {
					slog.DebugContext(ctx, "dropping stale mutation", "session", s.id, "error", err)
					return nil
				}
				return fmt.Errorf("applying mutation: %w", err)
			}

		case Publish:
			if err := s.bus.Publish(act.Event); err != nil {
				return fmt.Errorf("publishing event: %w", err)
			}

		case Close:
			slog.DebugContext(ctx, "session close requested", "session", s.id, "reason", act.Reason)
			return errCloseRequested

		default:
			return fmt.Errorf("unknown action %T", a)
		}
	}
	return nil
}

// enterPlay subscribes the session to the broadcast bus. From here on the
// client sees every in-scope world event from other sessions.
func (s *Session) enterPlay() error {
	unsub, err := s.bus.Subscribe(s.onEvent)
	if err != nil {
		return fmt.Errorf("subscribing to world events: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closed:
		unsub()
		return errCloseRequested
	default:
	}
	s.unsubscribe = unsub
	s.inPlay.Store(true)
	return nil
}

// onEvent runs on the bus goroutine for every published world event.
func (s *Session) onEvent(ev *world.Event) {
	id := s.EntityID()
	if id == 0 || ev.Source == id {
		return // not in play yet, or our own change echoed back
	}

	snap, ok := s.registry.GetEntity(id)
	if !ok {
		return
	}
	if !ev.InScope(snap.X, snap.Z) {
		return
	}

	pkt := eventPacket(ev)
	if pkt == nil {
		return
	}

	class := classCritical
	if ev.Droppable() {
		class = classDroppable
	}
	if err := s.out.push(pkt, class); err != nil {
		// The queue could not make room for a critical packet: the client
		// is too slow to keep a consistent view of the world.
		slog.Warn("closing slow session", "session", s.id, "player", s.Username(), "error", err)
		s.stop()
	}
}

func (s *Session) writeLoop(done chan<- struct{}) {
	defer close(done)

	threshold := -1
	for {
		pkt, ok := s.out.pop()
		if !ok {
			return
		}

		body := protocol.Encode(pkt)
		if err := s.writeFrame(body, threshold); err != nil {
			select {
			case <-s.closed:
			default:
				slog.Warn("writing to client", "session", s.id, "error", err)
			}
			s.stop()
			return
		}

		// Compression starts with the first frame after the negotiation
		// packet, which itself goes out uncompressed.
		if sc, ok := pkt.(*protocol.SetCompression); ok {
			threshold = int(sc.Threshold)
		}
	}
}

func (s *Session) writeFrame(body []byte, threshold int) error {
	frame := protocol.EncodeFrame(body, threshold)

	for attempt := 0; ; attempt++ {
		_, err := s.conn.Write(frame)
		if err == nil {
			return nil
		}
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Timeout() || attempt >= writeRetries {
			return err
		}
	}
}

// Kick queues a disconnect reason and begins shutdown. Used by the manager
// for keep-alive and idle timeouts and for server shutdown.
func (s *Session) Kick(reason string) {
	pkt := protocol.Packet(&protocol.PlayDisconnect{Reason: chatText(reason)})
	if !s.inPlay.Load() {
		pkt = &protocol.LoginDisconnect{Reason: chatText(reason)}
	}
	_ = s.out.push(pkt, classCritical)
	s.stop()
}

// stop signals shutdown and unblocks the read loop. Safe from any goroutine.
func (s *Session) stop() {
	s.stopOnce.Do(func() {
		close(s.closed)
		_ = s.conn.SetReadDeadline(time.Now())
	})
}

// teardown runs once, after both loops have exited.
func (s *Session) teardown() {
	s.stop()

	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	id := s.entityID
	name := s.username
	uid := s.playerUUID
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	if id != 0 {
		if err := s.registry.Despawn(id); err == nil {
			_ = s.bus.Publish(&world.Event{
				Kind:   world.EventEntityDespawned,
				Source: id,
				Entity: id,
				Name:   name,
				UUID:   uid,
			})
		}
	}

	s.state = protocol.StateClosed
	_ = s.conn.Close()
}

// setIdentity records the registry entity backing this session. Called once
// from the login handler on the read goroutine.
func (s *Session) setIdentity(ent world.PlayerEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entityID = ent.ID
	s.username = ent.Name
	s.playerUUID = ent.UUID
}

func (s *Session) EntityID() world.EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entityID
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// sendKeepAlive issues a new keep-alive challenge. No-op while one is
// already outstanding.
func (s *Session) sendKeepAlive(id int64) {
	if !s.awaitingKeepAlive.CompareAndSwap(false, true) {
		return
	}
	s.pendingKeepAlive.Store(id)
	s.keepAliveSentAt.Store(time.Now().UnixNano())
	if err := s.out.push(&protocol.KeepAliveClientbound{KeepAliveID: id}, classCritical); err != nil {
		s.stop()
	}
}

// consumeKeepAlive validates the client's echo against the outstanding
// challenge. A stale or unsolicited echo is a protocol violation.
func (s *Session) consumeKeepAlive(id int64) bool {
	if !s.awaitingKeepAlive.Load() {
		return false
	}
	if s.pendingKeepAlive.Load() != id {
		return false
	}
	s.awaitingKeepAlive.Store(false)
	return true
}
