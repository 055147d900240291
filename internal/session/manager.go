package session

import (
	"context"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/pixil98/go-craft/internal/world"
)

// Manager tracks every live session, runs new connections, and enforces
// keep-alive and idle timeouts from the world tick.
type Manager struct {
	settings   Settings
	registry   *world.Registry
	bus        Bus
	dispatcher *Dispatcher

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(settings Settings, registry *world.Registry, bus Bus) *Manager {
	return &Manager{
		settings:   settings,
		registry:   registry,
		bus:        bus,
		dispatcher: NewDispatcher(settings, registry),
		sessions:   map[string]*Session{},
	}
}

// RunSession owns one connection end to end: it registers a session, drives
// it until it ends, and deregisters it. Called from the listener's
// per-connection goroutine.
func (m *Manager) RunSession(ctx context.Context, conn net.Conn) error {
	s := newSession(conn, m.dispatcher, m.registry, m.bus, m.settings)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.sessions, s.id)
		m.mu.Unlock()
	}()

	return s.Run(ctx)
}

// Start blocks until shutdown, then kicks every live session so their
// connection goroutines can unwind.
func (m *Manager) Start(ctx context.Context) error {
	<-ctx.Done()
	for _, s := range m.snapshot() {
		s.Kick("Server shutting down")
	}
	return nil
}

// Tick runs once per world tick: it times out unresponsive or idle sessions
// and issues keep-alive challenges to the rest.
func (m *Manager) Tick(ctx context.Context) error {
	now := time.Now()

	for _, s := range m.snapshot() {
		idle := now.Sub(time.Unix(0, s.lastActive.Load()))
		if idle > m.settings.IdleTimeout {
			s.Kick("Timed out")
			continue
		}

		if !s.inPlay.Load() {
			continue
		}
		if s.awaitingKeepAlive.Load() {
			waited := now.Sub(time.Unix(0, s.keepAliveSentAt.Load()))
			if waited > m.settings.IdleTimeout {
				s.Kick("Timed out")
			}
			continue
		}
		s.sendKeepAlive(rand.Int64())
	}
	return nil
}

// Count returns the number of live sessions, in any state.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) snapshot() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
