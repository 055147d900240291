package listener

import (
	"context"
	"log/slog"
	"net"

	"github.com/pixil98/go-craft/internal/session"
)

type ConnectionManager struct {
	sm *session.Manager
}

func NewConnectionManager(sm *session.Manager) *ConnectionManager {
	return &ConnectionManager{
		sm: sm,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn net.Conn) {
	if err := m.sm.RunSession(ctx, conn); err != nil {
		slog.WarnContext(ctx, "client session", "remote", conn.RemoteAddr().String(), "error", err)
	}
}
