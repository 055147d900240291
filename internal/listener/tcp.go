package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/pixil98/go-log"
	"github.com/sirupsen/logrus"
)

// TCPListener accepts client connections on one port and hands each to the
// connection manager on its own goroutine.
type TCPListener struct {
	port uint16
	cm   *ConnectionManager
}

func NewTCPListener(port uint16, cm *ConnectionManager) *TCPListener {
	return &TCPListener{
		port: port,
		cm:   cm,
	}
}

func (l *TCPListener) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", l.port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use (another server running?)", l.port)
		}
		return fmt.Errorf("listening on port %d: %w", l.port, err)
	}

	// Create a cancelable context for all connections
	connCtx, cancelConns := context.WithCancel(context.Background())

	handler := &connHandler{
		cFunc:       l.cm.AcceptConnection,
		logger:      log.GetLogger(ctx),
		connCtx:     connCtx,
		cancelConns: cancelConns,
	}

	// done signals that Start is returning (either success or failure)
	done := make(chan struct{})
	defer close(done)

	// When parent context is canceled, stop accepting and cancel all connections
	go func() {
		select {
		case <-ctx.Done():
			lis.Close()
			handler.Stop()
		case <-done:
		}
	}()

	handler.logger.Infof("listening for connections on port %d", l.port)

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go handler.Handle(conn)
	}
}

type connHandler struct {
	wg          sync.WaitGroup
	cFunc       func(context.Context, net.Conn)
	logger      logrus.FieldLogger
	connCtx     context.Context
	cancelConns context.CancelFunc
}

func (h *connHandler) Handle(conn net.Conn) {
	h.wg.Add(1)
	defer h.wg.Done()
	defer func() {
		err := conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			h.logger.Errorf("closing connection: %s", err)
		}
	}()

	// Use the shared context so all connections are canceled together
	ctx := log.SetLogger(h.connCtx, h.logger)

	h.cFunc(ctx, conn)
}

func (h *connHandler) Stop() {
	h.cancelConns()
	h.wg.Wait()
}
