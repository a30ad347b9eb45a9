// Package ws adapts the generic push-channel collaborator onto gorilla
// websockets. The connection table here is transport plumbing only: the
// authoritative "who is online" record lives in the user store, owned by
// the registry.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	apperrors "chatx/errors"
	"chatx/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1 << 20 // 1MB
)

type conn struct {
	id string
	ws *websocket.Conn
	// gorilla allows a single concurrent writer; pings and pushes share it.
	writeMu sync.Mutex
}

// Transport implements the push collaborator over live websocket
// connections. Push failures are classified by IsStale so the dispatcher
// can tell a gone endpoint from a transient transport problem.
type Transport struct {
	mu    sync.RWMutex
	conns map[string]*conn
	log   *slog.Logger
}

func NewTransport(log *slog.Logger) *Transport {
	return &Transport{conns: make(map[string]*conn), log: log}
}

func (t *Transport) add(id string, ws *websocket.Conn) *conn {
	c := &conn{id: id, ws: ws}
	t.mu.Lock()
	t.conns[id] = c
	t.mu.Unlock()
	metrics.WsConnections.Inc()
	return c
}

func (t *Transport) remove(id string) {
	t.mu.Lock()
	_, ok := t.conns[id]
	delete(t.conns, id)
	t.mu.Unlock()
	if ok {
		metrics.WsConnections.Dec()
	}
}

func (t *Transport) lookup(id string) (*conn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.conns[id]
	return c, ok
}

// Push writes one frame to the given connection handle. A handle that no
// longer maps to a live socket, or a socket the peer has closed, surfaces
// as a stale-connection error; a context deadline surfaces as the
// context's own error and counts as a transport failure upstream.
func (t *Transport) Push(ctx context.Context, connectionID string, data []byte) error {
	c, ok := t.lookup(connectionID)
	if !ok {
		return fmt.Errorf("%w: no live socket for %s", apperrors.ErrStaleConnection, connectionID)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		if isClosed(err) {
			return fmt.Errorf("%w: %v", apperrors.ErrStaleConnection, err)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrTransportFailure, err)
	}
	return nil
}

// IsStale is the dispatcher's classification hook: true means the endpoint
// is confirmed gone, anything else is a generic transport failure.
func (t *Transport) IsStale(err error) bool {
	return errors.Is(err, apperrors.ErrStaleConnection)
}

// Close drops the socket behind a handle, if it is still around.
func (t *Transport) Close(connectionID string) {
	if c, ok := t.lookup(connectionID); ok {
		_ = c.ws.Close()
		t.remove(connectionID)
	}
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, websocket.ErrCloseSent)
}
