package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chatx/auth"
	"chatx/errors"
	"chatx/runtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve upgrades the HTTP request, assigns a fresh connection handle, and
// drives the session through the event router until the peer goes away.
// The token travels as a query parameter because browsers cannot set
// headers on websocket upgrades.
func Serve(log *slog.Logger, transport *Transport, router *runtime.Router, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"data": "missing token"})
			return
		}
		claims, err := auth.ValidateToken(token, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"data": "invalid token"})
			return
		}

		socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		connectionID := uuid.NewString()
		conn := transport.add(connectionID, socket)
		session := runtime.NewSession(connectionID)

		defer func() {
			if err := router.HandleDisconnect(session); err != nil {
				log.Error("disconnect failed", "connection_id", connectionID, "error", err)
			}
			transport.remove(connectionID)
			_ = socket.Close()
		}()

		if err := router.HandleConnect(session, claims.UserID); err != nil {
			log.Error("connect rejected", "user_id", claims.UserID, "error", err)
			writeError(conn, err)
			return
		}

		stopPing := startPing(conn)
		defer stopPing()

		readLoop(c.Request.Context(), log, router, session, conn)
	}
}

// readLoop feeds inbound frames to the router sequentially; events for one
// connection are never reordered here.
func readLoop(ctx context.Context, log *slog.Logger, router *runtime.Router, session *runtime.Session, c *conn) {
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read failed", "connection_id", session.ConnectionID, "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		if _, err := router.HandleEvent(ctx, session, data); err != nil {
			log.Warn("event rejected", "connection_id", session.ConnectionID, "error", err)
			writeError(c, err)
		}
	}
}

// writeError answers the requesting connection with a request-level error
// frame; the session itself stays up.
func writeError(c *conn, err error) {
	body, marshalErr := json.Marshal(gin.H{
		"error":  err.Error(),
		"status": errors.HTTPStatus(err),
	})
	if marshalErr != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.TextMessage, body)
}

// startPing keeps the peer's read deadline alive; a failed ping lets the
// read loop discover the closed socket.
func startPing(c *conn) func() {
	ticker := time.NewTicker(pingPeriod)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.writeMu.Lock()
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				err := c.ws.WriteMessage(websocket.PingMessage, nil)
				c.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
