// Package api exposes the REST surface: auth, user and room lookups, and
// message history. The real-time path lives behind /chat and is handled by
// the ws transport adapter.
package api

import (
	"log/slog"
	"time"

	"chatx/repositories"
	"chatx/runtime"
	"chatx/transport/ws"

	"chatx/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	log      *slog.Logger
	users    repositories.IUserRepository
	rooms    repositories.IRoomRepository
	messages repositories.IMessageRepository
	resolver *runtime.Resolver
	secret   []byte
	tokenTTL time.Duration
}

func NewServer(log *slog.Logger, users repositories.IUserRepository,
	rooms repositories.IRoomRepository, messages repositories.IMessageRepository,
	resolver *runtime.Resolver, secret []byte, tokenTTL time.Duration) *Server {
	return &Server{
		log:      log,
		users:    users,
		rooms:    rooms,
		messages: messages,
		resolver: resolver,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// SetupRouter wires every route. Signup, signin, health, and metrics are
// public; the websocket route authenticates through its token query param;
// everything else requires a bearer token.
func (s *Server) SetupRouter(transport *ws.Transport, router *runtime.Router) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.GinMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/signup", s.handleSignup)
	r.POST("/signin", s.handleSignin)

	r.GET("/chat", ws.Serve(s.log, transport, router, s.secret))

	authed := r.Group("/", s.authMiddleware())
	{
		authed.GET("/users/:status", s.handleUsersByStatus)
		authed.GET("/user/:username", s.handleUserByUsername)
		authed.POST("/rooms", s.handleCreateRoom)
		authed.GET("/rooms", s.handleChatList)
		authed.GET("/messages/:roomId", s.handleMessages)
	}
	return r
}
