// Package ws is the websocket transport: Fiber app, handshake identity,
// per-connection pumps and frame dispatch.
package ws

import (
	"context"
	"log/slog"
	"time"

	"sendify-chat/domain"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localConnectionID = "connection_id"
	localIdentity     = "identity"
	shutdownTimeout   = 5 * time.Second
	healthTimeout     = 2 * time.Second
)

// HealthChecker reports whether a dependency answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	app        *fiber.App
	addr       string
	engine     Engine
	dispatcher *Dispatcher
	health     HealthChecker
	bufferSize int
	log        *slog.Logger
}

// NewServer wires the routes. health may be nil when there is no relay.
func NewServer(log *slog.Logger, addr string, engine Engine, health HealthChecker, bufferSize int) *Server {
	s := &Server{
		app:        fiber.New(fiber.Config{AppName: "sendify-chat", DisableStartupMessage: true}),
		addr:       addr,
		engine:     engine,
		dispatcher: NewDispatcher(engine, log),
		health:     health,
		bufferSize: bufferSize,
		log:        log,
	}
	s.app.Get("/healthz", s.handleHealth)
	s.app.Use("/ws", s.upgrade)
	s.app.Get("/ws", websocket.New(s.handleSocket))
	return s
}

func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Websocket server listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.log.Error("Websocket server shutdown", "error", err)
		}
		return nil
	}
}

func (s *Server) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	identity := BindIdentity(func(key string) string { return c.Get(key) })
	c.Locals(localIdentity, identity)
	c.Locals(localConnectionID, uuid.NewString())
	return c.Next()
}

func (s *Server) handleSocket(c *websocket.Conn) {
	connectionID, _ := c.Locals(localConnectionID).(string)
	identity, _ := c.Locals(localIdentity).(domain.Identity)

	conn := NewConnection(connectionID, c, s.bufferSize, s.log)
	s.engine.Connect(conn, identity)
	s.log.Info("Websocket connected", "connection_id", connectionID, "user_id", identity.UserID)

	go conn.WritePump()
	conn.ReadPump(func(raw []byte) { s.dispatcher.Handle(conn, raw) })

	s.engine.Disconnect(connectionID)
	conn.Close()
	// The underlying conn is released to a pool once this handler returns.
	conn.Wait()
	s.log.Info("Websocket disconnected", "connection_id", connectionID)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if s.health == nil {
		return c.JSON(fiber.Map{"status": "ok"})
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()
	if err := s.health.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "relay": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "relay": "up"})
}
