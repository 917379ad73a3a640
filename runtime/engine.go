// Package runtime hosts the per-process chat core: the membership registry,
// the fanout bus and the event loop applying connection events to them.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sendify-chat/contract"
	"sendify-chat/domain"
	"sendify-chat/errors"

	"github.com/go-playground/validator/v10"
)

type connection struct {
	sink     contract.EventSink
	identity domain.Identity
}

// Engine is the single event loop of a process. Connection events (connect,
// join, send, disconnect) are applied one at a time, so registry mutations and
// fanout dispatch never interleave. The only suspending step, the store call
// of a send, runs off the loop and re-enters it when it completes.
type Engine struct {
	log       *slog.Logger
	registry  contract.IRegistry
	bus       contract.IBus
	store     contract.StoreClient
	moderator contract.Moderator
	validate  *validator.Validate
	commands  chan command
	quit      chan struct{}
	stopOnce  sync.Once
	now       func() time.Time

	// owned by the loop
	conns map[string]connection
}

func NewEngine(log *slog.Logger, registry contract.IRegistry, bus contract.IBus,
	store contract.StoreClient, moderator contract.Moderator, bufferSize int) *Engine {
	return &Engine{
		log:       log,
		registry:  registry,
		bus:       bus,
		store:     store,
		moderator: moderator,
		validate:  validator.New(),
		commands:  make(chan command, bufferSize),
		quit:      make(chan struct{}),
		now:       time.Now,
		conns:     make(map[string]connection),
	}
}

// WithClock replaces the time source stamping messages.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Connect binds an identity to a freshly accepted connection.
// An unbound identity is accepted; its joins and sends will fail validation.
func (e *Engine) Connect(sink contract.EventSink, identity domain.Identity) {
	e.dispatch(connectCommand{sink: sink, identity: identity})
}

func (e *Engine) Join(connectionID string, request domain.JoinRequest, reply Reply) {
	e.dispatch(joinCommand{connectionID: connectionID, request: request, reply: reply})
}

func (e *Engine) Send(connectionID string, request domain.SendRequest, reply Reply) {
	e.dispatch(sendCommand{connectionID: connectionID, request: request, reply: reply})
}

func (e *Engine) Disconnect(connectionID string) {
	e.dispatch(disconnectCommand{connectionID: connectionID})
}

func (e *Engine) dispatch(cmd command) {
	select {
	case e.commands <- cmd:
	case <-e.quit:
		e.log.Debug("Engine stopped, dropping command", "connection_id", cmd.connection())
	}
}

// Run processes commands until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.log.Debug("Context done, stopping engine")
			return nil
		case cmd := <-e.commands:
			e.handle(ctx, cmd)
		}
	}
}

// Stop releases goroutines still trying to dispatch after shutdown.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.quit) })
}

func (e *Engine) handle(ctx context.Context, cmd command) {
	switch c := cmd.(type) {
	case connectCommand:
		e.conns[c.sink.ID()] = connection{sink: c.sink, identity: c.identity}
		e.log.Debug("Connection accepted",
			"connection_id", c.sink.ID(), "user_id", c.identity.UserID, "bound", c.identity.Bound())
	case joinCommand:
		e.handleJoin(ctx, c)
	case sendCommand:
		e.handleSend(ctx, c)
	case persistedCommand:
		e.handlePersisted(ctx, c)
	case disconnectCommand:
		e.handleDisconnect(ctx, c)
	default:
		e.log.Error("Unknown command", "type", fmt.Sprintf("%T", cmd))
	}
}

func (e *Engine) handleJoin(ctx context.Context, cmd joinCommand) {
	conn, ok := e.conns[cmd.connectionID]
	if !ok {
		cmd.reply(fmt.Errorf("%w: unknown connection", errors.ErrValidation))
		return
	}
	if err := e.validate.Struct(cmd.request); err != nil {
		cmd.reply(fmt.Errorf("%w: %w", errors.ErrValidation, err))
		return
	}

	previous, err := e.registry.Join(cmd.connectionID, conn.identity, cmd.request.Room)
	if err != nil {
		cmd.reply(err)
		return
	}
	room := domain.NormalizeRoom(cmd.request.Room)
	if previous != "" && previous != room {
		e.bus.Unsubscribe(previous, cmd.connectionID)
	}
	e.bus.Subscribe(room, conn.sink)
	e.log.Info("Joined room", "connection_id", cmd.connectionID,
		"user_id", conn.identity.UserID, "room", room, "previous_room", previous)

	e.announceJoin(ctx, conn, room, previous)
	cmd.reply(nil)
}

func (e *Engine) handleDisconnect(ctx context.Context, cmd disconnectCommand) {
	delete(e.conns, cmd.connectionID)
	e.bus.UnsubscribeAll(cmd.connectionID)

	session, ok := e.registry.Leave(cmd.connectionID)
	if !ok {
		e.log.Debug("Disconnected without membership", "connection_id", cmd.connectionID)
		return
	}
	e.log.Info("Left room", "connection_id", cmd.connectionID,
		"user_id", session.Identity.UserID, "room", session.Room)
	e.announceLeave(ctx, session)
}

// replyIfConnected skips acknowledgements for connections that went away
// while their request was in flight.
func (e *Engine) replyIfConnected(connectionID string, reply Reply, err error) {
	if _, ok := e.conns[connectionID]; !ok {
		e.log.Debug("Connection gone, acknowledgement skipped", "connection_id", connectionID)
		return
	}
	reply(err)
}
