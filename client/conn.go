package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"sendify-chat/domain"
	"sendify-chat/domain/event"
	"sendify-chat/errors"

	"github.com/fasthttp/websocket"
)

const eventBufferSize = 64

// Errors the server reports by message, mapped back to their sentinel.
var remoteErrors = []error{
	errors.ErrValidation,
	errors.ErrProfanityRejected,
	errors.ErrPersistenceFailure,
	errors.ErrUnknownEvent,
	errors.ErrMalformedFrame,
}

// Conn speaks the frame protocol over one websocket. Join and Send wait for
// the server's ack; every other frame is delivered on Events.
type Conn struct {
	socket *websocket.Conn
	log    *slog.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	nextAck uint64
	pending map[uint64]chan error

	events    chan event.Frame
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(socket *websocket.Conn, log *slog.Logger) *Conn {
	c := &Conn{
		socket:  socket,
		log:     log,
		pending: make(map[uint64]chan error),
		events:  make(chan event.Frame, eventBufferSize),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) Join(ctx context.Context, room string) error {
	return c.request(ctx, event.NameJoin, domain.JoinRequest{Room: room})
}

func (c *Conn) Send(ctx context.Context, message domain.SendRequest) error {
	return c.request(ctx, event.NameSendMessage, message)
}

// Events is closed when the connection ends.
func (c *Conn) Events() <-chan event.Frame {
	return c.events
}

// Done is closed when the transport drops or Close is called.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Close() error {
	c.shutdown()
	return c.socket.Close()
}

func (c *Conn) request(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.nextAck++
	id := c.nextAck
	acked := make(chan error, 1)
	c.pending[id] = acked
	c.mu.Unlock()
	defer c.forget(id)

	c.writeMu.Lock()
	err = c.socket.WriteJSON(event.Frame{Event: name, Ack: &id, Data: data})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	select {
	case err := <-acked:
		return err
	case <-c.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *Conn) readLoop() {
	defer close(c.events)
	defer c.shutdown()

	for {
		var frame event.Frame
		if err := c.socket.ReadJSON(&frame); err != nil {
			if !stderrors.Is(err, websocket.ErrCloseSent) {
				c.log.Debug("Read loop stopped", "error", err)
			}
			return
		}
		if frame.Event == event.NameAck && frame.Ack != nil {
			c.resolve(*frame.Ack, frame.Error)
			continue
		}
		select {
		case c.events <- frame:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) resolve(id uint64, message string) {
	c.mu.Lock()
	acked, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		c.log.Debug("Ack for unknown request", "ack", id)
		return
	}
	acked <- remoteError(message)
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func remoteError(message string) error {
	if message == "" {
		return nil
	}
	for _, sentinel := range remoteErrors {
		if strings.HasPrefix(message, sentinel.Error()) {
			return fmt.Errorf("%w (server: %s)", sentinel, message)
		}
	}
	return stderrors.New(message)
}
