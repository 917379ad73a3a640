package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"sendify-chat/domain/event"
	"sendify-chat/errors"

	"github.com/gofiber/contrib/websocket"
)

// Socket is the part of a websocket connection a Connection drives.
type Socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Connection is the event sink of one websocket. Frames are queued on a
// buffered channel drained by WritePump, the only writer of the socket, so
// the connection sees frames in the order they were consumed.
// The socket must stay valid until Wait returns: nothing is written after
// Close.
type Connection struct {
	id      string
	socket  Socket
	send    chan []byte
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	log     *slog.Logger
}

func NewConnection(id string, socket Socket, bufferSize int, log *slog.Logger) *Connection {
	return &Connection{
		id:     id,
		socket: socket,
		send:   make(chan []byte, bufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		log:     log,
	}
}

func (c *Connection) ID() string { return c.id }

// Consume never blocks: a full buffer drops the frame.
func (c *Connection) Consume(ctx context.Context, frame event.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if c.closed() {
		return errors.ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		c.log.Warn("Outbound buffer full", "connection_id", c.id, "event", frame.Event)
		return errors.ErrSlowConsumer
	}
}

// WritePump drains queued frames until Close. Frames still queued at Close
// are discarded.
func (c *Connection) WritePump() {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if c.closed() {
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Write failed, closing connection", "connection_id", c.id, "error", err)
				c.Close()
				return
			}
		}
	}
}

// ReadPump hands every inbound message to handle until the socket fails.
func (c *Connection) ReadPump(handle func(raw []byte)) {
	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket closed unexpectedly", "connection_id", c.id, "error", err)
			}
			return
		}
		handle(data)
	}
}

func (c *Connection) Close() {
	c.once.Do(func() { close(c.done) })
}

// Wait blocks until WritePump has returned.
func (c *Connection) Wait() {
	<-c.stopped
}

func (c *Connection) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
