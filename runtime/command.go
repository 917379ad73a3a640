package runtime

import (
	"time"

	"sendify-chat/contract"
	"sendify-chat/domain"
)

// Reply acknowledges a client request. A nil error means success.
type Reply func(err error)

type command interface {
	connection() string
}

type connectCommand struct {
	sink     contract.EventSink
	identity domain.Identity
}

type joinCommand struct {
	connectionID string
	request      domain.JoinRequest
	reply        Reply
}

type sendCommand struct {
	connectionID string
	request      domain.SendRequest
	reply        Reply
}

// persistedCommand carries a store outcome back onto the loop.
type persistedCommand struct {
	connectionID string
	room         string
	record       domain.StoreRecord
	author       domain.Identity
	createdAt    time.Time
	err          error
	reply        Reply
}

type disconnectCommand struct {
	connectionID string
}

func (c connectCommand) connection() string    { return c.sink.ID() }
func (c joinCommand) connection() string       { return c.connectionID }
func (c sendCommand) connection() string       { return c.connectionID }
func (c persistedCommand) connection() string  { return c.connectionID }
func (c disconnectCommand) connection() string { return c.connectionID }
