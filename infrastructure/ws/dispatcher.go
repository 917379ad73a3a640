package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sendify-chat/contract"
	"sendify-chat/domain"
	"sendify-chat/domain/event"
	"sendify-chat/errors"
	"sendify-chat/runtime"
)

// Engine is what the transport needs from the event loop.
type Engine interface {
	Connect(sink contract.EventSink, identity domain.Identity)
	Join(connectionID string, request domain.JoinRequest, reply runtime.Reply)
	Send(connectionID string, request domain.SendRequest, reply runtime.Reply)
	Disconnect(connectionID string)
}

// Dispatcher decodes client frames into engine requests and turns the
// engine's replies into ack frames.
type Dispatcher struct {
	engine Engine
	log    *slog.Logger
}

func NewDispatcher(engine Engine, log *slog.Logger) *Dispatcher {
	return &Dispatcher{engine: engine, log: log}
}

func (d *Dispatcher) Handle(sink contract.EventSink, raw []byte) {
	var frame event.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		d.log.Debug("Malformed frame", "connection_id", sink.ID(), "error", err)
		d.write(sink, event.Frame{Event: event.NameError, Error: errors.ErrMalformedFrame.Error()})
		return
	}

	reply := d.replyFor(sink, frame)
	switch frame.Event {
	case event.NameJoin:
		var request domain.JoinRequest
		if err := json.Unmarshal(frame.Data, &request); err != nil {
			reply(fmt.Errorf("%w: %w", errors.ErrValidation, err))
			return
		}
		d.engine.Join(sink.ID(), request, reply)
	case event.NameSendMessage:
		var request domain.SendRequest
		if err := json.Unmarshal(frame.Data, &request); err != nil {
			reply(fmt.Errorf("%w: %w", errors.ErrValidation, err))
			return
		}
		d.engine.Send(sink.ID(), request, reply)
	default:
		reply(fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event))
	}
}

// replyFor acknowledges through the sink when the client asked for an ack.
func (d *Dispatcher) replyFor(sink contract.EventSink, frame event.Frame) runtime.Reply {
	if frame.Ack == nil {
		return func(err error) {
			if err != nil {
				d.log.Debug("Request failed without ack", "connection_id", sink.ID(), "event", frame.Event, "error", err)
			}
		}
	}
	id := *frame.Ack
	return func(err error) {
		d.write(sink, event.NewAck(id, err))
	}
}

func (d *Dispatcher) write(sink contract.EventSink, frame event.Frame) {
	if err := sink.Consume(context.Background(), frame); err != nil {
		d.log.Debug("Reply not delivered", "connection_id", sink.ID(), "error", err)
	}
}
