package runtime

import (
	"context"
	"encoding/json"

	"sendify-chat/domain"
	"sendify-chat/domain/event"
)

const welcomeNotice = "Welcome!"

// announceJoin greets the joiner, notifies the room, then refreshes the
// roster of the room left (if any) before the roster of the room joined.
func (e *Engine) announceJoin(ctx context.Context, conn connection, room, previous string) {
	e.notify(ctx, conn, event.NewNotice(welcomeNotice, e.now()))

	joined := event.NewNotice(conn.identity.Username+" has joined!", e.now())
	if err := e.bus.PublishExcept(ctx, room, event.NameMessage, joined, conn.sink.ID()); err != nil {
		e.log.Error("Unable to publish join notice", "room", room, "error", err)
	}

	if previous != "" && previous != room {
		e.publishRoster(ctx, previous)
	}
	e.publishRoster(ctx, room)
}

func (e *Engine) announceLeave(ctx context.Context, session domain.Session) {
	left := event.NewNotice(session.Identity.Username+" has left!", e.now())
	if err := e.bus.Publish(ctx, session.Room, event.NameMessage, left); err != nil {
		e.log.Error("Unable to publish leave notice", "room", session.Room, "error", err)
	}
	e.publishRoster(ctx, session.Room)
}

func (e *Engine) publishRoster(ctx context.Context, room string) {
	roster := event.NewRosterEvent(room, e.registry.RosterOf(room))
	if err := e.bus.Publish(ctx, room, event.NameRoomRoster, roster); err != nil {
		e.log.Error("Unable to publish roster", "room", room, "error", err)
	}
}

// notify delivers a notice to a single connection, outside of any room.
func (e *Engine) notify(ctx context.Context, conn connection, notice event.MessageEvent) {
	data, err := json.Marshal(notice)
	if err != nil {
		e.log.Error("Unable to encode notice", "error", err)
		return
	}
	if err := conn.sink.Consume(ctx, event.Frame{Event: event.NameMessage, Data: data}); err != nil {
		e.log.Debug("Notice not delivered", "connection_id", conn.sink.ID(), "error", err)
	}
}
