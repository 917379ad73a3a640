package runtime

import (
	"context"
	stderrors "errors"
	"fmt"

	"sendify-chat/domain"
	"sendify-chat/domain/event"
	"sendify-chat/errors"
)

func (e *Engine) handleSend(ctx context.Context, cmd sendCommand) {
	conn, ok := e.conns[cmd.connectionID]
	if !ok {
		cmd.reply(fmt.Errorf("%w: unknown connection", errors.ErrValidation))
		return
	}
	msg, err := e.buildMessage(conn.identity, cmd.request)
	if err != nil {
		cmd.reply(err)
		return
	}
	if msg.Kind == domain.KindText {
		if censored, words := e.moderator.Censor(msg.Body.Content); len(words) > 0 {
			e.log.Info("Message rejected by moderation",
				"connection_id", cmd.connectionID, "user_id", conn.identity.UserID,
				"censored", censored, "words", words)
			cmd.reply(errors.ErrProfanityRejected)
			return
		}
	}
	record, err := msg.Record()
	if err != nil {
		cmd.reply(fmt.Errorf("%w: %w", errors.ErrValidation, err))
		return
	}

	room := domain.NormalizeRoom(cmd.request.Room)
	go func() {
		// The write completes even if the sender or the loop goes away.
		err := e.store.CreateMessage(context.WithoutCancel(ctx), record)
		e.dispatch(persistedCommand{
			connectionID: cmd.connectionID,
			room:         room,
			record:       record,
			author:       msg.Author,
			createdAt:    msg.CreatedAt,
			err:          err,
			reply:        cmd.reply,
		})
	}()
}

func (e *Engine) buildMessage(identity domain.Identity, req domain.SendRequest) (domain.ChatMessage, error) {
	if !identity.Bound() {
		return domain.ChatMessage{}, fmt.Errorf("%w: connection has no identity", errors.ErrValidation)
	}
	if err := e.validate.Struct(req); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}
	if domain.NormalizeRoom(req.Room) == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: blank room", errors.ErrValidation)
	}
	kind, err := domain.ParseKind(req.Type)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}
	channelID, err := domain.ParseChannelID(req.ChannelID)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}
	if _, err := identity.Number(); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}

	body := domain.Body{Content: req.Content}
	if kind.IsAttachment() {
		body.ObjectURL = req.ObjectURL
		body.Size = req.Size
	}
	if err := body.Validate(kind); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %w", errors.ErrValidation, err)
	}
	return domain.ChatMessage{
		ChannelID: channelID,
		Author:    identity,
		Kind:      kind,
		Body:      body,
		CreatedAt: e.now(),
	}, nil
}

func (e *Engine) handlePersisted(ctx context.Context, cmd persistedCommand) {
	if cmd.err != nil {
		err := cmd.err
		if !stderrors.Is(err, errors.ErrPersistenceFailure) {
			err = fmt.Errorf("%w: %w", errors.ErrPersistenceFailure, err)
		}
		e.log.Warn("Message not persisted", "connection_id", cmd.connectionID, "room", cmd.room, "error", err)
		e.replyIfConnected(cmd.connectionID, cmd.reply, err)
		return
	}

	msg, err := domain.FromRecord(cmd.record, cmd.author, cmd.createdAt)
	if err != nil {
		e.log.Error("Persisted record cannot be projected", "connection_id", cmd.connectionID, "error", err)
		e.replyIfConnected(cmd.connectionID, cmd.reply, fmt.Errorf("%w: %w", errors.ErrPersistenceFailure, err))
		return
	}
	// Fanout does not depend on the sender still being connected.
	if err := e.bus.Publish(ctx, cmd.room, event.NameMessage, event.NewMessageEvent(msg)); err != nil {
		e.log.Error("Unable to publish message", "room", cmd.room, "error", err)
	}
	e.replyIfConnected(cmd.connectionID, cmd.reply, nil)
}
