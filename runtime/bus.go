package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sendify-chat/contract"
	"sendify-chat/domain"
	"sendify-chat/domain/event"
	"sendify-chat/errors"

	"github.com/samber/lo"
)

// Bus delivers room-scoped events to the sinks subscribed on this process and
// relays them so sibling processes deliver to theirs.
//
// Local delivery happens in publish order. Relay is best effort: a lost relay
// message is logged as ErrRelayLoss and never retried nor reported upward.
// The subscription set is transport-level and never shared with other processes.
type Bus struct {
	mu          sync.RWMutex
	log         *slog.Logger
	origin      string
	relay       contract.Relay
	rooms       map[string][]contract.EventSink
	sinkTimeout time.Duration
}

// NewBus creates a bus identified by origin on the relay. A nil relay keeps
// delivery local, which is what a single-process deployment needs.
func NewBus(log *slog.Logger, origin string, relay contract.Relay, sinkTimeout time.Duration) *Bus {
	return &Bus{
		log:         log,
		origin:      origin,
		relay:       relay,
		rooms:       make(map[string][]contract.EventSink),
		sinkTimeout: sinkTimeout,
	}
}

func (b *Bus) Origin() string { return b.origin }

// Subscribe adds sink to the delivery set of room. Subscribing twice is a no-op.
func (b *Bus) Subscribe(room string, sink contract.EventSink) {
	room = domain.NormalizeRoom(room)
	b.mu.Lock()
	defer b.mu.Unlock()

	if lo.ContainsBy(b.rooms[room], func(s contract.EventSink) bool { return s.ID() == sink.ID() }) {
		return
	}
	b.rooms[room] = append(b.rooms[room], sink)
}

func (b *Bus) Unsubscribe(room string, connectionID string) {
	room = domain.NormalizeRoom(room)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(room, connectionID)
}

// UnsubscribeAll drops connectionID from every room, used on disconnect.
func (b *Bus) UnsubscribeAll(connectionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for room := range b.rooms {
		b.removeLocked(room, connectionID)
	}
}

func (b *Bus) removeLocked(room, connectionID string) {
	sinks := lo.Reject(b.rooms[room], func(s contract.EventSink, _ int) bool { return s.ID() == connectionID })
	if len(sinks) == 0 {
		delete(b.rooms, room)
		return
	}
	b.rooms[room] = sinks
}

// Subscribers returns the connection ids subscribed to room on this process.
func (b *Bus) Subscribers(room string) []string {
	room = domain.NormalizeRoom(room)
	b.mu.RLock()
	defer b.mu.RUnlock()
	return lo.Map(b.rooms[room], func(s contract.EventSink, _ int) string { return s.ID() })
}

func (b *Bus) Publish(ctx context.Context, room, name string, payload any) error {
	return b.PublishExcept(ctx, room, name, payload, "")
}

// PublishExcept is Publish skipping one connection, used for notices that the
// originating connection should not receive.
func (b *Bus) PublishExcept(ctx context.Context, room, name string, payload any, except string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	envelope := event.Envelope{
		Origin:  b.origin,
		Room:    domain.NormalizeRoom(room),
		Name:    name,
		Except:  except,
		Payload: raw,
	}

	b.deliver(ctx, envelope)

	if b.relay != nil {
		if err := b.relay.Publish(ctx, envelope); err != nil {
			b.log.Warn("Relay publish failed",
				"room", envelope.Room, "event", name,
				"error", fmt.Errorf("%w: %w", errors.ErrRelayLoss, err))
		}
	}
	return nil
}

// DeliverRemote performs local delivery of an envelope received from the
// relay. Envelopes this process published itself are ignored: they were
// already delivered locally.
func (b *Bus) DeliverRemote(ctx context.Context, envelope event.Envelope) {
	if envelope.Origin == b.origin {
		return
	}
	b.deliver(ctx, envelope)
}

func (b *Bus) deliver(ctx context.Context, envelope event.Envelope) {
	b.mu.RLock()
	sinks := lo.Reject(b.rooms[envelope.Room], func(s contract.EventSink, _ int) bool {
		return envelope.Except != "" && s.ID() == envelope.Except
	})
	b.mu.RUnlock()

	frame := envelope.Frame()
	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
		if err := sink.Consume(sinkCtx, frame); err != nil {
			b.log.Debug("Sink dropped event",
				"connection_id", sink.ID(), "room", envelope.Room, "event", envelope.Name, "error", err)
		}
		cancel()
	}
}
