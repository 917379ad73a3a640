// Package relay carries fanout envelopes between chat processes over Redis
// pub/sub. Delivery is at most once: Redis does not buffer for subscribers
// that are down.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sendify-chat/domain/event"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "sendify:fanout"

type RedisRelay struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisRelay(client *redis.Client, channel string, log *slog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{client: client, channel: channel, log: log}
}

// Dial connects to addr and checks the server answers.
func Dial(ctx context.Context, addr, channel string, log *slog.Logger) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisRelay(client, channel, log), nil
}

func (r *RedisRelay) Publish(ctx context.Context, envelope event.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe returns envelopes published on the channel until ctx is done.
// The subscription is confirmed before returning.
func (r *RedisRelay) Subscribe(ctx context.Context) (<-chan event.Envelope, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}

	out := make(chan event.Envelope)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var envelope event.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
					r.log.Warn("Malformed relay envelope", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- envelope:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
