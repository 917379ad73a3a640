package workers

import (
	"context"
	"fmt"
	"log/slog"

	"sendify-chat/contract"
)

// RelayListener feeds envelopes published by sibling processes into the
// local bus. A closed subscription is reported as an error so the supervisor
// resubscribes.
type RelayListener struct {
	log   *slog.Logger
	relay contract.Relay
	bus   contract.IBus
}

func NewRelayListener(log *slog.Logger, relay contract.Relay, bus contract.IBus) *RelayListener {
	return &RelayListener{log: log, relay: relay, bus: bus}
}

func (w *RelayListener) Run(ctx context.Context) error {
	envelopes, err := w.relay.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to relay: %w", err)
	}
	w.log.Info("Listening to relay")

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping relay listener")
			return nil
		case envelope, ok := <-envelopes:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("relay subscription closed")
			}
			w.bus.DeliverRemote(ctx, envelope)
		}
	}
}
