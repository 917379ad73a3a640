package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"sendify-chat/domain/event"
	"sendify-chat/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRelayListener_Delivers_Remote_Envelopes(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockRelay(ctrl)
	bus := mocks.NewMockIBus(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envelopes := make(chan event.Envelope, 1)
	envelope := event.Envelope{Origin: "process-b", Room: "general", Name: event.NameMessage}
	delivered := make(chan struct{})

	relay.EXPECT().Subscribe(gomock.Any()).Return((<-chan event.Envelope)(envelopes), nil)
	bus.EXPECT().DeliverRemote(gomock.Any(), envelope).Do(func(context.Context, event.Envelope) {
		close(delivered)
	})

	listener := NewRelayListener(logs.GetLoggerFromLevel(slog.LevelDebug), relay, bus)
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	// When a sibling publishes
	envelopes <- envelope

	// Then the envelope reaches the local bus
	select {
	case <-delivered:
	case <-time.After(time.Second):
		req.Fail("envelope was not delivered")
	}

	cancel()
	req.NoError(<-done)
}

func TestRelayListener_Closed_Subscription_Is_An_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	relay := mocks.NewMockRelay(ctrl)
	bus := mocks.NewMockIBus(ctrl)

	envelopes := make(chan event.Envelope)
	close(envelopes)
	relay.EXPECT().Subscribe(gomock.Any()).Return((<-chan event.Envelope)(envelopes), nil)

	err := NewRelayListener(logs.GetLoggerFromLevel(slog.LevelDebug), relay, bus).Run(context.Background())

	req.Error(err)
}
