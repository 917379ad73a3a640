package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"sendify-chat/domain"
	"sendify-chat/domain/event"
	"sendify-chat/errors"
	"sendify-chat/infrastructure/ws"
	"sendify-chat/mocks"
	"sendify-chat/runtime"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type chatServer struct {
	url       string
	store     *mocks.MockStoreClient
	moderator *mocks.MockModerator
}

// startChatServer runs a single-process chat server on a random port.
func startChatServer(t *testing.T) chatServer {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := mocks.NewMockStoreClient(ctrl)
	moderator := mocks.NewMockModerator(ctrl)

	bus := runtime.NewBus(log, "process-a", nil, 100*time.Millisecond)
	engine := runtime.NewEngine(log, runtime.NewRegistry(), bus, store, moderator, 64)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = engine.Run(ctx) }()

	server := ws.NewServer(log, ":0", engine, nil, 16)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.App().Listener(ln) }()

	t.Cleanup(func() {
		_ = server.App().Shutdown()
		cancel()
		engine.Stop()
	})
	return chatServer{url: "ws://" + ln.Addr().String() + "/ws", store: store, moderator: moderator}
}

func dialAs(t *testing.T, server chatServer, id, firstname string) *Conn {
	t.Helper()
	session, account, _ := newTestSession(t, domain.TokenPair{
		AccessToken:  accessToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "refresh",
	})
	session.serverURL = server.url
	session.now = time.Now
	account.EXPECT().Profile(gomock.Any(), gomock.Any()).Return(domain.Profile{ID: id, Firstname: firstname, Lastname: "Test"}, nil)

	conn, err := session.Dial(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// nextMessage waits for a chat message that is not a presence notice.
func nextMessage(t *testing.T, conn *Conn) event.MessageEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case frame, ok := <-conn.Events():
			require.True(t, ok, "connection closed")
			if frame.Event != event.NameMessage {
				continue
			}
			var message event.MessageEvent
			require.NoError(t, json.Unmarshal(frame.Data, &message))
			if message.Username != event.SystemAuthor {
				return message
			}
		case <-timeout:
			t.Fatal("no message received")
		}
	}
}

func TestConn_Join_And_Send(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := startChatServer(t)

	alice := dialAs(t, server, "7", "Alice")
	bob := dialAs(t, server, "8", "Bob")
	req.NoError(alice.Join(ctx, "General"))
	req.NoError(bob.Join(ctx, "general"))

	server.moderator.EXPECT().Censor("hi bob").Return("hi bob", nil)
	server.store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Return(nil)

	req.NoError(alice.Send(ctx, domain.SendRequest{Content: "hi bob", Type: "text", Room: "general", ChannelID: "42"}))

	message := nextMessage(t, bob)
	req.Equal("hi bob", message.Content)
	req.Equal("Alice Test", message.Username)
}

func TestConn_Send_Rejected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := startChatServer(t)
	alice := dialAs(t, server, "7", "Alice")
	req.NoError(alice.Join(ctx, "general"))

	server.moderator.EXPECT().Censor("this is bullshit").Return("this is ********", []string{"bullshit"})

	err := alice.Send(ctx, domain.SendRequest{Content: "this is bullshit", Type: "text", Room: "general", ChannelID: "42"})

	req.ErrorIs(err, errors.ErrProfanityRejected)
}

func TestConn_Join_Validation_Error(t *testing.T) {
	server := startChatServer(t)
	alice := dialAs(t, server, "7", "Alice")

	err := alice.Join(context.Background(), "   ")

	require.ErrorIs(t, err, errors.ErrValidation)
}

// nextNotice waits for a presence notice with the given content.
func nextNotice(t *testing.T, conn *Conn, content string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case frame, ok := <-conn.Events():
			require.True(t, ok, "connection closed")
			var message event.MessageEvent
			if frame.Event == event.NameMessage && json.Unmarshal(frame.Data, &message) == nil &&
				message.Username == event.SystemAuthor && message.Content == content {
				return
			}
		case <-timeout:
			t.Fatalf("no %q notice received", content)
		}
	}
}

func TestSession_Reconnect_Refreshes_Then_Rejoins(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := startChatServer(t)
	session, account, store := newTestSession(t, domain.TokenPair{
		AccessToken:  accessToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "refresh-1",
	})
	session.serverURL = server.url
	session.now = time.Now
	profile := domain.Profile{ID: "7", Firstname: "Alice", Lastname: "Test"}
	account.EXPECT().Profile(gomock.Any(), gomock.Any()).Return(profile, nil).Times(2)

	// Given alice connected to general
	conn, err := session.Dial(ctx)
	req.NoError(err)
	req.NoError(conn.Join(ctx, "general"))

	// When the transport drops after her access token has expired
	req.NoError(conn.Close())
	<-conn.Done()
	later := time.Now().Add(2 * time.Hour)
	session.now = func() time.Time { return later }
	fresh := domain.TokenPair{AccessToken: accessToken(t, later.Add(time.Hour)), RefreshToken: "refresh-2"}
	account.EXPECT().Refresh(gomock.Any(), "refresh-1").Return(fresh, nil)
	store.EXPECT().Save(fresh).Return(nil)

	again, err := session.Reconnect(ctx, "general")

	// Then the pair is refreshed and she is back in general
	req.NoError(err)
	t.Cleanup(func() { _ = again.Close() })
	req.Equal(fresh, session.Tokens())
	nextNotice(t, again, "Welcome!")
}

func TestSession_Reconnect_Stops_When_Refresh_Fails(t *testing.T) {
	req := require.New(t)
	session, account, store := newTestSession(t, domain.TokenPair{
		AccessToken:  accessToken(t, sessionNow.Add(-time.Minute)),
		RefreshToken: "refresh-1",
	})
	session.WithReconnect(5, time.Millisecond)

	// Given the refresh token is rejected
	account.EXPECT().Refresh(gomock.Any(), "refresh-1").Return(domain.TokenPair{}, errors.ErrInvalidToken).Times(1)
	store.EXPECT().Clear().Return(nil)

	// When reconnecting
	_, err := session.Reconnect(context.Background(), "general")

	// Then the session is logged out after a single refresh attempt
	req.ErrorIs(err, errors.ErrTokenExpired)
	req.True(session.Tokens().Empty())
	_, err = session.Reconnect(context.Background(), "general")
	req.ErrorIs(err, errors.ErrLoggedOut)
}

func TestSession_Reconnect_Retries_Transport_Failures(t *testing.T) {
	req := require.New(t)
	session, account, _ := newTestSession(t, domain.TokenPair{
		AccessToken:  accessToken(t, sessionNow.Add(time.Hour)),
		RefreshToken: "refresh-1",
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	session.serverURL = "ws://" + ln.Addr().String() + "/ws"
	req.NoError(ln.Close())
	session.WithReconnect(3, time.Millisecond)

	// Given a server that is gone
	account.EXPECT().Profile(gomock.Any(), gomock.Any()).Return(domain.Profile{ID: "7", Firstname: "Alice", Lastname: "Test"}, nil).Times(3)

	// When reconnecting
	_, err = session.Reconnect(context.Background(), "general")

	// Then every attempt dials and the session stays logged in
	req.ErrorContains(err, "reconnect after 3 attempts")
	req.False(session.Tokens().Empty())
}

func TestRemoteError(t *testing.T) {
	req := require.New(t)

	req.NoError(remoteError(""))
	req.ErrorIs(remoteError("message could not be persisted: store answered 500"), errors.ErrPersistenceFailure)
	err := remoteError("something new")
	req.EqualError(err, "something new")
}
