// Package client is the client side of the chat: a session holding the
// user's token pair and the websocket connection it opens.
package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"sendify-chat/auth"
	"sendify-chat/contract"
	"sendify-chat/domain"
	"sendify-chat/errors"
	"sendify-chat/infrastructure/ws"

	"github.com/fasthttp/websocket"
)

// DefaultLeeway refreshes tokens slightly before they actually expire.
const DefaultLeeway = 10 * time.Second

const (
	defaultReconnectAttempts = 5
	defaultReconnectInterval = time.Second
)

// Session owns the token pair. A failed refresh logs the session out for
// good: it never retries, the user has to log in again.
type Session struct {
	mu        sync.Mutex
	log       *slog.Logger
	account   contract.AccountClient
	store     contract.TokenStore
	serverURL string
	dialer    *websocket.Dialer
	tokens    domain.TokenPair
	loggedOut bool
	leeway    time.Duration
	now       func() time.Time

	reconnectAttempts int
	reconnectInterval time.Duration
}

// NewSession restores the pair saved by a previous run, if any.
func NewSession(log *slog.Logger, account contract.AccountClient, store contract.TokenStore, serverURL string) (*Session, error) {
	tokens, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Session{
		log:       log,
		account:   account,
		store:     store,
		serverURL: serverURL,
		dialer:    websocket.DefaultDialer,
		tokens:    tokens,
		loggedOut: tokens.Empty(),
		leeway:    DefaultLeeway,
		now:       time.Now,

		reconnectAttempts: defaultReconnectAttempts,
		reconnectInterval: defaultReconnectInterval,
	}, nil
}

func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// WithReconnect bounds how many dials Reconnect tries and how long it waits
// between them.
func (s *Session) WithReconnect(attempts int, interval time.Duration) *Session {
	s.reconnectAttempts = max(attempts, 1)
	s.reconnectInterval = interval
	return s
}

// Login installs a freshly issued pair.
func (s *Session) Login(tokens domain.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(tokens); err != nil {
		return err
	}
	s.tokens = tokens
	s.loggedOut = false
	return nil
}

func (s *Session) Tokens() domain.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// EnsureFresh exchanges the refresh token when the access token has expired.
func (s *Session) EnsureFresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureFreshLocked(ctx)
}

func (s *Session) ensureFreshLocked(ctx context.Context) error {
	if s.loggedOut {
		return errors.ErrLoggedOut
	}
	expired, err := auth.IsExpired(s.tokens.AccessToken, s.now(), s.leeway)
	if err != nil {
		s.log.Debug("Unreadable access token, refreshing", "error", err)
		expired = true
	}
	if !expired {
		return nil
	}

	tokens, err := s.account.Refresh(ctx, s.tokens.RefreshToken)
	if err != nil {
		s.logoutLocked()
		return fmt.Errorf("%w: %w", errors.ErrTokenExpired, err)
	}
	if err := s.store.Save(tokens); err != nil {
		s.log.Warn("Refreshed tokens not saved", "error", err)
	}
	s.tokens = tokens
	s.log.Info("Access token refreshed")
	return nil
}

// Profile returns the account behind the session.
func (s *Session) Profile(ctx context.Context) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFreshLocked(ctx); err != nil {
		return domain.Profile{}, err
	}
	return s.account.Profile(ctx, s.tokens.AccessToken)
}

// Dial opens the websocket with a fresh token and the handshake identity.
func (s *Session) Dial(ctx context.Context) (*Conn, error) {
	profile, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.Tokens().AccessToken)
	header.Set(ws.HeaderUserID, profile.ID)
	header.Set(ws.HeaderUsername, profile.DisplayName())

	socket, _, err := s.dialer.DialContext(ctx, s.serverURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.serverURL, err)
	}
	s.log.Info("Connected", "url", s.serverURL, "user_id", profile.ID)
	return newConn(socket, s.log), nil
}

// Reconnect opens a new connection after the transport dropped and joins room
// again when it is not empty. Every attempt goes through Dial, so an expired
// token is refreshed first. A refresh failure logs the session out and ends
// the attempts; only transport failures are retried.
func (s *Session) Reconnect(ctx context.Context, room string) (*Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= s.reconnectAttempts; attempt++ {
		conn, err := s.Dial(ctx)
		if err == nil {
			if room == "" {
				return conn, nil
			}
			if err = conn.Join(ctx, room); err == nil {
				s.log.Info("Reconnected", "room", room, "attempt", attempt)
				return conn, nil
			}
			_ = conn.Close()
			if !stderrors.Is(err, errors.ErrConnectionClosed) {
				return nil, fmt.Errorf("rejoin %s: %w", room, err)
			}
		}
		if stderrors.Is(err, errors.ErrLoggedOut) || stderrors.Is(err, errors.ErrTokenExpired) {
			return nil, err
		}
		lastErr = err
		s.log.Warn("Reconnect failed", "attempt", attempt, "error", err)

		if attempt == s.reconnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.reconnectInterval):
		}
	}
	return nil, fmt.Errorf("reconnect after %d attempts: %w", s.reconnectAttempts, lastErr)
}

// Logout discards the pair, locally and in the token store.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutLocked()
}

func (s *Session) logoutLocked() error {
	s.tokens = domain.TokenPair{}
	s.loggedOut = true
	if err := s.store.Clear(); err != nil {
		s.log.Warn("Tokens not cleared from store", "error", err)
		return err
	}
	return nil
}
