package main

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sendify-chat/client"
	"sendify-chat/domain"
	"sendify-chat/domain/event"
	"sendify-chat/errors"
	"sendify-chat/infrastructure/account"
	"sendify-chat/storage"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
	exitAuth    = 3
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Session restored from the token database.
	db, err := storage.Open(config.TokenDBPath)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = db.Close() }()

	session, err := client.NewSession(log,
		account.NewClient(config.AccountURL, config.AccountTimeout),
		storage.NewTokenStore(db, log),
		config.ServerURL)
	if err != nil {
		return exitRuntime, err
	}
	if config.AccessToken != "" {
		if err := session.Login(domain.TokenPair{AccessToken: config.AccessToken, RefreshToken: config.RefreshToken}); err != nil {
			return exitRuntime, err
		}
	}

	// 3. Connect and join.
	conn, err := session.Dial(ctx)
	if isAuthFailure(err) {
		return exitAuth, fmt.Errorf("please log in again: %w", err)
	}
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = conn.Close() }()

	room := config.Room
	if err := conn.Join(ctx, room); err != nil {
		return exitRuntime, fmt.Errorf("join %s: %w", room, err)
	}

	v := view{out: os.Stdout, colours: config.Colours}
	go render(v, conn.Events())

	// 4. Input loop: plain lines are messages, slash commands drive the session.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case <-conn.Done():
			// Transport dropped: refresh if needed, dial again, rejoin.
			fmt.Fprintln(v.out, "Reconnecting...")
			conn, err = session.Reconnect(ctx, room)
			if isAuthFailure(err) {
				return exitAuth, fmt.Errorf("please log in again: %w", err)
			}
			if err != nil {
				return exitRuntime, err
			}
			go render(v, conn.Events())
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			switch {
			case line == "/quit":
				return exitOK, nil
			case line == "/logout":
				if err := session.Logout(); err != nil {
					return exitRuntime, err
				}
				return exitOK, nil
			case strings.HasPrefix(line, "/join "):
				next := strings.TrimSpace(strings.TrimPrefix(line, "/join "))
				if err := conn.Join(ctx, next); err != nil {
					v.failure(err)
					continue
				}
				room = next
			default:
				request, ok := parseInput(line, room, config.ChannelID)
				if !ok {
					continue
				}
				if err := conn.Send(ctx, request); err != nil {
					v.failure(err)
				}
			}
		}
	}
}

func isAuthFailure(err error) bool {
	return stderrors.Is(err, errors.ErrLoggedOut) || stderrors.Is(err, errors.ErrTokenExpired)
}

func render(v view, frames <-chan event.Frame) {
	for frame := range frames {
		switch frame.Event {
		case event.NameMessage:
			var m event.MessageEvent
			if err := json.Unmarshal(frame.Data, &m); err == nil {
				v.message(m)
			}
		case event.NameRoomRoster:
			var r event.RosterEvent
			if err := json.Unmarshal(frame.Data, &r); err == nil {
				v.roster(r)
			}
		case event.NameError:
			v.failure(stderrors.New(frame.Error))
		}
	}
	fmt.Fprintln(v.out, "Connection closed")
}
