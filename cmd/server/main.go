package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sendify-chat/contract"
	"sendify-chat/infrastructure/admin"
	"sendify-chat/infrastructure/relay"
	"sendify-chat/infrastructure/store"
	"sendify-chat/infrastructure/ws"
	"sendify-chat/internal"
	"sendify-chat/moderation"
	"sendify-chat/runtime"
	"sendify-chat/runtime/workers"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run keeps every defer on the exit path, which os.Exit in main would skip.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Collaborators
	moderator, err := moderation.NewDefaultModerator(charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
	}
	storeClient := store.NewClient(config.StoreURL, config.StoreTimeout, logger)

	origin := uuid.NewString()
	var redisRelay *relay.RedisRelay
	if config.RedisAddr != "" {
		redisRelay, err = relay.Dial(ctx, config.RedisAddr, config.RelayChannel, logger)
		if err != nil {
			return exitRuntime, err
		}
		defer func() {
			logger.Info("Closing relay...")
			_ = redisRelay.Close()
		}()
	} else {
		logger.Warn("REDIS_ADDR not set, running as a single process")
	}

	// 4. Core
	bus := runtime.NewBus(logger, origin, relayOrNil(redisRelay), config.SinkTimeout)
	engine := runtime.NewEngine(logger, runtime.NewRegistry(), bus, storeClient, moderator, config.CommandBufferSize)
	server := ws.NewServer(logger, config.Addr(), engine, pingerOrNil(redisRelay), config.ConnectionBufferSize)
	health := admin.NewHealthServer(logger, config.AdminAddr(), pingerOrNil(redisRelay), config.HealthInterval)

	// 5. Supervision
	sup := workers.NewSupervisor(logger).WithRestartInterval(config.RestartInterval)
	sup.Add(engine, server, health)
	if redisRelay != nil {
		sup.Add(workers.NewRelayListener(logger, redisRelay, bus))
	}

	logger.Info("Starting chat server", "addr", config.Addr(), "admin_addr", config.AdminAddr(), "origin", origin)
	sup.Run(ctx)

	// 6. Final Cleanup
	engine.Stop()
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

// relayOrNil avoids handing the bus a typed nil.
func relayOrNil(r *relay.RedisRelay) contract.Relay {
	if r == nil {
		return nil
	}
	return r
}

func pingerOrNil(r *relay.RedisRelay) ws.HealthChecker {
	if r == nil {
		return nil
	}
	return r
}
