package main

import (
	"context"
	"direct-chat/auth"
	"direct-chat/infrastructure/api"
	"direct-chat/infrastructure/websocket"
	"direct-chat/internal"
	"direct-chat/moderation"
	"direct-chat/repositories"
	"direct-chat/runtime"
	"direct-chat/runtime/workers"
	"direct-chat/services"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
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

// run wires every component and blocks until a signal is received.
// Deferred cleanups (database close) always run before the exit code is returned.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, repositories.InspectMapper)
	}

	// 3. Real-time core
	tokens := auth.NewJWTManager([]byte(config.JWTSecret), config.AuthTokenDuration)
	moderator, err := moderation.NewDefaultModerator(charReplacement, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderation setup failed: %w", err)
	}
	conversations := repositories.NewConversationRepository(db, logger, &config.LimitMessages)
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(registry, logger)
	connections := runtime.NewConnectionManager(tokens, registry, router, logger)
	orchestrator := runtime.NewOrchestrator(logger, conversations, router, connections, moderator,
		runtime.WithStrictFileTypes(config.StrictFileTypes))

	// 4. HTTP surface
	wsServer := websocket.NewServer(logger, connections, orchestrator, websocket.Options{
		BufferSize:    config.ConnectionBufferSize,
		MaxFrameBytes: config.MaxFrameBytes,
		WriteTimeout:  config.WriteTimeout,
		PongTimeout:   config.PongTimeout,
	})
	handler := api.NewHandler(logger,
		services.NewAuthService(repositories.NewUserRepository(db), tokens),
		services.NewHistoryService(conversations),
		tokens,
		registry)
	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           handler.Routes(wsServer),
		ReadHeaderTimeout: 10 * time.Second,
		// Open WebSockets end with the process context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// 5. Supervision
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	supervisor.Add(
		workers.NewHTTPServer(httpServer, logger),
		workers.NewPresenceReporter(registry, config.MetricInterval, logger),
	)

	logger.Info("Starting direct-chat", "address", config.Address(), "at", time.Now().UTC())
	supervisor.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}
