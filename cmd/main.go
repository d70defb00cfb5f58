package main

import (
	"chat-gateway/api"
	"chat-gateway/auth"
	"chat-gateway/contract"
	"chat-gateway/gateway"
	"chat-gateway/infrastructure/grpc/server"
	"chat-gateway/infrastructure/storage"
	"chat-gateway/infrastructure/ws"
	"chat-gateway/internal"
	"chat-gateway/moderation"
	"chat-gateway/runtime"
	"chat-gateway/runtime/workers"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
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
		fmt.Fprintf(os.Stderr, "Gateway terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run owns every resource so deferred cleanup happens before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return exitConfig, fmt.Errorf("loading .env: %w", err)
	}
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(ctx, config, log))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		if err := db.Close(); err != nil {
			log.Error("BadgerDB close failed", "error", err)
		}
	}()

	// 3. Domain
	censor, err := buildCensor(config, log)
	if err != nil {
		return exitConfig, err
	}
	groups := storage.NewGroupRepository(db, log)
	messages := storage.NewMessageRepository(db, log, config.PageSize).WithLockStripes(config.LockStripes)
	registry := runtime.NewRegistry()
	verifier := auth.NewJWTVerifier([]byte(config.JWTSecret), config.JWTIssuer)
	gw := gateway.NewGateway(log, verifier, groups, messages, registry, censor, gateway.Config{
		AuthTimeout:   config.AuthTimeout,
		ReplayLimit:   config.ReplayLimit,
		BufferSize:    config.ConnectionBufferSize,
		MaxTextLength: config.MaxTextLength,
		LockStripes:   config.LockStripes,
	})

	// 4. Transports
	websocket := ws.NewHandler(log, gw, ws.Config{
		MaxMessageSize: int64(config.MaxMessageSize),
		AllowedOrigins: config.Origins(),
	})
	router := api.NewRouter(log, verifier, groups, messages, websocket, api.RouterConfig{
		AllowedOrigins: config.Origins(),
		PageSize:       config.PageSize,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthAddress := fmt.Sprintf("%s:%d", config.Host, config.HealthPort)
	healthListener, err := net.Listen("tcp", healthAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", healthAddress, err)
	}
	health := server.NewHealthServer(log)

	// 5. Background workers
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewStoreProbeWorker(db, health, log, config.StatsInterval),
		workers.NewProcessStatsWorker(log, config.StatsInterval),
		workers.NewValueLogGCWorker(db, log, config.GCInterval),
	)
	supervised := make(chan struct{})
	go func() {
		defer close(supervised)
		sup.Run(ctx)
	}()

	errChan := make(chan error, 2)
	go func() {
		if err := health.Serve(healthListener); err != nil {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()
	go func() {
		log.Info("Starting chat gateway", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	code, runErr := exitOK, error(nil)
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Graceful shutdown, in dependency order
	log.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	gw.Shutdown()
	health.Stop()
	sup.Stop()
	<-supervised
	log.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(ctx context.Context, config internal.Config, log *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}

// buildCensor returns nil when no dictionary directory is configured.
func buildCensor(config internal.Config, log *slog.Logger) (contract.Censor, error) {
	if config.CensoredDir == "" {
		return nil, nil
	}
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	dictionary, err := moderation.LoadDictionary(os.DirFS(config.CensoredDir))
	if err != nil {
		return nil, fmt.Errorf("loading censored words from %s: %w", config.CensoredDir, err)
	}
	moderator, err := moderation.NewModerator(dictionary.Words, replacement, log)
	if err != nil {
		return nil, err
	}
	log.Info("Censoring enabled", "languages", dictionary.Languages, "words", len(dictionary.Words))
	return moderator, nil
}
