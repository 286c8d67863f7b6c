package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chathub/directory"
	"chathub/domain/event"
	"chathub/gateway"
	"chathub/internal"
	"chathub/moderation"
	"chathub/observability"
	"chathub/presence"
	"chathub/repositories"
	"chathub/rooms"
	"chathub/router"
	"chathub/runtime"
	"chathub/runtime/workers"
	"chathub/search"
	"chathub/services"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before the process
// exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	censoredChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Storage (in-memory by design: history dies with the process)
	db, err := repositories.OpenInMemory()
	if err != nil {
		return fmt.Errorf("history store opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing history store...")
		_ = db.Close()
	}()

	index, err := search.NewInMemory(log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() { _ = index.Close() }()

	// 3. Censoring dictionary
	loader := runtime.NewCensoredLoader(runtime.CensoredFS)
	data, err := loader.LoadAll("censored")
	if err != nil {
		return fmt.Errorf("censored words loading failed: %w", err)
	}
	log.Info(fmt.Sprintf("%d unique censored words loaded [%s]",
		len(data.Words), fmt.Sprint(data.Languages)))

	censor, err := moderation.NewCensor(data.Words, censoredChar, log)
	if err != nil {
		return fmt.Errorf("censor setup failed: %w", err)
	}

	// 4. Chat core
	stats := &observability.Stats{}
	dir := directory.New()
	history := repositories.NewHistoryRepository(db, log, config.HistoryLimit)
	registry := rooms.NewRegistry(dir, history, log)
	controller := moderation.NewController(dir, registry, log)
	rt := router.NewRouter(dir, registry, censor, log)
	publisher := presence.NewPublisher(registry)

	envelopes := make(chan event.Envelope, config.EnvelopeBufferSize)
	coordinator := runtime.NewCoordinator(log, dir, registry, controller, rt,
		publisher, index, stats, config.BufferSize, envelopes)

	sessions := runtime.NewRegistry()
	fanout := workers.NewEventFanout(log, sessions, envelopes, config.SinkTimeout, stats)
	monitoring := workers.NewMonitoringWorker(log, stats, config.MetricInterval)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervision
	sup := workers.NewSupervisor(log)
	sup.Add(coordinator, fanout, monitoring)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 7. HTTP server with the websocket gateway
	service := services.NewChatService(log, coordinator, sessions)
	handler := gateway.NewHandler(log, service, config.ConnectionBufferSize, config.WriteTimeout)

	server := &http.Server{
		Addr:    config.Addr,
		Handler: handler.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting chat server", "address", config.Addr, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Forced shutdown", "error", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
