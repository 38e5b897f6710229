package main

import (
	"chat-sync/infrastructure/grpc/server"
	chathttp "chat-sync/infrastructure/http"
	"chat-sync/internal"
	"chat-sync/observability"
	"chat-sync/runtime"
	"chat-sync/runtime/workers"
	"chat-sync/services"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the chat server and blocks until SIGINT/SIGTERM or a server failure.
// Every resource is released by a deferred call before returning to main.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log, logCloser := internal.NewLogger(config)
	defer func() { _ = logCloser.Close() }()

	// 2. Message log
	repository, closeRepository, err := internal.OpenRepository(config, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing message log...", "backend", config.StorageBackend)
		_ = closeRepository()
	}()

	// 3. Core: hub, store, facade
	hub := runtime.NewSubscriptionHub(log)
	store := runtime.NewMessageStore(log, repository, hub, config.MaxContentLength)
	chatService := services.NewChatService(log, store, hub, runtime.SessionConfig{
		QueueSize:       config.SessionQueueSize,
		MaxFailures:     config.MaxDeliveryFailures,
		ReplayBatchSize: config.ReplayBatchSize,
	})
	defer chatService.Close()

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers
	monitoring := observability.NewMonitoringManager(log)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewTelemetryWorker(log, config.MetricInterval, store, hub, monitoring))
	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 6. gRPC Server Setup
	address := config.GrpcAddress()
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	chatServer := server.NewChatServer(log, chatService,
		config.ConnectionBufferSize, config.DeliveryTimeout, config.MaxHistoryLimit)
	s := server.NewGrpcServer(chatServer, config.RequireIdentity)

	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting gRPC server", "address", address, "at", time.Now().UTC())
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. Ops HTTP server
	var httpServer *http.Server
	if httpAddress := config.HTTPAddress(); httpAddress != "" {
		httpServer = chathttp.NewRouter(log, chatService, hub, monitoring, config.GinMode).NewServer(httpAddress)
		go func() {
			log.Info("Starting ops HTTP server", "address", httpAddress)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	// 8. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Server failure, shutting down", "error", runErr)
	}

	// 9. Final Cleanup: refuse new sessions, close the open ones, then drain the gRPC server
	chatService.Close()
	s.GracefulStop()
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
	stop()
	sup.Stop()
	<-supervisorDone
	log.Info("Program stopped cleanly")

	return runErr
}
