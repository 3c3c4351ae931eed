/*
Package main is the entry point for the realtime chat relay.

It is responsible for loading configuration, initializing the global logging system,
constructing the in-memory stores and the hub event loop, setting up the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM).

Nothing here opens a database or writes to disk: every room, presence entry, and
relayed message lives in process memory and vanishes on restart.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wprchat/internal/app/chat"
	"wprchat/internal/configs"
	"wprchat/internal/handler"
	"wprchat/internal/pkg/logx"
)

func main() {
	// Load .env if present, then configuration from environment variables
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("max_room_users", cfg.MaxRoomUsers).
		Str("default_room_name", cfg.DefaultRoomName).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Construct the stores explicitly and hand them to the hub, which owns
	// them for the lifetime of the process.
	presence := chat.NewPresenceRegistry()
	rooms := chat.NewRoomDirectory(cfg.MaxRoomUsers, cfg.DefaultRoomName)
	hub := chat.NewHub(presence, rooms)

	go hub.Run()

	// Setup HTTP server and routes
	router := handler.Router(hub, cfg)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chat relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	hub.Stop()

	logx.Info("Server gracefully stopped. Memory cleared.")
}
