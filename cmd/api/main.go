// cmd/api/main.go

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"campusevents/internal/bootstrap"
	"campusevents/internal/config"
	"campusevents/internal/server"
	"campusevents/internal/service/explore"
	"campusevents/internal/service/normalize"
	"campusevents/internal/service/query"
	"campusevents/internal/service/trending"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loc, err := cfg.Display.Location()
	if err != nil {
		log.Fatalf("Failed to load display timezone: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	backend, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize backend: %v", err)
	}
	defer backend.Close()

	// Relay database change notifications to an in-process broker
	bridge := backend.Bridge(cfg.Realtime, bootstrap.RoleAPI)
	if bridge != nil {
		if err := bridge.Start(ctx); err != nil {
			log.Fatalf("Failed to start notification bridge: %v", err)
		}
	}

	// Initialize services
	builder := query.NewBuilder(loc)
	normalizer := normalize.New(loc)
	catalog := explore.NewCatalog(backend.Events, builder, normalizer)
	aggregator := trending.NewAggregator(backend.Events, builder, normalizer, trending.Config{
		Limit: cfg.Trending.Limit,
		View:  cfg.Trending.View,
	})

	controller := explore.DefaultControllerConfig()
	controller.Debounce = cfg.Explore.Debounce

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, server.Dependencies{
		Catalog:         catalog,
		Trending:        aggregator,
		Discussion:      backend.Discussion,
		Broker:          backend.Broker,
		Normalizer:      normalizer,
		Controller:      controller,
		DiscussionLimit: cfg.Discussion.Limit,
	})

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	log.Println("Shutting down services...")

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop notification bridge
	if bridge != nil {
		bridge.Stop()
	}

	log.Println("Shutdown complete")
}
