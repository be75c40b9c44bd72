// cmd/worker/main.go

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"campusevents/internal/adapter/social"
	"campusevents/internal/bootstrap"
	"campusevents/internal/config"
	"campusevents/internal/domain/discussion"
	discussionService "campusevents/internal/service/discussion"
	"campusevents/internal/service/normalize"
	"campusevents/internal/service/query"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	backend, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize backend: %v", err)
	}
	defer backend.Close()

	// Relay database change notifications to the shared broker
	bridge := backend.Bridge(cfg.Realtime, bootstrap.RoleWorker)
	if bridge != nil {
		if err := bridge.Start(ctx); err != nil {
			log.Fatalf("Failed to start notification bridge: %v", err)
		}
	}

	// Discussion sources
	if cfg.Worker.RedditClientID == "" {
		log.Println("[worker] REDDIT_CLIENT_ID not set, using the public Reddit API")
	}
	redditClient := social.NewRedditClient(social.RedditConfig{
		UserAgent:    cfg.Worker.RedditUserAgent,
		ClientID:     cfg.Worker.RedditClientID,
		ClientSecret: cfg.Worker.RedditClientSecret,
	})
	sources := []discussion.Source{
		social.NewRedditSource(redditClient, social.RedditSourceConfig{
			PostLimit:    cfg.Worker.RedditPostLimit,
			CommentLimit: cfg.Worker.RedditCommentLimit,
		}),
	}
	if cfg.Worker.TwitterBearerToken != "" {
		sources = append(sources, social.NewTwitterSource(
			cfg.Worker.TwitterBearerToken,
			cfg.Worker.TwitterHost,
			cfg.Worker.TwitterMaxResults,
		))
	} else {
		log.Println("[worker] TWITTER_BEARER_TOKEN not set, Twitter source disabled")
	}

	ingester := discussionService.NewIngester(
		backend.Events,
		backend.Discussion,
		query.NewBuilder(loc),
		normalize.New(loc),
		discussionService.IngesterConfig{
			Schedule:          cfg.Worker.Schedule,
			RunOnStart:        cfg.Worker.RunOnStart,
			DefaultSubreddits: cfg.Worker.DefaultSubreddits,
			CycleTimeout:      cfg.Worker.CycleTimeout,
		},
		sources...,
	)

	if err := ingester.Start(ctx); err != nil {
		log.Fatalf("Failed to start ingester: %v", err)
	}

	<-shutdown
	log.Println("Shutdown signal received")

	cancel()
	ingester.Stop()
	if bridge != nil {
		bridge.Stop()
	}

	log.Println("Shutdown complete")
}
