package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ivalora-gadget/console/internal/authflow"
	"github.com/ivalora-gadget/console/internal/config"
	"github.com/ivalora-gadget/console/internal/journal"
	"github.com/ivalora-gadget/console/internal/logger"
	"github.com/ivalora-gadget/console/internal/server"
	"github.com/ivalora-gadget/console/internal/session"
	"github.com/ivalora-gadget/console/internal/supabase"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	client := supabase.New(supabase.Config{
		URL:     cfg.Supabase.URL,
		AnonKey: cfg.Supabase.AnonKey,
	})
	client.SetLogger(log)

	activity, err := journal.Open(cfg.Journal.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open activity journal")
	}

	refresher, err := supabase.NewRefresher(client, cfg.Supabase.RefreshSchedule, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session refresher")
	}

	synchronizer := session.New(client, session.WithLogger(log))

	screens := authflow.NewService(client, authflow.Config{
		SiteURL: cfg.Supabase.SiteURL,
		Sink:    activity,
	}, log)

	srv := server.New(server.Options{
		Auth:        screens,
		Session:     synchronizer,
		Links:       client,
		Activity:    activity,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Version:     version,
	}, log)

	// Hooks run in reverse order: stop refreshing, close the view, then the journal
	srv.OnShutdown(func() {
		if err := activity.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing activity journal")
		}
	})
	srv.OnShutdown(synchronizer.Close)
	srv.OnShutdown(refresher.Stop)

	log.Info().Str("version", version).Msg("Starting Ivalora console server...")

	// Requests see a loading view until the first check settles
	go func() {
		if err := synchronizer.Start(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Initial session check failed")
		}
	}()
	refresher.Start()

	// Start HTTP server (this blocks)
	if err := srv.Start(cfg.HTTP.Addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
