package commands

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/internal/logger"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/api"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/api/auth"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/blob"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/catalog"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/config"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/janitor"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/metrics"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/sharecode"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/signal"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TitaniumShare server",
	Long: `Start the TitaniumShare server with the specified configuration.

Use --config to specify a configuration file. All options can also be set
through environment variables, either the TITANIUMSHARE_* form or the flat
deployment names (BLOB_ENDPOINT, SESSION_SECRET, and so on).

Examples:
  # Start with environment configuration only
  SESSION_SECRET=... BLOB_BUCKET=shares titaniumshare serve

  # Start with a config file
  titaniumshare serve --config /etc/titaniumshare/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	// Cancellable context for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("configuration loaded", "source", configSource())

	store, err := catalog.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing catalog", logger.Err(err))
		}
	}()

	blobs, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("connecting blob store: %w", err)
	}

	authSvc, err := auth.NewService(cfg.Session.Secret)
	if err != nil {
		return fmt.Errorf("configuring session verification: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	hub := signal.NewHub(store, m, signal.Config{
		IdleTimeout: cfg.Signaling.IdleTimeout(),
		RoomTTL:     cfg.Rooms.TTL(),
	})

	sweeper := janitor.New(store, blobs, hub, m, janitor.Config{
		Interval:  cfg.Janitor.Interval(),
		RoomGrace: cfg.Janitor.RoomGrace(),
	})
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("janitor stopped", logger.Err(err))
		}
	}()

	router := api.NewRouter(api.Deps{
		Catalog:        store,
		Blob:           blobs,
		Allocator:      sharecode.NewAllocator(),
		Auth:           authSvc,
		Metrics:        m,
		Signaling:      hub,
		MaxUploadBytes: cfg.Upload.MaxUploadBytes,
		PresignTTL:     cfg.Upload.PresignTTL(),
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	server := api.NewServer(cfg.Server, router)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	ossignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server is running", "port", cfg.Server.Port)

	select {
	case <-sigChan:
		ossignal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("server stopped gracefully")

	case err := <-serverDone:
		ossignal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", logger.Err(err))
			return err
		}
		logger.Info("server stopped")
	}

	return nil
}

// configSource returns a description of where the config was loaded from.
func configSource() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "environment and defaults"
}
