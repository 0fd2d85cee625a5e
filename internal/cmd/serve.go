package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raynbowy23/Axon-City-sub002/internal/area"
	"github.com/raynbowy23/Axon-City-sub002/internal/cache"
	"github.com/raynbowy23/Axon-City-sub002/internal/config"
	"github.com/raynbowy23/Axon-City-sub002/internal/coordinator"
	"github.com/raynbowy23/Axon-City-sub002/internal/datasource"
	"github.com/raynbowy23/Axon-City-sub002/internal/fetch"
	"github.com/raynbowy23/Axon-City-sub002/internal/pipeline"
	"github.com/raynbowy23/Axon-City-sub002/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session API consumed by the web renderer",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")

	if err := viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	providerCache, err := cache.New(cache.Config{
		Backend: cfg.Cache.Backend,
		Path:    cfg.Cache.SQLitePath,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("setting up provider cache: %w", err)
	}

	client := datasource.NewClient(datasource.Config{
		Endpoint:     cfg.Overpass.Endpoint,
		QueryTimeout: cfg.Overpass.QueryTimeout,
		HTTPTimeout:  cfg.Overpass.HTTPTimeout,
		Cache:        providerCache,
		CacheTTL:     cfg.Cache.TTL,
		Logger:       logger,
	})
	defer client.Close()

	store := area.NewStore(logger)
	pl := pipeline.New(pipeline.Config{
		Fetcher: fetch.New(fetch.Config{
			Provider:        client,
			MaxRetries:      cfg.Fetch.MaxRetries,
			LayerDelay:      cfg.Fetch.LayerDelay,
			ThrottleBackoff: cfg.Fetch.ThrottleBackoff,
			TimeoutBackoff:  cfg.Fetch.TimeoutBackoff,
			Logger:          logger,
		}),
		Store:  store,
		Logger: logger,
	})
	coord := coordinator.New(coordinator.Config{
		Store:     store,
		Pipeline:  pl,
		Layers:    cfg.Layers,
		QueueSize: cfg.Fetch.QueueSize,
		Logger:    logger,
	})
	defer coord.Close()

	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr,
		Coordinator: coord,
		Store:       store,
		Logger:      logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received interrupt signal, shutting down...")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("session API listening",
		"addr", cfg.Server.Addr,
		"layers", len(cfg.Layers),
		"cache_backend", cfg.Cache.Backend,
		"overpass_endpoint", cfg.Overpass.Endpoint,
	)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", "error", err)
	}
	return nil
}
