// craftwatchd is the panel daemon: it manages the Minecraft server
// process and serves the lifecycle, roster, backup, and download API
// that craftwatch clients consume.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akarlsen/craftwatch/internal/backup"
	"github.com/akarlsen/craftwatch/internal/config"
	"github.com/akarlsen/craftwatch/internal/database"
	"github.com/akarlsen/craftwatch/internal/events"
	"github.com/akarlsen/craftwatch/internal/history"
	"github.com/akarlsen/craftwatch/internal/httpapi"
	"github.com/akarlsen/craftwatch/internal/hub"
	"github.com/akarlsen/craftwatch/internal/mcserver"
	"github.com/akarlsen/craftwatch/internal/model"
	"github.com/akarlsen/craftwatch/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/craftwatchd.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting craftwatchd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"server_root", cfg.Server.Root,
		"listen", cfg.HTTP.Listen,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Server process manager
	manager := mcserver.New(mcserver.Config{
		Root:        cfg.Server.Root,
		StartScript: cfg.Server.StartScript,
		StopTimeout: cfg.Server.StopTimeout,
		MaxPlayers:  cfg.Server.MaxPlayers,
	}, logger)

	// Stream hubs, primed so the first subscriber sees current state
	statusHub := hub.New[model.StatusSnapshot]()
	playersHub := hub.New[model.Roster]()
	statusHub.Publish(manager.Status())
	playersHub.Publish(manager.Players())

	manager.OnStatus(func(snap model.StatusSnapshot, _ model.Transition) {
		statusHub.Publish(snap)
	})
	manager.OnRoster(func(roster model.Roster) {
		playersHub.Publish(roster)
	})

	// Optional lifecycle history database
	var historyWriter *history.Writer
	if cfg.History.Enabled {
		logger.Info("connecting to history database",
			"host", cfg.History.Database.Host,
			"port", cfg.History.Database.Port,
			"database", cfg.History.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.History.Database)
		if err != nil {
			logger.Error("failed to connect to history database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		historyWriter = history.NewWriter(
			history.WriterConfig{
				Instance:      cfg.Instance.ID,
				BatchSize:     cfg.History.BatchSize,
				FlushInterval: cfg.History.FlushInterval,
				BufferSize:    cfg.History.BufferSize,
			},
			events.NewQueue[model.Transition](cfg.History.BufferSize),
			pool,
			logger,
		)
		if err := historyWriter.Start(ctx); err != nil {
			logger.Error("failed to start history writer", "error", err)
			os.Exit(1)
		}

		manager.OnStatus(func(_ model.StatusSnapshot, tr model.Transition) {
			historyWriter.Record(tr)
		})

		logger.Info("history database connected")
	}

	// Backups
	store := backup.NewDailyStore(cfg.Backups.Dir, cfg.Backups.RetentionDays, logger)
	backups := backup.NewService(store, cfg.Server.Root)

	// HTTP API
	server := httpapi.New(
		httpapi.Config{
			Listen:            cfg.HTTP.Listen,
			Token:             cfg.HTTP.Token,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
			Instance:          cfg.Instance.ID,
			ModsArchive:       cfg.Downloads.ModsArchive,
			NeoForgeInstaller: cfg.Downloads.NeoForgeInstaller,
		},
		manager,
		backups,
		statusHub,
		playersHub,
		logger,
	)
	if err := server.Start(); err != nil {
		logger.Error("failed to start http server", "error", err)
		os.Exit(1)
	}

	logger.Info("craftwatchd running",
		"instance_id", cfg.Instance.ID,
		"health_url", "http://"+cfg.HTTP.Listen+"/healthz",
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}

	// The daemon owns the server process; leaving it orphaned would cut
	// its console pipe. Stop it gracefully on the way out.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.StopTimeout+10*time.Second)
	if err := manager.Stop(stopCtx); err != nil && !errors.Is(err, mcserver.ErrNotRunning) {
		logger.Warn("server stop on shutdown failed", "error", err)
	}
	stopCancel()

	statusHub.Close()
	playersHub.Close()

	if historyWriter != nil {
		historyWriter.Stop(shutdownCtx)
	}

	logger.Info("craftwatchd stopped")
}
