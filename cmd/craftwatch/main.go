// craftwatch follows a craftwatchd panel from the terminal: it
// subscribes to the push streams when the panel supports them and
// falls back to interval polling when it does not.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akarlsen/craftwatch/internal/api"
	"github.com/akarlsen/craftwatch/internal/config"
	"github.com/akarlsen/craftwatch/internal/model"
	"github.com/akarlsen/craftwatch/internal/stream"
	"github.com/akarlsen/craftwatch/internal/throttle"
	"github.com/akarlsen/craftwatch/internal/version"
	"github.com/akarlsen/craftwatch/internal/watch"
)

func main() {
	configPath := flag.String("config", "", "optional watcher config file")
	panelURL := flag.String("panel", config.DefaultPanelURL, "panel base URL")
	token := flag.String("token", "", "bearer token (or CRAFTWATCH_TOKEN)")
	interval := flag.Duration("interval", watch.DefaultFallbackInterval, "poll cadence while the stream is down")
	retryDelay := flag.Duration("retry-delay", throttle.DefaultRetryDelay, "reconnect cooldown after a stream closes")
	storePath := flag.String("store", "", "cooldown store path (default: user cache dir)")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Explicit flags win over the config file, the file over built-in
	// defaults.
	if *configPath != "" {
		cfg, err := config.LoadWatcher(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		set := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if !set["panel"] {
			*panelURL = cfg.Panel.URL
		}
		if !set["token"] && cfg.Panel.Token != "" {
			*token = cfg.Panel.Token
		}
		if !set["interval"] {
			*interval = cfg.Watch.FallbackInterval
		}
		if !set["retry-delay"] {
			*retryDelay = cfg.Watch.StreamRetryDelay
		}
		if !set["store"] && cfg.Watch.ThrottleStore != "" {
			*storePath = cfg.Watch.ThrottleStore
		}
	}

	if *token == "" {
		*token = os.Getenv("CRAFTWATCH_TOKEN")
	}

	logger.Info("craftwatch starting",
		"version", version.Version,
		"panel", *panelURL,
		"interval", *interval,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	// REST client for snapshots and the reconnect cooldown registry for
	// streams. Cooldowns persist across runs so a flapping watcher does
	// not hammer the panel.
	client := api.NewClient(*panelURL, *token, api.WithLogger(logger))
	registry := newRegistry(*storePath, *retryDelay, logger)
	opener := stream.NewOpener(stream.WSBaseURL(*panelURL), *token, registry, logger)

	status := watch.NewStatusCoordinator(
		watch.Config[model.StatusSnapshot]{
			OpenStream: opener.StatusStream(),
			FetchSnapshot: func(ctx context.Context) (model.StatusSnapshot, error) {
				resp, err := client.GetServerStatus(ctx)
				if err != nil {
					return model.StatusSnapshot{}, err
				}
				return resp.ToModel(), nil
			},
			FallbackInterval: *interval,
			Logger:           logger.With("watch", "status"),
		},
		watch.Handlers[model.StatusSnapshot]{
			StreamOpened:      func() { logger.Info("status stream connected") },
			StreamUnsupported: func() { logger.Info("panel has no status stream, polling instead") },
			StreamErrored:     func(err error) { logger.Warn("status stream down", "err", err) },
			FallbackStarted:   func() { logger.Debug("status polling started") },
			FallbackStopped:   func() { logger.Debug("status polling stopped") },
			DataReceived:      printStatus,
			SnapshotSucceeded: printStatus,
			SnapshotFailed:    func(err error) { logger.Warn("status fetch failed", "err", err) },
		},
	)

	players := watch.NewPlayersCoordinator(
		watch.Config[model.Roster]{
			OpenStream: opener.PlayersStream(),
			FetchSnapshot: func(ctx context.Context) (model.Roster, error) {
				resp, err := client.GetPlayers(ctx)
				if err != nil {
					return model.Roster{}, err
				}
				return resp.ToModel(), nil
			},
			FallbackInterval: *interval,
			Logger:           logger.With("watch", "players"),
		},
		watch.Handlers[model.Roster]{
			StreamOpened:      func() { logger.Info("players stream connected") },
			StreamUnsupported: func() { logger.Info("panel has no players stream, polling instead") },
			StreamErrored:     func(err error) { logger.Warn("players stream down", "err", err) },
			DataReceived:      printRoster,
			SnapshotSucceeded: printRoster,
			SnapshotFailed:    func(err error) { logger.Warn("players fetch failed", "err", err) },
		},
	)

	status.Connect()
	players.Connect()

	<-ctx.Done()

	status.Cleanup()
	players.Cleanup()
	logger.Info("craftwatch stopped")
}

// newRegistry builds the cooldown registry, degrading to an in-memory
// store when no usable path exists.
func newRegistry(path string, retryDelay time.Duration, logger *slog.Logger) *throttle.Registry {
	var store throttle.Store
	if path == "" {
		def, err := throttle.DefaultStorePath()
		if err != nil {
			logger.Warn("no cooldown store path, cooldowns will not persist", "err", err)
			store = throttle.NewMemoryStore()
			return throttle.NewRegistry(store, throttle.WithRetryDelay(retryDelay), throttle.WithLogger(logger))
		}
		path = def
	}
	store = throttle.NewFileStore(path)
	return throttle.NewRegistry(store, throttle.WithRetryDelay(retryDelay), throttle.WithLogger(logger))
}

func printStatus(s model.StatusSnapshot) {
	fmt.Printf("[%s] server %s (running=%v)\n",
		stamp(s.CapturedAt), s.Status, s.Running)
}

func printRoster(r model.Roster) {
	names := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		names = append(names, p.Name)
	}
	list := "-"
	if len(names) > 0 {
		list = strings.Join(names, ", ")
	}
	fmt.Printf("[%s] players %d/%d: %s\n",
		stamp(r.CapturedAt), r.Count, r.Max, list)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("15:04:05")
}
