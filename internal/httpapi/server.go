package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/akarlsen/craftwatch/internal/hub"
	"github.com/akarlsen/craftwatch/internal/model"
	"github.com/akarlsen/craftwatch/internal/version"
	"github.com/akarlsen/craftwatch/internal/watch"
)

// Controller is the server lifecycle surface the handlers drive.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() model.StatusSnapshot
	Players() model.Roster
}

// BackupService creates archives of the server directory.
type BackupService interface {
	EnsureDaily() (created bool, err error)
	CreateArchive() (path string, err error)
}

// Config holds the HTTP server settings.
type Config struct {
	Listen       string
	Token        string // bearer token for /api routes, empty disables auth
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Instance          string
	ModsArchive       string
	NeoForgeInstaller string
}

// Server is the panel HTTP server.
type Server struct {
	cfg        Config
	controller Controller
	backups    BackupService
	statusHub  *hub.Broadcaster[model.StatusSnapshot]
	playersHub *hub.Broadcaster[model.Roster]
	logger     *slog.Logger

	httpSrv *http.Server
}

// New creates the server. Start must be called before it listens.
func New(
	cfg Config,
	controller Controller,
	backups BackupService,
	statusHub *hub.Broadcaster[model.StatusSnapshot],
	playersHub *hub.Broadcaster[model.Roster],
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		controller: controller,
		backups:    backups,
		statusHub:  statusHub,
		playersHub: playersHub,
		logger:     logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/server/start", s.handleStart)
	mux.HandleFunc("POST /api/server/stop", s.handleStop)
	mux.HandleFunc("GET /api/server/status", s.handleStatus)
	mux.HandleFunc("GET /api/server/players", s.handlePlayers)
	mux.HandleFunc("GET "+watch.StatusStreamPath, s.handleStatusStream)
	mux.HandleFunc("GET "+watch.PlayersStreamPath, s.handlePlayersStream)
	mux.HandleFunc("GET /api/server/backup", s.handleBackup)
	mux.HandleFunc("GET /api/mods/download", s.handleModsDownload)
	mux.HandleFunc("GET /api/neoforge/download", s.handleNeoForgeDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.withAuth(mux)
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Listen)
		if err := s.httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"instance": s.cfg.Instance,
		"version":  version.Version,
	})
}
