package httpapi

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akarlsen/craftwatch/internal/hub"
	"github.com/akarlsen/craftwatch/internal/mcserver"
)

// handleStart runs the daily backup routine, then boots the server.
// Accepted means the start script is running; readiness shows up later
// through status.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	backupCreated := false
	if s.backups != nil {
		created, err := s.backups.EnsureDaily()
		if err != nil {
			s.logger.Error("daily backup failed", "error", err)
			writeError(w, err)
			return
		}
		backupCreated = created
	}

	if err := s.controller.Start(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted":       true,
		"status":         "starting",
		"backup_created": backupCreated,
	})
}

// handleStop confirms the server is running, then stops it in the
// background so the request returns immediately.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.controller.Status().Running {
		writeError(w, mcserver.ErrNotRunning)
		return
	}

	go func() {
		if err := s.controller.Stop(contextWithoutCancel(r)); err != nil {
			if !errors.Is(err, mcserver.ErrNotRunning) {
				// Another concurrent stop may have won the race.
				s.logger.Error("background stop failed", "error", err)
			}
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"status":   "stopping",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Players())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	hub.ServeWS(s.statusHub, w, r, s.logger)
}

func (s *Server) handlePlayersStream(w http.ResponseWriter, r *http.Request) {
	hub.ServeWS(s.playersHub, w, r, s.logger)
}

// handleBackup archives the whole server directory and streams the ZIP
// to the client. The temporary archive is removed once sent.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		http.Error(w, "backups not configured", http.StatusNotFound)
		return
	}

	path, err := s.backups.CreateArchive()
	if err != nil {
		writeError(w, err)
		return
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="minecraft-server-backup.zip"`)
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", itoa64(info.Size()))
	}
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Debug("backup download aborted", "err", err)
	}
}

func (s *Server) handleModsDownload(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, s.cfg.ModsArchive, "application/zip")
}

func (s *Server) handleNeoForgeDownload(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, s.cfg.NeoForgeInstaller, "application/java-archive")
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, path, contentType string) {
	if path == "" {
		http.Error(w, "artifact not configured", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "artifact not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}
