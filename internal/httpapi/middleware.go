package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/akarlsen/craftwatch/internal/backup"
	"github.com/akarlsen/craftwatch/internal/mcserver"
)

// withAuth enforces the bearer token on /api routes. The health
// endpoint stays open for probes.
func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.Token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "invalid or missing bearer token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, mcserver.ErrAlreadyRunning), errors.Is(err, mcserver.ErrNotRunning):
		status = http.StatusConflict
	case errors.Is(err, mcserver.ErrScriptNotFound),
		errors.Is(err, backup.ErrSourceNotFound):
		status = http.StatusNotFound
	}

	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}

// contextWithoutCancel detaches the stop operation from the request so
// the client disconnecting does not abort a shutdown in progress.
func contextWithoutCancel(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
