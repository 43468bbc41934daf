package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akarlsen/craftwatch/internal/model"
)

func TestClient_GetServerStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/server/status" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"running":true,"status":"running","captured_at":"2026-08-25T10:00:00Z"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	resp, err := client.GetServerStatus(context.Background())
	if err != nil {
		t.Fatalf("GetServerStatus failed: %v", err)
	}
	if !resp.Running || resp.Status != "running" {
		t.Errorf("unexpected response: %+v", resp)
	}

	snap := resp.ToModel()
	if snap.Status != model.StatusRunning {
		t.Errorf("Status = %q, want running", snap.Status)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("CapturedAt should carry the panel timestamp")
	}
}

func TestClient_GetPlayers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"players": [
				{"id":"069a79f4-44e9-4726-a5be-fca90e38aaf5","name":"Notch","joined_at":"2026-08-25T09:30:00Z"},
				{"id":"","name":"steve","joined_at":""}
			],
			"count": 2,
			"max": 20
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	resp, err := client.GetPlayers(context.Background())
	if err != nil {
		t.Fatalf("GetPlayers failed: %v", err)
	}

	roster := resp.ToModel()
	if roster.Count != 2 || roster.Max != 20 {
		t.Errorf("roster = %+v, want count=2 max=20", roster)
	}
	if len(roster.Players) != 2 {
		t.Fatalf("len(Players) = %d, want 2", len(roster.Players))
	}
	if roster.Players[0].Name != "Notch" || roster.Players[0].ID.String() != "069a79f4-44e9-4726-a5be-fca90e38aaf5" {
		t.Errorf("player 0 = %+v", roster.Players[0])
	}
	// Unparsable ID stays in the roster with a zero UUID.
	if roster.Players[1].Name != "steve" {
		t.Errorf("player 1 = %+v", roster.Players[1])
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"running":false,"status":"stopped"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
	resp, err := client.GetServerStatus(context.Background())
	if err != nil {
		t.Fatalf("GetServerStatus failed: %v", err)
	}
	if resp.Status != "stopped" {
		t.Errorf("Status = %q, want stopped", resp.Status)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
	_, err := client.GetServerStatus(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 4xx)", got)
	}
}

func TestClient_StartServerIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
	if _, err := client.StartServer(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (lifecycle commands are not retried)", got)
	}
}

func TestClient_StopServerConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"server is not running"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.StopServer(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d, want 409", apiErr.StatusCode)
	}
	if apiErr.IsRetryable() {
		t.Error("409 must not be retryable")
	}
}

func TestParseTimestamp(t *testing.T) {
	if !ParseTimestamp("").IsZero() {
		t.Error("empty input should give zero time")
	}
	if !ParseTimestamp("garbage").IsZero() {
		t.Error("invalid input should give zero time")
	}
	got := ParseTimestamp("2026-08-25T10:00:00Z")
	if got.IsZero() || got.UTC().Hour() != 10 {
		t.Errorf("ParseTimestamp = %v", got)
	}
	// No timezone suffix falls back to the naive layout.
	if ParseTimestamp("2026-08-25T10:00:00").IsZero() {
		t.Error("naive timestamp should parse")
	}
}
