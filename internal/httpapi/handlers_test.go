package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akarlsen/craftwatch/internal/hub"
	"github.com/akarlsen/craftwatch/internal/mcserver"
	"github.com/akarlsen/craftwatch/internal/model"
	"github.com/akarlsen/craftwatch/internal/watch"
)

type fakeController struct {
	mu      sync.Mutex
	status  model.StatusSnapshot
	roster  model.Roster
	started int
	stopped int

	startErr error
	calls    []string
}

func (f *fakeController) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start")
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	f.status = model.StatusSnapshot{Running: true, Status: model.StatusStarting}
	return nil
}

func (f *fakeController) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	f.status = model.StatusSnapshot{Running: false, Status: model.StatusStopped}
	return nil
}

func (f *fakeController) Status() model.StatusSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) Players() model.Roster {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roster
}

type fakeBackups struct {
	mu      sync.Mutex
	created bool
	err     error
	calls   *fakeController // shared call log for ordering checks

	archive string
}

func (f *fakeBackups) EnsureDaily() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls != nil {
		f.calls.mu.Lock()
		f.calls.calls = append(f.calls.calls, "backup")
		f.calls.mu.Unlock()
	}
	return f.created, f.err
}

func (f *fakeBackups) CreateArchive() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.archive, nil
}

func newTestServer(t *testing.T, ctrl *fakeController, backups BackupService) (*Server, *httptest.Server) {
	t.Helper()
	s := New(
		Config{Instance: "test"},
		ctrl,
		backups,
		hub.New[model.StatusSnapshot](),
		hub.New[model.Roster](),
		nil,
	)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHandleStart_BackupThenStart(t *testing.T) {
	ctrl := &fakeController{status: model.StatusSnapshot{Status: model.StatusStopped}}
	backups := &fakeBackups{created: true, calls: ctrl}
	_, ts := newTestServer(t, ctrl, backups)

	resp, err := http.Post(ts.URL+"/api/server/start", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}

	var body struct {
		Accepted      bool   `json:"accepted"`
		Status        string `json:"status"`
		BackupCreated bool   `json:"backup_created"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Accepted || body.Status != "starting" || !body.BackupCreated {
		t.Errorf("body = %+v", body)
	}

	ctrl.mu.Lock()
	calls := append([]string(nil), ctrl.calls...)
	ctrl.mu.Unlock()
	if len(calls) != 2 || calls[0] != "backup" || calls[1] != "start" {
		t.Errorf("calls = %v, want backup before start", calls)
	}
}

func TestHandleStart_AlreadyRunning(t *testing.T) {
	ctrl := &fakeController{startErr: mcserver.ErrAlreadyRunning}
	_, ts := newTestServer(t, ctrl, nil)

	resp, err := http.Post(ts.URL+"/api/server/start", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestHandleStart_MissingScript(t *testing.T) {
	ctrl := &fakeController{startErr: mcserver.ErrScriptNotFound}
	_, ts := newTestServer(t, ctrl, nil)

	resp, err := http.Post(ts.URL+"/api/server/start", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleStop(t *testing.T) {
	ctrl := &fakeController{status: model.StatusSnapshot{Running: true, Status: model.StatusRunning}}
	_, ts := newTestServer(t, ctrl, nil)

	resp, err := http.Post(ts.URL+"/api/server/stop", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}

	// Stop runs in the background.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ctrl.mu.Lock()
		stopped := ctrl.stopped
		ctrl.mu.Unlock()
		if stopped == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("background stop never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandleStop_NotRunning(t *testing.T) {
	ctrl := &fakeController{status: model.StatusSnapshot{Status: model.StatusStopped}}
	_, ts := newTestServer(t, ctrl, nil)

	resp, err := http.Post(ts.URL+"/api/server/stop", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestHandleStatusAndPlayers(t *testing.T) {
	ctrl := &fakeController{
		status: model.StatusSnapshot{Running: true, Status: model.StatusRunning},
		roster: model.Roster{Players: []model.Player{{Name: "Notch"}}, Count: 1, Max: 20},
	}
	_, ts := newTestServer(t, ctrl, nil)

	resp, err := http.Get(ts.URL + "/api/server/status")
	if err != nil {
		t.Fatal(err)
	}
	var snap model.StatusSnapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()
	if snap.Status != model.StatusRunning {
		t.Errorf("status payload = %+v", snap)
	}

	resp, err = http.Get(ts.URL + "/api/server/players")
	if err != nil {
		t.Fatal(err)
	}
	var roster model.Roster
	json.NewDecoder(resp.Body).Decode(&roster)
	resp.Body.Close()
	if roster.Count != 1 || roster.Players[0].Name != "Notch" {
		t.Errorf("players payload = %+v", roster)
	}
}

func TestAuth(t *testing.T) {
	ctrl := &fakeController{}
	s := New(Config{Instance: "test", Token: "secret"}, ctrl, nil,
		hub.New[model.StatusSnapshot](), hub.New[model.Roster](), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	// Missing token is rejected on /api.
	resp, err := http.Get(ts.URL + "/api/server/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	// Correct token passes.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/server/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", resp.StatusCode)
	}

	// Health stays open for probes.
	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestHandleBackup_StreamsAndRemovesArchive(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "backup.zip")
	if err := os.WriteFile(archive, []byte("PK\x03\x04fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl, &fakeBackups{archive: archive})

	resp, err := http.Get(ts.URL + "/api/server/backup")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	if !strings.HasPrefix(string(buf[:n]), "PK") {
		t.Errorf("body = %q, want zip bytes", buf[:n])
	}

	// The temporary archive is deleted after streaming.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(archive); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("temporary archive was not removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandleModsDownload(t *testing.T) {
	mods := filepath.Join(t.TempDir(), "mods.zip")
	if err := os.WriteFile(mods, []byte("mods!"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctrl := &fakeController{}
	s := New(Config{ModsArchive: mods}, ctrl, nil,
		hub.New[model.StatusSnapshot](), hub.New[model.Roster](), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/mods/download")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	// NeoForge installer is unconfigured.
	resp, err = http.Get(ts.URL + "/api/neoforge/download")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unconfigured artifact", resp.StatusCode)
	}
}

func TestStatusStream_DeliversInitialAndLive(t *testing.T) {
	ctrl := &fakeController{}
	statusHub := hub.New[model.StatusSnapshot]()
	statusHub.Publish(model.StatusSnapshot{Running: true, Status: model.StatusRunning})

	s := New(Config{Instance: "test"}, ctrl, nil, statusHub, hub.New[model.Roster](), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + watch.StatusStreamPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var snap model.StatusSnapshot
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if snap.Status != model.StatusRunning {
		t.Errorf("initial = %+v", snap)
	}

	statusHub.Publish(model.StatusSnapshot{Running: false, Status: model.StatusStopped})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read live: %v", err)
	}
	if snap.Status != model.StatusStopped {
		t.Errorf("live = %+v", snap)
	}
}
