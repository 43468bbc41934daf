package stream

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akarlsen/craftwatch/internal/model"
	"github.com/akarlsen/craftwatch/internal/throttle"
	"github.com/akarlsen/craftwatch/internal/watch"
)

func newTestRegistry() *throttle.Registry {
	return throttle.NewRegistry(throttle.NewMemoryStore())
}

func TestOpener_EmptyBaseURLIsUnsupported(t *testing.T) {
	o := NewOpener("", "", newTestRegistry(), nil)

	res := o.StatusStream()(watch.StreamHandlers[model.StatusSnapshot]{})
	if !res.Unsupported {
		t.Errorf("OpenResult = %+v, want Unsupported", res)
	}
	if res.Session != nil {
		t.Error("unsupported result must not carry a session")
	}
}

func TestOpener_ThrottledReportsRetryDelay(t *testing.T) {
	reg := newTestRegistry()
	o := NewOpener("ws://panel.example", "", reg, nil)

	// A recorded open with no close means a session is still believed live.
	reg.RecordOpen("ws://panel.example" + watch.StatusStreamPath)

	res := o.StatusStream()(watch.StreamHandlers[model.StatusSnapshot]{})
	if res.Session != nil || res.Unsupported {
		t.Fatalf("OpenResult = %+v, want throttled", res)
	}
	if res.RetryIn != throttle.DefaultRetryDelay {
		t.Errorf("RetryIn = %v, want %v", res.RetryIn, throttle.DefaultRetryDelay)
	}
}

func TestOpener_DeliversOpenAndData(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != watch.StatusStreamPath {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"running":true,"status":"running"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`)) // must be skipped
		conn.WriteMessage(websocket.TextMessage, []byte(`{"running":false,"status":"stopped"}`))
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	reg := newTestRegistry()
	o := NewOpener(wsURL(server), "", reg, nil)

	var opened atomic.Int32
	payloads := make(chan model.StatusSnapshot, 4)

	res := o.StatusStream()(watch.StreamHandlers[model.StatusSnapshot]{
		OnOpen: func() { opened.Add(1) },
		OnData: func(s model.StatusSnapshot) { payloads <- s },
	})
	if res.Session == nil {
		t.Fatalf("OpenResult = %+v, want session", res)
	}
	defer res.Session.Close()

	want := []model.ServerStatus{model.StatusRunning, model.StatusStopped}
	for i, status := range want {
		select {
		case got := <-payloads:
			if got.Status != status {
				t.Errorf("payload %d status = %q, want %q", i, got.Status, status)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for payload %d", i)
		}
	}
	if got := opened.Load(); got != 1 {
		t.Errorf("OnOpen fired %d times, want 1", got)
	}

	// The registry saw the open.
	d := reg.Evaluate(wsURL(server) + watch.StatusStreamPath)
	if d.Permitted {
		t.Error("registry should block reconnects while the session is open")
	}
}

func TestOpener_DialFailureArmsCooldownAndReportsError(t *testing.T) {
	reg := newTestRegistry()
	o := NewOpener("ws://127.0.0.1:1", "", reg, nil)

	errs := make(chan error, 1)
	res := o.StatusStream()(watch.StreamHandlers[model.StatusSnapshot]{
		OnError: func(err error) { errs <- err },
	})
	if res.Session == nil {
		t.Fatalf("OpenResult = %+v, want session (dial is async)", res)
	}
	defer res.Session.Close()

	select {
	case <-errs:
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for dial error")
	}

	d := reg.Evaluate("ws://127.0.0.1:1" + watch.StatusStreamPath)
	if d.Permitted {
		t.Error("failed dial should arm the reconnect cooldown")
	}
}

func TestOpener_CloseRecordsClose(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	reg := newTestRegistry()
	o := NewOpener(wsURL(server), "", reg, nil)

	openedCh := make(chan struct{}, 1)
	res := o.PlayersStream()(watch.StreamHandlers[model.Roster]{
		OnOpen: func() { openedCh <- struct{}{} },
	})
	if res.Session == nil {
		t.Fatalf("OpenResult = %+v, want session", res)
	}

	select {
	case <-openedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnOpen")
	}

	res.Session.Close()

	// Close lands in the registry, so the cooldown is running rather
	// than the "still open" full block.
	endpoint := wsURL(server) + watch.PlayersStreamPath
	deadline := time.Now().Add(2 * time.Second)
	for {
		d := reg.Evaluate(endpoint)
		if !d.Permitted && d.Delay <= throttle.DefaultRetryDelay && d.Delay > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Evaluate after Close = %+v, want running cooldown", d)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWSBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://panel.example:8420", "ws://panel.example:8420"},
		{"https://panel.example", "wss://panel.example"},
		{"wss://panel.example/", "wss://panel.example"},
		{"ftp://panel.example", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		if got := WSBaseURL(tt.in); got != tt.want {
			t.Errorf("WSBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
