package mcserver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/akarlsen/craftwatch/internal/model"
)

const fakeServerScript = `#!/bin/sh
echo '[12:00:00] [Server thread/INFO]: Done (1.0s)! For help, type "help"'
echo '[12:00:01] [User Authenticator #1/INFO]: UUID of player Notch is 069a79f4-44e9-4726-a5be-fca90e38aaf5'
echo '[12:00:02] [Server thread/INFO]: Notch joined the game'
while read line; do
	if [ "$line" = "stop" ]; then
		echo '[12:00:09] [Server thread/INFO]: Notch left the game'
		exit 0
	fi
done
`

func writeScript(t *testing.T, content string) Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a POSIX shell")
	}
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "run.sh"), []byte(content), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return Config{
		Root:        root,
		StartScript: "run.sh",
		StopTimeout: 5 * time.Second,
		MaxPlayers:  20,
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManager_Lifecycle(t *testing.T) {
	cfg := writeScript(t, fakeServerScript)
	m := New(cfg, nil)

	transitions := make(chan model.Transition, 8)
	rosters := make(chan model.Roster, 8)
	m.OnStatus(func(_ model.StatusSnapshot, tr model.Transition) { transitions <- tr })
	m.OnRoster(func(r model.Roster) { rosters <- r })

	if got := m.Status(); got.Status != model.StatusStopped || got.Running {
		t.Fatalf("initial status = %+v, want stopped", got)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	tr := <-transitions
	if tr.From != model.StatusStopped || tr.To != model.StatusStarting {
		t.Errorf("transition 1 = %+v, want stopped->starting", tr)
	}

	waitUntil(t, "running state", func() bool { return m.Status().Status == model.StatusRunning })
	tr = <-transitions
	if tr.From != model.StatusStarting || tr.To != model.StatusRunning {
		t.Errorf("transition 2 = %+v, want starting->running", tr)
	}

	waitUntil(t, "roster with Notch", func() bool { return m.Players().Count == 1 })
	roster := m.Players()
	if roster.Players[0].Name != "Notch" {
		t.Errorf("roster = %+v, want Notch", roster)
	}
	if roster.Players[0].ID.String() != "069a79f4-44e9-4726-a5be-fca90e38aaf5" {
		t.Errorf("player ID = %s, want announced UUID", roster.Players[0].ID)
	}
	if roster.Max != 20 {
		t.Errorf("roster.Max = %d, want 20", roster.Max)
	}

	// Second start is refused while the process is alive.
	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	waitUntil(t, "stopped state", func() bool { return m.Status().Status == model.StatusStopped })
	if got := m.Players().Count; got != 0 {
		t.Errorf("roster after stop has %d players, want 0", got)
	}

	if err := m.Stop(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop while stopped = %v, want ErrNotRunning", err)
	}

	// Roster handlers saw the join and the leave/reset.
	waitUntil(t, "roster notifications", func() bool { return len(rosters) >= 2 })
}

func TestManager_StopKillsUnresponsiveServer(t *testing.T) {
	cfg := writeScript(t, "#!/bin/sh\nexec sleep 60\n")
	cfg.StopTimeout = 200 * time.Millisecond
	m := New(cfg, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	start := time.Now()
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < cfg.StopTimeout {
		t.Errorf("Stop returned in %v, before the grace period", elapsed)
	}

	waitUntil(t, "stopped state", func() bool { return m.Status().Status == model.StatusStopped })
}

func TestManager_MissingScript(t *testing.T) {
	m := New(Config{Root: t.TempDir(), StartScript: "nope.sh"}, nil)
	if err := m.Start(context.Background()); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("Start = %v, want ErrScriptNotFound", err)
	}
}

func TestManager_CrashResetsState(t *testing.T) {
	cfg := writeScript(t, "#!/bin/sh\nexit 1\n")
	m := New(cfg, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitUntil(t, "stopped after crash", func() bool { return m.Status().Status == model.StatusStopped })
}
