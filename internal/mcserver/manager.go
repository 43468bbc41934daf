package mcserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akarlsen/craftwatch/internal/model"
)

// Errors surfaced by lifecycle operations.
var (
	ErrAlreadyRunning = errors.New("server is already running")
	ErrNotRunning     = errors.New("server is not running")
	ErrScriptNotFound = errors.New("start script not found")
)

// Config describes the managed server process.
type Config struct {
	Root        string        // server directory, working dir of the process
	StartScript string        // launch script relative to Root
	StopTimeout time.Duration // grace period after "stop" before the process is killed
	MaxPlayers  int
}

// StatusFunc receives every lifecycle transition with the resulting
// snapshot. Handlers run on the manager's goroutines and must not block.
type StatusFunc func(model.StatusSnapshot, model.Transition)

// RosterFunc receives every roster change.
type RosterFunc func(model.Roster)

// Manager owns the Minecraft server process.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	state  model.ServerStatus
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	waitCh chan struct{} // closed when the current process has been reaped

	players map[string]model.Player // keyed by player name
	uuids   map[string]uuid.UUID    // name -> UUID announced at login

	statusFns []StatusFunc
	rosterFns []RosterFunc
}

// New creates a manager. The server is not started.
func New(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		state:   model.StatusStopped,
		players: make(map[string]model.Player),
		uuids:   make(map[string]uuid.UUID),
	}
}

// OnStatus registers a lifecycle transition handler. Register before
// the first Start.
func (m *Manager) OnStatus(fn StatusFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusFns = append(m.statusFns, fn)
}

// OnRoster registers a roster change handler. Register before the
// first Start.
func (m *Manager) OnRoster(fn RosterFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rosterFns = append(m.rosterFns, fn)
}

// Start boots the server via the configured launch script. The call
// returns once the process is running; readiness is observed later
// through console output and surfaces as the running state.
func (m *Manager) Start(ctx context.Context) error {
	script := filepath.Join(m.cfg.Root, m.cfg.StartScript)
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, script)
	}

	m.mu.Lock()
	if m.state.Running() {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}

	cmd := exec.Command(script)
	cmd.Dir = m.cfg.Root
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("start %s: %w", script, err)
	}

	m.cmd = cmd
	m.stdin = stdin
	m.waitCh = make(chan struct{})
	m.players = make(map[string]model.Player)
	m.uuids = make(map[string]uuid.UUID)
	fire := m.setStateLocked(model.StatusStarting)
	waitCh := m.waitCh
	m.mu.Unlock()

	for _, f := range fire {
		f()
	}

	m.logger.Info("server starting", "script", script, "pid", cmd.Process.Pid)

	go m.watchConsole(stdout)
	go m.reap(cmd, waitCh)

	return nil
}

// Stop shuts the server down: a "stop" command on stdin, then a kill
// once the grace period runs out. It returns after the process exits
// or ctx is done.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.state.Running() {
		m.mu.Unlock()
		return ErrNotRunning
	}
	cmd := m.cmd
	stdin := m.stdin
	waitCh := m.waitCh
	m.mu.Unlock()

	if stdin != nil {
		if _, err := io.WriteString(stdin, "stop\n"); err != nil {
			m.logger.Warn("stop command write failed, killing process", "err", err)
		}
	}

	grace := m.cfg.StopTimeout
	if grace <= 0 {
		grace = time.Minute
	}

	select {
	case <-waitCh:
		return nil
	case <-ctx.Done():
		cmd.Process.Kill()
		return ctx.Err()
	case <-time.After(grace):
		m.logger.Warn("server ignored stop command, killing process", "pid", cmd.Process.Pid)
		cmd.Process.Kill()
	}

	select {
	case <-waitCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current lifecycle snapshot.
func (m *Manager) Status() model.StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Players returns the current roster, ordered by join time.
func (m *Manager) Players() model.Roster {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rosterLocked()
}

func (m *Manager) snapshotLocked() model.StatusSnapshot {
	return model.StatusSnapshot{
		Running:    m.state.Running(),
		Status:     m.state,
		CapturedAt: time.Now(),
	}
}

func (m *Manager) rosterLocked() model.Roster {
	players := make([]model.Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].Name < players[j].Name
	})
	return model.Roster{
		Players:    players,
		Count:      len(players),
		Max:        m.cfg.MaxPlayers,
		CapturedAt: time.Now(),
	}
}

// setStateLocked moves the lifecycle state and returns the handler
// invocations to fire after the lock is released.
func (m *Manager) setStateLocked(to model.ServerStatus) []func() {
	if m.state == to {
		return nil
	}
	tr := model.Transition{From: m.state, To: to, At: time.Now()}
	m.state = to
	snap := m.snapshotLocked()

	m.logger.Debug("server state transition", "from", tr.From, "to", tr.To)

	fire := make([]func(), 0, len(m.statusFns))
	for _, fn := range m.statusFns {
		fn := fn
		fire = append(fire, func() { fn(snap, tr) })
	}
	return fire
}

func (m *Manager) notifyRosterLocked() []func() {
	roster := m.rosterLocked()
	fire := make([]func(), 0, len(m.rosterFns))
	for _, fn := range m.rosterFns {
		fn := fn
		fire = append(fire, func() { fn(roster) })
	}
	return fire
}

// watchConsole drains stdout so the server never blocks on a full
// pipe, and mines the lines for readiness and roster changes.
func (m *Manager) watchConsole(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		ev := parseConsoleLine(scanner.Text())
		if ev.kind == eventNone {
			continue
		}

		m.mu.Lock()
		var fire []func()
		switch ev.kind {
		case eventDone:
			if m.state == model.StatusStarting {
				fire = m.setStateLocked(model.StatusRunning)
			}

		case eventUUID:
			m.uuids[ev.name] = ev.id
			if p, ok := m.players[ev.name]; ok && p.ID == uuid.Nil {
				p.ID = ev.id
				m.players[ev.name] = p
				fire = m.notifyRosterLocked()
			}

		case eventJoined:
			if _, ok := m.players[ev.name]; !ok {
				m.players[ev.name] = model.Player{
					ID:       m.uuids[ev.name],
					Name:     ev.name,
					JoinedAt: time.Now(),
				}
				fire = m.notifyRosterLocked()
			}

		case eventLeft:
			if _, ok := m.players[ev.name]; ok {
				delete(m.players, ev.name)
				fire = m.notifyRosterLocked()
			}
		}
		m.mu.Unlock()

		for _, f := range fire {
			f()
		}
	}
}

// reap waits for the process to exit, then resets the lifecycle state
// and roster.
func (m *Manager) reap(cmd *exec.Cmd, waitCh chan struct{}) {
	err := cmd.Wait()

	m.mu.Lock()
	if m.cmd == cmd {
		m.cmd = nil
		m.stdin = nil
	}
	var fire []func()
	if len(m.players) > 0 {
		m.players = make(map[string]model.Player)
		fire = append(fire, m.notifyRosterLocked()...)
	}
	m.uuids = make(map[string]uuid.UUID)
	fire = append(fire, m.setStateLocked(model.StatusStopped)...)
	m.mu.Unlock()

	for _, f := range fire {
		f()
	}

	if err != nil {
		m.logger.Info("server process exited", "err", err)
	} else {
		m.logger.Info("server process exited")
	}
	close(waitCh)
}
