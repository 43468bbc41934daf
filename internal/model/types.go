package model

import (
	"time"

	"github.com/google/uuid"
)

// ServerStatus is the high-level lifecycle state of the managed server process.
type ServerStatus string

const (
	StatusStopped  ServerStatus = "stopped"
	StatusStarting ServerStatus = "starting"
	StatusRunning  ServerStatus = "running"
)

// Valid reports whether s is one of the known lifecycle states.
func (s ServerStatus) Valid() bool {
	switch s {
	case StatusStopped, StatusStarting, StatusRunning:
		return true
	}
	return false
}

// Running reports whether the server process is alive (starting counts as alive).
func (s ServerStatus) Running() bool {
	return s == StatusStarting || s == StatusRunning
}

// ParseStatus converts a wire value into a ServerStatus.
// Unknown values map to StatusStopped so a garbled payload never
// presents a dead server as reachable.
func ParseStatus(v string) ServerStatus {
	s := ServerStatus(v)
	if !s.Valid() {
		return StatusStopped
	}
	return s
}

// StatusSnapshot is one point-in-time view of the server lifecycle state.
type StatusSnapshot struct {
	Running    bool         `json:"running"`
	Status     ServerStatus `json:"status"`
	CapturedAt time.Time    `json:"captured_at,omitzero"`
}

// Player is one connected player as reported by the server console.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// Roster is one point-in-time view of the connected-player roster.
type Roster struct {
	Players    []Player  `json:"players"`
	Count      int       `json:"count"`
	Max        int       `json:"max"`
	CapturedAt time.Time `json:"captured_at,omitzero"`
}

// Transition records a single lifecycle state change.
type Transition struct {
	From ServerStatus
	To   ServerStatus
	At   time.Time
}
