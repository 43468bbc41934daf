package mcserver

import (
	"strings"

	"github.com/google/uuid"
)

type eventKind int

const (
	eventNone eventKind = iota
	eventDone           // server finished booting
	eventUUID           // login announced a player's UUID
	eventJoined
	eventLeft
)

type consoleEvent struct {
	kind eventKind
	name string
	id   uuid.UUID
}

// parseConsoleLine classifies one line of server console output.
// Vanilla and NeoForge servers prefix every line with
// "[HH:MM:SS] [Thread/LEVEL]: "; the message after that prefix is what
// matters. Lines that carry no lifecycle or roster information return
// kind eventNone.
func parseConsoleLine(line string) consoleEvent {
	msg := line
	if i := strings.Index(line, "]: "); i >= 0 {
		msg = line[i+3:]
	}

	switch {
	case strings.HasPrefix(msg, "Done ("):
		return consoleEvent{kind: eventDone}

	case strings.HasPrefix(msg, "UUID of player "):
		// "UUID of player Notch is 069a79f4-44e9-4726-a5be-fca90e38aaf5"
		rest := strings.TrimPrefix(msg, "UUID of player ")
		i := strings.LastIndex(rest, " is ")
		if i < 0 {
			return consoleEvent{}
		}
		name := rest[:i]
		id, err := uuid.Parse(strings.TrimSpace(rest[i+4:]))
		if err != nil || name == "" {
			return consoleEvent{}
		}
		return consoleEvent{kind: eventUUID, name: name, id: id}

	case strings.HasSuffix(msg, " joined the game"):
		name := strings.TrimSuffix(msg, " joined the game")
		// Chat lines quote the player name in brackets; real join
		// messages never do.
		if name == "" || strings.ContainsAny(name, "<>[]") {
			return consoleEvent{}
		}
		return consoleEvent{kind: eventJoined, name: name}

	case strings.HasSuffix(msg, " left the game"):
		name := strings.TrimSuffix(msg, " left the game")
		if name == "" || strings.ContainsAny(name, "<>[]") {
			return consoleEvent{}
		}
		return consoleEvent{kind: eventLeft, name: name}
	}

	return consoleEvent{}
}
