package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/akarlsen/craftwatch/internal/model"
)

// ParseTimestamp parses an ISO 8601 timestamp. Returns the zero time
// for empty or invalid input.
func ParseTimestamp(iso string) time.Time {
	if iso == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Try without timezone
		t, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return time.Time{}
		}
	}

	return t
}

// ToModel converts a StatusResponse to a model.StatusSnapshot. A
// snapshot without a capture timestamp is stamped with the local
// receive time.
func (r *StatusResponse) ToModel() model.StatusSnapshot {
	capturedAt := ParseTimestamp(r.CapturedAt)
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	return model.StatusSnapshot{
		Running:    r.Running,
		Status:     model.ParseStatus(r.Status),
		CapturedAt: capturedAt,
	}
}

// ToModel converts a PlayersResponse to a model.Roster. Players with
// an unparsable ID keep a zero UUID rather than being dropped, so the
// roster count stays honest.
func (r *PlayersResponse) ToModel() model.Roster {
	players := make([]model.Player, 0, len(r.Players))
	for _, p := range r.Players {
		id, _ := uuid.Parse(p.ID)
		players = append(players, model.Player{
			ID:       id,
			Name:     p.Name,
			JoinedAt: ParseTimestamp(p.JoinedAt),
		})
	}

	capturedAt := ParseTimestamp(r.CapturedAt)
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	count := r.Count
	if count == 0 {
		count = len(players)
	}

	return model.Roster{
		Players:    players,
		Count:      count,
		Max:        r.Max,
		CapturedAt: capturedAt,
	}
}
