package watch

import "github.com/akarlsen/craftwatch/internal/model"

// PlayersStreamPath is the panel's roster push-stream endpoint.
const PlayersStreamPath = "/api/server/players/stream"

// PlayersCoordinator tracks the panel's connected-player roster. Its
// lifecycle behavior is identical to the status variant; only the
// payload shape differs.
type PlayersCoordinator struct {
	*Coordinator[model.Roster]
}

// NewPlayersCoordinator creates the roster variant.
func NewPlayersCoordinator(cfg Config[model.Roster], h Handlers[model.Roster]) *PlayersCoordinator {
	return &PlayersCoordinator{New(cfg, h)}
}

// LastRoster returns the most recent roster seen.
func (c *PlayersCoordinator) LastRoster() (model.Roster, bool) {
	return c.Last()
}
