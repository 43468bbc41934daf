package watch

import "github.com/akarlsen/craftwatch/internal/model"

// StatusStreamPath is the panel's status push-stream endpoint.
const StatusStreamPath = "/api/server/status/stream"

// StatusCoordinator tracks the panel's server lifecycle state.
type StatusCoordinator struct {
	*Coordinator[model.StatusSnapshot]
}

// NewStatusCoordinator creates the status variant.
func NewStatusCoordinator(cfg Config[model.StatusSnapshot], h Handlers[model.StatusSnapshot]) *StatusCoordinator {
	return &StatusCoordinator{New(cfg, h)}
}

// LastStatus returns the most recent lifecycle snapshot seen.
func (c *StatusCoordinator) LastStatus() (model.StatusSnapshot, bool) {
	return c.Last()
}
