package api

// StatusResponse from GET /api/server/status.
type StatusResponse struct {
	Running    bool   `json:"running"`
	Status     string `json:"status"`
	CapturedAt string `json:"captured_at,omitempty"`
}

// PlayersResponse from GET /api/server/players.
type PlayersResponse struct {
	Players    []APIPlayer `json:"players"`
	Count      int         `json:"count"`
	Max        int         `json:"max"`
	CapturedAt string      `json:"captured_at,omitempty"`
}

// APIPlayer is one connected player as reported by the panel.
type APIPlayer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt string `json:"joined_at"`
}

// CommandResponse from POST /api/server/start and /api/server/stop.
type CommandResponse struct {
	Accepted bool   `json:"accepted"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// HealthResponse from GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Instance string `json:"instance,omitempty"`
	Version  string `json:"version,omitempty"`
}
