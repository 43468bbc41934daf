package api

import (
	"context"
	"fmt"
)

// GetServerStatus fetches the current lifecycle state.
func (c *Client) GetServerStatus(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get(ctx, "/api/server/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("get server status: %w", err)
	}
	return &resp, nil
}

// GetPlayers fetches the current player roster.
func (c *Client) GetPlayers(ctx context.Context) (*PlayersResponse, error) {
	var resp PlayersResponse
	if err := c.get(ctx, "/api/server/players", nil, &resp); err != nil {
		return nil, fmt.Errorf("get players: %w", err)
	}
	return &resp, nil
}

// StartServer asks the panel to boot the server. The panel answers as
// soon as the start is accepted; readiness shows up later through
// status.
func (c *Client) StartServer(ctx context.Context) (*CommandResponse, error) {
	var resp CommandResponse
	if err := c.post(ctx, "/api/server/start", &resp); err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}
	return &resp, nil
}

// StopServer asks the panel to shut the server down.
func (c *Client) StopServer(ctx context.Context) (*CommandResponse, error) {
	var resp CommandResponse
	if err := c.post(ctx, "/api/server/stop", &resp); err != nil {
		return nil, fmt.Errorf("stop server: %w", err)
	}
	return &resp, nil
}

// Health fetches the panel's health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/healthz", nil, &resp); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	return &resp, nil
}
