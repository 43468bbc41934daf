// Package hub fans server events out to WebSocket subscribers. Each
// stream endpoint is backed by a Broadcaster that caches the latest
// payload and replays it to new subscribers before live updates flow.
package hub
