// Package model defines shared data types used across craftwatch.
//
// Conventions:
//   - Server lifecycle states use the ServerStatus enum (stopped, starting, running)
//   - Timestamps are time.Time in UTC
//   - Player IDs are uuid.UUID as reported by the Minecraft server console
package model
