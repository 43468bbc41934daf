// Package httpapi serves the panel's HTTP surface: server lifecycle
// commands, status and roster snapshots, their WebSocket stream
// counterparts, on-demand backups, and artifact downloads.
package httpapi
