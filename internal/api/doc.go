// Package api provides the REST client for a craftwatch panel daemon.
//
// The client covers the panel's HTTP surface: server lifecycle
// (start/stop), status and roster snapshots, and backup retrieval.
// Requests retry transient failures with exponential backoff and
// jitter; 4xx responses are returned to the caller unretried.
package api
