// Package history persists server lifecycle transitions to PostgreSQL.
// Transitions are buffered in a growable queue and flushed in batches,
// so a slow or unreachable database never blocks the server manager.
package history
