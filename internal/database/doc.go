// Package database provides PostgreSQL connection pool management for
// the optional lifecycle history store.
package database
