// Package backup creates ZIP archives of the server directory and
// manages the dated daily-backup tree with retention pruning.
package backup
