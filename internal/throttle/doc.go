// Package throttle implements the stream reconnect cooldown registry.
//
// The registry remembers when a push stream for a given endpoint was last
// closed and refuses immediate reconnect attempts, so a restarting client
// (or a page of them) cannot produce a reconnect storm. Records persist
// across process restarts through a pluggable Store; the default store is
// a JSON file under the user cache directory.
//
// The registry never fails its caller: a missing, unreadable, or corrupt
// store degrades to "always permit" with a logged warning.
package throttle
