// Package stream provides the push-stream capability consumed by the
// watch coordinators.
//
// An Opener produces watch.OpenFunc values for the panel's WebSocket
// stream endpoints. Each open attempt consults the throttle registry
// first: a refused attempt is reported as a retry delay, never as an
// error, and a missing stream URL is reported as unsupported. Dialing
// happens asynchronously behind the returned session handle, with
// open/close times recorded in the registry so reconnect cooldowns
// survive process restarts.
package stream
