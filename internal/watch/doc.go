// Package watch implements the stream-or-poll sync coordinators.
//
// A Coordinator keeps its owner continuously informed of a remote panel's
// state through two capabilities it is handed at construction: open a
// push stream, and fetch a point-in-time snapshot. While a stream is
// open, data arrives by push; when the stream is unsupported, throttled,
// or failing, the coordinator degrades to interval polling and, when a
// retry delay is known, schedules exactly one future reconnect attempt.
// The owner never touches timers or reconnect state.
//
// Transport failures are never fatal and never escape as errors to the
// owner: every failure is reported through the handler callbacks and
// answered by polling.
package watch
