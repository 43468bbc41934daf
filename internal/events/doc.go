// Package events provides a growable FIFO queue used to decouple event
// producers from consumers.
//
// The server manager publishes lifecycle and roster events through queues
// so a slow WebSocket subscriber or a stalled history writer never blocks
// the console read loop.
package events
