// Package mcserver manages the Minecraft server process: starting the
// launch script, tracking the lifecycle state, parsing console output
// for readiness and player joins/leaves, and stopping the server with
// a graceful "stop" command before falling back to a kill.
package mcserver
