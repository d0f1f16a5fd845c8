// Package bridge connects the talker to the outside world.
//
// Hub is a websocket fan-out implementing ttypes.OutputPort: every command
// the talker publishes is sent as a JSON Message to all connected consumers,
// and consumers may send control messages back ("ready", "shutup"). Server
// adds a small HTTP API around a Speaker for speaking, duration queries,
// control signals and Prometheus metrics.
package bridge
