// Package hub implements the broadcast side of livetext.
//
// Server accepts WebSocket connections and keeps each one registered in a
// ClientManager for exactly as long as it is open. Broadcaster fans a line of
// text out to a snapshot of the registered clients, one goroutine per client,
// and reports per-client failures instead of stopping on the first one.
package hub
