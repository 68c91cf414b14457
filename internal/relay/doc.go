// Package relay implements the real-time presence-and-message relay for the
// chat application: it accepts WebSocket connections, binds each to a user
// identity, tracks room membership, and fans message, typing, and
// notification events out to the right subset of connections.
//
// The implementation is organized into specialized files for the hub and
// room index, per-connection pumps, event routing, configuration, and the
// HTTP surface. Persistence, authentication, and the REST endpoints live in
// external collaborators; this package only moves events.
package relay
