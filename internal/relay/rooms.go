// Package relay tracks room membership as a bidirectional index between room
// keys and connection identifiers.
package relay

import "sync"

// roomIndex maintains the membership edges between rooms and connections.
// Rooms exist implicitly: a room is created by its first join and disappears
// when its last member leaves. A personal notification room is an ordinary
// entry whose key happens to be a user identity.
//
// Both directions of every edge are updated under one lock, so a connection
// appears in a room's member set exactly when the room appears in the
// connection's room set.
type roomIndex struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // room key -> connection ids
	conns map[string]map[string]struct{} // connection id -> room keys
}

func newRoomIndex() *roomIndex {
	return &roomIndex{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join adds the membership edge (room, conn). Joining an already joined room
// is a no-op.
func (ri *roomIndex) Join(room, conn string) {
	if room == "" || conn == "" {
		return
	}

	ri.mu.Lock()
	defer ri.mu.Unlock()

	if ri.rooms[room] == nil {
		ri.rooms[room] = make(map[string]struct{})
	}
	ri.rooms[room][conn] = struct{}{}

	if ri.conns[conn] == nil {
		ri.conns[conn] = make(map[string]struct{})
	}
	ri.conns[conn][room] = struct{}{}
}

// Leave removes the membership edge (room, conn). Leaving a room the
// connection is not in is a no-op.
func (ri *roomIndex) Leave(room, conn string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	ri.removeEdge(room, conn)
}

// LeaveAll removes the connection from every room it is a member of.
// Safe to call for unknown connections and safe to call twice.
func (ri *roomIndex) LeaveAll(conn string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	for room := range ri.conns[conn] {
		ri.removeEdge(room, conn)
	}
}

// removeEdge deletes both directions of an edge and prunes empty sets.
// Callers must hold ri.mu.
func (ri *roomIndex) removeEdge(room, conn string) {
	if members, ok := ri.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(ri.rooms, room)
		}
	}
	if joined, ok := ri.conns[conn]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(ri.conns, conn)
		}
	}
}

// Members returns a snapshot of the connection ids currently in the room.
// The snapshot may be stale the moment it is returned; delivery tolerates
// that because sends to unregistered connections are silent no-ops.
func (ri *roomIndex) Members(room string) []string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	members := make([]string, 0, len(ri.rooms[room]))
	for conn := range ri.rooms[room] {
		members = append(members, conn)
	}
	return members
}

// Rooms returns a snapshot of the room keys the connection has joined.
func (ri *roomIndex) Rooms(conn string) []string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	rooms := make([]string, 0, len(ri.conns[conn]))
	for room := range ri.conns[conn] {
		rooms = append(rooms, room)
	}
	return rooms
}

// RoomCount returns the number of rooms with at least one member.
func (ri *roomIndex) RoomCount() int {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return len(ri.rooms)
}
