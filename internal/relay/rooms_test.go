package relay

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomIndexJoinAndMembers(t *testing.T) {
	ri := newRoomIndex()

	ri.Join("room1", "c1")
	ri.Join("room1", "c2")
	ri.Join("room2", "c1")

	assert.ElementsMatch(t, []string{"c1", "c2"}, ri.Members("room1"))
	assert.ElementsMatch(t, []string{"c1"}, ri.Members("room2"))
	assert.ElementsMatch(t, []string{"room1", "room2"}, ri.Rooms("c1"))
	assert.Equal(t, 2, ri.RoomCount())
}

func TestRoomIndexJoinIdempotent(t *testing.T) {
	ri := newRoomIndex()

	ri.Join("room1", "c1")
	ri.Join("room1", "c1")

	require.Len(t, ri.Members("room1"), 1)
	require.Len(t, ri.Rooms("c1"), 1)
}

func TestRoomIndexIgnoresEmptyKeys(t *testing.T) {
	ri := newRoomIndex()

	ri.Join("", "c1")
	ri.Join("room1", "")

	assert.Empty(t, ri.Members("room1"))
	assert.Empty(t, ri.Rooms("c1"))
	assert.Zero(t, ri.RoomCount())
}

func TestRoomIndexLeave(t *testing.T) {
	ri := newRoomIndex()

	ri.Join("room1", "c1")
	ri.Join("room1", "c2")
	ri.Leave("room1", "c1")

	assert.ElementsMatch(t, []string{"c2"}, ri.Members("room1"))
	assert.Empty(t, ri.Rooms("c1"))

	// Leaving again, or leaving a room never joined, is a no-op.
	ri.Leave("room1", "c1")
	ri.Leave("no-such-room", "c2")
	assert.ElementsMatch(t, []string{"c2"}, ri.Members("room1"))
}

func TestRoomIndexLeaveAll(t *testing.T) {
	ri := newRoomIndex()

	ri.Join("room1", "c1")
	ri.Join("room2", "c1")
	ri.Join("room1", "c2")

	ri.LeaveAll("c1")

	assert.Empty(t, ri.Rooms("c1"))
	assert.ElementsMatch(t, []string{"c2"}, ri.Members("room1"))
	assert.Empty(t, ri.Members("room2"))

	// A room with no members no longer exists.
	assert.Equal(t, 1, ri.RoomCount())

	// Repeated and unknown-connection cleanup is harmless.
	ri.LeaveAll("c1")
	ri.LeaveAll("never-joined")
}

// TestRoomIndexSymmetry verifies the bidirectional invariant: a connection
// is in a room's member set exactly when the room is in the connection's
// room set.
func TestRoomIndexSymmetry(t *testing.T) {
	ri := newRoomIndex()

	ri.Join("room1", "c1")
	ri.Join("room1", "c2")
	ri.Join("room2", "c2")
	ri.Leave("room1", "c1")
	ri.Join("room3", "c3")
	ri.LeaveAll("c3")

	ri.mu.RLock()
	defer ri.mu.RUnlock()

	for room, members := range ri.rooms {
		for conn := range members {
			_, ok := ri.conns[conn][room]
			assert.Truef(t, ok, "edge (%s, %s) missing from connection side", room, conn)
		}
	}
	for conn, rooms := range ri.conns {
		for room := range rooms {
			_, ok := ri.rooms[room][conn]
			assert.Truef(t, ok, "edge (%s, %s) missing from room side", room, conn)
		}
	}
}

func TestRoomIndexConcurrentChurn(t *testing.T) {
	ri := newRoomIndex()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", n)
			room := fmt.Sprintf("room%d", n%4)
			for j := 0; j < 100; j++ {
				ri.Join(room, conn)
				ri.Members(room)
				ri.Rooms(conn)
				ri.Leave(room, conn)
			}
			ri.Join(room, conn)
			ri.LeaveAll(conn)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, ri.RoomCount())
}
