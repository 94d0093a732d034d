package realtime

import (
	"sync"
)

// Directory maps room names to member connection ids. It keeps a reverse
// index from connection id to room names so disconnect cleanup costs
// O(memberships) instead of a scan over every room.
//
// Rooms exist only while they have members: an entry is created lazily on
// first join and deleted the moment its member set empties.
type Directory struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]struct{}
	byConn map[string]map[string]struct{}
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byRoom: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join adds id to room. Returns true when membership actually changed;
// joining a room twice is a no-op.
func (d *Directory) Join(id, room string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.byRoom[room]
	if !ok {
		members = make(map[string]struct{})
		d.byRoom[room] = members
	}

	if _, present := members[id]; present {
		return false
	}
	members[id] = struct{}{}

	rooms, ok := d.byConn[id]
	if !ok {
		rooms = make(map[string]struct{})
		d.byConn[id] = rooms
	}
	rooms[room] = struct{}{}

	return true
}

// Leave removes id from room. Returns true when membership actually changed;
// leaving a room never joined is a no-op. The room entry is deleted once its
// member set empties.
func (d *Directory) Leave(id, room string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.byRoom[room]
	if !ok {
		return false
	}
	if _, present := members[id]; !present {
		return false
	}

	delete(members, id)
	if len(members) == 0 {
		delete(d.byRoom, room)
	}

	if rooms, ok := d.byConn[id]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(d.byConn, id)
		}
	}

	return true
}

// MembersOf returns a snapshot of the ids in room, empty if the room is
// absent.
func (d *Directory) MembersOf(room string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.byRoom[room]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// RoomsOf returns a snapshot of the rooms id belongs to.
func (d *Directory) RoomsOf(id string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	joined := d.byConn[id]
	rooms := make([]string, 0, len(joined))
	for room := range joined {
		rooms = append(rooms, room)
	}
	return rooms
}

// Len returns the number of rooms with at least one member.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byRoom)
}
