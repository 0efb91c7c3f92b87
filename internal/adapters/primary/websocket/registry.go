package websocket

import (
	"sync"

	"github.com/axondapurkita/order-notify/internal/core/domain"
)

// Registry is the bidirectional room membership index. Rooms exist only
// while they have members.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[domain.RoomKey]map[string]struct{}
	memberships map[string]map[domain.RoomKey]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[domain.RoomKey]map[string]struct{}),
		memberships: make(map[string]map[domain.RoomKey]struct{}),
	}
}

// Join adds connID to room. It reports whether the membership is new.
func (r *Registry) Join(connID string, room domain.RoomKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	if _, exists := members[connID]; exists {
		return false
	}
	members[connID] = struct{}{}

	joined, ok := r.memberships[connID]
	if !ok {
		joined = make(map[domain.RoomKey]struct{})
		r.memberships[connID] = joined
	}
	joined[room] = struct{}{}
	return true
}

// Leave removes connID from room. Leaving a room the connection is not in
// is a no-op.
func (r *Registry) Leave(connID string, room domain.RoomKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(connID, room)
}

func (r *Registry) leaveLocked(connID string, room domain.RoomKey) bool {
	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	if _, exists := members[connID]; !exists {
		return false
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}

	if joined, ok := r.memberships[connID]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.memberships, connID)
		}
	}
	return true
}

// RemoveConnection drops every membership of connID and returns the rooms
// it was in.
func (r *Registry) RemoveConnection(connID string) []domain.RoomKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.memberships[connID]
	rooms := make([]domain.RoomKey, 0, len(joined))
	for room := range joined {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		r.leaveLocked(connID, room)
	}
	return rooms
}

// Members returns a snapshot of the connection ids in room.
func (r *Registry) Members(room domain.RoomKey) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// Rooms returns a snapshot of the rooms connID has joined.
func (r *Registry) Rooms(connID string) []domain.RoomKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.memberships[connID]
	rooms := make([]domain.RoomKey, 0, len(joined))
	for room := range joined {
		rooms = append(rooms, room)
	}
	return rooms
}

func (r *Registry) IsMember(connID string, room domain.RoomKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][connID]
	return ok
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) MemberCount(room domain.RoomKey) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}
