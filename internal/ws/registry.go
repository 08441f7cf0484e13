package ws

import "sync"

// Registry maps room IDs to live rooms. Rooms are created on first join
// and torn down when their last participant leaves, so an entry exists
// iff the room has at least one participant.
//
// Mutation happens only on the Hub's dispatch goroutine; the lock exists
// for read access from the stats endpoint and metrics.
type Registry struct {
	mu            sync.RWMutex
	rooms         map[string]*Room
	scrollbackCap int
}

func NewRegistry(scrollbackCap int) *Registry {
	return &Registry{rooms: make(map[string]*Room), scrollbackCap: scrollbackCap}
}

// GetOrCreate returns the room for id, creating an empty one if absent.
func (g *Registry) GetOrCreate(id string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	rm := g.rooms[id]
	if rm == nil {
		rm = newRoom(id, g.scrollbackCap)
		g.rooms[id] = rm
	}
	return rm
}

// Get returns the room for id if it exists.
func (g *Registry) Get(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rm, ok := g.rooms[id]
	return rm, ok
}

// RemoveIfEmpty drops the room when its participant set is empty,
// releasing the code buffer and scrollback with it. Intentional data
// loss: durability lives in the store, not here.
func (g *Registry) RemoveIfEmpty(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rm, ok := g.rooms[id]; ok && rm.Count() == 0 {
		delete(g.rooms, id)
	}
}

// Len reports the number of live rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
