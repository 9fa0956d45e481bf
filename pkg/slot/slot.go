// Package slot holds fetched result sets in a fixed ring of numbered slots.
//
// Slots are handed out round-robin. When the cursor comes back around, the
// result set occupying the slot is evicted along with its name index entry,
// so an origin name maps to a slot only for as long as that slot still
// holds its result set. There is no time-based expiry: how long a slot
// lives depends only on how many allocations follow it.
package slot

import (
	"fmt"
	"sync"
)

// MaxCapacity is the largest ring a 16-bit slot id can address
const MaxCapacity = 1 << 16

// ResultSet is the origin name and chunked content held at one slot.
// It is never modified after allocation.
type ResultSet struct {
	OriginName string
	Chunks     []string
}

// Chunk returns the chunk at index i, or false past the end
func (rs *ResultSet) Chunk(i int) (string, bool) {
	if i < 0 || i >= len(rs.Chunks) {
		return "", false
	}
	return rs.Chunks[i], true
}

// Allocator is the slot table plus the origin-name index
type Allocator struct {
	mu     sync.Mutex
	slots  []*ResultSet
	byName map[string]uint16
	next   int
	used   int
}

// New creates an allocator with capacity slots
func New(capacity int) (*Allocator, error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, fmt.Errorf("slot capacity must be in [1, %d], got %d", MaxCapacity, capacity)
	}
	return &Allocator{
		slots:  make([]*ResultSet, capacity),
		byName: make(map[string]uint16),
	}, nil
}

// Allocate stores chunks for originName and returns its slot id.
//
// If originName already holds a live slot, that slot is returned and
// chunks are discarded. Otherwise the next slot in the ring is taken,
// evicting its previous occupant; evicted reports whether that happened.
func (a *Allocator) Allocate(originName string, chunks []string) (id uint16, evicted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.byName[originName]; ok {
		return id, false
	}

	id = uint16(a.next)
	a.next++
	if a.next >= len(a.slots) {
		a.next = 0
	}

	if old := a.slots[id]; old != nil {
		delete(a.byName, old.OriginName)
		evicted = true
	} else {
		a.used++
	}

	a.slots[id] = &ResultSet{
		OriginName: originName,
		Chunks:     chunks,
	}
	a.byName[originName] = id
	return id, evicted
}

// Lookup returns the live slot for originName, if any
func (a *Allocator) Lookup(originName string) (uint16, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.byName[originName]
	return id, ok
}

// Get returns the result set at id. Empty or out-of-range slots report false.
func (a *Allocator) Get(id int) (*ResultSet, bool) {
	if id < 0 {
		return nil, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if id >= len(a.slots) {
		return nil, false
	}
	rs := a.slots[id]
	return rs, rs != nil
}

// Capacity returns the number of slots in the ring
func (a *Allocator) Capacity() int {
	return len(a.slots)
}

// Stats is a point-in-time view of the ring
type Stats struct {
	Capacity int `json:"capacity"`
	Used     int `json:"used"`
	Next     int `json:"next"`
	Names    int `json:"names"`
}

// Stats returns occupancy figures
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Capacity: len(a.slots),
		Used:     a.used,
		Next:     a.next,
		Names:    len(a.byName),
	}
}
