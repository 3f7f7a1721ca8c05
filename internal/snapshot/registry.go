package snapshot

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds snapshots by id for the process lifetime. Writers are
// serialized; published snapshots are immutable so readers never race them.
type Registry struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Snapshot
	order []uuid.UUID
	live  uuid.UUID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[uuid.UUID]*Snapshot),
	}
}

// Put publishes s and marks it as the live snapshot.
func (r *Registry) Put(s *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(s)
	r.live = s.ID()
}

func (r *Registry) putLocked(s *Snapshot) {
	if _, exists := r.byID[s.ID()]; !exists {
		r.order = append(r.order, s.ID())
	}
	r.byID[s.ID()] = s
}

// Get looks up a snapshot by id.
func (r *Registry) Get(id uuid.UUID) (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// List returns all snapshots in insertion order.
func (r *Registry) List() []*Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Snapshot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of snapshots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Live returns the id of the most recently captured snapshot, or uuid.Nil.
func (r *Registry) Live() uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// Merge adds the snapshots of st that are not already present and adopts its
// live id when none is set. It returns how many snapshots were added.
func (r *Registry) Merge(st State) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, s := range st.Snapshots {
		if s == nil {
			continue
		}
		if _, exists := r.byID[s.ID()]; exists {
			continue
		}
		r.putLocked(s)
		added++
	}
	if r.live == uuid.Nil {
		if _, ok := r.byID[st.Live]; ok {
			r.live = st.Live
		}
	}
	return added
}

// Export returns a consistent view of the registry for persistence.
func (r *Registry) Export() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := State{
		Snapshots: make([]*Snapshot, 0, len(r.order)),
		Live:      r.live,
	}
	for _, id := range r.order {
		st.Snapshots = append(st.Snapshots, r.byID[id])
	}
	return st
}
