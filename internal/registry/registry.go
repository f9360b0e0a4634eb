// Package registry owns the per-table state shared by every connected
// instance of a virtual table.
//
// State lives in an arena indexed by Handle. A Handle carries the
// generation of the slot it was issued for, so a handle kept past
// Unregister is detected instead of silently resolving to a newer table
// that reused the slot.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/coltab/internal/source"
	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
)

// Handle identifies a registered table. The zero Handle is never valid.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.generation == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.index, h.generation)
}

// State is the immutable description of one registered table.
type State struct {
	// Name is the table name given at creation.
	Name string

	// Source supplies the rows.
	Source source.Source

	// Schema is the declared schema, including hidden argument columns.
	Schema table.Schema

	// ArgumentCount is the number of declared arguments the table was
	// created with.
	ArgumentCount int
}

type slot struct {
	generation uint32
	state      *State
	refs       int
}

// Registry maps names and handles to table state.
// Lookups take a read lock; only Register and Unregister mutate the arena.
type Registry struct {
	mu     sync.RWMutex
	slots  []slot
	free   []uint32
	byName map[string]Handle
	refMu  sync.Mutex
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byName: make(map[string]Handle)}
}

// Register stores state for name and returns its handle.
// Returns AlreadyExists if name is registered.
func (r *Registry) Register(name string, src source.Source, argumentCount int) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; ok {
		return Handle{}, status.NewAlreadyExists(name)
	}
	st := &State{
		Name:          name,
		Source:        src,
		Schema:        src.Schema(),
		ArgumentCount: argumentCount,
	}

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{})
	}
	s := &r.slots[idx]
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.state = st
	s.refs = 0

	h := Handle{index: idx, generation: s.generation}
	r.byName[name] = h
	return h, nil
}

// Lookup returns the state for h.
// Returns NotFound if h was never issued or has been unregistered.
func (r *Registry) Lookup(h Handle) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.slotLocked(h)
	if err != nil {
		return nil, err
	}
	return s.state, nil
}

// Find returns the handle registered for name.
func (r *Registry) Find(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byName[name]
	return h, ok
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Acquire records a connected instance referencing h.
func (r *Registry) Acquire(h Handle) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, err := r.slotLocked(h)
	if err != nil {
		return err
	}
	r.refMu.Lock()
	s.refs++
	r.refMu.Unlock()
	return nil
}

// Release drops a reference taken by Acquire and returns the remaining
// count. Releasing more than was acquired is a ProtocolViolation.
func (r *Registry) Release(h Handle) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, err := r.slotLocked(h)
	if err != nil {
		return 0, err
	}
	r.refMu.Lock()
	defer r.refMu.Unlock()
	if s.refs == 0 {
		return 0, status.NewProtocolViolation("release of %q without a matching acquire", s.state.Name)
	}
	s.refs--
	return s.refs, nil
}

// Refs returns the number of live references to h.
func (r *Registry) Refs(h Handle) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, err := r.slotLocked(h)
	if err != nil {
		return 0
	}
	r.refMu.Lock()
	defer r.refMu.Unlock()
	return s.refs
}

// Unregister removes h. The slot's generation advances so stale copies of
// h stop resolving. Unregistering a table that still has references is a
// ProtocolViolation.
func (r *Registry) Unregister(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.slotLocked(h)
	if err != nil {
		return err
	}
	if s.refs > 0 {
		return status.NewProtocolViolation("unregister of %q with %d live instances", s.state.Name, s.refs)
	}
	delete(r.byName, s.state.Name)
	s.state = nil
	s.generation++
	r.free = append(r.free, h.index)
	return nil
}

// Clear drops every table regardless of references. Used when the owning
// engine shuts down and no instance can outlive it.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		if r.slots[i].state != nil {
			r.slots[i].state = nil
			r.slots[i].generation++
			r.slots[i].refs = 0
			r.free = append(r.free, uint32(i))
		}
	}
	r.byName = make(map[string]Handle)
}

func (r *Registry) slotLocked(h Handle) (*slot, error) {
	if h.IsZero() || int(h.index) >= len(r.slots) {
		return nil, status.Errorf(status.NotFound, "handle %s was never issued", h)
	}
	s := &r.slots[h.index]
	if s.generation != h.generation || s.state == nil {
		return nil, status.Errorf(status.NotFound, "handle %s is stale", h)
	}
	return s, nil
}
