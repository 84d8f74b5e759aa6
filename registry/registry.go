// Package registry is the handle-indexed, refcounted instance table the
// root device package hands out to callers instead of a raw pointer: a
// deleted handle is immediately unresolvable, but the backing value is not
// actually freed until every in-flight reference (a dispatched URC, a
// queued deferred callback) has released it. Generalizes the teacher's
// `services/hal/internal/registry/registry.go` device-builder map from
// "register a constructor, look it up by type name" to "register a live
// instance, look it up by handle, and know when it's safe to free."
package registry

import (
	"sync"
	"sync/atomic"
)

// Handle is an opaque, process-local instance identifier. The zero value
// never refers to a live entry.
type Handle uint32

// Closer is released exactly once, when an entry's reference count reaches
// zero after Remove.
type Closer interface {
	Close() error
}

type entry struct {
	val      Closer
	refCount atomic.Int32
}

// Registry maps Handle to a refcounted value. The zero Registry is usable.
type Registry struct {
	mu      sync.Mutex
	entries map[Handle]*entry
	next    uint32
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[Handle]*entry)}
}

// Add inserts val with one strong reference (the registry's own) and
// returns its handle.
func (r *Registry) Add(val Closer) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[Handle]*entry)
	}
	r.next++
	h := Handle(r.next)
	e := &entry{val: val}
	e.refCount.Store(1)
	r.entries[h] = e
	return h
}

// Ref is one live reference to an acquired entry. The entry is only closed
// once every outstanding Ref (plus the registry's own, dropped by Remove)
// has called Release, regardless of whether the handle has already been
// removed from the table.
type Ref struct {
	e *entry
}

// Value returns the referenced instance.
func (ref *Ref) Value() Closer { return ref.e.val }

// Release drops this reference, closing the value once the count reaches
// zero. Release must be called exactly once per Ref.
func (ref *Ref) Release() {
	if ref.e.refCount.Add(-1) == 0 {
		ref.e.val.Close()
	}
}

// Acquire resolves h to a Ref and increments its reference count. The
// caller must call Ref.Release exactly once when done. Returns false if h
// has already been removed.
func (r *Registry) Acquire(h Handle) (*Ref, bool) {
	r.mu.Lock()
	e, ok := r.entries[h]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	for {
		n := e.refCount.Load()
		if n == 0 {
			return nil, false // lost the race with the final Release
		}
		if e.refCount.CompareAndSwap(n, n+1) {
			return &Ref{e: e}, true
		}
	}
}

// Remove makes h immediately unresolvable by future Acquire calls and
// drops the registry's own strong reference. The value is only closed once
// every outstanding Ref has also released.
func (r *Registry) Remove(h Handle) bool {
	r.mu.Lock()
	e, ok := r.entries[h]
	if ok {
		delete(r.entries, h)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	(&Ref{e: e}).Release()
	return true
}

// Len reports the number of live (non-removed) handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
