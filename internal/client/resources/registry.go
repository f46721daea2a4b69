package resources

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrHandleReleased = errors.New("handle released")
	ErrSuperseded     = errors.New("load superseded by a newer one")
)

const handlePrefix = "handle:"

// Handle is an opaque reference to bytes held in a Registry.
type Handle struct {
	ID     string
	Source string
	Size   int
}

type entry struct {
	data   []byte
	source string
	slot   *Slot
}

// Registry owns every outstanding handle of the process. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	epoch   uint64
}

// NewRegistry returns an empty registry at epoch zero.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Epoch changes every time ReleaseAll runs.
func (r *Registry) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// register stores data under a fresh handle unless a bulk release happened
// since epoch was observed.
func (r *Registry) register(epoch uint64, slot *Slot, source string, data []byte) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if epoch != r.epoch {
		return Handle{}, false
	}

	h := Handle{ID: handlePrefix + uuid.NewString(), Source: source, Size: len(data)}
	r.entries[h.ID] = &entry{data: data, source: source, slot: slot}
	return h, true
}

// Open returns the bytes behind id.
func (r *Registry) Open(id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrHandleReleased
	}
	return e.data, nil
}

// Release drops id. Releasing an unknown or already released id is a no-op.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok && e.slot != nil {
		e.slot.forget(id)
	}
}

// ReleaseAll drops every handle and returns how many there were.
func (r *Registry) ReleaseAll() int {
	r.mu.Lock()
	old := r.entries
	r.entries = make(map[string]*entry)
	r.epoch++
	r.mu.Unlock()

	for id, e := range old {
		if e.slot != nil {
			e.slot.forget(id)
		}
	}
	return len(old)
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
