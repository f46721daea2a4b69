package resources

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/picdrop/internal/logging"
)

// Fetcher performs the authenticated fetch. client.HTTPClient satisfies it.
type Fetcher interface {
	FetchProtected(ctx context.Context, ref string) ([]byte, error)
}

// Loader fetches protected bytes into slots and keeps the one-handle-per-slot
// rule.
type Loader struct {
	fetcher  Fetcher
	registry *Registry
	log      logging.Logger
}

// NewLoader returns a Loader registering handles in registry. A nil log
// discards output.
func NewLoader(fetcher Fetcher, registry *Registry, log logging.Logger) *Loader {
	if log == nil {
		log = logging.Discard()
	}
	return &Loader{fetcher: fetcher, registry: registry, log: log}
}

// Registry returns the registry handles are issued from.
func (l *Loader) Registry() *Registry { return l.registry }

// Load fetches ref into slot. On failure the slot becomes SlotUnavailable
// and the error is returned; there is no retry. If a newer load of the same
// slot or a ReleaseAll happened meanwhile the result is dropped and
// ErrSuperseded is returned.
func (l *Loader) Load(ctx context.Context, slot *Slot, ref string) (Handle, error) {
	epoch := l.registry.Epoch()
	gen := slot.begin()

	data, err := l.fetcher.FetchProtected(ctx, ref)
	if err != nil {
		prev, ok := slot.fail(gen, err)
		if !ok {
			return Handle{}, ErrSuperseded
		}
		if prev != nil {
			l.registry.Release(prev.ID)
		}
		l.log.Debug(ctx, "protected fetch failed", "slot", slot.Name(), "error", err)
		return Handle{}, fmt.Errorf("load %s: %w", slot.Name(), err)
	}

	return l.install(ctx, slot, gen, epoch, ref, data)
}

// Adopt installs locally produced bytes into slot with the same replacement
// rules as Load.
func (l *Loader) Adopt(ctx context.Context, slot *Slot, source string, data []byte) (Handle, error) {
	epoch := l.registry.Epoch()
	gen := slot.begin()
	return l.install(ctx, slot, gen, epoch, source, data)
}

func (l *Loader) install(ctx context.Context, slot *Slot, gen, epoch uint64, source string, data []byte) (Handle, error) {
	// the previous handle goes before the new one is registered
	prev, ok := slot.detach(gen)
	if !ok {
		return Handle{}, ErrSuperseded
	}
	if prev != nil {
		l.registry.Release(prev.ID)
	}

	h, ok := l.registry.register(epoch, slot, source, data)
	if !ok {
		slot.fail(gen, ErrSuperseded)
		return Handle{}, ErrSuperseded
	}

	if !slot.commit(gen, h) {
		l.registry.Release(h.ID)
		return Handle{}, ErrSuperseded
	}

	// a ReleaseAll between register and commit has already swept h
	if l.registry.Epoch() != epoch {
		l.Clear(slot)
		return Handle{}, ErrSuperseded
	}

	l.log.Debug(ctx, "handle committed", "slot", slot.Name(), "size", h.Size)
	return h, nil
}

// Clear empties slot, releasing its handle and invalidating loads in flight.
func (l *Loader) Clear(slot *Slot) {
	if prev := slot.reset(); prev != nil {
		l.registry.Release(prev.ID)
	}
}

// Open returns the bytes of the slot's live handle.
func (l *Loader) Open(slot *Slot) ([]byte, error) {
	h, ok := slot.Handle()
	if !ok {
		return nil, ErrHandleReleased
	}
	return l.registry.Open(h.ID)
}

// ReleaseAll releases every handle issued so far.
func (l *Loader) ReleaseAll() int {
	return l.registry.ReleaseAll()
}
