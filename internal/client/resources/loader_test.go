package resources

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	data  map[string][]byte
	errs  map[string]error
	// gates, when set for a ref, block the fetch until closed
	gates map[string]chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		data:  map[string][]byte{},
		errs:  map[string]error{},
		gates: map[string]chan struct{}{},
	}
}

func (f *fakeFetcher) FetchProtected(ctx context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ref)
	gate := f.gates[ref]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[ref]; err != nil {
		return nil, err
	}
	return f.data[ref], nil
}

func TestLoader_LoadCommitsHandle(t *testing.T) {
	f := newFakeFetcher()
	f.data["/files/a.jpg"] = []byte("aaa")
	l := NewLoader(f, NewRegistry(), nil)
	slot := NewSlot("thumb:a")

	h, err := l.Load(context.Background(), slot, "/files/a.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h.ID, "handle:"))
	assert.Equal(t, "/files/a.jpg", h.Source)
	assert.Equal(t, 3, h.Size)
	assert.Equal(t, SlotReady, slot.State())

	b, err := l.Open(slot)
	require.NoError(t, err)
	assert.Equal(t, "aaa", string(b))
	assert.Equal(t, 1, l.Registry().Len())
}

func TestLoader_ReplacementReleasesPrevious(t *testing.T) {
	f := newFakeFetcher()
	f.data["/a"] = []byte("a")
	f.data["/b"] = []byte("b")
	l := NewLoader(f, NewRegistry(), nil)
	slot := NewSlot("viewer")

	first, err := l.Load(context.Background(), slot, "/a")
	require.NoError(t, err)
	second, err := l.Load(context.Background(), slot, "/b")
	require.NoError(t, err)

	_, err = l.Registry().Open(first.ID)
	require.ErrorIs(t, err, ErrHandleReleased)

	cur, ok := slot.Handle()
	require.True(t, ok)
	assert.Equal(t, second.ID, cur.ID)
	assert.Equal(t, 1, l.Registry().Len())
}

func TestLoader_FailureMarksUnavailable(t *testing.T) {
	boom := errors.New("404")
	f := newFakeFetcher()
	f.errs["/gone"] = boom
	l := NewLoader(f, NewRegistry(), nil)
	slot := NewSlot("thumb")

	_, err := l.Load(context.Background(), slot, "/gone")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, SlotUnavailable, slot.State())
	assert.ErrorIs(t, slot.Err(), boom)
	assert.Equal(t, 0, l.Registry().Len())
	assert.Equal(t, []string{"/gone"}, f.calls, "no automatic retry")
}

func TestLoader_FailedReloadReleasesPrevious(t *testing.T) {
	f := newFakeFetcher()
	f.data["/a"] = []byte("AAAA")
	f.errs["/b"] = errors.New("404")
	l := NewLoader(f, NewRegistry(), nil)
	slot := NewSlot("viewer")

	first, err := l.Load(context.Background(), slot, "/a")
	require.NoError(t, err)

	_, err = l.Load(context.Background(), slot, "/b")
	require.Error(t, err)

	assert.Equal(t, SlotUnavailable, slot.State())
	_, ok := slot.Handle()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Registry().Len())

	_, err = l.Registry().Open(first.ID)
	assert.ErrorIs(t, err, ErrHandleReleased)
	_, err = l.Open(slot)
	assert.ErrorIs(t, err, ErrHandleReleased)
}

func TestLoader_ReplacementNeverHoldsTwoHandles(t *testing.T) {
	l := NewLoader(newFakeFetcher(), NewRegistry(), nil)
	slot := NewSlot("preview")

	stop := make(chan struct{})
	peak := make(chan int, 1)
	go func() {
		m := 0
		for {
			select {
			case <-stop:
				peak <- m
				return
			default:
				if n := l.Registry().Len(); n > m {
					m = n
				}
			}
		}
	}()

	for i := 0; i < 500; i++ {
		_, err := l.Adopt(context.Background(), slot, "img", []byte{byte(i)})
		require.NoError(t, err)
	}
	close(stop)

	assert.LessOrEqual(t, <-peak, 1)
	assert.Equal(t, 1, l.Registry().Len())
}

func TestLoader_StaleLoadDiscarded(t *testing.T) {
	f := newFakeFetcher()
	f.data["/old"] = []byte("old")
	f.data["/new"] = []byte("new")
	gate := make(chan struct{})
	f.gates["/old"] = gate

	l := NewLoader(f, NewRegistry(), nil)
	slot := NewSlot("viewer")

	var wg sync.WaitGroup
	var staleErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = l.Load(context.Background(), slot, "/old")
	}()

	// wait until the slow load is in flight
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.calls) == 1
	}, timeout, tick)

	fresh, err := l.Load(context.Background(), slot, "/new")
	require.NoError(t, err)

	close(gate)
	wg.Wait()

	require.ErrorIs(t, staleErr, ErrSuperseded)
	cur, ok := slot.Handle()
	require.True(t, ok)
	assert.Equal(t, fresh.ID, cur.ID)
	b, err := l.Open(slot)
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
	assert.Equal(t, 1, l.Registry().Len())
}

func TestLoader_LoadAcrossReleaseAllDiscarded(t *testing.T) {
	f := newFakeFetcher()
	f.data["/slow"] = []byte("x")
	gate := make(chan struct{})
	f.gates["/slow"] = gate

	l := NewLoader(f, NewRegistry(), nil)
	slot := NewSlot("thumb")

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), slot, "/slow")
		done <- err
	}()

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.calls) == 1
	}, timeout, tick)

	l.ReleaseAll()
	close(gate)

	require.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, 0, l.Registry().Len())
	_, ok := slot.Handle()
	assert.False(t, ok)
}

func TestLoader_ReleaseAllEmptiesRegistryAndSlots(t *testing.T) {
	f := newFakeFetcher()
	l := NewLoader(f, NewRegistry(), nil)

	slots := []*Slot{NewSlot("a"), NewSlot("b"), NewSlot("c")}
	for i, s := range slots {
		f.data[s.Name()] = []byte{byte(i)}
		_, err := l.Load(context.Background(), s, s.Name())
		require.NoError(t, err)
	}
	require.Equal(t, 3, l.Registry().Len())

	assert.Equal(t, 3, l.ReleaseAll())
	assert.Equal(t, 0, l.Registry().Len())
	for _, s := range slots {
		_, ok := s.Handle()
		assert.False(t, ok)
		assert.Equal(t, SlotEmpty, s.State())
		_, err := l.Open(s)
		assert.ErrorIs(t, err, ErrHandleReleased)
	}
}

func TestLoader_AdoptAndClear(t *testing.T) {
	l := NewLoader(newFakeFetcher(), NewRegistry(), nil)
	slot := NewSlot("preview")

	h1, err := l.Adopt(context.Background(), slot, "cat.png", []byte("one"))
	require.NoError(t, err)
	_, err = l.Adopt(context.Background(), slot, "dog.png", []byte("two"))
	require.NoError(t, err)

	_, err = l.Registry().Open(h1.ID)
	require.ErrorIs(t, err, ErrHandleReleased)
	assert.Equal(t, 1, l.Registry().Len())

	l.Clear(slot)
	assert.Equal(t, 0, l.Registry().Len())
	assert.Equal(t, SlotEmpty, slot.State())
}

func TestLoader_ConcurrentLoads(t *testing.T) {
	f := newFakeFetcher()
	l := NewLoader(f, NewRegistry(), nil)

	const n = 32
	slots := make([]*Slot, n)
	for i := range slots {
		slots[i] = NewSlot(string(rune('A' + i)))
		f.data[slots[i].Name()] = []byte("x")
	}

	var wg sync.WaitGroup
	for _, s := range slots {
		wg.Add(1)
		go func(s *Slot) {
			defer wg.Done()
			_, _ = l.Load(context.Background(), s, s.Name())
		}(s)
	}
	wg.Wait()

	assert.Equal(t, n, l.Registry().Len())
}

func TestRegistry_ReleaseUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Release("handle:missing")
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.ReleaseAll())
	assert.Equal(t, uint64(1), r.Epoch())
}

func TestSlotState_String(t *testing.T) {
	assert.Equal(t, "empty", SlotEmpty.String())
	assert.Equal(t, "loading", SlotLoading.String())
	assert.Equal(t, "ready", SlotReady.String())
	assert.Equal(t, "unavailable", SlotUnavailable.String())
}
