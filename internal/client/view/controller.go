package view

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/picdrop/internal/client/models"
	"github.com/dmitrijs2005/picdrop/internal/logging"
)

// ErrNotActive is returned by tab operations outside the Active state.
var ErrNotActive = errors.New("not logged in")

// SessionStore is implemented by session.Store.
type SessionStore interface {
	Snapshot() models.Session
	Set(ctx context.Context, token string, identity models.Identity) error
	MarkPasswordChanged(ctx context.Context) error
	Clear(ctx context.Context) error
	Restore(ctx context.Context) error
	OnClear(fn func())
}

// Releaser drops every outstanding protected-resource handle.
type Releaser interface {
	ReleaseAll() int
}

// TabLoader fetches the data shown by a tab.
type TabLoader func(ctx context.Context) error

// Controller never holds its lock while a tab loads, so a load that ends in
// an unauthorized answer can log out from inside the request.
type Controller struct {
	store    SessionStore
	releaser Releaser
	log      logging.Logger

	mu      sync.Mutex
	state   State
	tab     Tab
	loaded  map[Tab]bool
	loaders map[Tab]TabLoader
	subs    []func(State)
}

// NewController returns a controller in the Unauthenticated state. It
// registers releaser with store so logout frees every handle first.
func NewController(store SessionStore, releaser Releaser, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Discard()
	}
	c := &Controller{
		store:    store,
		releaser: releaser,
		log:      log,
		loaded:   make(map[Tab]bool),
		loaders:  make(map[Tab]TabLoader),
	}
	store.OnClear(func() { releaser.ReleaseAll() })
	return c
}

// SetTabLoader registers the loader run when tab is opened.
func (c *Controller) SetTabLoader(tab Tab, fn TabLoader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders[tab] = fn
}

// Subscribe registers fn to be called on every state transition.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// State returns the current screen.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Tab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

// Restore recomputes the state from the persisted session without a
// network round trip.
func (c *Controller) Restore(ctx context.Context) error {
	if err := c.store.Restore(ctx); err != nil {
		c.log.Warn(ctx, "restore session", "error", err)
	}
	return c.transition(ctx, StateOf(c.store.Snapshot()))
}

// LoginSucceeded installs the session returned by a successful login.
func (c *Controller) LoginSucceeded(ctx context.Context, token string, identity models.Identity) error {
	setErr := c.store.Set(ctx, token, identity)
	if setErr != nil && !c.store.Snapshot().Authenticated() {
		return setErr
	}
	return errors.Join(setErr, c.transition(ctx, StateOf(c.store.Snapshot())))
}

// CredentialChanged clears the must-change flag and forces Active. Without
// a session it returns ErrNotActive and changes nothing.
func (c *Controller) CredentialChanged(ctx context.Context) error {
	if !c.store.Snapshot().Authenticated() {
		return ErrNotActive
	}
	err := c.store.MarkPasswordChanged(ctx)
	return errors.Join(err, c.transition(ctx, Active))
}

// Logout releases every handle, clears the session and returns to
// Unauthenticated.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.store.Clear(ctx)
	if terr := c.transition(ctx, Unauthenticated); terr != nil {
		err = errors.Join(err, terr)
	}
	return err
}

// Unauthorized is the handler for a refused credential. It logs out at
// once.
func (c *Controller) Unauthorized(ctx context.Context) {
	if c.State() == Unauthenticated {
		return
	}
	c.log.Warn(ctx, "credential refused by server, logging out")
	if err := c.Logout(ctx); err != nil {
		c.log.Error(ctx, "logout after refused credential", "error", err)
	}
}

// Open switches to tab, loading its data the first time it is shown during
// the current activation.
func (c *Controller) Open(ctx context.Context, tab Tab) error {
	return c.open(ctx, tab, false)
}

// Refresh switches to tab and reloads its data.
func (c *Controller) Refresh(ctx context.Context, tab Tab) error {
	return c.open(ctx, tab, true)
}

func (c *Controller) open(ctx context.Context, tab Tab, force bool) error {
	c.mu.Lock()
	if c.state != Active {
		c.mu.Unlock()
		return ErrNotActive
	}
	prev := c.tab
	leaving := prev != tab && prev.holdsHandles()
	if leaving {
		// thumbnails of the tab we leave are about to be released
		c.loaded[prev] = false
	}
	c.tab = tab
	needLoad := force || !c.loaded[tab]
	fn := c.loaders[tab]
	c.mu.Unlock()

	if leaving {
		n := c.releaser.ReleaseAll()
		c.log.Debug(ctx, "left tab", "tab", prev.String(), "released", n)
	}

	if !needLoad || fn == nil {
		return nil
	}

	if err := fn(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == Active {
		c.loaded[tab] = true
	}
	c.mu.Unlock()
	return nil
}

// transition moves to next. Entering Active opens the default tab.
func (c *Controller) transition(ctx context.Context, next State) error {
	c.mu.Lock()
	prev := c.state
	c.state = next
	if next != Active || prev != Active {
		c.tab = TabContacts
		c.loaded = make(map[Tab]bool)
	}
	subs := append([]func(State){}, c.subs...)
	c.mu.Unlock()

	if prev != next {
		c.log.Info(ctx, "view state changed", "from", prev.String(), "to", next.String())
		for _, fn := range subs {
			fn(next)
		}
	}

	if next == Active && prev != Active {
		return c.Open(ctx, TabContacts)
	}
	return nil
}
