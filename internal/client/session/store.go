// Package session holds the bearer credential and identity of the logged-in
// user and persists them across restarts in the local SQLite database.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/picdrop/internal/client/models"
	"github.com/dmitrijs2005/picdrop/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/picdrop/internal/dbx"
	"github.com/dmitrijs2005/picdrop/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const (
	keyPrefix             = "session."
	keyToken              = keyPrefix + "token"
	keyUsername           = keyPrefix + "username"
	keyMustChangePassword = keyPrefix + "must_change_password"
)

// ErrEmptyCredential is returned by Set for an empty token.
var ErrEmptyCredential = errors.New("empty credential")

// DB is what the store needs from the local database. *sql.DB satisfies it.
type DB interface {
	dbx.DBTX
	dbx.Beginner
}

// Store is safe for concurrent use. A nil DB keeps the session in memory
// only.
type Store struct {
	db  DB
	log logging.Logger
	now func() time.Time

	// writeMu orders Set, MarkPasswordChanged and Clear so the persisted
	// copy ends up matching the last in-memory change.
	writeMu sync.Mutex

	mu       sync.RWMutex
	token    string
	identity *models.Identity

	hooksMu     sync.Mutex
	subscribers []func(models.Session)
	beforeClear []func()
}

// NewStore returns an empty store persisting to db. A nil db keeps the
// session in memory only.
func NewStore(db DB, log logging.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{db: db, log: log, now: time.Now}
}

// Token implements client.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns a copy of the current identity, or nil when logged out.
func (s *Store) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() models.Session {
	out := models.Session{Token: s.token}
	if s.identity != nil {
		id := *s.identity
		out.Identity = &id
	}
	return out
}

// Subscribe registers fn to be called with the new session after every
// change.
func (s *Store) Subscribe(fn func(models.Session)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// OnClear registers fn to run at the start of Clear, while the identity is
// still set.
func (s *Store) OnClear(fn func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.beforeClear = append(s.beforeClear, fn)
}

func (s *Store) notify(sess models.Session) {
	s.hooksMu.Lock()
	subs := append([]func(models.Session){}, s.subscribers...)
	s.hooksMu.Unlock()
	for _, fn := range subs {
		fn(sess)
	}
}

// Set replaces the session. The in-memory value is updated even when
// persisting it fails; that failure is returned.
func (s *Store) Set(ctx context.Context, token string, identity models.Identity) error {
	if token == "" {
		return ErrEmptyCredential
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token = token
	s.identity = &identity
	sess := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(sess)

	if err := s.persist(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.log.Debug(ctx, "session set", "username", identity.Username, "must_change_password", identity.MustChangePassword)
	return nil
}

// MarkPasswordChanged drops the must-change flag of the current identity.
func (s *Store) MarkPasswordChanged(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return nil
	}
	s.identity.MustChangePassword = false
	sess := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(sess)

	if err := s.persist(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Clear logs out. Before-clear hooks run first, then both fields are erased
// and the persisted copy is deleted.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.hooksMu.Lock()
	hooks := append([]func(){}, s.beforeClear...)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	s.mu.Lock()
	s.token = ""
	s.identity = nil
	s.mu.Unlock()

	s.notify(models.Session{})

	if s.db == nil {
		return nil
	}
	if err := metadata.NewSQLiteRepository(s.db).DeletePrefix(ctx, keyPrefix); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	s.log.Debug(ctx, "session cleared")
	return nil
}

// Restore loads the persisted session without contacting the server. A JWT
// whose exp claim has passed is discarded; other tokens are trusted as-is.
func (s *Store) Restore(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	repo := metadata.NewSQLiteRepository(s.db)

	token, err := repo.Get(ctx, keyToken)
	if err != nil {
		return err
	}
	username, err := repo.Get(ctx, keyUsername)
	if err != nil {
		return err
	}
	mcp, err := repo.Get(ctx, keyMustChangePassword)
	if err != nil {
		return err
	}

	if len(token) == 0 || len(username) == 0 {
		return nil
	}

	if s.expired(string(token)) {
		s.log.Info(ctx, "persisted session expired", "username", string(username))
		if err := repo.DeletePrefix(ctx, keyPrefix); err != nil {
			return fmt.Errorf("drop expired session: %w", err)
		}
		return nil
	}

	mustChange, _ := strconv.ParseBool(string(mcp))
	id := models.Identity{Username: string(username), MustChangePassword: mustChange}

	s.mu.Lock()
	s.token = string(token)
	s.identity = &id
	sess := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(sess)
	return nil
}

func (s *Store) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !s.now().Before(claims.ExpiresAt.Time)
}

func (s *Store) persist(ctx context.Context, sess models.Session) error {
	if s.db == nil || sess.Identity == nil {
		return nil
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyToken, []byte(sess.Token)); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyUsername, []byte(sess.Identity.Username)); err != nil {
			return err
		}
		return repo.Set(ctx, keyMustChangePassword, []byte(strconv.FormatBool(sess.Identity.MustChangePassword)))
	})
}
