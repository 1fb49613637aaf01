// Package session owns the client state for one signed-in session: the
// hydrated app state, the offline store and cache, and one library loader
// per library type. Nothing here is global; callers pass the Session along.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Trewaters/soar-sub011/client/loader"
	"github.com/Trewaters/soar-sub011/client/offline"
	"github.com/Trewaters/soar-sub011/internal/model"
)

// ErrClosed is returned by Library after Close.
var ErrClosed = errors.New("session: closed")

// Options configure Start.
type Options struct {
	Fetcher   loader.Fetcher
	CachePath string // bbolt file; empty runs memory-only
	UserID    string
	PageSize  int

	// PurgeInterval > 0 starts a background purge of cache entries older
	// than CacheMaxAge.
	PurgeInterval time.Duration
	CacheMaxAge   time.Duration

	Clock func() time.Time
	Log   zerolog.Logger
}

type Session struct {
	id    string
	opts  Options
	log   zerolog.Logger
	store *offline.Store
	cache *offline.Cache

	mu          sync.Mutex
	state       offline.AppState
	controllers map[model.LibraryType]*loader.Controller
	closed      bool

	stopPurge context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Start opens the offline store, hydrates the app state from it and starts
// the purge job when configured. It always returns a usable Session.
func Start(ctx context.Context, opts Options) *Session {
	id := uuid.NewString()
	log := opts.Log.With().Str("session", id).Logger()

	store := offline.Open(opts.CachePath, log)
	var cacheOpts []offline.CacheOption
	if opts.Clock != nil {
		cacheOpts = append(cacheOpts, offline.WithClock(opts.Clock))
	}
	s := &Session{
		id:          id,
		opts:        opts,
		log:         log,
		store:       store,
		cache:       offline.NewCache(store, cacheOpts...),
		controllers: make(map[model.LibraryType]*loader.Controller),
		stopPurge:   func() {},
	}
	s.state = offline.Hydrate(ctx, store, log)

	if opts.PurgeInterval > 0 && opts.CacheMaxAge > 0 {
		purgeCtx, cancel := context.WithCancel(context.Background())
		s.stopPurge = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.cache.StartPurgeJob(purgeCtx, opts.PurgeInterval, opts.CacheMaxAge)
		}()
	}
	log.Info().Bool("persistent", store.Persistent()).Msg("session started")
	return s
}

func (s *Session) ID() string { return s.id }

// Store and Cache expose the session's offline storage.
func (s *Session) Store() *offline.Store { return s.store }
func (s *Session) Cache() *offline.Cache { return s.cache }

// State returns the current app state.
func (s *Session) State() offline.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdateState mutates the app state under the session lock. It is saved on Close.
func (s *Session) UpdateState(fn func(*offline.AppState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func snapshotKey(t model.LibraryType) string { return "library:" + string(t) }

// Library returns the loader for t, creating it on first use. A new loader
// is restored from the cached snapshot of the same type and user, so
// LoadMore can continue where a previous session stopped. Every successful
// page is written back to the cache.
func (s *Session) Library(t model.LibraryType) (*loader.Controller, error) {
	t, err := model.ParseLibraryType(string(t))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if c, ok := s.controllers[t]; ok {
		return c, nil
	}

	c := loader.New(s.opts.Fetcher, loader.WithLogger(s.log))
	var snap loader.State
	ok, err := s.cache.GetCache(snapshotKey(t), &snap)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("type", string(t)).Msg("library snapshot unreadable; starting fresh")
	case ok && snap.Config.Type == t && snap.Config.UserID == s.opts.UserID:
		if err := c.Restore(snap); err != nil {
			s.log.Warn().Err(err).Str("type", string(t)).Msg("library snapshot rejected")
		} else {
			s.log.Debug().Str("type", string(t)).Int("items", len(snap.Items)).Msg("library restored from cache")
		}
	}
	c.OnUpdate(func(st loader.State) {
		if err := s.cache.SetCache(snapshotKey(t), st); err != nil {
			s.log.Warn().Err(err).Str("type", string(t)).Msg("library snapshot not cached")
		}
	})
	s.controllers[t] = c
	return c, nil
}

// Config is the loader config this session uses for t.
func (s *Session) Config(t model.LibraryType) loader.Config {
	return loader.Config{Type: t, PageSize: s.opts.PageSize, UserID: s.opts.UserID}
}

// Close stops the purge job, disposes the loaders, saves the app state and
// closes the store. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.stopPurge()
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		for _, c := range s.controllers {
			c.Dispose()
		}
		st := s.state
		s.mu.Unlock()

		var errs []error
		if err := offline.SaveAppState(s.store, st); err != nil {
			errs = append(errs, err)
		}
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close offline store: %w", err))
		}
		s.closeErr = errors.Join(errs...)
		s.log.Info().Err(s.closeErr).Msg("session closed")
	})
	return s.closeErr
}
