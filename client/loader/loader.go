// Package loader accumulates library pages for infinite-scroll views.
//
// A Controller moves Idle -> Loading -> Idle|Failed and never has more than
// one request in flight. Items only change on a successful response.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Trewaters/soar-sub011/internal/model"
)

var (
	// ErrBusy is returned by Initialize, Refresh and Restore while a request is in flight.
	ErrBusy = errors.New("loader: request in flight")
	// ErrDisposed is returned by every call after Dispose.
	ErrDisposed = errors.New("loader: disposed")
)

// DefaultPageSize is used when Config.PageSize is not positive.
const DefaultPageSize = 20

// Fetcher is the page source; *client.Client satisfies it.
type Fetcher interface {
	GetLibrary(ctx context.Context, req model.PageRequest) (*model.PageResult, error)
}

// Phase is the controller's request state.
type Phase int

const (
	Idle Phase = iota
	Loading
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Config selects what a controller loads.
type Config struct {
	Type     model.LibraryType `json:"type"`
	PageSize int               `json:"pageSize"`
	UserID   string            `json:"userId,omitempty"`
}

// State is a point-in-time view of a controller.
//
// Stale is set when a page that was expected to have items came back empty,
// typically because items were deleted between requests. It is not an error;
// callers may Refresh.
type State struct {
	Config  Config              `json:"config"`
	Items   []model.LibraryItem `json:"items"`
	Loading bool                `json:"loading"`
	HasMore bool                `json:"hasMore"`
	Cursor  string              `json:"cursor,omitempty"`
	Page    int                 `json:"page"`
	Phase   Phase               `json:"phase"`
	Err     error               `json:"-"`
	Stale   bool                `json:"stale,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger. The default discards.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

type Controller struct {
	fetch Fetcher
	log   zerolog.Logger

	mu       sync.Mutex
	st       State
	seen     map[string]struct{}
	hooks    []func(State)
	cancel   context.CancelFunc // cancels the in-flight request
	disposed bool
}

func New(f Fetcher, opts ...Option) *Controller {
	c := &Controller{fetch: f, log: zerolog.Nop(), seen: map[string]struct{}{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// request is one dispatched fetch.
type request struct {
	cfg     Config
	req     model.PageRequest
	replace bool
}

// Initialize loads page 1 for cfg. The accumulated items are replaced when
// the response arrives.
func (c *Controller) Initialize(ctx context.Context, cfg Config) error {
	cfg, err := normalize(cfg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if err := c.startLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	r := request{cfg: cfg, req: firstPage(cfg), replace: true}
	ctx = c.dispatchLocked(ctx)
	c.mu.Unlock()
	return c.run(ctx, r)
}

// Refresh reissues page 1 with the current config and replaces the items
// on success.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if err := c.startLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	cfg := c.st.Config
	if cfg.Type == "" {
		c.mu.Unlock()
		return errors.New("loader: refresh before initialize")
	}
	r := request{cfg: cfg, req: firstPage(cfg), replace: true}
	ctx = c.dispatchLocked(ctx)
	c.mu.Unlock()
	return c.run(ctx, r)
}

// LoadMore fetches the next page. It reports false without a request when
// nothing more is available or a request is already in flight.
func (c *Controller) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false, ErrDisposed
	}
	if c.st.Loading || !c.st.HasMore {
		c.mu.Unlock()
		return false, nil
	}
	cfg := c.st.Config
	req := model.PageRequest{Type: cfg.Type, UserID: cfg.UserID, Limit: cfg.PageSize}
	if c.st.Cursor != "" {
		req.Cursor = c.st.Cursor
	} else {
		req.Page = c.st.Page + 1
	}
	r := request{cfg: cfg, req: req}
	ctx = c.dispatchLocked(ctx)
	c.mu.Unlock()
	return true, c.run(ctx, r)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Restore seeds the controller from a saved snapshot, for example one read
// from the offline cache. Loading state in s is ignored.
func (c *Controller) Restore(s State) error {
	cfg, err := normalize(s.Config)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.startLocked(); err != nil {
		return err
	}
	c.st = State{Config: cfg, HasMore: s.HasMore, Cursor: s.Cursor, Page: s.Page, Stale: s.Stale}
	c.seen = map[string]struct{}{}
	c.st.Items = c.appendUniqueLocked(nil, s.Items)
	return nil
}

// OnUpdate registers fn to be called with the new state after every
// successful response. fn runs outside the controller's lock.
func (c *Controller) OnUpdate(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.disposed {
		c.hooks = append(c.hooks, fn)
	}
}

// Dispose cancels any in-flight request and turns later calls into no-ops
// returning ErrDisposed.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.hooks = nil
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Controller) startLocked() error {
	if c.disposed {
		return ErrDisposed
	}
	if c.st.Loading {
		return ErrBusy
	}
	return nil
}

// dispatchLocked marks the controller Loading and returns the request context.
func (c *Controller) dispatchLocked(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.st.Loading = true
	c.st.Phase = Loading
	return ctx
}

func (c *Controller) run(ctx context.Context, r request) error {
	res, err := c.fetch.GetLibrary(ctx, r.req)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.st.Loading = false
	if err != nil {
		c.st.Phase = Failed
		c.st.Err = err
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("type", string(r.cfg.Type)).Int("page", r.req.Page).Bool("cursor", r.req.Cursor != "").Msg("library page failed")
		return err
	}
	if res == nil {
		res = &model.PageResult{}
	}

	hadMore := c.st.HasMore
	if r.replace {
		c.seen = map[string]struct{}{}
		c.st.Config = r.cfg
		c.st.Items = c.appendUniqueLocked(nil, res.Items)
		c.st.Page = 1
		c.st.Stale = false
	} else {
		c.st.Items = c.appendUniqueLocked(c.st.Items, res.Items)
		c.st.Page++
		c.st.Stale = hadMore && len(res.Items) == 0
	}
	c.st.HasMore = res.HasMore
	c.st.Cursor = res.NextCursor
	c.st.Phase = Idle
	c.st.Err = nil
	snap := c.snapshotLocked()
	hooks := append(([]func(State))(nil), c.hooks...)
	c.mu.Unlock()

	if snap.Stale {
		c.log.Debug().Str("type", string(r.cfg.Type)).Int("items", len(snap.Items)).Msg("empty page after hasMore; items were likely deleted")
	}
	for _, fn := range hooks {
		fn(snap)
	}
	return nil
}

// appendUniqueLocked appends items not seen yet, in order. The first
// occurrence of an id wins.
func (c *Controller) appendUniqueLocked(dst, items []model.LibraryItem) []model.LibraryItem {
	if dst == nil {
		dst = make([]model.LibraryItem, 0, len(items))
	}
	for _, it := range items {
		if _, dup := c.seen[it.ID]; dup {
			continue
		}
		c.seen[it.ID] = struct{}{}
		dst = append(dst, it)
	}
	return dst
}

func (c *Controller) snapshotLocked() State {
	s := c.st
	s.Items = append([]model.LibraryItem(nil), c.st.Items...)
	return s
}

func normalize(cfg Config) (Config, error) {
	t, err := model.ParseLibraryType(string(cfg.Type))
	if err != nil {
		return Config{}, fmt.Errorf("loader: %w", err)
	}
	cfg.Type = t
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return cfg, nil
}

func firstPage(cfg Config) model.PageRequest {
	return model.PageRequest{Type: cfg.Type, UserID: cfg.UserID, Limit: cfg.PageSize, Page: 1}
}
