// Package memstore is an in-memory store.Store for development and tests.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Trewaters/soar-sub011/internal/model"
	"github.com/Trewaters/soar-sub011/internal/store"
)

// New returns an empty in-memory store.
func New() *Store {
	s := &Store{}
	for _, k := range model.Kinds {
		s.collections[idx(k)] = &collection{kind: k, items: map[string]model.LibraryItem{}, now: time.Now}
	}
	return s
}

type Store struct {
	collections [3]*collection
}

func idx(k model.Kind) int {
	switch k {
	case model.KindSeries:
		return 1
	case model.KindSequence:
		return 2
	}
	return 0
}

func (s *Store) Asanas() store.Collection    { return s.collections[0] }
func (s *Store) Series() store.Collection    { return s.collections[1] }
func (s *Store) Sequences() store.Collection { return s.collections[2] }
func (s *Store) Close() error                { return nil }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error { return ctx.Err() }

type collection struct {
	kind  model.Kind
	mu    sync.RWMutex
	items map[string]model.LibraryItem
	now   func() time.Time
}

func (c *collection) Kind() model.Kind { return c.kind }

func (c *collection) Page(ctx context.Context, q store.PageQuery) ([]model.LibraryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	all := make([]model.LibraryItem, 0, len(c.items))
	for _, it := range c.items {
		if q.OwnerID != "" && it.OwnerID != q.OwnerID {
			continue
		}
		if q.After != nil && !q.After.Precedes(model.PositionOf(it)) {
			continue
		}
		all = append(all, it)
	}
	c.mu.RUnlock()

	model.SortItems(all)
	if q.After == nil && q.Offset > 0 {
		if q.Offset >= len(all) {
			return []model.LibraryItem{}, nil
		}
		all = all[q.Offset:]
	}
	if q.Limit >= 0 && len(all) > q.Limit {
		all = all[:q.Limit]
	}
	return all, nil
}

func (c *collection) Insert(ctx context.Context, it model.LibraryItem) (model.LibraryItem, error) {
	if err := ctx.Err(); err != nil {
		return model.LibraryItem{}, err
	}
	it, err := store.PrepareInsert(c.kind, it, c.now())
	if err != nil {
		return model.LibraryItem{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.items[it.ID]; dup {
		return model.LibraryItem{}, fmt.Errorf("%w: %s %s already exists", model.ErrConflict, c.kind, it.ID)
	}
	c.items[it.ID] = it
	return it, nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return model.ErrNotFound
	}
	delete(c.items, id)
	return nil
}
