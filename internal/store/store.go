package store

import (
	"context"
	"fmt"

	"github.com/Trewaters/soar-sub011/internal/model"
)

// Store exposes the content collections the library reads from.
// Implementations live under internal/store/<driver>/ (memstore, sqlite, postgres).
type Store interface {
	Asanas() Collection
	Series() Collection
	Sequences() Collection
	Close() error
}

// Collection is one backing collection, queried in library order
// (createdAt descending, id descending).
type Collection interface {
	Kind() model.Kind
	// Page returns at most q.Limit items. When q.After is set the scan resumes
	// strictly after that position and q.Offset is ignored.
	Page(ctx context.Context, q PageQuery) ([]model.LibraryItem, error)
	// Insert stores an item, assigning an id and creation time when absent.
	Insert(ctx context.Context, it model.LibraryItem) (model.LibraryItem, error)
	// Delete removes an item by id; model.ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
}

// PageQuery is a window over one collection.
type PageQuery struct {
	OwnerID string
	Limit   int
	Offset  int
	After   *model.Position
}

// CollectionFor returns the collection holding kind.
func CollectionFor(s Store, kind model.Kind) (Collection, error) {
	switch kind {
	case model.KindAsana:
		return s.Asanas(), nil
	case model.KindSeries:
		return s.Series(), nil
	case model.KindSequence:
		return s.Sequences(), nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", model.ErrValidation, kind)
}
