package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Trewaters/soar-sub011/internal/model"
)

// SeedFile is the JSON layout accepted by Seed.
type SeedFile struct {
	Asanas    []model.Asana    `json:"asanas"`
	Series    []model.Series   `json:"series"`
	Sequences []model.Sequence `json:"sequences"`
}

// Seed inserts every record from r and returns how many were written.
// Records whose id already exists are skipped.
func Seed(ctx context.Context, s Store, r io.Reader) (int, error) {
	var f SeedFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return 0, fmt.Errorf("decode seed: %w", err)
	}

	var items []model.LibraryItem
	for _, a := range f.Asanas {
		items = append(items, model.FromAsana(a))
	}
	for _, se := range f.Series {
		items = append(items, model.FromSeries(se))
	}
	for _, q := range f.Sequences {
		items = append(items, model.FromSequence(q))
	}

	n := 0
	for _, it := range items {
		c, err := CollectionFor(s, it.Kind)
		if err != nil {
			return n, err
		}
		if it.CreatedAt.IsZero() {
			// keep file order as library order when timestamps are omitted
			it = it.WithID(it.ID, time.Now().Add(-time.Duration(n)*time.Millisecond))
		}
		_, err = c.Insert(ctx, it)
		switch {
		case errors.Is(err, model.ErrConflict):
			continue
		case err != nil:
			return n, fmt.Errorf("seed %s %q: %w", it.Kind, it.Title, err)
		}
		n++
	}
	return n, nil
}

// SeedPath is Seed over a file on disk.
func SeedPath(ctx context.Context, s Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return Seed(ctx, s, f)
}

// Empty reports whether every collection of s is empty.
func Empty(ctx context.Context, s Store) (bool, error) {
	for _, c := range []Collection{s.Asanas(), s.Series(), s.Sequences()} {
		rows, err := c.Page(ctx, PageQuery{Limit: 1})
		if err != nil {
			return false, fmt.Errorf("probe %s: %w", c.Kind(), err)
		}
		if len(rows) > 0 {
			return false, nil
		}
	}
	return true, nil
}
