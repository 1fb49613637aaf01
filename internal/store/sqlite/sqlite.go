// Package sqlite implements store.Store on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Trewaters/soar-sub011/internal/model"
	"github.com/Trewaters/soar-sub011/internal/store"
)

// NewWithDB wraps an opened database. The schema must already exist.
func NewWithDB(db *sql.DB) *Store {
	s := &Store{db: db}
	s.asanas = &collection{db: db, kind: model.KindAsana, now: time.Now}
	s.series = &collection{db: db, kind: model.KindSeries, now: time.Now}
	s.sequences = &collection{db: db, kind: model.KindSequence, now: time.Now}
	return s
}

type Store struct {
	db                        *sql.DB
	asanas, series, sequences *collection
}

func (s *Store) Asanas() store.Collection    { return s.asanas }
func (s *Store) Series() store.Collection    { return s.series }
func (s *Store) Sequences() store.Collection { return s.sequences }
func (s *Store) Close() error                { return s.db.Close() }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type collection struct {
	db   *sql.DB
	kind model.Kind
	now  func() time.Time
}

func (c *collection) Kind() model.Kind { return c.kind }

func (c *collection) table() string { return store.Tables[c.kind] }

func (c *collection) Page(ctx context.Context, q store.PageQuery) ([]model.LibraryItem, error) {
	var (
		where []string
		args  []any
	)
	if q.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if q.After != nil {
		where = append(where, "(created_at, id) < (?, ?)")
		args = append(args, q.After.CreatedAt.UnixMicro(), q.After.ID)
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, created_at, doc FROM " + c.table())
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?")
	args = append(args, q.Limit)
	if q.After == nil && q.Offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, q.Offset)
	}

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.table(), err)
	}
	defer func() { _ = rows.Close() }()

	res := []model.LibraryItem{}
	for rows.Next() {
		var (
			id     string
			micros int64
			doc    string
		)
		if err := rows.Scan(&id, &micros, &doc); err != nil {
			return nil, err
		}
		it, err := store.DecodeDoc(c.kind, id, time.UnixMicro(micros), []byte(doc))
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

func (c *collection) Insert(ctx context.Context, it model.LibraryItem) (model.LibraryItem, error) {
	it, err := store.PrepareInsert(c.kind, it, c.now())
	if err != nil {
		return model.LibraryItem{}, err
	}
	doc, err := store.EncodeDoc(it)
	if err != nil {
		return model.LibraryItem{}, err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO `+c.table()+` (id, owner_id, title, created_at, doc) VALUES (?, ?, ?, ?, ?)`,
		it.ID, it.OwnerID, it.Title, it.CreatedAt.UnixMicro(), string(doc))
	if isDuplicateKey(err) {
		return model.LibraryItem{}, fmt.Errorf("%w: %s %s already exists", model.ErrConflict, c.kind, it.ID)
	}
	if err != nil {
		return model.LibraryItem{}, fmt.Errorf("insert %s: %w", c.table(), err)
	}
	return it, nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM `+c.table()+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.table(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func isDuplicateKey(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
