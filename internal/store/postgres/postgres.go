package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Trewaters/soar-sub011/internal/model"
	"github.com/Trewaters/soar-sub011/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Bootstrap creates the collection tables and indexes if missing.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"asanas", "series", "sequences"} {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS ` + table + ` (
                id TEXT PRIMARY KEY,
                owner_id TEXT NOT NULL DEFAULT '',
                title TEXT NOT NULL,
                created_at TIMESTAMPTZ NOT NULL,
                doc JSONB NOT NULL
            )`,
			`CREATE INDEX IF NOT EXISTS ` + table + `_created_idx ON ` + table + ` (created_at DESC, id DESC)`,
			`CREATE INDEX IF NOT EXISTS ` + table + `_owner_created_idx ON ` + table + ` (owner_id, created_at DESC, id DESC)`,
		}
		for _, s := range stmts {
			if _, err := db.ExecContext(ctx, s); err != nil {
				return fmt.Errorf("bootstrap %s: %w", table, err)
			}
		}
	}
	return nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store {
	return &pgStore{
		db:        db,
		asanas:    &collection{db: db, kind: model.KindAsana, now: time.Now},
		series:    &collection{db: db, kind: model.KindSeries, now: time.Now},
		sequences: &collection{db: db, kind: model.KindSequence, now: time.Now},
	}
}

type pgStore struct {
	db                        *sql.DB
	asanas, series, sequences *collection
}

func (s *pgStore) Asanas() store.Collection    { return s.asanas }
func (s *pgStore) Series() store.Collection    { return s.series }
func (s *pgStore) Sequences() store.Collection { return s.sequences }
func (s *pgStore) Close() error                { return s.db.Close() }

// HealthPing implements health.HealthPinger for Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
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
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.OwnerID != "" {
		where = append(where, "owner_id = "+arg(q.OwnerID))
	}
	if q.After != nil {
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", arg(q.After.CreatedAt), arg(q.After.ID)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, created_at, doc FROM " + c.table())
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT " + arg(q.Limit))
	if q.After == nil && q.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(q.Offset))
	}

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.table(), err)
	}
	defer func() { _ = rows.Close() }()

	res := []model.LibraryItem{}
	for rows.Next() {
		var (
			id      string
			created time.Time
			doc     []byte
		)
		if err := rows.Scan(&id, &created, &doc); err != nil {
			return nil, err
		}
		it, err := store.DecodeDoc(c.kind, id, created, doc)
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
	_, err = c.db.ExecContext(ctx, `
        INSERT INTO `+c.table()+` (id, owner_id, title, created_at, doc)
        VALUES ($1,$2,$3,$4,$5)
    `, it.ID, it.OwnerID, it.Title, it.CreatedAt, string(doc))
	if isDuplicateKey(err) {
		return model.LibraryItem{}, fmt.Errorf("%w: %s %s already exists", model.ErrConflict, c.kind, it.ID)
	}
	if err != nil {
		return model.LibraryItem{}, fmt.Errorf("insert %s: %w", c.table(), err)
	}
	return it, nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM `+c.table()+` WHERE id=$1`, id)
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

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

func isDuplicateKey(err error) bool {
	var pe *pgconn.PgError
	return errors.As(err, &pe) && pe.Code == uniqueViolation
}
