// Package library resolves paginated views over the asana, series and
// sequence collections, individually or merged into one feed.
package library

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Trewaters/soar-sub011/internal/cursor"
	"github.com/Trewaters/soar-sub011/internal/metrics"
	"github.com/Trewaters/soar-sub011/internal/model"
	"github.com/Trewaters/soar-sub011/internal/store"
)

// Options bound what a single request may ask of the store.
type Options struct {
	MaxLimit        int
	MaxOffsetWindow int
	SearchWindow    int
	StoreTimeout    time.Duration
	AlphaUserIDs    []string
}

// DefaultOptions matches the service configuration defaults.
func DefaultOptions() Options {
	return Options{MaxLimit: 100, MaxOffsetWindow: 1000, SearchWindow: 200, StoreTimeout: 5 * time.Second}
}

type Service struct {
	store store.Store
	opts  Options
	log   zerolog.Logger
}

func NewService(s store.Store, opts Options, log zerolog.Logger) *Service {
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultOptions().MaxLimit
	}
	if opts.MaxOffsetWindow < opts.MaxLimit {
		opts.MaxOffsetWindow = opts.MaxLimit
	}
	if opts.SearchWindow <= 0 {
		opts.SearchWindow = opts.MaxLimit
	}
	return &Service{store: s, opts: opts, log: log}
}

// window is a validated PageRequest.
type window struct {
	typ   model.LibraryType
	owner string
	limit int
	page  int
	after *model.Position
}

func (w window) mode() string {
	if w.after != nil {
		return "cursor"
	}
	return "offset"
}

// GetLibrary resolves one page. Items are ordered by createdAt descending,
// then id descending; NextCursor is set exactly when HasMore is true.
func (s *Service) GetLibrary(ctx context.Context, req model.PageRequest) (res *model.PageResult, err error) {
	start := time.Now()
	w, err := s.validate(req)
	if err != nil {
		metrics.LibraryRequestsTotal.WithLabelValues(typeLabel(req.Type), "", metrics.OutcomeInvalid).Inc()
		return nil, err
	}
	defer func() {
		outcome := outcomeOf(err)
		metrics.LibraryRequestsTotal.WithLabelValues(string(w.typ), w.mode(), outcome).Inc()
		metrics.LibraryRequestSeconds.WithLabelValues(string(w.typ)).Observe(time.Since(start).Seconds())
	}()

	if w.typ != model.TypeAll {
		res, err = s.single(ctx, w)
	} else {
		res, err = s.merged(ctx, w)
	}
	if err != nil {
		lvl := zerolog.WarnLevel
		if ctx.Err() != nil {
			lvl = zerolog.DebugLevel
		}
		s.log.WithLevel(lvl).Err(err).Str("type", string(w.typ)).Str("mode", w.mode()).Msg("library page failed")
		return nil, err
	}
	s.log.Debug().
		Str("type", string(w.typ)).
		Str("mode", w.mode()).
		Int("limit", w.limit).
		Int("returned", len(res.Items)).
		Bool("has_more", res.HasMore).
		Msg("library page resolved")
	return res, nil
}

func (s *Service) validate(req model.PageRequest) (window, error) {
	typ, err := model.ParseLibraryType(string(req.Type))
	if err != nil {
		return window{}, NewInvalidRequest("type", fmt.Sprintf("must be one of asanas, series, sequences, all; got %q", req.Type))
	}
	w := window{typ: typ, owner: req.UserID, limit: req.Limit, page: 1}

	if req.Limit <= 0 {
		return window{}, NewInvalidRequest("limit", "must be a positive integer")
	}
	if w.limit > s.opts.MaxLimit {
		w.limit = s.opts.MaxLimit
	}

	if req.Cursor != "" {
		pos, err := cursor.Decode(req.Cursor)
		if err != nil {
			return window{}, NewInvalidRequest("cursor", err.Error())
		}
		w.after = &pos
		return w, nil
	}

	switch {
	case req.Page < 0:
		return window{}, NewInvalidRequest("page", "must be a positive integer")
	case req.Page > 0:
		w.page = req.Page
	}
	if w.page-1 > math.MaxInt32/w.limit {
		return window{}, NewInvalidRequest("page", "out of range")
	}
	if typ == model.TypeAll && w.page*w.limit > s.opts.MaxOffsetWindow {
		return window{}, NewInvalidRequest("page", fmt.Sprintf("offset beyond %d items; continue with the cursor", s.opts.MaxOffsetWindow))
	}
	return w, nil
}

func (s *Service) single(ctx context.Context, w window) (*model.PageResult, error) {
	kind := w.typ.Kinds()[0]
	rows, err := s.query(ctx, kind, store.PageQuery{
		OwnerID: w.owner,
		Limit:   w.limit + 1,
		Offset:  (w.page - 1) * w.limit,
		After:   w.after,
	})
	if err != nil {
		return nil, err
	}
	return paginate(rows, w.limit), nil
}

// merged reads every collection concurrently and merges them in library
// order. In cursor mode each collection resumes after the cursor. In offset
// mode each collection supplies its first page*limit+1 rows, which is enough
// to place the requested window exactly.
func (s *Service) merged(ctx context.Context, w window) (*model.PageResult, error) {
	q := store.PageQuery{OwnerID: w.owner, Limit: w.limit + 1, After: w.after}
	if w.after == nil {
		q.Limit = w.page*w.limit + 1
	}

	rows, err := s.fanOut(ctx, w.typ.Kinds(), q)
	if err != nil {
		return nil, err
	}
	model.SortItems(rows)

	if w.after == nil {
		skip := (w.page - 1) * w.limit
		if skip >= len(rows) {
			return &model.PageResult{Items: []model.LibraryItem{}}, nil
		}
		rows = rows[skip:]
	}
	return paginate(rows, w.limit), nil
}

// fanOut runs q against each kind concurrently. The first failure cancels
// the remaining queries and fails the call.
func (s *Service) fanOut(ctx context.Context, kinds []model.Kind, q store.PageQuery) ([]model.LibraryItem, error) {
	results := make([][]model.LibraryItem, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			rows, err := s.query(gctx, kind, q)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if len(kinds) == 1 {
			return nil, err
		}
		var se StoreUnavailableError
		if errors.As(err, &se) {
			return nil, PartialMergeFailureError{Failed: se.Kind, Err: err}
		}
		return nil, err
	}

	var all []model.LibraryItem
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

func (s *Service) query(ctx context.Context, kind model.Kind, q store.PageQuery) ([]model.LibraryItem, error) {
	c, err := store.CollectionFor(s.store, kind)
	if err != nil {
		return nil, err
	}
	parent := ctx
	if s.opts.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.StoreTimeout)
		defer cancel()
	}
	rows, err := c.Page(ctx, q)
	if err != nil {
		// The caller went away; the store did nothing wrong.
		if perr := parent.Err(); perr != nil {
			return nil, perr
		}
		metrics.StoreQueryFailuresTotal.WithLabelValues(store.Tables[kind]).Inc()
		return nil, StoreUnavailableError{Kind: kind, Err: err}
	}
	return rows, nil
}

// typeLabel bounds the metric label to the known library types.
func typeLabel(t model.LibraryType) string {
	if _, err := model.ParseLibraryType(string(t)); err != nil {
		return metrics.TypeInvalid
	}
	return string(t)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case IsStoreUnavailable(err):
		return metrics.OutcomeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeUnavailable
}

// paginate trims an over-fetched, ordered slice to limit.
func paginate(rows []model.LibraryItem, limit int) *model.PageResult {
	res := &model.PageResult{Items: rows, HasMore: len(rows) > limit}
	if res.HasMore {
		res.Items = rows[:limit:limit]
		res.NextCursor = cursor.Encode(model.PositionOf(res.Items[limit-1]))
	}
	if res.Items == nil {
		res.Items = []model.LibraryItem{}
	}
	return res
}
