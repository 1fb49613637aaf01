package library

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trewaters/soar-sub011/internal/metrics"
	"github.com/Trewaters/soar-sub011/internal/model"
	"github.com/Trewaters/soar-sub011/internal/store"
	"github.com/Trewaters/soar-sub011/internal/store/memstore"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// --- fakes ---

type fakeStore struct {
	asanas, series, sequences store.Collection
}

func (f *fakeStore) Asanas() store.Collection    { return f.asanas }
func (f *fakeStore) Series() store.Collection    { return f.series }
func (f *fakeStore) Sequences() store.Collection { return f.sequences }
func (f *fakeStore) Close() error                { return nil }

func wrap(s *memstore.Store) *fakeStore {
	return &fakeStore{
		asanas:    &scripted{Collection: s.Asanas()},
		series:    &scripted{Collection: s.Series()},
		sequences: &scripted{Collection: s.Sequences()},
	}
}

// scripted wraps a collection to count calls, fail, or block until cancelled.
type scripted struct {
	store.Collection
	err   error
	block bool
	calls atomic.Int32
	last  atomic.Pointer[store.PageQuery]
}

func (c *scripted) Page(ctx context.Context, q store.PageQuery) ([]model.LibraryItem, error) {
	c.calls.Add(1)
	c.last.Store(&q)
	if c.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.Collection.Page(ctx, q)
}

func (f *fakeStore) calls() int {
	n := 0
	for _, c := range []store.Collection{f.asanas, f.series, f.sequences} {
		n += int(c.(*scripted).calls.Load())
	}
	return n
}

func newService(t *testing.T, st store.Store, mut ...func(*Options)) *Service {
	t.Helper()
	opts := DefaultOptions()
	for _, m := range mut {
		m(&opts)
	}
	return NewService(st, opts, zerolog.Nop())
}

func addAsana(t *testing.T, s *memstore.Store, id, owner string, at time.Time) model.LibraryItem {
	t.Helper()
	it, err := s.Asanas().Insert(context.Background(), model.FromAsana(model.Asana{ID: id, EnglishName: "Asana " + id, CreatedBy: owner, CreatedAt: at}))
	require.NoError(t, err)
	return it
}

func addSeries(t *testing.T, s *memstore.Store, id string, at time.Time) model.LibraryItem {
	t.Helper()
	it, err := s.Series().Insert(context.Background(), model.FromSeries(model.Series{ID: id, Name: "Series " + id, CreatedAt: at}))
	require.NoError(t, err)
	return it
}

func addSequence(t *testing.T, s *memstore.Store, id string, at time.Time) model.LibraryItem {
	t.Helper()
	it, err := s.Sequences().Insert(context.Background(), model.FromSequence(model.Sequence{ID: id, Name: "Sequence " + id, CreatedAt: at}))
	require.NoError(t, err)
	return it
}

func itemIDs(items []model.LibraryItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

// populated returns a store with interleaved content across all three collections.
func populated(t *testing.T) (*memstore.Store, []string) {
	t.Helper()
	s := memstore.New()
	var all []model.LibraryItem
	for i := 0; i < 16; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		id := fmt.Sprintf("%02d", i)
		switch i % 3 {
		case 0:
			all = append(all, addAsana(t, s, "a"+id, "", at))
		case 1:
			all = append(all, addSeries(t, s, "s"+id, at))
		default:
			all = append(all, addSequence(t, s, "q"+id, at))
		}
	}
	// same-timestamp tie across collections
	all = append(all, addSeries(t, s, "zz-tie", base.Add(15*time.Hour)))
	model.SortItems(all)
	return s, itemIDs(all)
}

// --- GetLibrary ---

func TestGetLibrary_MergeAndSortAll(t *testing.T) {
	s := memstore.New()
	addSequence(t, s, "q1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	addAsana(t, s, "a1", "", time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	addSeries(t, s, "s1", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

	res, err := newService(t, s).GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAll, Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, []model.Kind{model.KindAsana, model.KindSeries, model.KindSequence},
		[]model.Kind{res.Items[0].Kind, res.Items[1].Kind, res.Items[2].Kind})
	assert.False(t, res.HasMore)
	assert.Empty(t, res.NextCursor)
}

func TestGetLibrary_SingleTypeOffsetPages(t *testing.T) {
	s := memstore.New()
	for i := 0; i < 5; i++ {
		addAsana(t, s, fmt.Sprintf("a%d", i), "", base.Add(time.Duration(i)*time.Minute))
	}
	svc := newService(t, s)

	cases := []struct {
		page    int
		want    []string
		hasMore bool
	}{
		{0, []string{"a4", "a3"}, true},
		{1, []string{"a4", "a3"}, true},
		{2, []string{"a2", "a1"}, true},
		{3, []string{"a0"}, false},
		{4, []string{}, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("page %d", tc.page), func(t *testing.T) {
			res, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAsanas, Limit: 2, Page: tc.page})
			require.NoError(t, err)
			assert.Equal(t, tc.want, itemIDs(res.Items))
			assert.Equal(t, tc.hasMore, res.HasMore)
			assert.Equal(t, tc.hasMore, res.NextCursor != "")
		})
	}
}

func TestGetLibrary_CursorWalkMatchesGlobalOrder(t *testing.T) {
	s, want := populated(t)
	svc := newService(t, s)

	for _, limit := range []int{1, 2, 3, 5, 7, 20} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			var got []string
			req := model.PageRequest{Type: model.TypeAll, Limit: limit}
			for i := 0; i < 100; i++ {
				res, err := svc.GetLibrary(context.Background(), req)
				require.NoError(t, err)
				require.LessOrEqual(t, len(res.Items), limit)
				got = append(got, itemIDs(res.Items)...)
				if !res.HasMore {
					require.Empty(t, res.NextCursor)
					break
				}
				req.Cursor = res.NextCursor
				req.Page = 99 // ignored in cursor mode
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestGetLibrary_OffsetAllMatchesGlobalOrder(t *testing.T) {
	s, want := populated(t)
	svc := newService(t, s)

	for _, limit := range []int{1, 3, 4, 17} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			var got []string
			for page := 1; ; page++ {
				res, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAll, Limit: limit, Page: page})
				require.NoError(t, err)
				got = append(got, itemIDs(res.Items)...)
				if !res.HasMore {
					break
				}
				require.Len(t, res.Items, limit)
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestGetLibrary_CursorSurvivesInsertAhead(t *testing.T) {
	s := memstore.New()
	for i := 0; i < 4; i++ {
		addAsana(t, s, fmt.Sprintf("a%d", i), "", base.Add(time.Duration(i)*time.Minute))
	}
	svc := newService(t, s)

	first, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAsanas, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a2"}, itemIDs(first.Items))

	addAsana(t, s, "new", "", base.Add(time.Hour))

	second, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAsanas, Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a0"}, itemIDs(second.Items))
	assert.False(t, second.HasMore)
}

func TestGetLibrary_DeletionBetweenPages(t *testing.T) {
	s := memstore.New()
	for i := 0; i < 3; i++ {
		addAsana(t, s, fmt.Sprintf("a%d", i), "", base.Add(time.Duration(i)*time.Minute))
	}
	svc := newService(t, s)

	first, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAsanas, Limit: 2, Page: 1})
	require.NoError(t, err)
	require.True(t, first.HasMore)

	require.NoError(t, s.Asanas().Delete(context.Background(), "a0"))
	require.NoError(t, s.Asanas().Delete(context.Background(), "a2"))

	second, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAsanas, Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Empty(t, second.Items)
	assert.NotNil(t, second.Items)
	assert.False(t, second.HasMore)

	viaCursor, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAll, Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Empty(t, viaCursor.Items)
	assert.False(t, viaCursor.HasMore)
}

func TestGetLibrary_UserFilter(t *testing.T) {
	s := memstore.New()
	addAsana(t, s, "mine", "u1", base)
	addAsana(t, s, "theirs", "u2", base.Add(time.Minute))

	res, err := newService(t, s).GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAll, UserID: "u1", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, itemIDs(res.Items))
}

func TestGetLibrary_LimitClamped(t *testing.T) {
	s, _ := populated(t)
	svc := newService(t, s, func(o *Options) { o.MaxLimit = 3 })

	res, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAll, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.True(t, res.HasMore)
}

func TestGetLibrary_InvalidRequestsTouchNoStore(t *testing.T) {
	fs := wrap(memstore.New())
	svc := newService(t, fs, func(o *Options) { o.MaxOffsetWindow = 100 })

	cases := []struct {
		name  string
		req   model.PageRequest
		field string
	}{
		{"unknown type", model.PageRequest{Type: "poses", Limit: 5}, "type"},
		{"empty type", model.PageRequest{Limit: 5}, "type"},
		{"zero limit", model.PageRequest{Type: model.TypeAsanas}, "limit"},
		{"negative limit", model.PageRequest{Type: model.TypeSeries, Limit: -3}, "limit"},
		{"negative page", model.PageRequest{Type: model.TypeSequences, Limit: 5, Page: -1}, "page"},
		{"garbage cursor", model.PageRequest{Type: model.TypeAll, Limit: 5, Cursor: "!!"}, "cursor"},
		{"offset beyond window", model.PageRequest{Type: model.TypeAll, Limit: 10, Page: 11}, "page"},
		{"huge page", model.PageRequest{Type: model.TypeAsanas, Limit: 50, Page: 1 << 40}, "page"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GetLibrary(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, IsInvalidRequest(err))
			var ie InvalidRequestError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tc.field, ie.Field)
		})
	}
	assert.Zero(t, fs.calls())
}

func TestGetLibrary_OverFetchesOneRow(t *testing.T) {
	fs := wrap(memstore.New())
	svc := newService(t, fs)

	_, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: model.TypeSeries, Limit: 10, Page: 3})
	require.NoError(t, err)
	q := fs.series.(*scripted).last.Load()
	require.NotNil(t, q)
	assert.Equal(t, 11, q.Limit)
	assert.Equal(t, 20, q.Offset)
	assert.Zero(t, fs.asanas.(*scripted).calls.Load())
}

func TestGetLibrary_StoreUnavailable(t *testing.T) {
	fs := wrap(memstore.New())
	fs.asanas.(*scripted).err = errors.New("connection reset")

	_, err := newService(t, fs).GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAsanas, Limit: 5})
	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
	assert.False(t, IsPartialMergeFailure(err))
	assert.False(t, IsInvalidRequest(err))
}

func TestGetLibrary_AllFailsWholeOnSubQueryFailure(t *testing.T) {
	s := memstore.New()
	addAsana(t, s, "a1", "", base)
	fs := wrap(s)
	fs.series.(*scripted).err = errors.New("series shard down")

	res, err := newService(t, fs).GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAll, Limit: 5})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsPartialMergeFailure(err))
	assert.True(t, IsStoreUnavailable(err))

	var pe PartialMergeFailureError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, model.KindSeries, pe.Failed)
}

func TestGetLibrary_FailureCancelsSiblings(t *testing.T) {
	fs := wrap(memstore.New())
	fs.asanas.(*scripted).block = true
	fs.sequences.(*scripted).block = true
	fs.series.(*scripted).err = errors.New("boom")

	done := make(chan error, 1)
	go func() {
		_, err := newService(t, fs, func(o *Options) { o.StoreTimeout = 0 }).
			GetLibrary(context.Background(), model.PageRequest{Type: model.TypeAll, Limit: 5})
		done <- err
	}()

	select {
	case err := <-done:
		var pe PartialMergeFailureError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, model.KindSeries, pe.Failed)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked sub-queries were not cancelled")
	}
}

func TestGetLibrary_StoreTimeout(t *testing.T) {
	fs := wrap(memstore.New())
	fs.sequences.(*scripted).block = true

	_, err := newService(t, fs, func(o *Options) { o.StoreTimeout = 20 * time.Millisecond }).
		GetLibrary(context.Background(), model.PageRequest{Type: model.TypeSequences, Limit: 5})
	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetLibrary_CallerCancelIsNotAStoreFailure(t *testing.T) {
	for _, typ := range []model.LibraryType{model.TypeSequences, model.TypeAll} {
		t.Run(string(typ), func(t *testing.T) {
			fs := wrap(memstore.New())
			fs.asanas.(*scripted).block = true
			fs.series.(*scripted).block = true
			fs.sequences.(*scripted).block = true
			failuresBefore := testutil.ToFloat64(metrics.StoreQueryFailuresTotal.WithLabelValues(store.Tables[model.KindSequence]))

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				_, err := newService(t, fs, func(o *Options) { o.StoreTimeout = 0 }).
					GetLibrary(ctx, model.PageRequest{Type: typ, Limit: 5})
				done <- err
			}()
			require.Eventually(t, func() bool { return fs.sequences.(*scripted).calls.Load() > 0 }, time.Second, time.Millisecond)
			cancel()

			err := <-done
			require.ErrorIs(t, err, context.Canceled)
			assert.False(t, IsStoreUnavailable(err))
			assert.False(t, IsPartialMergeFailure(err))
			assert.Equal(t, failuresBefore, testutil.ToFloat64(metrics.StoreQueryFailuresTotal.WithLabelValues(store.Tables[model.KindSequence])))
		})
	}
}

func TestInvalidTypeUsesFixedMetricLabel(t *testing.T) {
	svc := newService(t, wrap(memstore.New()))
	bogus := model.LibraryType("poses-" + fmt.Sprint(time.Now().UnixNano()))

	pageBefore := testutil.ToFloat64(metrics.LibraryRequestsTotal.WithLabelValues(metrics.TypeInvalid, "", metrics.OutcomeInvalid))
	_, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: bogus, Limit: 5})
	require.True(t, IsInvalidRequest(err))
	assert.Equal(t, pageBefore+1, testutil.ToFloat64(metrics.LibraryRequestsTotal.WithLabelValues(metrics.TypeInvalid, "", metrics.OutcomeInvalid)))
	assert.False(t, metrics.LibraryRequestsTotal.DeleteLabelValues(string(bogus), "", metrics.OutcomeInvalid), "raw type must not become a label")

	searchBefore := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(metrics.TypeInvalid, metrics.OutcomeInvalid))
	_, err = svc.Search(context.Background(), SearchRequest{Type: bogus, Limit: 5})
	require.True(t, IsInvalidRequest(err))
	assert.Equal(t, searchBefore+1, testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues(metrics.TypeInvalid, metrics.OutcomeInvalid)))
	assert.False(t, metrics.SearchRequestsTotal.DeleteLabelValues(string(bogus), metrics.OutcomeInvalid))
}

func TestGetLibrary_PageInvariants(t *testing.T) {
	s, _ := populated(t)
	svc := newService(t, s)

	for _, typ := range []model.LibraryType{model.TypeAsanas, model.TypeSeries, model.TypeSequences, model.TypeAll} {
		for limit := 1; limit <= 6; limit++ {
			for page := 1; page <= 6; page++ {
				res, err := svc.GetLibrary(context.Background(), model.PageRequest{Type: typ, Limit: limit, Page: page})
				require.NoError(t, err)
				require.LessOrEqual(t, len(res.Items), limit, "%s limit=%d page=%d", typ, limit, page)
				require.Equal(t, res.HasMore, res.NextCursor != "", "%s limit=%d page=%d", typ, limit, page)
				for i := 1; i < len(res.Items); i++ {
					require.True(t, model.PositionOf(res.Items[i-1]).Precedes(model.PositionOf(res.Items[i])))
				}
			}
		}
	}
}

// --- Search ---

func TestSearch_TiersUseConfiguredAlphaUsers(t *testing.T) {
	s := memstore.New()
	addAsana(t, s, "other", "stranger", base.Add(3*time.Minute))
	addAsana(t, s, "alpha", "creator", base.Add(time.Minute))
	addAsana(t, s, "own", "me", base)
	addSeries(t, s, "s1", base.Add(time.Hour))

	svc := newService(t, s, func(o *Options) { o.AlphaUserIDs = []string{"creator"} })
	res, err := svc.Search(context.Background(), SearchRequest{Type: model.TypeAll, Query: "asana", ViewerID: "me", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Groups, 3)
	assert.Equal(t, "own", res.Groups[0].Tier.String())
	assert.Equal(t, "own", res.Groups[0].Items[0].ID)
	assert.Equal(t, "alpha", res.Groups[1].Items[0].ID)
	assert.Equal(t, "other", res.Groups[2].Items[0].ID)
}

func TestSearch_LimitAndValidation(t *testing.T) {
	s, _ := populated(t)
	svc := newService(t, s)

	res, err := svc.Search(context.Background(), SearchRequest{Type: model.TypeAll, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 17, res.Total)
	require.Len(t, res.Groups, 1)
	assert.Len(t, res.Groups[0].Items, 2)

	res, err = svc.Search(context.Background(), SearchRequest{Type: model.TypeSeries, Query: "no such pose", Limit: 2})
	require.NoError(t, err)
	assert.NotNil(t, res.Groups)
	assert.Zero(t, res.Total)

	_, err = svc.Search(context.Background(), SearchRequest{Type: "videos", Limit: 2})
	assert.True(t, IsInvalidRequest(err))
	_, err = svc.Search(context.Background(), SearchRequest{Type: model.TypeAll})
	assert.True(t, IsInvalidRequest(err))
}
