package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Trewaters/soar-sub011/client/offline"
	"github.com/Trewaters/soar-sub011/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pagedFetcher serves ids in pages of req.Limit, using the last id as cursor.
type pagedFetcher struct {
	mu    sync.Mutex
	ids   []string
	calls []model.PageRequest
}

func (f *pagedFetcher) GetLibrary(_ context.Context, req model.PageRequest) (*model.PageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	start := 0
	if req.Cursor != "" {
		for i, id := range f.ids {
			if id == req.Cursor {
				start = i + 1
			}
		}
	}
	end := min(start+req.Limit, len(f.ids))
	res := &model.PageResult{}
	for _, id := range f.ids[start:end] {
		res.Items = append(res.Items, model.LibraryItem{ID: id, Kind: model.KindAsana, Title: id})
	}
	if end < len(f.ids) {
		res.HasMore = true
		res.NextCursor = f.ids[end-1]
	}
	return res, nil
}

func (f *pagedFetcher) lastCall() model.PageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func TestSession_HydratesAndSavesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soar.db")
	ctx := context.Background()

	s := Start(ctx, Options{CachePath: path, Log: zerolog.Nop()})
	assert.NotEmpty(t, s.ID())
	assert.True(t, s.Store().Persistent())
	assert.Equal(t, offline.AppState{}, s.State())

	s.UpdateState(func(st *offline.AppState) {
		st.UserState = &offline.UserState{UserID: "u1"}
		st.FlowSeries = []model.Series{{ID: "s1", Name: "Flow"}}
	})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	s2 := Start(ctx, Options{CachePath: path, Log: zerolog.Nop()})
	defer s2.Close()
	st := s2.State()
	require.NotNil(t, st.UserState)
	assert.Equal(t, "u1", st.UserState.UserID)
	assert.Equal(t, "Flow", st.FlowSeries[0].Name)
}

func TestSession_LibraryIsLazyAndShared(t *testing.T) {
	s := Start(context.Background(), Options{Fetcher: &pagedFetcher{}, Log: zerolog.Nop()})
	defer s.Close()

	a, err := s.Library(model.TypeAsanas)
	require.NoError(t, err)
	b, err := s.Library(model.TypeAsanas)
	require.NoError(t, err)
	assert.Same(t, a, b)

	other, err := s.Library(model.TypeAll)
	require.NoError(t, err)
	assert.NotSame(t, a, other)

	_, err = s.Library("poses")
	assert.Error(t, err)
}

func TestSession_RestoresLibraryFromCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soar.db")
	ctx := context.Background()
	f := &pagedFetcher{ids: []string{"a5", "a4", "a3", "a2", "a1"}}

	s := Start(ctx, Options{Fetcher: f, CachePath: path, UserID: "u1", PageSize: 2, Log: zerolog.Nop()})
	c, err := s.Library(model.TypeAsanas)
	require.NoError(t, err)
	require.NoError(t, c.Initialize(ctx, s.Config(model.TypeAsanas)))
	_, err = c.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Snapshot().Items, 4)
	require.NoError(t, s.Close())

	_, err = s.Library(model.TypeAsanas)
	assert.ErrorIs(t, err, ErrClosed)

	s2 := Start(ctx, Options{Fetcher: f, CachePath: path, UserID: "u1", PageSize: 2, Log: zerolog.Nop()})
	defer s2.Close()
	c2, err := s2.Library(model.TypeAsanas)
	require.NoError(t, err)
	snap := c2.Snapshot()
	assert.Len(t, snap.Items, 4)
	assert.True(t, snap.HasMore)

	_, err = c2.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a2", f.lastCall().Cursor)
	assert.Len(t, c2.Snapshot().Items, 5)
}

func TestSession_IgnoresSnapshotOfOtherUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soar.db")
	ctx := context.Background()
	f := &pagedFetcher{ids: []string{"a2", "a1"}}

	s := Start(ctx, Options{Fetcher: f, CachePath: path, UserID: "u1", PageSize: 1, Log: zerolog.Nop()})
	c, _ := s.Library(model.TypeAsanas)
	require.NoError(t, c.Initialize(ctx, s.Config(model.TypeAsanas)))
	require.NoError(t, s.Close())

	s2 := Start(ctx, Options{Fetcher: f, CachePath: path, UserID: "u2", Log: zerolog.Nop()})
	defer s2.Close()
	c2, _ := s2.Library(model.TypeAsanas)
	assert.Empty(t, c2.Snapshot().Items)
}

func TestSession_PurgeJob(t *testing.T) {
	clock := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time { mu.Lock(); defer mu.Unlock(); return clock }

	s := Start(context.Background(), Options{
		Log:           zerolog.Nop(),
		Clock:         now,
		PurgeInterval: 10 * time.Millisecond,
		CacheMaxAge:   time.Hour,
	})
	require.NoError(t, s.Cache().SetCache("x", 1))

	mu.Lock()
	clock = clock.Add(2 * time.Hour)
	mu.Unlock()

	require.Eventually(t, func() bool { return len(s.Cache().Keys()) == 0 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Close())
}
