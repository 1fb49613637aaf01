package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trewaters/soar-sub011/internal/model"
	"github.com/Trewaters/soar-sub011/internal/store"
	"github.com/Trewaters/soar-sub011/internal/store/memstore"
)

func TestSeed_KeepsFileOrderWithoutTimestamps(t *testing.T) {
	st := memstore.New()
	n, err := store.Seed(context.Background(), st, strings.NewReader(`{
		"asanas": [{"englishName": "First"}, {"englishName": "Second"}],
		"series": [{"name": "Flow", "createdBy": "u1", "createdAt": "2023-06-01T00:00:00Z"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := st.Asanas().Page(context.Background(), store.PageQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, "Second", got[1].Title)

	series, err := st.Series().Page(context.Background(), store.PageQuery{OwnerID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 2023, series[0].CreatedAt.Year())
}

func TestSeed_BadJSON(t *testing.T) {
	_, err := store.Seed(context.Background(), memstore.New(), strings.NewReader(`{"asanas": [`))
	assert.Error(t, err)
}

func TestCollectionFor(t *testing.T) {
	st := memstore.New()
	for _, k := range model.Kinds {
		c, err := store.CollectionFor(st, k)
		require.NoError(t, err)
		assert.Equal(t, k, c.Kind())
	}
	_, err := store.CollectionFor(st, "video")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDecodeDoc_ColumnsWin(t *testing.T) {
	at := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	it, err := store.DecodeDoc(model.KindSeries, "s1", at, []byte(`{"id":"stale","name":"Moon"}`))
	require.NoError(t, err)
	assert.Equal(t, "s1", it.Series.ID)
	assert.True(t, it.CreatedAt.Equal(at))

	_, err = store.DecodeDoc(model.KindAsana, "a1", at, []byte(`not json`))
	assert.Error(t, err)
}

type brokenStore struct{ inner *memstore.Store }

func (b brokenStore) Series() store.Collection    { return b.inner.Series() }
func (b brokenStore) Sequences() store.Collection { return b.inner.Sequences() }
func (b brokenStore) Close() error                { return nil }

type brokenCollection struct{ store.Collection }

func (brokenCollection) Page(context.Context, store.PageQuery) ([]model.LibraryItem, error) {
	return nil, errors.New("connection refused")
}

func (b brokenStore) Asanas() store.Collection { return brokenCollection{b.inner.Asanas()} }

func TestStoreHealthChecker(t *testing.T) {
	ctx := context.Background()

	ok := store.NewStoreHealthChecker(memstore.New(), zerolog.Nop(), time.Second)
	assert.False(t, ok.IsHealthy(), "unhealthy before first probe")
	assert.True(t, ok.Check(ctx))
	assert.True(t, ok.IsHealthy())
	assert.Equal(t, "store", ok.Name())

	// brokenStore hides HealthPing, so the fallback read is used
	bad := store.NewStoreHealthChecker(brokenStore{inner: memstore.New()}, zerolog.Nop(), 0)
	assert.False(t, bad.Check(ctx))
	assert.False(t, bad.IsHealthy())
}
