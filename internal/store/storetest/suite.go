package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Trewaters/soar-sub011/internal/model"
	"github.com/Trewaters/soar-sub011/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Every assertion is scoped to a fresh owner id so shared databases work.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	owner := "u-" + uuid.New().String()
	other := "u-" + uuid.New().String()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// Asanas: a1..a4 one minute apart, plus a tie at a4's timestamp
	var asanas []model.LibraryItem
	for i, name := range []string{"Mountain", "Tree", "Warrior I", "Crow"} {
		it, err := s.Asanas().Insert(ctx, model.FromAsana(model.Asana{
			EnglishName: name,
			CreatedBy:   owner,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
		if err != nil {
			t.Fatalf("Insert asana %s: %v", name, err)
		}
		if it.ID == "" || it.Asana.ID != it.ID {
			t.Fatalf("Insert asana: id not assigned: %+v", it)
		}
		asanas = append(asanas, it)
	}
	tieA, err := s.Asanas().Insert(ctx, model.FromAsana(model.Asana{ID: "zzzz-" + uuid.New().String(), EnglishName: "Lotus", CreatedBy: owner, CreatedAt: base.Add(3 * time.Minute)}))
	if err != nil {
		t.Fatalf("Insert tie asana: %v", err)
	}
	// Re-inserting an existing id is a conflict and leaves the row alone
	dup := model.FromAsana(model.Asana{ID: tieA.ID, EnglishName: "Lotus again", CreatedBy: other, CreatedAt: base})
	if _, err := s.Asanas().Insert(ctx, dup); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("Insert duplicate id: expected ErrConflict, got %v", err)
	}
	if _, err := s.Asanas().Insert(ctx, model.FromAsana(model.Asana{EnglishName: "Foreign", CreatedBy: other, CreatedAt: base})); err != nil {
		t.Fatalf("Insert foreign asana: %v", err)
	}

	// Owner filter + ordering: tie first (larger id), then Crow, Warrior, Tree, Mountain
	got, err := s.Asanas().Page(ctx, store.PageQuery{OwnerID: owner, Limit: 10})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	want := []string{tieA.ID, asanas[3].ID, asanas[2].ID, asanas[1].ID, asanas[0].ID}
	assertIDs(t, "Page owner", got, want)
	if got[1].Kind != model.KindAsana || got[1].Asana == nil || got[1].Title != "Crow" {
		t.Fatalf("Page: payload not decoded: %+v", got[1])
	}
	if !got[1].CreatedAt.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("Page: createdAt round trip: got %v", got[1].CreatedAt)
	}

	// Limit + offset
	got, err = s.Asanas().Page(ctx, store.PageQuery{OwnerID: owner, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("Page offset: %v", err)
	}
	assertIDs(t, "Page offset", got, want[2:4])

	got, err = s.Asanas().Page(ctx, store.PageQuery{OwnerID: owner, Limit: 2, Offset: 50})
	if err != nil || len(got) != 0 {
		t.Fatalf("Page past end: n=%d err=%v", len(got), err)
	}

	// Keyset resume after the tie row must still include Crow (same timestamp, smaller id)
	after := model.PositionOf(tieA)
	got, err = s.Asanas().Page(ctx, store.PageQuery{OwnerID: owner, Limit: 2, After: &after, Offset: 3})
	if err != nil {
		t.Fatalf("Page after: %v", err)
	}
	assertIDs(t, "Page after", got, want[1:3])

	last := model.PositionOf(asanas[0])
	got, err = s.Asanas().Page(ctx, store.PageQuery{OwnerID: owner, Limit: 5, After: &last})
	if err != nil || len(got) != 0 {
		t.Fatalf("Page after last: n=%d err=%v", len(got), err)
	}

	// Other collections keep their own kind
	se, err := s.Series().Insert(ctx, model.FromSeries(model.Series{Name: "Sun Salutation A", AsanaIDs: []string{asanas[0].ID}, CreatedBy: owner}))
	if err != nil {
		t.Fatalf("Insert series: %v", err)
	}
	if se.CreatedAt.IsZero() {
		t.Fatalf("Insert series: createdAt not assigned")
	}
	sq, err := s.Sequences().Insert(ctx, model.FromSequence(model.Sequence{Name: "Morning", SeriesIDs: []string{se.ID}, CreatedBy: owner, CreatedAt: base}))
	if err != nil {
		t.Fatalf("Insert sequence: %v", err)
	}
	if got, err := s.Series().Page(ctx, store.PageQuery{OwnerID: owner, Limit: 5}); err != nil || len(got) != 1 || got[0].Series == nil || len(got[0].Series.AsanaIDs) != 1 {
		t.Fatalf("Series page: got=%+v err=%v", got, err)
	}
	if got, err := s.Sequences().Page(ctx, store.PageQuery{OwnerID: owner, Limit: 5}); err != nil || len(got) != 1 || got[0].ID != sq.ID || got[0].Kind != model.KindSequence {
		t.Fatalf("Sequences page: got=%+v err=%v", got, err)
	}

	// Wrong kind is rejected
	if _, err := s.Series().Insert(ctx, model.FromAsana(model.Asana{EnglishName: "Misplaced"})); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("Insert wrong kind: want ErrValidation, got %v", err)
	}

	// Delete
	if err := s.Asanas().Delete(ctx, asanas[1].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Asanas().Delete(ctx, asanas[1].ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Delete twice: want ErrNotFound, got %v", err)
	}
	got, err = s.Asanas().Page(ctx, store.PageQuery{OwnerID: owner, Limit: 10})
	if err != nil || len(got) != 4 {
		t.Fatalf("Page after delete: n=%d err=%v", len(got), err)
	}

	// Unfiltered pages are ordered
	got, err = s.Asanas().Page(ctx, store.PageQuery{Limit: 100})
	if err != nil {
		t.Fatalf("Page unfiltered: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if !model.PositionOf(got[i-1]).Precedes(model.PositionOf(got[i])) {
			t.Fatalf("Page unfiltered: %s not before %s", got[i-1].ID, got[i].ID)
		}
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func assertIDs(t *testing.T, label string, got []model.LibraryItem, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d items, want %d", label, len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("%s: item %d = %s, want %s", label, i, got[i].ID, want[i])
		}
	}
}
