package model

import (
	"fmt"
	"time"
)

// Kind tags a LibraryItem with the collection it came from.
type Kind string

const (
	KindAsana    Kind = "asana"
	KindSeries   Kind = "series"
	KindSequence Kind = "sequence"
)

// Kinds lists every content kind in collection order.
var Kinds = []Kind{KindAsana, KindSeries, KindSequence}

// LibraryType is the "type" selector of a library request.
type LibraryType string

const (
	TypeAsanas    LibraryType = "asanas"
	TypeSeries    LibraryType = "series"
	TypeSequences LibraryType = "sequences"
	TypeAll       LibraryType = "all"
)

// ParseLibraryType validates a raw type selector.
func ParseLibraryType(s string) (LibraryType, error) {
	switch t := LibraryType(s); t {
	case TypeAsanas, TypeSeries, TypeSequences, TypeAll:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown library type %q", ErrValidation, s)
}

// Kinds returns the collections a type reads from.
func (t LibraryType) Kinds() []Kind {
	switch t {
	case TypeAsanas:
		return []Kind{KindAsana}
	case TypeSeries:
		return []Kind{KindSeries}
	case TypeSequences:
		return []Kind{KindSequence}
	case TypeAll:
		return Kinds
	}
	return nil
}

// Asana is a single pose.
type Asana struct {
	ID           string    `json:"id"`
	EnglishName  string    `json:"englishName"`
	SanskritName string    `json:"sanskritName,omitempty"`
	Category     string    `json:"category,omitempty"`
	Difficulty   string    `json:"difficulty,omitempty"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Series is an ordered flow of asanas.
type Series struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	AsanaIDs        []string  `json:"asanaIds,omitempty"`
	DurationSeconds int       `json:"durationSeconds,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Sequence is an ordered set of series.
type Sequence struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	SeriesIDs       []string  `json:"seriesIds,omitempty"`
	DurationSeconds int       `json:"durationSeconds,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// LibraryItem is the normalized view returned to clients. The projection
// fields are shared by every kind; exactly one payload is set and it matches
// Kind.
type LibraryItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Kind      Kind      `json:"type"`
	OwnerID   string    `json:"ownerId,omitempty"`
	Title     string    `json:"title"`

	Asana    *Asana    `json:"asana,omitempty"`
	Series   *Series   `json:"series,omitempty"`
	Sequence *Sequence `json:"sequence,omitempty"`
}

func FromAsana(a Asana) LibraryItem {
	a.CreatedAt = NormalizeTime(a.CreatedAt)
	return LibraryItem{ID: a.ID, CreatedAt: a.CreatedAt, Kind: KindAsana, OwnerID: a.CreatedBy, Title: a.EnglishName, Asana: &a}
}

func FromSeries(s Series) LibraryItem {
	s.CreatedAt = NormalizeTime(s.CreatedAt)
	return LibraryItem{ID: s.ID, CreatedAt: s.CreatedAt, Kind: KindSeries, OwnerID: s.CreatedBy, Title: s.Name, Series: &s}
}

func FromSequence(q Sequence) LibraryItem {
	q.CreatedAt = NormalizeTime(q.CreatedAt)
	return LibraryItem{ID: q.ID, CreatedAt: q.CreatedAt, Kind: KindSequence, OwnerID: q.CreatedBy, Title: q.Name, Sequence: &q}
}

// WithID returns a copy with the id and creation time applied to both the
// projection and the payload.
func (it LibraryItem) WithID(id string, createdAt time.Time) LibraryItem {
	createdAt = NormalizeTime(createdAt)
	switch {
	case it.Asana != nil:
		a := *it.Asana
		a.ID, a.CreatedAt = id, createdAt
		return FromAsana(a)
	case it.Series != nil:
		s := *it.Series
		s.ID, s.CreatedAt = id, createdAt
		return FromSeries(s)
	case it.Sequence != nil:
		q := *it.Sequence
		q.ID, q.CreatedAt = id, createdAt
		return FromSequence(q)
	}
	it.ID, it.CreatedAt = id, createdAt
	return it
}

// Validate checks the tagged-union shape.
func (it LibraryItem) Validate() error {
	set := 0
	var payloadKind Kind
	if it.Asana != nil {
		set++
		payloadKind = KindAsana
	}
	if it.Series != nil {
		set++
		payloadKind = KindSeries
	}
	if it.Sequence != nil {
		set++
		payloadKind = KindSequence
	}
	if set != 1 {
		return fmt.Errorf("%w: library item must carry exactly one payload, got %d", ErrValidation, set)
	}
	if it.Kind != payloadKind {
		return fmt.Errorf("%w: item type %q does not match %s payload", ErrValidation, it.Kind, payloadKind)
	}
	return nil
}

// NormalizeTime truncates to the microsecond precision every backend keeps.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
