package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Trewaters/soar-sub011/internal/model"
)

// Tables maps each kind to its table (or collection) name.
var Tables = map[model.Kind]string{
	model.KindAsana:    "asanas",
	model.KindSeries:   "series",
	model.KindSequence: "sequences",
}

// PrepareInsert validates it against the target kind and fills in a UUID
// and creation time when they are missing.
func PrepareInsert(kind model.Kind, it model.LibraryItem, now time.Time) (model.LibraryItem, error) {
	if err := it.Validate(); err != nil {
		return model.LibraryItem{}, err
	}
	if it.Kind != kind {
		return model.LibraryItem{}, fmt.Errorf("%w: %s item in %s collection", model.ErrValidation, it.Kind, Tables[kind])
	}
	id := it.ID
	if id == "" {
		id = uuid.New().String()
	}
	created := it.CreatedAt
	if created.IsZero() {
		created = now
	}
	return it.WithID(id, created), nil
}

// EncodeDoc serializes the item's payload for storage.
func EncodeDoc(it model.LibraryItem) ([]byte, error) {
	switch it.Kind {
	case model.KindAsana:
		return json.Marshal(it.Asana)
	case model.KindSeries:
		return json.Marshal(it.Series)
	case model.KindSequence:
		return json.Marshal(it.Sequence)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", model.ErrValidation, it.Kind)
}

// DecodeDoc rebuilds an item from a stored row. Column values win over
// whatever the document carries for id and creation time.
func DecodeDoc(kind model.Kind, id string, createdAt time.Time, doc []byte) (model.LibraryItem, error) {
	var it model.LibraryItem
	switch kind {
	case model.KindAsana:
		var a model.Asana
		if err := json.Unmarshal(doc, &a); err != nil {
			return it, fmt.Errorf("decode asana %s: %w", id, err)
		}
		it = model.FromAsana(a)
	case model.KindSeries:
		var s model.Series
		if err := json.Unmarshal(doc, &s); err != nil {
			return it, fmt.Errorf("decode series %s: %w", id, err)
		}
		it = model.FromSeries(s)
	case model.KindSequence:
		var q model.Sequence
		if err := json.Unmarshal(doc, &q); err != nil {
			return it, fmt.Errorf("decode sequence %s: %w", id, err)
		}
		it = model.FromSequence(q)
	default:
		return it, fmt.Errorf("%w: unknown kind %q", model.ErrValidation, kind)
	}
	return it.WithID(id, createdAt), nil
}
