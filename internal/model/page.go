package model

import (
	"slices"
	"strings"
	"time"
)

// PageRequest selects one page of the library. A non-empty Cursor switches
// to cursor mode and Page is ignored; otherwise Page (default 1) is used.
type PageRequest struct {
	Type   LibraryType `json:"type"`
	UserID string      `json:"userId,omitempty"`
	Limit  int         `json:"limit"`
	Page   int         `json:"page,omitempty"`
	Cursor string      `json:"cursor,omitempty"`
}

// PageResult is one page of library items. NextCursor is set only when
// HasMore is true.
type PageResult struct {
	Items      []LibraryItem `json:"items"`
	HasMore    bool          `json:"hasMore"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// Position is a point in the global library order.
type Position struct {
	CreatedAt time.Time
	ID        string
}

func PositionOf(it LibraryItem) Position {
	return Position{CreatedAt: it.CreatedAt, ID: it.ID}
}

// Precedes reports whether a position sorts ahead of other: newer first,
// then larger id first.
func (p Position) Precedes(other Position) bool {
	if !p.CreatedAt.Equal(other.CreatedAt) {
		return p.CreatedAt.After(other.CreatedAt)
	}
	return p.ID > other.ID
}

// Compare orders items by createdAt descending, then id descending.
func Compare(a, b LibraryItem) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

// SortItems sorts in place into library order.
func SortItems(items []LibraryItem) {
	slices.SortFunc(items, Compare)
}
