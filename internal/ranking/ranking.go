// Package ranking orders search results into viewer, alpha-user and
// everyone-else tiers. Alpha users are always passed in by the caller.
package ranking

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/Trewaters/soar-sub011/internal/model"
)

// Tier is the ownership bucket of a result. Lower tiers sort first.
type Tier int

const (
	TierOwn Tier = iota
	TierAlpha
	TierOthers
)

func (t Tier) String() string {
	switch t {
	case TierOwn:
		return "own"
	case TierAlpha:
		return "alpha"
	default:
		return "others"
	}
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Ranked is an item with its tier and fuzzy score (higher matches better).
type Ranked struct {
	Item  model.LibraryItem
	Tier  Tier
	Score int
}

// Group is a contiguous run of results sharing a tier.
type Group struct {
	Tier  Tier                `json:"tier"`
	Items []model.LibraryItem `json:"items"`
}

// index implements fuzzy.Source over lowercase search text.
type index []string

func (ix index) String(i int) string { return ix[i] }
func (ix index) Len() int            { return len(ix) }

// SearchText is what a query is matched against.
func SearchText(it model.LibraryItem) string {
	text := it.Title
	if it.Asana != nil && it.Asana.SanskritName != "" {
		text += " " + it.Asana.SanskritName
	}
	return strings.ToLower(text)
}

// TierOf classifies an owner for a viewer.
func TierOf(ownerID, viewerID string, alphaUserIDs []string) Tier {
	switch {
	case viewerID != "" && ownerID == viewerID:
		return TierOwn
	case ownerID != "" && slices.Contains(alphaUserIDs, ownerID):
		return TierAlpha
	}
	return TierOthers
}

// Rank filters items by query and orders them by tier, then score, then
// library order (createdAt desc, id desc). An empty query keeps every item
// with score 0.
func Rank(items []model.LibraryItem, query, viewerID string, alphaUserIDs []string) []Ranked {
	var out []Ranked
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out = make([]Ranked, 0, len(items))
		for _, it := range items {
			out = append(out, Ranked{Item: it, Tier: TierOf(it.OwnerID, viewerID, alphaUserIDs)})
		}
	} else {
		ix := make(index, len(items))
		for i, it := range items {
			ix[i] = SearchText(it)
		}
		matches := fuzzy.FindFrom(query, ix)
		out = make([]Ranked, 0, len(matches))
		for _, m := range matches {
			it := items[m.Index]
			out = append(out, Ranked{Item: it, Tier: TierOf(it.OwnerID, viewerID, alphaUserIDs), Score: m.Score})
		}
	}

	slices.SortFunc(out, func(a, b Ranked) int {
		if a.Tier != b.Tier {
			return int(a.Tier) - int(b.Tier)
		}
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return model.Compare(a.Item, b.Item)
	})
	return out
}

// GroupRanked splits a ranked list into tier groups, skipping empty tiers.
func GroupRanked(ranked []Ranked) []Group {
	var groups []Group
	for _, r := range ranked {
		if n := len(groups); n > 0 && groups[n-1].Tier == r.Tier {
			groups[n-1].Items = append(groups[n-1].Items, r.Item)
			continue
		}
		groups = append(groups, Group{Tier: r.Tier, Items: []model.LibraryItem{r.Item}})
	}
	return groups
}
