package library

import (
	"context"
	"fmt"

	"github.com/Trewaters/soar-sub011/internal/metrics"
	"github.com/Trewaters/soar-sub011/internal/model"
	"github.com/Trewaters/soar-sub011/internal/ranking"
	"github.com/Trewaters/soar-sub011/internal/store"
)

// SearchRequest matches titles within the newest SearchWindow items of each
// requested collection.
type SearchRequest struct {
	Type     model.LibraryType
	Query    string
	ViewerID string
	Limit    int
}

// SearchResult groups matches into own, alpha and others tiers.
type SearchResult struct {
	Groups []ranking.Group `json:"groups"`
	Total  int             `json:"total"`
}

func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	typ, err := model.ParseLibraryType(string(req.Type))
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(typeLabel(req.Type), metrics.OutcomeInvalid).Inc()
		return nil, NewInvalidRequest("type", fmt.Sprintf("must be one of asanas, series, sequences, all; got %q", req.Type))
	}
	if req.Limit <= 0 {
		metrics.SearchRequestsTotal.WithLabelValues(string(typ), metrics.OutcomeInvalid).Inc()
		return nil, NewInvalidRequest("limit", "must be a positive integer")
	}
	limit := min(req.Limit, s.opts.MaxLimit)

	rows, err := s.fanOut(ctx, typ.Kinds(), store.PageQuery{Limit: s.opts.SearchWindow})
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(typ), outcomeOf(err)).Inc()
		if ctx.Err() != nil {
			return nil, err
		}
		s.log.Warn().Err(err).Str("type", string(typ)).Msg("library search failed")
		return nil, err
	}

	ranked := ranking.Rank(rows, req.Query, req.ViewerID, s.opts.AlphaUserIDs)
	total := len(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(typ), metrics.OutcomeOK).Inc()
	s.log.Debug().Str("type", string(typ)).Int("scanned", len(rows)).Int("matches", total).Msg("library search resolved")

	groups := ranking.GroupRanked(ranked)
	if groups == nil {
		groups = []ranking.Group{}
	}
	return &SearchResult{Groups: groups, Total: total}, nil
}
