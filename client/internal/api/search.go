package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Trewaters/soar-sub011/client/internal/types"
)

// Search runs a title search against the backend.
func Search(ctx context.Context, hc HTTPClient, baseURL string, req types.SearchRequest) (*types.SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("q", req.Query)
	if req.Type != "" {
		q.Set("type", req.Type)
	}
	if req.ViewerID != "" {
		q.Set("viewerId", req.ViewerID)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/library/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	var sr types.SearchResponse
	if err := do(hc, httpReq, "search", &sr); err != nil {
		return nil, err
	}
	return &sr, nil
}
