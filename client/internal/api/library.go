package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Trewaters/soar-sub011/internal/model"
)

// GetLibrary fetches one page of GET /api/library.
func GetLibrary(ctx context.Context, hc HTTPClient, baseURL string, req model.PageRequest) (*model.PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("type", string(req.Type))
	if req.UserID != "" {
		q.Set("userId", req.UserID)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	} else if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/library?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	var res model.PageResult
	if err := do(hc, httpReq, "get library", &res); err != nil {
		return nil, err
	}
	if res.Items == nil {
		res.Items = []model.LibraryItem{}
	}
	return &res, nil
}
