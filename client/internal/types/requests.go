package types

// SearchRequest holds search parameters for GET /api/library/search.
type SearchRequest struct {
	Type     string `json:"type,omitempty"`
	Query    string `json:"q"`
	ViewerID string `json:"viewerId,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}
