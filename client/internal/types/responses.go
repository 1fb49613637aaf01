package types

import "github.com/Trewaters/soar-sub011/internal/model"

// SearchGroup is one ownership tier of search results ("own", "alpha" or
// "others").
type SearchGroup struct {
	Tier  string              `json:"tier"`
	Items []model.LibraryItem `json:"items"`
}

// SearchResponse wraps the search endpoint response.
type SearchResponse struct {
	Groups []SearchGroup `json:"groups"`
	Total  int           `json:"total"`
}

// ErrorBody is the server's JSON error envelope.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}
