package client

import (
	"github.com/Trewaters/soar-sub011/client/internal/types"
	"github.com/Trewaters/soar-sub011/internal/model"
)

// Public type aliases so SDK consumers can import only the client package.
type (
	PageRequest = model.PageRequest
	PageResult  = model.PageResult
	LibraryItem = model.LibraryItem
	LibraryType = model.LibraryType

	SearchRequest  = types.SearchRequest
	SearchResponse = types.SearchResponse
	SearchGroup    = types.SearchGroup
)
