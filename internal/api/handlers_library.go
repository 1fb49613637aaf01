package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	respond "github.com/Trewaters/soar-sub011/internal/api/respond"
	"github.com/Trewaters/soar-sub011/internal/api/validate"
	"github.com/Trewaters/soar-sub011/internal/library"
	"github.com/Trewaters/soar-sub011/internal/model"
)

// LibraryService is the part of library.Service the handlers use.
type LibraryService interface {
	GetLibrary(ctx context.Context, req model.PageRequest) (*model.PageResult, error)
	Search(ctx context.Context, req library.SearchRequest) (*library.SearchResult, error)
}

// LibraryHandler is a thin HTTP transport over LibraryService.
type LibraryHandler struct {
	svc          LibraryService
	defaultLimit int
}

func NewLibraryHandler(svc LibraryService, defaultLimit int) *LibraryHandler {
	return &LibraryHandler{svc: svc, defaultLimit: defaultLimit}
}

// GetLibrary GET /api/library?type=&userId=&limit=&page=&cursor=
func (h *LibraryHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	req, err := validate.PageRequest(r.URL.Query().Get, h.defaultLimit)
	if err != nil {
		writeParamError(w, err)
		return
	}
	res, err := h.svc.GetLibrary(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// Search GET /api/library/search?type=&q=&viewerId=&limit=
func (h *LibraryHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := q.Get("type")
	if typ == "" {
		typ = string(model.TypeAll)
	}
	t, err := validate.Type(typ)
	if err != nil {
		writeParamError(w, err)
		return
	}
	limit, err := validate.Limit(q.Get("limit"), h.defaultLimit)
	if err != nil {
		writeParamError(w, err)
		return
	}
	query, err := validate.Query(q.Get("q"))
	if err != nil {
		writeParamError(w, err)
		return
	}
	viewer := q.Get("viewerId")
	if err := validate.UserID("viewerId", viewer); err != nil {
		writeParamError(w, err)
		return
	}

	res, err := h.svc.Search(r.Context(), library.SearchRequest{Type: t, Query: query, ViewerID: viewer, Limit: limit})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

func writeParamError(w http.ResponseWriter, err error) {
	var pe validate.ParamError
	if errors.As(err, &pe) {
		respond.WriteInvalidParam(w, pe.Param, pe.Error())
		return
	}
	respond.WriteBadRequest(w, err.Error())
}

// writeServiceError maps library errors to HTTP. Store details stay in the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ie library.InvalidRequestError
	if errors.As(err, &ie) {
		respond.WriteInvalidParam(w, ie.Field, ie.Error())
		return
	}
	if r.Context().Err() != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("client went away")
		return
	}
	zerolog.Ctx(r.Context()).Error().Stack().Err(err).Str("path", r.URL.Path).Msg("library request failed")
	msg := "library store unavailable"
	if library.IsPartialMergeFailure(err) {
		msg = "library merge failed: a collection is unavailable"
	}
	respond.WriteInternalError(w, msg)
}
