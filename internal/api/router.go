package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Trewaters/soar-sub011/internal/api/accesslog"
	"github.com/Trewaters/soar-sub011/internal/api/recovery"
)

// RouterDeps are the handlers' collaborators.
type RouterDeps struct {
	Library      LibraryService
	Health       ServiceHealth
	DefaultLimit int
	Log          zerolog.Logger
}

// NewRouter wires HTTP routes to handlers.
func NewRouter(d RouterDeps) *mux.Router {
	root := mux.NewRouter()
	root.Use(accesslog.Middleware(d.Log))
	root.Use(recovery.Middleware)

	lib := NewLibraryHandler(d.Library, d.DefaultLimit)
	root.HandleFunc("/api/library", lib.GetLibrary).Methods("GET")
	root.HandleFunc("/api/library/search", lib.Search).Methods("GET")

	healthHandler := NewHealthHandler(d.Health)
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	root.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return root
}
