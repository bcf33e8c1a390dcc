package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/websocket"

	"github.com/cmarsh/sitesync/internal/repositories"
	"github.com/cmarsh/sitesync/internal/services"
)

type Server struct {
	coord *services.Coordinator
	pages repositories.PageRepository
}

func New(coord *services.Coordinator, pages repositories.PageRepository) *Server {
	return &Server{coord: coord, pages: pages}
}

func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Persistent sync connection; role supplied as ?type=dev_admin|admin_panel|website
	router.Handle("/sync", websocket.Handler(s.handleSync))

	router.Route("/api", func(r chi.Router) {
		r.Get("/sync/status", s.handleSyncStatus)
		r.Get("/sync/history", s.handleSyncHistory)
		r.Get("/sync/pending", s.handleSyncPending)

		r.Get("/pages", s.handleListPages)
		r.Get("/pages/{slug}", s.handleGetPage)
		r.Put("/pages/{slug}", s.handlePutPage)
		r.Delete("/pages/{slug}", s.handleDeletePage)
	})

	return router
}
