package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cmarsh/sitesync/internal/models"
	"github.com/cmarsh/sitesync/internal/repositories"
)

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Sync diagnostics

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Status())
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": s.coord.History(),
	})
}

func (s *Server) handleSyncPending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pendingChanges": s.coord.PendingChanges(),
	})
}

// Content pages

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.pages.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pages": pages})
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	page, err := s.pages.GetBySlug(r.Context(), slug)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handlePutPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var page models.Page
	if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
		writeError(w, http.StatusBadRequest, "invalid page body")
		return
	}
	page.Slug = slug

	if err := s.pages.Upsert(r.Context(), &page); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	err := s.pages.Delete(r.Context(), slug)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete page")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
