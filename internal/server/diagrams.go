package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/mermaidflow/internal/store"
)

var errNoStore = errors.New("no diagram store configured")

type createVersionRequest struct {
	Code              *string `json:"mermaid_code"`
	ChangeDescription string  `json:"change_description"`
}

// requireStore writes a 503 when no store is configured.
func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		s.writeError(w, errNoStore)
		return false
	}
	return true
}

func (s *Server) handleListDiagrams(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	diagrams, err := s.store.ListDiagrams(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if diagrams == nil {
		diagrams = []store.Diagram{}
	}
	writeJSON(w, http.StatusOK, diagrams)
}

func (s *Server) handleCreateDiagram(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var d store.Diagram
	if err := decode(r, w, &d); err != nil {
		s.writeError(w, err)
		return
	}
	// Server-assigned fields.
	d.ID = ""
	d.DiagramType = ""

	created, err := s.store.CreateDiagram(r.Context(), &d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	d, err := s.store.GetDiagram(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDiagram(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var p store.Patch
	if err := decode(r, w, &p); err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.store.UpdateDiagram(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDiagram(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.store.DeleteDiagram(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetDiagram(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	versions, err := s.store.ListVersions(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if versions == nil {
		versions = []store.Version{}
	}
	writeJSON(w, http.StatusOK, versions)
}

// handleCreateVersion records a version. Without mermaid_code the diagram's
// current code is snapshotted.
func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var req createVersionRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, err)
		return
	}

	d, err := s.store.GetDiagram(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	code := d.Code
	if req.Code != nil {
		code = *req.Code
	}

	v, err := s.store.CreateVersion(r.Context(), &store.Version{
		DiagramID:         d.ID,
		Code:              code,
		ChangeDescription: req.ChangeDescription,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// handleOpenDiagram starts an editing session seeded with a saved diagram.
func (s *Server) handleOpenDiagram(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	d, err := s.store.GetDiagram(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.sessions.Create(d.Code)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c.State())
}
