package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/mermaidflow/internal/coordinator"
	"github.com/dshills/mermaidflow/internal/export"
	"github.com/dshills/mermaidflow/internal/history"
	"github.com/dshills/mermaidflow/internal/store"
)

type createSessionRequest struct {
	Seed *string `json:"seed"`
}

type editRequest struct {
	Text string `json:"text"`
}

type commitRequest struct {
	Label string `json:"label"`
}

type commitResponse struct {
	Committed bool              `json:"committed"`
	Snapshot  *history.Snapshot `json:"snapshot,omitempty"`
}

type navigateResponse struct {
	Content string `json:"content"`
	Applied bool   `json:"applied"`
}

type resetRequest struct {
	Seed *string `json:"seed"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type repairResponse struct {
	FixedText   string `json:"fixed_text"`
	Explanation string `json:"explanation"`
}

type saveRequest struct {
	DiagramID         string `json:"diagram_id"`
	UserID            string `json:"user_id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	IsPublic          bool   `json:"is_public"`
	ChangeDescription string `json:"change_description"`
}

// coordinator looks up the session named in the URL, writing a 404 when
// it does not exist.
func (s *Server) coordinator(w http.ResponseWriter, r *http.Request) (*coordinator.Coordinator, bool) {
	c, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return c, true
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, err)
		return
	}

	seed := s.seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	c, err := s.sessions.Create(seed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c.State())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.State())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.CloseSession(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c.Edit(req.Text)
	writeJSON(w, http.StatusAccepted, c.State())
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	var req commitRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, err)
		return
	}

	snap, committed := c.Commit(req.Label)
	resp := commitResponse{Committed: committed}
	if committed {
		resp.Snapshot = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	content, applied := c.Undo()
	if !applied {
		content = c.Text()
	}
	writeJSON(w, http.StatusOK, navigateResponse{Content: content, Applied: applied})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	content, applied := c.Redo()
	if !applied {
		content = c.Text()
	}
	writeJSON(w, http.StatusOK, navigateResponse{Content: content, Applied: applied})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	var req resetRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Seed != nil {
		c.ResetTo(*req.Seed)
	} else {
		c.Reset()
	}
	writeJSON(w, http.StatusOK, c.State())
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	var req keyRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		s.writeError(w, fmt.Errorf("%w: key is required", errBadRequest))
		return
	}

	result, err := c.HandleKey(r.Context(), req.Key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	result, err := c.Repair(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repairResponse{
		FixedText:   result.FixedText,
		Explanation: result.Explanation,
	})
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}

	art := c.Artifact()
	rs := c.RenderState()
	if art == nil || rs.Stale || rs.Error != "" || r.URL.Query().Get("fresh") != "" {
		var err error
		if art, err = c.RenderNow(r.Context()); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if art == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	format := export.Format(q.Get("format"))
	if format == "" {
		format = export.FormatSVG
	}
	background := s.background
	if q.Has("background") {
		background = q.Get("background")
	}

	file, err := s.exporter.Export(r.Context(), c.Text(), export.Options{
		Format:     format,
		Name:       q.Get("name"),
		Background: background,
		Title:      q.Get("title"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errNoStore)
		return
	}
	c, ok := s.coordinator(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	code := c.Text()

	if req.DiagramID == "" {
		d, err := s.store.CreateDiagram(ctx, &store.Diagram{
			UserID:      req.UserID,
			Title:       req.Title,
			Description: req.Description,
			Code:        code,
			IsPublic:    req.IsPublic,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, d)
		return
	}

	patch := store.Patch{Code: &code}
	if req.Title != "" {
		patch.Title = &req.Title
	}
	if req.Description != "" {
		patch.Description = &req.Description
	}
	d, err := s.store.UpdateDiagram(ctx, req.DiagramID, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.store.CreateVersion(ctx, &store.Version{
		DiagramID:         d.ID,
		Code:              code,
		ChangeDescription: req.ChangeDescription,
	}); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
