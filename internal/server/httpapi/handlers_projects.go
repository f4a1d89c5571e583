package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/go-chi/chi/v5"
)

// projectResponse is the member-facing view of a project. Envelope artifacts
// (hashes, wrapped passcode, verifier) never leave the server.
type projectResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProjectResponse(p *models.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

func (s *Server) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Passcode  string `json:"passcode"`
		MasterKey string `json:"master_key"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	project, err := s.projects.Create(r.Context(), callerID(r.Context()), req.Name, req.Passcode, req.MasterKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toProjectResponse(project))
}

func (s *Server) handleProjectGet(w http.ResponseWriter, r *http.Request) {
	project, err := s.projects.Get(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (s *Server) handleProjectUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.projects.UpdateInfo(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"), req.Name, req.Description); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProjectDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.Delete(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProjectUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.projects.Unlock(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"), req.Passcode); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"unlocked": true})
}

func (s *Server) handleProjectLock(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.Lock(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProjectRecover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MasterKey string `json:"master_key"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	passcode, err := s.projects.Recover(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"), req.MasterKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"passcode": passcode})
}
