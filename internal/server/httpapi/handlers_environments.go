package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type environmentResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEnvironmentResponse(e *models.Environment) environmentResponse {
	return environmentResponse{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Name:        e.Name,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

func (s *Server) handleEnvironmentCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	env, err := s.environments.Create(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"), req.Name, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toEnvironmentResponse(env))
}

func (s *Server) handleEnvironmentList(w http.ResponseWriter, r *http.Request) {
	envs, err := s.environments.List(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result := make([]environmentResponse, 0, len(envs))
	for _, e := range envs {
		result = append(result, toEnvironmentResponse(e))
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEnvironmentUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.environments.UpdateInfo(r.Context(), callerID(r.Context()), chi.URLParam(r, "environmentID"), req.Name, req.Description); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnvironmentDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.environments.Delete(r.Context(), callerID(r.Context()), chi.URLParam(r, "environmentID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVariableSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	v, err := s.variables.Set(r.Context(), callerID(r.Context()),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "environmentID"), chi.URLParam(r, "name"), req.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"id": v.ID, "name": v.Name})
}

func (s *Server) handleVariableGet(w http.ResponseWriter, r *http.Request) {
	value, err := s.variables.Get(r.Context(), callerID(r.Context()),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "environmentID"), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"name": chi.URLParam(r, "name"), "value": value})
}

func (s *Server) handleVariableList(w http.ResponseWriter, r *http.Request) {
	values, err := s.variables.List(r.Context(), callerID(r.Context()),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "environmentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"variables": values})
}

func (s *Server) handleVariableDelete(w http.ResponseWriter, r *http.Request) {
	err := s.variables.Delete(r.Context(), callerID(r.Context()),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "environmentID"), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
