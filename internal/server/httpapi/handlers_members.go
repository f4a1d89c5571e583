package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type memberResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) handleMemberAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	member, err := s.members.Add(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"), req.Email, role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, memberResponse{UserID: member.UserID, Role: member.Role.String()})
}

func (s *Server) handleMemberList(w http.ResponseWriter, r *http.Request) {
	members, err := s.members.List(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result := make([]memberResponse, 0, len(members))
	for _, m := range members {
		result = append(result, memberResponse{UserID: m.UserID, Role: m.Role.String()})
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMemberChangeRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.members.ChangeRole(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"), chi.URLParam(r, "userID"), role); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMemberRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.members.Remove(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"), chi.URLParam(r, "userID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
