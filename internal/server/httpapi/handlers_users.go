package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/envvault/internal/server/auth"
	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/go-chi/chi/v5"
)

// handleIssueToken exchanges an authenticated identity (email from the
// external provider) for an access token, provisioning the user record on
// first sign-in.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.EnsureUser(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"user_id":      user.ID,
		"tier":         user.Tier.String(),
		"has_master_key": user.HasMasterKey(),
	})
}

func (s *Server) handleSetMasterKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MasterKey string `json:"master_key"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.SetMasterKey(r.Context(), callerID(r.Context()), req.MasterKey); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRotateMasterKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldMasterKey string `json:"old_master_key"`
		NewMasterKey string `json:"new_master_key"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	count, err := s.rotation.RotateMasterKey(r.Context(), callerID(r.Context()), req.OldMasterKey, req.NewMasterKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"reencrypted_projects": count})
}

func (s *Server) handleChangeTier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier string `json:"tier"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	tier, err := models.ParseTier(req.Tier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.ChangeTier(r.Context(), callerID(r.Context()), chi.URLParam(r, "userID"), tier); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDeactivated(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Deactivated bool `json:"deactivated"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.SetDeactivated(r.Context(), callerID(r.Context()), chi.URLParam(r, "userID"), req.Deactivated); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
