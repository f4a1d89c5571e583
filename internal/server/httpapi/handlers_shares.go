package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type shareResponse struct {
	ID            string     `json:"id"`
	EnvironmentID string     `json:"environment_id"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	IsIndefinite  bool       `json:"is_indefinite"`
	Views         int        `json:"views"`
	MaxViews      *int       `json:"max_views,omitempty"`
	Disabled      bool       `json:"disabled"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toShareResponse(sh *models.SharedSecret) shareResponse {
	return shareResponse{
		ID:            sh.ID,
		EnvironmentID: sh.EnvironmentID,
		ExpiresAt:     sh.ExpiresAt,
		IsIndefinite:  sh.IsIndefinite,
		Views:         sh.Views,
		MaxViews:      sh.MaxViews,
		Disabled:      sh.Disabled,
		CreatedAt:     sh.CreatedAt,
	}
}

func (s *Server) handleShareCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VariableNames []string   `json:"variable_names"`
		Passcode      string     `json:"passcode"`
		ExpiresAt     *time.Time `json:"expires_at"`
		MaxViews      *int       `json:"max_views"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	share, passcode, err := s.shares.Create(r.Context(), callerID(r.Context()),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "environmentID"),
		req.VariableNames, req.Passcode, req.ExpiresAt, req.MaxViews)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"share":    toShareResponse(share),
		"passcode": passcode,
	})
}

func (s *Server) handleShareList(w http.ResponseWriter, r *http.Request) {
	shares, err := s.shares.List(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result := make([]shareResponse, 0, len(shares))
	for _, sh := range shares {
		result = append(result, toShareResponse(sh))
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleShareRecallPasscode(w http.ResponseWriter, r *http.Request) {
	passcode, err := s.shares.RecallPasscode(r.Context(), callerID(r.Context()),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "shareID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"passcode": passcode})
}

func (s *Server) handleShareSetDisabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.shares.SetDisabled(r.Context(), callerID(r.Context()), chi.URLParam(r, "shareID"), req.Disabled); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.shares.Delete(r.Context(), callerID(r.Context()), chi.URLParam(r, "shareID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleShareAccess serves the encrypted share material to an anonymous
// caller: ciphertexts, IVs, tags and the share salt, all base64. Plaintext is
// only obtainable with the share passcode. Fetching the material does not
// count a view: the server cannot observe a client-side decrypt, so maxViews
// is only enforced on the server-side reveal path.
func (s *Server) handleShareAccess(w http.ResponseWriter, r *http.Request) {
	share, err := s.shares.Access(r.Context(), chi.URLParam(r, "shareID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":                  share.ID,
		"share_salt":          share.ShareSalt,
		"encrypted_payload":   share.EncryptedPayload,
		"payload_iv":          share.PayloadIV,
		"payload_auth_tag":    share.PayloadAuthTag,
		"encrypted_share_key": share.EncryptedShareKey,
		"share_key_iv":        share.ShareKeyIV,
		"share_key_auth_tag":  share.ShareKeyAuthTag,
	})
}

// handleShareReveal decrypts the payload server-side for callers who cannot
// run the unwrapping locally. A successful reveal counts a view.
func (s *Server) handleShareReveal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	payload, err := s.shares.Reveal(r.Context(), chi.URLParam(r, "shareID"), req.Passcode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"variables": payload})
}
