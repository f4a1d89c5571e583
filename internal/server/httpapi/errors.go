package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/envvault/internal/common"
)

// errorResponse is the uniform error body: a stable machine-readable kind
// plus a human-readable message.
type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// kindOf maps a service error onto its taxonomy kind and HTTP status.
// DecryptionFailed (and its passcode/master-key flavors) is deliberately
// distinct from Forbidden so clients can prompt "wrong passcode" rather than
// "access denied".
func kindOf(err error) (string, int) {
	switch {
	case errors.Is(err, common.ErrUnauthenticated), errors.Is(err, common.ErrInvalidToken):
		return "Unauthenticated", http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return "Forbidden", http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return "NotFound", http.StatusNotFound
	case errors.Is(err, common.ErrBadRequest):
		return "BadRequest", http.StatusBadRequest
	case errors.Is(err, common.ErrLimitReached):
		return "LimitReached", http.StatusForbidden
	case errors.Is(err, common.ErrConflict):
		return "Conflict", http.StatusConflict
	case errors.Is(err, common.ErrWrongPasscode):
		return "WrongPasscode", http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrIncorrectMasterKey):
		return "IncorrectMasterKey", http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrProjectLocked):
		return "ProjectLocked", http.StatusConflict
	case errors.Is(err, common.ErrShareExpired):
		return "Expired", http.StatusGone
	case errors.Is(err, common.ErrShareDisabled):
		return "Disabled", http.StatusGone
	case errors.Is(err, common.ErrViewLimitReached):
		return "ViewLimitReached", http.StatusGone
	// Rotation failures often wrap a decryption error, so this case must win.
	case errors.Is(err, common.ErrRotationFailed):
		return "RotationFailed", http.StatusInternalServerError
	case errors.Is(err, common.ErrDecryptionFailed):
		return "DecryptionFailed", http.StatusUnprocessableEntity
	default:
		return "Internal", http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := kindOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "kind", kind, "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Kind: kind, Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.ErrBadRequest
	}
	return nil
}
