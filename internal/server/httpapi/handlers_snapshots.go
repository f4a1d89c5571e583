package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/envvault/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type snapshotResponse struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	EnvironmentID string    `json:"environment_id"`
	StorageKey    string    `json:"storage_key"`
	IV            []byte    `json:"iv"`
	AuthTag       []byte    `json:"auth_tag"`
	UploadStatus  string    `json:"upload_status"`
	CreatedAt     time.Time `json:"created_at"`
}

func toSnapshotResponse(sn *models.Snapshot) snapshotResponse {
	return snapshotResponse{
		ID:            sn.ID,
		ProjectID:     sn.ProjectID,
		EnvironmentID: sn.EnvironmentID,
		StorageKey:    sn.StorageKey,
		IV:            sn.IV,
		AuthTag:       sn.AuthTag,
		UploadStatus:  sn.UploadStatus,
		CreatedAt:     sn.CreatedAt,
	}
}

func (s *Server) handleSnapshotExport(w http.ResponseWriter, r *http.Request) {
	result, err := s.snapshots.Export(r.Context(), callerID(r.Context()),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "environmentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"snapshot":   toSnapshotResponse(result.Snapshot),
		"upload_url": result.UploadURL,
		"blob":       result.Blob,
	})
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.snapshots.List(r.Context(), callerID(r.Context()), chi.URLParam(r, "projectID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result := make([]snapshotResponse, 0, len(snapshots))
	for _, sn := range snapshots {
		result = append(result, toSnapshotResponse(sn))
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSnapshotMarkUploaded(w http.ResponseWriter, r *http.Request) {
	if err := s.snapshots.MarkUploaded(r.Context(), callerID(r.Context()), chi.URLParam(r, "snapshotID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshotDownloadURL(w http.ResponseWriter, r *http.Request) {
	snapshot, url, err := s.snapshots.DownloadURL(r.Context(), callerID(r.Context()), chi.URLParam(r, "snapshotID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":     toSnapshotResponse(snapshot),
		"download_url": url,
	})
}
