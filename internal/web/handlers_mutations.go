package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/fossil-import/internal/core"
	"github.com/JonMunkholm/fossil-import/internal/logging"
)

type updateMappingRequest struct {
	Columns []string `json:"columns"`
}

// handleUpdateMapping replaces the source columns of one field. An empty
// list unmaps the field. Columns must be headers of the uploaded source.
func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	var req updateMappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, 0)
		return
	}

	id := sessionID(r)
	config, err := s.service.Mapping(r.Context(), id)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	for _, col := range req.Columns {
		if config.Source.ColumnIndex(col) < 0 {
			respondError(w, r, badRequest("unknown column "+strconv.Quote(col)), 0)
			return
		}
	}

	field := core.FieldKey(chi.URLParam(r, "field"))
	view, err := s.service.UpdateSessionMapping(r.Context(), id, field, req.Columns)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	logging.FromContext(r.Context()).Debug("mapping updated",
		"session_id", id,
		"field", field,
		"columns", len(req.Columns),
	)
	writeJSON(w, view)
}

// handleBuildDrafts validates every row against the current mapping.
func (s *Server) handleBuildDrafts(w http.ResponseWriter, r *http.Request) {
	_, stats, err := s.service.BuildSessionDrafts(r.Context(), sessionID(r))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, stats)
}

type selectDraftRequest struct {
	Selected bool `json:"selected"`
}

// handleSelectDraft selects or deselects one row for import.
func (s *Server) handleSelectDraft(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		respondError(w, r, badRequest("row must be an integer"), 0)
		return
	}

	var req selectDraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, 0)
		return
	}

	stats, err := s.service.SetDraftSelected(r.Context(), sessionID(r), row, req.Selected)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, stats)
}

// handleReselectFailed selects the rows the last run did not import.
func (s *Server) handleReselectFailed(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.ReselectFailedRows(r.Context(), sessionID(r))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, stats)
}

// handleRollbackImport deletes every record an import created.
func (s *Server) handleRollbackImport(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")
	owner := core.OwnerIDFromContext(r.Context())

	deleted, err := s.service.RollbackImport(r.Context(), owner, importID)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, map[string]any{"importId": importID, "deleted": deleted})
}
