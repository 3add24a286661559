package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/fossil-import/internal/core"
	"github.com/JonMunkholm/fossil-import/internal/logging"
	"github.com/JonMunkholm/fossil-import/internal/tabular"
)

// multipartOverhead is allowed on top of the file size for form fields and boundaries.
const multipartOverhead = 1 << 20

// handleUpload parses an uploaded spreadsheet and opens an import session
// with a generated mapping.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, core.ErrFileTooLarge, 0)
			return
		}
		respondError(w, r, badRequest("invalid multipart form"), 0)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, badRequest("no file provided"), 0)
		return
	}
	defer file.Close()

	result, err := tabular.Parse(header.Filename, file, maxSize)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	owner := core.OwnerIDFromContext(r.Context())
	view, err := s.service.OpenSession(r.Context(), owner, result)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	logging.FromContext(r.Context()).Info("source uploaded",
		"session_id", view.ID,
		"source", result.SourceName,
		"rows", result.RowCount,
		"delimiter", result.Delimiter,
	)
	writeJSONStatus(w, http.StatusCreated, view)
}

// handleGetSession returns the session state.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Session(r.Context(), sessionID(r))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, view)
}

// handleCloseSession cancels any running import and forgets the session.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CloseSession(r.Context(), sessionID(r)); err != nil {
		respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartImport starts importing the selected rows.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	importID, err := s.service.StartImport(r.Context(), sessionID(r))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"importId": importID})
}

// handleImportProgress streams progress snapshots as Server-Sent Events.
// A "progress" event is sent per snapshot; when the run ends a final
// "summary" event carries the summary and, for a cancelled run, the error.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	progressCh, err := s.service.SubscribeProgress(r.Context(), id)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(event string, v any) bool {
		if err := writeEvent(w, event, v); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	for {
		select {
		case p, ok := <-progressCh:
			if !ok {
				sum, runErr := s.service.ImportSummary(r.Context(), id)
				final := summaryEvent{Summary: sum}
				if runErr != nil {
					final.Error = core.MapError(runErr).Message
				}
				send("summary", final)
				return
			}
			if !send("progress", progressEvent{ImportProgress: p, Percent: p.Percent()}) {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

type progressEvent struct {
	core.ImportProgress
	Percent int `json:"percent"`
}

type summaryEvent struct {
	Summary *core.ImportSummary `json:"summary"`
	Error   string              `json:"error,omitempty"`
}

// handleCancelImport stops the session's running import.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelImport(r.Context(), sessionID(r)); err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, map[string]string{"status": "cancelling"})
}

// handleImportSummary waits for the import to end and returns its summary as
// JSON, or as an HTML report when the client asks for text/html or
// format=html. A cancelled import returns its partial summary.
func (s *Server) handleImportSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.ImportSummary(r.Context(), sessionID(r))
	if err != nil && !(errors.Is(err, core.ErrImportCancelled) && sum != nil) {
		respondError(w, r, err, 0)
		return
	}

	if r.URL.Query().Get("format") == "html" || wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := SummaryReport(sum).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render summary report", "error", err)
		}
		return
	}
	writeJSON(w, sum)
}

// writeEvent writes one SSE frame with a JSON payload.
func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
