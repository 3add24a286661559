package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// decodeJSON decodes a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// handleListPresets returns the owner's mapping presets. With a headers
// query parameter (comma-separated) only matching presets are returned,
// best match first.
func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.Presets(r.Context(), core.OwnerIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	headersStr := r.URL.Query().Get("headers")
	if headersStr == "" {
		if presets == nil {
			presets = []core.MappingPreset{}
		}
		writeJSON(w, presets)
		return
	}

	headers := strings.Split(headersStr, ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	matches := core.MatchPresets(headers, presets)
	if matches == nil {
		matches = []core.PresetMatch{}
	}
	writeJSON(w, matches)
}

type savePresetRequest struct {
	Name string `json:"name"`
}

// handleSavePreset stores the session's mapping as a named preset.
func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var req savePresetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, 0)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, r, badRequest("preset name is required"), 0)
		return
	}

	preset, err := s.service.SaveSessionPreset(r.Context(), sessionID(r), req.Name)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSONStatus(w, http.StatusCreated, preset)
}

// handleApplyPreset applies one of the presets matched to the session's source.
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ApplySessionPreset(r.Context(), sessionID(r), chi.URLParam(r, "presetID"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, view)
}
