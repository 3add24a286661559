package web

import (
	"net/http"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

// fieldResponse describes one catalog field.
type fieldResponse struct {
	Key         core.FieldKey `json:"key"`
	DisplayName string        `json:"displayName"`
	Category    core.Category `json:"category"`
	Required    bool          `json:"required"`
	Kind        string        `json:"kind"`
	Synonyms    []string      `json:"synonyms,omitempty"`
	Values      []string      `json:"values,omitempty"`
}

// handleListFields returns the field catalog grouped by category.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	type category struct {
		Name   core.Category   `json:"name"`
		Fields []fieldResponse `json:"fields"`
	}

	var result []category
	for _, c := range core.Categories() {
		cat := category{Name: c}
		for _, f := range core.ByCategory(c) {
			fr := fieldResponse{
				Key:         f.Key,
				DisplayName: f.DisplayName,
				Category:    f.Category,
				Required:    f.Required,
				Kind:        f.Kind.String(),
				Synonyms:    f.Synonyms,
			}
			if f.Enum != nil {
				fr.Values = f.Enum.Values
			}
			cat.Fields = append(cat.Fields, fr)
		}
		result = append(result, cat)
	}
	writeJSON(w, result)
}

// handleGetMapping returns the session's field mappings with their
// confidence levels, missing required fields and column conflicts.
func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	config, err := s.service.Mapping(r.Context(), sessionID(r))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	type mappingResponse struct {
		core.FieldMapping
		Level core.ConfidenceLevel `json:"level"`
	}
	mappings := make([]mappingResponse, len(config.Mappings))
	for i, m := range config.Mappings {
		mappings[i] = mappingResponse{FieldMapping: m, Level: m.Level()}
	}

	conflicts := config.ColumnConflicts()
	if conflicts == nil {
		conflicts = []core.ColumnConflict{}
	}
	writeJSON(w, map[string]any{
		"headers":           config.Source.Headers,
		"mappings":          mappings,
		"allRequiredMapped": config.AllRequiredMapped(),
		"missingRequired":   config.MissingRequired(),
		"unmappedHeaders":   config.UnmappedHeaders(),
		"conflicts":         conflicts,
	})
}

// draftsPageSize is the default number of drafts per page.
const draftsPageSize = 100

// handleListDrafts returns one page of drafts. status=blocked, warnings or
// deselected narrows the list.
func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.service.Drafts(r.Context(), sessionID(r))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	filtered := filterDrafts(drafts, r.URL.Query().Get("status"))
	page := parseIntParam(r, "page", 1)
	pageSize := parseIntParam(r, "page_size", draftsPageSize)

	start := (page - 1) * pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := min(start+pageSize, len(filtered))

	writeJSON(w, map[string]any{
		"drafts":     filtered[start:end],
		"total":      len(filtered),
		"page":       page,
		"pageSize":   pageSize,
		"totalPages": (len(filtered) + pageSize - 1) / pageSize,
		"stats":      core.SummarizeDrafts(drafts),
	})
}

func filterDrafts(drafts []core.SpecimenDraft, status string) []core.SpecimenDraft {
	if status == "" || status == "all" {
		return drafts
	}
	result := []core.SpecimenDraft{}
	for _, d := range drafts {
		switch status {
		case "blocked":
			if len(d.BlockingErrors) > 0 {
				result = append(result, d)
			}
		case "warnings":
			if len(d.Warnings) > 0 {
				result = append(result, d)
			}
		case "deselected":
			if !d.Selected {
				result = append(result, d)
			}
		case "importable":
			if d.Importable() {
				result = append(result, d)
			}
		}
	}
	return result
}

// handleImportHistory lists the owner's recent imports, newest first.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	owner := core.OwnerIDFromContext(r.Context())
	history, err := s.service.ImportHistory(r.Context(), owner, parseIntParam(r, "limit", 50))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if history == nil {
		history = []core.ImportSummary{}
	}
	writeJSON(w, history)
}
