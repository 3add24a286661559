package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// sessionID returns the {sessionID} route parameter.
func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
