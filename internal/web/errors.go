package web

// errors.go turns errors into responses. The technical error is logged with
// the request id; the client gets the mapped user message and its code.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/fossil-import/internal/core"
	"github.com/JonMunkholm/fossil-import/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errBadRequest marks malformed input. Its text is shown to the client.
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

func badRequest(msg string) error { return errBadRequest{msg: msg} }

// respondError logs err and writes the mapped user message. The status is
// derived from the error unless statusCode is non-zero.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	userMsg := core.MapError(err)

	var br errBadRequest
	if errors.As(err, &br) && userMsg.Code == "ERR000" {
		userMsg = core.UserMessage{Message: br.msg, Action: "Check the request and try again", Code: "REQ001"}
	}

	logger := logging.FromContext(r.Context())
	logArgs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= 500 {
		logger.Error("request error", logArgs...)
	} else {
		logger.Warn("request error", logArgs...)
	}

	if wantsHTML(r) {
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
		return
	}
	writeJSONStatus(w, statusCode, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var srcErr *core.SourceReadError
	var br errBadRequest
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &srcErr), errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrImportNotFound),
		errors.Is(err, core.ErrUnknownRow):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoImportableRows):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// wantsHTML reports whether the client asked for an HTML page rather than JSON.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
