package web

// errors.go provides unified error response handling for the web layer.
//
// Sync errors are mapped via core.MapError to an operator message with a
// support code; selection errors are returned as they are, constraint
// violations with the structured failure body the kiosk renders.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/combokiosk/internal/catalog"
	"github.com/JonMunkholm/combokiosk/internal/combo"
	"github.com/JonMunkholm/combokiosk/internal/core"
	"github.com/JonMunkholm/combokiosk/internal/logging"
	"github.com/JonMunkholm/combokiosk/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// FailureResponse is the body of a 422 answer: the violated group and a
// message to show the customer.
type FailureResponse struct {
	*combo.ValidationFailure
	Message string `json:"message"`
}

// respondError logs the technical error server-side and returns the mapped
// operator message as JSON, or as an HTML fragment for browser requests.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		writeJSON(w, statusCode, ErrorResponse{
			Error:     userMsg.Message,
			Message:   userMsg.Message,
			Action:    userMsg.Action,
			Code:      userMsg.Code,
			RequestID: middleware.GetReqID(r.Context()),
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w)
}

// respondFailure writes a constraint violation.
func respondFailure(w http.ResponseWriter, f *combo.ValidationFailure) {
	writeJSON(w, http.StatusUnprocessableEntity, FailureResponse{
		ValidationFailure: f,
		Message:           f.Message(),
	})
}

// respondSelectionError maps selection and catalog errors to a status.
func respondSelectionError(w http.ResponseWriter, r *http.Request, err error) {
	var failure *combo.ValidationFailure
	switch {
	case errors.As(err, &failure):
		respondFailure(w, failure)
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, combo.ErrUnknownGroup),
		errors.Is(err, combo.ErrUnknownItem):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, combo.ErrNegativeQuantity),
		errors.Is(err, combo.ErrStepOutOfRange),
		errors.Is(err, combo.ErrNotComboLine):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTooManySessions):
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logging.FromContext(r.Context()).Error("selection request failed",
			"path", r.URL.Path,
			"method", r.Method,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	// Check Accept header
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}

	// Check if request is sending JSON
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}

	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
