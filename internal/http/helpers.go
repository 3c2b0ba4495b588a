package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-sections/internal/render"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/templates"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Rule    int               `json:"rule,omitempty"`
	Path    string            `json:"path,omitempty"`
	Issues  []templates.Issue `json:"issues,omitempty"`
}

func joinPath(base, suffix string) string {
	trimmedBase := strings.TrimSpace(base)
	trimmedSuffix := strings.TrimSpace(suffix)
	if trimmedBase == "" || trimmedBase == "/" {
		if trimmedSuffix == "" {
			return "/"
		}
		return "/" + strings.Trim(trimmedSuffix, "/")
	}
	baseClean := "/" + strings.Trim(trimmedBase, "/")
	if trimmedSuffix == "" {
		return baseClean
	}
	return baseClean + "/" + strings.Trim(trimmedSuffix, "/")
}

// decodeJSON keeps numbers as float64 so settings compare numerically in
// templates.
func decodeJSON(r *http.Request, target any) error {
	if r == nil || r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeHTML(w http.ResponseWriter, status string, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != "" {
		w.Header().Set(renderStatusHeader, status)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	status, payload := mapError(err)
	writeJSON(w, status, payload)
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "unknown_error"}
	}

	if rejected, ok := templates.AsValidationError(err); ok {
		return http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation_failed",
			Message: rejected.Reason,
			Rule:    rejected.Rule,
			Path:    rejected.Path,
			Issues:  rejected.Issues,
		}
	}

	var notFound *templates.NotFoundError
	if errors.As(err, &notFound) ||
		errors.Is(err, templates.ErrTemplateNotFound) ||
		errors.Is(err, snippets.ErrSnippetNotFound) ||
		errors.Is(err, render.ErrPresetNotFound) {
		return http.StatusNotFound, errorResponse{
			Error:   "not_found",
			Message: err.Error(),
		}
	}

	if goerrors.IsCategory(err, goerrors.CategoryValidation) ||
		errors.Is(err, templates.ErrTenantRequired) ||
		errors.Is(err, templates.ErrTypeRequired) ||
		errors.Is(err, snippets.ErrTenantRequired) ||
		errors.Is(err, snippets.ErrKeyInvalid) {
		return http.StatusBadRequest, errorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		}
	}

	if errors.Is(err, snippets.ErrKeySpaceExhausted) {
		return http.StatusConflict, errorResponse{
			Error:   "conflict",
			Message: err.Error(),
		}
	}

	return http.StatusInternalServerError, errorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	}
}
