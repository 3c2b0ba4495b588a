package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-sections/internal/commands/snippetscmd"
	"github.com/goliatone/go-sections/internal/snippets"
)

type putSnippetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Markup      string `json:"markup"`
}

func (a *PreviewAPI) handlePutSnippet(w http.ResponseWriter, r *http.Request) {
	var req putSnippetRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid snippet payload")
		return
	}

	result, err := a.putSnippet.Put(r.Context(), snippetscmd.PutSnippetCommand{
		TenantID:    tenantParam(r),
		Key:         chi.URLParam(r, "*"),
		Name:        req.Name,
		Description: req.Description,
		Markup:      req.Markup,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome != snippets.OutcomeUnchanged {
		status = http.StatusCreated
	}
	writeJSON(w, status, newSnippetResponse(result))
}

func (a *PreviewAPI) handleGetSnippet(w http.ResponseWriter, r *http.Request) {
	record, err := a.snippets.Get(r.Context(), tenantParam(r), chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
