package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-sections/internal/commands/templatescmd"
	"github.com/goliatone/go-sections/internal/render"
	"github.com/goliatone/go-sections/internal/snippets"
	"github.com/goliatone/go-sections/internal/templates"
)

type submitResponse struct {
	Template *templates.SectionTemplate `json:"template"`
	Outcome  templates.Outcome          `json:"outcome"`
	Snippets []snippetResponse          `json:"snippets,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
}

type snippetResponse struct {
	Snippet      *snippets.Snippet   `json:"snippet"`
	Outcome      snippets.PutOutcome `json:"outcome"`
	RequestedKey string              `json:"requested_key,omitempty"`
}

func newSnippetResponse(result *snippets.PutResult) snippetResponse {
	return snippetResponse{
		Snippet:      result.Snippet,
		Outcome:      result.Outcome,
		RequestedKey: result.RequestedKey,
	}
}

func tenantParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "tenant"))
}

func (a *PreviewAPI) handleSubmitTemplate(w http.ResponseWriter, r *http.Request) {
	var candidate templates.Candidate
	if err := decodeJSON(r, &candidate); err != nil {
		writeBadRequest(w, "invalid template payload")
		return
	}

	result, err := a.submit.Submit(r.Context(), templatescmd.SubmitTemplateCommand{
		TenantID:  tenantParam(r),
		Candidate: candidate,
		Source:    r.URL.Query().Get("source"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := submitResponse{
		Template: result.Template,
		Outcome:  result.Outcome,
		Warnings: result.Warnings,
	}
	for _, put := range result.Snippets {
		if put != nil {
			resp.Snippets = append(resp.Snippets, newSnippetResponse(put))
		}
	}

	status := http.StatusOK
	if result.Outcome == templates.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (a *PreviewAPI) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	records, err := a.templates.List(r.Context(), tenantParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []*templates.SectionTemplate{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *PreviewAPI) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	record, err := a.templates.Get(r.Context(), tenantParam(r), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *PreviewAPI) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	err := a.remove.Execute(r.Context(), templatescmd.DeleteTemplateCommand{
		TenantID:    tenantParam(r),
		SectionType: chi.URLParam(r, "type"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePreviewPreset renders a template with one of its presets as the
// instance, so authors can see a section before placing it.
func (a *PreviewAPI) handlePreviewPreset(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantParam(r)
	record, err := a.templates.Get(r.Context(), tenantID, chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, err)
		return
	}
	instance, err := render.InstanceFromPreset(record, r.URL.Query().Get("preset"))
	if err != nil {
		writeError(w, err)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		id = "preview"
	}
	result := a.engine.RenderSectionResult(r.Context(), tenantID, instance, id)
	writeHTML(w, string(result.Status), result.HTML)
}
