package http

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-sections/internal/render"
)

type renderSectionRequest struct {
	ID      string                 `json:"id"`
	Section render.SectionInstance `json:"section"`
}

func (a *PreviewAPI) handleRenderSection(w http.ResponseWriter, r *http.Request) {
	var req renderSectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid render payload")
		return
	}
	if strings.TrimSpace(req.Section.Type) == "" {
		writeBadRequest(w, "section type is required")
		return
	}
	if req.ID == "" {
		req.ID = "preview"
	}

	result := a.engine.RenderSectionResult(r.Context(), tenantParam(r), req.Section, req.ID)
	writeHTML(w, string(result.Status), result.HTML)
}

func (a *PreviewAPI) handleRenderPage(w http.ResponseWriter, r *http.Request) {
	var page render.Page
	if err := decodeJSON(r, &page); err != nil {
		writeBadRequest(w, "invalid page payload")
		return
	}
	writeHTML(w, "", a.engine.RenderPage(r.Context(), tenantParam(r), page))
}
