package render

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-sections/internal/cssscope"
)

var closingStyle = regexp.MustCompile(`(?i)</style`)

// styleBlock scopes the stylesheet to the instance; it is empty when there
// are no rules left to emit.
func styleBlock(stylesheet, instanceID string) string {
	scoped := strings.TrimSpace(cssscope.Scope(stylesheet, instanceID))
	if scoped == "" {
		return ""
	}
	return "<style>" + closingStyle.ReplaceAllString(scoped, `<\/style`) + "</style>"
}

func wrapSection(instanceID, sectionType, stylesheet string, values map[string]any, body string) string {
	var b strings.Builder
	b.WriteString(styleBlock(stylesheet, instanceID))
	b.WriteString(`<div class="section" data-section-id="`)
	b.WriteString(html.EscapeString(instanceID))
	b.WriteString(`" data-section-type="`)
	b.WriteString(html.EscapeString(sectionType))
	b.WriteString(`"`)
	if style := paddingStyle(values); style != "" {
		b.WriteString(` style="`)
		b.WriteString(html.EscapeString(style))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(body)
	b.WriteString("</div>")
	return b.String()
}

func wrapBlock(blockID, blockType, body string) string {
	return fmt.Sprintf(`<div class="block" data-block-id="%s" data-block-type="%s">%s</div>`,
		html.EscapeString(blockID), html.EscapeString(blockType), body)
}

func missingSection(instanceID, sectionType string) string {
	return fmt.Sprintf(`<div class="section section--missing" data-section-id="%s" data-section-type="%s" data-render-status="missing">Missing section template: %s</div>`,
		html.EscapeString(instanceID), html.EscapeString(sectionType), html.EscapeString(sectionType))
}

func missingBlock(blockID, blockType string) string {
	return fmt.Sprintf(`<div class="block block--missing" data-block-id="%s" data-block-type="%s" data-render-status="missing">Missing block template: %s</div>`,
		html.EscapeString(blockID), html.EscapeString(blockType), html.EscapeString(blockType))
}

// fallbackFragment dumps the raw instance so the failure can be inspected in
// the rendered page.
func fallbackFragment(kind, id, typ string, rawSettings map[string]any, err error, exposeErrors bool) string {
	dump := map[string]any{
		"type":     typ,
		"settings": rawSettings,
	}
	if rawSettings == nil {
		dump["settings"] = map[string]any{}
	}
	encoded, marshalErr := json.MarshalIndent(dump, "", "  ")
	text := string(encoded)
	if marshalErr != nil {
		text = fmt.Sprintf("type: %s\nsettings: %v", typ, rawSettings)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="%s %s--fallback" data-%s-id="%s" data-%s-type="%s" data-render-status="fallback">`,
		kind, kind, kind, html.EscapeString(id), kind, html.EscapeString(typ))
	b.WriteString(`<pre class="` + kind + `__debug">`)
	b.WriteString(html.EscapeString(text))
	b.WriteString("</pre>")
	if exposeErrors && err != nil {
		b.WriteString(`<p class="` + kind + `__error">`)
		b.WriteString(html.EscapeString(err.Error()))
		b.WriteString("</p>")
	}
	b.WriteString("</div>")
	return b.String()
}

// paddingStyle reads padding_top and padding_bottom. Numbers and strings
// such as "40" or "40px" are accepted; anything else is ignored.
func paddingStyle(values map[string]any) string {
	parts := make([]string, 0, 2)
	if top, ok := pixels(values["padding_top"]); ok {
		parts = append(parts, "padding-top:"+top)
	}
	if bottom, ok := pixels(values["padding_bottom"]); ok {
		parts = append(parts, "padding-bottom:"+bottom)
	}
	return strings.Join(parts, ";")
}

func pixels(value any) (string, bool) {
	var number float64
	switch typed := value.(type) {
	case float64:
		number = typed
	case float32:
		number = float64(typed)
	case int:
		number = float64(typed)
	case int64:
		number = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return "", false
		}
		number = parsed
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(typed), "px")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return "", false
		}
		number = parsed
	default:
		return "", false
	}
	return strconv.FormatFloat(number, 'f', -1, 64) + "px", true
}
