package templates

import (
	"regexp"
	"strings"
)

var schemaTagPattern = regexp.MustCompile(`(?s)\{%-?\s*schema\s*-?%\}(.*?)\{%-?\s*endschema\s*-?%\}`)

// ExtractSchemaTag removes every schema tag from markup. body is the content
// of the first tag; found reports whether any tag was present.
func ExtractSchemaTag(markup string) (stripped, body string, found bool) {
	matches := schemaTagPattern.FindStringSubmatchIndex(markup)
	if matches == nil {
		return markup, "", false
	}
	body = strings.TrimSpace(markup[matches[2]:matches[3]])
	stripped = strings.TrimSpace(schemaTagPattern.ReplaceAllString(markup, ""))
	return stripped, body, true
}
