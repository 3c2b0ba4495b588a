// Package cssscope rewrites a section stylesheet so every rule only matches
// inside one rendered instance.
//
// The rewriter is a small tokenizer rather than a CSS parser. It understands
// comments, single and double quoted strings, escapes, parentheses and
// brackets, and braces. Quoted strings and comments are opaque: a brace inside
// `content: "}"` or `/* } */` never opens or closes a block. A string ends at
// its closing quote, an unescaped newline, or end of input. Any other
// unterminated construct runs to end of input.
package cssscope

import "strings"

// grouping at-rules contain nested rules that are scoped in turn.
var grouping = map[string]bool{
	"media":          true,
	"supports":       true,
	"container":      true,
	"layer":          true,
	"document":       true,
	"scope":          true,
	"starting-style": true,
}

// AttributeSelector returns the attribute selector used as scope prefix.
func AttributeSelector(instanceID string) string {
	var b strings.Builder
	b.Grow(len(instanceID) + 20)
	b.WriteString(`[data-section-id="`)
	for _, r := range instanceID {
		switch r {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString(`"]`)
	return b.String()
}

// Scope prefixes every selector of every style rule in css with the
// instance attribute selector. Grouping at-rule preludes (@media, @supports,
// @container, @layer, @scope) pass through and their nested rules are scoped.
// Other at-rules with a block (@font-face, @keyframes, @page, @property) and
// statement at-rules (@import, @charset, @namespace) are copied verbatim.
// Declarations are never touched. Selectors already carrying the prefix are
// left alone, so Scope is idempotent for a given id.
func Scope(css, instanceID string) string {
	s := &scanner{src: css, prefix: AttributeSelector(instanceID)}
	var out strings.Builder
	out.Grow(len(css) + len(css)/4)
	s.rules(&out, false)
	return out.String()
}

type scanner struct {
	src    string
	pos    int
	prefix string
}

// rules copies a rule list. When nested it stops after the closing brace of
// the enclosing block; at top level a stray closing brace is dropped.
func (s *scanner) rules(out *strings.Builder, nested bool) {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isSpace(c):
			out.WriteByte(c)
			s.pos++
		case s.at("/*"):
			end := s.skipComment(s.pos)
			out.WriteString(s.src[s.pos:end])
			s.pos = end
		case c == '}':
			s.pos++
			if nested {
				out.WriteByte('}')
				return
			}
		case c == '@':
			s.atRule(out)
		default:
			s.styleRule(out)
		}
	}
}

func (s *scanner) atRule(out *strings.Builder) {
	start := s.pos
	nameEnd := start + 1
	for nameEnd < len(s.src) && isNameChar(s.src[nameEnd]) {
		nameEnd++
	}
	name := strings.ToLower(s.src[start+1 : nameEnd])

	stop := s.scanPrelude(nameEnd)
	if stop >= len(s.src) {
		out.WriteString(s.src[start:])
		s.pos = len(s.src)
		return
	}

	switch s.src[stop] {
	case ';':
		out.WriteString(s.src[start : stop+1])
		s.pos = stop + 1
	case '}':
		// a block closed before this at-rule had a body; keep the text, let the
		// caller see the brace
		out.WriteString(s.src[start:stop])
		s.pos = stop
	default:
		if grouping[unvendor(name)] {
			out.WriteString(s.src[start : stop+1])
			s.pos = stop + 1
			s.rules(out, true)
			return
		}
		end, closed := s.matchBrace(stop + 1)
		if closed {
			end++
		}
		out.WriteString(s.src[start:end])
		s.pos = end
	}
}

func (s *scanner) styleRule(out *strings.Builder) {
	start := s.pos
	stop := s.scanPrelude(start)
	if stop >= len(s.src) {
		// trailing text with no block is not a rule
		s.pos = len(s.src)
		return
	}
	switch s.src[stop] {
	case ';':
		s.pos = stop + 1
		return
	case '}':
		s.pos = stop
		return
	}

	selectors := s.scopeSelectors(s.src[start:stop])
	end, closed := s.matchBrace(stop + 1)
	out.WriteString(selectors)
	out.WriteString(" {")
	out.WriteString(s.src[stop+1 : end])
	if closed {
		out.WriteByte('}')
		end++
	}
	s.pos = end
}

func (s *scanner) scopeSelectors(prelude string) string {
	parts := splitSelectors(stripComments(prelude))
	scoped := make([]string, 0, len(parts))
	for _, part := range parts {
		selector := strings.TrimSpace(part)
		if selector == "" {
			continue
		}
		if strings.HasPrefix(selector, s.prefix) {
			scoped = append(scoped, selector)
			continue
		}
		scoped = append(scoped, s.prefix+" "+selector)
	}
	if len(scoped) == 0 {
		return s.prefix
	}
	return strings.Join(scoped, ", ")
}

// scanPrelude returns the index of the first '{', ';' or '}' outside strings,
// comments, parentheses and brackets, or len(src).
func (s *scanner) scanPrelude(i int) int {
	depth := 0
	for i < len(s.src) {
		c := s.src[i]
		switch {
		case c == '"' || c == '\'':
			i = s.skipString(i)
			continue
		case c == '/' && i+1 < len(s.src) && s.src[i+1] == '*':
			i = s.skipComment(i)
			continue
		case c == '\\':
			i += 2
			continue
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (c == '{' || c == ';' || c == '}'):
			return i
		}
		i++
	}
	return len(s.src)
}

// matchBrace returns the index of the brace closing a block whose body
// starts at i. closed is false when input ends first.
func (s *scanner) matchBrace(i int) (int, bool) {
	depth, parens := 1, 0
	for i < len(s.src) {
		c := s.src[i]
		switch {
		case c == '"' || c == '\'':
			i = s.skipString(i)
			continue
		case c == '/' && i+1 < len(s.src) && s.src[i+1] == '*':
			i = s.skipComment(i)
			continue
		case c == '\\':
			i += 2
			continue
		case c == '(':
			parens++
		case c == ')':
			if parens > 0 {
				parens--
			}
		case c == '{' && parens == 0:
			depth++
		case c == '}' && parens == 0:
			depth--
			if depth == 0 {
				return i, true
			}
		}
		i++
	}
	return len(s.src), false
}

func (s *scanner) skipString(i int) int {
	return skipString(s.src, i)
}

func (s *scanner) skipComment(i int) int {
	return skipComment(s.src, i)
}

func (s *scanner) at(token string) bool {
	return strings.HasPrefix(s.src[s.pos:], token)
}

func skipString(src string, i int) int {
	quote := src[i]
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		case '\n':
			return i
		}
		i++
	}
	return len(src)
}

func skipComment(src string, i int) int {
	if end := strings.Index(src[i+2:], "*/"); end >= 0 {
		return i + 2 + end + 2
	}
	return len(src)
}

func stripComments(prelude string) string {
	if !strings.Contains(prelude, "/*") {
		return prelude
	}
	var b strings.Builder
	for i := 0; i < len(prelude); {
		c := prelude[i]
		switch {
		case c == '"' || c == '\'':
			end := min(skipString(prelude, i), len(prelude))
			b.WriteString(prelude[i:end])
			i = end
		case c == '/' && i+1 < len(prelude) && prelude[i+1] == '*':
			i = skipComment(prelude, i)
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// splitSelectors splits a selector list at commas outside strings,
// parentheses and brackets.
func splitSelectors(prelude string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(prelude); i++ {
		switch c := prelude[i]; c {
		case '"', '\'':
			i = skipString(prelude, i) - 1
		case '\\':
			i++
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, prelude[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, prelude[start:])
}

func unvendor(name string) string {
	if strings.HasPrefix(name, "-") {
		if idx := strings.Index(name[1:], "-"); idx >= 0 {
			return name[idx+2:]
		}
	}
	return name
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f'
}

func isNameChar(c byte) bool {
	return c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
