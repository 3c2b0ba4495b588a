package cssscope

import (
	"strings"
	"testing"
)

const prefix = `[data-section-id="s1"]`

func TestScopePrefixesEverySelector(t *testing.T) {
	got := Scope(".hero, .hero__title h2{color:red}\n.cta:hover { opacity: .8 }", "s1")
	want := prefix + " .hero, " + prefix + " .hero__title h2 {color:red}\n" + prefix + " .cta:hover { opacity: .8 }"
	if got != want {
		t.Fatalf("unexpected output\nwant: %s\ngot:  %s", want, got)
	}
}

func TestScopeMediaPreludePassesThrough(t *testing.T) {
	got := Scope("@media (max-width: 600px) { .a, .b { margin: 0 } }", "s1")
	want := "@media (max-width: 600px) { " + prefix + " .a, " + prefix + " .b { margin: 0 } }"
	if got != want {
		t.Fatalf("unexpected output\nwant: %s\ngot:  %s", want, got)
	}
}

func TestScopeNestedGroupingRules(t *testing.T) {
	got := Scope("@supports (display:grid) { @media screen { .grid{display:grid} } }", "s1")
	if !strings.Contains(got, "@supports (display:grid) { @media screen { "+prefix+" .grid {display:grid} } }") {
		t.Fatalf("unexpected output %s", got)
	}
}

func TestScopeOpaqueAtRulesAreVerbatim(t *testing.T) {
	css := "@font-face { font-family: X; src: url(x.woff) }\n@keyframes spin { from { transform: rotate(0) } to { transform: rotate(1turn) } }\n@import url(\"a.css\");"
	if got := Scope(css, "s1"); got != css {
		t.Fatalf("expected verbatim output\nwant: %s\ngot:  %s", css, got)
	}
}

func TestScopeBracesInsideStringsAreOpaque(t *testing.T) {
	got := Scope(`.q::before { content: "}" } .next { content: '{' }`, "s1")
	want := prefix + ` .q::before { content: "}" } ` + prefix + ` .next { content: '{' }`
	if got != want {
		t.Fatalf("unexpected output\nwant: %s\ngot:  %s", want, got)
	}
}

func TestScopeCommentsAreOpaque(t *testing.T) {
	got := Scope("/* .x { } */\n.a /* , .ghost */ { color: red /* } */ }", "s1")
	want := "/* .x { } */\n" + prefix + " .a { color: red /* } */ }"
	if got != want {
		t.Fatalf("unexpected output\nwant: %s\ngot:  %s", want, got)
	}
}

func TestScopeCommasInsideFunctionsAndAttributes(t *testing.T) {
	got := Scope(`:is(.a, .b) > [data-x="1,2"] { top: 0 }`, "s1")
	want := prefix + ` :is(.a, .b) > [data-x="1,2"] { top: 0 }`
	if got != want {
		t.Fatalf("unexpected output\nwant: %s\ngot:  %s", want, got)
	}
}

func TestScopeIsIdempotent(t *testing.T) {
	css := ".a{b:c} @media print { .d, .e { f: g } }"
	once := Scope(css, "s1")
	if twice := Scope(once, "s1"); twice != once {
		t.Fatalf("expected idempotent output\nonce:  %s\ntwice: %s", once, twice)
	}
}

func TestScopeMalformedInput(t *testing.T) {
	cases := map[string]string{
		"stray close":      "} .a { x: y }",
		"unterminated":     ".a { color: red",
		"dangling prelude": ".a { x: y } .b",
		"empty":            "",
	}
	for name, css := range cases {
		t.Run(name, func(t *testing.T) {
			got := Scope(css, "s1")
			assertEveryRuleScoped(t, got)
		})
	}

	if got := Scope(".a { color: red", "s1"); got != prefix+" .a { color: red" {
		t.Fatalf("expected unterminated block to run to end, got %q", got)
	}
	if got := Scope("} .a{}", "s1"); got != " "+prefix+" .a {}" {
		t.Fatalf("expected stray brace to be dropped, got %q", got)
	}
}

func TestAttributeSelectorEscapesID(t *testing.T) {
	if got := AttributeSelector(`a"b\c`); got != `[data-section-id="a\"b\\c"]` {
		t.Fatalf("unexpected selector %s", got)
	}
	got := Scope(".x{}", `we"ird`)
	if !strings.HasPrefix(got, `[data-section-id="we\"ird"] .x`) {
		t.Fatalf("expected escaped prefix, got %s", got)
	}
}

func TestScopeEmptySelectorTargetsInstanceRoot(t *testing.T) {
	if got := Scope("{ color: red }", "s1"); got != prefix+" { color: red }" {
		t.Fatalf("unexpected output %q", got)
	}
}

// assertEveryRuleScoped checks that each top-level '{' outside at-rules is
// preceded by a scoped selector list.
func assertEveryRuleScoped(t *testing.T, css string) {
	t.Helper()
	s := &scanner{src: css}
	for i := 0; i < len(css); {
		stop := s.scanPrelude(i)
		if stop >= len(css) {
			return
		}
		if css[stop] != '{' {
			i = stop + 1
			continue
		}
		prelude := strings.TrimSpace(css[i:stop])
		if !strings.HasPrefix(prelude, "@") {
			for _, part := range splitSelectors(prelude) {
				if !strings.HasPrefix(strings.TrimSpace(part), prefix) {
					t.Fatalf("unscoped selector %q in %q", part, css)
				}
			}
		}
		end, _ := s.matchBrace(stop + 1)
		i = end + 1
	}
}
