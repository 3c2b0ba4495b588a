package render

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
)

// Tags whose body is literal text. The lexer would otherwise tokenize the
// body, so it is moved into an encoded tag argument before compiling.
var rawBodyTags = []string{"style", "stylesheet", "javascript", "schema"}

var (
	rawOpenPattern = regexp.MustCompile(`\{%-?\s*(` + strings.Join(rawBodyTags, "|") + `)\s*-?%\}`)
	rawEndPatterns = func() map[string]*regexp.Regexp {
		patterns := make(map[string]*regexp.Regexp, len(rawBodyTags))
		for _, name := range rawBodyTags {
			patterns[name] = regexp.MustCompile(`\{%-?\s*end` + name + `\s*-?%\}`)
		}
		return patterns
	}()
)

// protectRawBodies rewrites {% style %}body{% endstyle %} (and the other raw
// tags) into {% style "<base64 body>" %}. An open tag without its end tag is
// left alone so the tag parser reports it.
func protectRawBodies(source string) string {
	if !strings.Contains(source, "{%") {
		return source
	}
	var b strings.Builder
	pos := 0
	for pos < len(source) {
		open := rawOpenPattern.FindStringSubmatchIndex(source[pos:])
		if open == nil {
			break
		}
		name := source[pos+open[2] : pos+open[3]]
		bodyStart := pos + open[1]
		end := rawEndPatterns[name].FindStringIndex(source[bodyStart:])
		if end == nil {
			break
		}
		body := source[bodyStart : bodyStart+end[0]]

		b.WriteString(source[pos : pos+open[0]])
		b.WriteString("{% ")
		b.WriteString(name)
		b.WriteString(" ")
		b.WriteString(strconv.Quote(base64.StdEncoding.EncodeToString([]byte(body))))
		b.WriteString(" %}")
		pos = bodyStart + end[1]
	}
	if pos == 0 {
		return source
	}
	b.WriteString(source[pos:])
	return b.String()
}

func decodeRawBody(encoded string) (string, error) {
	body, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
