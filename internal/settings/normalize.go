package settings

import (
	"sort"
	"strings"
	"unicode"
)

// bundle describes a nested settings object whose sub-keys are unpacked into
// prefixed, snake_case top-level keys. A container matches when its snake_case
// key equals the bundle name or ends with "_<name>" and it carries at least
// one known sub-key.
type bundle struct {
	name string
	keys map[string]struct{}
	// keepName means the bundle name stays in the prefix: padding.top -> padding_top.
	// Typography drops it: heading_typography.fontSize -> heading_font_size.
	keepName bool
}

var bundles = []bundle{
	{
		name: "typography",
		keys: keySet("font_family", "font_size", "font_weight", "font_style", "line_height",
			"letter_spacing", "text_transform", "text_align", "color"),
	},
	{name: "padding", keys: keySet("top", "right", "bottom", "left"), keepName: true},
	{name: "margin", keys: keySet("top", "right", "bottom", "left"), keepName: true},
	{name: "background", keys: keySet("color", "image", "position", "size", "repeat", "overlay"), keepName: true},
	{name: "border", keys: keySet("width", "style", "color", "radius"), keepName: true},
}

func keySet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		out[key] = struct{}{}
	}
	return out
}

// Normalize flattens nested or legacy setting shapes into the flat,
// underscore-keyed map templates read. Known bundles (typography, padding,
// margin, background, border) are unpacked under a prefix; any other nested
// object is shallow-merged into the top level. Keys already present at the
// top level win over keys produced by unpacking, and containers are handled in
// key order so the result is deterministic. Scalars and arrays pass through.
//
// The input is never modified. Normalize(Normalize(x)) equals Normalize(x).
func Normalize(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = value
	}
	for flattenOnce(out) {
	}
	return out
}

// flattenOnce removes one level of nesting in place and reports whether any
// container was found.
func flattenOnce(values map[string]any) bool {
	containers := make([]string, 0)
	for key, value := range values {
		if _, ok := asObject(value); ok {
			containers = append(containers, key)
		}
	}
	if len(containers) == 0 {
		return false
	}
	sort.Strings(containers)

	nested := make(map[string]map[string]any, len(containers))
	for _, key := range containers {
		obj, _ := asObject(values[key])
		nested[key] = obj
		delete(values, key)
	}

	for _, key := range containers {
		for _, entry := range unpack(key, nested[key]) {
			if _, exists := values[entry.key]; exists {
				continue
			}
			values[entry.key] = entry.value
		}
	}
	return true
}

type flatEntry struct {
	key   string
	value any
}

func unpack(container string, obj map[string]any) []flatEntry {
	subKeys := make([]string, 0, len(obj))
	for key := range obj {
		subKeys = append(subKeys, key)
	}
	sort.Strings(subKeys)

	prefix, isBundle := matchBundle(container, subKeys)
	entries := make([]flatEntry, 0, len(subKeys))
	for _, sub := range subKeys {
		key := sub
		if isBundle {
			key = joinKey(prefix, snakeCase(sub))
		}
		entries = append(entries, flatEntry{key: key, value: obj[sub]})
	}
	return entries
}

func matchBundle(container string, subKeys []string) (string, bool) {
	snake := snakeCase(container)
	for _, b := range bundles {
		var owner string
		switch {
		case snake == b.name:
		case strings.HasSuffix(snake, "_"+b.name):
			owner = strings.TrimSuffix(snake, "_"+b.name)
		default:
			continue
		}
		if !hasKnownKey(b, subKeys) {
			continue
		}
		prefix := owner
		if b.keepName {
			prefix = joinKey(owner, b.name)
		}
		return prefix, true
	}
	return "", false
}

func hasKnownKey(b bundle, subKeys []string) bool {
	for _, sub := range subKeys {
		if _, ok := b.keys[snakeCase(sub)]; ok {
			return true
		}
	}
	return false
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "_" + key
	}
}

// asObject reports whether value is a nested settings object.
func asObject(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[string]string:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// snakeCase converts fontSize, font-size and "Font Size" to font_size.
func snakeCase(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 4)
	runes := []rune(strings.TrimSpace(value))
	for i, r := range runes {
		switch {
		case r == '-' || r == ' ' || r == '.':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
