package render

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path"
	"reflect"
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// DefaultAssetBase prefixes relative asset paths when asset_url gets no base
// argument.
const DefaultAssetBase = "/assets"

// markdown renders richtext settings with GFM (tables, strikethrough,
// linkify, task lists). Raw HTML in settings stays escaped.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// filterAssetURL: {{ "logo.png"|asset_url }} or {{ "logo.png"|asset_url:asset_base }}.
func filterAssetURL(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	base := DefaultAssetBase
	if param != nil && !param.IsNil() && strings.TrimSpace(param.String()) != "" {
		base = param.String()
	}
	return pongo2.AsValue(AssetURL(base, in.String())), nil
}

// AssetURL joins a relative asset path onto base. Absolute URLs and
// root-relative paths are returned unchanged.
func AssetURL(base, asset string) string {
	asset = strings.TrimSpace(asset)
	if asset == "" || isAbsoluteURL(asset) || strings.HasPrefix(asset, "/") {
		return asset
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	return base + "/" + strings.TrimLeft(path.Clean("/" + asset), "/")
}

// filterImageURL: {{ image|img_url:"600x" }} adds a width query parameter.
func filterImageURL(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	src := strings.TrimSpace(in.String())
	if src == "" {
		return pongo2.AsValue(""), nil
	}
	if !isAbsoluteURL(src) && !strings.HasPrefix(src, "/") {
		src = AssetURL(DefaultAssetBase, src)
	}
	var size string
	if param != nil && !param.IsNil() {
		size = param.String()
	}
	return pongo2.AsValue(ImageURL(src, size)), nil
}

// ImageURL applies a "<width>x" or "<width>x<height>" size to an image URL.
// Unparseable sizes leave the URL as is.
func ImageURL(src, size string) string {
	width, height := parseSize(size)
	if width == 0 && height == 0 {
		return src
	}
	parsed, err := url.Parse(src)
	if err != nil {
		return src
	}
	query := parsed.Query()
	if width > 0 {
		query.Set("width", strconv.Itoa(width))
	}
	if height > 0 {
		query.Set("height", strconv.Itoa(height))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func parseSize(size string) (width, height int) {
	size = strings.ToLower(strings.TrimSpace(size))
	if size == "" {
		return 0, 0
	}
	w, h, found := strings.Cut(size, "x")
	if !found {
		w = size
	}
	width, _ = strconv.Atoi(strings.TrimSpace(w))
	height, _ = strconv.Atoi(strings.TrimSpace(h))
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return width, height
}

// filterMoney: {{ price|money:"EUR" }} formats an amount in minor units.
func filterMoney(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	code := DefaultCurrency
	if param != nil && !param.IsNil() && strings.TrimSpace(param.String()) != "" {
		code = param.String()
	}
	minor, ok := minorUnits(in)
	if !ok {
		return pongo2.AsValue(""), nil
	}
	formatted, err := FormatMoney(minor, code)
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:money", OrigError: err}
	}
	return pongo2.AsValue(formatted), nil
}

func minorUnits(in *pongo2.Value) (int64, bool) {
	if in == nil || in.IsNil() {
		return 0, false
	}
	if in.IsInteger() {
		return int64(in.Integer()), true
	}
	if in.IsFloat() {
		return int64(in.Float()), true
	}
	text := strings.TrimSpace(in.String())
	if text == "" {
		return 0, false
	}
	if value, err := strconv.ParseInt(text, 10, 64); err == nil {
		return value, true
	}
	if value, err := strconv.ParseFloat(text, 64); err == nil {
		return int64(value), true
	}
	return 0, false
}

// filterJSON: {{ section.settings|json }} emits the value as JSON.
func filterJSON(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	encoded, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:json", OrigError: err}
	}
	return pongo2.AsSafeValue(string(encoded)), nil
}

// filterMarkdown: {{ section.settings.body|markdown }} renders CommonMark.
func filterMarkdown(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(in.String()), &buf); err != nil {
		return nil, &pongo2.Error{Sender: "filter:markdown", OrigError: err}
	}
	return pongo2.AsSafeValue(buf.String()), nil
}

// filterDefault: {{ value|default:"x" }} substitutes nil, blank strings,
// false and empty lists.
func filterDefault(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if IsBlank(in) {
		return param, nil
	}
	return in, nil
}

// IsBlank reports whether a template value counts as missing.
func IsBlank(in *pongo2.Value) bool {
	if in == nil || in.IsNil() {
		return true
	}
	switch typed := in.Interface().(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case bool:
		return !typed
	}
	rv := reflect.ValueOf(in.Interface())
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len() == 0
	}
	return false
}

func isAbsoluteURL(value string) bool {
	if strings.HasPrefix(value, "//") {
		return true
	}
	parsed, err := url.Parse(value)
	return err == nil && parsed.Scheme != ""
}
