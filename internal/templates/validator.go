package templates

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-sections/internal/settings"
	"github.com/goliatone/go-sections/internal/snippets"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("templates: candidate rejected")

// Acceptance rules, checked in order. The first failing rule rejects the
// candidate.
const (
	RulePresence       = 1
	RuleStylesheet     = 2
	RuleSnippets       = 3
	RuleSettings       = 4
	RuleBlocks         = 5
	RuleShape          = 6
	RuleDuplicateIDs   = 7
	RuleRegisteredType = 8
)

// Issue is one location-level failure reported by the shape check.
type Issue struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// ValidationError rejects a candidate template.
type ValidationError struct {
	Rule   int     `json:"rule"`
	Path   string  `json:"path"`
	Reason string  `json:"reason"`
	Issues []Issue `json:"issues,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("templates: rule %d: %s", e.Rule, e.Reason)
	}
	return fmt.Sprintf("templates: rule %d: %s: %s", e.Rule, e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// AsValidationError extracts a ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) && validationErr != nil {
		return validationErr, true
	}
	return nil, false
}

// Accepted holds the typed parts of a candidate that passed validation.
type Accepted struct {
	Schema     Schema
	Markup     string
	Stylesheet string
	Snippets   map[string]string
}

// Validator is the acceptance gate for authored templates.
type Validator struct {
	registry *settings.Registry
}

// NewValidator builds a validator. A nil registry uses the built-in field
// variants in non-strict mode.
func NewValidator(registry *settings.Registry) *Validator {
	if registry == nil {
		registry = settings.NewRegistry()
	}
	return &Validator{registry: registry}
}

// Validate reports the first rule the candidate breaks, or nil.
func (v *Validator) Validate(candidate Candidate) error {
	_, err := v.Accept(candidate)
	return err
}

// Accept validates the candidate and returns its typed parts. A schema tag in
// the markup is stripped; its JSON becomes the schema when none was given.
func (v *Validator) Accept(candidate Candidate) (*Accepted, error) {
	markup, ok := candidate.Markup.(string)
	if candidate.Markup == nil {
		return nil, reject(RulePresence, "markup", "markup is required")
	}
	if !ok {
		return nil, reject(RulePresence, "markup", fmt.Sprintf("markup must be a string, got %s", kindOf(candidate.Markup)))
	}

	schemaValue := candidate.Schema
	stripped, body, found := ExtractSchemaTag(markup)
	if found {
		markup = stripped
		if schemaValue == nil {
			var embedded any
			if err := json.Unmarshal([]byte(body), &embedded); err != nil {
				return nil, reject(RulePresence, "markup", "schema tag does not contain valid JSON: "+err.Error())
			}
			schemaValue = embedded
		}
	}
	if schemaValue == nil {
		return nil, reject(RulePresence, "schema", "schema is required")
	}
	if strings.TrimSpace(markup) == "" {
		return nil, reject(RulePresence, "markup", "markup is empty")
	}

	generic, err := toGeneric(schemaValue)
	if err != nil {
		return nil, reject(RulePresence, "schema", "schema is not JSON encodable: "+err.Error())
	}
	schemaMap, ok := generic.(map[string]any)
	if !ok {
		return nil, reject(RulePresence, "schema", fmt.Sprintf("schema must be an object, got %s", kindOf(generic)))
	}

	stylesheet, ok := candidate.Stylesheet.(string)
	if !ok {
		return nil, reject(RuleStylesheet, "stylesheet", fmt.Sprintf("stylesheet must be a string, got %s", kindOf(candidate.Stylesheet)))
	}

	snippetMap, err := snippetStrings(candidate.Snippets)
	if err != nil {
		return nil, err
	}

	settingsValue, present := schemaMap["settings"]
	if !present {
		return nil, reject(RuleSettings, "schema.settings", "settings list is required")
	}
	if err := checkSettingList("schema.settings", settingsValue); err != nil {
		return nil, err
	}

	if blocksValue, present := schemaMap["blocks"]; present {
		if err := checkBlockList(blocksValue); err != nil {
			return nil, err
		}
	}

	if err := checkShape(schemaMap); err != nil {
		return nil, err
	}

	var schema Schema
	encoded, _ := json.Marshal(schemaMap)
	if err := json.Unmarshal(encoded, &schema); err != nil {
		return nil, reject(RuleShape, "schema", err.Error())
	}

	if err := checkDuplicates(schema); err != nil {
		return nil, err
	}
	if v.registry.Strict() {
		if err := v.checkRegistered(schema); err != nil {
			return nil, err
		}
	}

	return &Accepted{
		Schema:     schema,
		Markup:     markup,
		Stylesheet: stylesheet,
		Snippets:   snippetMap,
	}, nil
}

func snippetStrings(value any) (map[string]string, error) {
	var out map[string]string
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		out = make(map[string]string, len(typed))
		for key, source := range typed {
			out[key] = source
		}
	case map[string]any:
		out = make(map[string]string, len(typed))
		for _, key := range sortedKeys(typed) {
			text, ok := typed[key].(string)
			if !ok {
				return nil, reject(RuleSnippets, "snippets."+key, fmt.Sprintf("snippet source must be a string, got %s", kindOf(typed[key])))
			}
			out[key] = text
		}
	default:
		return nil, reject(RuleSnippets, "snippets", fmt.Sprintf("snippets must map keys to strings, got %s", kindOf(value)))
	}

	for _, key := range sortedKeys(out) {
		if err := snippets.ValidateKey(snippets.NormalizeKey(key)); err != nil {
			return nil, reject(RuleSnippets, "snippets."+key, fmt.Sprintf("snippet key %q is invalid: lowercase letters, digits and _-./ only, up to 128 characters", key))
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func checkSettingList(path string, value any) error {
	entries, ok := value.([]any)
	if !ok {
		return reject(RuleSettings, path, fmt.Sprintf("settings must be a list, got %s", kindOf(value)))
	}
	for i, entry := range entries {
		entryPath := fmt.Sprintf("%s[%d]", path, i)
		field, ok := entry.(map[string]any)
		if !ok {
			return reject(RuleSettings, entryPath, fmt.Sprintf("setting must be an object, got %s", kindOf(entry)))
		}
		for _, key := range []string{"type", "id", "label"} {
			if !nonEmptyString(field[key]) {
				return reject(RuleSettings, entryPath+"."+key, key+" is required")
			}
		}
	}
	return nil
}

// checkBlockList reports nested setting failures under the block rule.
func checkBlockList(value any) error {
	entries, ok := value.([]any)
	if !ok {
		return reject(RuleBlocks, "schema.blocks", fmt.Sprintf("blocks must be a list, got %s", kindOf(value)))
	}
	for i, entry := range entries {
		path := fmt.Sprintf("schema.blocks[%d]", i)
		block, ok := entry.(map[string]any)
		if !ok {
			return reject(RuleBlocks, path, fmt.Sprintf("block must be an object, got %s", kindOf(entry)))
		}
		for _, key := range []string{"type", "name"} {
			if !nonEmptyString(block[key]) {
				return reject(RuleBlocks, path+"."+key, key+" is required")
			}
		}
		settingsValue, present := block["settings"]
		if !present {
			return reject(RuleBlocks, path+".settings", "settings list is required")
		}
		if err := checkSettingList(path+".settings", settingsValue); err != nil {
			var validationErr *ValidationError
			if errors.As(err, &validationErr) {
				validationErr.Rule = RuleBlocks
			}
			return err
		}
	}
	return nil
}

var (
	//go:embed schema/section_template.json
	shapeSchemaSource []byte

	shapeSchemaOnce sync.Once
	shapeSchema     *jsonschema.Schema
	shapeSchemaErr  error
)

func compiledShapeSchema() (*jsonschema.Schema, error) {
	shapeSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("section_template.json", bytes.NewReader(shapeSchemaSource)); err != nil {
			shapeSchemaErr = err
			return
		}
		shapeSchema, shapeSchemaErr = compiler.Compile("section_template.json")
	})
	return shapeSchema, shapeSchemaErr
}

func checkShape(schema map[string]any) error {
	compiled, err := compiledShapeSchema()
	if err != nil {
		return fmt.Errorf("templates: compile shape schema: %w", err)
	}
	err = compiled.Validate(schema)
	if err == nil {
		return nil
	}
	var schemaErr *jsonschema.ValidationError
	if !errors.As(err, &schemaErr) {
		return reject(RuleShape, "schema", err.Error())
	}
	issues := collectIssues(schemaErr)
	validationErr := reject(RuleShape, "schema", "schema does not match the template shape")
	validationErr.Issues = issues
	if len(issues) > 0 {
		validationErr.Path = "schema" + pointerToPath(issues[0].Location)
		validationErr.Reason = issues[0].Message
	}
	return validationErr
}

func collectIssues(err *jsonschema.ValidationError) []Issue {
	issues := []Issue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, Issue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}

// pointerToPath turns "/blocks/0/limit" into ".blocks[0].limit".
func pointerToPath(pointer string) string {
	pointer = strings.Trim(pointer, "/")
	if pointer == "" {
		return ""
	}
	var b strings.Builder
	for _, segment := range strings.Split(pointer, "/") {
		if isIndex(segment) {
			b.WriteString("[" + segment + "]")
			continue
		}
		b.WriteString("." + segment)
	}
	return b.String()
}

func checkDuplicates(schema Schema) error {
	if err := duplicateIDs("schema.settings", schema.Settings); err != nil {
		return err
	}
	seenTypes := make(map[string]int, len(schema.Blocks))
	for i, block := range schema.Blocks {
		path := fmt.Sprintf("schema.blocks[%d]", i)
		if first, exists := seenTypes[block.Type]; exists {
			return reject(RuleDuplicateIDs, path+".type", fmt.Sprintf("block type %q already declared at schema.blocks[%d]", block.Type, first))
		}
		seenTypes[block.Type] = i
		if err := duplicateIDs(path+".settings", block.Settings); err != nil {
			return err
		}
	}
	return nil
}

func duplicateIDs(path string, fields []settings.Field) error {
	seen := make(map[string]int, len(fields))
	for i, field := range fields {
		if first, exists := seen[field.ID]; exists {
			return reject(RuleDuplicateIDs, fmt.Sprintf("%s[%d].id", path, i), fmt.Sprintf("setting id %q already declared at %s[%d]", field.ID, path, first))
		}
		seen[field.ID] = i
	}
	return nil
}

func (v *Validator) checkRegistered(schema Schema) error {
	check := func(path string, fields []settings.Field) error {
		for i, field := range fields {
			if err := v.registry.Validate(field); err != nil {
				return reject(RuleRegisteredType, fmt.Sprintf("%s[%d]", path, i), err.Error())
			}
		}
		return nil
	}
	if err := check("schema.settings", schema.Settings); err != nil {
		return err
	}
	for i, block := range schema.Blocks {
		if err := check(fmt.Sprintf("schema.blocks[%d].settings", i), block.Settings); err != nil {
			return err
		}
	}
	return nil
}

func reject(rule int, path, reason string) *ValidationError {
	return &ValidationError{Rule: rule, Path: path, Reason: reason}
}

func toGeneric(value any) (any, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nonEmptyString(value any) bool {
	text, ok := value.(string)
	return ok && strings.TrimSpace(text) != ""
}

func kindOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, json.Number:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func isIndex(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
