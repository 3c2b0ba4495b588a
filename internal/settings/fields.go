package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDuplicateFieldType indicates an attempt to register a setting type twice.
	ErrDuplicateFieldType = errors.New("settings: duplicate field type")
	// ErrUnknownFieldType is returned in strict mode for unregistered setting types.
	ErrUnknownFieldType = errors.New("settings: unknown field type")
	// ErrInvalidField reports a descriptor its strategy cannot work with.
	ErrInvalidField = errors.New("settings: invalid field descriptor")
)

// FieldType tags a setting-field variant.
type FieldType string

const (
	FieldText           FieldType = "text"
	FieldTextarea       FieldType = "textarea"
	FieldRichtext       FieldType = "richtext"
	FieldInlineRichtext FieldType = "inline_richtext"
	FieldHTML           FieldType = "html"
	FieldURL            FieldType = "url"
	FieldVideoURL       FieldType = "video_url"
	FieldColor          FieldType = "color"
	FieldImagePicker    FieldType = "image_picker"
	FieldFontPicker     FieldType = "font_picker"
	FieldLinkList       FieldType = "link_list"
	FieldCollection     FieldType = "collection"
	FieldProduct        FieldType = "product"
	FieldPage           FieldType = "page"
	FieldBlog           FieldType = "blog"
	FieldNumber         FieldType = "number"
	FieldRange          FieldType = "range"
	FieldCheckbox       FieldType = "checkbox"
	FieldSelect         FieldType = "select"
	FieldRadio          FieldType = "radio"
)

// Option is one choice of a select or radio field.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Field is a setting-field descriptor from a template schema.
type Field struct {
	ID          string    `json:"id"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Default     any       `json:"default,omitempty"`
	Info        string    `json:"info,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Step        *float64  `json:"step,omitempty"`
	Unit        string    `json:"unit,omitempty"`
}

// Strategy implements one setting-field variant.
type Strategy interface {
	// ValidateDescriptor checks the variant-specific parts of a descriptor.
	ValidateDescriptor(field Field) error
	// Resolve returns the value a template sees for the field. present is
	// false when the instance carries no value for the field id; a nil
	// result leaves the key unset.
	Resolve(field Field, raw any, present bool) any
}

// Registry maps setting type tags to strategies. Unknown types resolve
// through a passthrough strategy unless the registry is strict.
type Registry struct {
	mu         sync.RWMutex
	strategies map[FieldType]Strategy
	fallback   Strategy
	strict     bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStrict makes Validate reject unregistered setting types.
func WithStrict(strict bool) RegistryOption {
	return func(r *Registry) {
		r.strict = strict
	}
}

// WithFallback replaces the strategy used for unregistered types.
func WithFallback(strategy Strategy) RegistryOption {
	return func(r *Registry) {
		if strategy != nil {
			r.fallback = strategy
		}
	}
}

// NewRegistry returns a registry preloaded with the built-in variants.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		strategies: make(map[FieldType]Strategy),
		fallback:   passthroughStrategy{},
	}
	for fieldType, strategy := range builtinStrategies() {
		r.strategies[fieldType] = strategy
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds a strategy for a new setting type.
func (r *Registry) Register(fieldType FieldType, strategy Strategy) error {
	key := normalizeType(fieldType)
	if key == "" || strategy == nil {
		return ErrInvalidField
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFieldType, key)
	}
	r.strategies[key] = strategy
	return nil
}

// Lookup returns the registered strategy for a type.
func (r *Registry) Lookup(fieldType FieldType) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	strategy, ok := r.strategies[normalizeType(fieldType)]
	return strategy, ok
}

// Strict reports whether unknown setting types are rejected.
func (r *Registry) Strict() bool {
	return r.strict
}

// Types lists the registered setting types in order.
func (r *Registry) Types() []FieldType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FieldType, 0, len(r.strategies))
	for fieldType := range r.strategies {
		out = append(out, fieldType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks a descriptor against its strategy.
func (r *Registry) Validate(field Field) error {
	strategy, ok := r.Lookup(field.Type)
	if !ok {
		if r.strict {
			return fmt.Errorf("%w: %q", ErrUnknownFieldType, field.Type)
		}
		strategy = r.fallback
	}
	return strategy.ValidateDescriptor(field)
}

func (r *Registry) strategyFor(fieldType FieldType) Strategy {
	if strategy, ok := r.Lookup(fieldType); ok {
		return strategy
	}
	return r.fallback
}

func normalizeType(fieldType FieldType) FieldType {
	return FieldType(strings.ToLower(strings.TrimSpace(string(fieldType))))
}
