package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func builtinStrategies() map[FieldType]Strategy {
	text := textStrategy{}
	return map[FieldType]Strategy{
		FieldText:           text,
		FieldTextarea:       text,
		FieldRichtext:       text,
		FieldInlineRichtext: text,
		FieldHTML:           text,
		FieldURL:            text,
		FieldVideoURL:       text,
		FieldColor:          text,
		FieldImagePicker:    text,
		FieldFontPicker:     text,
		FieldLinkList:       text,
		FieldCollection:     text,
		FieldProduct:        text,
		FieldPage:           text,
		FieldBlog:           text,
		FieldNumber:         numberStrategy{},
		FieldRange:          rangeStrategy{},
		FieldCheckbox:       checkboxStrategy{},
		FieldSelect:         choiceStrategy{},
		FieldRadio:          choiceStrategy{},
	}
}

// passthroughStrategy serves unregistered types: present values pass as-is,
// missing values take the declared default.
type passthroughStrategy struct{}

func (passthroughStrategy) ValidateDescriptor(Field) error { return nil }

func (passthroughStrategy) Resolve(field Field, raw any, present bool) any {
	if present {
		return raw
	}
	return field.Default
}

// textStrategy covers string-valued fields; a missing value becomes the
// default or the empty string.
type textStrategy struct{}

func (textStrategy) ValidateDescriptor(Field) error { return nil }

func (textStrategy) Resolve(field Field, raw any, present bool) any {
	if present && raw != nil {
		return raw
	}
	if field.Default != nil {
		return field.Default
	}
	return ""
}

type numberStrategy struct{}

func (numberStrategy) ValidateDescriptor(field Field) error {
	if field.Default != nil {
		if _, ok := toFloat(field.Default); !ok {
			return fmt.Errorf("%w: %s default is not a number", ErrInvalidField, field.ID)
		}
	}
	return nil
}

func (numberStrategy) Resolve(field Field, raw any, present bool) any {
	if present {
		if number, ok := toFloat(raw); ok {
			return number
		}
	}
	if number, ok := toFloat(field.Default); ok {
		return number
	}
	return nil
}

type rangeStrategy struct{}

func (rangeStrategy) ValidateDescriptor(field Field) error {
	if field.Min == nil || field.Max == nil {
		return fmt.Errorf("%w: range %s requires min and max", ErrInvalidField, field.ID)
	}
	if *field.Min >= *field.Max {
		return fmt.Errorf("%w: range %s min must be below max", ErrInvalidField, field.ID)
	}
	if field.Step != nil && *field.Step <= 0 {
		return fmt.Errorf("%w: range %s step must be positive", ErrInvalidField, field.ID)
	}
	return nil
}

func (rangeStrategy) Resolve(field Field, raw any, present bool) any {
	value, ok := toFloat(raw)
	if !present || !ok {
		value, ok = toFloat(field.Default)
		if !ok {
			if field.Min == nil {
				return nil
			}
			value = *field.Min
		}
	}
	if field.Min != nil {
		value = math.Max(value, *field.Min)
	}
	if field.Max != nil {
		value = math.Min(value, *field.Max)
	}
	return value
}

type checkboxStrategy struct{}

func (checkboxStrategy) ValidateDescriptor(field Field) error {
	if field.Default != nil {
		if _, ok := toBool(field.Default); !ok {
			return fmt.Errorf("%w: checkbox %s default is not a boolean", ErrInvalidField, field.ID)
		}
	}
	return nil
}

func (checkboxStrategy) Resolve(field Field, raw any, present bool) any {
	if present {
		if value, ok := toBool(raw); ok {
			return value
		}
	}
	if value, ok := toBool(field.Default); ok {
		return value
	}
	return false
}

// choiceStrategy covers select and radio: values outside the declared
// options fall back to the default.
type choiceStrategy struct{}

func (choiceStrategy) ValidateDescriptor(field Field) error {
	if len(field.Options) == 0 {
		return fmt.Errorf("%w: %s %s requires options", ErrInvalidField, field.Type, field.ID)
	}
	if field.Default != nil && !hasOption(field, field.Default) {
		return fmt.Errorf("%w: %s default is not one of its options", ErrInvalidField, field.ID)
	}
	return nil
}

func (choiceStrategy) Resolve(field Field, raw any, present bool) any {
	if present && hasOption(field, raw) {
		return raw
	}
	if field.Default != nil {
		return field.Default
	}
	if len(field.Options) > 0 {
		return field.Options[0].Value
	}
	return nil
}

func hasOption(field Field, value any) bool {
	want := fmt.Sprint(value)
	for _, option := range field.Options {
		if fmt.Sprint(option.Value) == want {
			return true
		}
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(typed), "px")
		f, err := strconv.ParseFloat(trimmed, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toBool(value any) (bool, bool) {
	switch typed := value.(type) {
	case bool:
		return typed, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return parsed, err == nil
	default:
		return false, false
	}
}
