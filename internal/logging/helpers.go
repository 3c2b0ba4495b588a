package logging

import (
	"context"
	"maps"

	"github.com/goliatone/go-sections/pkg/interfaces"
)

// WithFields attaches fields when the logger implements FieldsLogger and
// returns it untouched otherwise.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}

	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		copied := make(map[string]any, len(fields))
		maps.Copy(copied, fields)
		return fieldsLogger.WithFields(copied)
	}

	return logger
}

// WithTenant annotates a logger with the tenant id, skipping blank values.
func WithTenant(logger interfaces.Logger, tenantID string) interfaces.Logger {
	if tenantID == "" {
		return logger
	}
	return WithFields(logger, map[string]any{fieldTenant: tenantID})
}

// WithSection annotates a logger with the section instance id and type.
func WithSection(logger interfaces.Logger, instanceID, sectionType string) interfaces.Logger {
	fields := map[string]any{}
	if instanceID != "" {
		fields[fieldSectionID] = instanceID
	}
	if sectionType != "" {
		fields[fieldSectionType] = sectionType
	}
	return WithFields(logger, fields)
}

// WithRequestContext binds ctx so providers can merge the fields attached
// with ContextWithFields.
func WithRequestContext(logger interfaces.Logger, ctx context.Context) interfaces.Logger {
	if logger == nil || ctx == nil {
		return logger
	}
	return logger.WithContext(ctx)
}
