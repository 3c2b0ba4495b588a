package logging

import (
	"context"

	"github.com/goliatone/go-sections/pkg/interfaces"
)

const (
	rootModule      = "sections"
	renderModule    = "sections.render"
	templatesModule = "sections.templates"
	snippetsModule  = "sections.snippets"
	httpModule      = "sections.http"
	watchModule     = "sections.watch"
)

const (
	fieldTenant      = "tenant_id"
	fieldSectionID   = "section_id"
	fieldSectionType = "section_type"
)

// ModuleLogger returns a logger for the named module, annotated with a
// `module` field. A nil provider yields the no-op logger.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// RenderLogger returns the logger used by the render engine and page renderer.
func RenderLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, renderModule)
}

// TemplatesLogger returns the logger used by the template store.
func TemplatesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, templatesModule)
}

// SnippetsLogger returns the logger used by the snippet store.
func SnippetsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, snippetsModule)
}

// HTTPLogger returns the logger used by the preview API.
func HTTPLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, httpModule)
}

// WatchLogger returns the logger used by the snippet directory watcher.
func WatchLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, watchModule)
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
