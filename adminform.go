// Package adminform turns node schemas into rendered pgAdmin style property
// dialogs. The root package re-exports the orchestrator entry points.
package adminform

import (
	"context"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-adminform/pkg/orchestrator"
)

// Request describes the dialog to open.
type Request = orchestrator.Request

// Session is an open dialog bound to its record.
type Session = orchestrator.Session

// Layout selects tabs or fieldset sections.
type Layout = orchestrator.Layout

const (
	LayoutTabs     = orchestrator.LayoutTabs
	LayoutFieldset = orchestrator.LayoutFieldset
)

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// GenerateHTML opens the dialog described by req, renders it and tears it
// down. It is the simplest entry point for callers that just want markup.
func GenerateHTML(ctx context.Context, req Request, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, req)
}

// WithThemeSelector passes a go-theme selector through to the orchestrator so
// theme/variant choices are resolved per request.
func WithThemeSelector(selector theme.ThemeSelector) orchestrator.Option {
	return orchestrator.WithThemeSelector(selector)
}

// WithThemeFallbacks forwards fallback partials used when deriving renderer
// configuration from a theme selection.
func WithThemeFallbacks(fallbacks map[string]string) orchestrator.Option {
	return orchestrator.WithThemeFallbacks(fallbacks)
}
