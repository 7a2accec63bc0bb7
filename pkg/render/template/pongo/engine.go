// Package pongo renders control templates with pongo2.
package pongo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-adminform/pkg/render/template"
)

// DefaultExtension is appended to template names without one.
const DefaultExtension = ".tpl"

// Option configures an Engine.
type Option func(*config)

type config struct {
	base      fs.FS
	overrides []fs.FS
	globals   map[string]any
}

// WithFS sets the base template set.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.base = files
	}
}

// WithOverrides registers template sets consulted, in order, before the base
// set. Themes replace single control partials this way.
func WithOverrides(files ...fs.FS) Option {
	return func(cfg *config) {
		for _, f := range files {
			if f != nil {
				cfg.overrides = append(cfg.overrides, f)
			}
		}
	}
}

// WithGlobals seeds values every template sees.
func WithGlobals(data map[string]any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globals[key] = value
		}
	}
}

// Engine is a template.TemplateRenderer over a pongo2 template set. Parsed
// templates are cached per name.
type Engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New builds an Engine. A base template set is required.
func New(options ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.base == nil {
		return nil, errors.New("pongo: template fs is required")
	}

	loaders := make([]pongo2.TemplateLoader, 0, len(cfg.overrides)+1)
	for _, override := range cfg.overrides {
		loaders = append(loaders, pongo2.NewFSLoader(override))
	}
	loaders = append(loaders, pongo2.NewFSLoader(cfg.base))

	registerFilters()
	e := &Engine{
		set:       pongo2.NewSet("adminform", loaders...),
		templates: make(map[string]*pongo2.Template),
	}
	if err := e.GlobalContext(cfg.globals); err != nil {
		return nil, err
	}
	return e, nil
}

// RenderTemplate executes the named template.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if !strings.HasSuffix(name, DefaultExtension) {
		name += DefaultExtension
	}
	tmpl, err := e.lookup(name)
	if err != nil {
		return "", err
	}
	rendered, err := e.execute(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("pongo: execute %q: %w", name, err)
	}
	return rendered, copyTo(rendered, out)
}

// RenderString parses and executes content.
func (e *Engine) RenderString(content string, data any, out ...io.Writer) (string, error) {
	tmpl, err := e.set.FromString(content)
	if err != nil {
		return "", fmt.Errorf("pongo: parse template string: %w", err)
	}
	rendered, err := e.execute(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("pongo: execute template string: %w", err)
	}
	return rendered, copyTo(rendered, out)
}

// GlobalContext merges data into the set globals.
func (e *Engine) GlobalContext(data any) error {
	if data == nil {
		return nil
	}
	ctx, err := toContext(data)
	if err != nil {
		return fmt.Errorf("pongo: globals: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set.Globals == nil {
		e.set.Globals = make(pongo2.Context)
	}
	e.set.Globals.Update(ctx)
	return nil
}

func (e *Engine) lookup(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.templates[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("pongo: load %q: %w", name, err)
	}
	e.templates[name] = tmpl
	return tmpl, nil
}

func (e *Engine) execute(tmpl *pongo2.Template, data any) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(ctx, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func copyTo(rendered string, out []io.Writer) error {
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return err
		}
	}
	return nil
}

// toContext accepts maps as they are; anything else goes through its JSON
// form so templates address fields by their JSON names.
func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return v, nil
	case map[string]any:
		return pongo2.Context(v), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode template data: %w", err)
	}
	out := pongo2.Context{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("template data must encode as an object: %w", err)
	}
	return out, nil
}

var registerOnce sync.Once

// registerFilters installs the filters control templates use. pongo2
// filters are process wide.
func registerFilters() {
	registerOnce.Do(func() {
		if !pongo2.FilterExists("classes") {
			_ = pongo2.RegisterFilter("classes", filterClasses)
		}
	})
}

// filterClasses joins a class list after the optional parameter, dropping
// blanks: {{ extraClasses|classes:"form-control" }}.
func filterClasses(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	var parts []string
	if param != nil && !param.IsNil() {
		parts = append(parts, strings.Fields(param.String())...)
	}
	switch {
	case in == nil || in.IsNil():
	case in.IsString():
		parts = append(parts, strings.Fields(in.String())...)
	case in.CanSlice():
		in.Iterate(func(_, _ int, item, _ *pongo2.Value) bool {
			parts = append(parts, strings.Fields(item.String())...)
			return true
		}, func() {})
	default:
		parts = append(parts, strings.Fields(in.String())...)
	}
	return pongo2.AsValue(strings.Join(parts, " ")), nil
}
