// Package themes resolves go-theme selections into control template
// overrides and template globals.
package themes

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
)

// PartialPrefix namespaces control template partials in a manifest. The
// partial "controls.integer" replaces the integer control template.
const PartialPrefix = "controls."

// ErrUnknownTheme is returned when a selector has no manifest for a name.
var ErrUnknownTheme = errors.New("themes: unknown theme")

// Selector is an in-memory theme.ThemeSelector over registered manifests.
type Selector struct {
	mu             sync.RWMutex
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

var _ theme.ThemeSelector = (*Selector)(nil)

// NewSelector returns a selector defaulting to defaultTheme/defaultVariant.
func NewSelector(defaultTheme, defaultVariant string) *Selector {
	return &Selector{
		manifests:      make(map[string]*theme.Manifest),
		defaultTheme:   strings.TrimSpace(defaultTheme),
		defaultVariant: strings.TrimSpace(defaultVariant),
	}
}

// Register adds a manifest under its name.
func (s *Selector) Register(m *theme.Manifest) error {
	if m == nil || strings.TrimSpace(m.Name) == "" {
		return errors.New("themes: manifest name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[strings.TrimSpace(m.Name)] = m
	return nil
}

// Names returns the registered theme names, sorted.
func (s *Selector) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.manifests))
	for name := range s.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the manifest for name, falling back to the defaults for
// blank arguments.
func (s *Selector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultTheme
	}
	variant = strings.TrimSpace(variant)
	if variant == "" && name == s.defaultTheme {
		variant = s.defaultVariant
	}

	s.mu.RLock()
	m, ok := s.manifests[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	if variant != "" {
		if _, ok := m.Variants[variant]; !ok {
			return nil, fmt.Errorf("themes: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: m}, nil
}

// RendererConfig flattens a selection: variant templates, tokens and assets
// win over the base manifest, and fallbacks fill partials neither declares.
// Each token also becomes a "--<token>" CSS variable.
func RendererConfig(sel *theme.Selection, fallbacks map[string]string) *theme.RendererConfig {
	if sel == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:    sel.Theme,
		Variant:  sel.Variant,
		Partials: maps.Clone(fallbacks),
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
	}
	if cfg.Partials == nil {
		cfg.Partials = map[string]string{}
	}

	prefix := ""
	files := map[string]string{}
	if m := sel.Manifest; m != nil {
		maps.Copy(cfg.Partials, m.Templates)
		maps.Copy(cfg.Tokens, m.Tokens)
		maps.Copy(files, m.Assets.Files)
		prefix = m.Assets.Prefix
		if v, ok := m.Variants[sel.Variant]; ok {
			maps.Copy(cfg.Partials, v.Templates)
			maps.Copy(cfg.Tokens, v.Tokens)
			maps.Copy(files, v.Assets.Files)
			if v.Assets.Prefix != "" {
				prefix = v.Assets.Prefix
			}
		}
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+key] = value
	}
	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
			return file
		}
		if prefix == "" {
			return file
		}
		return strings.TrimRight(prefix, "/") + "/" + file
	}
	return cfg
}

// Globals returns the template globals a theme contributes.
func Globals(cfg *theme.RendererConfig) map[string]any {
	if cfg == nil {
		return nil
	}
	return map[string]any{
		"theme": map[string]any{
			"name":    cfg.Theme,
			"variant": cfg.Variant,
			"tokens":  maps.Clone(cfg.Tokens),
			"cssVars": cssVarsStyle(cfg.CSSVars),
		},
	}
}

func cssVarsStyle(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s;", key, vars[key])
	}
	return b.String()
}

// Overrides exposes the "controls.*" partials of cfg as a template set:
// "<control>.tpl" opens the partial's file in src.
func Overrides(cfg *theme.RendererConfig, src fs.FS) (fs.FS, error) {
	if cfg == nil || src == nil {
		return nil, nil
	}
	names := make(map[string]string)
	for key, file := range cfg.Partials {
		control, ok := strings.CutPrefix(key, PartialPrefix)
		if !ok || control == "" || file == "" {
			continue
		}
		file = strings.TrimPrefix(path.Clean(file), "/")
		if _, err := fs.Stat(src, file); err != nil {
			return nil, fmt.Errorf("themes: partial %q: %w", key, err)
		}
		names[control+".tpl"] = file
	}
	if len(names) == 0 {
		return nil, nil
	}
	return partialFS{src: src, names: names}, nil
}

type partialFS struct {
	src   fs.FS
	names map[string]string
}

func (p partialFS) Open(name string) (fs.File, error) {
	file, ok := p.names[path.Clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return p.src.Open(file)
}
