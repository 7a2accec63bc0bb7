package themes

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestLoadSelectorReadsThemeDirectories(t *testing.T) {
	fsys := fstest.MapFS{
		"acme/theme.yaml": {Data: []byte(`
name: acme
version: "1.0.0"
tokens:
  brand: "#123456"
templates:
  controls.integer: acme/integer.tpl
assets:
  prefix: /assets/themes/acme
  files:
    stylesheet: theme.css
variants:
  dark:
    tokens:
      brand: "#654321"
`)},
		"plain/theme.yaml": {Data: []byte("tokens:\n  brand: \"#000\"\n")},
		"notes/readme.md":  {Data: []byte("no manifest")},
		"stray.yaml":       {Data: []byte("name: stray")},
	}

	s, err := LoadSelector(fsys, "acme", "dark")
	if err != nil {
		t.Fatalf("LoadSelector: %v", err)
	}
	if diff := cmp.Diff([]string{"acme", "plain"}, s.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}

	sel, err := s.Select("", "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	cfg := RendererConfig(sel, nil)
	if cfg.Tokens["brand"] != "#654321" {
		t.Fatalf("brand = %q", cfg.Tokens["brand"])
	}
	if cfg.Partials["controls.integer"] != "acme/integer.tpl" {
		t.Fatalf("partials = %v", cfg.Partials)
	}
	if got := cfg.AssetURL("stylesheet"); got != "/assets/themes/acme/theme.css" {
		t.Fatalf("stylesheet = %q", got)
	}

	if _, err := s.Select("missing", ""); !errors.Is(err, ErrUnknownTheme) {
		t.Fatalf("expected ErrUnknownTheme, got %v", err)
	}
}

func TestLoadManifestsRejectsBrokenYAML(t *testing.T) {
	fsys := fstest.MapFS{"bad/theme.yaml": {Data: []byte("tokens: [")}}
	if _, err := LoadManifests(fsys); err == nil {
		t.Fatal("expected parse error")
	}
}
