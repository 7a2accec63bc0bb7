package themes

import (
	"fmt"
	"io/fs"
	"path"
	"sort"

	theme "github.com/goliatone/go-theme"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest name looked up in each theme directory.
const ManifestFile = "theme.yaml"

type manifestDoc struct {
	Name      string                `yaml:"name"`
	Version   string                `yaml:"version"`
	Tokens    map[string]string     `yaml:"tokens"`
	Templates map[string]string     `yaml:"templates"`
	Assets    assetsDoc             `yaml:"assets"`
	Variants  map[string]variantDoc `yaml:"variants"`
}

type variantDoc struct {
	Tokens    map[string]string `yaml:"tokens"`
	Templates map[string]string `yaml:"templates"`
	Assets    assetsDoc         `yaml:"assets"`
}

type assetsDoc struct {
	Prefix string            `yaml:"prefix"`
	Files  map[string]string `yaml:"files"`
}

func (a assetsDoc) assets() theme.Assets {
	return theme.Assets{Prefix: a.Prefix, Files: a.Files}
}

// LoadManifests reads <dir>/theme.yaml for every top level directory of
// fsys. Template paths in a manifest are relative to fsys. A manifest
// without a name takes its directory name.
func LoadManifests(fsys fs.FS) ([]*theme.Manifest, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("themes: read dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*theme.Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := path.Join(entry.Name(), ManifestFile)
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			continue
		}
		var doc manifestDoc
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("themes: parse %s: %w", name, err)
		}
		if doc.Name == "" {
			doc.Name = entry.Name()
		}
		m := &theme.Manifest{
			Name:      doc.Name,
			Version:   doc.Version,
			Tokens:    doc.Tokens,
			Templates: doc.Templates,
			Assets:    doc.Assets.assets(),
		}
		if len(doc.Variants) > 0 {
			m.Variants = make(map[string]theme.Variant, len(doc.Variants))
			for key, v := range doc.Variants {
				m.Variants[key] = theme.Variant{
					Tokens:    v.Tokens,
					Templates: v.Templates,
					Assets:    v.Assets.assets(),
				}
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadSelector registers every manifest of fsys on a new selector.
func LoadSelector(fsys fs.FS, defaultTheme, defaultVariant string) (*Selector, error) {
	manifests, err := LoadManifests(fsys)
	if err != nil {
		return nil, err
	}
	s := NewSelector(defaultTheme, defaultVariant)
	for _, m := range manifests {
		if err := s.Register(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}
