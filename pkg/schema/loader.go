package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type documentFile struct {
	Models map[string]modelFile `json:"models" yaml:"models"`
	Nodes  map[string]NodeSpec  `json:"nodes" yaml:"nodes"`
}

type modelFile struct {
	IDAttribute string         `json:"idAttribute" yaml:"idAttribute"`
	Defaults    map[string]any `json:"defaults" yaml:"defaults"`
	Schema      []Field        `json:"schema" yaml:"schema"`
}

// LoadFS walks fsys and parses every JSON/YAML catalog document. The result
// is linked; when fsys is nil an empty catalog is returned.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	catalog := NewCatalog()
	if fsys == nil {
		return catalog, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		doc, err := NewDocument(SourceFromFS(path), data)
		if err != nil {
			return fmt.Errorf("schema: %s: %w", path, err)
		}
		return catalog.Parse(doc)
	})
	if err != nil {
		return nil, err
	}
	if err := catalog.Link(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// LoadDir loads every catalog document below dir.
func LoadDir(dir string) (*Catalog, error) {
	return LoadFS(os.DirFS(dir))
}

// LoadFile loads and links a single catalog document from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	doc, err := NewDocument(SourceFromFile(path), data)
	if err != nil {
		return nil, err
	}
	catalog := NewCatalog()
	if err := catalog.Parse(doc); err != nil {
		return nil, err
	}
	if err := catalog.Link(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Parse adds the definitions of doc to the catalog. Call Link once every
// document has been parsed.
func (c *Catalog) Parse(doc Document) error {
	raw, err := parseDocument(doc)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(raw.Models) {
		file := raw.Models[name]
		if err := c.AddModel(&ModelType{
			Name:        name,
			IDAttribute: strings.TrimSpace(file.IDAttribute),
			Defaults:    file.Defaults,
			Schema:      file.Schema,
		}); err != nil {
			return fmt.Errorf("schema: %s: %w", doc.Location(), err)
		}
	}
	for _, typ := range sortedKeys(raw.Nodes) {
		spec := raw.Nodes[typ]
		if spec.Type == "" {
			spec.Type = typ
		}
		if spec.Type != typ {
			return fmt.Errorf("schema: %s: node key %q does not match type %q", doc.Location(), typ, spec.Type)
		}
		if err := c.AddNode(spec); err != nil {
			return fmt.Errorf("schema: %s: %w", doc.Location(), err)
		}
	}
	return nil
}

func parseDocument(doc Document) (documentFile, error) {
	var out documentFile
	data := doc.Raw()
	switch doc.Format() {
	case "json":
		if err := json.Unmarshal(data, &out); err != nil {
			return documentFile{}, fmt.Errorf("schema: parse %s: %w", doc.Location(), err)
		}
		return out, nil
	case "yaml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return documentFile{}, fmt.Errorf("schema: parse %s: %w", doc.Location(), err)
		}
		return out, nil
	}

	if err := json.Unmarshal(data, &out); err == nil {
		return out, nil
	}
	out = documentFile{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return documentFile{}, fmt.Errorf("schema: parse %s: invalid JSON or YAML: %w", doc.Location(), err)
	}
	return out, nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
