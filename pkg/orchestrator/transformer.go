package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/node"
)

// Transformer mutates a freshly built record before its dialog renders.
// Changes are committed, so they do not count as session changes.
type Transformer interface {
	Transform(ctx context.Context, req Request, m *model.Model) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, req Request, m *model.Model) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, req Request, m *model.Model) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, req, m)
}

// NewRecordDefaults seeds new records with the node's creation defaults,
// such as the connected user name for user mappings. Existing records and
// attributes already supplied are left alone.
func NewRecordDefaults() Transformer {
	return TransformerFunc(func(_ context.Context, req Request, m *model.Model) error {
		if !m.IsNew() {
			return nil
		}
		seeder, ok := req.Node().(interface {
			NewAttributes(info node.ContextInfo) map[string]any
		})
		if !ok {
			return nil
		}
		for key, value := range seeder.NewAttributes(req.Info) {
			if !m.Has(key) {
				m.Set(key, value, model.Silent())
			}
		}
		return nil
	})
}

// PresetTransformer applies attribute presets loaded from a JSON document:
//
//	{
//	  "user_mapping": {"name": "PUBLIC"},
//	  "*": {"comment": "seeded"}
//	}
//
// Keys are node types; "*" applies to every type. Type specific presets win.
type PresetTransformer struct {
	presets map[string]map[string]any
}

// NewPresetTransformer constructs a transformer from raw JSON bytes.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var presets map[string]map[string]any
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	return &PresetTransformer{presets: presets}, nil
}

// NewPresetTransformerFromFS loads a preset document from fsys.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform sets the matching presets onto m.
func (t *PresetTransformer) Transform(ctx context.Context, req Request, m *model.Model) error {
	if m == nil {
		return errors.New("preset transformer: model is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range []string{"*", req.Type} {
		for path, value := range t.presets[key] {
			m.Set(path, value, model.Silent())
		}
	}
	return nil
}
