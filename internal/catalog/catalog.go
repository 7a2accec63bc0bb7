// Package catalog bundles the node catalog shipped with the binary.
package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/goliatone/go-adminform/pkg/schema"
	"github.com/goliatone/go-adminform/pkg/schema/openapi"
)

//go:embed nodes/*.yaml
var nodes embed.FS

var (
	once    sync.Once
	bundled *schema.Catalog
	loadErr error
)

// FS exposes the bundled catalog documents.
func FS() fs.FS {
	sub, err := fs.Sub(nodes, "nodes")
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded nodes: %v", err))
	}
	return sub
}

// Bundled returns the parsed bundled catalog. Callers must not mutate it.
func Bundled() (*schema.Catalog, error) {
	once.Do(func() {
		bundled, loadErr = schema.LoadFS(FS())
	})
	return bundled, loadErr
}

// Load parses the bundled catalog merged with the documents below dir. An
// empty dir yields a fresh copy of the bundled catalog alone.
func Load(dir string) (*schema.Catalog, error) {
	out, err := schema.LoadFS(FS())
	if err != nil {
		return nil, fmt.Errorf("catalog: bundled: %w", err)
	}
	if dir == "" {
		return out, nil
	}
	extra, err := schema.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", dir, err)
	}
	if err := out.Merge(extra); err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", dir, err)
	}
	if err := out.Link(); err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", dir, err)
	}
	return out, nil
}

// Import merges the component schemas of the OpenAPI documents at paths into
// c and relinks it.
func Import(ctx context.Context, c *schema.Catalog, logger *slog.Logger, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	im := openapi.NewImporter(openapi.WithLogger(logger))
	for _, path := range paths {
		extra, err := im.ImportFile(ctx, path)
		if err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
		if err := c.Merge(extra); err != nil {
			return fmt.Errorf("catalog: %s: %w", path, err)
		}
	}
	if err := c.Link(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}
