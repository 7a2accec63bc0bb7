package adminform

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-adminform/internal/catalog"
	"github.com/goliatone/go-adminform/pkg/schema"
)

// LoadCatalog returns the bundled node catalog merged with the schema
// documents below dir and the component schemas of the given OpenAPI files.
func LoadCatalog(ctx context.Context, dir string, openapi ...string) (*schema.Catalog, error) {
	c, err := catalog.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := catalog.Import(ctx, c, slog.Default(), openapi...); err != nil {
		return nil, err
	}
	return c, nil
}
