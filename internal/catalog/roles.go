package catalog

import (
	"context"
	"fmt"

	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/schema"
)

// RoleLister lists the roles of the connected server.
type RoleLister func(ctx context.Context) ([]string, error)

// roleFields names the fields, per model, whose choices are server roles.
var roleFields = map[string][]string{
	"user_mapping": {"name"},
}

// BindRoles reads the server roles once and offers them after the fixed
// choices of every role name field in c. Rebinding a reloaded catalog picks
// up role changes.
func BindRoles(ctx context.Context, c *schema.Catalog, list RoleLister) error {
	roles, err := list(ctx)
	if err != nil {
		return fmt.Errorf("catalog: roles: %w", err)
	}
	for modelName, ids := range roleFields {
		mt, ok := c.Model(modelName)
		if !ok {
			continue
		}
		for _, id := range ids {
			for i := range mt.Schema {
				if mt.Schema[i].ID != id {
					continue
				}
				options := roleOptions(mt.Schema[i].Options, roles)
				mt.Schema[i].OptionsFunc = func(*model.Model) ([]schema.Option, error) {
					return options, nil
				}
			}
		}
	}
	return nil
}

func roleOptions(fixed []schema.Option, roles []string) []schema.Option {
	out := append([]schema.Option(nil), fixed...)
	seen := make(map[string]struct{}, len(fixed)+len(roles))
	for _, opt := range fixed {
		seen[fmt.Sprint(opt.Value)] = struct{}{}
	}
	for _, role := range roles {
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, schema.Option{Label: role, Value: role})
	}
	return out
}
