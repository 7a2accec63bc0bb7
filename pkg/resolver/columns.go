package resolver

import (
	"sort"
	"strings"

	"github.com/goliatone/go-adminform/pkg/node"
	"github.com/goliatone/go-adminform/pkg/schema"
)

// Column is a grid column derived from a child schema field.
type Column struct {
	Field    Field
	Priority int
	// HeaderClasses combines the field's cell header classes with classes
	// from the column directive.
	HeaderClasses string
}

// GridColumns resolves the child schema of a grid in mode and orders its
// cell-capable fields according to cols. It also returns the resolved groups
// used for the row edit forms.
//
// Without a directive every cell field is a column in declaration order. A
// name list keeps only the listed fields, in list order. A configured
// directive keeps only configured, non-hidden fields; entries with an index
// pin their position and the rest follow their key order.
func (r *Resolver) GridColumns(info node.ContextInfo, mt *schema.ModelType, mode schema.Mode, cols schema.Columns) ([]Column, []Group) {
	groups := r.Resolve(Request{Info: info, Type: mt, Mode: mode, NoSQL: true})

	var (
		columns []Column
		idx     int
	)
	for _, group := range groups {
		for _, f := range group.Fields {
			if f.Cell == "" {
				continue
			}
			col := Column{Field: f, HeaderClasses: strings.TrimSpace(f.CellHeaderClasses)}

			switch cols.Kind {
			case schema.ColumnsOrdered:
				col.Priority = cols.IndexOf(f.Name)
			case schema.ColumnsConfigured:
				col.Priority, idx = configuredPriority(cols, f.Name, idx)
				if cfg, ok := cols.Lookup(f.Name); ok && !cfg.Hidden && cfg.Class != "" {
					col.HeaderClasses = strings.TrimSpace(col.HeaderClasses + " " + cfg.Class)
				}
			default:
				col.Priority = idx
				idx++
			}

			if col.Priority != -1 {
				columns = append(columns, col)
			}
		}
	}

	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].Priority < columns[j].Priority
	})
	return columns, groups
}

func configuredPriority(cols schema.Columns, name string, idx int) (int, int) {
	cfg, ok := cols.Lookup(name)
	if !ok || cfg.Hidden {
		return -1, idx
	}
	if cfg.Index != nil {
		pinned := *cfg.Index
		if idx > pinned {
			idx++
		} else {
			idx = pinned
		}
		return pinned, idx
	}
	pos := cols.IndexOf(name)
	if pos > idx {
		idx = pos
	}
	priority := idx
	return priority, idx + 1
}
