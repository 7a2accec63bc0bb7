// Package node defines the schema node contract the form engine consumes:
// URL generation for a node type, its SQL preview capability and help
// references, plus the per-connection context the resolver gates fields on.
package node

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-adminform/pkg/schema"
)

// ServerInfo is the capability record of the connected server.
type ServerInfo struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Version int    `json:"version" yaml:"version"`
	User    string `json:"user,omitempty" yaml:"user,omitempty"`
}

// Ancestor identifies one node on the path from the tree root.
type Ancestor struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
}

// ParseAncestors reads "type:id" pairs, root first.
func ParseAncestors(raw []string) ([]Ancestor, error) {
	out := make([]Ancestor, 0, len(raw))
	for _, item := range raw {
		typ, id, ok := strings.Cut(item, ":")
		if !ok || typ == "" || id == "" {
			return nil, fmt.Errorf("node: ancestor %q must be type:id", item)
		}
		out = append(out, Ancestor{Type: typ, ID: id})
	}
	return out, nil
}

// ContextInfo is the tree context a dialog is opened in.
type ContextInfo struct {
	Server    *ServerInfo `json:"server,omitempty" yaml:"server,omitempty"`
	Ancestors []Ancestor  `json:"ancestors,omitempty" yaml:"ancestors,omitempty"`
}

// Ancestor returns the nearest ancestor of typ.
func (c ContextInfo) Ancestor(typ string) (Ancestor, bool) {
	for i := len(c.Ancestors) - 1; i >= 0; i-- {
		if c.Ancestors[i].Type == typ {
			return c.Ancestors[i], true
		}
	}
	if typ == "server" && c.Server != nil && c.Server.ID != "" {
		return Ancestor{Type: "server", ID: c.Server.ID}, true
	}
	return Ancestor{}, false
}

// HasServer reports whether capability metadata is available.
func (c ContextInfo) HasServer() bool {
	return c.Server != nil
}

// TreeData describes the tree item a dialog edits.
type TreeData struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Node is the schema node contract.
type Node interface {
	Type() string
	Label() string
	HasSQL() bool
	// GenerateURL builds the endpoint for kind ("msql", "obj", ...). When
	// existing is true the record id from data is appended.
	GenerateURL(kind string, data TreeData, existing bool, info ContextInfo) (string, error)
	Help() schema.HelpRefs
}

// Lookup resolves node types.
type Lookup interface {
	Node(typ string) (Node, bool)
}

// Set is a Lookup backed by a map. It is populated at startup and read-only
// afterwards.
type Set map[string]Node

// Node implements Lookup.
func (s Set) Node(typ string) (Node, bool) {
	n, ok := s[strings.TrimSpace(typ)]
	return n, ok
}

// Add registers n under its type.
func (s Set) Add(n Node) {
	if n != nil {
		s[n.Type()] = n
	}
}
