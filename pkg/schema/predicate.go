package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/schema/expr"
)

type predicateKind uint8

const (
	predicateUnset predicateKind = iota
	predicateLiteral
	predicateComputed
	predicateExpr
)

// Predicate is a boolean field option that is either a literal, a Go function
// of the model, or a rule expression from a schema document. The zero value
// is unset and evaluates to the caller's default.
type Predicate struct {
	kind    predicateKind
	literal bool
	fn      func(*model.Model) bool
	program *expr.Program
}

// Literal returns a constant predicate.
func Literal(v bool) Predicate {
	return Predicate{kind: predicateLiteral, literal: v}
}

// Computed returns a predicate evaluated against the model.
func Computed(fn func(*model.Model) bool) Predicate {
	if fn == nil {
		return Predicate{}
	}
	return Predicate{kind: predicateComputed, fn: fn}
}

// Expr compiles rule into a predicate.
func Expr(rule string) (Predicate, error) {
	prog, err := expr.Compile(rule)
	if err != nil {
		return Predicate{}, fmt.Errorf("schema: predicate %q: %w", rule, err)
	}
	return Predicate{kind: predicateExpr, program: prog}, nil
}

// MustExpr panics when rule does not compile.
func MustExpr(rule string) Predicate {
	p, err := Expr(rule)
	if err != nil {
		panic(err)
	}
	return p
}

// IsSet reports whether the predicate carries a value.
func (p Predicate) IsSet() bool {
	return p.kind != predicateUnset
}

// IsZero lets yaml omitempty skip unset predicates.
func (p Predicate) IsZero() bool {
	return !p.IsSet()
}

// IsLiteral reports whether the predicate is a constant, returning it.
func (p Predicate) IsLiteral() (bool, bool) {
	return p.literal, p.kind == predicateLiteral
}

// Eval evaluates the predicate for m. Unset predicates return def; rule
// evaluation errors fall back to def as well.
func (p Predicate) Eval(m *model.Model, def bool) bool {
	switch p.kind {
	case predicateLiteral:
		return p.literal
	case predicateComputed:
		return p.fn(m)
	case predicateExpr:
		var scope expr.Scope
		if m != nil {
			scope = m
		}
		ok, err := p.program.Eval(scope)
		if err != nil {
			return def
		}
		return ok
	default:
		return def
	}
}

// Not returns the negation of p. Unset stays unset.
func (p Predicate) Not() Predicate {
	switch p.kind {
	case predicateLiteral:
		return Literal(!p.literal)
	case predicateUnset:
		return p
	default:
		inner := p
		return Computed(func(m *model.Model) bool { return !inner.Eval(m, false) })
	}
}

// String renders the predicate for diagnostics.
func (p Predicate) String() string {
	switch p.kind {
	case predicateLiteral:
		return fmt.Sprint(p.literal)
	case predicateComputed:
		return "<func>"
	case predicateExpr:
		return p.program.Source()
	default:
		return "<unset>"
	}
}

// UnmarshalJSON accepts a boolean or a rule string.
func (p *Predicate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Predicate{}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*p = Literal(b)
		return nil
	}
	var rule string
	if err := json.Unmarshal(data, &rule); err != nil {
		return fmt.Errorf("schema: predicate must be a boolean or a rule string")
	}
	parsed, err := Expr(rule)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON writes literals as booleans and rules as strings. Computed
// predicates cannot be serialised and are written as null.
func (p Predicate) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case predicateLiteral:
		return json.Marshal(p.literal)
	case predicateExpr:
		return json.Marshal(p.program.Source())
	default:
		return []byte("null"), nil
	}
}

// UnmarshalYAML accepts a boolean or a rule string.
func (p *Predicate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("schema: line %d: predicate must be a boolean or a rule string", node.Line)
	}
	if node.Tag == "!!null" {
		*p = Predicate{}
		return nil
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*p = Literal(b)
		return nil
	}
	parsed, err := Expr(node.Value)
	if err != nil {
		return fmt.Errorf("schema: line %d: %w", node.Line, err)
	}
	*p = parsed
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (p Predicate) MarshalYAML() (any, error) {
	switch p.kind {
	case predicateLiteral:
		return p.literal, nil
	case predicateExpr:
		return p.program.Source(), nil
	default:
		return nil, nil
	}
}
