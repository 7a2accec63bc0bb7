// Package expr compiles the small predicate language accepted by declarative
// schema documents for visible/disabled/required/editable/canAdd/... rules.
//
// Supported forms:
//   - truthiness: `is_sys_obj`, `!is_sys_obj`
//   - comparisons: `name == "public"`, `oid != null`, `port >= 1024`
//   - composition: `a && (b || c)`
//
// Identifiers are dot paths resolved through a Scope, which a model satisfies.
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Scope resolves identifiers at evaluation time.
type Scope interface {
	Lookup(path string) (any, bool)
}

// Values adapts a plain map into a Scope. Exact dotted keys win over nested
// traversal.
type Values map[string]any

// Lookup implements Scope.
func (v Values) Lookup(path string) (any, bool) {
	return lookupMap(v, path)
}

// Program is a compiled predicate.
type Program struct {
	source string
	root   node
}

// Source returns the rule text the program was compiled from.
func (p *Program) Source() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Compile parses rule. An empty rule compiles to a program that evaluates to
// true.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	prog := &Program{source: trimmed}
	if trimmed == "" {
		return prog, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return prog, nil
	}
	root, err := parseExpression(tokens)
	if err != nil {
		return nil, err
	}
	prog.root = root
	return prog, nil
}

// MustCompile panics when rule does not compile.
func MustCompile(rule string) *Program {
	prog, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return prog
}

// Eval runs the program against scope. A nil scope behaves as empty.
func (p *Program) Eval(scope Scope) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	if scope == nil {
		scope = Values(nil)
	}
	return p.root.eval(scope)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func isBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '&', '|', '<', '>':
		return true
	}
	return false
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peek := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	for i < len(input) {
		ch := input[i]
		switch ch {
		case ' ', '\t', '\n', '\r':
			i++
		case '(':
			i++
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
		case ')':
			i++
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
		case '!':
			i++
			if peek() == '=' {
				i++
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
		case '=':
			i++
			if peek() != '=' {
				return nil, errors.New("expr: unexpected '='; use '=='")
			}
			i++
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
		case '<', '>':
			i++
			kind, raw := tokenLt, "<"
			if ch == '>' {
				kind, raw = tokenGt, ">"
			}
			if peek() == '=' {
				i++
				kind++
				raw += "="
			}
			tokens = append(tokens, token{kind: kind, raw: raw})
		case '&':
			i++
			if peek() != '&' {
				return nil, errors.New("expr: unexpected '&'; use '&&'")
			}
			i++
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
		case '|':
			i++
			if peek() != '|' {
				return nil, errors.New("expr: unexpected '|'; use '||'")
			}
			i++
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
		case '"', '\'':
			value, next, err := readString(input, i)
			if err != nil {
				return nil, err
			}
			i = next
			tokens = append(tokens, token{kind: tokenString, raw: value})
		default:
			start := i
			for i < len(input) && !isBoundary(input[i]) {
				i++
			}
			tokens = append(tokens, classify(input[start:i]))
		}
	}
	return tokens, nil
}

func readString(input string, start int) (string, int, error) {
	quote := input[start]
	escaped := false
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[start+1 : i]
		if quote == '\'' {
			body = strings.ReplaceAll(body, `\'`, `'`)
			body = strings.ReplaceAll(body, `"`, `\"`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("expr: invalid string literal: %w", err)
		}
		return value, i + 1, nil
	}
	return "", 0, errors.New("expr: unterminated string literal")
}

func classify(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	case "null", "nil":
		return token{kind: tokenNull, raw: "null"}
	}
	if looksNumeric(raw) {
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			return token{kind: tokenNumber, raw: raw}
		}
	}
	return token{kind: tokenIdentifier, raw: raw}
}

func looksNumeric(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+' || ch == '.'
}

type node interface {
	eval(scope Scope) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(scope Scope) (bool, error) {
	ok, err := n.left.eval(scope)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(scope)
}

type andNode struct{ left, right node }

func (n andNode) eval(scope Scope) (bool, error) {
	ok, err := n.left.eval(scope)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(scope)
}

type notNode struct{ inner node }

func (n notNode) eval(scope Scope) (bool, error) {
	ok, err := n.inner.eval(scope)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct{ identifier string }

func (n truthyNode) eval(scope Scope) (bool, error) {
	value, ok := scope.Lookup(n.identifier)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

type compareNode struct {
	identifier string
	op         token
	literal    token
}

func (n compareNode) eval(scope Scope) (bool, error) {
	value, ok := scope.Lookup(n.identifier)
	if !ok {
		value = nil
	}

	switch n.literal.kind {
	case tokenNull:
		return equality(n.op, value == nil)
	case tokenBool:
		got, _ := coerceBool(value)
		return equality(n.op, got == (n.literal.raw == "true"))
	case tokenNumber:
		want, err := strconv.ParseFloat(n.literal.raw, 64)
		if err != nil {
			return false, fmt.Errorf("expr: invalid number literal %q", n.literal.raw)
		}
		got, present := coerceNumber(value)
		switch n.op.kind {
		case tokenEq, tokenNeq:
			return equality(n.op, present && got == want)
		}
		if !present {
			return false, nil
		}
		return order(n.op, compareFloat(got, want))
	default:
		got := coerceString(value)
		switch n.op.kind {
		case tokenEq, tokenNeq:
			return equality(n.op, got == n.literal.raw)
		}
		return order(n.op, strings.Compare(got, n.literal.raw))
	}
}

func equality(op token, equal bool) (bool, error) {
	switch op.kind {
	case tokenEq:
		return equal, nil
	case tokenNeq:
		return !equal, nil
	}
	return false, fmt.Errorf("expr: operator %q needs a number or string literal", op.raw)
}

func order(op token, cmp int) (bool, error) {
	switch op.kind {
	case tokenLt:
		return cmp < 0, nil
	case tokenLte:
		return cmp <= 0, nil
	case tokenGt:
		return cmp > 0, nil
	case tokenGte:
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("expr: unsupported operator %q", op.raw)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type stream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (node, error) {
	s := &stream{tokens: tokens}
	root, err := parseOr(s)
	if err != nil {
		return nil, err
	}
	if s.pos < len(s.tokens) {
		return nil, fmt.Errorf("expr: unexpected token %q", s.tokens[s.pos].raw)
	}
	return root, nil
}

func parseOr(s *stream) (node, error) {
	left, err := parseAnd(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenOr) {
		right, err := parseAnd(s)
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func parseAnd(s *stream) (node, error) {
	left, err := parseUnary(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenAnd) {
		right, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func parseUnary(s *stream) (node, error) {
	if s.match(tokenNot) {
		inner, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return parsePrimary(s)
}

func parsePrimary(s *stream) (node, error) {
	if s.match(tokenLParen) {
		inner, err := parseOr(s)
		if err != nil {
			return nil, err
		}
		if !s.match(tokenRParen) {
			return nil, errors.New("expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := s.next()
	if !ok {
		return nil, errors.New("expr: empty expression")
	}
	if ident.kind != tokenIdentifier {
		return nil, fmt.Errorf("expr: expected identifier, got %q", ident.raw)
	}

	op, ok := s.peek()
	if !ok || op.kind < tokenEq || op.kind > tokenGte {
		return truthyNode{identifier: ident.raw}, nil
	}
	s.pos++

	lit, ok := s.next()
	if !ok {
		return nil, errors.New("expr: missing literal")
	}
	switch lit.kind {
	case tokenString, tokenNumber, tokenBool, tokenNull:
	case tokenIdentifier:
		lit.kind = tokenString
	default:
		return nil, fmt.Errorf("expr: expected literal, got %q", lit.raw)
	}
	if op.kind >= tokenLt && (lit.kind == tokenBool || lit.kind == tokenNull) {
		return nil, fmt.Errorf("expr: operator %q needs a number or string literal", op.raw)
	}
	return compareNode{identifier: ident.raw, op: op, literal: lit}, nil
}

func (s *stream) match(kind tokenKind) bool {
	if tok, ok := s.peek(); ok && tok.kind == kind {
		s.pos++
		return true
	}
	return false
}

func (s *stream) peek() (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	return s.tokens[s.pos], true
}

func (s *stream) next() (token, bool) {
	tok, ok := s.peek()
	if ok {
		s.pos++
	}
	return tok, ok
}
