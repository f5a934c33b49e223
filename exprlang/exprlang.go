// Package exprlang is the reference implementation of the spec's
// Expression Parser external collaborator (spec 2 component C, 6.1). It
// wraps github.com/expr-lang/expr the way chtml/expr.go wraps it for the
// teacher's CHTML templates, but exposes only the opaque AST + visitor
// surface the core is allowed to depend on (spec 9, design note
// "Expression parsing is a contract, not a library dependency").
package exprlang

import (
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Kind is the parse context passed alongside source code, matching the
// ctx.kind values the spec's inbound interface names in 6.1.
type Kind int

const (
	KindNone Kind = iota
	KindIsAssign
	KindIsIterator
	KindInterpolation
	KindBindingBehavior
	KindPrimary
)

// AST is the opaque parse result. Callers outside this package reach its
// contents through the methods below: IsBad/BadMessage for error
// detection, and ValueConverters/BindingBehaviors for the converter and
// behavior names of a binding chain. Node returns the underlying expr-lang
// node; no other package in this module calls it.
type AST struct {
	node       ast.Node
	bad        bool
	msg        string
	converters []NameRef
	behaviors  []NameRef
}

// NameRef is one value-converter or binding-behavior name referenced by a
// "primary | converter & behavior" binding chain (spec 6.3 AU0101/AU0103).
// Start is the byte offset of the name within the code string Parse was
// given, not an absolute source position; callers combine it with the
// ExprRef's own span to recover one.
type NameRef struct {
	Name  string
	Start int
}

// ValueConverters returns every "| name" segment's name, in authored order.
func (a *AST) ValueConverters() []NameRef { return a.converters }

// BindingBehaviors returns every "& name" segment's name, in authored order.
func (a *AST) BindingBehaviors() []NameRef { return a.behaviors }

// IsBad reports whether parsing failed; callers surface AU1203 in that case
// rather than treating the AST as valid.
func (a *AST) IsBad() bool { return a.bad }

// BadMessage is the parse failure message, valid only when IsBad is true.
func (a *AST) BadMessage() string { return a.msg }

// badAST builds the BadExpression marker node the spec requires instead of
// propagating a Go error: "MUST return a BadExpression node with a message
// and span on failure instead of throwing" (spec 6.1).
func badAST(msg string) *AST {
	return &AST{bad: true, msg: msg}
}

// Node exposes the underlying expr-lang AST (nil for a bad parse). No
// package in this module calls it, and no other package in this module
// imports expr-lang/ast directly.
func (a *AST) Node() ast.Node { return a.node }

// Parser is the contract Lower (phase 10) consumes; it never throws,
// matching spec 6.1's "MUST return a BadExpression node ... instead of
// throwing".
type Parser interface {
	Parse(code string, kind Kind) *AST
}

// DefaultParser is the expr-lang-backed reference implementation.
type DefaultParser struct{}

// NewDefaultParser returns the reference Parser implementation.
func NewDefaultParser() *DefaultParser { return &DefaultParser{} }

func (DefaultParser) Parse(code string, kind Kind) *AST {
	if code == "" {
		return &AST{node: &ast.NilNode{}}
	}
	primary, converters, behaviors := splitBindingChain(code)
	tree, err := parser.Parse(primary)
	if err != nil {
		return badAST(err.Error())
	}
	return &AST{node: tree.Node, converters: converters, behaviors: behaviors}
}

// splitBindingChain splits code on Aurelia's "value | converter & behavior"
// chain syntax before expr-lang ever sees it: a bare "|" or "&" is valid
// expr-lang syntax on its own (bitwise or/and), so expr-lang would parse a
// chain expression "successfully" but with the wrong meaning unless the
// chain is split out first. depth tracks (), [], {} nesting and quote
// tracks string-literal state so a pipe/ampersand inside a literal or a
// converter's own argument list is never mistaken for a chain separator.
// "||" and "&&" are left untouched as expr-lang's own logical operators.
func splitBindingChain(code string) (primary string, converters, behaviors []NameRef) {
	type boundary struct {
		sep   byte
		start int
	}
	var bounds []boundary
	depth := 0
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		if quote != 0 {
			if c == quote && (i == 0 || code[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '|', '&':
			if depth != 0 {
				continue
			}
			if i+1 < len(code) && code[i+1] == c {
				i++ // "||" / "&&": skip both bytes, not a chain separator
				continue
			}
			bounds = append(bounds, boundary{sep: c, start: i})
		}
	}
	if len(bounds) == 0 {
		return code, nil, nil
	}

	primary = strings.TrimSpace(code[:bounds[0].start])
	for i, b := range bounds {
		end := len(code)
		if i+1 < len(bounds) {
			end = bounds[i+1].start
		}
		body := code[b.start+1 : end]
		name, nameStart := leadingIdent(body)
		if name == "" {
			continue
		}
		ref := NameRef{Name: name, Start: b.start + 1 + nameStart}
		if b.sep == '|' {
			converters = append(converters, ref)
		} else {
			behaviors = append(behaviors, ref)
		}
	}
	return primary, converters, behaviors
}

func leadingIdent(s string) (string, int) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	return s[start:i], start
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
