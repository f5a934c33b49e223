package exprlang

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ForOfDeclaration is the parsed left-hand side of a repeat.for header,
// e.g. "item, idx of items" -> Value="item", Key="idx". Only the
// BindingIdentifier form (plain names, optionally a value+index pair) is
// supported by this reference parser; richer destructuring patterns
// (ArrayBindingPattern/ObjectBindingPattern with defaults/rest/holes,
// named in spec 4.4) are a visitor-level extension point the spec leaves
// to the expression parser's AST, not something this reference wrapper
// needs to model to satisfy the Testable Properties (P9, Scenario 2).
type ForOfDeclaration struct {
	Value string
	Key   string // "" when no destructured index/key was authored
}

// ParseForOf parses a repeat.for attribute value "<decl> of <iterable>"
// into its declaration and iterable expression. The iterable expression is
// parsed with Parse(..., KindIsIterator); on any lexical failure the
// returned AST is a BadExpression and decl is the zero value, matching
// spec 4.2's "Repeat header failure ... produces a ForOfStatement wrapping
// a BadExpression".
func ParseForOf(s string) (decl ForOfDeclaration, iterable *AST) {
	l := &loopLexer{input: s}
	for state := lexLoop; state != nil; {
		state = state(l)
	}

	var idents []string
	var exprCode string
	var errMsg string

	for _, it := range l.items {
		switch it.typ {
		case loopItemError:
			errMsg = it.val
		case loopItemIdent:
			idents = append(idents, it.val)
		case loopItemExpr:
			exprCode = it.val
		}
	}

	if errMsg != "" {
		return ForOfDeclaration{}, badAST(errMsg)
	}

	switch len(idents) {
	case 0:
		return ForOfDeclaration{}, badAST("missing loop variable")
	case 1:
		decl = ForOfDeclaration{Value: idents[0]}
	case 2:
		decl = ForOfDeclaration{Value: idents[0], Key: idents[1]}
	default:
		return ForOfDeclaration{}, badAST(fmt.Sprintf("too many loop variables: %v", idents))
	}

	return decl, DefaultParser{}.Parse(exprCode, KindIsIterator)
}

// Adapted from the same lex.slide-style state machine as interpol.go,
// specialized for "ident[, ident] in expr" headers.

type loopItemType int

const (
	loopItemError loopItemType = iota
	loopItemEOF
	loopItemIdent
	loopItemExpr
)

type loopItem struct {
	typ loopItemType
	val string
}

type loopLexer struct {
	input string
	start int
	pos   int
	width int
	items []loopItem
}

type loopStateFn func(*loopLexer) loopStateFn

func (l *loopLexer) emit(t loopItemType) loopStateFn {
	l.items = append(l.items, loopItem{typ: t, val: l.input[l.start:l.pos]})
	l.start = l.pos
	return nil
}

func (l *loopLexer) errorf(format string, args ...any) loopStateFn {
	l.items = append(l.items, loopItem{typ: loopItemError, val: fmt.Sprintf(format, args...)})
	return nil
}

func (l *loopLexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *loopLexer) backup() { l.pos -= l.width }
func (l *loopLexer) ignore() { l.start = l.pos }

func lexLoop(l *loopLexer) loopStateFn {
	for {
		switch r := l.next(); {
		case r == eof:
			return l.errorf("missing loop body")
		case isLoopSpace(r):
			l.ignore()
		case isLoopAlphaNumeric(r):
			l.backup()
			return lexLoopIdent
		case r == ',':
			l.ignore()
		default:
			return l.errorf("bad character %#U", r)
		}
	}
}

func lexLoopIdent(l *loopLexer) loopStateFn {
	for {
		switch r := l.next(); {
		case isLoopAlphaNumeric(r):
			// absorb
		default:
			l.backup()
			word := l.input[l.start:l.pos]
			if word == "in" || word == "of" {
				l.ignore()
				return lexLoopExpr
			}
			l.emit(loopItemIdent)
			return lexLoop
		}
	}
}

func lexLoopExpr(l *loopLexer) loopStateFn {
	for r := l.next(); isLoopSpace(r); r = l.next() {
		l.ignore()
	}
	l.backup()
	l.pos = len(l.input)
	if l.pos > l.start {
		l.emit(loopItemExpr)
	}
	return l.emit(loopItemEOF)
}

func isLoopSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

func isLoopAlphaNumeric(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
