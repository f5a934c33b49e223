// Package attrsyntax is the reference implementation of the spec's
// Attribute Parser external collaborator (spec 2 component D, 6.1): it
// splits an authored attribute name into { target, command } and an
// authored multi-binding value into its ";"-separated, then ":"-split
// parts, with byte-precise spans for each part's expression — grounded on
// chtml/parse.go's attribute classification and chtml/attr_scanner.go's
// hand-rolled span scanner.
package attrsyntax

import (
	"strings"

	"github.com/aureliago/tplcore/ident"
)

// Recognized binding commands (spec 4.2 step 2). Values are the commands
// themselves; callers consult catalog.BindingCommand for the instruction
// kind each maps to.
var commands = map[string]bool{
	"bind": true, "to-view": true, "from-view": true, "two-way": true,
	"one-time": true, "trigger": true, "capture": true, "delegate": true,
	"ref": true, "style": true, "class": true, "attr": true, "for": true,
}

// Parsed is the result of classifying one authored attribute name.
type Parsed struct {
	Target  string // the part before the command suffix, or the whole name when there is no command
	Command string // "" when the attribute name carries no recognized command suffix
	RawName string
}

// ParseName splits "target.command" into its parts. A dot that does not
// precede a recognized command is left as part of Target (covers custom
// element/attribute names that legitimately contain dots is not a concern
// here — Aurelia attribute names never do).
func ParseName(rawName string) Parsed {
	if i := strings.LastIndexByte(rawName, '.'); i >= 0 {
		suffix := rawName[i+1:]
		if commands[suffix] {
			return Parsed{Target: rawName[:i], Command: suffix, RawName: rawName}
		}
	}
	return Parsed{Target: rawName, RawName: rawName}
}

// IsCommand reports whether name is a recognized binding command suffix.
func IsCommand(name string) bool { return commands[name] }

// MultiBindingPart is one ";"-separated, ":"-split segment of a
// multi-binding attribute value, e.g. "route.bind: currentRoute" within
// "route.bind: currentRoute; params.bind: routeParams".
type MultiBindingPart struct {
	Parsed
	Expr string
	Span ident.SourceSpan // span of Expr only, never the whole attribute value (spec 4.2 step 3)
}

// SplitMultiBinding splits value into its semicolon-delimited parts (never
// splitting inside string literals, parens, brackets, or braces), then
// each part on its first colon, trimming surrounding whitespace from both
// the name and the expression. valueSpan is the attribute value's span
// within the source file; Offset/Start in valueSpan.Start anchors the
// returned per-part spans so they point only at the trimmed inner
// expression bytes.
func SplitMultiBinding(value string, valueSpan ident.SourceSpan) []MultiBindingPart {
	var parts []MultiBindingPart
	for _, seg := range splitOutsideDelimiters(value, ';') {
		colon := indexOutsideDelimiters(seg.text, ':')
		if colon < 0 {
			continue
		}
		namePart := seg.text[:colon]
		exprPart := seg.text[colon+1:]

		nameTrimStart := leadingSpace(namePart)
		name := strings.TrimSpace(namePart)
		_ = nameTrimStart // name span is not required by the spec; only expr spans are.

		exprTrimStart := leadingSpace(exprPart)
		expr := strings.TrimSpace(exprPart)

		exprAbsStart := seg.start + colon + 1 + exprTrimStart
		span := ident.SourceSpan{
			File:  valueSpan.File,
			Start: valueSpan.Start + uint32(exprAbsStart),
			End:   valueSpan.Start + uint32(exprAbsStart+len(expr)),
		}

		parts = append(parts, MultiBindingPart{
			Parsed: ParseName(name),
			Expr:   expr,
			Span:   span,
		})
	}
	return parts
}

func leadingSpace(s string) int {
	for i, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return i
		}
	}
	return len(s)
}

type segment struct {
	text  string
	start int // byte offset of text within the original string
}

// splitOutsideDelimiters splits s on sep, ignoring occurrences inside
// quotes, parens, brackets, or braces.
func splitOutsideDelimiters(s string, sep byte) []segment {
	var segs []segment
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				segs = append(segs, segment{text: s[start:i], start: start})
				start = i + 1
			}
		}
	}
	segs = append(segs, segment{text: s[start:], start: start})
	return segs
}

// indexOutsideDelimiters returns the index of the first sep byte not
// nested inside quotes/parens/brackets/braces, or -1.
func indexOutsideDelimiters(s string, sep byte) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' && i+1 < len(s) {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
