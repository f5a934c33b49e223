// Package diag is the diagnostics runtime every phase from Link onward
// reports through: stable AU-prefixed codes, severities, and spans,
// grounded on chtml/err.go's ComponentError (path/span/stack shape)
// generalized from "one error per render" into "a deterministically
// ordered list collected across a whole compile".
package diag

import (
	"fmt"
	"sort"

	"github.com/aureliago/tplcore/ident"
)

// Severity classifies how a Diagnostic should be surfaced.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Code is a stable AU-prefixed diagnostic identifier (spec §6.3). Codes
// never change meaning across releases; new behavior gets a new code.
type Code string

const (
	CodeBindingBehaviorNotFound  Code = "AU0101"
	CodeValueConverterNotFound   Code = "AU0103"
	CodeElseWithoutIf            Code = "AU0810"
	CodeBranchWithoutPromise     Code = "AU0813"
	CodeCaseWithoutSwitch        Code = "AU0815"
	CodeMultipleDefaultCase      Code = "AU0816"
	CodeUnknownController       Code = "AU1101"
	CodeUnknownElement           Code = "AU1102"
	CodeUnknownEvent             Code = "AU1103"
	CodePropertyTargetNotFound   Code = "AU1104"
	CodeRepeatTailOptionUnknown  Code = "AU1106"
	CodeInvalidRepeatHeader      Code = "AU1201"
	CodeDuplicateLocal           Code = "AU1202"
	CodeInvalidExpression        Code = "AU1203"
)

// TypecheckCode formats one of the AU2001+ typecheck violation codes, one
// per coercion class (spec §6.3).
func TypecheckCode(class int) Code {
	return Code(fmt.Sprintf("AU2%03d", class))
}

// Diagnostic is one reported issue: a stable code, severity, human message,
// and the span it anchors to. It does not hold the file contents;
// SourceContext takes the source text as a parameter.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Span     ident.SourceSpan
	Origin   *ident.Origin
}

// New constructs an error-severity Diagnostic at span.
func New(code Code, span ident.SourceSpan, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityError, Message: fmt.Sprintf(format, args...), Span: span}
}

// Newf is an alias of New kept for call sites that read more naturally with
// an explicit "formatted" name; both construct the same Diagnostic.
func Newf(code Code, span ident.SourceSpan, format string, args ...any) Diagnostic {
	return New(code, span, format, args...)
}

// Warning constructs a warning-severity Diagnostic at span.
func Warning(code Code, span ident.SourceSpan, format string, args ...any) Diagnostic {
	d := New(code, span, format, args...)
	d.Severity = SeverityWarning
	return d
}

// WithOrigin attaches provenance to a Diagnostic, preferring the origin's
// own span over the one New was constructed with when present.
func (d Diagnostic) WithOrigin(o ident.Origin) Diagnostic {
	d.Origin = &o
	if !o.Span.IsZero() {
		d.Span = o.Span
	}
	return d
}

// SourceContext returns up to margin lines of context on either side of the
// diagnostic's span, taken out of source (the full text of Span.File).
// Grounded on the teacher's sourceCodeComponent idea (N lines of context
// around a span) as a static accessor rather than a renderable component.
func (d Diagnostic) SourceContext(source string, margin int) string {
	if int(d.Span.End) > len(source) {
		return ""
	}
	lineStart := func(pos int) int {
		for pos > 0 && source[pos-1] != '\n' {
			pos--
		}
		return pos
	}
	lineEnd := func(pos int) int {
		for pos < len(source) && source[pos] != '\n' {
			pos++
		}
		return pos
	}
	start := int(d.Span.Start)
	for i := 0; i < margin; i++ {
		start = lineStart(start)
		if start == 0 {
			break
		}
		start--
	}
	start = lineStart(start)
	end := int(d.Span.End)
	for i := 0; i < margin; i++ {
		end = lineEnd(end)
		if end == len(source) {
			break
		}
		end++
	}
	end = lineEnd(end)
	return source[start:end]
}

// Bag collects diagnostics across a compile, grouped by source channel
// (file), and produces a deterministic ordering: by file, then by span
// start, then by code, matching how a driver would want to print them.
type Bag struct {
	items []Diagnostic
}

// Add appends one or more diagnostics to the bag.
func (b *Bag) Add(ds ...Diagnostic) {
	b.items = append(b.items, ds...)
}

// Len reports how many diagnostics have been collected.
func (b *Bag) Len() int { return len(b.items) }

// Sorted returns a stable, deterministically ordered copy of every
// diagnostic added so far: grouped by file, then by ascending span start,
// then by code, so repeated compiles of the same input print identically.
func (b *Bag) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	sort.SliceStable(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if a.Span.File != c.Span.File {
			return a.Span.File < c.Span.File
		}
		if a.Span.Start != c.Span.Start {
			return a.Span.Start < c.Span.Start
		}
		return a.Code < c.Code
	})
	return out
}

// ByFile groups a bag's diagnostics by their span's source file, preserving
// the deterministic per-file ordering Sorted establishes.
func (b *Bag) ByFile() map[ident.SourceFileId][]Diagnostic {
	out := map[ident.SourceFileId][]Diagnostic{}
	for _, d := range b.Sorted() {
		out[d.Span.File] = append(out[d.Span.File], d)
	}
	return out
}
