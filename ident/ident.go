// Package ident implements the branded identifiers and byte-precise spans
// shared by every phase of the template analysis pipeline: SourceFileId,
// SourceSpan, Origin/Provenance, and the NodeId/FrameId/ExprId/TemplateId
// families.
package ident

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SourceFileId is a canonical identifier for a source file. Two different
// string paths referring to the same file on a case-insensitive filesystem
// MUST produce the same id.
type SourceFileId string

// NewSourceFileId canonicalizes path into a SourceFileId: cleaned and
// lowercased, matching the behavior of case-insensitive filesystems (the
// common case for template projects shipped alongside case-sensitive
// source control).
func NewSourceFileId(path string) SourceFileId {
	clean := filepath.Clean(path)
	return SourceFileId(strings.ToLower(filepath.ToSlash(clean)))
}

func (id SourceFileId) String() string { return string(id) }

// SourceSpan is a byte range into a single source file. Start <= End always
// holds for a well-formed span.
type SourceSpan struct {
	File  SourceFileId
	Start uint32
	End   uint32
}

// IsZero reports whether the span carries no location information.
func (s SourceSpan) IsZero() bool {
	return s.File == "" && s.Start == 0 && s.End == 0
}

// Len returns the span's byte length.
func (s SourceSpan) Len() uint32 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Slice returns the span's bytes out of source, which must be the full
// contents of the file identified by s.File.
func (s SourceSpan) Slice(source string) string {
	if int(s.End) > len(source) || s.Start > s.End {
		return ""
	}
	return source[s.Start:s.End]
}

func (s SourceSpan) String() string {
	return fmt.Sprintf("%s:%d-%d", s.File, s.Start, s.End)
}

// OriginKind tags the three ways a value's location can be known.
type OriginKind int

const (
	// OriginAuthored marks a value taken directly from user-written source.
	OriginAuthored OriginKind = iota
	// OriginSynthetic marks a value fabricated by a phase with no
	// corresponding authored text (e.g. a wrapper template for a lifted
	// controller).
	OriginSynthetic
	// OriginInferred marks a value derived from authored text but not
	// literally equal to any span of it (e.g. a fallback property name).
	OriginInferred
)

func (k OriginKind) String() string {
	switch k {
	case OriginAuthored:
		return "authored"
	case OriginSynthetic:
		return "synthetic"
	case OriginInferred:
		return "inferred"
	default:
		return "unknown"
	}
}

// TraceStep records one phase's fingerprint on a value's Origin as it moves
// through the pipeline, e.g. "lower.liftController" or "link.normalizeAttr".
type TraceStep struct {
	By   string
	Span *SourceSpan
}

// Origin is the tagged union of where a value came from. Exactly one of the
// three shapes applies per Kind; DerivedFrom is only set for
// Synthetic/Inferred origins, while Description may be set for any Kind.
type Origin struct {
	Kind        OriginKind
	Span        SourceSpan
	Description string
	DerivedFrom *SourceSpan
	Trace       []TraceStep
}

// Authored constructs an authored Origin with an optional human description.
func Authored(span SourceSpan, description string) Origin {
	return Origin{Kind: OriginAuthored, Span: span, Description: description}
}

// Synthetic constructs a synthetic Origin. span is optional (zero value
// when there is truly nothing to point at).
func Synthetic(description string, span SourceSpan, derivedFrom *SourceSpan) Origin {
	return Origin{Kind: OriginSynthetic, Span: span, Description: description, DerivedFrom: derivedFrom}
}

// Inferred constructs an inferred Origin.
func Inferred(description string, span SourceSpan, derivedFrom *SourceSpan) Origin {
	return Origin{Kind: OriginInferred, Span: span, Description: description, DerivedFrom: derivedFrom}
}

// WithTrace appends a TraceStep and returns the updated Origin. Origin
// values are small and copied by value throughout the pipeline, so chained
// appends never alias a shared backing array across phases.
func (o Origin) WithTrace(by string, span *SourceSpan) Origin {
	trace := make([]TraceStep, len(o.Trace), len(o.Trace)+1)
	copy(trace, o.Trace)
	o.Trace = append(trace, TraceStep{By: by, Span: span})
	return o
}

// Provenance pairs an optional Origin with a fallback span used when no
// Origin is recorded.
type Provenance struct {
	Origin       *Origin
	FallbackSpan *SourceSpan
}

// Span resolves the span to report for diagnostics and tooling: the
// origin's span takes precedence, then the fallback.
func (p Provenance) Span() SourceSpan {
	if p.Origin != nil && !p.Origin.Span.IsZero() {
		return p.Origin.Span
	}
	if p.FallbackSpan != nil {
		return *p.FallbackSpan
	}
	return SourceSpan{}
}

// ExprId identifies one expression occurrence within a single compilation.
// Assignment is deterministic: a stable hash over (file, start, end, code).
type ExprId uint64

// FrameId identifies a scope frame. Ids are dense per template, starting at
// zero for the root frame.
type FrameId uint32

// TemplateId identifies one TemplateIR value within a compilation (the root
// template or a controller/branch/projection's nested definition).
type TemplateId uint32

// NodeId is a hierarchical identifier for a DOM node. Children append
// "/<index>" to the parent id; text nodes append "#text@<index>"; comments
// append "#comment@<index>". Ids are stable and deterministic for the same
// input.
type NodeId string

// RootNodeId is the id of a template's DOM root.
const RootNodeId NodeId = ""

// Child returns the id of the index-th element child of id.
func (id NodeId) Child(index int) NodeId {
	return NodeId(fmt.Sprintf("%s/%d", id, index))
}

// TextChild returns the id of the index-th text-node child of id.
func (id NodeId) TextChild(index int) NodeId {
	return NodeId(fmt.Sprintf("%s#text@%d", id, index))
}

// CommentChild returns the id of the index-th comment-node child of id.
func (id NodeId) CommentChild(index int) NodeId {
	return NodeId(fmt.Sprintf("%s#comment@%d", id, index))
}

// NewExprId derives a deterministic id for an expression occurrence from
// its file, byte range, and code text. Using an FNV-1a hash over all four
// fields means two occurrences of the same code at different spans (or the
// same span across recompiles of the same file) always disagree or agree
// exactly as required.
func NewExprId(file SourceFileId, start, end uint32, code string) ExprId {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211

	h := uint64(offset64)
	write := func(s string) {
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= prime64
		}
	}
	write(string(file))
	write(fmt.Sprintf("%d:%d", start, end))
	write(code)
	return ExprId(h)
}
