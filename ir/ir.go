// Package ir defines the typed intermediate representation Lower (phase
// 10) produces: a DOM tree addressed by NodeId, instruction rows keyed by
// target node, and an expression table — grounded on chtml/node.go's
// Node/children model, generalized from a single concrete Node type into
// the DomNode tagged union the spec names (spec 3.2).
package ir

import (
	"github.com/aureliago/tplcore/exprlang"
	"github.com/aureliago/tplcore/ident"
)

// TemplateOrigin classifies why a TemplateIR exists.
type TemplateOrigin int

const (
	OriginRoot TemplateOrigin = iota
	OriginController
	OriginBranch
	OriginProjection
	OriginSynthetic
)

// TemplateIR is one compiled template definition: the root template of a
// file, or a nested definition produced when Lower lifts a controller.
type TemplateIR struct {
	ID        ident.TemplateId
	Name      string
	Origin    TemplateOrigin
	Dom       *DomNode
	Rows      []InstructionRow
	ExprTable []ExprTableEntry
	Meta      *TemplateMeta
}

// DomNodeKind tags DomNode's variant.
type DomNodeKind int

const (
	KindElement DomNodeKind = iota
	KindTemplate
	KindText
	KindComment
)

// Attribute is one authored attribute surviving into the DOM (static
// attributes only; binding attributes are lifted into instructions and
// removed from Attrs).
type Attribute struct {
	Name   string
	Value  string
	Source ident.SourceSpan
}

// DomNode is the tagged union of spec 3.2's DomNode variants. Fields not
// meaningful for a given Kind are left zero; consumers are expected to
// switch on Kind exhaustively (spec 9, "tagged unions over inheritance").
type DomNode struct {
	Kind DomNodeKind
	ID   ident.NodeId

	// Element / Template
	Tag          string // Element only
	Attrs        []Attribute
	Children     []*DomNode
	Content      *DomNode // Template only: detached fragment root holding the <template>'s own children
	StartTagSpan ident.SourceSpan
	EndTagSpan   *ident.SourceSpan
	SourceSpan   ident.SourceSpan

	// Text / Comment
	Value string
	Span  ident.SourceSpan
}

// InstructionRow groups the instructions targeting one DOM node, in
// authored order; row order is DOM document order.
type InstructionRow struct {
	Target       ident.NodeId
	Instructions []Instruction
}

// InstructionKind tags Instruction's variant (spec 3.2).
type InstructionKind int

const (
	PropertyBinding InstructionKind = iota
	AttributeBinding
	StylePropertyBinding
	ListenerBinding
	RefBinding
	TextBinding
	TranslationBinding
	SetAttribute
	SetProperty
	SetClassAttribute
	SetStyleAttribute
	IteratorBinding
	HydrateElement
	HydrateAttribute
	HydrateTemplateController
	HydrateLetElement
)

// BindingSourceKind tags BindingSource's variant.
type BindingSourceKind int

const (
	FromExprRef BindingSourceKind = iota
	FromInterpolation
)

// ExprRef is one expression occurrence: its id, its authored code, and its
// source location.
type ExprRef struct {
	ID   ident.ExprId
	Code string
	Loc  ident.SourceSpan
}

// BindingSource is either a single expression or an interpolation made of
// literal text parts interleaved with expressions.
type BindingSource struct {
	Kind  BindingSourceKind
	Expr  ExprRef   // FromExprRef
	Parts []string  // FromInterpolation: literal segments, len(Parts) == len(Exprs)+1
	Exprs []ExprRef // FromInterpolation
}

// ExprIds returns every ExprId this binding source references, in order.
func (b BindingSource) ExprIds() []ident.ExprId {
	if b.Kind == FromExprRef {
		if b.Expr.ID == 0 && b.Expr.Code == "" {
			return nil
		}
		return []ident.ExprId{b.Expr.ID}
	}
	ids := make([]ident.ExprId, 0, len(b.Exprs))
	for _, e := range b.Exprs {
		ids = append(ids, e.ID)
	}
	return ids
}

// LetBinding is one "to: from" pair inside a hydrateLetElement instruction.
type LetBinding struct {
	To   string
	From BindingSource
}

// Instruction is the authored-intent instruction union (spec 3.2). Exactly
// one group of fields is meaningful per Kind.
type Instruction struct {
	Kind   InstructionKind
	Source ident.SourceSpan

	// propertyBinding / attributeBinding / stylePropertyBinding / listenerBinding / refBinding / iteratorBinding
	To           string // authored target name(s)
	Mode         BindingModeAuthored
	From         BindingSource
	AttrName     string // attributeBinding: the raw attribute name when prefix-preserved

	// textBinding / translationBinding
	Text BindingSource

	// setAttribute / setProperty / setClassAttribute / setStyleAttribute
	StaticTo    string
	StaticValue string

	// hydrateElement / hydrateAttribute
	ElementName string
	TailFroms   []Instruction // nested property bindings on a custom element/attribute

	// hydrateTemplateController
	ControllerName string
	Def            *TemplateIR
	BranchAlias    string // then/catch: the authored local alias for the resolved/rejected value, not an expression
	IterValue      string // repeat: the declared value identifier, e.g. "item" in "item of items"
	IterKey        string // repeat: the declared key/index identifier, "" when not authored

	// hydrateLetElement
	LetBindings       []LetBinding
	ToBindingContext  bool
}

// BindingModeAuthored is the authored binding-mode token; "default" means
// no explicit mode was authored and Link must compute the effective mode.
type BindingModeAuthored int

const (
	AuthoredDefault BindingModeAuthored = iota
	AuthoredToView
	AuthoredFromView
	AuthoredTwoWay
	AuthoredOneTime
)

// ExpressionKind tags an ExprTableEntry's syntactic role.
type ExpressionKind int

const (
	IsAssign ExpressionKind = iota
	IsIterator
	Interpolation
	BadExpression
)

// ExprTableEntry is one entry of a TemplateIR's expression table (spec
// 3.2). Every ExprId produced during Lower appears exactly once here
// (invariant spec 3.6).
type ExprTableEntry struct {
	ID             ident.ExprId
	AST            *exprlang.AST
	ExpressionType ExpressionKind
}

// TemplateMeta is the output of Meta Extraction (component E), attached to
// the root TemplateIR of a file.
type TemplateMeta struct {
	Imports        []ImportMeta
	Bindables      []BindableMeta
	UseShadowDOM   *ShadowDOMMeta
	Containerless  bool
	Capture        bool
	Aliases        []AliasMeta
	HasSlot        bool
	RemoveRanges   []ident.SourceSpan
}

// ImportKind distinguishes <import> from <require> (spec 9, open question:
// implementations must not merge them).
type ImportKind int

const (
	ImportKindImport ImportKind = iota
	ImportKindRequire
)

// Located pairs a value with the span it was authored at.
type Located[T any] struct {
	Value T
	Loc   ident.SourceSpan
}

// NamedAlias is one "ExportName.as=alias" entry on an <import>.
type NamedAlias struct {
	ExportName Located[string]
	Alias      Located[string]
}

// ImportMeta is one <import>/<require> meta entry.
type ImportMeta struct {
	Kind         ImportKind
	From         Located[string]
	NamedAliases []NamedAlias
	Span         ident.SourceSpan
}

// BindableMeta is one <bindable> meta entry (or one name out of a
// <template bindable="a, b"> list — spec 9 chooses two distinct entries
// sharing one span over a single name-list entry).
type BindableMeta struct {
	Name Located[string]
	Mode BindingModeAuthored
	Span ident.SourceSpan
}

// ShadowDOMMeta is the <use-shadow-dom> meta entry.
type ShadowDOMMeta struct {
	Mode string // "open" | "closed", "" means default
	Span ident.SourceSpan
}

// AliasMeta is one name out of an <alias name="a, b, c"> meta entry; each
// name gets its own trimmed span even though they share one attribute.
type AliasMeta struct {
	Name Located[string]
}
