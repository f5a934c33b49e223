// Package scope implements the Bind phase (phase 30): a recursive walk over
// lowered IR (*ir.TemplateIR) that assigns every expression to a scope frame and materializes
// the locals template controllers introduce (repeat items, with's overlay,
// promise aliases) — grounded on chtml/scope.go's Scope/Spawn model and the
// parser's pushSymbols/popSymbols stack discipline, generalized from a
// single flat symbol table into the frame graph spec 3.5 names.
package scope

import (
	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/diag"
	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
)

// FrameKind tags how a Frame relates to its parent's binding context.
type FrameKind int

const (
	FrameRoot FrameKind = iota
	FrameOverlay
	FrameReuse
)

// OverlayBase is the "with"-style value a frame's bindings resolve
// unqualified names against, beyond the symbols it lists explicitly.
type OverlayBase struct {
	ValueExpr ident.ExprId
}

// ScopeSymbolKind tags ScopeSymbol's variant.
type ScopeSymbolKind int

const (
	SymbolLet ScopeSymbolKind = iota
	SymbolIteratorLocal
	SymbolIteratorContextual
	SymbolPromiseAlias
)

// ScopeSymbol is one name a frame introduces into its children's lookup.
type ScopeSymbol struct {
	Kind   ScopeSymbolKind
	Name   string
	Branch string // promiseAlias only: "then" | "catch"
}

// FrameOriginKind tags which controller produced a frame.
type FrameOriginKind int

const (
	OriginRepeat FrameOriginKind = iota
	OriginWith
	OriginPromise
)

// FrameOrigin records which controller instance produced a frame and the
// expression that drives it (the iterable for repeat, the value for with
// and promise).
type FrameOrigin struct {
	Kind FrameOriginKind
	Expr ident.ExprId
}

// Frame is one scope frame (spec 3.5).
type Frame struct {
	ID            ident.FrameId
	Parent        *ident.FrameId
	Kind          FrameKind
	Overlay       *OverlayBase
	Symbols       []ScopeSymbol
	Origin        *FrameOrigin
	LetValueExprs map[string]ident.ExprId
}

// ScopeTemplate is the frame graph for one compiled file's root template
// and every nested controller/branch def reachable from it (spec 3.5).
type ScopeTemplate struct {
	Root        ident.FrameId
	Frames      []Frame
	ExprToFrame map[ident.ExprId]ident.FrameId
}

// ScopeModule is Bind's output across every template root passed to it.
type ScopeModule struct {
	Templates   []ScopeTemplate
	Diagnostics []diag.Diagnostic
}

// Binder walks TemplateIR trees against a fixed Catalog (for controller
// config lookups, chiefly repeat's contextuals and "with"'s framing). A
// Binder is safe to reuse across compiles.
type Binder struct {
	Catalog catalog.Catalog
}

// New returns a Binder bound to cat.
func New(cat catalog.Catalog) *Binder {
	return &Binder{Catalog: cat}
}

// Bind runs phase 30 over one root TemplateIR, producing its ScopeTemplate
// and every diagnostic raised while binding it.
func (bd *Binder) Bind(root *ir.TemplateIR) (ScopeTemplate, []diag.Diagnostic) {
	var bag diag.Bag
	b := &binder{cat: bd.Catalog, bag: &bag, exprKinds: map[ident.ExprId]ir.ExpressionKind{}}
	b.collectExprKinds(root)

	rootID := b.newFrame(FrameRoot, nil)
	b.exprToFrame = map[ident.ExprId]ident.FrameId{}
	b.walkTemplate(root, rootID, true)

	return ScopeTemplate{Root: rootID, Frames: b.frames, ExprToFrame: b.exprToFrame}, bag.Sorted()
}

// BindModule runs Bind over every root in roots and aggregates the result.
func BindModule(bd *Binder, roots []*ir.TemplateIR) *ScopeModule {
	mod := &ScopeModule{}
	for _, root := range roots {
		st, diags := bd.Bind(root)
		mod.Templates = append(mod.Templates, st)
		mod.Diagnostics = append(mod.Diagnostics, diags...)
	}
	return mod
}

// binder holds one Bind call's mutable walk state.
type binder struct {
	cat         catalog.Catalog
	bag         *diag.Bag
	frames      []Frame
	exprToFrame map[ident.ExprId]ident.FrameId
	exprKinds   map[ident.ExprId]ir.ExpressionKind
	reportedBad map[ident.ExprId]bool
}

func (b *binder) collectExprKinds(t *ir.TemplateIR) {
	for _, e := range t.ExprTable {
		b.exprKinds[e.ID] = e.ExpressionType
	}
	for _, row := range t.Rows {
		for _, ins := range row.Instructions {
			b.collectNested(ins)
		}
	}
}

func (b *binder) collectNested(ins ir.Instruction) {
	for _, tail := range ins.TailFroms {
		b.collectNested(tail)
	}
	if ins.Def != nil {
		b.collectExprKinds(ins.Def)
	}
}

func (b *binder) newFrame(kind FrameKind, parent *ident.FrameId) ident.FrameId {
	id := ident.FrameId(len(b.frames))
	b.frames = append(b.frames, Frame{ID: id, Parent: parent, Kind: kind})
	return id
}

func (b *binder) frame(id ident.FrameId) *Frame { return &b.frames[id] }

// isBadHeader reports whether id names a BadExpression occurrence — these
// are excluded from exprToFrame entirely (spec 3.6's exprToFrame totality
// invariant).
func (b *binder) isBadHeader(id ident.ExprId) bool {
	return b.exprKinds[id] == ir.BadExpression
}

func (b *binder) reportBadOnce(code diag.Code, span ident.SourceSpan, id ident.ExprId, format string, args ...any) {
	if b.reportedBad == nil {
		b.reportedBad = map[ident.ExprId]bool{}
	}
	if b.reportedBad[id] {
		return
	}
	b.reportedBad[id] = true
	b.bag.Add(diag.New(code, span, format, args...))
}

// mapExprs maps every non-bad id in src into frame, reporting AU1203 once
// per bad id encountered.
func (b *binder) mapExprs(src ir.BindingSource, span ident.SourceSpan, frame ident.FrameId) {
	for _, id := range src.ExprIds() {
		if b.isBadHeader(id) {
			b.reportBadOnce(diag.CodeInvalidExpression, span, id, "invalid or unsupported expression")
			continue
		}
		b.exprToFrame[id] = frame
	}
}

// addSymbol inserts sym into frame, reporting AU1202 and skipping on a
// duplicate name within the same frame (spec 4.4's duplicate-name policy).
func (b *binder) addSymbol(frameID ident.FrameId, sym ScopeSymbol, span ident.SourceSpan) {
	f := b.frame(frameID)
	for _, existing := range f.Symbols {
		if existing.Name == sym.Name {
			b.bag.Add(diag.New(diag.CodeDuplicateLocal, span, "duplicate local %q in scope", sym.Name))
			return
		}
	}
	f.Symbols = append(f.Symbols, sym)
}

func (b *binder) walkTemplate(t *ir.TemplateIR, frame ident.FrameId, allowLets bool) {
	for _, row := range t.Rows {
		for _, ins := range row.Instructions {
			b.walkInstruction(ins, frame, allowLets)
		}
	}
}

func (b *binder) walkInstruction(ins ir.Instruction, frame ident.FrameId, allowLets bool) {
	switch ins.Kind {
	case ir.HydrateLetElement:
		for _, lb := range ins.LetBindings {
			b.mapExprs(lb.From, ins.Source, frame)
			if allowLets {
				f := b.frame(frame)
				if f.LetValueExprs == nil {
					f.LetValueExprs = map[string]ident.ExprId{}
				}
				if len(lb.From.ExprIds()) > 0 {
					f.LetValueExprs[lb.To] = lb.From.ExprIds()[0]
				}
				b.addSymbol(frame, ScopeSymbol{Kind: SymbolLet, Name: lb.To}, ins.Source)
			}
		}

	case ir.HydrateTemplateController:
		b.walkController(ins, frame, allowLets)

	case ir.HydrateAttribute:
		for _, tail := range ins.TailFroms {
			b.mapExprs(tail.From, tail.Source, frame)
		}

	default:
		b.mapExprs(ins.From, ins.Source, frame)
		b.mapExprs(ins.Text, ins.Source, frame)
	}
}

func (b *binder) walkController(ins ir.Instruction, frame ident.FrameId, allowLets bool) {
	cc, stub := b.resolveConfig(ins.ControllerName)

	// Step 1: the controller's own trigger expression evaluates in the
	// frame this instruction was reached in (the "outer" frame relative to
	// any overlay this controller is about to allocate; for a promise
	// branch that IS already the promise's overlay, since branches reuse
	// their parent's frame rather than allocating their own). A repeat
	// header's failure is reported as AU1201 instead of the generic
	// AU1203 every other bad trigger expression gets (spec 4.2, 4.4).
	if cc.Trigger.Kind == catalog.TriggerIterator {
		if id := ins.From.Expr.ID; id != 0 && b.isBadHeader(id) {
			b.reportBadOnce(diag.CodeInvalidRepeatHeader, ins.Source, id, "invalid repeat header")
		} else {
			b.exprToFrame[id] = frame
		}
	} else {
		b.mapExprs(ins.From, ins.Source, frame)
	}

	next := frame
	isOverlay := !stub && cc.Scope == catalog.ScopeOverlay
	if isOverlay {
		parent := frame
		next = b.newFrame(FrameOverlay, &parent)
	}

	if !stub {
		b.materializeSymbols(ins, cc, next)
	}

	if ins.Def != nil {
		b.walkTemplate(ins.Def, next, isOverlay)
	}
}

func (b *binder) resolveConfig(name string) (catalog.ControllerConfig, bool) {
	if cc, ok := b.cat.ControllerConfig(name); ok {
		return cc, false
	}
	return catalog.ControllerConfig{}, true
}

func (b *binder) materializeSymbols(ins ir.Instruction, cc catalog.ControllerConfig, frame ident.FrameId) {
	switch cc.Trigger.Kind {
	case catalog.TriggerIterator:
		if id := ins.From.Expr.ID; id != 0 && b.isBadHeader(id) {
			// Already reported as AU1201 in walkController; a bad header
			// materializes no locals (spec 4.4).
			return
		}
		if ins.IterValue != "" {
			b.addSymbol(frame, ScopeSymbol{Kind: SymbolIteratorLocal, Name: ins.IterValue}, ins.Source)
		}
		if ins.IterKey != "" {
			b.addSymbol(frame, ScopeSymbol{Kind: SymbolIteratorLocal, Name: ins.IterKey}, ins.Source)
		}
		for _, c := range cc.Injects.Contextuals {
			b.addSymbol(frame, ScopeSymbol{Kind: SymbolIteratorContextual, Name: c}, ins.Source)
		}
		b.frame(frame).Origin = &FrameOrigin{Kind: OriginRepeat, Expr: ins.From.Expr.ID}

	case catalog.TriggerValue:
		switch cc.Name {
		case "with":
			b.frame(frame).Overlay = &OverlayBase{ValueExpr: ins.From.Expr.ID}
			b.frame(frame).Origin = &FrameOrigin{Kind: OriginWith, Expr: ins.From.Expr.ID}
		case "promise":
			b.frame(frame).Origin = &FrameOrigin{Kind: OriginPromise, Expr: ins.From.Expr.ID}
		}

	case catalog.TriggerBranch:
		name := ins.BranchAlias
		if name == "" {
			name = ins.ControllerName
		}
		b.addSymbol(frame, ScopeSymbol{Kind: SymbolPromiseAlias, Name: name, Branch: ins.ControllerName}, ins.Source)

	case catalog.TriggerMarker:
		// else/pending/default-case: no symbols.
	}
}
