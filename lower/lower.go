// Package lower implements Lower (spec 2 component F, 4.2): the pass that
// walks one source file's HTML and produces a typed TemplateIR, delegating
// to attrsyntax for attribute-name/value splitting, exprlang for expression
// and loop-header parsing, meta for meta-tag extraction, and catalog for
// template-controller recognition.
//
// The tree builder here is deliberately simpler than chtml/parse.go's full
// HTML5 insertion-mode algorithm (table foster-parenting, formatting-element
// reconstruction, and friends): authored component templates are
// well-formed markup, not arbitrary browser-quirks HTML, so a single
// tokenizer-driven recursive-descent pass covers the domain
// this package compiles (see DESIGN.md).
package lower

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/aureliago/tplcore/attrsyntax"
	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/exprlang"
	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
	"github.com/aureliago/tplcore/meta"
)

// voidElements never have an end tag or children, mirroring HTML5's void
// element list (x/net/html does not export one).
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Lowerer holds Lower's external collaborators: the semantics catalog it
// consults to recognize template controllers, and the expression parser it
// hands authored code to.
type Lowerer struct {
	Catalog catalog.Catalog
	Parser  exprlang.Parser
}

// New returns a Lowerer. A nil parser defaults to exprlang.NewDefaultParser.
func New(cat catalog.Catalog, parser exprlang.Parser) *Lowerer {
	if parser == nil {
		parser = exprlang.NewDefaultParser()
	}
	return &Lowerer{Catalog: cat, Parser: parser}
}

// templateBuilder accumulates one TemplateIR's rows and expression table as
// buildCtx walks the tokens belonging to it. Every TemplateIR (root, or a
// nested controller/branch def) gets its own templateBuilder and its own
// idAllocator, since NodeIds are only dense and stable within one template.
type templateBuilder struct {
	alloc     *idAllocator
	rows      []ir.InstructionRow
	exprTable []ir.ExprTableEntry
}

// rawAttr is one attribute as read off a start tag, with original-authored
// name casing recovered (scanAttributeSpans) and an absolute source span for
// its value.
type rawAttr struct {
	name      string
	value     string
	valueSpan ident.SourceSpan
	parsed    attrsyntax.Parsed
}

// buildCtx drives one Lower call's shared tokenizer and byte-offset
// bookkeeping across however many nested TemplateIRs controller lifting
// produces.
type buildCtx struct {
	lw          *Lowerer
	z           *html.Tokenizer
	source      string
	file        ident.SourceFileId
	offset      int
	templateSeq uint32
}

func (bp *buildCtx) nextTemplateId() ident.TemplateId {
	bp.templateSeq++
	return ident.TemplateId(bp.templateSeq)
}

// Lower builds the root TemplateIR for one source file (spec 4.2, steps
// 1-9). The root Dom is always a fragment element node (Tag == "") holding
// the file's top-level content, so a file need not be wrapped in a single
// root element.
func (lw *Lowerer) Lower(source string, file ident.SourceFileId) (*ir.TemplateIR, error) {
	bp := &buildCtx{lw: lw, z: html.NewTokenizer(strings.NewReader(source)), source: source, file: file}
	rootTB := &templateBuilder{alloc: newIDAllocator()}
	tmeta := &ir.TemplateMeta{}

	children, err := bp.buildChildren(rootTB, ident.RootNodeId, "", tmeta, true)
	if err != nil {
		return nil, err
	}

	root := &ir.DomNode{Kind: ir.KindElement, ID: ident.RootNodeId, Children: children}
	return &ir.TemplateIR{
		Origin:    ir.OriginRoot,
		Dom:       root,
		Rows:      rootTB.rows,
		ExprTable: rootTB.exprTable,
		Meta:      tmeta,
	}, nil
}

// buildChildren consumes tokens until stopTag's matching end tag (or EOF
// when stopTag == ""), returning the DOM nodes produced at this nesting
// level. tmeta receives meta-tag/meta-attribute output; it is non-nil only
// while still inside the root template's meta-eligible region.
func (bp *buildCtx) buildChildren(tb *templateBuilder, parentID ident.NodeId, stopTag string, tmeta *ir.TemplateMeta, isRoot bool) ([]*ir.DomNode, error) {
	var children []*ir.DomNode

	for {
		tt := bp.z.Next()
		raw := bp.z.Raw()
		start := bp.offset
		end := start + len(raw)
		bp.offset = end

		switch tt {
		case html.ErrorToken:
			if err := bp.z.Err(); err != nil && err != io.EOF {
				return children, err
			}
			return children, nil

		case html.TextToken:
			txt := sliceSafe(bp.source, start, end)
			node := bp.buildText(tb, parentID, txt, start)
			if node != nil {
				children = append(children, node)
			}

		case html.CommentToken:
			txt := bp.z.Token().Data
			children = append(children, bp.buildComment(tb, parentID, txt, start))

		case html.DoctypeToken:
			// No DOM representation; doctype carries no bindable surface.

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := bp.z.Token()
			nodes, err := bp.buildElement(tb, parentID, tok, raw, start, end, tt == html.SelfClosingTagToken, tmeta, isRoot)
			if err != nil {
				return nil, err
			}
			children = append(children, nodes...)

		case html.EndTagToken:
			tok := bp.z.Token()
			if stopTag != "" && strings.EqualFold(tok.Data, stopTag) {
				return children, nil
			}
			// Stray/mismatched end tag: authored templates are well-formed by
			// assumption (see package doc); ignore rather than error.
		}
	}
}

func sliceSafe(s string, start, end int) string {
	if start < 0 || end > len(s) || start > end {
		return ""
	}
	return s[start:end]
}

// buildElement classifies and emits one start/self-closing tag: meta
// element, root-level meta-attribute <template>, <let>, controller-bearing
// element, or plain element, in that order (spec 4.2 steps 5-9).
func (bp *buildCtx) buildElement(tb *templateBuilder, parentID ident.NodeId, tok html.Token, raw []byte, startOff, endOff int, selfClosing bool, tmeta *ir.TemplateMeta, isRoot bool) ([]*ir.DomNode, error) {
	tag := tok.Data
	attrs := bp.classifyRawAttrs(tok, raw, startOff)
	elemSpan := ident.SourceSpan{File: bp.file, Start: uint32(startOff), End: uint32(endOff)}

	if meta.MetaTagNames[tag] && tag != "slot" && tag != "template" {
		if tmeta != nil {
			bp.applyMeta(tmeta, tag, attrs, elemSpan)
		}
		if !selfClosing && !voidElements[tag] {
			if _, err := bp.buildChildren(tb, parentID, tag, nil, false); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	if tag == "template" {
		hasMetaAttr := false
		for _, a := range attrs {
			if meta.TemplateAttrNames[strings.ToLower(a.parsed.Target)] {
				hasMetaAttr = true
				break
			}
		}
		if isRoot && hasMetaAttr && tmeta != nil && len(bp.findControllerMatches(attrs)) == 0 {
			bp.applyTemplateMetaAttrs(tmeta, attrs)
			if selfClosing {
				return nil, nil
			}
			return bp.buildChildren(tb, parentID, "template", tmeta, true)
		}
	}

	if tag == "slot" && tmeta != nil {
		tmeta.HasSlot = true
	}

	if tag == "let" {
		return bp.buildLetElement(tb, parentID, attrs, elemSpan, selfClosing, tag)
	}

	if matches := bp.findControllerMatches(attrs); len(matches) > 0 {
		return bp.liftControllers(tb, parentID, tag, attrs, matches, selfClosing, startOff, endOff)
	}

	return bp.buildPlainElement(tb, parentID, tag, attrs, selfClosing, startOff, endOff)
}

func (bp *buildCtx) classifyRawAttrs(tok html.Token, raw []byte, startOff int) []rawAttr {
	spans := scanAttributeSpans(raw, len(tok.Attr))
	out := make([]rawAttr, 0, len(tok.Attr))
	for i, a := range tok.Attr {
		name := a.Key
		var valueSpan ident.SourceSpan
		if i < len(spans) {
			sp := spans[i]
			if sp.name != "" && strings.EqualFold(sp.name, a.Key) {
				name = sp.name
			}
			valueSpan = ident.SourceSpan{File: bp.file, Start: uint32(startOff + sp.valueStart), End: uint32(startOff + sp.valueEnd)}
		}
		out = append(out, rawAttr{name: name, value: a.Val, valueSpan: valueSpan, parsed: attrsyntax.ParseName(name)})
	}
	return out
}

func (bp *buildCtx) buildText(tb *templateBuilder, parentID ident.NodeId, txt string, startOff int) *ir.DomNode {
	if strings.TrimSpace(txt) == "" && !strings.Contains(txt, "${") {
		return nil
	}
	id := tb.alloc.nextText(parentID)
	span := ident.SourceSpan{File: bp.file, Start: uint32(startOff), End: uint32(startOff + len(txt))}
	node := &ir.DomNode{Kind: ir.KindText, ID: id, Value: txt, Span: span}

	if parts, hasInterp := exprlang.SplitInterpolation(txt); hasInterp {
		src := bp.buildInterpolationSource(tb, parts, startOff)
		tb.rows = append(tb.rows, ir.InstructionRow{Target: id, Instructions: []ir.Instruction{
			{Kind: ir.TextBinding, Source: span, Text: src},
		}})
	}
	return node
}

func (bp *buildCtx) buildComment(tb *templateBuilder, parentID ident.NodeId, txt string, startOff int) *ir.DomNode {
	id := tb.alloc.nextComment(parentID)
	span := ident.SourceSpan{File: bp.file, Start: uint32(startOff), End: uint32(startOff + len(txt))}
	return &ir.DomNode{Kind: ir.KindComment, ID: id, Value: txt, Span: span}
}

// buildInterpolationSource coalesces exprlang.InterpPart's one-entry-per-
// occurrence shape into BindingSource's strict text/expr/text/.../text
// alternation, inserting empty text parts for adjacent expressions
// (spec invariant: len(Parts) == len(Exprs)+1).
func (bp *buildCtx) buildInterpolationSource(tb *templateBuilder, parts []exprlang.InterpPart, baseOffset int) ir.BindingSource {
	var bsrc ir.BindingSource
	bsrc.Kind = ir.FromInterpolation
	pending := ""
	for _, p := range parts {
		if p.Expr == nil {
			pending += p.Text
			continue
		}
		bsrc.Parts = append(bsrc.Parts, pending)
		pending = ""

		span := ident.SourceSpan{File: bp.file, Start: uint32(baseOffset + p.Start), End: uint32(baseOffset + p.Start + len(p.Code))}
		id := ident.NewExprId(bp.file, span.Start, span.End, p.Code)
		kind := ir.Interpolation
		if p.Expr.IsBad() {
			kind = ir.BadExpression
		}
		tb.exprTable = append(tb.exprTable, ir.ExprTableEntry{ID: id, AST: p.Expr, ExpressionType: kind})
		bsrc.Exprs = append(bsrc.Exprs, ir.ExprRef{ID: id, Code: p.Code, Loc: span})
	}
	bsrc.Parts = append(bsrc.Parts, pending)
	return bsrc
}

// parseSingleExprSource parses value as one expression, records it in tb's
// expression table, and returns the BindingSource referencing it.
func (bp *buildCtx) parseSingleExprSource(tb *templateBuilder, value string, valueSpan ident.SourceSpan, kind exprlang.Kind) ir.BindingSource {
	ast := bp.lw.Parser.Parse(value, kind)
	id := ident.NewExprId(bp.file, valueSpan.Start, valueSpan.End, value)
	etype := ir.IsAssign
	if kind == exprlang.KindIsIterator {
		etype = ir.IsIterator
	}
	if ast.IsBad() {
		etype = ir.BadExpression
	}
	tb.exprTable = append(tb.exprTable, ir.ExprTableEntry{ID: id, AST: ast, ExpressionType: etype})
	return ir.BindingSource{Kind: ir.FromExprRef, Expr: ir.ExprRef{ID: id, Code: value, Loc: valueSpan}}
}

func (bp *buildCtx) applyMeta(tmeta *ir.TemplateMeta, tag string, attrs []rawAttr, elemSpan ident.SourceSpan) {
	switch tag {
	case "import", "require":
		kind := ir.ImportKindImport
		if tag == "require" {
			kind = ir.ImportKindRequire
		}
		rawAttrsForMeta := make([]meta.RawAttr, 0, len(attrs))
		for _, a := range attrs {
			rawAttrsForMeta = append(rawAttrsForMeta, meta.RawAttr{Name: a.name, Value: a.value, ValueSpan: a.valueSpan})
		}
		if im, ok := meta.ParseImport(kind, rawAttrsForMeta, elemSpan); ok {
			tmeta.Imports = append(tmeta.Imports, im)
		}
	case "bindable":
		for _, a := range attrs {
			if strings.EqualFold(a.name, "name") {
				tmeta.Bindables = append(tmeta.Bindables, ir.BindableMeta{Name: ir.Located[string]{Value: a.value, Loc: a.valueSpan}, Span: a.valueSpan})
			}
		}
	case "use-shadow-dom":
		span := elemSpan
		mode := ""
		for _, a := range attrs {
			if strings.EqualFold(a.name, "mode") {
				mode, span = a.value, a.valueSpan
			}
		}
		tmeta.UseShadowDOM = &ir.ShadowDOMMeta{Mode: mode, Span: span}
	case "containerless":
		tmeta.Containerless = true
	case "capture":
		tmeta.Capture = true
	case "alias":
		for _, a := range attrs {
			if strings.EqualFold(a.name, "name") {
				tmeta.Aliases = append(tmeta.Aliases, meta.ParseAlias(a.value, a.valueSpan)...)
			}
		}
	}
}

func (bp *buildCtx) applyTemplateMetaAttrs(tmeta *ir.TemplateMeta, attrs []rawAttr) {
	for _, a := range attrs {
		switch strings.ToLower(a.parsed.Target) {
		case "use-shadow-dom":
			tmeta.UseShadowDOM = &ir.ShadowDOMMeta{Mode: a.value, Span: a.valueSpan}
		case "containerless":
			tmeta.Containerless = true
		case "capture":
			tmeta.Capture = true
		case "bindable":
			tmeta.Bindables = append(tmeta.Bindables, meta.ParseBindableList(a.value, a.valueSpan)...)
		case "alias":
			tmeta.Aliases = append(tmeta.Aliases, meta.ParseAlias(a.value, a.valueSpan)...)
		}
	}
}

func (bp *buildCtx) buildLetElement(tb *templateBuilder, parentID ident.NodeId, attrs []rawAttr, elemSpan ident.SourceSpan, selfClosing bool, tag string) ([]*ir.DomNode, error) {
	id := tb.alloc.nextElement(parentID)
	var lb []ir.LetBinding
	toBindingCtx := false
	for _, a := range attrs {
		if strings.EqualFold(a.parsed.Target, "to-binding-context") {
			toBindingCtx = true
			continue
		}
		lb = append(lb, ir.LetBinding{To: a.parsed.Target, From: bp.parseSingleExprSource(tb, a.value, a.valueSpan, exprlang.KindIsAssign)})
	}
	tb.rows = append(tb.rows, ir.InstructionRow{Target: id, Instructions: []ir.Instruction{
		{Kind: ir.HydrateLetElement, Source: elemSpan, LetBindings: lb, ToBindingContext: toBindingCtx},
	}})

	node := &ir.DomNode{Kind: ir.KindElement, ID: id, Tag: tag, StartTagSpan: elemSpan, SourceSpan: elemSpan}
	if !selfClosing && !voidElements[tag] {
		if _, err := bp.buildChildren(tb, id, tag, nil, false); err != nil {
			return nil, err
		}
	}
	return []*ir.DomNode{node}, nil
}

func (bp *buildCtx) buildPlainElement(tb *templateBuilder, parentID ident.NodeId, tag string, attrs []rawAttr, selfClosing bool, startOff, endOff int) ([]*ir.DomNode, error) {
	id := tb.alloc.nextElement(parentID)
	var staticAttrs []ir.Attribute
	var instrs []ir.Instruction
	for _, a := range attrs {
		ins, static, isStatic := bp.classifyAttr(tb, a)
		if isStatic {
			staticAttrs = append(staticAttrs, static)
		} else {
			instrs = append(instrs, ins)
		}
	}

	span := ident.SourceSpan{File: bp.file, Start: uint32(startOff), End: uint32(endOff)}
	kind := ir.KindElement
	if tag == "template" {
		kind = ir.KindTemplate
	}

	var children []*ir.DomNode
	if !selfClosing && !voidElements[tag] {
		var err error
		children, err = bp.buildChildren(tb, id, tag, nil, false)
		if err != nil {
			return nil, err
		}
	}

	node := &ir.DomNode{Kind: kind, ID: id, Tag: tag, Attrs: staticAttrs, Children: children, StartTagSpan: span, SourceSpan: span}
	if len(instrs) > 0 {
		tb.rows = append(tb.rows, ir.InstructionRow{Target: id, Instructions: instrs})
	}
	return []*ir.DomNode{node}, nil
}

// classifyAttr resolves one non-controller attribute into either a static
// DOM attribute or a binding instruction (spec 4.2 steps 2-4).
func (bp *buildCtx) classifyAttr(tb *templateBuilder, a rawAttr) (ins ir.Instruction, static ir.Attribute, isStatic bool) {
	cmd := a.parsed.Command

	if cmd == "" {
		if mbParts := attrsyntax.SplitMultiBinding(a.value, a.valueSpan); len(mbParts) > 0 {
			anyCmd := false
			for _, p := range mbParts {
				if p.Command != "" {
					anyCmd = true
					break
				}
			}
			if anyCmd {
				tails := make([]ir.Instruction, 0, len(mbParts))
				for _, p := range mbParts {
					kindStr, _ := bp.lw.Catalog.BindingCommand(p.Command)
					tails = append(tails, ir.Instruction{
						Kind:   instructionKindFromString(kindStr),
						Source: p.Span,
						To:     p.Target,
						Mode:   modeFromCommand(p.Command),
						From:   bp.parseSingleExprSource(tb, p.Expr, p.Span, exprlang.KindIsAssign),
					})
				}
				return ir.Instruction{Kind: ir.HydrateAttribute, Source: a.valueSpan, ElementName: a.parsed.Target, TailFroms: tails}, ir.Attribute{}, false
			}
		}

		if parts, hasInterp := exprlang.SplitInterpolation(a.value); hasInterp {
			src := bp.buildInterpolationSource(tb, parts, int(a.valueSpan.Start))
			return ir.Instruction{Kind: ir.PropertyBinding, Source: a.valueSpan, To: a.parsed.Target, From: src}, ir.Attribute{}, false
		}

		return ir.Instruction{}, ir.Attribute{Name: a.name, Value: a.value, Source: a.valueSpan}, true
	}

	kindStr, known := bp.lw.Catalog.BindingCommand(cmd)
	if !known {
		return ir.Instruction{}, ir.Attribute{Name: a.name, Value: a.value, Source: a.valueSpan}, true
	}

	switch cmd {
	case "attr":
		return ir.Instruction{Kind: ir.AttributeBinding, Source: a.valueSpan, To: a.parsed.Target, AttrName: a.parsed.Target, From: bp.parseSingleExprSource(tb, a.value, a.valueSpan, exprlang.KindIsAssign)}, ir.Attribute{}, false
	case "for":
		decl, iterAST := exprlang.ParseForOf(a.value)
		id := ident.NewExprId(bp.file, a.valueSpan.Start, a.valueSpan.End, a.value)
		etype := ir.IsIterator
		if iterAST.IsBad() {
			etype = ir.BadExpression
		}
		tb.exprTable = append(tb.exprTable, ir.ExprTableEntry{ID: id, AST: iterAST, ExpressionType: etype})
		return ir.Instruction{
			Kind: ir.IteratorBinding, Source: a.valueSpan, To: a.parsed.Target,
			IterValue: decl.Value, IterKey: decl.Key,
			From: ir.BindingSource{Kind: ir.FromExprRef, Expr: ir.ExprRef{ID: id, Code: a.value, Loc: a.valueSpan}},
		}, ir.Attribute{}, false
	default:
		return ir.Instruction{
			Kind: instructionKindFromString(kindStr), Source: a.valueSpan, To: a.parsed.Target, Mode: modeFromCommand(cmd),
			From: bp.parseSingleExprSource(tb, a.value, a.valueSpan, exprlang.KindIsAssign),
		}, ir.Attribute{}, false
	}
}

func instructionKindFromString(s string) ir.InstructionKind {
	switch s {
	case "listenerBinding":
		return ir.ListenerBinding
	case "refBinding":
		return ir.RefBinding
	case "stylePropertyBinding":
		return ir.StylePropertyBinding
	case "setClassAttribute":
		return ir.SetClassAttribute
	case "attributeBinding":
		return ir.AttributeBinding
	case "iteratorBinding":
		return ir.IteratorBinding
	default:
		return ir.PropertyBinding
	}
}

func modeFromCommand(cmd string) ir.BindingModeAuthored {
	switch cmd {
	case "to-view":
		return ir.AuthoredToView
	case "from-view":
		return ir.AuthoredFromView
	case "two-way":
		return ir.AuthoredTwoWay
	case "one-time":
		return ir.AuthoredOneTime
	default:
		return ir.AuthoredDefault
	}
}
