package lower

import (
	"strings"

	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/exprlang"
	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
)

// controllerMatch is one authored attribute recognized as a template
// controller trigger, with the catalog config it resolved against.
type controllerMatch struct {
	attrIdx int
	name    string
	config  catalog.ControllerConfig
	attr    rawAttr
}

// findControllerMatches scans attrs for template-controller triggers, in
// authored order. A plain catalog.ControllerConfig lookup covers the
// built-ins (if/repeat/with/promise/then/catch/pending/switch/case/
// default-case/portal); a custom attribute flagged IsTemplateController in
// the catalog gets a minimal synthesized Value-trigger config, since
// project-defined controllers are not catalog template-controller entries
// by name the way the built-ins are.
func (bp *buildCtx) findControllerMatches(attrs []rawAttr) []controllerMatch {
	var out []controllerMatch
	for i, a := range attrs {
		target := a.parsed.Target
		if cc, ok := bp.lw.Catalog.ControllerConfig(target); ok {
			out = append(out, controllerMatch{attrIdx: i, name: strings.ToLower(target), config: cc, attr: a})
			continue
		}
		if ar, ok := bp.lw.Catalog.Attribute(target); ok && ar.IsTemplateController {
			out = append(out, controllerMatch{
				attrIdx: i, name: strings.ToLower(target),
				config: catalog.ControllerConfig{Name: target, Trigger: catalog.Trigger{Kind: catalog.TriggerValue, Prop: "value"}, Scope: catalog.ScopeOverlay},
				attr:   a,
			})
		}
	}
	return out
}

// liftControllers implements spec 4.2 step 5: wrap an element in one nested
// synthetic template per controller attribute, outermost first (authored
// order), with the real element (minus its controller attributes) at the
// innermost definition.
func (bp *buildCtx) liftControllers(tb *templateBuilder, parentID ident.NodeId, tag string, attrs []rawAttr, matches []controllerMatch, selfClosing bool, startOff, endOff int) ([]*ir.DomNode, error) {
	matchedIdx := map[int]bool{}
	for _, m := range matches {
		matchedIdx[m.attrIdx] = true
	}
	var remaining []rawAttr
	for i, a := range attrs {
		if !matchedIdx[i] {
			remaining = append(remaining, a)
		}
	}

	innerTB := &templateBuilder{alloc: newIDAllocator()}
	innerNodes, err := bp.buildPlainElement(innerTB, ident.RootNodeId, tag, remaining, selfClosing, startOff, endOff)
	if err != nil {
		return nil, err
	}
	var innerRoot *ir.DomNode
	if len(innerNodes) > 0 {
		innerRoot = innerNodes[0]
	}

	currentDef := &ir.TemplateIR{ID: bp.nextTemplateId(), Origin: ir.OriginController, Dom: innerRoot, Rows: innerTB.rows, ExprTable: innerTB.exprTable}

	for i := len(matches) - 1; i >= 1; i-- {
		levelTB := &templateBuilder{alloc: newIDAllocator()}
		wrapperID := levelTB.alloc.nextElement(ident.RootNodeId)
		ins := bp.buildControllerInstruction(levelTB, matches[i], currentDef)
		levelTB.rows = append(levelTB.rows, ir.InstructionRow{Target: wrapperID, Instructions: []ir.Instruction{ins}})
		currentDef = &ir.TemplateIR{
			ID: bp.nextTemplateId(), Origin: ir.OriginController,
			Dom: &ir.DomNode{Kind: ir.KindTemplate, ID: wrapperID}, Rows: levelTB.rows, ExprTable: levelTB.exprTable,
		}
	}

	wrapperID := tb.alloc.nextElement(parentID)
	ins0 := bp.buildControllerInstruction(tb, matches[0], currentDef)
	tb.rows = append(tb.rows, ir.InstructionRow{Target: wrapperID, Instructions: []ir.Instruction{ins0}})

	return []*ir.DomNode{{Kind: ir.KindTemplate, ID: wrapperID}}, nil
}

// buildControllerInstruction builds the hydrateTemplateController
// instruction for one matched controller attribute, parsing its trigger
// value into tb (the template that will contain this instruction's row),
// per the controller's Trigger kind (spec 3.3, 4.6).
func (bp *buildCtx) buildControllerInstruction(tb *templateBuilder, m controllerMatch, def *ir.TemplateIR) ir.Instruction {
	ins := ir.Instruction{Kind: ir.HydrateTemplateController, ControllerName: m.name, Def: def, Source: m.attr.valueSpan}

	switch m.config.Trigger.Kind {
	case catalog.TriggerValue:
		ins.To = m.config.Trigger.Prop
		ins.From = bp.parseSingleExprSource(tb, m.attr.value, m.attr.valueSpan, exprlang.KindIsAssign)

	case catalog.TriggerIterator:
		decl, iterAST := exprlang.ParseForOf(m.attr.value)
		id := ident.NewExprId(bp.file, m.attr.valueSpan.Start, m.attr.valueSpan.End, m.attr.value)
		etype := ir.IsIterator
		if iterAST.IsBad() {
			etype = ir.BadExpression
		}
		tb.exprTable = append(tb.exprTable, ir.ExprTableEntry{ID: id, AST: iterAST, ExpressionType: etype})
		ins.To = m.config.Trigger.Prop
		ins.IterValue = decl.Value
		ins.IterKey = decl.Key
		ins.From = ir.BindingSource{Kind: ir.FromExprRef, Expr: ir.ExprRef{ID: id, Code: m.attr.value, Loc: m.attr.valueSpan}}

	case catalog.TriggerBranch:
		// The attribute value is a local alias for the branch's resolved
		// value (e.g. "value" in <template then="value">), not an
		// expression to evaluate (spec 4.6).
		ins.BranchAlias = strings.TrimSpace(m.attr.value)

	case catalog.TriggerMarker:
		// No authored value (e.g. <template else>, <template pending>).
	}

	return ins
}
