// Package link implements the Link phase (phase 20): IR plus the semantics
// catalog produces a Linked IR where every binding target, event, and
// controller is resolved to a catalog entry or marked unknown with a
// diagnostic — grounded on chtml/checker.go's resolution style (shapeOf's
// fallback chain), applied here to target/controller/event names instead
// of Go struct shapes.
package link

import (
	"strings"

	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/diag"
	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
)

// TargetKind tags TargetSem's variant (spec 3.4).
type TargetKind int

const (
	TargetElementBindable TargetKind = iota
	TargetElementNativeProp
	TargetAttributeBindable
	TargetControllerProp
	TargetAttribute
	TargetStyle
	TargetUnknown
)

// TargetSem is a resolved binding target.
type TargetSem struct {
	Kind   TargetKind
	Prop   string // element.bindable / element.nativeProp / attribute.bindable / controller.prop
	Attr   string // attribute{attr}
	Reason string // unknown: "no-prop" | "no-element"
}

// NodeSemKind tags NodeSem's variant.
type NodeSemKind int

const (
	NodeElement NodeSemKind = iota
	NodeTemplate
	NodeText
	NodeComment
)

// NodeSem is the resolved semantics of one DOM node's tag: which catalog
// entries, if any, describe it (custom preferred over native when both
// exist, per spec 4.3).
type NodeSem struct {
	Kind   NodeSemKind
	Tag    string
	Custom *catalog.ElementRes
	Native *catalog.DomElement
}

// BranchKind tags a branch controller's discriminant: then/catch/pending
// under promise, case/default-case under switch.
type BranchKind int

const (
	BranchNone BranchKind = iota
	BranchThen
	BranchCatch
	BranchPending
	BranchCase
	BranchDefault
)

// BranchSem is the resolved branch discriminant of a hydrateTemplateController
// instruction whose controller is a child of another (then/catch/pending
// under promise; case/default-case under switch).
type BranchSem struct {
	Kind     BranchKind
	CaseExpr *ir.ExprRef // set only for BranchCase
}

// ControllerSem is the resolved controller for a hydrateTemplateController
// instruction: its catalog config (possibly a stub) and whether it had to
// be stubbed.
type ControllerSem struct {
	Name   string
	Config catalog.ControllerConfig
	Stub   bool
}

// LinkedInstruction is one ir.Instruction with its Link-phase resolution
// attached (spec 3.4). Only the fields meaningful to ins.Kind are set.
type LinkedInstruction struct {
	Instruction ir.Instruction

	Target        TargetSem
	EffectiveMode catalog.BindingMode

	EventType  catalog.TypeRef
	EventKnown bool

	Controller *ControllerSem
	Branch     *BranchSem
	Def        *LinkedTemplate // hydrateTemplateController: the linked form of Instruction.Def

	TailFroms []LinkedInstruction // hydrateAttribute: linked form of Instruction.TailFroms
}

// LinkedRow is one ir.InstructionRow plus its target node's resolved
// NodeSem.
type LinkedRow struct {
	Target       ident.NodeId
	NodeSem      NodeSem
	Instructions []LinkedInstruction
}

// LinkedTemplate is the linked form of one ir.TemplateIR.
type LinkedTemplate struct {
	Source *ir.TemplateIR
	Rows   []LinkedRow
}

// LinkedModule is Link's full output for one compiled file: the linked root
// template (nested controller/branch defs reachable through its rows'
// instructions) and every diagnostic raised while linking it.
type LinkedModule struct {
	Root        *LinkedTemplate
	Diagnostics []diag.Diagnostic
}

// Linker links TemplateIR trees against a fixed Catalog. A Linker is safe
// to reuse across compiles; it holds no per-compile state itself.
type Linker struct {
	Catalog catalog.Catalog
}

// New returns a Linker bound to cat.
func New(cat catalog.Catalog) *Linker {
	return &Linker{Catalog: cat}
}

// Link resolves every row and instruction of root (and, recursively, every
// nested controller/branch def reachable from it) against l.Catalog.
func (l *Linker) Link(root *ir.TemplateIR) *LinkedModule {
	var bag diag.Bag
	lt := l.linkTemplate(root, "", &bag)
	return &LinkedModule{Root: lt, Diagnostics: bag.Sorted()}
}

// linkTemplate links one template's rows in document order, validating the
// structural ordering spec 6.3's AU08xx codes cover as it goes: parent is
// the name of the controller whose Def this template is (""  for the root
// template and for plain, non-lifted nested templates), used to check
// then/catch/pending/case/default-case against their required ancestor.
// prevSiblingController tracks the most recently linked controller at this
// same level, used to check "else" against a preceding "if" sibling.
func (l *Linker) linkTemplate(t *ir.TemplateIR, parent string, bag *diag.Bag) *LinkedTemplate {
	lt := &LinkedTemplate{Source: t}
	var prevSiblingController string
	var sawDefaultCase bool
	for _, row := range t.Rows {
		node := ir.FindNode(t.Dom, row.Target)
		sem := l.nodeSem(node)
		lrow := LinkedRow{Target: row.Target, NodeSem: sem}
		for _, ins := range row.Instructions {
			li := l.linkInstruction(ins, sem, bag)
			if ins.Kind == ir.HydrateTemplateController && li.Controller != nil && !li.Controller.Stub {
				l.checkBranchOrdering(li.Controller, ins.Source, parent, prevSiblingController, &sawDefaultCase, bag)
				prevSiblingController = li.Controller.Name
			}
			lrow.Instructions = append(lrow.Instructions, li)
		}
		lt.Rows = append(lt.Rows, lrow)
	}
	return lt
}

// checkBranchOrdering implements spec 6.3's structural controller-ordering
// diagnostics, driven entirely by the catalog's ControllerConfig.LinksTo/
// Branches data rather than a hardcoded name switch:
//   - a config with Branches set (then/catch/pending/case/default-case) must
//     appear as a direct child of a controller named LinksTo (AU0813 for a
//     promise branch, AU0815 for a switch branch);
//   - a config with LinksTo set but no Branches (else) must instead follow a
//     same-level sibling controller named LinksTo (AU0810);
//   - a second default-case sibling under the same switch is AU0816.
func (l *Linker) checkBranchOrdering(ctrl *ControllerSem, span ident.SourceSpan, parent, prevSibling string, sawDefaultCase *bool, bag *diag.Bag) {
	cc := ctrl.Config
	name := strings.ToLower(ctrl.Name)

	if len(cc.Branches) > 0 {
		if !strings.EqualFold(parent, cc.LinksTo) {
			code := diag.CodeCaseWithoutSwitch
			if strings.EqualFold(cc.LinksTo, "promise") {
				code = diag.CodeBranchWithoutPromise
			}
			bag.Add(diag.New(code, span, "%q without parent %q", ctrl.Name, cc.LinksTo))
			return
		}
		if name == "default-case" {
			if *sawDefaultCase {
				bag.Add(diag.New(diag.CodeMultipleDefaultCase, span, "multiple default-case in the same switch"))
			}
			*sawDefaultCase = true
		}
		return
	}

	if cc.LinksTo != "" && !strings.EqualFold(prevSibling, cc.LinksTo) {
		bag.Add(diag.New(diag.CodeElseWithoutIf, span, "%q without preceding %q", ctrl.Name, cc.LinksTo))
	}
}

func (l *Linker) nodeSem(node *ir.DomNode) NodeSem {
	if node == nil {
		return NodeSem{Kind: NodeElement}
	}
	switch node.Kind {
	case ir.KindText:
		return NodeSem{Kind: NodeText}
	case ir.KindComment:
		return NodeSem{Kind: NodeComment}
	case ir.KindTemplate:
		return NodeSem{Kind: NodeTemplate, Tag: "template"}
	default:
		sem := NodeSem{Kind: NodeElement, Tag: node.Tag}
		if ce, ok := l.Catalog.Element(node.Tag); ok {
			sem.Custom = &ce
		}
		if de, ok := l.Catalog.DomElement(node.Tag); ok {
			sem.Native = &de
		}
		return sem
	}
}

func (l *Linker) linkInstruction(ins ir.Instruction, sem NodeSem, bag *diag.Bag) LinkedInstruction {
	li := LinkedInstruction{Instruction: ins}

	switch ins.Kind {
	case ir.PropertyBinding:
		li.Target = l.resolveTarget(sem, ins.To, ins.Source, bag)
		li.EffectiveMode = l.effectiveMode(sem, ins, li.Target)

	case ir.StylePropertyBinding:
		// A style binding's target is the style property itself, never a
		// host bindable/native prop lookup (spec 3.4/4.5): "width.style" has
		// no "width" to resolve against the host, so this never runs through
		// resolveTarget's AU1104 path.
		li.Target = TargetSem{Kind: TargetStyle, Prop: ins.To}
		li.EffectiveMode = catalog.ModeToView

	case ir.AttributeBinding:
		// An explicit ".attr" command binds to the literal attribute name;
		// a prefix-preserved plain binding reaches this path with the same
		// intent (spec 4.3 normalization step 1).
		li.Target = TargetSem{Kind: TargetAttribute, Attr: ins.AttrName}
		li.EffectiveMode = l.effectiveMode(sem, ins, li.Target)

	case ir.ListenerBinding:
		t, ok := l.Catalog.Event(ins.To, sem.Tag)
		li.EventType, li.EventKnown = t, ok
		if !ok {
			bag.Add(diag.New(diag.CodeUnknownEvent, ins.Source, "unknown event %q", ins.To))
		}

	case ir.IteratorBinding:
		li.Target = l.resolveIteratorTarget(ins, bag)

	case ir.RefBinding:
		// ins.To carries the authored ref target ("element" for a plain
		// "ref", or "view-model"/"controller"/"view" for the ".ref"-suffixed
		// forms); default to "element" only when none was authored.
		prop := ins.To
		if prop == "" {
			prop = "element"
		}
		li.Target = TargetSem{Kind: TargetElementBindable, Prop: prop}

	case ir.HydrateElement:
		if _, ok := l.Catalog.Element(ins.ElementName); !ok {
			bag.Add(diag.New(diag.CodeUnknownElement, ins.Source, "unknown custom element %q", ins.ElementName))
		}
		li.TailFroms = l.linkTailFroms(ins.TailFroms, sem, bag)

	case ir.HydrateAttribute:
		li.TailFroms = l.linkTailFroms(ins.TailFroms, sem, bag)

	case ir.HydrateTemplateController:
		li.Controller = l.resolveController(ins.ControllerName, ins.Source, bag)
		li.Branch = l.resolveBranch(ins, li.Controller)
		if ins.Def != nil {
			li.Def = l.linkTemplate(ins.Def, li.Controller.Name, bag)
		}
	}

	return li
}

func (l *Linker) linkTailFroms(tails []ir.Instruction, sem NodeSem, bag *diag.Bag) []LinkedInstruction {
	if len(tails) == 0 {
		return nil
	}
	out := make([]LinkedInstruction, 0, len(tails))
	for _, t := range tails {
		out = append(out, l.linkInstruction(t, sem, bag))
	}
	return out
}

// resolveTarget implements spec 4.3's attr→prop normalization order
// followed by target resolution.
func (l *Linker) resolveTarget(sem NodeSem, attr string, span ident.SourceSpan, bag *diag.Bag) TargetSem {
	for _, pfx := range l.Catalog.PreservedAttrPrefixes() {
		if strings.HasPrefix(strings.ToLower(attr), strings.ToLower(pfx)) {
			return TargetSem{Kind: TargetAttribute, Attr: attr}
		}
	}

	prop := attr
	if rule, ok := l.Catalog.NamingRule(attr, sem.Tag); ok {
		prop = rule
	} else if sem.Native != nil {
		if mapped, ok := sem.Native.AttrToProp[attr]; ok {
			prop = mapped
		} else if canon, ok := caseInsensitiveLookup(sem.Native.Props, attr); ok {
			prop = canon
		}
	}
	if prop == attr {
		if canon, ok := matchBindable(sem, attr); ok {
			prop = canon
		} else {
			prop = kebabToCamel(attr)
		}
	}

	if sem.Custom != nil {
		if _, ok := sem.Custom.Bindables[prop]; ok {
			return TargetSem{Kind: TargetElementBindable, Prop: prop}
		}
	}
	if sem.Native != nil {
		if _, ok := sem.Native.Props[prop]; ok {
			return TargetSem{Kind: TargetElementNativeProp, Prop: prop}
		}
	}

	reason := "no-prop"
	if sem.Custom == nil && sem.Native == nil {
		reason = "no-element"
	}
	bag.Add(diag.New(diag.CodePropertyTargetNotFound, span, "property %q not found on host %q", prop, sem.Tag))
	return TargetSem{Kind: TargetUnknown, Reason: reason}
}

func matchBindable(sem NodeSem, attr string) (string, bool) {
	fold := strings.ToLower(attr)
	if sem.Custom != nil {
		for name := range sem.Custom.Bindables {
			if strings.ToLower(name) == fold {
				return name, true
			}
		}
	}
	if sem.Native != nil {
		for name := range sem.Native.Props {
			if strings.ToLower(name) == fold {
				return name, true
			}
		}
	}
	return "", false
}

func caseInsensitiveLookup(m map[string]catalog.TypeRef, key string) (string, bool) {
	fold := strings.ToLower(key)
	for name := range m {
		if strings.ToLower(name) == fold {
			return name, true
		}
	}
	return "", false
}

// kebabToCamel converts "foo-bar-baz" to "fooBarBaz" (spec 4.3 step 6).
func kebabToCamel(s string) string {
	var b strings.Builder
	upperNext := false
	for _, r := range s {
		if r == '-' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteString(strings.ToUpper(string(r)))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// effectiveMode implements spec 4.3's effective binding mode resolution.
func (l *Linker) effectiveMode(sem NodeSem, ins ir.Instruction, target TargetSem) catalog.BindingMode {
	if ins.Mode != ir.AuthoredDefault {
		return authoredModeToCatalog(ins.Mode)
	}

	switch target.Kind {
	case TargetElementBindable, TargetAttributeBindable, TargetControllerProp:
		if sem.Custom != nil {
			if b, ok := sem.Custom.Bindables[target.Prop]; ok {
				return b.Mode
			}
		}
		return catalog.ModeToView

	case TargetElementNativeProp:
		// DomElement carries no per-prop mode of its own (spec 3.3's
		// DomElement has no mode field), so this falls straight to the
		// two-way default table, the next step spec 4.3 names.
		if tw := l.Catalog.TwoWayDefaults(sem.Tag); tw != nil && tw[target.Prop] {
			return catalog.ModeTwoWay
		}
		return catalog.ModeToView

	default:
		return catalog.ModeToView
	}
}

func authoredModeToCatalog(m ir.BindingModeAuthored) catalog.BindingMode {
	switch m {
	case ir.AuthoredToView:
		return catalog.ModeToView
	case ir.AuthoredFromView:
		return catalog.ModeFromView
	case ir.AuthoredTwoWay:
		return catalog.ModeTwoWay
	case ir.AuthoredOneTime:
		return catalog.ModeOneTime
	default:
		return catalog.ModeToView
	}
}

// resolveIteratorTarget implements spec 4.3's iterator binding resolution:
// the canonical prop comes from the repeat controller's trigger, and tail
// options are matched against tailProps.
func (l *Linker) resolveIteratorTarget(ins ir.Instruction, bag *diag.Bag) TargetSem {
	prop := "items"
	if cc, ok := l.Catalog.ControllerConfig("repeat"); ok {
		prop = cc.Trigger.Prop
		if _, known := cc.TailProps[ins.To]; ins.To != "" && ins.To != prop && !known {
			bag.Add(diag.New(diag.CodeRepeatTailOptionUnknown, ins.Source, "repeat tail option %q not recognized", ins.To))
		}
	}
	return TargetSem{Kind: TargetControllerProp, Prop: prop}
}

// resolveController implements spec 4.3's controller resolution: a real
// catalog entry, a synthesized one for a custom isTemplateController
// attribute, or a stub (with AU1101) for a genuinely unknown name.
func (l *Linker) resolveController(name string, span ident.SourceSpan, bag *diag.Bag) *ControllerSem {
	if cc, ok := l.Catalog.ControllerConfig(name); ok {
		return &ControllerSem{Name: name, Config: cc}
	}
	if ar, ok := l.Catalog.Attribute(name); ok && ar.IsTemplateController {
		cc := catalog.ControllerConfig{
			Name:    name,
			Trigger: catalog.Trigger{Kind: catalog.TriggerValue, Prop: ar.Primary},
			Scope:   catalog.ScopeOverlay,
			Props:   ar.Bindables,
		}
		return &ControllerSem{Name: name, Config: cc}
	}
	bag.Add(diag.New(diag.CodeUnknownController, span, "unknown template controller %q", name))
	return &ControllerSem{Name: name, Config: catalog.ControllerConfig{Name: name, IsStub: true}, Stub: true}
}

// resolveBranch classifies a controller instruction as a branch of its
// parent (then/catch/pending under promise; case/default-case under
// switch). It only fires when the catalog itself marks the controller as a
// branch via ControllerConfig.Branches — an unknown/stub controller, or one
// the catalog never configured as a branch, is never classified.
func (l *Linker) resolveBranch(ins ir.Instruction, ctrl *ControllerSem) *BranchSem {
	if ctrl == nil || len(ctrl.Config.Branches) == 0 {
		return nil
	}
	name := strings.ToLower(ctrl.Name)
	if _, ok := ctrl.Config.Branches[name]; !ok {
		return nil
	}
	switch name {
	case "then":
		return &BranchSem{Kind: BranchThen}
	case "catch":
		return &BranchSem{Kind: BranchCatch}
	case "pending":
		return &BranchSem{Kind: BranchPending}
	case "case":
		expr := ins.From.Expr
		return &BranchSem{Kind: BranchCase, CaseExpr: &expr}
	case "default-case":
		return &BranchSem{Kind: BranchDefault}
	default:
		return nil
	}
}
