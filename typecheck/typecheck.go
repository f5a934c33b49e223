// Package typecheck implements the Typecheck phase (phase 40): linked
// instructions plus an inferred expression type become binding contracts,
// coerced or rejected per a configurable preset — grounded on
// chtml/checker.go's shapeOf/coercion logic and chtml/shape.go's Shape
// compatibility rules, generalized from Go-struct reflection into the
// TypeString surface spec 3.3/4.5 describes.
//
// Type inference itself is explicitly out of this package's scope (spec 1's
// non-goal: "JavaScript/TypeScript parsing of view-model source; the core
// consumes a reflection interface only"). ExprTyper is that reflection
// interface's contract; AnyTyper is the zero-config default that always
// reports "any", keeping this package runnable without a real TypeScript
// backend wired in, the same role MapCatalog plays for Catalog.
package typecheck

import (
	"strings"

	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/diag"
	"github.com/aureliago/tplcore/exprlang"
	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
	"github.com/aureliago/tplcore/link"
)

// TypeString is a TypeScript-shaped type expression, e.g. "string",
// "string | number", "() => void", "Record<string, any>". This package
// treats it as opaque text except for the small set of patterns the
// coercion rules (spec 4.5) name explicitly.
type TypeString string

const (
	TypeAny    TypeString = "any"
	TypeStr    TypeString = "string"
	TypeNumber TypeString = "number"
	TypeBool   TypeString = "boolean"
)

// ExprTyper is the external reflection interface this package consumes
// instead of parsing view-model source itself.
type ExprTyper interface {
	TypeOf(ast *exprlang.AST) TypeString
}

// AnyTyper is the zero-config ExprTyper: every expression types as "any",
// so every coercion check short-circuits to compatible. Use a real
// reflection-backed ExprTyper to get meaningful diagnostics.
type AnyTyper struct{}

func (AnyTyper) TypeOf(*exprlang.AST) TypeString { return TypeAny }

// Context tags where a binding contract's expected type comes from (spec
// 4.5's BindingContract.context).
type Context int

const (
	ContextDomAttribute Context = iota
	ContextDomProperty
	ContextComponentBindable
	ContextControllerProp
	ContextStyleProperty
	ContextTemplateLocal
	ContextEventHandler
	ContextUnknown
)

// Severity is a per-contract enforcement level (spec 6.4's off|warning|error,
// distinct from diag.Severity which has no "off" state).
type Severity int

const (
	SeverityOff Severity = iota
	SeverityWarning
	SeverityError
)

// CoercionAllowed is which of spec 4.5's four coercion classes this
// contract accepts.
type CoercionAllowed struct {
	Dom          bool
	NullToString bool
	Truthy       bool
	Function     bool
}

// BindingContract is the resolved expectation for one expression (spec
// 4.5).
type BindingContract struct {
	Type          TypeString
	Context       Context
	Severity      Severity
	AllowCoercion CoercionAllowed
}

// Preset names the four typecheck presets (spec 6.4).
type Preset string

const (
	PresetOff      Preset = "off"
	PresetLenient  Preset = "lenient"
	PresetStandard Preset = "standard"
	PresetStrict   Preset = "strict"
)

// Config is TypecheckConfig (spec 6.4): a plain struct with a few enum
// fields, built from a preset and then overridden field by field — the
// same shape pages.Handler itself uses for its own options.
type Config struct {
	Enabled             bool
	Preset              Preset
	DomCoercion         bool
	NullToString        string // "off" | "warning" | "error"
	TypeMismatch        string // "off" | "warning" | "error"
	StrictEventHandlers bool
}

// DefaultConfig returns the preset's baseline config. Callers wanting
// per-field overrides construct from this and mutate fields afterward:
// explicit fields always win over the preset, which always wins over the
// package zero value (spec 6.4's override precedence).
func DefaultConfig(preset Preset) Config {
	switch preset {
	case PresetOff:
		return Config{Enabled: false, Preset: preset}
	case PresetLenient:
		return Config{Enabled: true, Preset: preset, DomCoercion: true, NullToString: "off", TypeMismatch: "warning"}
	case PresetStrict:
		return Config{Enabled: true, Preset: preset, DomCoercion: false, NullToString: "error", TypeMismatch: "error", StrictEventHandlers: true}
	default: // standard
		return Config{Enabled: true, Preset: PresetStandard, DomCoercion: true, NullToString: "warning", TypeMismatch: "error"}
	}
}

func severityFromString(s string) Severity {
	switch s {
	case "warning":
		return SeverityWarning
	case "error":
		return SeverityError
	default:
		return SeverityOff
	}
}

// Module is Typecheck's output across one linked template tree.
type Module struct {
	Contracts      map[ident.ExprId]BindingContract
	ExpectedByExpr map[ident.ExprId]TypeString
	Diagnostics    []diag.Diagnostic
}

// Typechecker runs phase 40 against a fixed Catalog, Config, and ExprTyper.
type Typechecker struct {
	Catalog catalog.Catalog
	Config  Config
	Typer   ExprTyper
}

// New returns a Typechecker. A nil typer defaults to AnyTyper.
func New(cat catalog.Catalog, cfg Config, typer ExprTyper) *Typechecker {
	if typer == nil {
		typer = AnyTyper{}
	}
	return &Typechecker{Catalog: cat, Config: cfg, Typer: typer}
}

// Check runs Typecheck over a linked template tree. It recovers each
// ExprId's AST by collecting the exprTable of every source TemplateIR
// reachable from root into one map keyed by ExprId (ids are globally
// unique).
func (tc *Typechecker) Check(root *link.LinkedTemplate) *Module {
	mod := &Module{Contracts: map[ident.ExprId]BindingContract{}, ExpectedByExpr: map[ident.ExprId]TypeString{}}
	if !tc.Config.Enabled {
		return mod
	}
	exprs := map[ident.ExprId]*ir.ExprTableEntry{}
	collectExprTable(root.Source, exprs)

	var bag diag.Bag
	tc.walkTemplate(root, exprs, &bag, mod)
	mod.Diagnostics = bag.Sorted()
	return mod
}

// collectExprTable gathers every ExprTableEntry reachable from t, including
// every nested controller Def's own ExprTable: Lower gives each lifted
// controller body its own TemplateIR with its own ExprTable (spec 3.2), so a
// single top-level collection would silently miss every expression inside
// an if/repeat/promise/switch body.
func collectExprTable(t *ir.TemplateIR, out map[ident.ExprId]*ir.ExprTableEntry) {
	for i := range t.ExprTable {
		e := &t.ExprTable[i]
		out[e.ID] = e
	}
	for _, row := range t.Rows {
		collectExprTableFromInstructions(row.Instructions, out)
	}
}

func collectExprTableFromInstructions(ins []ir.Instruction, out map[ident.ExprId]*ir.ExprTableEntry) {
	for i := range ins {
		if ins[i].Def != nil {
			collectExprTable(ins[i].Def, out)
		}
		if len(ins[i].TailFroms) > 0 {
			collectExprTableFromInstructions(ins[i].TailFroms, out)
		}
	}
}

func (tc *Typechecker) walkTemplate(lt *link.LinkedTemplate, exprs map[ident.ExprId]*ir.ExprTableEntry, bag *diag.Bag, mod *Module) {
	for i := range lt.Rows {
		row := &lt.Rows[i]
		for j := range row.Instructions {
			tc.walkInstruction(&row.Instructions[j], row.NodeSem, exprs, bag, mod)
		}
	}
}

func (tc *Typechecker) walkInstruction(li *link.LinkedInstruction, sem link.NodeSem, exprs map[ident.ExprId]*ir.ExprTableEntry, bag *diag.Bag, mod *Module) {
	ins := li.Instruction

	switch ins.Kind {
	case ir.PropertyBinding, ir.StylePropertyBinding, ir.AttributeBinding:
		if li.Target.Kind == link.TargetUnknown {
			return
		}
		contract, ok := tc.contractForTarget(li.Target, sem)
		if !ok {
			return
		}
		tc.checkBindingSource(ins.From, contract, exprs, bag, mod)

	case ir.ListenerBinding:
		if !li.EventKnown {
			return
		}
		contract := BindingContract{Type: TypeString(catalog.TypeFunction), Context: ContextEventHandler, Severity: tc.severityFor("typeMismatch"), AllowCoercion: CoercionAllowed{Function: true}}
		tc.checkBindingSource(ins.From, contract, exprs, bag, mod)

	case ir.TextBinding, ir.TranslationBinding:
		contract := BindingContract{Type: TypeStr, Context: ContextDomProperty, Severity: tc.severityFor("typeMismatch"), AllowCoercion: CoercionAllowed{Dom: tc.Config.DomCoercion, NullToString: true}}
		tc.checkBindingSource(ins.Text, contract, exprs, bag, mod)

	case ir.HydrateLetElement:
		contract := BindingContract{Type: TypeAny, Context: ContextTemplateLocal, Severity: tc.severityFor("typeMismatch")}
		for _, lb := range ins.LetBindings {
			tc.checkBindingSource(lb.From, contract, exprs, bag, mod)
		}

	case ir.HydrateElement, ir.HydrateAttribute:
		for i := range li.TailFroms {
			tc.walkInstruction(&li.TailFroms[i], sem, exprs, bag, mod)
		}

	case ir.HydrateTemplateController:
		if li.Controller == nil || li.Controller.Stub {
			// Cascade suppression (spec 4.5): no contracts for a stubbed
			// controller's own expression or its def's contents.
			return
		}
		tc.checkControllerTrigger(ins, li.Controller.Config, exprs, bag, mod)
		if li.Def != nil {
			tc.walkTemplate(li.Def, exprs, bag, mod)
		}
	}
}

func (tc *Typechecker) checkControllerTrigger(ins ir.Instruction, cc catalog.ControllerConfig, exprs map[ident.ExprId]*ir.ExprTableEntry, bag *diag.Bag, mod *Module) {
	if cc.Trigger.Kind == catalog.TriggerBranch || cc.Trigger.Kind == catalog.TriggerMarker {
		return // branch aliases and markers carry no expression to check
	}
	expected := TypeAny
	if b, ok := cc.Props[cc.Trigger.Prop]; ok && b.Type != "" {
		expected = TypeString(b.Type)
	}
	contract := BindingContract{Type: expected, Context: ContextControllerProp, Severity: tc.severityFor("typeMismatch")}
	tc.checkBindingSource(ins.From, contract, exprs, bag, mod)
}

func (tc *Typechecker) contractForTarget(t link.TargetSem, sem link.NodeSem) (BindingContract, bool) {
	switch t.Kind {
	case link.TargetElementBindable, link.TargetAttributeBindable, link.TargetControllerProp:
		bindableType := TypeAny
		if sem.Custom != nil {
			if b, ok := sem.Custom.Bindables[t.Prop]; ok && b.Type != "" {
				bindableType = TypeString(b.Type)
			}
		}
		return BindingContract{Type: bindableType, Context: ContextComponentBindable, Severity: tc.severityFor("typeMismatch"), AllowCoercion: CoercionAllowed{Truthy: true}}, true
	case link.TargetElementNativeProp:
		propType := TypeAny
		if sem.Native != nil {
			if ref, ok := sem.Native.Props[t.Prop]; ok && ref != "" {
				propType = TypeString(ref)
			}
		}
		return BindingContract{Type: propType, Context: ContextDomProperty, Severity: tc.severityFor("typeMismatch"), AllowCoercion: CoercionAllowed{Dom: tc.Config.DomCoercion, NullToString: true}}, true
	case link.TargetAttribute:
		return BindingContract{Type: TypeStr, Context: ContextDomAttribute, Severity: tc.severityFor("typeMismatch"), AllowCoercion: CoercionAllowed{Dom: tc.Config.DomCoercion, NullToString: true}}, true
	case link.TargetStyle:
		return BindingContract{Type: "string | number", Context: ContextStyleProperty, Severity: tc.severityFor("typeMismatch")}, true
	default:
		return BindingContract{}, false
	}
}

func (tc *Typechecker) severityFor(class string) Severity {
	switch class {
	case "typeMismatch":
		return severityFromString(tc.Config.TypeMismatch)
	case "nullToString":
		return severityFromString(tc.Config.NullToString)
	default:
		return SeverityWarning
	}
}

// exprRefs returns src's expression occurrences with their spans, in order
// (BindingSource.ExprIds discards the span each id was authored at, which
// diagnostics need).
func exprRefs(src ir.BindingSource) []ir.ExprRef {
	if src.Kind == ir.FromExprRef {
		if src.Expr.ID == 0 && src.Expr.Code == "" {
			return nil
		}
		return []ir.ExprRef{src.Expr}
	}
	return src.Exprs
}

func (tc *Typechecker) checkBindingSource(src ir.BindingSource, contract BindingContract, exprs map[ident.ExprId]*ir.ExprTableEntry, bag *diag.Bag, mod *Module) {
	for _, ref := range exprRefs(src) {
		entry, ok := exprs[ref.ID]
		if !ok || entry.ExpressionType == ir.BadExpression {
			continue
		}
		mod.Contracts[ref.ID] = contract
		mod.ExpectedByExpr[ref.ID] = contract.Type
		tc.checkChainNames(entry.AST, ref.Loc, bag)
		actual := tc.Typer.TypeOf(entry.AST)
		tc.checkCompatible(ref.Loc, contract, actual, bag)
	}
}

// checkChainNames validates every "| converter" and "& behavior" name an
// expression's binding chain references against the catalog (spec 6.3
// AU0101/AU0103), independent of the expression's own type compatibility.
func (tc *Typechecker) checkChainNames(ast *exprlang.AST, loc ident.SourceSpan, bag *diag.Bag) {
	for _, ref := range ast.ValueConverters() {
		if _, ok := tc.Catalog.ValueConverter(ref.Name); !ok {
			bag.Add(diag.New(diag.CodeValueConverterNotFound, chainNameSpan(loc, ref), "value converter %q not found", ref.Name))
		}
	}
	for _, ref := range ast.BindingBehaviors() {
		if _, ok := tc.Catalog.BindingBehavior(ref.Name); !ok {
			bag.Add(diag.New(diag.CodeBindingBehaviorNotFound, chainNameSpan(loc, ref), "binding behavior %q not found", ref.Name))
		}
	}
}

// chainNameSpan recovers a name's absolute source span from its
// code-relative offset (exprlang.NameRef.Start) plus the enclosing
// expression occurrence's own span.
func chainNameSpan(loc ident.SourceSpan, ref exprlang.NameRef) ident.SourceSpan {
	start := loc.Start + uint32(ref.Start)
	return ident.SourceSpan{File: loc.File, Start: start, End: start + uint32(len(ref.Name))}
}

// checkCompatible implements spec 4.5's coercion rules. class numbers the
// AU2001+ diagnostic codes, one per coercion class (spec 6.3).
func (tc *Typechecker) checkCompatible(span ident.SourceSpan, contract BindingContract, actual TypeString, bag *diag.Bag) {
	if contract.Severity == SeverityOff {
		return
	}
	if isUnresolvable(actual) || actual == "" || actual == TypeAny || contract.Type == TypeAny {
		return
	}
	if typesOverlap(contract.Type, actual) {
		return
	}

	if contract.AllowCoercion.Function && isFunctionLike(actual) {
		return
	}
	if isNullish(actual) {
		if contract.AllowCoercion.NullToString && (contract.Context == ContextDomProperty || contract.Context == ContextDomAttribute) {
			sev := tc.severityFor("nullToString")
			if sev != SeverityOff {
				bag.Add(severityDiag(sev, diag.TypecheckCode(2), span, "null/undefined not assignable to %q", contract.Type))
			}
			return
		}
		// component.bindable + boolean rejects null/undefined outright: no
		// coercion path accepts it, so nothing returns here and control
		// falls to the mismatch diagnostic below.
	}
	if contract.AllowCoercion.Dom && (contract.Context == ContextDomProperty || contract.Context == ContextDomAttribute) {
		if actual == TypeNumber || actual == TypeBool {
			return // coerced=true, no diagnostic
		}
	}
	if contract.AllowCoercion.Truthy && contract.Type == TypeBool {
		if actual == TypeNumber || actual == TypeStr || strings.HasSuffix(string(actual), "[]") {
			return // coerced=true
		}
	}

	if contract.Severity != SeverityOff {
		bag.Add(severityDiag(contract.Severity, diag.TypecheckCode(1), span, "type %q not assignable to %q", actual, contract.Type))
	}
}

func severityDiag(sev Severity, code diag.Code, span ident.SourceSpan, format string, args ...any) diag.Diagnostic {
	d := diag.New(code, span, format, args...)
	if sev == SeverityWarning {
		d.Severity = diag.SeverityWarning
	}
	return d
}

func isUnresolvable(t TypeString) bool {
	s := string(t)
	for _, pfx := range []string{"Record<", "NonNullable<", "ReturnType<", "Partial<", "Pick<", "Omit<"} {
		if strings.HasPrefix(s, pfx) {
			return true
		}
	}
	return false
}

func isNullish(t TypeString) bool {
	for _, part := range strings.Split(string(t), "|") {
		part = strings.TrimSpace(part)
		if part == "null" || part == "undefined" {
			return true
		}
	}
	return false
}

func isFunctionLike(t TypeString) bool {
	s := strings.TrimSpace(string(t))
	return s == string(catalog.TypeFunction) || strings.Contains(s, "=>") || strings.HasPrefix(s, "ReturnType<")
}

// typesOverlap is a best-effort structural compatibility check: exact
// match, or a shared member across "|"-separated unions.
func typesOverlap(expected, actual TypeString) bool {
	if expected == actual {
		return true
	}
	expParts := strings.Split(string(expected), "|")
	actParts := strings.Split(string(actual), "|")
	for _, e := range expParts {
		e = strings.TrimSpace(e)
		for _, a := range actParts {
			if e == strings.TrimSpace(a) {
				return true
			}
		}
	}
	return false
}
