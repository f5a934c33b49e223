package typecheck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/exprlang"
	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
	"github.com/aureliago/tplcore/link"
	"github.com/aureliago/tplcore/lower"
)

// fixedTyper always reports the same type, enough to exercise one coercion
// path per test without needing to distinguish which expression is being
// asked about.
type fixedTyper struct{ t TypeString }

func (f fixedTyper) TypeOf(*exprlang.AST) TypeString { return f.t }

func lowerLinkCheck(t *testing.T, cat catalog.Catalog, cfg Config, typer ExprTyper, source string) *Module {
	t.Helper()
	lw := lower.New(cat, exprlang.NewDefaultParser())
	file := ident.NewSourceFileId("t.html")
	tmpl, err := lw.Lower(source, file)
	require.NoError(t, err)
	lm := link.New(cat).Link(tmpl)
	require.Empty(t, lm.Diagnostics)
	return New(cat, cfg, typer).Check(lm.Root)
}

func TestTypecheck_Disabled_ProducesNoContracts(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	mod := lowerLinkCheck(t, cat, DefaultConfig(PresetOff), fixedTyper{TypeNumber}, `<input value.bind="age">`)

	require.Empty(t, mod.Contracts)
	require.Empty(t, mod.Diagnostics)
}

func TestTypecheck_NativeProp_NumberCoercedUnderDomCoercion(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{TypeNumber}, `<input value.bind="age">`)

	require.Empty(t, mod.Diagnostics, "number is coercible to a DOM string prop under domCoercion")
	require.Len(t, mod.Contracts, 1)
}

func TestTypecheck_NativeProp_NumberRejectedUnderStrict(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	cfg := DefaultConfig(PresetStrict)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{TypeNumber}, `<input value.bind="age">`)

	require.Len(t, mod.Diagnostics, 1, "strict preset turns domCoercion off")
	require.Equal(t, "AU2001", string(mod.Diagnostics[0].Code))
}

func TestTypecheck_ComponentBindable_BooleanRejectsNull(t *testing.T) {
	cat := catalog.NewStandardCatalog().AddElement(catalog.ElementRes{
		Name:      "toggle-box",
		Bindables: map[string]catalog.Bindable{"checked": {Name: "checked", Type: catalog.TypeBoolean}},
	})
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{"null"}, `<toggle-box checked.bind="maybe"></toggle-box>`)

	require.Len(t, mod.Diagnostics, 1, "boolean bindables reject null/undefined rather than coercing")
	require.Equal(t, "AU2001", string(mod.Diagnostics[0].Code))
}

func TestTypecheck_ComponentBindable_BooleanAcceptsTruthyString(t *testing.T) {
	cat := catalog.NewStandardCatalog().AddElement(catalog.ElementRes{
		Name:      "toggle-box",
		Bindables: map[string]catalog.Bindable{"checked": {Name: "checked", Type: catalog.TypeBoolean}},
	})
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{TypeStr}, `<toggle-box checked.bind="label"></toggle-box>`)

	require.Empty(t, mod.Diagnostics, "a string is accepted into a boolean bindable via truthy coercion")
}

func TestTypecheck_EventHandler_RequiresFunction(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{TypeNumber}, `<button click.trigger="count"></button>`)

	require.Len(t, mod.Diagnostics, 1)
	require.Equal(t, "AU2001", string(mod.Diagnostics[0].Code))
}

func TestTypecheck_EventHandler_FunctionTypeAccepted(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{"() => void"}, `<button click.trigger="go()"></button>`)

	require.Empty(t, mod.Diagnostics)
}

func TestTypecheck_UnresolvedTarget_NoContract(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	lw := lower.New(cat, exprlang.NewDefaultParser())
	file := ident.NewSourceFileId("t.html")
	tmpl, err := lw.Lower(`<nonexistent-widget foo.bind="x"></nonexistent-widget>`, file)
	require.NoError(t, err)
	lm := link.New(cat).Link(tmpl)
	require.NotEmpty(t, lm.Diagnostics, "Link itself should already flag the unresolved target")

	mod := New(cat, DefaultConfig(PresetStandard), fixedTyper{TypeNumber}).Check(lm.Root)
	require.Empty(t, mod.Contracts, "cascade suppression: an unresolved target gets no binding contract")
}

func TestTypecheck_StubController_SkipsDefContents(t *testing.T) {
	cat := catalog.NewStandardCatalog()

	inner := &ir.TemplateIR{
		ExprTable: []ir.ExprTableEntry{{ID: 2, ExpressionType: ir.Interpolation}},
		Rows: []ir.InstructionRow{{
			Target: "/0",
			Instructions: []ir.Instruction{{
				Kind: ir.TextBinding,
				Text: ir.BindingSource{Kind: ir.FromExprRef, Expr: ir.ExprRef{ID: 2, Code: "x"}},
			}},
		}},
	}
	root := &ir.TemplateIR{
		ExprTable: []ir.ExprTableEntry{{ID: 1, ExpressionType: ir.IsAssign}},
		Rows: []ir.InstructionRow{{
			Target: "/0",
			Instructions: []ir.Instruction{{
				Kind:           ir.HydrateTemplateController,
				ControllerName: "mystery-controller",
				From:           ir.BindingSource{Kind: ir.FromExprRef, Expr: ir.ExprRef{ID: 1, Code: "y"}},
				Def:            inner,
			}},
		}},
	}

	lm := link.New(cat).Link(root)
	require.Len(t, lm.Diagnostics, 1)
	require.Equal(t, "AU1101", string(lm.Diagnostics[0].Code))

	mod := New(cat, DefaultConfig(PresetStandard), fixedTyper{TypeNumber}).Check(lm.Root)
	require.Empty(t, mod.Contracts, "a stubbed controller's own trigger and its def's contents get no contracts")
}

func TestTypecheck_ControllerProp_UsesConfiguredType(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{"null"}, `<li repeat.for="item of items"></li>`)

	require.Empty(t, mod.Diagnostics, "repeat's iterable prop has no configured type in the standard catalog, so an unresolvable/any comparison is skipped")
}

func TestTypecheck_UnknownValueConverter_Flagged(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{TypeStr}, `<div>${msg | upperCase}</div>`)

	var found bool
	for _, d := range mod.Diagnostics {
		if string(d.Code) == "AU0103" {
			found = true
		}
	}
	require.True(t, found, "an unregistered value converter in a chain must raise AU0103")
}

func TestTypecheck_RegisteredValueConverter_NoDiagnostic(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{TypeStr}, `<div>${msg | sanitize}</div>`)

	require.Empty(t, mod.Diagnostics, "sanitize is a standard built-in value converter")
}

func TestTypecheck_UnknownBindingBehavior_Flagged(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{TypeStr}, `<input value.bind="name & mystery">`)

	var found bool
	for _, d := range mod.Diagnostics {
		if string(d.Code) == "AU0101" {
			found = true
		}
	}
	require.True(t, found, "an unregistered binding behavior in a chain must raise AU0101")
}

func TestTypecheck_RegisteredBindingBehavior_NoDiagnostic(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	cfg := DefaultConfig(PresetStandard)
	mod := lowerLinkCheck(t, cat, cfg, fixedTyper{TypeStr}, `<input value.bind="name & debounce:500">`)

	require.Empty(t, mod.Diagnostics, "debounce is a standard built-in binding behavior")
}

func TestTypecheck_Disabled_SkipsChainNameChecks(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	mod := lowerLinkCheck(t, cat, DefaultConfig(PresetOff), fixedTyper{TypeStr}, `<div>${msg | upperCase}</div>`)

	require.Empty(t, mod.Diagnostics, "AU01xx chain-name checks are gated behind Typecheck the same as contract checks")
}
