package lower

import (
	"testing"

	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/exprlang"
	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
)

func lowerSource(t *testing.T, source string) *ir.TemplateIR {
	t.Helper()
	cat := catalog.NewStandardCatalog().
		AddAttribute(catalog.AttrRes{Name: "load", Bindables: map[string]catalog.Bindable{
			"route": {Name: "route"}, "params": {Name: "params"},
		}})
	lw := New(cat, exprlang.NewDefaultParser())
	file := ident.NewSourceFileId("t.html")
	tmpl, err := lw.Lower(source, file)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if err := ir.ValidateExprTable(tmpl); err != nil {
		t.Fatalf("ValidateExprTable: %v", err)
	}
	if err := ir.ValidateRowTargets(tmpl); err != nil {
		t.Fatalf("ValidateRowTargets: %v", err)
	}
	return tmpl
}

// Multi-binding custom attribute value, mirroring spec Scenario 1:
// <a load="route.bind: currentRoute; params.bind: routeParams">
func TestLower_MultiBindingCustomAttribute(t *testing.T) {
	source := `<a load="route.bind: currentRoute; params.bind: routeParams"></a>`
	tmpl := lowerSource(t, source)

	if len(tmpl.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(tmpl.Rows))
	}
	row := tmpl.Rows[0]
	if len(row.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(row.Instructions))
	}
	ins := row.Instructions[0]
	if ins.Kind != ir.HydrateAttribute || ins.ElementName != "load" {
		t.Fatalf("unexpected instruction: %+v", ins)
	}
	if len(ins.TailFroms) != 2 {
		t.Fatalf("expected 2 tail bindings, got %d", len(ins.TailFroms))
	}
	if ins.TailFroms[0].To != "route" || ins.TailFroms[1].To != "params" {
		t.Errorf("tail targets = %q, %q", ins.TailFroms[0].To, ins.TailFroms[1].To)
	}
	if got := ins.TailFroms[0].From.Expr.Loc.Slice(source); got != "currentRoute" {
		t.Errorf("route expr span slice = %q, want %q", got, "currentRoute")
	}
	if got := ins.TailFroms[1].From.Expr.Loc.Slice(source); got != "routeParams" {
		t.Errorf("params expr span slice = %q, want %q", got, "routeParams")
	}
}

// Stacked controllers: repeat.for wraps if.bind, outermost first.
func TestLower_StackedControllers_RepeatThenIf(t *testing.T) {
	source := `<li repeat.for="item of items" if.bind="item.active">${item.name}</li>`
	tmpl := lowerSource(t, source)

	if len(tmpl.Rows) != 1 {
		t.Fatalf("expected 1 outer row, got %d", len(tmpl.Rows))
	}
	outer := tmpl.Rows[0].Instructions[0]
	if outer.Kind != ir.HydrateTemplateController || outer.ControllerName != "repeat" {
		t.Fatalf("expected outer repeat controller, got %+v", outer)
	}
	if outer.IterValue != "item" {
		t.Errorf("IterValue = %q", outer.IterValue)
	}
	if outer.Def == nil || len(outer.Def.Rows) != 1 {
		t.Fatalf("expected repeat def with 1 row, got %+v", outer.Def)
	}
	inner := outer.Def.Rows[0].Instructions[0]
	if inner.Kind != ir.HydrateTemplateController || inner.ControllerName != "if" {
		t.Fatalf("expected inner if controller, got %+v", inner)
	}
	if inner.Def == nil || inner.Def.Dom == nil || inner.Def.Dom.Tag != "li" {
		t.Fatalf("expected if's def to hold the real <li>, got %+v", inner.Def)
	}
	if len(inner.Def.Dom.Children) != 1 || inner.Def.Dom.Children[0].Kind != ir.KindText {
		t.Fatalf("expected <li> to keep its text child, got %+v", inner.Def.Dom.Children)
	}
}

// Promise branch: <template then="value"> carries a local alias, not an
// expression to evaluate.
func TestLower_PromiseThenBranch_CarriesAlias(t *testing.T) {
	source := `<template promise.bind="fetchUser()"><template then="user">${user.name}</template></template>`
	tmpl := lowerSource(t, source)

	promiseIns := tmpl.Rows[0].Instructions[0]
	if promiseIns.ControllerName != "promise" {
		t.Fatalf("expected promise controller, got %+v", promiseIns)
	}
	thenIns := promiseIns.Def.Rows[0].Instructions[0]
	if thenIns.ControllerName != "then" {
		t.Fatalf("expected then controller, got %+v", thenIns)
	}
	if thenIns.BranchAlias != "user" {
		t.Errorf("BranchAlias = %q, want %q", thenIns.BranchAlias, "user")
	}
	if thenIns.From.Expr.Code != "" || len(thenIns.From.Exprs) != 0 {
		t.Errorf("expected no expression parsed for then's alias, got %+v", thenIns.From)
	}
}

func TestLower_Interpolation_TextBinding(t *testing.T) {
	source := `<div>Hello, ${name}!</div>`
	tmpl := lowerSource(t, source)

	if len(tmpl.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(tmpl.Rows))
	}
	ins := tmpl.Rows[0].Instructions[0]
	if ins.Kind != ir.TextBinding {
		t.Fatalf("expected textBinding, got %+v", ins)
	}
	if len(ins.Text.Parts) != 2 || len(ins.Text.Exprs) != 1 {
		t.Fatalf("expected 2 parts / 1 expr, got %+v", ins.Text)
	}
	if ins.Text.Parts[0] != "Hello, " || ins.Text.Parts[1] != "!" {
		t.Errorf("parts = %q, %q", ins.Text.Parts[0], ins.Text.Parts[1])
	}
}

func TestLower_StaticAttributePreserved(t *testing.T) {
	source := `<div class="widget" data-id="42"></div>`
	tmpl := lowerSource(t, source)

	div := tmpl.Dom.Children[0]
	if len(div.Attrs) != 2 {
		t.Fatalf("expected 2 static attrs, got %+v", div.Attrs)
	}
}
