package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/exprlang"
	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/lower"
)

func TestBind_Repeat_MaterializesLocalsAndContextuals(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	lw := lower.New(cat, exprlang.NewDefaultParser())
	file := ident.NewSourceFileId("t.html")
	tmpl, err := lw.Lower(`<li repeat.for="item, i of items">${item.name}${$index}</li>`, file)
	require.NoError(t, err)

	st, diags := New(cat).Bind(tmpl)
	require.Empty(t, diags)
	require.Len(t, st.Frames, 2)

	overlay := st.Frames[1]
	require.Equal(t, FrameOverlay, overlay.Kind)
	require.NotNil(t, overlay.Origin)
	require.Equal(t, OriginRepeat, overlay.Origin.Kind)

	var names []string
	for _, s := range overlay.Symbols {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "item")
	require.Contains(t, names, "i")
	require.Contains(t, names, "$index")
	require.Contains(t, names, "$this")
}

func TestBind_If_ReuseScope_NoNewFrame(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	lw := lower.New(cat, exprlang.NewDefaultParser())
	file := ident.NewSourceFileId("t.html")
	tmpl, err := lw.Lower(`<div if.bind="visible">${msg}</div>`, file)
	require.NoError(t, err)

	st, diags := New(cat).Bind(tmpl)
	require.Empty(t, diags)
	require.Len(t, st.Frames, 1, "if is reuse-scoped: no overlay frame allocated")
}

func TestBind_PromiseThenBranch_AddsAlias(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	lw := lower.New(cat, exprlang.NewDefaultParser())
	file := ident.NewSourceFileId("t.html")
	tmpl, err := lw.Lower(`<template promise.bind="p"><template then="user">${user.name}</template></template>`, file)
	require.NoError(t, err)

	st, diags := New(cat).Bind(tmpl)
	require.Empty(t, diags)
	require.Len(t, st.Frames, 2)

	overlay := st.Frames[1]
	require.Equal(t, OriginPromise, overlay.Origin.Kind)
	require.Len(t, overlay.Symbols, 1)
	require.Equal(t, SymbolPromiseAlias, overlay.Symbols[0].Kind)
	require.Equal(t, "user", overlay.Symbols[0].Name)
	require.Equal(t, "then", overlay.Symbols[0].Branch)
}

func TestBind_DuplicateLocal_Reported(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	lw := lower.New(cat, exprlang.NewDefaultParser())
	file := ident.NewSourceFileId("t.html")
	tmpl, err := lw.Lower(`<let a.bind="1"></let><let a.bind="2"></let>`, file)
	require.NoError(t, err)

	_, diags := New(cat).Bind(tmpl)
	require.Len(t, diags, 1)
	require.Equal(t, "AU1202", string(diags[0].Code))
}

func TestBind_BadRepeatHeader_ExcludedFromExprToFrame(t *testing.T) {
	cat := catalog.NewStandardCatalog()
	lw := lower.New(cat, exprlang.NewDefaultParser())
	file := ident.NewSourceFileId("t.html")
	tmpl, err := lw.Lower(`<li repeat.for="not a valid header !!">x</li>`, file)
	require.NoError(t, err)

	st, diags := New(cat).Bind(tmpl)
	require.Len(t, diags, 1)
	require.Equal(t, "AU1201", string(diags[0].Code))
	require.Empty(t, st.ExprToFrame)
}
