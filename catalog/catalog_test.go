package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapCatalog_CaseInsensitiveLookup(t *testing.T) {
	c := NewMapCatalog().AddElement(ElementRes{Name: "MyWidget"})

	e, ok := c.Element("mywidget")
	require.True(t, ok)
	require.Equal(t, "MyWidget", e.Name)

	_, ok = c.Element("other")
	require.False(t, ok)
}

func TestMapCatalog_EventScopedToTagWinsOverGlobal(t *testing.T) {
	c := NewMapCatalog()
	c.AddEvent("change", "", TypeFunction)
	c.AddEvent("change", "select", TypeRef("(ev: Event) => void"))

	global, ok := c.Event("change", "div")
	require.True(t, ok)
	require.Equal(t, TypeFunction, global)

	scoped, ok := c.Event("change", "select")
	require.True(t, ok)
	require.Equal(t, TypeRef("(ev: Event) => void"), scoped)
}

func TestMapCatalog_NamingRuleFallsBackToGlobal(t *testing.T) {
	c := NewMapCatalog().AddNamingRule("classname", "", "className")

	prop, ok := c.NamingRule("classname", "span")
	require.True(t, ok)
	require.Equal(t, "className", prop)
}

func TestStandardCatalog_RepeatContextualsAreCatalogData(t *testing.T) {
	c := NewStandardCatalog()

	cc, ok := c.ControllerConfig("repeat")
	require.True(t, ok)
	require.ElementsMatch(t, []string{"$index", "$first", "$last", "$even", "$odd", "$length", "$this", "$parent"}, cc.Injects.Contextuals)
	require.Equal(t, ScopeOverlay, cc.Scope)
}

func TestStandardCatalog_InputValueIsTwoWayDefault(t *testing.T) {
	c := NewStandardCatalog()

	defaults := c.TwoWayDefaults("input")
	require.True(t, defaults["value"])
}

func TestStandardCatalog_PreservedAttrPrefixes(t *testing.T) {
	c := NewStandardCatalog()
	require.Equal(t, []string{"data-", "aria-"}, c.PreservedAttrPrefixes())
}
