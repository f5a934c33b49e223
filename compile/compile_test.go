package compile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/ident"
)

func TestFacade_Compile_ZeroValueDefaults(t *testing.T) {
	var f Facade
	result, err := f.Compile(`<div>${msg}</div>`, ident.NewSourceFileId("t.html"))

	require.NoError(t, err)
	require.Empty(t, result.Diagnostics)
	require.NotNil(t, result.Source)
	require.NotNil(t, result.Linked)
	require.NotNil(t, result.Typecheck)
}

func TestFacade_Compile_AggregatesDiagnosticsAcrossPhases(t *testing.T) {
	f := Facade{Catalog: catalog.NewStandardCatalog()}
	source := `<button zap.trigger="go()"></button><li repeat.for="not a valid header !!">x</li>`
	result, err := f.Compile(source, ident.NewSourceFileId("t.html"))

	require.NoError(t, err)
	var sawUnknownEvent, sawBadHeader bool
	for _, d := range result.Diagnostics {
		if string(d.Code) == "AU1103" {
			sawUnknownEvent = true
		}
		if string(d.Code) == "AU1201" {
			sawBadHeader = true
		}
	}
	require.True(t, sawUnknownEvent, "Link's diagnostics should be present in the aggregated list")
	require.True(t, sawBadHeader, "Bind's diagnostics should be present in the aggregated list")
}

func TestFacade_Compile_ReusesInitAcrossCalls(t *testing.T) {
	f := Facade{Catalog: catalog.NewStandardCatalog()}
	_, err := f.Compile(`<div>a</div>`, ident.NewSourceFileId("a.html"))
	require.NoError(t, err)
	cat := f.Catalog

	_, err = f.Compile(`<div>b</div>`, ident.NewSourceFileId("b.html"))
	require.NoError(t, err)
	require.Same(t, cat, f.Catalog, "ensureInit must not overwrite an explicitly configured Catalog on later calls")
}

func TestFacade_CompileAll_AggregatesAcrossFiles(t *testing.T) {
	f := Facade{Catalog: catalog.NewStandardCatalog()}
	sources := map[ident.SourceFileId]string{
		ident.NewSourceFileId("a.html"): `<button zap.trigger="go()"></button>`,
		ident.NewSourceFileId("b.html"): `<div>${msg}</div>`,
	}

	results, diags, err := f.CompileAll(sources)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, diags, 1)
	require.Equal(t, "AU1103", string(diags[0].Code))
}
