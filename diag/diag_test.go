package diag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aureliago/tplcore/ident"
)

func TestBag_SortedDeterministicOrder(t *testing.T) {
	fileA := ident.NewSourceFileId("a.html")
	fileB := ident.NewSourceFileId("b.html")

	var b Bag
	b.Add(
		New(CodeUnknownEvent, ident.SourceSpan{File: fileB, Start: 5, End: 10}, "unknown event %q", "zap"),
		New(CodeUnknownController, ident.SourceSpan{File: fileA, Start: 20, End: 24}, "unknown controller"),
		New(CodeUnknownElement, ident.SourceSpan{File: fileA, Start: 0, End: 4}, "unknown element"),
	)

	got := b.Sorted()
	require.Len(t, got, 3)
	require.Equal(t, CodeUnknownElement, got[0].Code)
	require.Equal(t, fileA, got[0].Span.File)
	require.Equal(t, CodeUnknownController, got[1].Code)
	require.Equal(t, CodeUnknownEvent, got[2].Code)
	require.Equal(t, fileB, got[2].Span.File)
}

func TestDiagnostic_SourceContext(t *testing.T) {
	source := "line one\nline two\nline three\n"
	span := ident.SourceSpan{Start: 14, End: 17} // "two" in "line two"
	d := New(CodeInvalidExpression, span, "bad")

	got := d.SourceContext(source, 1)
	require.Contains(t, got, "line one")
	require.Contains(t, got, "line two")
	require.Contains(t, got, "line three")
}

func TestDiagnostic_WithOrigin_PrefersOriginSpan(t *testing.T) {
	fallback := ident.SourceSpan{Start: 0, End: 1}
	real := ident.SourceSpan{Start: 10, End: 20}
	o := ident.Synthetic("lifted controller wrapper", real, nil)

	d := New(CodeUnknownController, fallback, "stub").WithOrigin(o)
	require.Equal(t, real, d.Span)
	require.NotNil(t, d.Origin)
}
