package ident

import "testing"

func TestNewSourceFileId_CaseInsensitive(t *testing.T) {
	a := NewSourceFileId(`src/Views/Home.html`)
	b := NewSourceFileId(`src/views/home.html`)
	if a != b {
		t.Errorf("expected equal ids, got %q and %q", a, b)
	}
}

func TestNewSourceFileId_Cleans(t *testing.T) {
	a := NewSourceFileId("src/./views/../views/home.html")
	b := NewSourceFileId("src/views/home.html")
	if a != b {
		t.Errorf("expected cleaned path to match, got %q and %q", a, b)
	}
}

func TestSourceSpan_Slice(t *testing.T) {
	src := "hello world"
	s := SourceSpan{Start: 6, End: 11}
	if got := s.Slice(src); got != "world" {
		t.Errorf("Slice() = %q, want %q", got, "world")
	}
}

func TestSourceSpan_IsZero(t *testing.T) {
	if !(SourceSpan{}).IsZero() {
		t.Error("zero-value span should be IsZero")
	}
	if (SourceSpan{Start: 1, End: 2}).IsZero() {
		t.Error("non-zero span should not be IsZero")
	}
}

func TestProvenance_Span_PrefersOrigin(t *testing.T) {
	origin := Authored(SourceSpan{Start: 1, End: 2}, "")
	fallback := SourceSpan{Start: 10, End: 20}
	p := Provenance{Origin: &origin, FallbackSpan: &fallback}

	if got := p.Span(); got != origin.Span {
		t.Errorf("Span() = %v, want origin span %v", got, origin.Span)
	}
}

func TestProvenance_Span_FallsBackWhenNoOrigin(t *testing.T) {
	fallback := SourceSpan{Start: 10, End: 20}
	p := Provenance{FallbackSpan: &fallback}

	if got := p.Span(); got != fallback {
		t.Errorf("Span() = %v, want fallback %v", got, fallback)
	}
}

func TestNodeId_Hierarchy(t *testing.T) {
	root := RootNodeId
	first := root.Child(0)
	if first != "/0" {
		t.Errorf("Child(0) = %q, want %q", first, "/0")
	}
	text := first.TextChild(2)
	if text != "/0#text@2" {
		t.Errorf("TextChild(2) = %q, want %q", text, "/0#text@2")
	}
}

func TestNewExprId_Deterministic(t *testing.T) {
	file := NewSourceFileId("a.html")
	id1 := NewExprId(file, 3, 10, "item.active")
	id2 := NewExprId(file, 3, 10, "item.active")
	if id1 != id2 {
		t.Errorf("expected deterministic ids, got %v and %v", id1, id2)
	}

	id3 := NewExprId(file, 3, 11, "item.active")
	if id1 == id3 {
		t.Error("expected different spans to produce different ids")
	}
}

func TestOrigin_WithTrace_DoesNotAliasAcrossAppends(t *testing.T) {
	base := Authored(SourceSpan{Start: 0, End: 1}, "")
	a := base.WithTrace("lower", nil)
	b := base.WithTrace("link", nil)

	if len(a.Trace) != 1 || a.Trace[0].By != "lower" {
		t.Fatalf("unexpected trace for a: %+v", a.Trace)
	}
	if len(b.Trace) != 1 || b.Trace[0].By != "link" {
		t.Fatalf("unexpected trace for b: %+v", b.Trace)
	}
}
