package meta

import (
	"testing"

	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
)

func TestParseImport_Scenario5(t *testing.T) {
	file := ident.NewSourceFileId("a.html")
	fromVal := "./converters"
	fromSpan := ident.SourceSpan{File: file, Start: 15, End: uint32(15 + len(fromVal))}

	aliasVal := "df"
	// "DateFormat.as" attribute name, recovered to original case by the caller.
	aliasSpan := ident.SourceSpan{File: file, Start: 40, End: uint32(40 + len(aliasVal))}

	m, ok := ParseImport(ir.ImportKindImport, []RawAttr{
		{Name: "from", Value: fromVal, ValueSpan: fromSpan},
		{Name: "DateFormat.as", Value: aliasVal, ValueSpan: aliasSpan},
	}, ident.SourceSpan{File: file, Start: 0, End: 50})

	if !ok {
		t.Fatal("expected ok=true")
	}
	if m.From.Value != "./converters" {
		t.Errorf("From.Value = %q", m.From.Value)
	}
	if len(m.NamedAliases) != 1 {
		t.Fatalf("expected 1 named alias, got %d", len(m.NamedAliases))
	}
	if m.NamedAliases[0].ExportName.Value != "DateFormat" {
		t.Errorf("ExportName.Value = %q, want original case preserved", m.NamedAliases[0].ExportName.Value)
	}
	if m.NamedAliases[0].Alias.Value != "df" {
		t.Errorf("Alias.Value = %q", m.NamedAliases[0].Alias.Value)
	}
}

func TestParseImport_MissingFromIsSkipped(t *testing.T) {
	_, ok := ParseImport(ir.ImportKindImport, []RawAttr{{Name: "foo", Value: "bar"}}, ident.SourceSpan{})
	if ok {
		t.Fatal("expected ok=false when 'from' is missing")
	}
}

func TestParseAlias_ThreeNamesEachOwnSpan(t *testing.T) {
	file := ident.NewSourceFileId("a.html")
	value := "a, b, c"
	span := ident.SourceSpan{File: file, Start: 100, End: uint32(100 + len(value))}

	aliases := ParseAlias(value, span)
	if len(aliases) != 3 {
		t.Fatalf("expected 3 aliases, got %d", len(aliases))
	}
	want := []string{"a", "b", "c"}
	for i, a := range aliases {
		if a.Name.Value != want[i] {
			t.Errorf("aliases[%d].Name.Value = %q, want %q", i, a.Name.Value, want[i])
		}
		got := value[a.Name.Loc.Start-100 : a.Name.Loc.End-100]
		if got != want[i] {
			t.Errorf("aliases[%d] span slice = %q, want %q", i, got, want[i])
		}
	}
}

func TestParseBindableList_TwoDistinctEntriesSharedSpan(t *testing.T) {
	file := ident.NewSourceFileId("a.html")
	value := "a, b"
	span := ident.SourceSpan{File: file, Start: 5, End: uint32(5 + len(value))}

	entries := ParseBindableList(value, span)
	if len(entries) != 2 {
		t.Fatalf("expected 2 bindable entries, got %d", len(entries))
	}
	if entries[0].Name.Value != "a" || entries[1].Name.Value != "b" {
		t.Errorf("entries = %+v", entries)
	}
	if entries[0].Span != span || entries[1].Span != span {
		t.Errorf("expected both entries to share the attribute span")
	}
}
