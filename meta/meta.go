// Package meta implements Meta Extraction (spec 2 component E, 4.1): the
// pure, source-text-driven rules for turning recognized meta
// tags/attributes into ir.TemplateMeta entries. It does not walk HTML
// itself — lower (phase 10) drives the tokenizer and calls into this
// package once it recognizes a candidate meta element or attribute,
// grounded on chtml/parse.go's parseImportElement/finalizeCElement.
package meta

import (
	"strings"

	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
)

// MetaTagNames are the recognized meta element names (spec 4.1). "slot" is
// included because it is recognized (hasSlot is recorded) even though,
// uniquely among these, it is NOT stripped from the DOM.
var MetaTagNames = map[string]bool{
	"import": true, "require": true, "bindable": true,
	"use-shadow-dom": true, "containerless": true, "capture": true,
	"alias": true, "slot": true,
}

// TemplateAttrNames are the attributes that, when authored directly on a
// <template> element, produce equivalent meta entries (spec 4.1).
var TemplateAttrNames = map[string]bool{
	"use-shadow-dom": true, "containerless": true, "capture": true,
	"alias": true, "bindable": true,
}

// RawAttr is one attribute as read from source, with its value's span and
// the original-case slice of source text backing Name (parse5-style
// tokenizers lowercase attribute names; the caller is responsible for
// recovering original casing from source text before calling into this
// package, per spec 4.1's "projected back to source text" rule).
type RawAttr struct {
	Name      string
	Value     string
	ValueSpan ident.SourceSpan
}

// ParseImport builds an ImportMeta from a <import>/<require> element's
// attributes. Returns ok=false when the required "from" attribute is
// missing — "the meta entry is skipped (no diagnostic at this layer)"
// (spec 4.1 Failure).
func ParseImport(kind ir.ImportKind, attrs []RawAttr, elemSpan ident.SourceSpan) (ir.ImportMeta, bool) {
	var from *RawAttr
	var namedAliases []ir.NamedAlias

	for i := range attrs {
		a := attrs[i]
		if strings.EqualFold(a.Name, "from") {
			from = &attrs[i]
			continue
		}
		// "ExportName.as" pattern: the attribute name (original case
		// recovered by the caller) up to ".as" is the export name.
		if idx := strings.LastIndex(a.Name, ".as"); idx >= 0 && idx+3 == len(a.Name) {
			exportName := a.Name[:idx]
			namedAliases = append(namedAliases, ir.NamedAlias{
				ExportName: ir.Located[string]{Value: exportName, Loc: nameSpanOf(a)},
				Alias:      ir.Located[string]{Value: a.Value, Loc: a.ValueSpan},
			})
		}
	}

	if from == nil {
		return ir.ImportMeta{}, false
	}

	return ir.ImportMeta{
		Kind:         kind,
		From:         ir.Located[string]{Value: from.Value, Loc: from.ValueSpan},
		NamedAliases: namedAliases,
		Span:         elemSpan,
	}, true
}

// nameSpanOf is a placeholder until callers pass attribute-name spans
// through; without one, the export name location is reported as the
// value's span, a safe degraded position for diagnostics.
func nameSpanOf(a RawAttr) ident.SourceSpan { return a.ValueSpan }

// ParseAlias splits a comma-separated "name, name, name" alias list into
// individual Located names, each trimmed to its own span within the
// shared attribute value span (spec 4.1: "<alias name="a, b, c"> yields a
// single AliasMeta with three Located<Name> entries").
func ParseAlias(value string, valueSpan ident.SourceSpan) []ir.AliasMeta {
	return splitCommaList(value, valueSpan, func(name string, span ident.SourceSpan) ir.AliasMeta {
		return ir.AliasMeta{Name: ir.Located[string]{Value: name, Loc: span}}
	})
}

// ParseBindableList splits a <template bindable="a, b"> value into two
// distinct BindableMeta entries sharing the attribute's span (spec 9, open
// question 2), each with its own trimmed name location.
func ParseBindableList(value string, valueSpan ident.SourceSpan) []ir.BindableMeta {
	return splitCommaList(value, valueSpan, func(name string, span ident.SourceSpan) ir.BindableMeta {
		return ir.BindableMeta{Name: ir.Located[string]{Value: name, Loc: span}, Span: valueSpan}
	})
}

func splitCommaList[T any](value string, valueSpan ident.SourceSpan, build func(name string, span ident.SourceSpan) T) []T {
	var out []T
	pos := 0
	for _, raw := range strings.Split(value, ",") {
		start := pos
		pos += len(raw) + 1 // +1 accounts for the consumed comma
		trimmed := strings.TrimLeft(raw, " \t\n\r")
		leadTrim := len(raw) - len(trimmed)
		trimmed = strings.TrimRight(trimmed, " \t\n\r")
		if trimmed == "" {
			continue
		}
		nameStart := start + leadTrim
		span := ident.SourceSpan{
			File:  valueSpan.File,
			Start: valueSpan.Start + uint32(nameStart),
			End:   valueSpan.Start + uint32(nameStart+len(trimmed)),
		}
		out = append(out, build(trimmed, span))
	}
	return out
}
