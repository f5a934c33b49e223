// Package compile is the Facade (component K): it wires Lower, Link, Bind,
// and Typecheck into one call per source file, aggregating every phase's
// diagnostics into one deterministically ordered list — grounded on
// pages.Handler's ServeHTTP (lazy sync.Once init, a discard logger default,
// one error-wrapping entry point per request) applied here to "one compile
// per file" instead of "one render per request".
package compile

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aureliago/tplcore/catalog"
	"github.com/aureliago/tplcore/diag"
	"github.com/aureliago/tplcore/exprlang"
	"github.com/aureliago/tplcore/ident"
	"github.com/aureliago/tplcore/ir"
	"github.com/aureliago/tplcore/link"
	"github.com/aureliago/tplcore/lower"
	"github.com/aureliago/tplcore/scope"
	"github.com/aureliago/tplcore/typecheck"
)

// Result is one file's compilation output across all four phases.
type Result struct {
	Source      *ir.TemplateIR
	Linked      *link.LinkedModule
	Scope       scope.ScopeTemplate
	Typecheck   *typecheck.Module
	Diagnostics []diag.Diagnostic
}

// Facade runs the Lower→Link→Bind→Typecheck pipeline against one fixed
// Catalog, expression Parser, and typecheck Config. Zero value is usable:
// Compile lazily fills in a standard catalog, the expr-lang parser, and a
// discard logger the first time it's called, mirroring pages.Handler's
// ServeHTTP-time defaulting.
type Facade struct {
	// Catalog resolves element/attribute/controller/event names during
	// Link and Bind. Defaults to catalog.NewStandardCatalog().
	Catalog catalog.Catalog

	// Parser parses binding expression source during Lower. Defaults to
	// exprlang.NewDefaultParser().
	Parser exprlang.Parser

	// TypecheckConfig configures phase 40. Defaults to
	// typecheck.DefaultConfig(typecheck.PresetStandard).
	TypecheckConfig typecheck.Config

	// Typer supplies inferred expression types during Typecheck. Defaults
	// to typecheck.AnyTyper{} (every expression types as "any").
	Typer typecheck.ExprTyper

	// Logger configures logging for internal compile events. Defaults to
	// a discard logger.
	Logger *slog.Logger

	init        sync.Once
	logger      *slog.Logger
	lowerer     *lower.Lowerer
	linker      *link.Linker
	binder      *scope.Binder
	typechecker *typecheck.Typechecker
}

func (f *Facade) ensureInit() {
	f.init.Do(func() {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		if f.Logger != nil {
			f.logger = f.Logger
		}
		if f.Catalog == nil {
			f.Catalog = catalog.NewStandardCatalog()
		}
		if f.Parser == nil {
			f.Parser = exprlang.NewDefaultParser()
		}
		if f.TypecheckConfig == (typecheck.Config{}) {
			f.TypecheckConfig = typecheck.DefaultConfig(typecheck.PresetStandard)
		}
		if f.Typer == nil {
			f.Typer = typecheck.AnyTyper{}
		}
		f.lowerer = lower.New(f.Catalog, f.Parser)
		f.linker = link.New(f.Catalog)
		f.binder = scope.New(f.Catalog)
		f.typechecker = typecheck.New(f.Catalog, f.TypecheckConfig, f.Typer)
	})
}

// Compile runs all four phases over source, identified by file for
// diagnostic spans. It never returns a Go error for malformed template
// markup or bindings — those surface as diagnostics in Result.Diagnostics,
// the same "report, don't throw" contract Lower's own Parser follows;
// Compile's error return is reserved for failures outside that contract
// (e.g. a Lowerer that can't tokenize the input at all).
func (f *Facade) Compile(source string, file ident.SourceFileId) (*Result, error) {
	f.ensureInit()

	f.logger.Debug("compile: lower", "file", file)
	tmpl, err := f.lowerer.Lower(source, file)
	if err != nil {
		f.logger.Error("compile: lower failed", "file", file, "error", err)
		return nil, fmt.Errorf("lower %v: %w", file, err)
	}

	f.logger.Debug("compile: link", "file", file)
	linked := f.linker.Link(tmpl)

	f.logger.Debug("compile: bind", "file", file)
	scopeTemplate, bindDiags := f.binder.Bind(tmpl)

	f.logger.Debug("compile: typecheck", "file", file)
	tc := f.typechecker.Check(linked.Root)

	var bag diag.Bag
	bag.Add(linked.Diagnostics...)
	bag.Add(bindDiags...)
	bag.Add(tc.Diagnostics...)

	result := &Result{
		Source:      tmpl,
		Linked:      linked,
		Scope:       scopeTemplate,
		Typecheck:   tc,
		Diagnostics: bag.Sorted(),
	}

	f.logger.Debug("compile: done", "file", file, "diagnostics", len(result.Diagnostics))
	return result, nil
}

// CompileAll runs Compile over every (source, file) pair in sources and
// aggregates diagnostics across every file in one deterministic, sorted
// list — the multi-file counterpart Bind's own BindModule provides for a
// single phase, lifted to the whole pipeline.
func (f *Facade) CompileAll(sources map[ident.SourceFileId]string) (map[ident.SourceFileId]*Result, []diag.Diagnostic, error) {
	f.ensureInit()

	results := make(map[ident.SourceFileId]*Result, len(sources))
	var bag diag.Bag
	for file, source := range sources {
		r, err := f.Compile(source, file)
		if err != nil {
			return nil, nil, err
		}
		results[file] = r
		bag.Add(r.Diagnostics...)
	}
	return results, bag.Sorted(), nil
}
