package repos

import (
	"regexp"
	"testing"

	"scipdex/internal/index"
	"scipdex/internal/scipmodel"
)

func docFor(path, symbolID string, kind scipmodel.SymbolKind, line int) scipmodel.Document {
	return scipmodel.Document{
		RelativePath: path,
		Language:     "dart",
		Symbols: []scipmodel.SymbolInfo{
			{ID: symbolID, Kind: kind, File: path},
		},
		Occurrences: []scipmodel.OccurrenceInfo{
			{File: path, Symbol: symbolID, Range: scipmodel.Range{StartLine: line}, IsDefinition: true},
		},
	}
}

func TestIndexSetFindSymbolsDedupsAcrossIndexes(t *testing.T) {
	project := index.New("/repo", "")
	project.UpdateDocument(docFor("lib/a.dart", "scip-dart pub pkg 1.0.0 `a.dart`/Foo#", scipmodel.KindClass, 0))

	local := index.New("/repo/packages/sub", "")
	local.UpdateDocument(docFor("lib/b.dart", "scip-dart pub sub 1.0.0 `b.dart`/Foo#", scipmodel.KindClass, 0))

	set := NewIndexSet(project)
	set.AddLocalPackage("sub", local)

	found, err := set.FindSymbols("Foo", ScopeProject)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 distinct Foo symbols across project+local, got %d", len(found))
	}
}

func TestIndexSetScopeExcludesExternalByDefault(t *testing.T) {
	project := index.New("/repo", "")
	extID := "scip-dart pub ext 1.0.0 `ext.dart`/ExternalHelper#"
	external := index.New("/cache/ext", "/ext")
	external.UpdateDocument(docFor("lib/ext.dart", extID, scipmodel.KindClass, 0))

	set := NewIndexSet(project)
	set.SetSDK(external)

	projectScope, err := set.FindSymbols("ExternalHelper", ScopeProject)
	if err != nil {
		t.Fatal(err)
	}
	if len(projectScope) != 0 {
		t.Fatalf("expected external symbol excluded from project scope, got %v", projectScope)
	}

	loadedScope, err := set.FindSymbols("ExternalHelper", ScopeProjectAndLoaded)
	if err != nil {
		t.Fatal(err)
	}
	if len(loadedScope) != 1 {
		t.Fatalf("expected external symbol included in project_and_loaded scope, got %v", loadedScope)
	}
}

func TestIndexSetFindOwningIndexPrefersProjectOnTie(t *testing.T) {
	id := "scip-dart pub pkg 1.0.0 `a.dart`/Shared#"
	project := index.New("/repo", "")
	project.UpdateDocument(docFor("lib/a.dart", id, scipmodel.KindClass, 0))

	local := index.New("/repo/packages/sub", "")
	local.UpdateDocument(docFor("lib/a.dart", id, scipmodel.KindClass, 0))

	set := NewIndexSet(project)
	set.AddLocalPackage("sub", local)

	owner, ok := set.FindOwningIndex(id)
	if !ok {
		t.Fatal("expected owning index to be found")
	}
	if owner != project {
		t.Fatal("expected project index to win the tie")
	}
}

func TestIndexSetGetSourceUsesOwningSourceRoot(t *testing.T) {
	extID := "scip-dart pub ext 1.0.0 `utils.dart`/ExternalHelper#"
	project := index.New("/repo", "")
	external := index.New("/cache/ext", t.TempDir())
	external.UpdateDocument(docFor("lib/utils.dart", extID, scipmodel.KindClass, 0))

	set := NewIndexSet(project)
	set.SetSDK(external)

	owner, ok := set.FindOwningIndex(extID)
	if !ok || owner != external {
		t.Fatal("expected external index to own the symbol")
	}
	// GetSource dispatching to the owner's source root (not project_root)
	// is exercised at the index level in internal/index/source_test.go;
	// here we only check dispatch picks the right index.
	if owner.SourceRoot() == project.SourceRoot() {
		t.Fatal("expected external source root to differ from project root")
	}
}

func TestIndexSetFindAllReferencesDedupsByPosition(t *testing.T) {
	id := "scip-dart pub pkg 1.0.0 `a.dart`/Foo#"
	project := index.New("/repo", "")
	project.UpdateDocument(scipmodel.Document{
		RelativePath: "lib/a.dart",
		Symbols:      []scipmodel.SymbolInfo{{ID: id, Kind: scipmodel.KindClass, File: "lib/a.dart"}},
		Occurrences: []scipmodel.OccurrenceInfo{
			{File: "lib/a.dart", Symbol: id, Range: scipmodel.Range{StartLine: 10}},
		},
	})

	local := index.New("/repo/packages/sub", "")
	local.UpdateDocument(scipmodel.Document{
		RelativePath: "lib/a.dart",
		Occurrences: []scipmodel.OccurrenceInfo{
			{File: "lib/a.dart", Symbol: id, Range: scipmodel.Range{StartLine: 10}},
			{File: "lib/a.dart", Symbol: id, Range: scipmodel.Range{StartLine: 20}},
		},
	})

	set := NewIndexSet(project)
	set.AddLocalPackage("sub", local)

	refs := set.FindAllReferences(id)
	if len(refs) != 2 {
		t.Fatalf("expected 2 deduped references, got %d: %+v", len(refs), refs)
	}
}

func TestIndexSetGrepIncludeExternal(t *testing.T) {
	project := index.New(t.TempDir(), "")
	set := NewIndexSet(project)

	re := regexp.MustCompile("TODO")
	if _, err := set.Grep(re, index.GrepOptions{}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := set.Grep(re, index.GrepOptions{}, true); err != nil {
		t.Fatal(err)
	}
}
