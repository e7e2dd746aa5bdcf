package index

import (
	"path/filepath"
	"regexp"
	"testing"

	"scipdex/internal/scipmodel"
)

// Scenario 5: grep.
func TestGrepLineMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "x.dart"), "hello dart\nTODO: fix\nhello again")

	idx := New(dir, dir)
	idx.UpdateDocument(scipmodel.Document{RelativePath: "lib/x.dart"})

	re := regexp.MustCompile(`(?i)TODO|hello`)
	matches, err := idx.Grep(re, GrepOptions{LinesBefore: 1, LinesAfter: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("Grep = %d matches, want 3", len(matches))
	}
	for i, m := range matches {
		if m.Line != i {
			t.Fatalf("matches[%d].Line = %d, want %d", i, m.Line, i)
		}
	}
}

func TestGrepSymbolContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "x.dart"), "void foo() {\n  hello();\n}\n")

	endLine := 2
	idx := New(dir, dir)
	idx.UpdateDocument(scipmodel.Document{
		RelativePath: "lib/x.dart",
		Symbols:      []scipmodel.SymbolInfo{{ID: "pkg x.dart/foo().", DisplayName: "foo"}},
		Occurrences: []scipmodel.OccurrenceInfo{
			{File: "lib/x.dart", Symbol: "pkg x.dart/foo().", Range: scipmodel.Range{StartLine: 0}, IsDefinition: true, EnclosingEndLine: &endLine},
		},
	})

	re := regexp.MustCompile(`hello`)
	matches, err := idx.Grep(re, GrepOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("Grep = %d matches, want 1", len(matches))
	}
	if matches[0].SymbolContext != "foo" {
		t.Fatalf("SymbolContext = %q, want foo", matches[0].SymbolContext)
	}
}

func TestGrepMaxPerFileStrict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "x\nx\nx\nx\nx\n")

	idx := New(dir, dir)
	idx.UpdateDocument(scipmodel.Document{RelativePath: "a.txt"})

	re := regexp.MustCompile(`x`)
	matches, err := idx.Grep(re, GrepOptions{MaxPerFile: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("Grep with MaxPerFile=2 returned %d, want exactly 2", len(matches))
	}
}

func TestGrepOnlyMatching(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "foo bar foo\n")

	idx := New(dir, dir)
	idx.UpdateDocument(scipmodel.Document{RelativePath: "a.txt"})

	re := regexp.MustCompile(`foo`)
	matches, err := idx.Grep(re, GrepOptions{OnlyMatching: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("Grep OnlyMatching = %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m.MatchText != "foo" {
			t.Fatalf("MatchText = %q, want foo", m.MatchText)
		}
		if len(m.Context) != 0 {
			t.Fatalf("OnlyMatching result should have no context, got %v", m.Context)
		}
	}
}

func TestGrepInvert(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "keep\nskip\nkeep\n")

	idx := New(dir, dir)
	idx.UpdateDocument(scipmodel.Document{RelativePath: "a.txt"})

	re := regexp.MustCompile(`skip`)
	matches, err := idx.Grep(re, GrepOptions{Invert: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("Grep Invert = %d matches, want 2", len(matches))
	}
}

func TestGrepMultiline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "start\nmid\nend block\n")

	idx := New(dir, dir)
	idx.UpdateDocument(scipmodel.Document{RelativePath: "a.txt"})

	re := regexp.MustCompile(`(?s)start.*end`)
	matches, err := idx.Grep(re, GrepOptions{Multiline: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("Grep multiline = %d matches, want 1", len(matches))
	}
	if matches[0].Line != 0 || matches[0].EndLine != 2 {
		t.Fatalf("match span = [%d,%d], want [0,2]", matches[0].Line, matches[0].EndLine)
	}
}

func TestGrepIncludeExcludeGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "needle\n")
	writeFile(t, filepath.Join(dir, "b.txt"), "needle\n")

	idx := New(dir, dir)
	idx.UpdateDocument(scipmodel.Document{RelativePath: "a.go"})
	idx.UpdateDocument(scipmodel.Document{RelativePath: "b.txt"})

	re := regexp.MustCompile(`needle`)
	matches, err := idx.Grep(re, GrepOptions{IncludeGlob: "*.go"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].File != "a.go" {
		t.Fatalf("Grep with include glob = %+v, want only a.go", matches)
	}

	matches, err = idx.Grep(re, GrepOptions{ExcludeGlob: "*.go"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].File != "b.txt" {
		t.Fatalf("Grep with exclude glob = %+v, want only b.txt", matches)
	}
}
