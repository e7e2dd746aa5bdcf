package binding

import (
	"os"
	"path/filepath"
	"testing"

	"scipdex/internal/project"
)

func TestExecBindingMetadata(t *testing.T) {
	b := NewExecBinding(project.LangGo, ".go")

	if b.LanguageID() != project.LangGo {
		t.Fatalf("unexpected language id: %v", b.LanguageID())
	}
	if len(b.Extensions()) != 1 || b.Extensions()[0] != ".go" {
		t.Fatalf("unexpected extensions: %v", b.Extensions())
	}
	if b.PackageManifestFilename() != "go.mod" {
		t.Fatalf("unexpected manifest filename: %q", b.PackageManifestFilename())
	}
	if !b.SupportsIncremental() {
		t.Fatal("expected go to support incremental indexing per project.Indexers")
	}
	if b.SupportsDependencies() {
		t.Fatal("expected exec binding to report no dependency discovery support")
	}
}

func TestExecBindingDiscoverPackagesFiltersByLanguage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/foo\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "client")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "package.json"), []byte(`{"name":"client","version":"1.0.0"}`), 0644); err != nil {
		t.Fatal(err)
	}

	goBinding := NewExecBinding(project.LangGo, ".go")
	pkgs, err := goBinding.DiscoverPackages(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 1 || pkgs[0].Language != project.LangGo {
		t.Fatalf("expected exactly one go package, got %+v", pkgs)
	}
	if pkgs[0].Name != "example.com/foo" {
		t.Fatalf("expected go.mod module path as name, got %q", pkgs[0].Name)
	}

	tsBinding := NewExecBinding(project.LangTypeScript, ".ts")
	tsPkgs, err := tsBinding.DiscoverPackages(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(tsPkgs) != 1 || tsPkgs[0].Name != "client" || tsPkgs[0].Version != "1.0.0" {
		t.Fatalf("expected one client@1.0.0 package, got %+v", tsPkgs)
	}
}

func TestExecAdapterListFilesFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0644); err != nil {
		t.Fatal(err)
	}

	b := NewExecBinding(project.LangGo, ".go")
	adapter, err := b.CreateContext(project.DiscoveredPackage{Path: dir, Language: project.LangGo})
	if err != nil {
		t.Fatal(err)
	}
	defer adapter.Close()

	files, err := adapter.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "a.go" {
		t.Fatalf("expected only a.go, got %v", files)
	}

	if ch := adapter.FileChanges(); ch != nil {
		t.Fatal("expected exec adapter to report no independent change feed")
	}
}
