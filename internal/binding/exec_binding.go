package binding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scipdex/internal/project"
	"scipdex/internal/scipmodel"
)

// ExecBinding is the default LanguageBinding: it shells out to the
// external SCIP indexer configured for its language in
// internal/project.Indexers, the same way the teacher's SCIPAdapter
// loads a prebuilt index.scip rather than analyzing source itself. It
// supports incremental indexing only in the degraded sense of §4.F's
// "no AnalyzerAdapter" fallback: a changed file triggers a full rerun of
// the external indexer rather than a single-file reparse.
type ExecBinding struct {
	Lang       project.Language
	extensions []string
}

// NewExecBinding builds an ExecBinding for lang, using ext as its source
// file extensions (e.g. []string{".go"}).
func NewExecBinding(lang project.Language, ext ...string) *ExecBinding {
	return &ExecBinding{Lang: lang, extensions: ext}
}

func (b *ExecBinding) LanguageID() project.Language { return b.Lang }

func (b *ExecBinding) Extensions() []string { return b.extensions }

func (b *ExecBinding) PackageManifestFilename() string {
	for name, lang := range manifestByLanguage() {
		if lang == b.Lang {
			return name
		}
	}
	return ""
}

// SupportsIncremental mirrors project.SupportsIncrementalIndexing: only
// languages whose external indexer is known to tolerate being rerun
// quickly on a small changeset report true.
func (b *ExecBinding) SupportsIncremental() bool {
	return project.SupportsIncrementalIndexing(b.Lang)
}

// SupportsDependencies is false for the exec binding: discovering a
// language's external SDK/hosted/git dependencies is language-specific
// enough that it belongs in a dedicated binding, not this generic
// exec-the-indexer fallback.
func (b *ExecBinding) SupportsDependencies() bool { return false }

func (b *ExecBinding) DiscoverPackages(root string) ([]project.DiscoveredPackage, error) {
	all, err := project.DiscoverPackages(root)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, pkg := range all {
		if pkg.Language == b.Lang {
			out = append(out, pkg)
		}
	}
	return out, nil
}

// CreateContext returns an execAdapter, which answers ListFiles by walking
// the package directory and ResolvedUnit by rerunning CreateIndexer and
// slicing the result; it has no independent change feed, so FileChanges
// always returns nil.
func (b *ExecBinding) CreateContext(pkg project.DiscoveredPackage) (AnalyzerAdapter, error) {
	return &execAdapter{binding: b, pkg: pkg}, nil
}

// CreateIndexer runs the external SCIP indexer configured for b.Lang
// against pkg.Path and decodes its output.
func (b *ExecBinding) CreateIndexer(ctx context.Context, pkg project.DiscoveredPackage) ([]scipmodel.Document, error) {
	cfg := project.GetIndexerConfig(b.Lang)
	if cfg == nil {
		return nil, fmt.Errorf("binding: no indexer configured for language %q", b.Lang)
	}
	resolved := *cfg
	if overrides, ok, err := project.LoadPackageOverrides(pkg.Path); err == nil && ok {
		resolved = overrides.Apply(resolved)
	}
	cfg = &resolved

	outPath := filepath.Join(pkg.Path, ".ckb-index.scip")
	if cfg.HasFixedOutput() {
		outPath = filepath.Join(pkg.Path, cfg.FixedOutput)
	}

	cmd := cfg.BuildCommand(outPath)
	cmd.Dir = pkg.Path

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("binding: running %s for %s: %w", cfg.Cmd, pkg.Path, err)
	}
	defer os.Remove(outPath)

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("binding: reading indexer output: %w", err)
	}
	return scipmodel.DecodeIndex(data)
}

// execAdapter is the AnalyzerAdapter ExecBinding hands back. It has no
// incremental story of its own: every ResolvedUnit call reruns the full
// external indexer and extracts the one document asked for, which is
// correct but not cheap — languages that want real per-file incremental
// updates need a binding with its own AnalyzerAdapter, not this one.
type execAdapter struct {
	binding *ExecBinding
	pkg     project.DiscoveredPackage
}

func (a *execAdapter) ProjectRoot() string { return a.pkg.Path }

func (a *execAdapter) ListFiles() ([]string, error) {
	var out []string
	err := filepath.Walk(a.pkg.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != a.pkg.Path {
				return filepath.SkipDir
			}
			if info.Name() == "build" || info.Name() == "node_modules" || info.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		for _, ext := range a.binding.extensions {
			if strings.HasSuffix(path, ext) {
				rel, relErr := filepath.Rel(a.pkg.Path, path)
				if relErr == nil {
					out = append(out, rel)
				}
				break
			}
		}
		return nil
	})
	return out, err
}

func (a *execAdapter) ResolvedUnit(path string) (scipmodel.Document, bool, error) {
	docs, err := a.binding.CreateIndexer(context.Background(), a.pkg)
	if err != nil {
		return scipmodel.Document{}, false, err
	}
	for _, doc := range docs {
		if doc.RelativePath == path {
			return doc, true, nil
		}
	}
	return scipmodel.Document{}, false, nil
}

func (a *execAdapter) NotifyFileChange(FileChange) {
	// Stateless: every ResolvedUnit call already rereads from disk via a
	// fresh indexer run.
}

func (a *execAdapter) FileChanges() <-chan FileChange { return nil }

func (a *execAdapter) Close() error { return nil }

func manifestByLanguage() map[string]project.Language {
	return map[string]project.Language{
		"go.mod":         project.LangGo,
		"package.json":   project.LangTypeScript,
		"pubspec.yaml":   project.LangDart,
		"Cargo.toml":     project.LangRust,
		"pyproject.toml": project.LangPython,
		"composer.json":  project.LangPHP,
		"Gemfile":        project.LangRuby,
	}
}
