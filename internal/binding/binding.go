// Package binding defines the language-binding boundary described in
// SPEC_FULL.md §6: the contract a per-language producer of SCIP documents
// must satisfy so internal/indexer can open, watch, and incrementally
// reindex a package without knowing anything about a specific language
// toolchain. It mirrors the Backend/SymbolBackend split in
// internal/backends (this module's teacher package): a small, mostly
// metadata interface (LanguageBinding) plus a richer per-open handle
// (AnalyzerAdapter) that does the actual work.
package binding

import (
	"context"

	"scipdex/internal/project"
	"scipdex/internal/scipmodel"
)

// LanguageBinding describes everything internal/indexer needs to know
// about a language before it opens a package: how to recognize the
// language's packages, whether its indexer supports incremental runs and
// dependency discovery, and how to build the two handles indexer needs
// per open (an AnalyzerAdapter and, when available, a fresh Indexer run).
type LanguageBinding interface {
	// LanguageID is the SCIP/project.Language identifier this binding
	// produces documents for (e.g. "dart", "go").
	LanguageID() project.Language

	// Extensions lists the source file extensions (with leading dot)
	// this binding's packages contain, for change-detection file walks.
	Extensions() []string

	// PackageManifestFilename is the file that marks a package root for
	// this language (e.g. "pubspec.yaml", "go.mod").
	PackageManifestFilename() string

	// SupportsIncremental reports whether CreateIndexer can be skipped
	// on subsequent opens in favor of per-file reindexing via the
	// AnalyzerAdapter returned by CreateContext.
	SupportsIncremental() bool

	// SupportsDependencies reports whether DiscoverPackages can resolve
	// this language's external dependencies (SDK, hosted, git, local) in
	// addition to the project's own packages.
	SupportsDependencies() bool

	// DiscoverPackages finds every package of this language under root,
	// including the root package itself when it matches.
	DiscoverPackages(root string) ([]project.DiscoveredPackage, error)

	// CreateContext builds the AnalyzerAdapter used to read resolved
	// units and watch file-level changes for a single discovered
	// package.
	CreateContext(pkg project.DiscoveredPackage) (AnalyzerAdapter, error)

	// CreateIndexer runs this language's full-project SCIP indexer
	// (per internal/project.IndexerConfig) against pkg and returns the
	// produced documents. Used for the from-scratch and cache-miss
	// paths; incremental opens prefer the AnalyzerAdapter instead.
	CreateIndexer(ctx context.Context, pkg project.DiscoveredPackage) ([]scipmodel.Document, error)
}

// FileChange describes one file-level change an AnalyzerAdapter observed
// since it was created or since its last FileChanges delivery.
type FileChange struct {
	Path      string
	Removed   bool
	ModTimeNS int64
}

// AnalyzerAdapter is the per-package handle a LanguageBinding hands back
// from CreateContext. internal/indexer uses it to enumerate a package's
// files, convert any one of them into a scipmodel.Document on demand, and
// learn about changes as they happen, without depending on the
// language's own build/analysis tooling.
type AnalyzerAdapter interface {
	// ProjectRoot returns the package root this adapter was created for.
	ProjectRoot() string

	// ListFiles enumerates every source file belonging to the package,
	// relative to ProjectRoot.
	ListFiles() ([]string, error)

	// ResolvedUnit produces the scipmodel.Document for a single file,
	// relative to ProjectRoot. It returns ok=false when path does not
	// belong to this package (e.g. it was removed or never existed).
	ResolvedUnit(path string) (doc scipmodel.Document, ok bool, err error)

	// NotifyFileChange tells the adapter a file changed on disk, so its
	// next ResolvedUnit reflects the new content. Adapters that always
	// read fresh from disk may treat this as a no-op.
	NotifyFileChange(change FileChange)

	// FileChanges returns a channel of changes the adapter noticed on
	// its own (e.g. from a language server's own file watch). Adapters
	// with no independent change source return a nil channel, which
	// blocks forever and is safe to select on.
	FileChanges() <-chan FileChange

	// Close releases any resources (subprocesses, file handles) the
	// adapter holds.
	Close() error
}
